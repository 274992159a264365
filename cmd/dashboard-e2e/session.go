package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/saleor-qa/dashboard-e2e/internal/auth"
	"github.com/saleor-qa/dashboard-e2e/internal/harness"
	"github.com/saleor-qa/dashboard-e2e/internal/session"
)

var (
	exportPath   string
	loginHeadful bool
	clearAll     bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in once and keep the session",
	Long: `Log into the dashboard with the configured auth mode and store the
session under session.key. With a file or redis store later runs restore it
without logging in again. --export also writes the state to a file usable
with auth.mode=state.`,
	RunE: runLogin,
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and clear cached sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		list, err := session.List(cmd.Context(), store)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No cached sessions")
			return nil
		}
		now := time.Now()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tCOOKIES\tORIGINS\tCAPTURED\tSTATUS")
		for _, s := range list {
			status := "valid"
			if s.Expired(now) {
				status = "expired"
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", s.Key, s.Cookies, len(s.Origins), s.Age(now), status)
		}
		return w.Flush()
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show KEY",
	Short: "Show a cached session without its secrets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		state, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(session.Summarize(args[0], state))
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear [KEY]",
	Short: "Forget a cached session so the next run logs in again",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		cache := session.NewCache(store)
		if clearAll {
			if err := cache.ClearAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("🧹 Cleared all sessions")
			return nil
		}

		key := mustConfigKey()
		if len(args) == 1 {
			key = args[0]
		}
		if err := cache.Clear(cmd.Context(), key); err != nil {
			return err
		}
		fmt.Printf("🧹 Cleared session %q\n", key)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&exportPath, "export", "", "Also write the captured state to this file")
	loginCmd.Flags().BoolVar(&loginHeadful, "headful", true, "Show the browser during login")
	sessionClearCmd.Flags().BoolVar(&clearAll, "all", false, "Clear every cached session")

	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionClearCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(sessionCmd)
}

func openStore() (session.Store, func(), error) {
	cfg, err := mustConfig()
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := signalContext()
	defer cancel()
	store, err := harness.OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if c, ok := store.(io.Closer); ok {
			c.Close()
		}
	}, nil
}

func mustConfigKey() string {
	cfg, err := mustConfig()
	if err != nil {
		return ""
	}
	return cfg.Session.Key
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := mustConfig()
	if err != nil {
		return err
	}
	if !cfg.Session.IsPersistent() && exportPath == "" {
		fmt.Println("⚠️  session.store is memory: the session ends with this process; use --export or a file/redis store")
	}
	cfg.Browser.Headless = !loginHeadful

	ctx, cancel := signalContext()
	defer cancel()

	h, err := harness.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer h.Close()

	bs, err := h.Launch()
	if err != nil {
		return err
	}
	defer bs.Close(nil)

	outcome, err := h.Login(ctx, bs, auth.Deps{In: os.Stdin, Out: os.Stdout})
	if err != nil {
		return err
	}
	fmt.Printf("✅ Session %q %s\n", cfg.Session.Key, outcome)

	if exportPath == "" {
		return nil
	}
	state, err := bs.Capture(ctx)
	if err != nil {
		return err
	}
	data, err := state.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(exportPath, data, 0o600); err != nil {
		return errors.Wrapf(err, "failed to write %s", exportPath)
	}
	fmt.Printf("📄 State written to %s\n", exportPath)
	return nil
}
