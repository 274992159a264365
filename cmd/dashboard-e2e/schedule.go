package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/saleor-qa/dashboard-e2e/internal/config"
	"github.com/saleor-qa/dashboard-e2e/internal/harness"
	"github.com/saleor-qa/dashboard-e2e/internal/runner"
	"github.com/saleor-qa/dashboard-e2e/internal/server"
	"github.com/saleor-qa/dashboard-e2e/internal/session"
)

var (
	runOnce      string
	withServer   bool
	serveAddr    string
	historyLimit int
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the suite on the configured cron schedule",
	Long: `Run schedule.jobs headless on their cron expressions until interrupted.
A job still running when its next tick fires is skipped. --once runs a single
job immediately and exits.`,
	RunE: runSchedule,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve reports, run history and cached sessions over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := mustConfig()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		srv, cleanup, err := newServer(ctx, cfg, nil)
		if err != nil {
			return err
		}
		defer cleanup()
		return srv.Run(ctx, listenAddr(cfg))
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := historyPublisher(cmd.Context())
		if err != nil {
			return err
		}
		defer p.Close()

		runs, err := p.History().Recent(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tMODE\tSTARTED\tDURATION\tPASSED\tFAILED\tFLAKY\tAREAS")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				r.ID, r.Mode, r.Started().Format(time.RFC3339), r.Duration().Round(time.Second),
				r.Passed, r.Failed, r.Flaky, r.Areas)
		}
		return w.Flush()
	},
}

var historyFlakyCmd = &cobra.Command{
	Use:   "flaky",
	Short: "Rank tests by how often they needed a retry",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := historyPublisher(cmd.Context())
		if err != nil {
			return err
		}
		defer p.Close()

		tests, err := p.History().Flaky(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(tests) == 0 {
			fmt.Println("✅ No flaky tests recorded")
			return nil
		}
		for _, t := range tests {
			fmt.Printf("%4d  %s\n", t.Count, t.TestName)
		}
		return nil
	},
}

func init() {
	scheduleCmd.Flags().StringVar(&runOnce, "once", "", "Run the named job now and exit")
	scheduleCmd.Flags().BoolVar(&withServer, "serve", false, "Also serve results over HTTP")
	for _, c := range []*cobra.Command{scheduleCmd, serveCmd} {
		c.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default serve.addr)")
	}
	historyCmd.PersistentFlags().IntVar(&historyLimit, "limit", 20, "Number of entries")

	historyCmd.AddCommand(historyFlakyCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
}

func listenAddr(cfg *config.Config) string {
	if serveAddr != "" {
		return serveAddr
	}
	return cfg.Serve.Addr
}

func historyPublisher(ctx context.Context) (*harness.Publisher, error) {
	cfg, err := mustConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, errors.New("history is disabled; set history.enabled")
	}
	return harness.NewPublisher(ctx, cfg)
}

// newServer wires the HTTP server. A nil publisher opens its own history.
func newServer(ctx context.Context, cfg *config.Config, p *harness.Publisher) (*server.Server, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for _, c := range cleanups {
			c()
		}
	}

	if p == nil {
		var err error
		if p, err = harness.NewPublisher(ctx, cfg); err != nil {
			return nil, nil, err
		}
		cleanups = append(cleanups, func() { p.Close() })
	}
	opts := server.Options{ResultsDir: cfg.Results.Folder}
	if h := p.History(); h != nil {
		opts.History = h
	}

	if cfg.Session.IsPersistent() {
		store, err := harness.OpenStore(ctx, cfg)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts.Sessions = store
		if c, ok := store.(interface{ Close() error }); ok {
			cleanups = append(cleanups, func() { c.Close() })
		}
	} else {
		opts.Sessions = session.NewMemoryStore()
	}
	return server.New(opts), cleanup, nil
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := mustConfig()
	if err != nil {
		return err
	}
	if len(cfg.Schedule.Jobs) == 0 {
		return errors.New("no jobs in schedule.jobs")
	}
	ctx, cancel := signalContext()
	defer cancel()

	publisher, err := harness.NewPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	suite := runner.NewSuite(runner.GoTest{Stderr: os.Stderr})
	run := func(ctx context.Context, areas []string) (*runner.Report, error) {
		o := runner.OptionsFromConfig(cfg, config.ModeRun, areas)
		o.ConfigFile = configPath()
		report, err := suite.Run(ctx, o)
		if err != nil {
			return nil, err
		}
		if _, err := publisher.Publish(ctx, report); err != nil {
			klog.Errorf("[schedule] %v", err)
		}
		return report, nil
	}

	registry := runner.NewTaskRegistry()
	for _, job := range cfg.Schedule.Jobs {
		if err := registry.Register(runner.NewSuiteTask(job, run)); err != nil {
			return err
		}
	}
	scheduler := runner.NewScheduler(registry)
	if err := scheduler.Validate(); err != nil {
		return err
	}

	if runOnce != "" {
		return scheduler.RunNow(ctx, runOnce)
	}

	if withServer {
		srv, cleanup, err := newServer(ctx, cfg, publisher)
		if err != nil {
			return err
		}
		defer cleanup()
		go func() {
			if err := srv.Run(ctx, listenAddr(cfg)); err != nil {
				klog.Errorf("[server] %v", err)
			}
		}()
	}

	fmt.Printf("⏰ Scheduling %s\n", strings.Join(registry.Names(), ", "))
	return scheduler.Start(ctx)
}
