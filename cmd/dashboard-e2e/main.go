package main

import (
	"context"
	goflag "flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"

	"github.com/saleor-qa/dashboard-e2e/internal/config"
	"github.com/saleor-qa/dashboard-e2e/internal/version"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "dashboard-e2e",
	Short: "End-to-end suite for the Saleor dashboard",
	Long: `Dashboard E2E drives a real browser through the Saleor dashboard.

It logs in once per key, reuses the authenticated session across every
scenario, retries failed scenarios and publishes the run as reports,
metrics and history.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			return config.LoadFromFile(configFile)
		}
		return config.Load(".")
	},
}

func init() {
	fs := goflag.NewFlagSet("klog", goflag.ExitOnError)
	klog.InitFlags(fs)
	rootCmd.PersistentFlags().AddGoFlagSet(fs)
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Suite configuration file (default ./suite.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := yaml.Marshal(version.GetInfo())
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after merging the defaults, suite.yaml and
SALEOR_E2E_* environment overrides. Secrets are never printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := yaml.Marshal(config.Get())
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

// configPath returns the absolute path of the configuration file in use, or
// "" when only defaults and the environment apply.
func configPath() string {
	path := configFile
	if path == "" {
		path = "suite.yaml"
		if _, err := os.Stat(path); err != nil {
			return ""
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func mustConfig() (*config.Config, error) {
	cfg := config.Get()
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}

func main() {
	defer klog.Flush()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
