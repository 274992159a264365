package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/saleor-qa/dashboard-e2e/internal/config"
	"github.com/saleor-qa/dashboard-e2e/internal/harness"
	"github.com/saleor-qa/dashboard-e2e/internal/runner"
)

var (
	runTimeout time.Duration
	eventsFile string
)

var runCmd = &cobra.Command{
	Use:   "run [areas...]",
	Short: "Run the suite headless",
	Long: `Run the scenarios of the given areas, or all of them, in a headless
browser. Failed scenarios are retried up to retries.run_mode times.

Areas: ` + areaNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSuite(config.ModeRun, args)
	},
}

var openCmd = &cobra.Command{
	Use:   "open [areas...]",
	Short: "Run the suite in a visible browser",
	Long: `Run the scenarios in a headed browser so the operator can watch them
and complete interactive logins. Configuration edits are picked up by the
next attempt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSuite(config.ModeOpen, args)
	},
}

var areasCmd = &cobra.Command{
	Use:   "areas",
	Short: "List the feature areas",
	Run: func(cmd *cobra.Command, args []string) {
		for _, a := range runner.Areas() {
			fmt.Printf("%-18s %s\n", a.Name, strings.Join(a.Tests, ", "))
		}
	},
}

func init() {
	for _, c := range []*cobra.Command{runCmd, openCmd} {
		c.Flags().DurationVar(&runTimeout, "timeout", 0, "Overall go test timeout, e.g. 45m (default: none)")
		c.Flags().StringVar(&eventsFile, "events", "", "Write the raw test2json stream to this file")
	}
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(areasCmd)
}

func areaNames() string {
	var names []string
	for _, a := range runner.Areas() {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

func runSuite(mode config.Mode, areas []string) error {
	cfg, err := mustConfig()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	o := runner.OptionsFromConfig(cfg, mode, areas)
	o.ConfigFile = configPath()
	o.Timeout = runTimeout
	if eventsFile != "" {
		f, err := os.Create(eventsFile)
		if err != nil {
			return errors.Wrap(err, "failed to create events file")
		}
		defer f.Close()
		o.Output = f
	}

	if mode == config.ModeOpen && o.ConfigFile != "" {
		err := config.Watch(o.ConfigFile, func(c *config.Config) {
			klog.Infof("[config] %s reloaded; the next attempt uses it", o.ConfigFile)
		})
		if err != nil {
			klog.Warningf("[config] not watching %s: %v", o.ConfigFile, err)
		}
	}

	publisher, err := harness.NewPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	fmt.Printf("🚀 Running %s in %s mode (retries: %d)\n", describeAreas(areas), mode, o.Retries)
	report, err := runner.NewSuite(runner.GoTest{Stderr: os.Stderr}).Run(ctx, o)
	if err != nil {
		return err
	}
	return finish(ctx, publisher, report)
}

func finish(ctx context.Context, p *harness.Publisher, report *runner.Report) error {
	paths, pubErr := p.Publish(ctx, report)
	for _, path := range paths {
		fmt.Printf("📄 %s\n", path)
	}
	if pubErr != nil {
		fmt.Printf("⚠️  %v\n", pubErr)
	}

	c := report.Counts()
	summary := fmt.Sprintf("%d passed, %d failed, %d flaky, %d skipped in %s",
		c[runner.StatusPassed], c[runner.StatusFailed], c[runner.StatusFlaky], c[runner.StatusSkipped],
		report.Duration().Round(time.Second))
	if !report.Passed() {
		fmt.Printf("❌ %s\n", summary)
		for _, b := range report.BuildErrors {
			fmt.Printf("   build: %s\n", b)
		}
		return errors.Errorf("run %s failed", report.ID)
	}
	fmt.Printf("✅ %s\n", summary)
	return nil
}

func describeAreas(areas []string) string {
	if len(areas) == 0 {
		return "all areas"
	}
	titles := make([]string, 0, len(areas))
	for _, a := range areas {
		titles = append(titles, runner.AreaTitle(a))
	}
	return strings.Join(titles, ", ")
}
