package runner

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/saleor-qa/dashboard-e2e/internal/config"
)

// DefaultPackages are the scenario packages a run covers.
var DefaultPackages = []string{"./tests/e2e/..."}

// Invocation is one go test command.
type Invocation struct {
	Args []string
	Env  []string
	Dir  string
}

// Executor runs go test and streams its -json output to out.
type Executor interface {
	Exec(ctx context.Context, inv Invocation, out io.Writer) error
}

// GoTest executes the go tool found on PATH.
type GoTest struct {
	Stderr io.Writer
}

func (g GoTest) Exec(ctx context.Context, inv Invocation, out io.Writer) error {
	cmd := exec.CommandContext(ctx, "go", inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = append(os.Environ(), inv.Env...)
	cmd.Stdout = out
	cmd.Stderr = g.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	return cmd.Run()
}

// Options configure a Suite run.
type Options struct {
	Mode     config.Mode
	Areas    []string
	Retries  int
	Packages []string
	// Dir is the module root go test runs in.
	Dir string
	// ConfigFile is handed to the scenario tests.
	ConfigFile string
	Timeout    time.Duration
	// Trash lists folders emptied before the run.
	Trash []string
	// Output receives the raw test2json stream of every attempt.
	Output io.Writer
	// SessionStore is session.store. A memory store lives only as long as one
	// go test process, so the run replaces it with a directory shared by all
	// attempts.
	SessionStore string

	sessionDir string
}

// OptionsFromConfig fills Options for mode from the suite configuration.
func OptionsFromConfig(cfg *config.Config, mode config.Mode, areas []string) Options {
	o := Options{
		Mode:     mode,
		Areas:    areas,
		Retries:  cfg.RetriesFor(mode),
		Packages: DefaultPackages,

		SessionStore: cfg.Session.Store,
	}
	if cfg.Screenshots.TrashBeforeRuns {
		o.Trash = append(o.Trash, cfg.Screenshots.Folder)
		if cfg.Video.Enabled {
			o.Trash = append(o.Trash, cfg.Video.Folder)
		}
	}
	return o
}

// Suite runs the scenario tests with flat retries of the failed ones.
type Suite struct {
	exec Executor
	now  func() time.Time
}

// NewSuite creates a Suite. A nil executor uses GoTest.
func NewSuite(e Executor) *Suite {
	if e == nil {
		e = GoTest{}
	}
	return &Suite{exec: e, now: time.Now}
}

// Env returns the environment the scenario tests read for mode.
func (o Options) Env() []string {
	env := []string{config.EnvPrefix + "_MODE=" + string(o.Mode)}
	if o.Mode == config.ModeOpen {
		env = append(env, config.EnvPrefix+"_BROWSER_HEADLESS=false")
	} else {
		env = append(env, config.EnvPrefix+"_BROWSER_HEADLESS=true")
	}
	if o.ConfigFile != "" {
		env = append(env, config.EnvPrefix+"_CONFIG_FILE="+o.ConfigFile)
	}
	if o.sessionDir != "" {
		env = append(env,
			config.EnvPrefix+"_SESSION_STORE="+config.StoreRun,
			config.EnvPrefix+"_SESSION_DIR="+o.sessionDir,
		)
	}
	return env
}

func (o Options) args(pattern string) []string {
	args := []string{"test", "-json", "-count=1", "-tags", "e2e", "-p", "1"}
	if o.Timeout > 0 {
		args = append(args, "-timeout", o.Timeout.String())
	} else {
		// Interactive logins may wait on the operator indefinitely.
		args = append(args, "-timeout", "0")
	}
	if pattern != "" {
		args = append(args, "-run", pattern)
	}
	pkgs := o.Packages
	if len(pkgs) == 0 {
		pkgs = DefaultPackages
	}
	return append(args, pkgs...)
}

// Run executes the suite and returns its report. The error is non-nil only
// when the run could not be carried out; failing tests are in the report.
func (s *Suite) Run(ctx context.Context, o Options) (*Report, error) {
	pattern, err := RunPattern(o.Areas)
	if err != nil {
		return nil, err
	}
	if err := trash(o.Trash); err != nil {
		return nil, err
	}

	report := &Report{ID: uuid.NewString(), Mode: o.Mode, Areas: o.Areas, StartedAt: s.now()}

	if o.SessionStore == "" || o.SessionStore == "memory" {
		dir, err := os.MkdirTemp("", "dashboard-e2e-session-")
		if err != nil {
			return nil, errors.Wrap(err, "failed to create the run session directory")
		}
		defer func() {
			if err := os.RemoveAll(dir); err != nil {
				klog.Warningf("[runner] failed to remove %s: %v", dir, err)
			}
		}()
		o.sessionDir = dir
		klog.V(2).Infof("[runner] run %s keeps sessions in %s", report.ID, dir)
	}

	results := map[string]*TestResult{}

	for try := 0; try <= o.Retries; try++ {
		if try > 0 {
			var names []string
			for _, r := range results {
				if r.Status == StatusFailed {
					names = append(names, r.Name)
				}
			}
			if len(names) == 0 {
				break
			}
			sort.Strings(names)
			pattern = exactPattern(dedupe(names))
			klog.Infof("[runner] retry %d/%d: %s", try, o.Retries, strings.Join(names, ", "))
		}

		a, err := s.attempt(ctx, o, pattern)
		if err != nil {
			return nil, err
		}
		merge(results, a, try)
		report.BuildErrors = nil
		for _, pkg := range a.brokenPackages() {
			report.BuildErrors = append(report.BuildErrors, "package "+pkg+" failed")
		}
		if len(report.BuildErrors) > 0 {
			report.BuildErrors = append(report.BuildErrors, a.build...)
		}
	}

	for _, r := range results {
		report.Tests = append(report.Tests, *r)
	}
	report.sortTests()
	report.FinishedAt = s.now()

	c := report.Counts()
	klog.Infof("[runner] %s: %d passed, %d failed, %d flaky, %d skipped in %s",
		report.ID, c[StatusPassed], c[StatusFailed], c[StatusFlaky], c[StatusSkipped], report.Duration().Round(time.Second))
	return report, nil
}

func (s *Suite) attempt(ctx context.Context, o Options, pattern string) (*attempt, error) {
	inv := Invocation{Args: o.args(pattern), Env: o.Env(), Dir: o.Dir}
	klog.V(2).Infof("[runner] go %s", strings.Join(inv.Args, " "))

	var buf bytes.Buffer
	var out io.Writer = &buf
	if o.Output != nil {
		out = io.MultiWriter(&buf, o.Output)
	}
	execErr := s.exec.Exec(ctx, inv, out)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	a, err := parseEvents(&buf)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read go test output")
	}

	var exitErr *exec.ExitError
	if execErr != nil && !errors.As(execErr, &exitErr) && len(a.tests) == 0 {
		return nil, errors.Wrap(execErr, "failed to run go test")
	}
	return a, nil
}

// merge folds one attempt into the accumulated results.
func merge(results map[string]*TestResult, a *attempt, try int) {
	for _, id := range a.order {
		tr := a.tests[id]
		r, ok := results[id]
		if !ok {
			r = &TestResult{Package: tr.pkg, Name: tr.name}
			results[id] = r
		}
		r.Attempts++
		r.Duration += tr.elapsed

		switch tr.action {
		case "pass":
			if try > 0 && r.Status == StatusFailed {
				r.Status = StatusFlaky
			} else {
				r.Status = StatusPassed
			}
			r.Output = ""
		case "skip":
			r.Status = StatusSkipped
		default:
			r.Status = StatusFailed
			r.Output = strings.Join(tr.output, "\n")
		}
	}
}

func dedupe(names []string) []string {
	out := names[:0]
	for i, n := range names {
		if i == 0 || n != names[i-1] {
			out = append(out, n)
		}
	}
	return out
}

// trash empties each folder, keeping the folder itself.
func trash(dirs []string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", dir)
		}
		for _, e := range entries {
			if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
				return errors.Wrapf(err, "failed to trash %s", e.Name())
			}
		}
		klog.V(2).Infof("[runner] trashed %s", dir)
	}
	return nil
}
