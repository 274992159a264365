package runner

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/saleor-qa/dashboard-e2e/internal/config"
)

// Task is a job the Scheduler runs on a cron schedule.
type Task interface {
	Name() string
	// Schedule is a standard five field cron expression or a descriptor
	// such as "@daily".
	Schedule() string
	Run(ctx context.Context) error
	// Timeout bounds one execution; zero means unbounded.
	Timeout() time.Duration
}

// TaskRegistry holds all registered tasks.
type TaskRegistry struct {
	tasks map[string]Task
}

func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{
		tasks: make(map[string]Task),
	}
}

// Register adds a task, rejecting duplicate names.
func (r *TaskRegistry) Register(task Task) error {
	if _, exists := r.tasks[task.Name()]; exists {
		return errors.Errorf("task %q already registered", task.Name())
	}
	r.tasks[task.Name()] = task
	return nil
}

func (r *TaskRegistry) Get(name string) (Task, bool) {
	task, exists := r.tasks[name]
	return task, exists
}

// Names returns the registered task names in order.
func (r *TaskRegistry) Names() []string {
	names := make([]string, 0, len(r.tasks))
	for n := range r.tasks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RunFunc executes the suite once and hands back its report.
type RunFunc func(ctx context.Context, areas []string) (*Report, error)

// SuiteTask is a scheduled headless suite run.
type SuiteTask struct {
	job config.JobConfig
	run RunFunc
}

// NewSuiteTask wraps a configured job.
func NewSuiteTask(job config.JobConfig, run RunFunc) *SuiteTask {
	return &SuiteTask{job: job, run: run}
}

func (t *SuiteTask) Name() string           { return t.job.Name }
func (t *SuiteTask) Schedule() string       { return t.job.Cron }
func (t *SuiteTask) Timeout() time.Duration { return t.job.Timeout }

func (t *SuiteTask) Run(ctx context.Context) error {
	report, err := t.run(ctx, t.job.Areas)
	if err != nil {
		return err
	}
	if !report.Passed() {
		c := report.Counts()
		return errors.Errorf("run %s: %d failed", report.ID, c[StatusFailed])
	}
	return nil
}
