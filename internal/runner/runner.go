// Package runner drives the scenario tests through go test: run and open
// modes, flat retries of failed tests, run reports and scheduled runs.
package runner

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"k8s.io/klog/v2"
)

// Scheduler executes registered tasks on their cron schedules.
type Scheduler struct {
	cron     *cron.Cron
	registry *TaskRegistry
	mu       sync.Mutex
	entries  map[string]cron.EntryID
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler. A task still running when its next
// slot comes up is skipped for that slot.
func NewScheduler(registry *TaskRegistry) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		registry: registry,
		entries:  make(map[string]cron.EntryID),
	}
}

// Validate parses every task schedule without starting anything.
func (s *Scheduler) Validate() error {
	for _, name := range s.registry.Names() {
		task, _ := s.registry.Get(name)
		if _, err := cron.ParseStandard(task.Schedule()); err != nil {
			return errors.Wrapf(err, "task %s", name)
		}
	}
	return nil
}

// Start schedules every task and blocks until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	klog.Info("[scheduler] starting")

	for _, name := range s.registry.Names() {
		task, _ := s.registry.Get(name)
		klog.Infof("[scheduler] registering %s with schedule %q", name, task.Schedule())

		id, err := s.cron.AddFunc(task.Schedule(), func() {
			_ = s.executeTask(ctx, task)
		})
		if err != nil {
			return errors.Wrapf(err, "failed to schedule task %s", name)
		}
		s.mu.Lock()
		s.entries[name] = id
		s.mu.Unlock()
	}

	s.cron.Start()
	<-ctx.Done()
	s.Stop()
	return nil
}

// Next returns when name runs next. It is only known once Start scheduled
// the task.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	e := s.cron.Entry(id)
	return e.Next, e.Valid()
}

func (s *Scheduler) executeTask(ctx context.Context, task Task) error {
	s.wg.Add(1)
	defer s.wg.Done()

	taskCtx := ctx
	if task.Timeout() > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, task.Timeout())
		defer cancel()
	}

	klog.Infof("[scheduler] executing %s", task.Name())

	start := time.Now()
	err := task.Run(taskCtx)
	duration := time.Since(start)

	if err != nil {
		klog.Errorf("[scheduler] %s failed after %v: %v", task.Name(), duration, err)
	} else {
		klog.Infof("[scheduler] %s completed in %v", task.Name(), duration)
	}
	return err
}

// RunNow executes the named task immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	task, ok := s.registry.Get(name)
	if !ok {
		return errors.Errorf("unknown task %q", name)
	}
	return s.executeTask(ctx, task)
}

// Stop stops scheduling and waits for running tasks.
func (s *Scheduler) Stop() {
	klog.Info("[scheduler] stopping")
	done := s.cron.Stop()
	s.wg.Wait()
	<-done.Done()
	klog.Info("[scheduler] stopped")
}
