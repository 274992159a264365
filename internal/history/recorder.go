package history

import (
	"context"
	"strings"

	"github.com/saleor-qa/dashboard-e2e/internal/runner"
)

// Recorder stores suite reports.
type Recorder struct {
	store *Store
}

// NewRecorder returns nil when store is nil; a nil Recorder records nothing.
func NewRecorder(store *Store) *Recorder {
	if store == nil {
		return nil
	}
	return &Recorder{store: store}
}

// Record saves the report as a run.
func (r *Recorder) Record(ctx context.Context, report *runner.Report) error {
	if r == nil || report == nil {
		return nil
	}
	run, results := FromReport(report)
	return r.store.Save(ctx, run, results)
}

// FromReport converts a runner report into rows.
func FromReport(report *runner.Report) (Run, []Result) {
	c := report.Counts()
	areas := strings.Join(report.Areas, ",")
	if len(areas) > 255 {
		areas = areas[:255]
	}
	run := Run{
		ID:         report.ID,
		Mode:       string(report.Mode),
		Areas:      areas,
		StartedAt:  report.StartedAt.UnixMilli(),
		FinishedAt: report.FinishedAt.UnixMilli(),
		Passed:     c[runner.StatusPassed],
		Failed:     c[runner.StatusFailed],
		Flaky:      c[runner.StatusFlaky],
		Skipped:    c[runner.StatusSkipped],
	}

	results := make([]Result, 0, len(report.Tests))
	for _, t := range report.Tests {
		results = append(results, Result{
			RunID:      report.ID,
			Package:    t.Package,
			TestName:   t.Name,
			Status:     string(t.Status),
			Attempts:   t.Attempts,
			DurationMS: t.Duration.Milliseconds(),
		})
	}
	return run, results
}
