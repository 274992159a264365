package harness

import (
	"context"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/saleor-qa/dashboard-e2e/internal/config"
	"github.com/saleor-qa/dashboard-e2e/internal/history"
	"github.com/saleor-qa/dashboard-e2e/internal/runner"
)

// Publisher hands a finished run to every configured sink: report files, the
// metrics textfile and the run history.
type Publisher struct {
	cfg      *config.Config
	recorder *history.Recorder
	store    *history.Store
}

// NewPublisher opens the history database when history is enabled.
func NewPublisher(ctx context.Context, cfg *config.Config) (*Publisher, error) {
	p := &Publisher{cfg: cfg}
	if cfg.History.Enabled {
		store, err := history.Open(ctx, cfg.History.Driver, cfg.History.DSN)
		if err != nil {
			return nil, err
		}
		p.store = store
		p.recorder = history.NewRecorder(store)
	}
	return p, nil
}

// History returns the run history, nil when disabled.
func (p *Publisher) History() *history.Store {
	return p.store
}

// Close closes the history database.
func (p *Publisher) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}

// Publish writes the report and returns the paths of the written files. A
// failing sink does not stop the others; their errors are combined.
func (p *Publisher) Publish(ctx context.Context, report *runner.Report) ([]string, error) {
	var problems []string

	paths, err := report.Write(p.cfg.Results.Folder, p.cfg.Results.Formats)
	if err != nil {
		problems = append(problems, err.Error())
	}

	if p.cfg.Results.MetricsFile != "" {
		if err := runner.WriteMetrics(p.cfg.Results.MetricsFile, report); err != nil {
			problems = append(problems, err.Error())
		} else {
			paths = append(paths, p.cfg.Results.MetricsFile)
		}
	}

	if err := p.recorder.Record(ctx, report); err != nil {
		problems = append(problems, errors.Wrap(err, "failed to record run").Error())
	} else if p.recorder != nil {
		klog.V(1).Infof("[history] recorded run %s", report.ID)
	}

	if len(problems) > 0 {
		return paths, errors.Errorf("publishing run %s: %v", report.ID, problems)
	}
	return paths, nil
}
