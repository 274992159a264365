package runner

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// WriteMetrics writes the run outcome in the node_exporter textfile format.
func WriteMetrics(path string, r *Report) error {
	reg := prometheus.NewRegistry()

	tests := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dashboard_e2e_tests",
		Help: "Tests of the last run by final status",
	}, []string{"status"})
	attempts := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dashboard_e2e_test_attempts",
		Help: "Attempts each test needed in the last run",
	}, []string{"test"})
	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_e2e_run_duration_seconds",
		Help: "Wall time of the last run",
	})
	finished := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_e2e_last_run_timestamp_seconds",
		Help: "Unix time the last run finished",
	})
	success := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_e2e_last_run_success",
		Help: "1 when the last run had no failures",
	})
	reg.MustRegister(tests, attempts, duration, finished, success)

	for status, n := range r.Counts() {
		tests.WithLabelValues(string(status)).Set(float64(n))
	}
	for _, t := range r.Tests {
		attempts.WithLabelValues(t.Name).Set(float64(t.Attempts))
	}
	duration.Set(r.Duration().Seconds())
	finished.Set(float64(r.FinishedAt.Unix()))
	if r.Passed() {
		success.Set(1)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", filepath.Dir(path))
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return errors.Wrap(err, "failed to write metrics")
	}
	return nil
}
