// Package helpers gives scenario tests a logged-in browser. One harness, and
// with it one session cache, is shared by every test of the process.
package helpers

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saleor-qa/dashboard-e2e/internal/config"
	"github.com/saleor-qa/dashboard-e2e/internal/harness"
)

var (
	sharedOnce sync.Once
	shared     *harness.Harness
	sharedErr  error
)

// LoadConfig reads the file the runner hands over in SALEOR_E2E_CONFIG_FILE,
// falling back to suite.yaml at the repository root.
func LoadConfig() (*config.Config, error) {
	if path := os.Getenv(config.EnvPrefix + "_CONFIG_FILE"); path != "" {
		if err := config.LoadFromFile(path); err != nil {
			return nil, err
		}
		return config.Get(), nil
	}
	if err := config.Load("../.."); err != nil {
		return nil, err
	}
	return config.Get(), nil
}

// Harness returns the process-wide harness.
func Harness(t testing.TB) *harness.Harness {
	t.Helper()
	sharedOnce.Do(func() {
		cfg, err := LoadConfig()
		if err != nil {
			sharedErr = err
			return
		}
		shared, sharedErr = harness.New(context.Background(), cfg)
	})
	require.NoError(t, sharedErr, "failed to build the test harness")
	return shared
}

// Mode is the mode the runner started the tests in; run when started by hand.
func Mode() config.Mode {
	if m := config.Mode(os.Getenv(config.EnvPrefix + "_MODE")); m == config.ModeOpen {
		return m
	}
	return config.ModeRun
}
