package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saleor-qa/dashboard-e2e/internal/config"
)

type namedProvider string

func (p namedProvider) Name() string                       { return string(p) }
func (p namedProvider) Login(context.Context, Driver) error { return nil }

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"interactive", "password", "state", "token"}, Modes())

	assert.Error(t, Register("", func(*config.Config, Deps) (Provider, error) { return nil, nil }))
	assert.Error(t, Register("kiosk", nil))
	assert.Error(t, Register("password", newPasswordLogin))

	require.NoError(t, Register("kiosk", func(*config.Config, Deps) (Provider, error) {
		return namedProvider("kiosk"), nil
	}))
	t.Cleanup(func() {
		registryMu.Lock()
		delete(factories, "kiosk")
		registryMu.Unlock()
	})

	cfg := config.Defaults()
	cfg.Auth.Mode = "kiosk"
	p, err := FromConfig(cfg, Deps{})
	require.NoError(t, err)
	assert.Equal(t, "kiosk", p.Name())

	cfg.Auth.Mode = ""
	p, err = FromConfig(cfg, Deps{})
	require.NoError(t, err)
	assert.Equal(t, "interactive", p.Name())
}
