package e2e

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saleor-qa/dashboard-e2e/internal/runner"
	"github.com/saleor-qa/dashboard-e2e/tests/e2e/helpers"
)

// TestSetup verifies the environment the scenarios run in without starting a
// browser.
func TestSetup(t *testing.T) {
	cfg, err := helpers.LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	t.Logf("Base URL: %s", cfg.Suite.BaseURL)
	t.Logf("Mode: %s, auth: %s, session store: %s", helpers.Mode(), cfg.Auth.Mode, cfg.Session.Store)

	h := helpers.Harness(t)
	pages := map[string]bool{}
	for _, name := range h.Catalog.PageNames() {
		pages[name] = true
	}
	for _, a := range runner.Areas() {
		page := a.Name
		if page == "auth" || page == "signup" {
			page = "login"
		}
		assert.True(t, pages[page], "no catalog page for area %s", a.Name)
	}
}
