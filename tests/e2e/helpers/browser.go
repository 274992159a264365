package helpers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saleor-qa/dashboard-e2e/internal/auth"
	"github.com/saleor-qa/dashboard-e2e/internal/browser"
	"github.com/saleor-qa/dashboard-e2e/internal/dashboard"
)

// Browser is a launched browser with page helpers bound to it.
type Browser struct {
	*browser.Session
	Dashboard *dashboard.Dashboard
	Ctx       context.Context
}

// NewBrowser launches a browser that is closed, with a failure screenshot,
// when the test ends.
func NewBrowser(t *testing.T) *Browser {
	t.Helper()
	h := Harness(t)
	bs, err := h.Launch()
	require.NoError(t, err, "failed to launch browser")
	t.Cleanup(func() { bs.Close(t) })

	return &Browser{
		Session:   bs,
		Dashboard: h.Dashboard(bs),
		Ctx:       context.Background(),
	}
}

// Restore launches a browser holding the authenticated dashboard session.
// The first call of the process logs in; every later call restores the
// captured state.
func Restore(t *testing.T) *Browser {
	t.Helper()
	b := NewBrowser(t)
	outcome, err := Harness(t).Login(b.Ctx, b.Session, auth.Deps{})
	require.NoError(t, err, "failed to establish the dashboard session")
	t.Logf("dashboard session %s", outcome)
	return b
}

// Open restores the session and opens a catalog page.
func Open(t *testing.T, page string) *Browser {
	t.Helper()
	b := Restore(t)
	require.NoError(t, b.Dashboard.Open(b.Ctx, page))
	return b
}
