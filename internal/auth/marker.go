package auth

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/saleor-qa/dashboard-e2e/internal/config"
)

// ErrMarkerTimeout means the dashboard marker did not appear within its bound.
var ErrMarkerTimeout = errors.New("authenticated dashboard marker not reached")

// Marker describes the observable proof of a completed login: the URL contains
// a fragment and a landmark element is visible.
type Marker struct {
	URLContains     string
	Selector        string
	URLTimeout      time.Duration
	SelectorTimeout time.Duration
	Settle          time.Duration
}

// MarkerFromConfig converts auth.marker settings.
func MarkerFromConfig(c config.MarkerConfig) Marker {
	return Marker{
		URLContains:     c.URLContains,
		Selector:        c.Selector,
		URLTimeout:      c.URLTimeout,
		SelectorTimeout: c.SelectorTimeout,
		Settle:          c.Settle,
	}
}

// WaitForDashboard waits for the URL fragment, then the landmark element, then
// the settle delay. It is not retried.
func WaitForDashboard(ctx context.Context, d Driver, m Marker) error {
	if m.URLContains != "" {
		if err := d.WaitURLContains(ctx, m.URLContains, m.URLTimeout); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrapf(ErrMarkerTimeout, "url never contained %q within %v: %v", m.URLContains, m.URLTimeout, err)
		}
	}
	if m.Selector != "" {
		if err := d.WaitVisible(ctx, m.Selector, m.SelectorTimeout); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrapf(ErrMarkerTimeout, "%s not visible within %v: %v", m.Selector, m.SelectorTimeout, err)
		}
	}
	klog.V(2).Infof("[auth] dashboard reached at %s", d.URL())

	if m.Settle <= 0 {
		return nil
	}
	select {
	case <-time.After(m.Settle):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CheckDashboard returns a validation hook that opens dashboardURL and waits
// for the marker, proving a restored session still grants access.
func CheckDashboard(d Driver, dashboardURL string, m Marker) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := d.Visit(ctx, dashboardURL); err != nil {
			return err
		}
		m.Settle = 0
		return WaitForDashboard(ctx, d, m)
	}
}
