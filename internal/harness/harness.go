// Package harness wires configuration, the session cache, the browser and the
// page catalog together for the CLI and the scenario tests.
package harness

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/saleor-qa/dashboard-e2e/internal/auth"
	"github.com/saleor-qa/dashboard-e2e/internal/browser"
	"github.com/saleor-qa/dashboard-e2e/internal/config"
	"github.com/saleor-qa/dashboard-e2e/internal/dashboard"
	"github.com/saleor-qa/dashboard-e2e/internal/saleor"
	"github.com/saleor-qa/dashboard-e2e/internal/session"
)

// Browser is what a login needs from a launched browser.
type Browser interface {
	session.Target
	auth.Driver
}

// OpenStore builds the session store selected by session.store.
func OpenStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	switch cfg.Session.Store {
	case "memory", "":
		return session.NewMemoryStore(), nil
	case "file", config.StoreRun:
		return session.NewFileStore(cfg.Session.Dir)
	case "redis":
		r := cfg.Session.Redis
		return session.NewRedisStore(ctx, session.RedisConfig{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
			Prefix:   r.Prefix,
			TTL:      r.TTL,
		})
	}
	return nil, errors.Errorf("unknown session store %q", cfg.Session.Store)
}

// Harness holds the process-wide pieces shared by every test of a run.
type Harness struct {
	Config  *config.Config
	Cache   *session.Cache
	Catalog *dashboard.Catalog
}

// New opens the configured store and loads the page catalog.
func New(ctx context.Context, cfg *config.Config) (*Harness, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open session store")
	}
	catalog, err := dashboard.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("[harness] session store %s, %d catalog pages", storeName(cfg), len(catalog.PageNames()))
	return &Harness{
		Config:  cfg,
		Cache:   session.NewCache(store),
		Catalog: catalog,
	}, nil
}

func storeName(cfg *config.Config) string {
	if cfg.Session.Store == "" {
		return "memory"
	}
	return cfg.Session.Store
}

// Close releases the session store when it holds a connection.
func (h *Harness) Close() error {
	if c, ok := h.Cache.Store().(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Launch starts a browser with the configured options.
func (h *Harness) Launch() (*browser.Session, error) {
	bs := browser.New(browser.OptionsFromConfig(h.Config))
	if err := bs.Launch(); err != nil {
		return nil, err
	}
	return bs, nil
}

// Login authenticates b under session.key. Setup runs only when no state is
// cached for the key. Restored state from a persistent store is checked
// against the dashboard, since it may have been captured by an earlier run.
func (h *Harness) Login(ctx context.Context, b Browser, deps auth.Deps) (session.Outcome, error) {
	p, err := auth.FromConfig(h.Config, deps)
	if err != nil {
		return 0, err
	}

	var opts []session.Option
	if h.Config.Session.IsPersistent() {
		marker := auth.MarkerFromConfig(h.Config.Auth.Marker)
		opts = append(opts, session.WithValidate(auth.CheckDashboard(b, h.Config.Suite.URL("/"), marker)))
	}

	outcome, err := h.Cache.Session(ctx, h.Config.Session.Key, b, auth.Setup(p, b), opts...)
	if err != nil {
		return outcome, err
	}
	klog.V(1).Infof("[harness] session %q %s via %s", h.Config.Session.Key, outcome, p.Name())
	return outcome, nil
}

// Dashboard returns page-level helpers bound to d.
func (h *Harness) Dashboard(d dashboard.Driver) *dashboard.Dashboard {
	return dashboard.New(d, h.Catalog, h.Config.Suite.BaseURL, h.Config.Timeouts.Command)
}

// Saleor returns an API client for suite.api_url.
func (h *Harness) Saleor() *saleor.Client {
	return saleor.NewClient(saleor.Config{
		Endpoint: h.Config.Suite.APIURL,
		Timeout:  h.Config.Timeouts.Request,
	})
}
