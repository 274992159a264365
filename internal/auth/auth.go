// Package auth logs a browser into the Saleor dashboard. Providers are the
// setup procedures handed to the session cache.
package auth

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/saleor-qa/dashboard-e2e/internal/config"
	"github.com/saleor-qa/dashboard-e2e/internal/saleor"
	"github.com/saleor-qa/dashboard-e2e/internal/session"
)

// Driver is the browser surface login providers need.
type Driver interface {
	Visit(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	WaitURLContains(ctx context.Context, fragment string, timeout time.Duration) error
	URL() string
}

// Pauser is implemented by drivers that can hand control to the operator.
type Pauser interface {
	Pause(ctx context.Context) error
}

// StateLoader is implemented by drivers that can load captured browser state.
type StateLoader interface {
	Restore(ctx context.Context, state *session.State) error
}

// Provider performs one way of logging in.
type Provider interface {
	Name() string
	Login(ctx context.Context, d Driver) error
}

// Setup adapts a provider to the session cache.
func Setup(p Provider, d Driver) session.SetupFunc {
	return func(ctx context.Context) error {
		if err := p.Login(ctx, d); err != nil {
			return errors.Wrapf(err, "%s login", p.Name())
		}
		return nil
	}
}

// Deps are collaborators FromConfig cannot build from configuration alone.
type Deps struct {
	// Client issues API tokens for token mode. Built from suite.api_url when nil.
	Client TokenIssuer
	// In and Out are the terminal used by the prompt resumer.
	In  io.Reader
	Out io.Writer
}

// FromConfig builds the provider registered for auth.mode.
func FromConfig(cfg *config.Config, deps Deps) (Provider, error) {
	mode := cfg.Auth.Mode
	if mode == "" {
		mode = "interactive"
	}
	factory, ok := lookupFactory(mode)
	if !ok {
		return nil, errors.Errorf("unknown auth mode %q (known: %s)", cfg.Auth.Mode, strings.Join(Modes(), ", "))
	}
	return factory(cfg, deps)
}

func newSocialLogin(cfg *config.Config, deps Deps) (Provider, error) {
	a := cfg.Auth
	resumer, err := resumerFor(a.Resume, deps)
	if err != nil {
		return nil, err
	}
	return &SocialLogin{
		LoginURL:      a.LoginURL,
		Button:        a.SocialButton,
		ButtonTimeout: a.SocialTimeout,
		Resumer:       resumer,
		Marker:        MarkerFromConfig(a.Marker),
	}, nil
}

func newPasswordLogin(cfg *config.Config, _ Deps) (Provider, error) {
	a := cfg.Auth
	if a.Email == "" || a.Password == "" {
		return nil, errors.New("password login needs auth.email and auth.password")
	}
	return &PasswordLogin{
		LoginURL:   a.LoginURL,
		Email:      a.Email,
		Password:   a.Password,
		TOTPSecret: a.TOTPSecret,
		Selectors:  DefaultPasswordSelectors(),
		Marker:     MarkerFromConfig(a.Marker),
	}, nil
}

func newTokenLogin(cfg *config.Config, deps Deps) (Provider, error) {
	a := cfg.Auth
	if a.Email == "" || a.Password == "" {
		return nil, errors.New("token login needs auth.email and auth.password")
	}
	client := deps.Client
	if client == nil {
		client = saleor.NewClient(saleor.Config{
			Endpoint: cfg.Suite.APIURL,
			Timeout:  cfg.Timeouts.Request,
		})
	}
	return &TokenLogin{
		Client:       client,
		Email:        a.Email,
		Password:     a.Password,
		DashboardURL: cfg.Suite.URL("/"),
		RefreshKey:   a.TokenKeys.Refresh,
		AccessKey:    a.TokenKeys.Access,
		Marker:       MarkerFromConfig(a.Marker),
	}, nil
}

func newStateFileLogin(cfg *config.Config, _ Deps) (Provider, error) {
	if cfg.Auth.StateFile == "" {
		return nil, errors.New("state login needs auth.state_file")
	}
	return &StateFileLogin{
		Path:         cfg.Auth.StateFile,
		DashboardURL: cfg.Suite.URL("/"),
		Marker:       MarkerFromConfig(cfg.Auth.Marker),
	}, nil
}

func resumerFor(name string, deps Deps) (Resumer, error) {
	switch name {
	case "inspector", "":
		return InspectorResumer{}, nil
	case "prompt":
		in, out := deps.In, deps.Out
		if in == nil {
			in = os.Stdin
		}
		if out == nil {
			out = os.Stderr
		}
		return &PromptResumer{In: in, Out: out}, nil
	}
	return nil, errors.Errorf("unknown resume mode %q", name)
}

// originOf returns scheme://host of rawURL.
func originOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrapf(err, "invalid url %q", rawURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.Errorf("url %q is not absolute", rawURL)
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), nil
}
