package auth

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/saleor-qa/dashboard-e2e/internal/saleor"
	"github.com/saleor-qa/dashboard-e2e/internal/session"
)

// TokenIssuer creates API tokens.
type TokenIssuer interface {
	TokenCreate(ctx context.Context, email, password string) (*saleor.Tokens, error)
}

// TokenLogin skips the hosted login page: it obtains tokens from the API and
// seeds them into the dashboard's localStorage before opening it.
type TokenLogin struct {
	Client       TokenIssuer
	Email        string
	Password     string
	DashboardURL string
	RefreshKey   string
	AccessKey    string
	Marker       Marker
}

func (l *TokenLogin) Name() string { return "token" }

func (l *TokenLogin) Login(ctx context.Context, d Driver) error {
	loader, ok := d.(StateLoader)
	if !ok {
		return errors.New("driver cannot load browser state")
	}

	tokens, err := l.Client.TokenCreate(ctx, l.Email, l.Password)
	if err != nil {
		return err
	}
	if claims, err := saleor.ParseClaims(tokens.RefreshToken, time.Now()); err == nil && claims.ExpiresAt != nil {
		klog.V(2).Infof("[auth] refresh token for %s valid until %s", claims.Email, claims.ExpiresAt.Time.Format(time.RFC3339))
	}

	state, err := l.seed(tokens)
	if err != nil {
		return err
	}
	if err := loader.Restore(ctx, state); err != nil {
		return err
	}
	if err := d.Visit(ctx, l.DashboardURL); err != nil {
		return err
	}
	return WaitForDashboard(ctx, d, l.Marker)
}

func (l *TokenLogin) seed(tokens *saleor.Tokens) (*session.State, error) {
	origin, err := originOf(l.DashboardURL)
	if err != nil {
		return nil, err
	}
	state := &session.State{}
	if l.RefreshKey != "" && tokens.RefreshToken != "" {
		state.SetLocalStorage(origin, l.RefreshKey, tokens.RefreshToken)
	}
	if l.AccessKey != "" && tokens.Token != "" {
		state.SetLocalStorage(origin, l.AccessKey, tokens.Token)
	}
	return state, nil
}

// StateFileLogin restores a pre-provisioned storage-state file, e.g. one
// exported by `dashboard-e2e login` on a workstation.
type StateFileLogin struct {
	Path         string
	DashboardURL string
	Marker       Marker
}

func (l *StateFileLogin) Name() string { return "state" }

func (l *StateFileLogin) Login(ctx context.Context, d Driver) error {
	loader, ok := d.(StateLoader)
	if !ok {
		return errors.New("driver cannot load browser state")
	}

	data, err := os.ReadFile(l.Path)
	if err != nil {
		return errors.Wrapf(err, "failed to read state file %s", l.Path)
	}
	state, err := session.ValidateDocument(data)
	if err != nil {
		return errors.Wrapf(err, "state file %s", l.Path)
	}
	if err := loader.Restore(ctx, state); err != nil {
		return err
	}
	if err := d.Visit(ctx, l.DashboardURL); err != nil {
		return err
	}
	return WaitForDashboard(ctx, d, l.Marker)
}
