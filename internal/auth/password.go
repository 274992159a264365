package auth

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/pquerna/otp/totp"
)

// PasswordSelectors locate the Saleor Cloud (Keycloak) login form.
type PasswordSelectors struct {
	Username  string
	Password  string
	Submit    string
	OTP       string
	OTPSubmit string
}

// DefaultPasswordSelectors returns the selectors of the hosted login page.
func DefaultPasswordSelectors() PasswordSelectors {
	return PasswordSelectors{
		Username:  `[data-test="username"]`,
		Password:  `[data-test="password"]`,
		Submit:    `[data-test="submit-button"]`,
		OTP:       "#otp",
		OTPSubmit: "#kc-login",
	}
}

// PasswordLogin fills the login form, answers the TOTP challenge when a
// secret is configured and waits for the dashboard.
type PasswordLogin struct {
	LoginURL   string
	Email      string
	Password   string
	TOTPSecret string
	Selectors  PasswordSelectors
	Marker     Marker

	// Now is used for TOTP codes; time.Now when nil.
	Now func() time.Time
}

func (p *PasswordLogin) Name() string { return "password" }

func (p *PasswordLogin) Login(ctx context.Context, d Driver) error {
	sel := p.Selectors
	if err := d.Visit(ctx, p.LoginURL); err != nil {
		return err
	}
	if err := d.Fill(ctx, sel.Username, p.Email); err != nil {
		return err
	}
	if err := d.Fill(ctx, sel.Password, p.Password); err != nil {
		return err
	}
	if err := d.Click(ctx, sel.Submit); err != nil {
		return err
	}

	if p.TOTPSecret != "" {
		code, err := p.code()
		if err != nil {
			return err
		}
		if err := d.Fill(ctx, sel.OTP, code); err != nil {
			return errors.Wrap(err, "one-time code field not shown")
		}
		if err := d.Click(ctx, sel.OTPSubmit); err != nil {
			return err
		}
	}

	return WaitForDashboard(ctx, d, p.Marker)
}

func (p *PasswordLogin) code() (string, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	code, err := totp.GenerateCode(p.TOTPSecret, now())
	if err != nil {
		return "", errors.Wrap(err, "failed to generate one-time code")
	}
	return code, nil
}
