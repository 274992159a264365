package dashboard

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Driver is the browser surface page actions need.
type Driver interface {
	Visit(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	Choose(ctx context.Context, selector, option string) error
	SetChecked(ctx context.Context, selector string, checked bool) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	ExpectContains(ctx context.Context, selector, text string, timeout time.Duration) error
}

// Dashboard performs catalog-named actions on dashboard pages.
type Dashboard struct {
	driver  Driver
	catalog *Catalog
	baseURL string
	timeout time.Duration
}

// New creates a Dashboard. timeout bounds assertions; zero uses the driver
// default.
func New(d Driver, c *Catalog, baseURL string, timeout time.Duration) *Dashboard {
	return &Dashboard{driver: d, catalog: c, baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

// Catalog returns the catalog in use.
func (d *Dashboard) Catalog() *Catalog {
	return d.catalog
}

// URL resolves a route against the base URL; absolute routes are kept.
func (d *Dashboard) URL(route string) string {
	if strings.HasPrefix(route, "http://") || strings.HasPrefix(route, "https://") {
		return route
	}
	return d.baseURL + "/" + strings.TrimLeft(route, "/")
}

// Open visits the page route and waits for its heading when one is known.
func (d *Dashboard) Open(ctx context.Context, page string) error {
	p, err := d.catalog.Page(page)
	if err != nil {
		return err
	}
	klog.V(3).Infof("[dashboard] open %s", page)
	if err := d.driver.Visit(ctx, d.URL(p.Route)); err != nil {
		return err
	}
	if p.Heading == "" {
		return nil
	}
	return d.driver.ExpectContains(ctx, d.catalog.Common.Heading, p.Heading, d.timeout)
}

// Click clicks a named control of page.
func (d *Dashboard) Click(ctx context.Context, page, control string) error {
	sel, err := d.catalog.Control(page, control)
	if err != nil {
		return err
	}
	return d.driver.Click(ctx, sel)
}

// Fill types value into a named field of page.
func (d *Dashboard) Fill(ctx context.Context, page, field, value string) error {
	sel, err := d.catalog.Field(page, field)
	if err != nil {
		return err
	}
	return d.driver.Fill(ctx, sel, value)
}

// Choose picks option in a named dropdown or autocomplete of page.
func (d *Dashboard) Choose(ctx context.Context, page, field, option string) error {
	sel, err := d.catalog.Field(page, field)
	if err != nil {
		return err
	}
	return d.driver.Choose(ctx, sel, option)
}

// Check ticks a named checkbox or radio of page.
func (d *Dashboard) Check(ctx context.Context, page, field string) error {
	return d.setChecked(ctx, page, field, true)
}

// Uncheck clears a named checkbox of page.
func (d *Dashboard) Uncheck(ctx context.Context, page, field string) error {
	return d.setChecked(ctx, page, field, false)
}

func (d *Dashboard) setChecked(ctx context.Context, page, field string, checked bool) error {
	sel, err := d.catalog.Field(page, field)
	if err != nil {
		return err
	}
	return d.driver.SetChecked(ctx, sel, checked)
}

// Visible waits for a named field or control of page to be shown.
func (d *Dashboard) Visible(ctx context.Context, page, name string) error {
	sel, err := d.catalog.Field(page, name)
	if errors.Is(err, ErrUnknownEntry) {
		sel, err = d.catalog.Control(page, name)
	}
	if err != nil {
		return err
	}
	return d.driver.WaitVisible(ctx, sel, d.timeout)
}

// Save clicks the save button of the action bar.
func (d *Dashboard) Save(ctx context.Context) error {
	return d.driver.Click(ctx, d.catalog.Common.Save)
}

// Confirm clicks the confirm button of a modal.
func (d *Dashboard) Confirm(ctx context.Context) error {
	return d.driver.Click(ctx, d.catalog.Common.Confirm)
}

// OpenFirstRow opens the first entry of a list page.
func (d *Dashboard) OpenFirstRow(ctx context.Context) error {
	return d.driver.Click(ctx, d.catalog.Common.FirstRow)
}

// ExpectSuccess waits for a success toast showing the named message.
func (d *Dashboard) ExpectSuccess(ctx context.Context, page, message string) error {
	return d.expect(ctx, d.catalog.Common.SuccessToast, page, message)
}

// ExpectError waits for an error alert showing the named message.
func (d *Dashboard) ExpectError(ctx context.Context, page, message string) error {
	return d.expect(ctx, d.catalog.Common.ErrorAlert, page, message)
}

// ExpectFieldError waits for a field helper text with the named shared
// message, e.g. "required".
func (d *Dashboard) ExpectFieldError(ctx context.Context, message string) error {
	text, ok := d.catalog.Messages[message]
	if !ok {
		return errors.Wrapf(ErrUnknownEntry, "message %q", message)
	}
	return d.driver.ExpectContains(ctx, d.catalog.Common.FieldError, text, d.timeout)
}

// ExpectMessage waits for the named message of page anywhere on screen.
func (d *Dashboard) ExpectMessage(ctx context.Context, page, message string) error {
	return d.expect(ctx, "body", page, message)
}

// ExpectText waits for literal text anywhere on screen.
func (d *Dashboard) ExpectText(ctx context.Context, text string) error {
	return d.driver.ExpectContains(ctx, "body", text, d.timeout)
}

func (d *Dashboard) expect(ctx context.Context, selector, page, message string) error {
	text, err := d.catalog.Message(page, message)
	if err != nil {
		return err
	}
	return d.driver.ExpectContains(ctx, selector, text, d.timeout)
}
