package browser

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/playwright-community/playwright-go"
	"k8s.io/klog/v2"
)

// Visit navigates to an absolute URL.
func (s *Session) Visit(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	klog.V(3).Infof("[browser] visit %s", url)
	_, err := s.Page.Goto(url)
	if err != nil && strings.Contains(err.Error(), "ERR_TOO_MANY_REDIRECTS") {
		return errors.Wrapf(err, "redirect loop navigating to %s (check base_url and login redirect)", url)
	}
	return errors.Wrapf(err, "failed to visit %s", url)
}

// Click clicks the first element matching selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Wrapf(s.Page.Locator(selector).First().Click(), "click %s", selector)
}

// Fill replaces the value of an input.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Wrapf(s.Page.Locator(selector).First().Fill(value), "fill %s", selector)
}

// Choose opens a combobox or autocomplete and picks the option whose
// accessible name is option. Native selects are handled directly.
func (s *Session) Choose(ctx context.Context, selector, option string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	field := s.Page.Locator(selector).First()

	tag, err := field.Evaluate("el => el.tagName.toLowerCase()", nil)
	if err == nil && tag == "select" {
		_, err = field.SelectOption(playwright.SelectOptionValues{Labels: &[]string{option}})
		return errors.Wrapf(err, "select %q in %s", option, selector)
	}

	if err := field.Click(); err != nil {
		return errors.Wrapf(err, "open %s", selector)
	}
	opt := s.Page.GetByRole("option", playwright.PageGetByRoleOptions{Name: option}).First()
	return errors.Wrapf(opt.Click(), "choose %q in %s", option, selector)
}

// SetChecked checks or unchecks a checkbox or switch.
func (s *Session) SetChecked(ctx context.Context, selector string, checked bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	box := s.Page.Locator(selector).First()
	if checked {
		return errors.Wrapf(box.Check(), "check %s", selector)
	}
	return errors.Wrapf(box.Uncheck(), "uncheck %s", selector)
}

// WaitVisible waits for selector to become visible. A zero timeout uses the
// context default.
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opts := playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible}
	if timeout > 0 {
		opts.Timeout = playwright.Float(millis(timeout))
	}
	return errors.Wrapf(s.Page.Locator(selector).First().WaitFor(opts), "wait for %s", selector)
}

// WaitURLContains waits until the page URL contains fragment.
func (s *Session) WaitURLContains(ctx context.Context, fragment string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opts := playwright.PageWaitForURLOptions{}
	if timeout > 0 {
		opts.Timeout = playwright.Float(millis(timeout))
	}
	pattern := regexp.MustCompile(regexp.QuoteMeta(fragment))
	return errors.Wrapf(s.Page.WaitForURL(pattern, opts), "wait for url containing %q (at %s)", fragment, s.Page.URL())
}

// ExpectContains waits for an element matching selector that contains text.
func (s *Session) ExpectContains(ctx context.Context, selector, text string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := s.Page.Locator(selector)
	if text != "" {
		loc = loc.Filter(playwright.LocatorFilterOptions{HasText: text})
	}
	opts := playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible}
	if timeout > 0 {
		opts.Timeout = playwright.Float(millis(timeout))
	}
	return errors.Wrapf(loc.First().WaitFor(opts), "expected %s containing %q", selector, text)
}

// Pause opens the Playwright inspector and blocks until the operator resumes.
// Cancelling ctx stops waiting; the paused page is left as is.
func (s *Session) Pause(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- s.Page.Pause()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// URL returns the current page URL.
func (s *Session) URL() string {
	if s.Page == nil {
		return ""
	}
	return s.Page.URL()
}
