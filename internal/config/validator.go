package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	validStores      = []string{"memory", "file", "redis", StoreRun}
	validAuthModes   = []string{"interactive", "password", "token", "state"}
	validResumeModes = []string{"inspector", "prompt"}
	validFormats     = []string{"markdown", "html", "xlsx"}
	validDrivers     = []string{"sqlite3", "postgres", "mysql"}
)

// Validate checks the configuration for values the suite cannot run with.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if u, err := url.Parse(c.Suite.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		add("suite.base_url must be an absolute URL, got %q", c.Suite.BaseURL)
	}
	if c.Session.Key == "" {
		add("session.key must not be empty")
	}
	if !oneOf(c.Session.Store, validStores) {
		add("session.store must be one of %s, got %q", strings.Join(validStores, ", "), c.Session.Store)
	}
	if c.Session.IsFileBacked() && c.Session.Dir == "" {
		add("session.dir is required for the %s store", c.Session.Store)
	}
	if !oneOf(c.Auth.Mode, validAuthModes) {
		add("auth.mode must be one of %s, got %q", strings.Join(validAuthModes, ", "), c.Auth.Mode)
	}
	if !oneOf(c.Auth.Resume, validResumeModes) {
		add("auth.resume must be one of %s, got %q", strings.Join(validResumeModes, ", "), c.Auth.Resume)
	}
	if c.Retries.RunMode < 0 || c.Retries.OpenMode < 0 {
		add("retries must not be negative")
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		add("viewport must be positive, got %dx%d", c.Viewport.Width, c.Viewport.Height)
	}
	for _, f := range c.Results.Formats {
		if !oneOf(f, validFormats) {
			add("results.formats entries must be one of %s, got %q", strings.Join(validFormats, ", "), f)
		}
	}
	if c.History.Enabled {
		if !oneOf(c.History.Driver, validDrivers) {
			add("history.driver must be one of %s, got %q", strings.Join(validDrivers, ", "), c.History.Driver)
		}
		if c.History.DSN == "" {
			add("history.dsn is required when history is enabled")
		}
	}
	for i, j := range c.Schedule.Jobs {
		if j.Name == "" || j.Cron == "" {
			add("schedule.jobs[%d] needs a name and a cron expression", i)
		}
	}

	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"timeouts.page_load", c.Timeouts.PageLoad},
		{"timeouts.command", c.Timeouts.Command},
		{"auth.marker.url_timeout", c.Auth.Marker.URLTimeout},
		{"auth.marker.selector_timeout", c.Auth.Marker.SelectorTimeout},
	} {
		if d.value <= 0 {
			add("%s must be positive", d.name)
		}
	}

	if len(problems) > 0 {
		return errors.Errorf("invalid configuration:\n%s", strings.Join(problems, "\n"))
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
