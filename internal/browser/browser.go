// Package browser owns the Playwright lifecycle for one test: driver, browser,
// context and page. A Session is also the target the session cache clears,
// captures and restores, and the driver the login and page helpers act on.
package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/playwright-community/playwright-go"
	"k8s.io/klog/v2"
)

// Reporter is the part of *testing.T used at teardown.
type Reporter interface {
	Name() string
	Failed() bool
}

// Session is one launched browser with a single context and page.
type Session struct {
	opts Options

	Playwright *playwright.Playwright
	Browser    playwright.Browser
	Context    playwright.BrowserContext
	Page       playwright.Page
}

// New creates a session; call Launch before use.
func New(opts Options) *Session {
	return &Session{opts: opts}
}

// Launch starts Playwright, the browser and a fresh context and page.
func (s *Session) Launch() error {
	if s.opts.shouldInstall() {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{s.browserName()}}); err != nil {
			return errors.Wrap(err, "could not install playwright browsers")
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		// Driver version drift is the usual cause; install and retry once.
		_ = playwright.Install(&playwright.RunOptions{Browsers: []string{s.browserName()}})
		pw, err = playwright.Run()
		if err != nil {
			return errors.Wrap(err, "could not start playwright after retry")
		}
	}
	s.Playwright = pw

	browser, err := s.browserType().Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(s.opts.Headless),
		SlowMo:   playwright.Float(millis(s.opts.SlowMo)),
	})
	if err != nil {
		return errors.Wrap(err, "could not launch browser")
	}
	s.Browser = browser

	return s.newContext()
}

func (s *Session) browserName() string {
	switch s.opts.Browser {
	case "firefox", "webkit":
		return s.opts.Browser
	default:
		return "chromium"
	}
}

func (s *Session) browserType() playwright.BrowserType {
	switch s.browserName() {
	case "firefox":
		return s.Playwright.Firefox
	case "webkit":
		return s.Playwright.WebKit
	default:
		return s.Playwright.Chromium
	}
}

func (s *Session) newContext() error {
	ctxOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  s.opts.Width,
			Height: s.opts.Height,
		},
	}
	if s.opts.VideoDir != "" {
		ctxOpts.RecordVideo = &playwright.RecordVideo{Dir: s.opts.VideoDir}
	}

	bctx, err := s.Browser.NewContext(ctxOpts)
	if err != nil {
		return errors.Wrap(err, "could not create context")
	}
	if s.opts.CommandTimeout > 0 {
		bctx.SetDefaultTimeout(millis(s.opts.CommandTimeout))
	}
	if s.opts.PageLoadTimeout > 0 {
		bctx.SetDefaultNavigationTimeout(millis(s.opts.PageLoadTimeout))
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		return errors.Wrap(err, "could not create page")
	}

	s.Context = bctx
	s.Page = page
	return nil
}

// Close takes a screenshot when the test failed and releases everything.
func (s *Session) Close(t Reporter) {
	if t != nil && t.Failed() && s.opts.ScreenshotOnFailure && s.Page != nil {
		path := screenshotPath(s.opts.ScreenshotDir, t.Name(), time.Now())
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
			if _, err := s.Page.Screenshot(playwright.PageScreenshotOptions{
				Path:     playwright.String(path),
				FullPage: playwright.Bool(true),
			}); err != nil {
				klog.Warningf("[browser] screenshot failed: %v", err)
			} else {
				klog.Infof("[browser] saved failure screenshot %s", path)
			}
		}
	}

	if s.Page != nil {
		s.Page.Close()
	}
	if s.Context != nil {
		s.Context.Close()
	}
	if s.Browser != nil {
		s.Browser.Close()
	}
	if s.Playwright != nil {
		s.Playwright.Stop()
	}
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func screenshotPath(dir, testName string, now time.Time) string {
	if dir == "" {
		dir = "test-results/screenshots"
	}
	name := strings.Trim(unsafeNameChars.ReplaceAllString(testName, "_"), "_")
	return filepath.Join(dir, fmt.Sprintf("%s_%d.png", name, now.Unix()))
}

// WaitForIdle waits until the network has been idle, e.g. after the
// dashboard finishes its GraphQL bootstrap.
func (s *Session) WaitForIdle() error {
	return s.Page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	})
}
