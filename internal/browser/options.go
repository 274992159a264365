package browser

import (
	"os"
	"time"

	"github.com/saleor-qa/dashboard-e2e/internal/config"
)

// Options control how a Session launches the browser.
type Options struct {
	Browser  string
	Headless bool
	SlowMo   time.Duration
	// Install downloads the driver and browsers before the first run. It is
	// ignored when PLAYWRIGHT_PREINSTALLED=1, e.g. in CI images.
	Install bool

	Width  int
	Height int

	// VideoDir enables video recording when set.
	VideoDir            string
	ScreenshotDir       string
	ScreenshotOnFailure bool

	CommandTimeout  time.Duration
	PageLoadTimeout time.Duration
}

// OptionsFromConfig maps the suite configuration onto browser options.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		Browser:             cfg.Browser.Name,
		Headless:            cfg.Browser.Headless,
		SlowMo:              time.Duration(cfg.Browser.SlowMo) * time.Millisecond,
		Install:             cfg.Browser.Install,
		Width:               cfg.Viewport.Width,
		Height:              cfg.Viewport.Height,
		ScreenshotDir:       cfg.Screenshots.Folder,
		ScreenshotOnFailure: cfg.Screenshots.OnFailure,
		CommandTimeout:      cfg.Timeouts.Command,
		PageLoadTimeout:     cfg.Timeouts.PageLoad,
	}
	if cfg.Video.Enabled {
		opts.VideoDir = cfg.Video.Folder
	}
	return opts
}

func (o Options) shouldInstall() bool {
	return o.Install && os.Getenv("PLAYWRIGHT_PREINSTALLED") != "1"
}

func millis(d time.Duration) float64 {
	return float64(d.Milliseconds())
}
