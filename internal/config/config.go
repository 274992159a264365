package config

import (
	"bytes"
	_ "embed"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"k8s.io/klog/v2"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// EnvPrefix is prepended to every environment override, e.g. SALEOR_E2E_SUITE_BASE_URL.
const EnvPrefix = "SALEOR_E2E"

// StoreRun is the session store the runner hands to every go test attempt of
// one run so a retry restores the session instead of logging in again.
const StoreRun = "run"

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
)

// Config represents the suite configuration
type Config struct {
	Suite       SuiteConfig       `mapstructure:"suite" yaml:"suite"`
	Timeouts    TimeoutsConfig    `mapstructure:"timeouts" yaml:"timeouts"`
	Retries     RetriesConfig     `mapstructure:"retries" yaml:"retries"`
	Viewport    ViewportConfig    `mapstructure:"viewport" yaml:"viewport"`
	Browser     BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	Screenshots ScreenshotsConfig `mapstructure:"screenshots" yaml:"screenshots"`
	Video       VideoConfig       `mapstructure:"video" yaml:"video"`
	Results     ResultsConfig     `mapstructure:"results" yaml:"results"`
	History     HistoryConfig     `mapstructure:"history" yaml:"history"`
	Schedule    ScheduleConfig    `mapstructure:"schedule" yaml:"schedule"`
	Serve       ServeConfig       `mapstructure:"serve" yaml:"serve"`
	Session     SessionConfig     `mapstructure:"session" yaml:"session"`
	Auth        AuthConfig        `mapstructure:"auth" yaml:"auth"`
	Catalog     CatalogConfig     `mapstructure:"catalog" yaml:"catalog"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
}

type SuiteConfig struct {
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
	CloudURL string `mapstructure:"cloud_url" yaml:"cloud_url"`
	AuthURL  string `mapstructure:"auth_url" yaml:"auth_url"`
	APIURL   string `mapstructure:"api_url" yaml:"api_url"`
}

type TimeoutsConfig struct {
	PageLoad   time.Duration `mapstructure:"page_load" yaml:"page_load"`
	Command    time.Duration `mapstructure:"command" yaml:"command"`
	Exec       time.Duration `mapstructure:"exec" yaml:"exec"`
	Task       time.Duration `mapstructure:"task" yaml:"task"`
	Request    time.Duration `mapstructure:"request" yaml:"request"`
	Response   time.Duration `mapstructure:"response" yaml:"response"`
	Screenshot time.Duration `mapstructure:"screenshot" yaml:"screenshot"`
}

type RetriesConfig struct {
	RunMode  int `mapstructure:"run_mode" yaml:"run_mode"`
	OpenMode int `mapstructure:"open_mode" yaml:"open_mode"`
}

type ViewportConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

type BrowserConfig struct {
	Name     string `mapstructure:"name" yaml:"name"`
	Headless bool   `mapstructure:"headless" yaml:"headless"`
	SlowMo   int    `mapstructure:"slow_mo" yaml:"slow_mo"`
	Install  bool   `mapstructure:"install" yaml:"install"`
}

type ScreenshotsConfig struct {
	OnFailure       bool   `mapstructure:"on_failure" yaml:"on_failure"`
	Folder          string `mapstructure:"folder" yaml:"folder"`
	TrashBeforeRuns bool   `mapstructure:"trash_before_runs" yaml:"trash_before_runs"`
}

type VideoConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Folder  string `mapstructure:"folder" yaml:"folder"`
}

type ResultsConfig struct {
	Folder string `mapstructure:"folder" yaml:"folder"`
	// Formats of the run report: markdown, html, xlsx.
	Formats     []string `mapstructure:"formats" yaml:"formats"`
	MetricsFile string   `mapstructure:"metrics_file" yaml:"metrics_file"`
}

// HistoryConfig selects the database runs are recorded in.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Driver  string `mapstructure:"driver" yaml:"driver"`
	DSN     string `mapstructure:"dsn" yaml:"-"`
}

type ScheduleConfig struct {
	Jobs []JobConfig `mapstructure:"jobs" yaml:"jobs"`
}

// JobConfig is one scheduled suite run.
type JobConfig struct {
	Name    string        `mapstructure:"name" yaml:"name"`
	Cron    string        `mapstructure:"cron" yaml:"cron"`
	Areas   []string      `mapstructure:"areas" yaml:"areas"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type ServeConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

type SessionConfig struct {
	Key   string `mapstructure:"key" yaml:"key"`
	Store string `mapstructure:"store" yaml:"store"`
	Dir   string `mapstructure:"dir" yaml:"dir"`
	Redis struct {
		Addr     string        `mapstructure:"addr" yaml:"addr"`
		Password string        `mapstructure:"password" yaml:"-"`
		DB       int           `mapstructure:"db" yaml:"db"`
		Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
		TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
	} `mapstructure:"redis" yaml:"redis"`
}

type AuthConfig struct {
	Mode          string        `mapstructure:"mode" yaml:"mode"`
	Resume        string        `mapstructure:"resume" yaml:"resume"`
	LoginURL      string        `mapstructure:"login_url" yaml:"login_url"`
	SocialButton  string        `mapstructure:"social_button" yaml:"social_button"`
	SocialTimeout time.Duration `mapstructure:"social_timeout" yaml:"social_timeout"`
	Email         string        `mapstructure:"email" yaml:"email"`
	Password      string        `mapstructure:"password" yaml:"-"`
	TOTPSecret    string        `mapstructure:"totp_secret" yaml:"-"`
	StateFile     string        `mapstructure:"state_file" yaml:"state_file"`
	TokenKeys     struct {
		Refresh string `mapstructure:"refresh" yaml:"refresh"`
		Access  string `mapstructure:"access" yaml:"access"`
	} `mapstructure:"token_keys" yaml:"token_keys"`
	Marker MarkerConfig `mapstructure:"marker" yaml:"marker"`
}

// MarkerConfig describes what "landed on the authenticated dashboard" means.
type MarkerConfig struct {
	URLContains     string        `mapstructure:"url_contains" yaml:"url_contains"`
	Selector        string        `mapstructure:"selector" yaml:"selector"`
	URLTimeout      time.Duration `mapstructure:"url_timeout" yaml:"url_timeout"`
	SelectorTimeout time.Duration `mapstructure:"selector_timeout" yaml:"selector_timeout"`
	Settle          time.Duration `mapstructure:"settle" yaml:"settle"`
}

type CatalogConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type LoggingConfig struct {
	Verbosity int `mapstructure:"verbosity" yaml:"verbosity"`
}

// Mode is the execution mode of the suite.
type Mode string

const (
	ModeRun  Mode = "run"
	ModeOpen Mode = "open"
)

// RetriesFor returns the flat retry count configured for the given mode.
func (c *Config) RetriesFor(mode Mode) int {
	if mode == ModeOpen {
		return c.Retries.OpenMode
	}
	return c.Retries.RunMode
}

// URL joins a dashboard route onto the base URL.
func (c *SuiteConfig) URL(route string) string {
	base := strings.TrimRight(c.BaseURL, "/")
	if route == "" || route == "/" {
		return base + "/"
	}
	return base + "/" + strings.TrimLeft(route, "/")
}

// IsPersistent reports whether session state outlives the run. The run store
// is a file store the runner creates for one run and removes afterwards.
func (c *SessionConfig) IsPersistent() bool {
	return c.Store == "file" || c.Store == "redis"
}

// IsFileBacked reports whether the store keeps one file per key in Dir.
func (c *SessionConfig) IsFileBacked() bool {
	return c.Store == "file" || c.Store == StoreRun
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaultsYAML)); err != nil {
		return nil, errors.Wrap(err, "failed to read default config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// preloadDotEnv loads .env without overriding variables already set.
func preloadDotEnv() {
	if err := gotenv.Load(); err == nil {
		klog.V(2).Info("[config] loaded .env")
	}
}

// Load reads the embedded defaults, merges suite.yaml from configPath when it
// exists and applies environment overrides. Subsequent calls are no-ops.
func Load(configPath string) error {
	var err error
	once.Do(func() {
		preloadDotEnv()

		var v *viper.Viper
		v, err = newViper()
		if err != nil {
			return
		}

		if configPath != "" {
			v.SetConfigName("suite")
			v.AddConfigPath(configPath)
			if mergeErr := v.MergeInConfig(); mergeErr != nil {
				// It's OK if suite.yaml doesn't exist
				if _, ok := mergeErr.(viper.ConfigFileNotFoundError); !ok {
					err = errors.Wrap(mergeErr, "failed to merge config")
					return
				}
			}
		}

		var c *Config
		c, err = decode(v)
		if err != nil {
			return
		}

		mu.Lock()
		cfg = c
		mu.Unlock()
	})

	return err
}

// LoadFromFile loads configuration from a specific file on top of the defaults.
func LoadFromFile(configFile string) error {
	v, err := newViper()
	if err != nil {
		return err
	}
	v.SetConfigFile(configFile)
	if err := v.MergeInConfig(); err != nil {
		return errors.Wrap(err, "failed to read config file")
	}

	c, err := decode(v)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	cfg = c
	return nil
}

// Watch reloads configFile whenever it changes and calls onChange with the new
// configuration. Invalid edits are logged and the previous configuration kept.
func Watch(configFile string, onChange func(*Config)) error {
	v, err := newViper()
	if err != nil {
		return err
	}
	v.SetConfigFile(configFile)
	if err := v.MergeInConfig(); err != nil {
		return errors.Wrap(err, "failed to read config file")
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		klog.Infof("[config] file changed: %s (%s)", e.Name, e.Op)
		newCfg, err := decode(v)
		if err != nil {
			klog.Errorf("[config] failed to reload: %v", err)
			return
		}

		mu.Lock()
		cfg = newCfg
		mu.Unlock()

		if onChange != nil {
			onChange(newCfg)
		}
	})
	v.WatchConfig()
	return nil
}

// Get returns the current configuration (thread-safe)
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// MustGet returns the current configuration, loading defaults on first use.
func MustGet() *Config {
	if c := Get(); c != nil {
		return c
	}
	if err := Load(""); err != nil {
		panic("failed to load configuration: " + err.Error())
	}
	return Get()
}

// Defaults returns a fresh configuration built from the embedded defaults only.
func Defaults() *Config {
	v, err := newViper()
	if err != nil {
		panic(err)
	}
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		panic(err)
	}
	return c
}

// Reset drops the loaded configuration so the next Load starts over.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cfg = nil
	once = sync.Once{}
}
