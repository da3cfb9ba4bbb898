// Package config holds the application's root configuration, loaded through
// Viper from defaults, an optional YAML file, and FEEDWALKER_* variables.
package config

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/feedwalker/internal/humanoid"
)

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Browser engines the launcher knows how to start.
const (
	EngineChrome = "chrome"
	EngineRemote = "remote"
)

// Config is the root configuration structure for the entire application.
type Config struct {
	Logger   LoggerConfig    `mapstructure:"logger"`
	Browser  BrowserConfig   `mapstructure:"browser"`
	Site     SiteConfig      `mapstructure:"site"`
	Humanoid humanoid.Config `mapstructure:"humanoid"`
	Scenario ScenarioConfig  `mapstructure:"scenario"`
}

// ColorConfig defines the color settings for different log levels.
type ColorConfig struct {
	Debug string `mapstructure:"debug" json:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" json:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" json:"warn" yaml:"warn"`
	Error string `mapstructure:"error" json:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" json:"fatal" yaml:"fatal"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" json:"level" yaml:"level"`
	Format      string      `mapstructure:"format" json:"format" yaml:"format"`
	TimeFormat  string      `mapstructure:"time_format" json:"time_format" yaml:"time_format"`
	AddSource   bool        `mapstructure:"add_source" json:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" json:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" json:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" json:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" json:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" json:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" json:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" json:"colors" yaml:"colors"`
}

// BrowserConfig selects and tunes the browser each session launches.
type BrowserConfig struct {
	// Engine is "chrome" (start a local binary) or "remote" (attach to a
	// running DevTools endpoint at RemoteURL).
	Engine          string        `mapstructure:"engine"`
	ExecPath        string        `mapstructure:"exec_path"`
	RemoteURL       string        `mapstructure:"remote_url"`
	Headless        bool          `mapstructure:"headless"`
	IgnoreTLSErrors bool          `mapstructure:"ignore_tls_errors"`
	UserAgent       string        `mapstructure:"user_agent"`
	Proxy           string        `mapstructure:"proxy"`
	WindowWidth     int           `mapstructure:"window_width"`
	WindowHeight    int           `mapstructure:"window_height"`
	Args            []string      `mapstructure:"args"`
	ActionTimeout   time.Duration `mapstructure:"action_timeout"`
	Debug           bool          `mapstructure:"debug"`
}

// SelectorsConfig holds the XPath expressions for every element the
// handlers touch on the target site.
type SelectorsConfig struct {
	CookieAccept    string `mapstructure:"cookie_accept"`
	Search          string `mapstructure:"search"`
	Email           string `mapstructure:"email"`
	Password        string `mapstructure:"password"`
	MessengerButton string `mapstructure:"messenger_button"`
	MessengerAll    string `mapstructure:"messenger_all"`
	ThreadListItem  string `mapstructure:"thread_list_item"`
	ComposeBox      string `mapstructure:"compose_box"`
	Links           string `mapstructure:"links"`
}

// SiteConfig describes the site being exercised.
type SiteConfig struct {
	LandingURL  string          `mapstructure:"landing_url"`
	WaitTimeout time.Duration   `mapstructure:"wait_timeout"`
	QueriesFile string          `mapstructure:"queries_file"`
	Selectors   SelectorsConfig `mapstructure:"selectors"`
}

// ScenarioConfig tunes the activity loop of each session.
type ScenarioConfig struct {
	BrowseProbability float64       `mapstructure:"browse_probability"`
	LoadOverhead      time.Duration `mapstructure:"load_overhead"`
	MaxClickAttempts  int           `mapstructure:"max_click_attempts"`
	MessageLength     int           `mapstructure:"message_length"`
}

// NewDefaultConfig returns a Config populated with the built-in defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// The defaults are static; failing to decode them is a programming error.
		panic(fmt.Sprintf("config: decoding defaults: %v", err))
	}
	return &cfg
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.time_format", "15:04:05")
	v.SetDefault("logger.service_name", "feedwalker")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	v.SetDefault("browser.engine", EngineChrome)
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 800)
	v.SetDefault("browser.action_timeout", "10s")

	v.SetDefault("site.landing_url", "https://el-gr.facebook.com/")
	v.SetDefault("site.wait_timeout", "10s")
	v.SetDefault("site.queries_file", "")
	v.SetDefault("site.selectors.cookie_accept", `//button[@title="Αποδοχή όλων των cookies"]`)
	v.SetDefault("site.selectors.search", `//input[@type="search"]`)
	v.SetDefault("site.selectors.email", `//input[@id="email"]`)
	v.SetDefault("site.selectors.password", `//input[@id="pass"]`)
	v.SetDefault("site.selectors.messenger_button", `//div[contains(@aria-label,"Messenger")]`)
	v.SetDefault("site.selectors.messenger_all", `//a[contains(text(),"Εμφάνιση όλων στο Messenger")]`)
	v.SetDefault("site.selectors.thread_list_item", `//div[@data-testid="mwthreadlist-item"]`)
	v.SetDefault("site.selectors.compose_box", `//div[@aria-label="Μήνυμα"]`)
	v.SetDefault("site.selectors.links", `//a[@href]`)

	h := humanoid.DefaultConfig()
	v.SetDefault("humanoid.action_pause.min", h.ActionPause.Min.String())
	v.SetDefault("humanoid.action_pause.max", h.ActionPause.Max.String())
	v.SetDefault("humanoid.session_break.min", h.SessionBreak.Min.String())
	v.SetDefault("humanoid.session_break.max", h.SessionBreak.Max.String())
	v.SetDefault("humanoid.settle", h.Settle.String())
	v.SetDefault("humanoid.idle_cursor", h.IdleCursor)
	v.SetDefault("humanoid.viewport_width", h.ViewportWidth)
	v.SetDefault("humanoid.viewport_height", h.ViewportHeight)
	v.SetDefault("humanoid.keystrokes.enabled", h.Keystrokes.Enabled)
	v.SetDefault("humanoid.keystrokes.mean", h.Keystrokes.Mean.String())
	v.SetDefault("humanoid.keystrokes.std_dev", h.Keystrokes.StdDev.String())
	v.SetDefault("humanoid.keystrokes.min", h.Keystrokes.Min.String())

	v.SetDefault("scenario.browse_probability", 0.5)
	v.SetDefault("scenario.load_overhead", "10s")
	v.SetDefault("scenario.max_click_attempts", 10)
	v.SetDefault("scenario.message_length", 100)
}

// Validate checks the configuration for values the scenario cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Browser.Engine {
	case EngineChrome:
	case EngineRemote:
		if c.Browser.RemoteURL == "" {
			errs = append(errs, errors.New("browser.remote_url is required when browser.engine is \"remote\""))
		}
	default:
		errs = append(errs, fmt.Errorf("browser.engine %q is not supported (use %q or %q)", c.Browser.Engine, EngineChrome, EngineRemote))
	}
	if c.Browser.ActionTimeout <= 0 {
		errs = append(errs, errors.New("browser.action_timeout must be positive"))
	}

	if c.Site.LandingURL == "" {
		errs = append(errs, errors.New("site.landing_url is a required configuration field"))
	}
	if c.Site.WaitTimeout <= 0 {
		errs = append(errs, errors.New("site.wait_timeout must be positive"))
	}

	if err := c.Humanoid.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Scenario.BrowseProbability < 0 || c.Scenario.BrowseProbability > 1 {
		errs = append(errs, errors.New("scenario.browse_probability must be within [0, 1]"))
	}
	if c.Scenario.LoadOverhead < 0 {
		errs = append(errs, errors.New("scenario.load_overhead must be non-negative"))
	}
	if c.Scenario.MaxClickAttempts <= 0 {
		errs = append(errs, errors.New("scenario.max_click_attempts must be a positive integer"))
	}
	if c.Scenario.MessageLength <= 0 {
		errs = append(errs, errors.New("scenario.message_length must be a positive integer"))
	}

	return errors.Join(errs...)
}

// Load initializes the configuration singleton from Viper.
func Load(v *viper.Viper) error {
	once.Do(func() {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			loadErr = fmt.Errorf("error unmarshaling config: %w", err)
			return
		}
		instance = &cfg
	})
	return loadErr
}

// Set stores cfg as the global instance, bypassing Load.
func Set(cfg *Config) {
	once.Do(func() {})
	instance = cfg
}

// Get returns the loaded configuration instance.
func Get() *Config {
	if instance == nil {
		panic("Configuration not initialized. Call config.Load() in the root command.")
	}
	return instance
}
