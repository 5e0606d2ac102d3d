// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/uiharness/internal/browser/driver"
	"github.com/xkilldash9x/uiharness/internal/wait"
)

// Config is the root of the harness configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Wait    wait.Config   `mapstructure:"wait" yaml:"wait"`
	Retry   RetryConfig   `mapstructure:"retry" yaml:"retry"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig names the console color of each log level.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig is the baseline applied to every session the factory creates.
type BrowserConfig struct {
	Kind                      string         `mapstructure:"kind" yaml:"kind"`
	Headless                  bool           `mapstructure:"headless" yaml:"headless"`
	Incognito                 bool           `mapstructure:"incognito" yaml:"incognito"`
	AcceptInsecureCerts       bool           `mapstructure:"accept_insecure_certs" yaml:"accept_insecure_certs"`
	DisableCredentialStore    bool           `mapstructure:"disable_credential_store" yaml:"disable_credential_store"`
	DisablePasswordManager    bool           `mapstructure:"disable_password_manager" yaml:"disable_password_manager"`
	DisableAutomationFlagging bool           `mapstructure:"disable_automation_flagging" yaml:"disable_automation_flagging"`
	DownloadDir               string         `mapstructure:"download_dir" yaml:"download_dir"`
	Viewport                  ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
	RemoteURL                 string         `mapstructure:"remote_url" yaml:"remote_url"`
	Args                      []string       `mapstructure:"args" yaml:"args"`
	LaunchTimeout             time.Duration  `mapstructure:"launch_timeout" yaml:"launch_timeout"`
}

type ViewportConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// RetryConfig bounds whole-scenario retries.
type RetryConfig struct {
	MaxRetryCount int `mapstructure:"max_retry_count" yaml:"max_retry_count"`
}

// LaunchOptions converts the browser section into driver launch options.
// A leading ~ in the download directory is expanded to the user's home.
func (b BrowserConfig) LaunchOptions() driver.LaunchOptions {
	dir := b.DownloadDir
	if expanded, err := homedir.Expand(dir); err == nil {
		dir = expanded
	}
	return driver.LaunchOptions{
		DownloadDir:               dir,
		Incognito:                 b.Incognito,
		AcceptInsecureCerts:       b.AcceptInsecureCerts,
		DisableCredentialStore:    b.DisableCredentialStore,
		DisablePasswordManager:    b.DisablePasswordManager,
		DisableAutomationFlagging: b.DisableAutomationFlagging,
		Headless:                  b.Headless,
		Viewport:                  driver.Viewport{Width: b.Viewport.Width, Height: b.Viewport.Height},
		RemoteURL:                 b.RemoteURL,
		Args:                      append([]string(nil), b.Args...),
		LaunchTimeout:             b.LaunchTimeout,
	}
}

// DefaultDownloadDir is ~/Downloads, or a relative "Downloads" when the home
// directory cannot be determined.
func DefaultDownloadDir() string {
	home, err := homedir.Dir()
	if err != nil {
		return "Downloads"
	}
	return filepath.Join(home, "Downloads")
}

// NewDefaultConfig returns the configuration produced by the defaults alone.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "uiharness")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "red")

	// -- Browser --
	v.SetDefault("browser.kind", string(driver.Chrome))
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.incognito", true)
	v.SetDefault("browser.accept_insecure_certs", true)
	v.SetDefault("browser.disable_credential_store", true)
	v.SetDefault("browser.disable_password_manager", true)
	v.SetDefault("browser.disable_automation_flagging", true)
	v.SetDefault("browser.download_dir", DefaultDownloadDir())
	v.SetDefault("browser.viewport.width", 1920)
	v.SetDefault("browser.viewport.height", 1080)
	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.launch_timeout", "60s")

	// -- Wait --
	v.SetDefault("wait.bounded_timeout", wait.DefaultBoundedTimeout)
	v.SetDefault("wait.bounded_grain", wait.DefaultBoundedGrain)
	v.SetDefault("wait.polling_timeout", wait.DefaultPollingTimeout)
	v.SetDefault("wait.polling_interval", wait.DefaultPollingInterval)

	// -- Retry --
	v.SetDefault("retry.max_retry_count", 1)
}

// NewConfigFromViper unmarshals and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Browser.Kind = strings.ToLower(strings.TrimSpace(cfg.Browser.Kind))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if _, err := driver.ParseKind(c.Browser.Kind); err != nil {
		return fmt.Errorf("browser.kind: %w", err)
	}
	if c.Browser.Viewport.Width <= 0 || c.Browser.Viewport.Height <= 0 {
		return fmt.Errorf("browser.viewport must have a positive width and height")
	}
	if c.Browser.LaunchTimeout < 0 {
		return fmt.Errorf("browser.launch_timeout must not be negative")
	}
	if c.Wait.BoundedTimeout <= 0 || c.Wait.BoundedGrain <= 0 {
		return fmt.Errorf("wait.bounded_timeout and wait.bounded_grain must be positive durations")
	}
	if c.Wait.PollingTimeout <= 0 || c.Wait.PollingInterval <= 0 {
		return fmt.Errorf("wait.polling_timeout and wait.polling_interval must be positive durations")
	}
	if c.Retry.MaxRetryCount < 0 {
		return fmt.Errorf("retry.max_retry_count must be zero or greater")
	}
	return nil
}
