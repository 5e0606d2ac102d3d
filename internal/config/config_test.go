// File: internal/config/config_test.go
package config

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/uiharness/internal/browser/driver"
)

// -- Defaults --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "uiharness", cfg.Logger.ServiceName)
	assert.Equal(t, "chrome", cfg.Browser.Kind)
	assert.True(t, cfg.Browser.Incognito)
	assert.True(t, cfg.Browser.AcceptInsecureCerts)
	assert.True(t, cfg.Browser.DisableAutomationFlagging)
	assert.Equal(t, ViewportConfig{Width: 1920, Height: 1080}, cfg.Browser.Viewport)
	assert.Equal(t, 60*time.Second, cfg.Browser.LaunchTimeout)
	assert.Equal(t, 15*time.Second, cfg.Wait.BoundedTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Wait.BoundedGrain)
	assert.Equal(t, 15*time.Second, cfg.Wait.PollingTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Wait.PollingInterval)
	assert.Equal(t, 1, cfg.Retry.MaxRetryCount)
	assert.Equal(t, "Downloads", filepath.Base(cfg.Browser.DownloadDir))
	require.NoError(t, cfg.Validate())
}

// -- Validation --

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"unknown kind", func(c *Config) { c.Browser.Kind = "opera" }, "browser.kind"},
		{"zero viewport", func(c *Config) { c.Browser.Viewport.Width = 0 }, "browser.viewport"},
		{"negative launch timeout", func(c *Config) { c.Browser.LaunchTimeout = -time.Second }, "browser.launch_timeout"},
		{"zero bounded grain", func(c *Config) { c.Wait.BoundedGrain = 0 }, "wait.bounded_timeout"},
		{"zero polling interval", func(c *Config) { c.Wait.PollingInterval = 0 }, "wait.polling_timeout"},
		{"negative retries", func(c *Config) { c.Retry.MaxRetryCount = -1 }, "retry.max_retry_count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("unknown kind keeps the sentinel", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Browser.Kind = "lynx"
		assert.ErrorIs(t, cfg.Validate(), driver.ErrUnsupportedKind)
	})
}

// -- Loading --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("yaml overrides defaults", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBufferString(`
browser:
  kind: "  FireFox "
  headless: true
  download_dir: "~/harness-downloads"
  args: ["--lang=en-US"]
wait:
  bounded_timeout: 5s
  polling_interval: 250ms
retry:
  max_retry_count: 2
logger:
  level: debug
`)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "firefox", cfg.Browser.Kind)
		assert.True(t, cfg.Browser.Headless)
		assert.Equal(t, []string{"--lang=en-US"}, cfg.Browser.Args)
		assert.Equal(t, 5*time.Second, cfg.Wait.BoundedTimeout)
		assert.Equal(t, 250*time.Millisecond, cfg.Wait.PollingInterval)
		assert.Equal(t, 15*time.Second, cfg.Wait.PollingTimeout, "untouched keys keep their default")
		assert.Equal(t, 2, cfg.Retry.MaxRetryCount)
		assert.Equal(t, "debug", cfg.Logger.Level)
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("UIHARNESS_BROWSER_KIND", "edge")
		t.Setenv("UIHARNESS_RETRY_MAX_RETRY_COUNT", "3")
		v := viper.New()
		SetDefaults(v)
		v.SetEnvPrefix("UIHARNESS")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "edge", cfg.Browser.Kind)
		assert.Equal(t, 3, cfg.Retry.MaxRetryCount)
	})

	t.Run("invalid fails", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("browser.kind", "ie6")
		_, err := NewConfigFromViper(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

func TestLaunchOptions(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Browser.DownloadDir = "~/dl"
	cfg.Browser.RemoteURL = "ws://127.0.0.1:9222"
	cfg.Browser.Args = []string{"--mute-audio"}

	opts := cfg.Browser.LaunchOptions()
	home, err := homedir.Dir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "dl"), opts.DownloadDir)
	assert.Equal(t, driver.Viewport{Width: 1920, Height: 1080}, opts.Viewport)
	assert.True(t, opts.AcceptInsecureCerts)
	assert.True(t, opts.DisablePasswordManager)
	assert.Equal(t, "ws://127.0.0.1:9222", opts.RemoteURL)

	opts.Args[0] = "mutated"
	assert.Equal(t, "--mute-audio", cfg.Browser.Args[0], "launch options must not alias the config slice")
}
