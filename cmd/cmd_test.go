// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiharness/internal/browser/driver"
	"github.com/xkilldash9x/uiharness/internal/mocks"
	"github.com/xkilldash9x/uiharness/internal/observability"
)

// executeCommand runs a fresh command tree with args and returns everything
// it printed.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("UIHARNESS_LOGGER_LEVEL", "fatal")
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// useFakeLauncher points the smoke command at l for the duration of the test.
func useFakeLauncher(t *testing.T, l driver.Launcher) *bool {
	t.Helper()
	released := false
	original := newLauncher
	newLauncher = func(*zap.Logger, bool) (driver.Launcher, func() error) {
		return l, func() error {
			released = true
			return nil
		}
	}
	t.Cleanup(func() { newLauncher = original })
	return &released
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestVersionFlag(t *testing.T) {
	out, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "uiharness version "+Version+"\n", out)
}

func TestRootWithoutArgsPrintsHelp(t *testing.T) {
	out, err := executeCommand(t)
	require.NoError(t, err)
	assert.Contains(t, out, "smoke")
	assert.Contains(t, out, "version")
}

func TestConfigLoading(t *testing.T) {
	t.Run("invalid values are rejected", func(t *testing.T) {
		path := writeConfig(t, "browser:\n  kind: opera\n")
		_, err := executeCommand(t, "--config", path, "version")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load or validate config")
		assert.ErrorIs(t, err, driver.ErrUnsupportedKind)
	})

	t.Run("explicit file must exist", func(t *testing.T) {
		_, err := executeCommand(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "version")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file")
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		path := writeConfig(t, "browser:\n  kind: opera\n")
		t.Setenv("UIHARNESS_BROWSER_KIND", "firefox")
		_, err := executeCommand(t, "--config", path, "version")
		assert.NoError(t, err)
	})
}

func TestSmoke_ArgValidation(t *testing.T) {
	launcher := &mocks.FakeLauncher{}
	useFakeLauncher(t, launcher)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing url", []string{"smoke"}, "accepts 1 arg"},
		{"relative url", []string{"smoke", "example.test/login"}, "an absolute URL is required"},
		{"no workers", []string{"smoke", "--workers", "0", "https://example.test"}, "--workers must be at least 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
	assert.Equal(t, 0, launcher.Launches(), "validation happens before any browser starts")
}

func TestSmoke_RunsEveryWorker(t *testing.T) {
	ready := mocks.NewFakeElement("div#ready")
	button := mocks.NewFakeElement("button#go")
	launcher := &mocks.FakeLauncher{Setup: func(d *mocks.FakeDriver) {
		d.TitleValue = "Example Domain"
		d.Add(driver.CSS("#ready"), ready)
		d.Add(driver.CSS("#go"), button)
	}}
	released := useFakeLauncher(t, launcher)
	metricsFile := filepath.Join(t.TempDir(), "metrics.prom")

	out, err := executeCommand(t, "smoke",
		"--workers", "3",
		"--wait-for", "#ready",
		"--click", "#go",
		"--metrics-file", metricsFile,
		"https://example.test/")
	require.NoError(t, err)

	for _, worker := range []string{"worker-1", "worker-2", "worker-3"} {
		assert.Contains(t, out, worker+"\tPASSED\tattempts=1\ttitle=\"Example Domain\"")
	}
	assert.Equal(t, 3, launcher.Launches())
	for _, d := range launcher.Drivers() {
		assert.Equal(t, "https://example.test/", d.URL())
		assert.Equal(t, 1, d.Quits())
	}
	assert.Equal(t, 3, button.Clicks())
	assert.True(t, *released)

	metrics, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `uiharness_sessions_created_total{kind="chrome"} 3`)
	assert.Contains(t, string(metrics), "uiharness_sessions_active 0")
}

func TestSmoke_ReportsFailures(t *testing.T) {
	launcher := &mocks.FakeLauncher{Err: errors.New("chrome not found")}
	released := useFakeLauncher(t, launcher)

	out, err := executeCommand(t, "smoke", "https://example.test/")
	require.Error(t, err)
	assert.Equal(t, "1 of 1 smoke scenarios failed", err.Error())
	assert.True(t, strings.HasPrefix(out, "worker-1\tFAILED\tattempts=2\t"), out)
	assert.Equal(t, 2, launcher.Launches(), "the default policy retries once")
	assert.True(t, *released)
}

func TestSmoke_HeadlessFlag(t *testing.T) {
	var got driver.LaunchOptions
	launcher := driver.LauncherFunc(func(ctx context.Context, kind driver.Kind, opts driver.LaunchOptions) (driver.Driver, error) {
		got = opts
		return mocks.NewFakeDriver(kind), nil
	})
	useFakeLauncher(t, launcher)

	_, err := executeCommand(t, "smoke", "--headless", "https://example.test/")
	require.NoError(t, err)
	assert.True(t, got.Headless)
}
