// internal/browser/cdp/options.go
package cdp

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/uiharness/internal/browser/driver"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// launchFlags computes the command line switches layered on top of
// chromedp.DefaultExecAllocatorOptions. A false value removes a default switch.
func launchFlags(opts driver.LaunchOptions) map[string]interface{} {
	flags := map[string]interface{}{
		"disable-gpu":            true,
		"disable-dev-shm-usage":  true,
		"remote-allow-origins":   "*",
		"disable-popup-blocking": true,
	}

	// chromedp defaults to headless; only an explicit opt-in keeps it.
	if !opts.Headless {
		flags["headless"] = false
		flags["hide-scrollbars"] = false
		flags["mute-audio"] = false
		flags["start-maximized"] = true
	}
	if opts.Incognito {
		flags["incognito"] = true
	}
	if opts.AcceptInsecureCerts {
		flags["ignore-certificate-errors"] = true
		flags["allow-insecure-localhost"] = true
	}
	if opts.DisableAutomationFlagging {
		flags["enable-automation"] = false
		flags["disable-blink-features"] = "AutomationControlled"
	}
	if opts.DisableCredentialStore {
		flags["password-store"] = "basic"
	}
	if opts.Viewport.Width > 0 && opts.Viewport.Height > 0 {
		flags["window-size"] = fmt.Sprintf("%d,%d", opts.Viewport.Width, opts.Viewport.Height)
	}
	return flags
}

// AllocatorOptions builds the exec allocator options for a local Chrome.
// userDataDir may be empty, in which case chromedp picks a temporary profile.
func AllocatorOptions(opts driver.LaunchOptions, userDataDir string) []chromedp.ExecAllocatorOption {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	flags := launchFlags(opts)
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		allocOpts = append(allocOpts, chromedp.Flag(name, flags[name]))
	}

	if userDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(userDataDir))
	}
	for _, arg := range opts.Args {
		name, value := splitArg(arg)
		allocOpts = append(allocOpts, chromedp.Flag(name, value))
	}
	return allocOpts
}

// splitArg turns "--name=value" into a flag name and value. A bare "--name" is a boolean switch.
func splitArg(arg string) (string, interface{}) {
	name, value, ok := strings.Cut(strings.TrimLeft(arg, "-"), "=")
	if !ok {
		return name, true
	}
	return name, value
}

// preferences is the subset of the Chrome profile Preferences file we control.
type preferences struct {
	CredentialsEnableService *bool          `json:"credentials_enable_service,omitempty"`
	Profile                  *profilePrefs  `json:"profile,omitempty"`
	Download                 *downloadPrefs `json:"download,omitempty"`
}

type profilePrefs struct {
	PasswordManagerEnabled *bool           `json:"password_manager_enabled,omitempty"`
	DefaultContentSettings contentSettings `json:"default_content_settings"`
}

// contentSettings values: 0 default, 1 allow, 2 block.
type contentSettings struct {
	Popups int `json:"popups"`
}

type downloadPrefs struct {
	DefaultDirectory  string `json:"default_directory"`
	PromptForDownload bool   `json:"prompt_for_download"`
}

func buildPreferences(opts driver.LaunchOptions) preferences {
	off := false
	p := preferences{Profile: &profilePrefs{}}
	if opts.DisableCredentialStore {
		p.CredentialsEnableService = &off
	}
	if opts.DisablePasswordManager {
		p.Profile.PasswordManagerEnabled = &off
	}
	if opts.DownloadDir != "" {
		p.Download = &downloadPrefs{DefaultDirectory: opts.DownloadDir}
	}
	return p
}

// WritePreferences seeds <userDataDir>/Default/Preferences before Chrome starts.
func WritePreferences(userDataDir string, opts driver.LaunchOptions) error {
	dir := filepath.Join(userDataDir, "Default")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating profile directory: %w", err)
	}
	data, err := json.MarshalIndent(buildPreferences(opts), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Preferences"), data, 0o644); err != nil {
		return fmt.Errorf("writing preferences: %w", err)
	}
	return nil
}
