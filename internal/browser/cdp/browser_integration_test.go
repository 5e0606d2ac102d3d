//go:build integration
// +build integration

// internal/browser/cdp/browser_integration_test.go
package cdp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/uiharness/internal/browser/driver"
)

const fixturePage = `<!doctype html>
<html><head><title>Fixture</title></head>
<body>
  <p id="greeting" data-role="banner">  Hello there  </p>
  <input id="name" value="prefilled" oninput="this.dataset.cleared=String(this.value==='')">
  <button id="go" onclick="document.title='clicked'">Go</button>
  <select id="color" onchange="this.dataset.picked=this.value"><option>Red</option><option> Blue </option></select>
  <div id="hidden" style="display:none">secret</div>
  <div id="target" style="width:80px;height:40px"
       onmouseover="this.dataset.hovered='yes'">hover me</div>
</body></html>`

func requireChrome(t *testing.T) {
	t.Helper()
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("no chrome binary on PATH")
}

// launchFixture starts headless chrome against a local fixture page.
func launchFixture(t *testing.T) (*Driver, context.Context) {
	t.Helper()
	requireChrome(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(fixturePage))
	}))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	t.Cleanup(cancel)

	d, err := NewLauncher(zaptest.NewLogger(t)).Launch(ctx, driver.Chrome, driver.LaunchOptions{Headless: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		quitCtx, quitCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer quitCancel()
		_ = d.Quit(quitCtx)
	})

	require.NoError(t, d.Navigate(ctx, server.URL))
	return d.(*Driver), ctx
}

func find(ctx context.Context, t *testing.T, d *Driver, css string) driver.Element {
	t.Helper()
	el, err := d.FindElement(ctx, driver.CSS(css))
	require.NoError(t, err)
	return el
}

func TestElement_FunctionCallsAgainstRealPage(t *testing.T) {
	d, ctx := launchFixture(t)

	greeting := find(ctx, t, d, "#greeting")
	text, err := greeting.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hello there", text)

	role, ok, err := greeting.Attribute(ctx, "data-role")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "banner", role)
	_, ok, err = greeting.Attribute(ctx, "data-missing")
	require.NoError(t, err)
	assert.False(t, ok)

	shown, err := greeting.IsDisplayed(ctx)
	require.NoError(t, err)
	assert.True(t, shown)
	shown, err = find(ctx, t, d, "#hidden").IsDisplayed(ctx)
	require.NoError(t, err)
	assert.False(t, shown)

	name := find(ctx, t, d, "#name")
	require.NoError(t, name.Clear(ctx))
	cleared, _, err := name.Attribute(ctx, "data-cleared")
	require.NoError(t, err)
	assert.Equal(t, "true", cleared)

	color := find(ctx, t, d, "#color")
	require.NoError(t, color.SelectByVisibleText(ctx, "Blue"))
	picked, _, err := color.Attribute(ctx, "data-picked")
	require.NoError(t, err)
	assert.Equal(t, "Blue", picked)
	err = color.SelectByVisibleText(ctx, "Green")
	assert.ErrorIs(t, err, driver.ErrOptionNotFound)

	require.NoError(t, find(ctx, t, d, "#go").ScriptClick(ctx))
	title, err := d.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "clicked", title)
}

func TestElement_HoverAndWindowHandles(t *testing.T) {
	d, ctx := launchFixture(t)

	target := find(ctx, t, d, "#target")
	require.NoError(t, target.Hover(ctx))
	hovered, ok, err := target.Attribute(ctx, "data-hovered")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "yes", hovered)

	handles, err := d.WindowHandles(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, handles)
}
