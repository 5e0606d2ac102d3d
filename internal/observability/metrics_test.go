// internal/observability/metrics_test.go
package observability

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.SessionCreated("chrome")
	m.SessionCreated("chrome")
	m.SessionCreated("firefox")
	m.SessionClosed()
	m.FallbackUsed("click", "recovered")
	m.WaitTimedOut("clickable")
	m.ScenarioRetried()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionsCreated.WithLabelValues("chrome")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallbacks.WithLabelValues("click", "recovered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.waitTimeouts.WithLabelValues("clickable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.retries))
}

func TestMetrics_WriteText(t *testing.T) {
	m := NewMetrics()
	m.SessionCreated("edge")
	m.FallbackUsed("dropdown_open", "failed")

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, "# TYPE uiharness_sessions_created_total counter")
	assert.Contains(t, out, `uiharness_sessions_created_total{kind="edge"} 1`)
	assert.Contains(t, out, `uiharness_interaction_fallbacks_total{op="dropdown_open",outcome="failed"} 1`)
	assert.Contains(t, out, "uiharness_sessions_active 1")
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.ScenarioRetried()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.retries))
}
