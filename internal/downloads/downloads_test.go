// internal/downloads/downloads_test.go
package downloads

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestFind(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "statement_2024-01.csv"), []byte("a"), 0o644))

	path, ok, err := Find(dir, "statement_")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "statement_2024-01.csv"), path)

	_, ok, err = Find(dir, "invoice")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = Find(filepath.Join(dir, "missing"), "x")
	require.NoError(t, err, "a missing directory is not an error")
	assert.False(t, ok)
}

func TestPresent_FileCreatedDuringPoll(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	p := NewPoller(zaptest.NewLogger(t))
	// a long interval proves the watcher, not the ticker, noticed the file
	p.Interval = 10 * time.Second

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "report-final.pdf"), []byte("%PDF"), 0o644)
	}()

	start := time.Now()
	ok := p.Present(context.Background(), dir, "report", 3*time.Second)
	assert.True(t, ok)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestPresent_TimesOut(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := NewPoller(zaptest.NewLogger(t))
	p.Interval = 20 * time.Millisecond

	start := time.Now()
	ok := p.Present(context.Background(), t.TempDir(), "never", 150*time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestPresent_MissingDirectoryPollsUntilTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := NewPoller(nil)
	p.Interval = 20 * time.Millisecond
	assert.False(t, p.Present(context.Background(), filepath.Join(t.TempDir(), "nope"), "x", 80*time.Millisecond))
}

func TestRemove(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	target := filepath.Join(dir, "export_123.xlsx")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	p := NewPoller(zaptest.NewLogger(t))
	p.Interval = 20 * time.Millisecond
	assert.True(t, p.Remove(context.Background(), dir, "export_", time.Second))
	_, err := os.Stat(target)
	assert.True(t, os.IsNotExist(err))

	assert.False(t, p.Remove(context.Background(), dir, "export_", 60*time.Millisecond))
}
