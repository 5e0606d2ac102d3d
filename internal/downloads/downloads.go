// internal/downloads/downloads.go
package downloads

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultInterval is how often the directory is listed when no filesystem event arrives.
const DefaultInterval = 500 * time.Millisecond

// Find lists dir once and returns the first entry whose name contains pattern.
// A missing directory is reported as no match.
func Find(dir, pattern string) (string, bool, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("listing %s: %w", dir, err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), pattern) {
			return filepath.Join(dir, e.Name()), true, nil
		}
	}
	return "", false, nil
}

// Poller checks a download directory for files by name. The directory listing
// always decides; fsnotify events only trigger an early re-listing.
type Poller struct {
	Interval time.Duration
	logger   *zap.Logger
}

func NewPoller(logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{Interval: DefaultInterval, logger: logger.Named("downloads")}
}

// WaitFor blocks until an entry of dir contains pattern, the timeout passes, or
// ctx is done. It returns the matched path.
func (p *Poller) WaitFor(ctx context.Context, dir, pattern string, timeout time.Duration) (string, bool) {
	return p.poll(ctx, dir, pattern, timeout, func(path string) bool { return true })
}

// Present reports whether a matching file shows up within timeout.
func (p *Poller) Present(ctx context.Context, dir, pattern string, timeout time.Duration) bool {
	p.logger.Info("Checking for downloaded file.", zap.String("pattern", pattern), zap.String("dir", dir))
	_, ok := p.WaitFor(ctx, dir, pattern, timeout)
	if !ok {
		p.logger.Warn("File did not appear before the timeout.", zap.String("pattern", pattern), zap.Duration("timeout", timeout))
	}
	return ok
}

// Remove waits for a matching file and deletes it. It reports whether a file was deleted.
func (p *Poller) Remove(ctx context.Context, dir, pattern string, timeout time.Duration) bool {
	p.logger.Info("Deleting downloaded file.", zap.String("pattern", pattern), zap.String("dir", dir))
	_, ok := p.poll(ctx, dir, pattern, timeout, func(path string) bool {
		if err := os.Remove(path); err != nil {
			p.logger.Debug("Delete attempt failed.", zap.String("path", path), zap.Error(err))
			return false
		}
		p.logger.Info("Deleted downloaded file.", zap.String("path", path))
		return true
	})
	return ok
}

func (p *Poller) poll(ctx context.Context, dir, pattern string, timeout time.Duration, accept func(path string) bool) (string, bool) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	events, closeWatch := p.watch(dir)
	defer closeWatch()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		path, found, err := Find(dir, pattern)
		if err != nil {
			p.logger.Debug("Listing failed.", zap.Error(err))
		}
		if found && accept(path) {
			return path, true
		}
		select {
		case <-ctx.Done():
			return "", false
		case <-ticker.C:
		case <-events:
		}
	}
}

// watch subscribes to create and rename events in dir. Without a watcher the
// returned channel never fires and polling falls back to the ticker alone.
func (p *Poller) watch(dir string) (<-chan struct{}, func()) {
	notify := make(chan struct{}, 1)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		p.logger.Debug("fsnotify unavailable, polling only.", zap.Error(err))
		return notify, func() {}
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		p.logger.Debug("Cannot watch download directory.", zap.String("dir", dir), zap.Error(err))
		return notify, func() {}
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for {
			select {
			case <-done:
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Rename|fsnotify.Write) == 0 {
					continue
				}
				select {
				case notify <- struct{}{}:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				p.logger.Debug("Watcher error.", zap.Error(err))
			}
		}
	}()

	return notify, func() {
		close(done)
		w.Close()
		<-stopped
	}
}
