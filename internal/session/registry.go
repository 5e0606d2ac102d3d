// internal/session/registry.go
package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/xkilldash9x/uiharness/internal/browser/driver"
	"github.com/xkilldash9x/uiharness/internal/wait"
)

// ErrAlreadyRegistered is returned by Put when the worker already owns a session.
var ErrAlreadyRegistered = errors.New("worker already has a registered session")

// WorkerID identifies one concurrently running scenario.
type WorkerID string

// Session is one live browser automation connection, owned by a single worker.
type Session struct {
	ID        string
	Worker    WorkerID
	Kind      driver.Kind
	Driver    driver.Driver
	CreatedAt time.Time
}

// Entry is what the registry stores per worker.
type Entry struct {
	Session *Session
	Waits   wait.Pair
}

// Registry maps worker identities to the session and waits they own.
// An entry stays until Remove is called for its worker.
type Registry struct {
	mu      sync.RWMutex
	entries map[WorkerID]Entry

	// creating collapses concurrent creations for the same worker.
	creating singleflight.Group
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[WorkerID]Entry)}
}

// Put stores the session and its waits in one step.
func (r *Registry) Put(worker WorkerID, s *Session, waits wait.Pair) error {
	if s == nil || waits.Bounded == nil || waits.Polling == nil {
		return fmt.Errorf("registering worker %q: session and both waits are required", worker)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[worker]; exists {
		return fmt.Errorf("registering worker %q: %w", worker, ErrAlreadyRegistered)
	}
	r.entries[worker] = Entry{Session: s, Waits: waits}
	return nil
}

func (r *Registry) Get(worker WorkerID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[worker]
	return e.Session, ok
}

func (r *Registry) Waits(worker WorkerID) (wait.Pair, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[worker]
	return e.Waits, ok
}

// Remove drops the worker's entry and returns it.
func (r *Registry) Remove(worker WorkerID) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[worker]
	if ok {
		delete(r.entries, worker)
	}
	return e, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Workers lists every worker with a registered session, sorted.
func (r *Registry) Workers() []WorkerID {
	r.mu.RLock()
	ids := make([]WorkerID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
