// internal/session/context.go
package session

import "github.com/xkilldash9x/uiharness/internal/wait"

// Context binds a worker identity to the shared registry. Every lookup made
// through it is confined to that worker's entry.
type Context struct {
	worker   WorkerID
	registry *Registry
}

func NewContext(worker WorkerID, registry *Registry) *Context {
	return &Context{worker: worker, registry: registry}
}

func (c *Context) Worker() WorkerID { return c.worker }

func (c *Context) Registry() *Registry { return c.registry }

// Session returns the worker's live session, if any.
func (c *Context) Session() (*Session, bool) {
	return c.registry.Get(c.worker)
}

// Waits returns the wait pair built for the worker's live session.
func (c *Context) Waits() (wait.Pair, bool) {
	return c.registry.Waits(c.worker)
}

// HasSession reports whether the worker currently owns a session.
func (c *Context) HasSession() bool {
	_, ok := c.Session()
	return ok
}
