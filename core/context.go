package core

import "sync"

// RoutingContext is produced by the caller (a session/consumer layer) and
// accumulates the bindings chosen for one message (spec.md §4.2, §6). The
// core only ever calls Clear/SetReusable/IsReusable on it; everything else
// (how chosen bindings are recorded) is up to the implementation the host
// process supplies to Binding.Route.
type RoutingContext interface {
	Clear()
	// SetReusable records whether this routing decision may be replayed
	// without re-selection, and at which table version it was computed.
	// Per spec.md §6: once SetReusable(false, ...) has been called for a
	// given invocation, later SetReusable(true, ...) calls for that same
	// invocation must have no effect.
	SetReusable(reusable bool, version int32)
	// IsReusable reports whether this context's prior decision still applies
	// to msg at the given table version.
	IsReusable(msg Message, version int32) bool
}

// DefaultContext is the reference RoutingContext: reusability is keyed on
// the table version alone (the core never varies a cached decision by
// message content once a version is pinned - see spec.md §4.4 step 1).
type DefaultContext struct {
	mu       sync.Mutex
	reusable bool
	pinned   bool // true once SetReusable(false, ...) has latched for this invocation
	version  int32
}

func NewDefaultContext() *DefaultContext { return &DefaultContext{} }

func (c *DefaultContext) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reusable = false
	c.pinned = false
	c.version = 0
}

func (c *DefaultContext) SetReusable(reusable bool, version int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pinned {
		return
	}
	if !reusable {
		c.pinned = true
	}
	c.reusable = reusable
	c.version = version
}

func (c *DefaultContext) IsReusable(_ Message, version int32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reusable && c.version == version
}
