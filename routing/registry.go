package routing

import (
	"sync"

	"github.com/fluxmq/broker/cmn/nlog"
	"github.com/fluxmq/broker/grouping"
)

// Registry owns one BindingsTable per address - the post-office's view of
// "all the routing state in the process" (spec.md §1: the core is a library
// the post-office calls into per address, not a singleton of its own).
//
// Reads (Get) take only an RLock; writes (GetOrCreate's slow path, Remove)
// take the write lock, mirroring the xaction registry's active/roActive
// split without needing a read-only copy here since BindingsTable itself is
// already safe for concurrent use once published.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*BindingsTable

	handler grouping.Handler
	stats   func(address string) *Stats
}

// NewRegistry constructs an empty registry. handler is shared by every table
// created through it (nil disables grouped routing everywhere); statsFn, if
// non-nil, is called once per address to build that table's Stats.
func NewRegistry(handler grouping.Handler, statsFn func(address string) *Stats) *Registry {
	return &Registry{
		tables:  make(map[string]*BindingsTable, 64),
		handler: handler,
		stats:   statsFn,
	}
}

// Get returns the table for address, if one has been created.
func (r *Registry) Get(address string) (*BindingsTable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[address]
	return t, ok
}

// GetOrCreate returns the existing table for address, or atomically creates
// and stores a new empty one.
func (r *Registry) GetOrCreate(address string) *BindingsTable {
	r.mu.RLock()
	t, ok := r.tables[address]
	r.mu.RUnlock()
	if ok {
		return t
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok = r.tables[address]; ok {
		return t
	}
	var stats *Stats
	if r.stats != nil {
		stats = r.stats(address)
	}
	t = NewBindingsTable(address, r.handler, stats)
	r.tables[address] = t
	nlog.Infof("registry: created bindings table for %q", address)
	return t
}

// Remove drops the table for address entirely (the address itself is being
// deleted, not merely emptied of bindings).
func (r *Registry) Remove(address string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tables[address]; ok {
		delete(r.tables, address)
		nlog.Infof("registry: removed bindings table for %q", address)
	}
}

// Range calls fn once per (address, table) pair, in unspecified order. fn
// must not call back into Remove/GetOrCreate on the same registry.
func (r *Registry) Range(fn func(address string, t *BindingsTable)) {
	r.mu.RLock()
	snapshot := make(map[string]*BindingsTable, len(r.tables))
	for addr, t := range r.tables {
		snapshot[addr] = t
	}
	r.mu.RUnlock()
	for addr, t := range snapshot {
		fn(addr, t)
	}
}

// Len reports the number of addresses currently registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}
