// Package routing implements the Bindings Table: the per-address engine that
// decides which queue bindings receive a copy of an inbound message
// (spec.md, all sections).
/*
 * Copyright (c) 2026, FluxMQ Authors. All rights reserved.
 */
package routing

import (
	"sync"
	"sync/atomic"

	"github.com/fluxmq/broker/cmn/cos"
	"github.com/fluxmq/broker/core"
)

// nshards spreads the copy-on-write map's write lock across independent
// buckets hashed by routing name (cmn/cos.HashRoutingName), so adding a
// binding to one routing group never serializes with a write to an unrelated
// one. Reads take a shard's read lock only for the map lookup; the binding
// array itself is then loaded by atomic pointer - see group.snapshot.
const nshards = 32

// group is one routing group's state: an immutable binding array published
// by atomic pointer swap, plus the rotating cursor from spec.md invariant
// (R). The cursor is a separate allocation referenced by the map entry so it
// survives the array being replaced wholesale on every add/remove
// (spec.md §9 "Copy-on-write arrays").
type group struct {
	arr    atomic.Pointer[[]core.Binding]
	cursor atomic.Int32
}

func (g *group) snapshot() []core.Binding {
	p := g.arr.Load()
	if p == nil {
		return nil
	}
	return *p
}

// CopyOnWriteRoutingIndex maps routingName -> (ordered binding array,
// rotating cursor). Reads (GetBindings, ForEachBindings, IsEmpty) hold the
// shard's read lock while they look up the routing group, so they can wait
// behind a writer holding that shard's lock; they are not lock-free. The
// binding array they hand back is an immutable snapshot loaded by atomic
// pointer, and no lock is held while the caller uses it. Writes
// (AddIfAbsent, Remove) serialize per-shard (spec.md §4.2).
type CopyOnWriteRoutingIndex struct {
	shards [nshards]shard
}

type shard struct {
	mu     sync.RWMutex
	groups map[string]*group
}

func NewCopyOnWriteRoutingIndex() *CopyOnWriteRoutingIndex {
	idx := &CopyOnWriteRoutingIndex{}
	for i := range idx.shards {
		idx.shards[i].groups = make(map[string]*group, 8)
	}
	return idx
}

func (idx *CopyOnWriteRoutingIndex) shardFor(routingName string) *shard {
	return &idx.shards[cos.HashRoutingName(routingName, nshards)]
}

// GetBindings returns the current binding array and cursor cell for
// routingName, or ok=false if the routing group does not exist. The returned
// slice is immutable; callers (RouteSelector) never write through it.
func (idx *CopyOnWriteRoutingIndex) GetBindings(routingName string) (bindings []core.Binding, cursor *atomic.Int32, ok bool) {
	sh := idx.shardFor(routingName)
	sh.mu.RLock()
	g, found := sh.groups[routingName]
	sh.mu.RUnlock()
	if !found {
		return nil, nil, false
	}
	return g.snapshot(), &g.cursor, true
}

// AddIfAbsent appends b to the tail of its routing group (spec.md invariant
// U2: insertion order), creating the group with a fresh zero cursor if this
// is the first binding for routingName.
func (idx *CopyOnWriteRoutingIndex) AddIfAbsent(routingName string, b core.Binding) {
	sh := idx.shardFor(routingName)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	g, ok := sh.groups[routingName]
	if !ok {
		g = &group{}
		sh.groups[routingName] = g
	}
	old := g.snapshot()
	next := make([]core.Binding, len(old), len(old)+1)
	copy(next, old)
	next = append(next, b)
	g.arr.Store(&next)
}

// Remove drops the binding named uniqueName from routingName's group,
// preserving the relative order of the remainder (U2). Reports whether
// anything was removed. When the group empties out, its map entry - and its
// cursor - are discarded.
func (idx *CopyOnWriteRoutingIndex) Remove(routingName, uniqueName string) bool {
	sh := idx.shardFor(routingName)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	g, ok := sh.groups[routingName]
	if !ok {
		return false
	}
	old := g.snapshot()
	idxFound := -1
	for i, b := range old {
		if b.UniqueName() == uniqueName {
			idxFound = i
			break
		}
	}
	if idxFound < 0 {
		return false
	}
	next := make([]core.Binding, 0, len(old)-1)
	next = append(next, old[:idxFound]...)
	next = append(next, old[idxFound+1:]...)
	if len(next) == 0 {
		delete(sh.groups, routingName)
		return true
	}
	g.arr.Store(&next)
	return true
}

// ForEachBindings iterates every routing group once, in unspecified order,
// used by simple and grouped routing (spec.md §4.2).
func (idx *CopyOnWriteRoutingIndex) ForEachBindings(fn func(routingName string, bindings []core.Binding, cursor *atomic.Int32)) {
	for i := range idx.shards {
		sh := &idx.shards[i]
		sh.mu.RLock()
		names := make([]string, 0, len(sh.groups))
		groups := make([]*group, 0, len(sh.groups))
		for name, g := range sh.groups {
			names = append(names, name)
			groups = append(groups, g)
		}
		sh.mu.RUnlock()

		for i, g := range groups {
			fn(names[i], g.snapshot(), &g.cursor)
		}
	}
}

// IsEmpty reports whether the index currently has no routing groups.
func (idx *CopyOnWriteRoutingIndex) IsEmpty() bool {
	for i := range idx.shards {
		sh := &idx.shards[i]
		sh.mu.RLock()
		n := len(sh.groups)
		sh.mu.RUnlock()
		if n > 0 {
			return false
		}
	}
	return true
}

// CopyAsMap is a debug/test-only snapshot of the whole index.
func (idx *CopyOnWriteRoutingIndex) CopyAsMap() map[string][]core.Binding {
	out := make(map[string][]core.Binding)
	idx.ForEachBindings(func(name string, bindings []core.Binding, _ *atomic.Int32) {
		cp := make([]core.Binding, len(bindings))
		copy(cp, bindings)
		out[name] = cp
	})
	return out
}
