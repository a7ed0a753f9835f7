// Package core defines the domain types the routing engine operates on:
// Binding, Message, RoutingContext, and the load-balancing Mode. These are
// the contracts spec.md §6 calls "external interfaces" - the post-office and
// queue layers implement Binding and Message; RoutingContext is produced by
// a session/consumer layer and merely consulted here.
/*
 * Copyright (c) 2026, FluxMQ Authors. All rights reserved.
 */
package core

import "sync/atomic"

// globalVersion is the process-wide monotonic counter from spec.md §3
// invariant (V) and §9 "process-wide version counter": a single counter
// shared by every BindingsTable in the process so a RoutingContext handed
// from one table to another can never collide on a version number it
// happens to also have seen from the first. Overflow wraps (int32 arithmetic)
// and is tolerated: versions are compared only for equality, never ordered.
var globalVersion int32

// NextVersion hands out the next process-wide version number. Call exactly
// once per successful mutation (add, remove, queue-updated).
func NextVersion() int32 {
	return atomic.AddInt32(&globalVersion, 1)
}

// CurrentVersion peeks at the latest version handed out process-wide,
// without bumping it. BindingsTable.Route does not call it: it stamps a
// RoutingContext with the version the table itself last stored.
func CurrentVersion() int32 {
	return atomic.LoadInt32(&globalVersion)
}
