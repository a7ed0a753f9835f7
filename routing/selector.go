package routing

import (
	"sync/atomic"

	"github.com/fluxmq/broker/core"
)

// match implements spec.md §4.3's match(msg, b, L).
func match(msg core.Message, b core.Binding, mode core.Mode) bool {
	if mode == core.ModeOff && b.Kind() == core.KindRemoteQueue {
		return false
	}
	f := b.Filter()
	return f == nil || f.Matches(msg)
}

// Pick runs the RouteSelector algorithm of spec.md §4.3 over one routing
// group, advancing cursor by exactly one position on a successful selection
// (invariant R). Returns ok=false if no binding in bindings matched (the
// caller then proceeds as if the group were empty).
//
// The cursor is a shared, racily-read-and-written counter by design
// (spec.md §9 "Cursor race - intentional"): concurrent callers may briefly
// route two messages to the same binding, never zero.
func Pick(msg core.Message, bindings []core.Binding, cursor *atomic.Int32, mode core.Mode) (chosen core.Binding, ok bool) {
	n := len(bindings)
	if n == 0 {
		return nil, false
	}
	start := int(uint32(cursor.Load())) % n
	pos := start
	bestLow := -1

	for range n {
		b := bindings[pos]
		if match(msg, b, mode) {
			if n == 1 {
				return b, true
			}
			if b.IsConnected() && (mode == core.ModeStrict || b.IsHighAcceptPriority(msg)) {
				cursor.Store(int32((pos + 1) % n))
				return b, true
			}
			if bestLow < 0 || (mode == core.ModeOnDemand && b.Kind() == core.KindLocalQueue && bindings[bestLow].Kind() != core.KindLocalQueue) {
				bestLow = pos
			}
		}
		pos = (pos + 1) % n
	}
	if bestLow >= 0 {
		cursor.Store(int32((bestLow + 1) % n))
		return bindings[bestLow], true
	}
	return nil, false
}

// PickForRedistribute implements spec.md §4.6 step 3: walk the group from
// the cursor, pick the first binding that is not origin, filter-matches, and
// has an accepting consumer (IsHighAcceptPriority). Advances the cursor to
// the position after the one picked (or reached, if nothing matched).
func PickForRedistribute(msg core.Message, bindings []core.Binding, cursor *atomic.Int32, origin core.Binding) (chosen core.Binding, ok bool) {
	n := len(bindings)
	if n == 0 {
		return nil, false
	}
	start := int(uint32(cursor.Load())) % n
	pos := start
	for range n {
		b := bindings[pos]
		next := (pos + 1) % n
		if b.UniqueName() != origin.UniqueName() {
			f := b.Filter()
			if (f == nil || f.Matches(msg)) && b.IsHighAcceptPriority(msg) {
				cursor.Store(int32(next))
				return b, true
			}
		}
		pos = next
	}
	cursor.Store(int32(pos))
	return nil, false
}
