package routing

import (
	"sync/atomic"
	"testing"

	"github.com/fluxmq/broker/core"
	"github.com/fluxmq/broker/routing/mock"
)

func TestCopyOnWriteRoutingIndex_AddGetRemove(t *testing.T) {
	idx := NewCopyOnWriteRoutingIndex()
	if !idx.IsEmpty() {
		t.Fatal("new index should be empty")
	}

	b1 := mock.NewLocalBinding(1, "q1", "orders", "node-1")
	b2 := mock.NewLocalBinding(2, "q2", "orders", "node-2")
	idx.AddIfAbsent("orders", b1)
	idx.AddIfAbsent("orders", b2)

	bindings, cursor, ok := idx.GetBindings("orders")
	if !ok {
		t.Fatal("expected routing group orders to exist")
	}
	if len(bindings) != 2 || bindings[0].UniqueName() != "q1" || bindings[1].UniqueName() != "q2" {
		t.Fatalf("unexpected insertion order: %v", bindings)
	}
	if cursor == nil {
		t.Fatal("expected a non-nil cursor")
	}

	if !idx.Remove("orders", "q1") {
		t.Fatal("expected removal of q1 to succeed")
	}
	bindings, _, ok = idx.GetBindings("orders")
	if !ok || len(bindings) != 1 || bindings[0].UniqueName() != "q2" {
		t.Fatalf("unexpected state after removing q1: %v", bindings)
	}

	if !idx.Remove("orders", "q2") {
		t.Fatal("expected removal of q2 to succeed")
	}
	if _, _, ok = idx.GetBindings("orders"); ok {
		t.Fatal("expected routing group orders to be gone once empty")
	}
	if !idx.IsEmpty() {
		t.Fatal("expected index to be empty again")
	}
}

func TestCopyOnWriteRoutingIndex_RemoveUnknown(t *testing.T) {
	idx := NewCopyOnWriteRoutingIndex()
	if idx.Remove("orders", "nope") {
		t.Fatal("removing from a nonexistent group must report false")
	}
	idx.AddIfAbsent("orders", mock.NewLocalBinding(1, "q1", "orders", "node-1"))
	if idx.Remove("orders", "nope") {
		t.Fatal("removing an unknown unique name must report false")
	}
}

func TestCopyOnWriteRoutingIndex_ForEachBindings(t *testing.T) {
	idx := NewCopyOnWriteRoutingIndex()
	idx.AddIfAbsent("orders", mock.NewLocalBinding(1, "q1", "orders", "node-1"))
	idx.AddIfAbsent("payments", mock.NewLocalBinding(2, "q2", "payments", "node-1"))

	seen := make(map[string]int)
	idx.ForEachBindings(func(routingName string, bindings []core.Binding, _ *atomic.Int32) {
		seen[routingName] = len(bindings)
	})
	if seen["orders"] != 1 || seen["payments"] != 1 {
		t.Fatalf("unexpected group sizes: %v", seen)
	}
}

func TestCopyOnWriteRoutingIndex_CopyAsMapIsIndependent(t *testing.T) {
	idx := NewCopyOnWriteRoutingIndex()
	idx.AddIfAbsent("orders", mock.NewLocalBinding(1, "q1", "orders", "node-1"))

	snap := idx.CopyAsMap()
	idx.AddIfAbsent("orders", mock.NewLocalBinding(2, "q2", "orders", "node-2"))

	if len(snap["orders"]) != 1 {
		t.Fatalf("snapshot must not observe later mutations, got %d entries", len(snap["orders"]))
	}
	bindings, _, _ := idx.GetBindings("orders")
	if len(bindings) != 2 {
		t.Fatalf("expected live index to have 2 entries, got %d", len(bindings))
	}
}
