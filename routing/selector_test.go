package routing

import (
	"sync/atomic"
	"testing"

	"github.com/fluxmq/broker/core"
	"github.com/fluxmq/broker/routing/mock"
)

func TestPick_SingleBinding(t *testing.T) {
	b := mock.NewLocalBinding(1, "q1", "orders", "node-1")
	var cursor atomic.Int32
	msg := mock.NewMessage("orders")

	chosen, ok := Pick(msg, []core.Binding{b}, &cursor, core.ModeOff)
	if !ok || chosen.UniqueName() != "q1" {
		t.Fatalf("expected q1, got %v ok=%v", chosen, ok)
	}
}

func TestPick_OffExcludesRemote(t *testing.T) {
	local := mock.NewLocalBinding(1, "local", "orders", "node-1")
	remote := mock.NewRemoteBinding(2, "remote", "orders", "node-2", 100, core.ModeOff)
	var cursor atomic.Int32
	msg := mock.NewMessage("orders")

	for range 10 {
		chosen, ok := Pick(msg, []core.Binding{local, remote}, &cursor, core.ModeOff)
		if !ok || chosen.UniqueName() != "local" {
			t.Fatalf("OFF mode must never select a remote binding, got %v ok=%v", chosen, ok)
		}
	}
}

func TestPick_OnDemandPrefersConnected(t *testing.T) {
	disconnected := mock.NewLocalBinding(1, "b1", "orders", "node-1")
	disconnected.SetConnected(false)
	connected := mock.NewLocalBinding(2, "b2", "orders", "node-2")

	var cursor atomic.Int32
	msg := mock.NewMessage("orders")
	bindings := []core.Binding{disconnected, connected}

	chosen, ok := Pick(msg, bindings, &cursor, core.ModeOnDemand)
	if !ok || chosen.UniqueName() != "b2" {
		t.Fatalf("expected connected binding b2, got %v ok=%v", chosen, ok)
	}
}

func TestPick_OnDemandLocalFallback(t *testing.T) {
	// Neither binding is connected; ON_DEMAND must still prefer the local
	// one over the remote one among the "best low priority" candidates.
	remote := mock.NewRemoteBinding(1, "remote", "orders", "node-1", 1, core.ModeOnDemand)
	remote.SetConnected(false)
	remote.SetHighAcceptPriority(false)
	local := mock.NewLocalBinding(2, "local", "orders", "node-2")
	local.SetConnected(false)
	local.SetHighAcceptPriority(false)

	var cursor atomic.Int32
	msg := mock.NewMessage("orders")
	bindings := []core.Binding{remote, local}

	chosen, ok := Pick(msg, bindings, &cursor, core.ModeOnDemand)
	if !ok || chosen.UniqueName() != "local" {
		t.Fatalf("expected local fallback, got %v ok=%v", chosen, ok)
	}
}

func TestPick_RoundRobinFairness(t *testing.T) {
	n := 4
	bindings := make([]core.Binding, n)
	counts := make(map[string]int, n)
	for i := range n {
		b := mock.NewLocalBinding(int64(i), "b"+string(rune('0'+i)), "orders", "node")
		bindings[i] = b
		counts[b.UniqueName()] = 0
	}
	var cursor atomic.Int32
	msg := mock.NewMessage("orders")

	const iterations = 100_000
	for range iterations {
		chosen, ok := Pick(msg, bindings, &cursor, core.ModeStrict)
		if !ok {
			t.Fatal("expected a binding to be chosen")
		}
		counts[chosen.UniqueName()]++
	}
	expected := iterations / n
	for name, c := range counts {
		if diff := c - expected; diff < -expected/10 || diff > expected/10 {
			t.Errorf("binding %s got %d routes, expected ~%d", name, c, expected)
		}
	}
}

func TestPick_NoMatch(t *testing.T) {
	b := mock.NewLocalBinding(1, "q1", "orders", "node-1")
	b.SetFilter(mock.FilterFunc(func(core.Message) bool { return false }))
	var cursor atomic.Int32
	msg := mock.NewMessage("orders")

	_, ok := Pick(msg, []core.Binding{b}, &cursor, core.ModeStrict)
	if ok {
		t.Fatal("expected no match when filter rejects the only binding")
	}
}

func TestPickForRedistribute_SkipsOrigin(t *testing.T) {
	origin := mock.NewLocalBinding(1, "origin", "orders", "node-1")
	peer := mock.NewLocalBinding(2, "peer", "orders", "node-2")
	var cursor atomic.Int32
	msg := mock.NewMessage("orders")

	chosen, ok := PickForRedistribute(msg, []core.Binding{origin, peer}, &cursor, origin)
	if !ok || chosen.UniqueName() != "peer" {
		t.Fatalf("expected peer, got %v ok=%v", chosen, ok)
	}
}

func TestPickForRedistribute_NoEligiblePeer(t *testing.T) {
	origin := mock.NewLocalBinding(1, "origin", "orders", "node-1")
	var cursor atomic.Int32
	msg := mock.NewMessage("orders")

	_, ok := PickForRedistribute(msg, []core.Binding{origin}, &cursor, origin)
	if ok {
		t.Fatal("expected no eligible peer when origin is the only binding")
	}
}
