package routing

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fluxmq/broker/routing/mock"
)

func TestTakeSnapshot(t *testing.T) {
	tbl := NewBindingsTable("orders-address", nil, nil)
	tbl.Add(mock.NewLocalBinding(1, "q1", "orders", "node-1"))
	excl := mock.NewLocalBinding(2, "q2", "orders", "node-2")
	excl.SetExclusive(true)
	tbl.Add(excl)

	got := tbl.TakeSnapshot()
	want := &Snapshot{
		Address:        "orders-address",
		Mode:           "OFF",
		Version:        got.Version, // assigned by the process-wide counter, not predictable
		RoutingGroups:  map[string][]string{"orders": {"q1"}},
		ExclusiveNames: []string{"q2"},
		BindingCount:   2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}
