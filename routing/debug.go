package routing

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/tidwall/buntdb"

	"github.com/fluxmq/broker/cmn/nlog"
	"github.com/fluxmq/broker/core"
)

// DebugDump renders the table's byID and byUniqueName registries, its
// current routing groups and its exclusive bindings with go-spew, for use
// from an operator shell or a failing test's t.Log - never on the route hot
// path.
func (t *BindingsTable) DebugDump() string {
	byID := make(map[int64]string)
	t.byID.Range(func(k, v any) bool {
		byID[k.(int64)] = v.(core.Binding).UniqueName()
		return true
	})
	var byUniqueName []string
	t.byUniqueName.Range(func(k, _ any) bool {
		byUniqueName = append(byUniqueName, k.(string))
		return true
	})
	cfg := spew.ConfigState{Indent: "  ", DisableMethods: true, DisablePointerAddresses: true}
	return cfg.Sdump(struct {
		Address      string
		Mode         string
		Version      int32
		ByID         map[int64]string
		ByUniqueName []string
		Groups       map[string][]string
		Exclusive    []string
	}{
		Address:      t.address,
		Mode:         t.Mode().String(),
		Version:      t.version.Load(),
		ByID:         byID,
		ByUniqueName: byUniqueName,
		Groups:       uniqueNamesByGroup(t.routingIndex.CopyAsMap()),
		Exclusive:    uniqueNames(t.exclusive.snapshot()),
	})
}

func uniqueNamesByGroup(groups map[string][]core.Binding) map[string][]string {
	out := make(map[string][]string, len(groups))
	for name, bindings := range groups {
		out[name] = uniqueNames(bindings)
	}
	return out
}

func uniqueNames(bindings []core.Binding) []string {
	names := make([]string, len(bindings))
	for i, b := range bindings {
		names[i] = b.UniqueName()
	}
	return names
}

// DebugIndex is an ad-hoc, in-memory, queryable snapshot of one table's
// routing-name -> unique-name membership, built on demand for a debug
// console; it is never kept up to date automatically and must be rebuilt
// with Refresh after the table changes.
type DebugIndex struct {
	db *buntdb.DB
}

// NewDebugIndex opens an in-memory buntdb database and loads t's current
// state into it.
func NewDebugIndex(t *BindingsTable) (*DebugIndex, error) {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, err
	}
	di := &DebugIndex{db: db}
	if err := di.Refresh(t); err != nil {
		db.Close()
		return nil, err
	}
	return di, nil
}

// Refresh replaces the index's contents with t's current bindings, one
// key per (routingName, uniqueName) pair.
func (di *DebugIndex) Refresh(t *BindingsTable) error {
	return di.db.Update(func(tx *buntdb.Tx) error {
		var toDelete []string
		_ = tx.Ascend("", func(key, _ string) bool {
			toDelete = append(toDelete, key)
			return true
		})
		for _, k := range toDelete {
			if _, err := tx.Delete(k); err != nil && err != buntdb.ErrNotFound {
				return err
			}
		}
		for routingName, bindings := range t.routingIndex.CopyAsMap() {
			for _, b := range bindings {
				key := fmt.Sprintf("%s/%s", routingName, b.UniqueName())
				if _, _, err := tx.Set(key, b.ClusterName(), nil); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// ClusterNamesForRoutingName returns every cluster name bound under
// routingName, as currently indexed.
func (di *DebugIndex) ClusterNamesForRoutingName(routingName string) ([]string, error) {
	var out []string
	err := di.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(routingName+"/*", func(_, value string) bool {
			out = append(out, value)
			return true
		})
	})
	return out, err
}

// Close releases the underlying in-memory database.
func (di *DebugIndex) Close() error { return di.db.Close() }

// QueryClusterNames is the operator-facing query path DebugIndex exists for:
// it lazily builds the table's debug index on first use, refreshes it to
// reflect the table's current state, and returns every cluster name bound
// under routingName. Not on the route hot path - every call pays for a full
// Refresh, trading per-call cost for never returning a stale answer.
func (t *BindingsTable) QueryClusterNames(routingName string) ([]string, error) {
	t.debugIdxMu.Lock()
	defer t.debugIdxMu.Unlock()

	if t.debugIdx == nil {
		di, err := NewDebugIndex(t)
		if err != nil {
			return nil, err
		}
		t.debugIdx = di
	} else if err := t.debugIdx.Refresh(t); err != nil {
		return nil, err
	}
	return t.debugIdx.ClusterNamesForRoutingName(routingName)
}

func logDebugDumpOnPanic(t *BindingsTable) {
	if r := recover(); r != nil {
		nlog.Errorf("panic routing on %s: %v\n%s", t.address, r, t.DebugDump())
		panic(r)
	}
}
