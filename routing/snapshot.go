package routing

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshot is the JSON-serializable view of a BindingsTable exposed to
// whatever read-only inspection surface the host process wires up (the
// management/JMX layer itself is an excluded collaborator, spec.md §1 - this
// type only produces the data, it doesn't serve it).
type Snapshot struct {
	Address        string              `json:"address"`
	Mode           string              `json:"mode"`
	Version        int32               `json:"version"`
	RoutingGroups  map[string][]string `json:"routingGroups"` // routingName -> uniqueNames
	ExclusiveNames []string            `json:"exclusiveNames"`
	BindingCount   int                 `json:"bindingCount"`
}

// TakeSnapshot builds a Snapshot of t's current state. The routing groups
// are copied shard by shard under each shard's read lock and the exclusive
// set is read from its atomically published array, one after the other; the
// result is not a single atomic point-in-time view of the whole table (no
// such view exists without pausing every writer, which this package never
// does).
func (t *BindingsTable) TakeSnapshot() *Snapshot {
	groups := t.routingIndex.CopyAsMap()
	routingGroups := make(map[string][]string, len(groups))
	count := 0
	for name, bindings := range groups {
		routingGroups[name] = uniqueNames(bindings)
		count += len(bindings)
	}
	excl := t.exclusive.snapshot()
	count += len(excl)

	return &Snapshot{
		Address:        t.address,
		Mode:           t.Mode().String(),
		Version:        t.version.Load(),
		RoutingGroups:  routingGroups,
		ExclusiveNames: uniqueNames(excl),
		BindingCount:   count,
	}
}

// MarshalJSON encodes the snapshot with jsoniter for consistency with the
// rest of the host process's wire encoding, rather than encoding/json.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	type alias Snapshot // avoid recursing into this method
	return json.Marshal((*alias)(s))
}
