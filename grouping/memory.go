package grouping

import (
	"sync"

	cuckoo "github.com/seiflotfy/cuckoofilter"

	"github.com/fluxmq/broker/cmn/cos"
)

// InMemoryHandler is the reference GroupingHandler: a single-process
// tie-breaker useful for tests and for a single-node deployment where there
// is no cluster to reach consensus with - the first proposal for a fullID
// always wins.
//
// A forced-removed (fullID, clusterName) pair is remembered in a cuckoo
// filter so a Coordinator that still holds a stale GetProposal answer for a
// hot group id can tell, via RecentlyRemoved, that the answer is already
// known-dead and skip straight to re-selection instead of chasing it through
// a doomed lookup first; false positives only cost one extra re-selection.
type InMemoryHandler struct {
	mu        sync.Mutex
	proposals map[string]*Response // fullID -> accepted proposal
	removed   *cuckoo.Filter
}

func NewInMemoryHandler() *InMemoryHandler {
	return &InMemoryHandler{
		proposals: make(map[string]*Response, 64),
		removed:   cuckoo.NewFilter(1024),
	}
}

func (h *InMemoryHandler) GetProposal(fullID string, useCache bool) *Response {
	if !useCache {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.proposals[fullID]
}

func (h *InMemoryHandler) Propose(p Proposal) *Response {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.proposals[p.FullID]; ok {
		if existing.ChosenClusterName == p.ClusterName {
			return existing
		}
		return NewDeclined(p.FullID, p.ClusterName, existing.ChosenClusterName)
	}
	resp := NewAccepted(p.FullID, p.ClusterName)
	h.proposals[p.FullID] = resp
	return resp
}

func (h *InMemoryHandler) ForceRemove(groupID, clusterName string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.proposals, groupID)
	h.removed.InsertUnique(cos.UnsafeB(groupID + "." + clusterName))
}

// RecentlyRemoved is a best-effort, false-positives-allowed check a
// Coordinator consults after a GetProposal hit, to skip straight to
// re-selection when that (fullID, clusterName) pair was recently
// force-removed.
func (h *InMemoryHandler) RecentlyRemoved(groupID, clusterName string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removed.Lookup(cos.UnsafeB(groupID + "." + clusterName))
}
