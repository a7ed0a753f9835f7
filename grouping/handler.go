// Package grouping implements the consensus-style proposal/response exchange
// that backs strict-ordering sticky routing (spec.md §4.5, §6 "GroupingHandler
// interface"). The routing package's Coordinator (grouping.go) drives the
// protocol; this package owns the Handler contract and two implementations:
// an in-memory reference handler for single-node/test use, and a networked
// one (wire.go, transport.go) for a real cluster.
/*
 * Copyright (c) 2026, FluxMQ Authors. All rights reserved.
 */
package grouping

// Proposal is sent to propose a clusterName as the sticky binding for fullID
// (groupID + "." + routingName, per spec.md §4.5 step 1).
type Proposal struct {
	FullID      string
	ClusterName string
}

// Response is returned by GetProposal/Propose. AlternativeClusterName is set
// only on a decline.
type Response struct {
	GroupID                string
	ClusterName            string
	ChosenClusterName      string
	AlternativeClusterName string
	hasAlternative         bool
}

func (r *Response) HasAlternative() bool { return r.hasAlternative }

func NewDeclined(groupID, clusterName, alternative string) *Response {
	return &Response{
		GroupID:                groupID,
		ClusterName:            clusterName,
		AlternativeClusterName: alternative,
		hasAlternative:         true,
	}
}

func NewAccepted(groupID, clusterName string) *Response {
	return &Response{GroupID: groupID, ClusterName: clusterName, ChosenClusterName: clusterName}
}

// Handler is the external collaborator spec.md §6 calls "GroupingHandler".
// A nil *Response return from Propose means a timeout (spec.md §4.5: "the
// timeout manifests as a null response, not an exception").
type Handler interface {
	// GetProposal looks up (or, if useCache is false, bypasses the cache and
	// re-derives) the current proposal for fullID.
	GetProposal(fullID string, useCache bool) *Response
	// Propose asks the cluster to accept clusterName as the sticky binding
	// for p.FullID. Returns nil on timeout.
	Propose(p Proposal) *Response
	// ForceRemove tells the handler the proposal it returned no longer
	// refers to a live binding (spec.md §4.5 step 4b).
	ForceRemove(groupID, clusterName string)
	// RecentlyRemoved is a best-effort, false-positives-allowed check a
	// Coordinator consults before trusting a GetProposal hit, to skip
	// straight to re-selection for a (groupID, clusterName) pair that was
	// recently force-removed rather than spending a round trip discovering
	// the same thing again.
	RecentlyRemoved(groupID, clusterName string) bool
}
