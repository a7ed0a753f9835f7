package grouping

import "testing"

func TestInMemoryHandler_FirstProposalWins(t *testing.T) {
	h := NewInMemoryHandler()

	resp := h.Propose(Proposal{FullID: "group-1.orders", ClusterName: "cluster-a"})
	if resp.ChosenClusterName != "cluster-a" {
		t.Fatalf("expected cluster-a accepted, got %+v", resp)
	}

	resp2 := h.Propose(Proposal{FullID: "group-1.orders", ClusterName: "cluster-b"})
	if !resp2.HasAlternative() || resp2.AlternativeClusterName != "cluster-a" {
		t.Fatalf("expected decline with alternative cluster-a, got %+v", resp2)
	}

	resp3 := h.Propose(Proposal{FullID: "group-1.orders", ClusterName: "cluster-a"})
	if resp3.ChosenClusterName != "cluster-a" {
		t.Fatalf("expected re-proposing the same cluster to be accepted, got %+v", resp3)
	}
}

func TestInMemoryHandler_GetProposal(t *testing.T) {
	h := NewInMemoryHandler()
	if resp := h.GetProposal("group-1.orders", true); resp != nil {
		t.Fatalf("expected no cached proposal yet, got %+v", resp)
	}
	h.Propose(Proposal{FullID: "group-1.orders", ClusterName: "cluster-a"})
	resp := h.GetProposal("group-1.orders", true)
	if resp == nil || resp.ChosenClusterName != "cluster-a" {
		t.Fatalf("expected cached accepted proposal, got %+v", resp)
	}
	if resp := h.GetProposal("group-1.orders", false); resp != nil {
		t.Fatalf("useCache=false must bypass the cache, got %+v", resp)
	}
}

func TestInMemoryHandler_ForceRemove(t *testing.T) {
	h := NewInMemoryHandler()
	h.Propose(Proposal{FullID: "group-1.orders", ClusterName: "cluster-a"})
	h.ForceRemove("group-1.orders", "cluster-a")

	if resp := h.GetProposal("group-1.orders", true); resp != nil {
		t.Fatalf("expected proposal to be gone after ForceRemove, got %+v", resp)
	}
	if !h.RecentlyRemoved("group-1.orders", "cluster-a") {
		t.Fatal("expected RecentlyRemoved to report true right after ForceRemove")
	}
	if h.RecentlyRemoved("group-1.orders", "cluster-b") {
		t.Fatal("RecentlyRemoved must not match an unrelated cluster name")
	}

	// A fresh proposal for the same fullID is allowed to win again.
	resp := h.Propose(Proposal{FullID: "group-1.orders", ClusterName: "cluster-b"})
	if resp.ChosenClusterName != "cluster-b" {
		t.Fatalf("expected a fresh proposal to be accepted post-removal, got %+v", resp)
	}
}
