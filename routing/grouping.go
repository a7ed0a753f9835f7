package routing

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/fluxmq/broker/cmn"
	"github.com/fluxmq/broker/cmn/cos"
	"github.com/fluxmq/broker/cmn/nlog"
	"github.com/fluxmq/broker/core"
	"github.com/fluxmq/broker/grouping"
)

// routeGrouped implements spec.md §4.4 step 5 / §4.5: route one message that
// carries a group id through the Group Proposal Protocol, once per routing
// group, fanning the per-group work out with errgroup since the groups are
// independent of one another.
//
// Interpretation of a gap in spec.md §4.5 step 4b ("fall through to §4.4 step
// 7 ... for this single message"): read literally this could mean abandoning
// every group's already-committed route and re-running plain round-robin for
// the whole message, which isn't reconcilable with routes already having been
// delivered to other groups' bindings. This implementation instead falls
// back to plain round-robin scoped to the one routing group whose proposal
// retries are exhausted, leaving any other groups' grouped routing outcome
// untouched; see DESIGN.md.
func (t *BindingsTable) routeGrouped(msg core.Message, ctx core.RoutingContext, groupID string, version int32) error {
	var (
		mu     sync.Mutex
		chosen []core.Binding
		eg     errgroup.Group
	)
	t.routingIndex.ForEachBindings(func(routingName string, _ []core.Binding, _ *atomic.Int32) {
		routingName := routingName
		eg.Go(func() error {
			b, ok := t.routeOneGroupWithRetry(msg, groupID, routingName, 0)
			if ok {
				mu.Lock()
				chosen = append(chosen, b)
				mu.Unlock()
			}
			return nil
		})
	})
	_ = eg.Wait() // routeOneGroupWithRetry never returns a non-nil error

	for _, b := range chosen {
		if err := b.Route(msg, ctx); err != nil {
			return err
		}
	}
	ctx.SetReusable(false, version)
	t.stats.incRoutes()
	return nil
}

// routeOneGroupWithRetry resolves the binding for one routing group under
// the Group Proposal Protocol, refetching the group's current binding array
// on every attempt since a concurrent add/remove may have intervened between
// retries (spec.md §4.5 step 4b, §7 ConcurrentRemoval).
func (t *BindingsTable) routeOneGroupWithRetry(msg core.Message, groupID, routingName string, tries int) (core.Binding, bool) {
	bindings, cursor, ok := t.routingIndex.GetBindings(routingName)
	if !ok {
		return nil, false
	}
	fullID := groupID + "." + routingName

	if resp := t.grouping.GetProposal(fullID, true); resp != nil {
		if t.grouping.RecentlyRemoved(fullID, resp.ChosenClusterName) {
			// The cache still holds this answer, but we already know it was
			// force-removed - skip straight to a fresh Pick+Propose instead
			// of paying for a doomed findByClusterName/groupRoutingFailed
			// round trip.
			return t.routeFreshProposal(msg, groupID, routingName, bindings, cursor, tries)
		}
		if b := findByClusterName(bindings, resp.ChosenClusterName); b != nil {
			return b, true
		}
		return t.groupRoutingFailed(msg, groupID, routingName, resp, tries)
	}

	return t.routeFreshProposal(msg, groupID, routingName, bindings, cursor, tries)
}

func (t *BindingsTable) routeFreshProposal(msg core.Message, groupID, routingName string, bindings []core.Binding, cursor *atomic.Int32, tries int) (core.Binding, bool) {
	fullID := groupID + "." + routingName

	c, ok := Pick(msg, bindings, cursor, t.Mode())
	if !ok {
		return nil, false
	}
	presp := t.grouping.Propose(grouping.Proposal{FullID: fullID, ClusterName: c.ClusterName()})
	if presp == nil {
		t.stats.incGroupRetries()
		return t.groupRoutingFailed(msg, groupID, routingName, nil, tries)
	}
	if presp.ChosenClusterName == c.ClusterName() {
		return c, true
	}
	if presp.HasAlternative() {
		if alt := findByClusterName(bindings, presp.AlternativeClusterName); alt != nil {
			return alt, true
		}
	}
	return t.groupRoutingFailed(msg, groupID, routingName, presp, tries)
}

func (t *BindingsTable) groupRoutingFailed(msg core.Message, groupID, routingName string, resp *grouping.Response, tries int) (core.Binding, bool) {
	if resp != nil {
		t.grouping.ForceRemove(resp.GroupID, resp.ClusterName)
	}
	if tries < cmn.Rom.MaxGroupRetry() {
		return t.routeOneGroupWithRetry(msg, groupID, routingName, tries+1)
	}
	t.stats.incGroupExhausted()
	err := &cos.ErrGroupRoutingExhausted{GroupID: groupID, RoutingName: routingName, Tries: tries}
	nlog.Warningf("%s: %v, falling back to simple routing for this group", t.address, err)

	bindings, cursor, ok := t.routingIndex.GetBindings(routingName)
	if !ok {
		return nil, false
	}
	return Pick(msg, bindings, cursor, t.Mode())
}

func findByClusterName(bindings []core.Binding, clusterName string) core.Binding {
	for _, b := range bindings {
		if b.ClusterName() == clusterName {
			return b
		}
	}
	return nil
}
