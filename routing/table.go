package routing

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/fluxmq/broker/cmn/cos"
	"github.com/fluxmq/broker/cmn/debug"
	"github.com/fluxmq/broker/cmn/nlog"
	"github.com/fluxmq/broker/core"
	"github.com/fluxmq/broker/grouping"
)

// BindingsTable is the per-address entity of spec.md §3/§4.1: it owns the
// three binding registries, the routing index, and the load-balancing mode,
// and exposes Add/RemoveByUniqueName/Route/Redistribute.
//
// byID and byUniqueName are sync.Map rather than a mutex-guarded map so that
// readers never block behind a writer (spec.md §5 "must permit concurrent
// reads and writes (no reader locking)"); exclusiveBindings gets the same
// copy-on-write treatment as the routing index, scaled down to a single
// unsharded group since it is "small, typically empty" (spec.md §3).
type BindingsTable struct {
	address string

	byID         sync.Map // int64 -> core.Binding
	byUniqueName sync.Map // string -> core.Binding
	exclusive    exclusiveSet

	routingIndex *CopyOnWriteRoutingIndex

	mode    atomic.Int32 // core.Mode
	version atomic.Int32

	grouping grouping.Handler // nil disables the Group Proposal Protocol (step 5)
	stats    *Stats

	debugIdxMu sync.Mutex
	debugIdx   *DebugIndex // lazily built, refreshed on every QueryClusterNames call
}

// exclusiveSet is exclusiveBindings (spec.md §3): a copy-on-write array
// guarded by a single mutex for writers, published by atomic pointer swap
// for readers - the routing index's pattern, minus the sharding, since this
// set is expected to stay small.
type exclusiveSet struct {
	mu  sync.Mutex
	arr atomic.Pointer[[]core.Binding]
}

func (s *exclusiveSet) snapshot() []core.Binding {
	p := s.arr.Load()
	if p == nil {
		return nil
	}
	return *p
}

func (s *exclusiveSet) add(b core.Binding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.snapshot()
	next := make([]core.Binding, len(old), len(old)+1)
	copy(next, old)
	next = append(next, b)
	s.arr.Store(&next)
}

func (s *exclusiveSet) remove(uniqueName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.snapshot()
	found := -1
	for i, b := range old {
		if b.UniqueName() == uniqueName {
			found = i
			break
		}
	}
	if found < 0 {
		return false
	}
	next := make([]core.Binding, 0, len(old)-1)
	next = append(next, old[:found]...)
	next = append(next, old[found+1:]...)
	s.arr.Store(&next)
	return true
}

// NewBindingsTable constructs an empty table for one address. handler may be
// nil, which disables grouped strict-ordering routing (spec.md §4.4 step 5
// is then always skipped).
func NewBindingsTable(address string, handler grouping.Handler, stats *Stats) *BindingsTable {
	t := &BindingsTable{
		address:      address,
		routingIndex: NewCopyOnWriteRoutingIndex(),
		grouping:     handler,
		stats:        stats,
	}
	t.version.Store(core.NextVersion())
	return t
}

func (t *BindingsTable) Mode() core.Mode { return core.Mode(t.mode.Load()) }

func (t *BindingsTable) SetLoadBalancingMode(mode core.Mode) {
	t.mode.Store(int32(mode))
	t.bumpVersion()
}

// AllowRedistribute reports whether Redistribute may run in the table's
// current mode (spec.md §4.1).
func (t *BindingsTable) AllowRedistribute() bool { return t.Mode().AllowRedistribute() }

func (t *BindingsTable) bumpVersion() { t.version.Store(core.NextVersion()) }

// Add inserts b, respecting invariant U1: it lands in exclusiveBindings XOR
// the routing index, never both, and is always indexed by id and unique
// name. Adding a remote-queue binding overwrites the table's load-balancing
// mode with the one it advertises (spec.md §4.1, §9 "Open question").
func (t *BindingsTable) Add(b core.Binding) {
	if b.IsExclusive() {
		t.exclusive.add(b)
	} else {
		t.routingIndex.AddIfAbsent(b.RoutingName(), b)
	}
	t.byID.Store(b.ID(), b)
	t.byUniqueName.Store(b.UniqueName(), b)

	if b.Kind() == core.KindRemoteQueue {
		if rb, ok := b.(core.RemoteQueueBinding); ok {
			t.SetLoadBalancingMode(rb.AdvertisedMode())
			// SetLoadBalancingMode already bumped the version.
			nlog.Infof("%s: binding %s advertises mode %s, table mode now %s", t.address, b.UniqueName(), rb.AdvertisedMode(), t.Mode())
			return
		}
	}
	t.bumpVersion()
	nlog.Infof("%s: added binding %s (routing name %q)", t.address, b.UniqueName(), b.RoutingName())
}

// RemoveByUniqueName removes and returns the binding named name, or
// (nil, false) if no such binding exists. Bumps the version only on success.
func (t *BindingsTable) RemoveByUniqueName(name string) (core.Binding, bool) {
	v, ok := t.byUniqueName.Load(name)
	if !ok {
		return nil, false
	}
	b := v.(core.Binding)
	t.byUniqueName.Delete(name)
	t.byID.Delete(b.ID())
	if b.IsExclusive() {
		t.exclusive.remove(name)
	} else {
		t.routingIndex.Remove(b.RoutingName(), name)
	}
	t.bumpVersion()
	nlog.Infof("%s: removed binding %s", t.address, name)
	return b, true
}

// OnQueueUpdated makes no structural change but bumps the version, which
// invalidates any RoutingContext cached at the prior version.
func (t *BindingsTable) OnQueueUpdated(b core.Binding) {
	t.bumpVersion()
	nlog.Infof("%s: queue updated for binding %s", t.address, b.UniqueName())
}

// Unproposed fans out a "proposal cleared" notification to every binding in
// the table (spec.md §4.1).
func (t *BindingsTable) Unproposed(groupID string) {
	t.byUniqueName.Range(func(_, v any) bool {
		v.(core.Binding).Unproposed(groupID)
		return true
	})
}

func (t *BindingsTable) findByID(id int64) (core.Binding, bool) {
	v, ok := t.byID.Load(id)
	if !ok {
		return nil, false
	}
	return v.(core.Binding), true
}

func (t *BindingsTable) findRemoteByRemoteQueueID(remoteID int64) (core.Binding, bool) {
	var found core.Binding
	t.byUniqueName.Range(func(_, v any) bool {
		b := v.(core.Binding)
		if b.Kind() != core.KindRemoteQueue {
			return true
		}
		rb, ok := b.(core.RemoteQueueBinding)
		if ok && rb.RemoteQueueID() == remoteID {
			found = b
			return false
		}
		return true
	})
	return found, found != nil
}

// Route dispatches msg per the fixed-order protocol of spec.md §4.4: each
// clause is tried in turn and the first one that applies handles the message
// and returns.
func (t *BindingsTable) Route(msg core.Message, ctx core.RoutingContext) error {
	defer logDebugDumpOnPanic(t)
	version := t.version.Load()

	// 1. Reusable-context fast path.
	if ctx.IsReusable(msg, version) {
		return nil
	}

	// 2. Scale-down sidechannel.
	t.translateScaledown(msg)

	// 3. Exclusive bindings.
	if excl := t.exclusive.snapshot(); len(excl) > 0 {
		ctx.Clear()
		routed := false
		for _, b := range excl {
			f := b.Filter()
			if f != nil && !f.Matches(msg) {
				continue
			}
			if err := b.Route(msg, ctx); err != nil {
				return errors.Wrapf(err, "exclusive binding %s", b.UniqueName())
			}
			routed = true
		}
		if routed {
			ctx.SetReusable(false, version)
			t.stats.incRoutes()
			return nil
		}
	}

	// 4. Explicit cluster directive.
	if err := t.routeExplicitDirective(msg, ctx, version); err != errNoDirective {
		return err
	}

	// 5. Grouped strict ordering.
	if t.grouping != nil {
		if groupID, has := msg.GroupID(); has {
			return t.routeGrouped(msg, ctx, groupID, version)
		}
	}

	// 6. Fully-qualified address.
	if addr := msg.Address(); strings.Contains(addr, "::") {
		return t.routeFullyQualified(msg, ctx, addr, version)
	}

	// 7. Simple round-robin.
	return t.routeSimple(msg, ctx, version)
}

func (t *BindingsTable) translateScaledown(msg core.Message) {
	b, ok := msg.GetBytesProperty(core.HdrScaledownToIDs)
	if !ok {
		return
	}
	msg.RemoveProperty(core.HdrScaledownToIDs)
	var local []int64
	for _, remoteID := range core.DecodeIDs(b) {
		if lb, found := t.findRemoteByRemoteQueueID(remoteID); found {
			local = append(local, lb.ID())
		}
	}
	if len(local) > 0 {
		msg.SetBytesProperty(core.HdrRouteToIDs, core.EncodeIDs(local))
	}
}

var errNoDirective = errors.New("no explicit route directive")

func (t *BindingsTable) routeExplicitDirective(msg core.Message, ctx core.RoutingContext, version int32) error {
	routeBytes, hasRoute := msg.GetBytesProperty(core.HdrRouteToIDs)
	msg.RemoveProperty(core.HdrRouteToIDs)
	ackBytes, hasAck := msg.GetBytesProperty(core.HdrRouteToAckIDs)
	msg.RemoveProperty(core.HdrRouteToAckIDs)
	if !hasRoute {
		return errNoDirective
	}

	ackSet := make(map[int64]bool)
	if hasAck {
		for _, id := range core.DecodeIDs(ackBytes) {
			ackSet[id] = true
		}
	}

	errs := &cos.Errs{}
	for _, id := range core.DecodeIDs(routeBytes) {
		b, ok := t.findByID(id)
		if !ok {
			err := &cos.ErrRouteDirectiveUnknownID{BindingID: id, MsgSummary: msg.Summary()}
			nlog.Warningf("%s: %v", t.address, err)
			errs.Add(err)
			t.stats.incDirectiveMiss()
			continue
		}
		var err error
		if ackSet[id] {
			err = b.RouteWithAck(msg, ctx)
		} else {
			err = b.Route(msg, ctx)
		}
		if err != nil {
			return errors.Wrapf(err, "binding id %d", id)
		}
	}
	ctx.SetReusable(false, version)
	t.stats.incRoutes()
	_, err := errs.JoinErr()
	return err
}

func (t *BindingsTable) routeFullyQualified(msg core.Message, ctx core.RoutingContext, addr string, version int32) error {
	idx := strings.Index(addr, "::")
	queueName := addr[idx+2:]
	ctx.SetReusable(false, version)
	v, ok := t.byUniqueName.Load(queueName)
	if !ok {
		// spec.md §9: silent drop, no exclusive/grouped fallback.
		nlog.Warningf("%s: fully-qualified address %q names no binding, dropping", t.address, addr)
		return nil
	}
	b := v.(core.Binding)
	t.stats.incRoutes()
	if err := b.Route(msg, ctx); err != nil {
		return errors.Wrapf(err, "fully-qualified binding %s", b.UniqueName())
	}
	return nil
}

func (t *BindingsTable) routeSimple(msg core.Message, ctx core.RoutingContext, version int32) error {
	var (
		groupsCount  int
		lastBindings []core.Binding
		lastPicked   core.Binding
		routeErr     error
	)
	t.routingIndex.ForEachBindings(func(_ string, bindings []core.Binding, cursor *atomic.Int32) {
		if routeErr != nil {
			return
		}
		groupsCount++
		lastBindings = bindings
		b, ok := Pick(msg, bindings, cursor, t.Mode())
		if !ok {
			lastPicked = nil
			return
		}
		lastPicked = b
		if err := b.Route(msg, ctx); err != nil {
			routeErr = errors.Wrapf(err, "binding %s", b.UniqueName())
		}
	})
	if routeErr != nil {
		return routeErr
	}

	reusable := groupsCount == 1 && len(lastBindings) == 1 && lastPicked != nil &&
		lastPicked.Filter() == nil && lastPicked.IsLocal()
	debug.Assert(!reusable || (groupsCount == 1 && len(lastBindings) == 1))
	ctx.SetReusable(reusable, version)
	t.stats.incRoutes()
	return nil
}

// Redistribute moves msg, which originQueue failed to deliver locally, to a
// peer binding in the same routing group (spec.md §4.6). Returns false when
// redistribution is disabled by mode, the routing group is gone
// (ConcurrentRemoval, spec.md §7), or no eligible peer accepts it.
func (t *BindingsTable) Redistribute(msg core.Message, originQueue core.Binding, ctx core.RoutingContext) bool {
	if !t.AllowRedistribute() {
		return false
	}
	bindings, cursor, ok := t.routingIndex.GetBindings(originQueue.RoutingName())
	if !ok {
		return false
	}
	b, ok := PickForRedistribute(msg, bindings, cursor, originQueue)
	if !ok {
		return false
	}
	if err := b.Route(msg, ctx); err != nil {
		nlog.Warningf("%s: redistribute to %s: %v", t.address, b.UniqueName(), err)
		return false
	}
	ctx.SetReusable(false, t.version.Load())
	t.stats.incRedistributes()
	return true
}
