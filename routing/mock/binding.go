// Package mock provides reference implementations of core.Binding,
// core.Message, and core.Filter for use in tests that exercise the routing
// package without a real queue/post-office layer behind them.
/*
 * Copyright (c) 2026, FluxMQ Authors. All rights reserved.
 */
package mock

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fluxmq/broker/core"
)

// interface guards
var (
	_ core.Binding            = (*Binding)(nil)
	_ core.RemoteQueueBinding = (*RemoteBinding)(nil)
	_ core.Message            = (*Message)(nil)
	_ core.Filter             = FilterFunc(nil)
)

// Binding is a local-queue core.Binding: every Route call simply appends to
// Routed, and IsHighAcceptPriority/IsConnected are settable knobs so tests
// can drive the RouteSelector's branches directly.
type Binding struct {
	mu sync.Mutex

	id          int64
	uniqueName  string
	routingName string
	clusterName string
	filter      core.Filter
	kind        core.Kind
	exclusive   bool
	local       bool
	connected   atomic.Bool
	highPrio    atomic.Bool

	Routed     []core.Message
	Acked      []core.Message
	Unproposes []string
	RouteErr   error
}

func NewLocalBinding(id int64, uniqueName, routingName, clusterName string) *Binding {
	b := &Binding{
		id:          id,
		uniqueName:  uniqueName,
		routingName: routingName,
		clusterName: clusterName,
		kind:        core.KindLocalQueue,
		local:       true,
	}
	b.connected.Store(true)
	b.highPrio.Store(true)
	return b
}

func (b *Binding) ID() int64           { return b.id }
func (b *Binding) UniqueName() string  { return b.uniqueName }
func (b *Binding) RoutingName() string { return b.routingName }
func (b *Binding) ClusterName() string { return b.clusterName }
func (b *Binding) Filter() core.Filter { return b.filter }
func (b *Binding) Kind() core.Kind     { return b.kind }
func (b *Binding) IsExclusive() bool   { return b.exclusive }
func (b *Binding) IsLocal() bool       { return b.local }
func (b *Binding) IsConnected() bool   { return b.connected.Load() }

func (b *Binding) IsHighAcceptPriority(core.Message) bool { return b.highPrio.Load() }

func (b *Binding) SetFilter(f core.Filter)      { b.filter = f }
func (b *Binding) SetExclusive(v bool)          { b.exclusive = v }
func (b *Binding) SetLocal(v bool)              { b.local = v }
func (b *Binding) SetConnected(v bool)          { b.connected.Store(v) }
func (b *Binding) SetHighAcceptPriority(v bool) { b.highPrio.Store(v) }

func (b *Binding) Route(msg core.Message, _ core.RoutingContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.RouteErr != nil {
		return b.RouteErr
	}
	b.Routed = append(b.Routed, msg)
	return nil
}

func (b *Binding) RouteWithAck(msg core.Message, ctx core.RoutingContext) error {
	b.mu.Lock()
	b.Acked = append(b.Acked, msg)
	b.mu.Unlock()
	return b.Route(msg, ctx)
}

func (b *Binding) Unproposed(groupID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Unproposes = append(b.Unproposes, groupID)
}

func (b *Binding) RouteCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Routed)
}

// RemoteBinding additionally satisfies core.RemoteQueueBinding. It embeds
// *Binding (a pointer, not a value) so construction never copies Binding's
// mutex.
type RemoteBinding struct {
	*Binding
	remoteQueueID  int64
	advertisedMode core.Mode
}

func NewRemoteBinding(id int64, uniqueName, routingName, clusterName string, remoteQueueID int64, mode core.Mode) *RemoteBinding {
	base := NewLocalBinding(id, uniqueName, routingName, clusterName)
	base.kind = core.KindRemoteQueue
	base.local = false
	return &RemoteBinding{Binding: base, remoteQueueID: remoteQueueID, advertisedMode: mode}
}

func (rb *RemoteBinding) RemoteQueueID() int64     { return rb.remoteQueueID }
func (rb *RemoteBinding) AdvertisedMode() core.Mode { return rb.advertisedMode }

// FilterFunc adapts a plain func to core.Filter.
type FilterFunc func(core.Message) bool

func (f FilterFunc) Matches(msg core.Message) bool { return f(msg) }

// Message is a minimal core.Message backed by a plain map of byte
// properties, with an optional group id.
type Message struct {
	mu         sync.Mutex
	address    string
	groupID    string
	hasGroupID bool
	props      map[string][]byte
	seq        int64
}

func NewMessage(address string) *Message {
	return &Message{address: address, props: make(map[string][]byte)}
}

func (m *Message) WithGroupID(groupID string) *Message {
	m.groupID, m.hasGroupID = groupID, true
	return m
}

func (m *Message) WithSeq(seq int64) *Message {
	m.seq = seq
	return m
}

func (m *Message) Address() string { return m.address }

func (m *Message) GroupID() (string, bool) { return m.groupID, m.hasGroupID }

func (m *Message) GetBytesProperty(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.props[name]
	return v, ok
}

func (m *Message) RemoveProperty(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.props, name)
}

func (m *Message) SetBytesProperty(name string, val []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.props[name] = val
}

func (m *Message) Summary() string {
	return fmt.Sprintf("msg(address=%s, seq=%d)", m.address, m.seq)
}
