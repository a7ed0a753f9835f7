package core

// Mode is the table's load-balancing mode (spec.md §3).
type Mode int

const (
	ModeOff Mode = iota
	ModeStrict
	ModeOnDemand
	ModeOffWithRedistribution
)

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "OFF"
	case ModeStrict:
		return "STRICT"
	case ModeOnDemand:
		return "ON_DEMAND"
	case ModeOffWithRedistribution:
		return "OFF_WITH_REDISTRIBUTION"
	default:
		return "UNKNOWN"
	}
}

// AllowRedistribute reports whether redistribute() may run in this mode
// (spec.md §4.1: true iff mode ∈ {ON_DEMAND, OFF_WITH_REDISTRIBUTION}).
func (m Mode) AllowRedistribute() bool {
	return m == ModeOnDemand || m == ModeOffWithRedistribution
}

// Filter is the optional predicate a Binding may carry.
type Filter interface {
	Matches(msg Message) bool
}

// Kind tags the Binding variants the core branches on (spec.md §3, §9 "tagged
// sum"). The core only ever distinguishes local/remote/other; Divert and any
// future variant are "other" as far as routing is concerned.
type Kind int

const (
	KindLocalQueue Kind = iota
	KindRemoteQueue
	KindOther
)

// Binding is the polymorphic entity the post-office hands to the table
// (spec.md §6 "Binding interface (consumed)").
type Binding interface {
	ID() int64
	UniqueName() string
	RoutingName() string
	ClusterName() string
	Filter() Filter // nil means "no filter"

	Kind() Kind
	IsExclusive() bool
	IsLocal() bool
	IsConnected() bool
	IsHighAcceptPriority(msg Message) bool

	Route(msg Message, ctx RoutingContext) error
	RouteWithAck(msg Message, ctx RoutingContext) error
	Unproposed(groupID string)
}

// RemoteQueueBinding is the capability interface a Binding additionally
// satisfies when Kind() == KindRemoteQueue (spec.md §3: "carries a remote
// queue id and a broadcast load-balancing mode"). The table type-asserts for
// it only after checking Kind(), matching spec.md's "branches on the
// remote-queue variant" note in §3.
type RemoteQueueBinding interface {
	Binding
	RemoteQueueID() int64
	AdvertisedMode() Mode
}
