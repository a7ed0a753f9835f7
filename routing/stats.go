package routing

import "github.com/prometheus/client_golang/prometheus"

// Stats is the set of counters spec.md's supplemented "in-memory bookkeeping"
// (SPEC_FULL.md §4) instruments on the route/redistribute hot paths. A
// BindingsTable constructed with a nil *Stats simply skips instrumentation -
// the core never requires a caller to wire Prometheus to use it.
type Stats struct {
	Routes                  prometheus.Counter
	Redistributes           prometheus.Counter
	GroupProposalRetries    prometheus.Counter
	GroupRoutingExhausted   prometheus.Counter
	ExplicitDirectiveMisses prometheus.Counter
}

// NewStats builds counters and registers them into reg. Pass a fresh
// prometheus.Registry owned by the host process; this package never starts
// an HTTP listener itself (that belongs to the management surface, an
// explicitly excluded collaborator per spec.md §1).
func NewStats(reg prometheus.Registerer, address string) *Stats {
	labels := prometheus.Labels{"address": address}
	s := &Stats{
		Routes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fluxmq_routing_routes_total", Help: "Messages routed.", ConstLabels: labels,
		}),
		Redistributes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fluxmq_routing_redistributes_total", Help: "Messages redistributed to a peer binding.", ConstLabels: labels,
		}),
		GroupProposalRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fluxmq_routing_group_proposal_retries_total", Help: "Group proposal protocol retries.", ConstLabels: labels,
		}),
		GroupRoutingExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fluxmq_routing_group_routing_exhausted_total", Help: "Grouped routing gave up and fell back to simple routing.", ConstLabels: labels,
		}),
		ExplicitDirectiveMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fluxmq_routing_directive_unknown_id_total", Help: "HDR_ROUTE_TO_IDS/ACK entries naming an unknown binding id.", ConstLabels: labels,
		}),
	}
	if reg != nil {
		reg.MustRegister(s.Routes, s.Redistributes, s.GroupProposalRetries, s.GroupRoutingExhausted, s.ExplicitDirectiveMisses)
	}
	return s
}

// the following helpers make every Stats field nil-safe, so a BindingsTable
// constructed without NewStats (stats == nil) never has to branch.

func (s *Stats) incRoutes() {
	if s != nil {
		s.Routes.Inc()
	}
}

func (s *Stats) incRedistributes() {
	if s != nil {
		s.Redistributes.Inc()
	}
}

func (s *Stats) incGroupRetries() {
	if s != nil {
		s.GroupProposalRetries.Inc()
	}
}

func (s *Stats) incGroupExhausted() {
	if s != nil {
		s.GroupRoutingExhausted.Inc()
	}
}

func (s *Stats) incDirectiveMiss() {
	if s != nil {
		s.ExplicitDirectiveMisses.Inc()
	}
}
