package routing

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/fluxmq/broker/core"
	"github.com/fluxmq/broker/grouping"
	"github.com/fluxmq/broker/routing/mock"
)

func TestRouting(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Bindings Table Suite")
}

var _ = Describe("BindingsTable end-to-end routing", func() {
	var tbl *BindingsTable

	BeforeEach(func() {
		tbl = NewBindingsTable("orders-address", nil, nil)
	})

	It("excludes remote bindings entirely in OFF mode", func() {
		tbl.SetLoadBalancingMode(core.ModeOff)
		local := mock.NewLocalBinding(1, "local", "orders", "node-1")
		remote := mock.NewRemoteBinding(2, "remote", "orders", "node-2", 1, core.ModeOff)
		tbl.routingIndex.AddIfAbsent("orders", local)
		tbl.routingIndex.AddIfAbsent("orders", remote)
		tbl.byID.Store(local.ID(), local)
		tbl.byID.Store(remote.ID(), remote)

		for range 5 {
			Expect(tbl.Route(mock.NewMessage("orders"), core.NewDefaultContext())).To(Succeed())
		}
		Expect(remote.RouteCount()).To(Equal(0))
		Expect(local.RouteCount()).To(Equal(5))
	})

	It("prefers a connected binding under ON_DEMAND", func() {
		tbl.SetLoadBalancingMode(core.ModeOnDemand)
		cold := mock.NewLocalBinding(1, "cold", "orders", "node-1")
		cold.SetConnected(false)
		hot := mock.NewLocalBinding(2, "hot", "orders", "node-2")
		tbl.Add(cold)
		tbl.Add(hot)

		Expect(tbl.Route(mock.NewMessage("orders"), core.NewDefaultContext())).To(Succeed())
		Expect(hot.RouteCount()).To(Equal(1))
		Expect(cold.RouteCount()).To(Equal(0))
	})

	It("honors an explicit HDR_ROUTE_TO_IDS directive over normal selection", func() {
		a := mock.NewLocalBinding(1, "a", "orders", "node-1")
		b := mock.NewLocalBinding(2, "b", "orders", "node-2")
		tbl.Add(a)
		tbl.Add(b)

		msg := mock.NewMessage("orders")
		msg.SetBytesProperty(core.HdrRouteToIDs, core.EncodeIDs([]int64{2}))

		Expect(tbl.Route(msg, core.NewDefaultContext())).To(Succeed())
		Expect(a.RouteCount()).To(Equal(0))
		Expect(b.RouteCount()).To(Equal(1))
	})

	It("resolves a fully-qualified address directly, bypassing selection", func() {
		a := mock.NewLocalBinding(1, "a", "orders", "node-1")
		b := mock.NewLocalBinding(2, "b", "orders", "node-2")
		tbl.Add(a)
		tbl.Add(b)

		Expect(tbl.Route(mock.NewMessage("orders::b"), core.NewDefaultContext())).To(Succeed())
		Expect(a.RouteCount()).To(Equal(0))
		Expect(b.RouteCount()).To(Equal(1))
	})

	It("keeps a message group sticky to one cluster across many messages", func() {
		handler := grouping.NewInMemoryHandler()
		tbl = NewBindingsTable("orders-address", handler, nil)
		a := mock.NewLocalBinding(1, "a", "orders", "cluster-a")
		b := mock.NewLocalBinding(2, "b", "orders", "cluster-b")
		tbl.Add(a)
		tbl.Add(b)

		for i := range 30 {
			msg := mock.NewMessage("orders").WithGroupID("group-1").WithSeq(int64(i))
			Expect(tbl.Route(msg, core.NewDefaultContext())).To(Succeed())
		}
		total := a.RouteCount() + b.RouteCount()
		Expect(total).To(Equal(30))
		Expect(a.RouteCount() == 0 || b.RouteCount() == 0).To(BeTrue())
	})

	It("falls back to the local binding under ON_DEMAND when nothing is connected", func() {
		tbl.SetLoadBalancingMode(core.ModeOnDemand)
		remote := mock.NewRemoteBinding(1, "remote", "orders", "node-1", 1, core.ModeOnDemand)
		remote.SetConnected(false)
		remote.SetHighAcceptPriority(false)
		local := mock.NewLocalBinding(2, "local", "orders", "node-2")
		local.SetConnected(false)
		local.SetHighAcceptPriority(false)
		tbl.routingIndex.AddIfAbsent("orders", remote)
		tbl.routingIndex.AddIfAbsent("orders", local)

		Expect(tbl.Route(mock.NewMessage("orders"), core.NewDefaultContext())).To(Succeed())
		Expect(local.RouteCount()).To(Equal(1))
		Expect(remote.RouteCount()).To(Equal(0))
	})
})
