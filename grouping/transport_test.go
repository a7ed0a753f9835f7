package grouping

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"

	"github.com/pierrec/lz4/v3"
	"github.com/tinylib/msgp/msgp"
)

func TestWriteReadFrame_RoundTrip(t *testing.T) {
	p := &Proposal{FullID: "group-1.orders", ClusterName: "cluster-a"}
	var buf bytes.Buffer
	if err := writeFrame(&buf, kindPropose, p); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}

	kind, body, err := readFrame(&buf)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if kind != kindPropose {
		t.Fatalf("expected kind %d, got %d", kindPropose, kind)
	}

	got := &Proposal{}
	if err := got.DecodeMsg(msgp.NewReader(bytes.NewReader(body))); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if *got != *p {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, p)
	}
}

func TestNetworkHandler_NoPeersIsCacheMiss(t *testing.T) {
	h := NewNetworkHandler()
	if resp := h.GetProposal("group-1.orders", true); resp != nil {
		t.Fatalf("expected nil with no registered peers, got %+v", resp)
	}
	if resp := h.Propose(Proposal{FullID: "group-1.orders", ClusterName: "cluster-a"}); resp != nil {
		t.Fatalf("expected nil Propose with no registered peers, got %+v", resp)
	}
}

// TestNetworkHandler_Roundtrip starts a bare TCP listener standing in for a
// cluster peer, answering exactly one Propose frame with an accepted
// Response frame, to verify Register/Propose against a real socket.
func TestNetworkHandler_Roundtrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		kind, body, err := readFrame(conn)
		if err != nil || kind != kindPropose {
			return
		}
		p := &Proposal{}
		if p.DecodeMsg(msgp.NewReader(bytes.NewReader(body))) != nil {
			return
		}
		resp := NewAccepted(p.FullID, p.ClusterName)
		writeResponseFrameForTest(conn, resp)
	}()

	h := NewNetworkHandler()
	if err := h.Register("peer-1", ln.Addr().String(), 1); err != nil {
		t.Fatalf("register: %v", err)
	}
	defer h.Deregister("peer-1")

	resp := h.Propose(Proposal{FullID: "group-1.orders", ClusterName: "cluster-a"})
	if resp == nil || resp.ChosenClusterName != "cluster-a" {
		t.Fatalf("expected accepted response, got %+v", resp)
	}
}

func TestNetworkHandler_RecentlyRemoved(t *testing.T) {
	h := NewNetworkHandler()
	if h.RecentlyRemoved("group-1.orders", "cluster-a") {
		t.Fatal("expected no record before any ForceRemove")
	}

	// ForceRemove attempts a round trip to the owning peer, but with no
	// peers registered that's a no-op - the local cache is still populated
	// unconditionally beforehand.
	h.ForceRemove("group-1.orders", "cluster-a")

	if !h.RecentlyRemoved("group-1.orders", "cluster-a") {
		t.Fatal("expected RecentlyRemoved to report true right after ForceRemove")
	}
	if h.RecentlyRemoved("group-1.orders", "cluster-b") {
		t.Fatal("RecentlyRemoved must not match an unrelated cluster name")
	}
}

// writeResponseFrameForTest mirrors writeFrame's envelope (kind byte +
// big-endian length + lz4-compressed msgpack body) for a Response, standing
// in for the cluster-peer side of the wire protocol that this module does
// not itself implement.
func writeResponseFrameForTest(conn net.Conn, resp *Response) {
	var plain bytes.Buffer
	mw := msgp.NewWriter(&plain)
	if resp.EncodeMsg(mw) != nil || mw.Flush() != nil {
		return
	}
	var compressed bytes.Buffer
	lz := lz4.NewWriter(&compressed)
	if _, err := lz.Write(plain.Bytes()); err != nil {
		return
	}
	if lz.Close() != nil {
		return
	}
	hdr := make([]byte, 5)
	hdr[0] = kindResponse
	binary.BigEndian.PutUint32(hdr[1:], uint32(compressed.Len()))
	conn.Write(hdr)
	conn.Write(compressed.Bytes())
}
