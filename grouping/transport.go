// NetworkHandler is a GroupingHandler that reaches a real cluster peer over
// a small set of persistent TCP streams, round-robining across them the way
// the teacher's transport/bundle package round-robins a "stream bundle"
// across the connections open to one destination node. Unlike that package,
// there is no cluster membership table here (cluster-topology broadcasting
// is an explicitly excluded collaborator, spec.md §1) - peers are registered
// by the host process one at a time, each under a peer name the host
// chooses.
/*
 * Copyright (c) 2026, FluxMQ Authors. All rights reserved.
 */
package grouping

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pierrec/lz4/v3"
	"github.com/pkg/errors"
	cuckoo "github.com/seiflotfy/cuckoofilter"
	"github.com/tinylib/msgp/msgp"

	"github.com/fluxmq/broker/cmn/cos"
	"github.com/fluxmq/broker/cmn/nlog"
)

const (
	kindGetProposal byte = iota + 1
	kindPropose
	kindForceRemove
	kindResponse
	kindNone // "no response" (cache miss, or timeout)
)

const dialTimeout = 3 * time.Second

// robin is a set of streams to one peer with round-robin selection, mirroring
// transport/bundle's `robin{stsdest, i}` shape.
type robin struct {
	conns []net.Conn
	i     atomic.Int64
}

func (r *robin) next() net.Conn {
	n := r.i.Add(1)
	return r.conns[int(n%int64(len(r.conns)))]
}

// NetworkHandler implements grouping.Handler by forwarding every call to the
// peer whose name sorts as the deterministic "owner" of the proposal's
// fullID, so every node asking about the same group id talks to the same
// peer without needing a separate leader-election protocol.
type NetworkHandler struct {
	mu      sync.RWMutex
	peers   map[string]*robin // peer name -> streams
	names   []string          // sorted peer names, rebuilt on Register/Deregister
	timeout time.Duration

	removedMu sync.Mutex
	removed   *cuckoo.Filter // local best-effort cache of recently force-removed pairs
}

func NewNetworkHandler() *NetworkHandler {
	return &NetworkHandler{
		peers:   make(map[string]*robin, 8),
		timeout: 2 * time.Second,
		removed: cuckoo.NewFilter(1024),
	}
}

// Register opens `multiplier` TCP connections to addr and files them under
// peer, replacing any connections previously registered for that name.
func (h *NetworkHandler) Register(peer, addr string, multiplier int) error {
	if multiplier < 1 {
		multiplier = 1
	}
	conns := make([]net.Conn, 0, multiplier)
	for range multiplier {
		c, err := net.DialTimeout("tcp", addr, dialTimeout)
		if err != nil {
			for _, c := range conns {
				c.Close()
			}
			return errors.Wrapf(err, "grouping: dial %s (peer %s)", addr, peer)
		}
		conns = append(conns, c)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers[peer] = &robin{conns: conns}
	h.rebuildNamesLocked()
	return nil
}

func (h *NetworkHandler) Deregister(peer string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.peers[peer]; ok {
		for _, c := range r.conns {
			c.Close()
		}
		delete(h.peers, peer)
		h.rebuildNamesLocked()
	}
}

func (h *NetworkHandler) rebuildNamesLocked() {
	h.names = h.names[:0]
	for name := range h.peers {
		h.names = append(h.names, name)
	}
	sort.Strings(h.names)
}

// ownerFor deterministically picks the peer responsible for fullID so that
// every caller asking about the same group id converges on one peer.
func (h *NetworkHandler) ownerFor(fullID string) (*robin, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.names) == 0 {
		return nil, false
	}
	idx := cos.HashRoutingName(fullID, uint32(len(h.names)))
	return h.peers[h.names[idx]], true
}

func (h *NetworkHandler) GetProposal(fullID string, useCache bool) *Response {
	if !useCache {
		return nil
	}
	r, ok := h.ownerFor(fullID)
	if !ok {
		return nil
	}
	resp, err := roundtrip(r.next(), h.timeout, kindGetProposal, &Proposal{FullID: fullID})
	if err != nil {
		nlog.Warningf("grouping: GetProposal(%s): %v", fullID, err)
		return nil
	}
	return resp
}

func (h *NetworkHandler) Propose(p Proposal) *Response {
	r, ok := h.ownerFor(p.FullID)
	if !ok {
		return nil
	}
	resp, err := roundtrip(r.next(), h.timeout, kindPropose, &p)
	if err != nil {
		nlog.Warningf("grouping: Propose(%s): %v", p.FullID, err)
		return nil // manifests as a timeout per spec.md §4.5
	}
	return resp
}

func (h *NetworkHandler) ForceRemove(groupID, clusterName string) {
	h.removedMu.Lock()
	h.removed.InsertUnique(cos.UnsafeB(groupID + "." + clusterName))
	h.removedMu.Unlock()

	r, ok := h.ownerFor(groupID)
	if !ok {
		return
	}
	if _, err := roundtrip(r.next(), h.timeout, kindForceRemove, &Proposal{FullID: groupID, ClusterName: clusterName}); err != nil {
		nlog.Warningf("grouping: ForceRemove(%s): %v", groupID, err)
	}
}

// RecentlyRemoved is answered entirely from the local cache populated by this
// handler's own ForceRemove calls, saving the round trip a network lookup
// would otherwise cost on the Coordinator's hot path.
func (h *NetworkHandler) RecentlyRemoved(groupID, clusterName string) bool {
	h.removedMu.Lock()
	defer h.removedMu.Unlock()
	return h.removed.Lookup(cos.UnsafeB(groupID + "." + clusterName))
}

// roundtrip sends an lz4-compressed, length-prefixed msgpack frame and reads
// the reply frame back. kindNone (and any I/O error) surface as a nil
// Response, which the Coordinator treats as a proposal timeout.
func roundtrip(conn net.Conn, timeout time.Duration, kind byte, p *Proposal) (*Response, error) {
	conn.SetDeadline(time.Now().Add(timeout))
	if err := writeFrame(conn, kind, p); err != nil {
		return nil, err
	}
	rkind, body, err := readFrame(conn)
	if err != nil {
		return nil, err
	}
	if rkind == kindNone {
		return nil, nil
	}
	if rkind != kindResponse {
		return nil, fmt.Errorf("unexpected frame kind %d", rkind)
	}
	resp := &Response{}
	if err := resp.DecodeMsg(msgp.NewReader(&sliceReader{b: body})); err != nil {
		return nil, err
	}
	return resp, nil
}

func writeFrame(w io.Writer, kind byte, p *Proposal) error {
	var buf sliceWriter
	lz := lz4.NewWriter(&buf)
	mw := msgp.NewWriter(lz)
	if err := p.EncodeMsg(mw); err != nil {
		return err
	}
	if err := mw.Flush(); err != nil {
		return err
	}
	if err := lz.Close(); err != nil {
		return err
	}
	hdr := make([]byte, 5)
	hdr[0] = kind
	binary.BigEndian.PutUint32(hdr[1:], uint32(len(buf.b)))
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	_, err := w.Write(buf.b)
	return err
}

func readFrame(r io.Reader) (byte, []byte, error) {
	hdr := make([]byte, 5)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return 0, nil, err
	}
	n := binary.BigEndian.Uint32(hdr[1:])
	compressed := make([]byte, n)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return 0, nil, err
	}
	lzr := lz4.NewReader(&sliceReader{b: compressed})
	plain, err := io.ReadAll(lzr)
	if err != nil {
		return 0, nil, err
	}
	return hdr[0], plain, nil
}

type sliceWriter struct{ b []byte }

func (w *sliceWriter) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}

type sliceReader struct {
	b   []byte
	off int
}

func (r *sliceReader) Read(p []byte) (int, error) {
	if r.off >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.off:])
	r.off += n
	return n, nil
}
