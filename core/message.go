package core

import "encoding/binary"

// Reserved message properties, bit-exact per spec.md §6.
const (
	// HdrScaledownToIDs carries a big-endian sequence of 64-bit remote queue
	// ids; consumed and translated to local binding ids (spec.md §4.4 step 2).
	HdrScaledownToIDs = "_scaledown-to-ids"
	// HdrRouteToIDs carries a big-endian sequence of 64-bit local binding ids;
	// an explicit route directive from a cluster peer (spec.md §4.4 step 4).
	HdrRouteToIDs = "_route-to-ids"
	// HdrRouteToAckIDs is the subset of HdrRouteToIDs that must be routed
	// with the acknowledging variant (Binding.RouteWithAck).
	HdrRouteToAckIDs = "_route-to-ack-ids"
)

// Message is the minimal surface the routing core needs. Everything else
// (payload, persistence, wire encoding) belongs to the excluded collaborators
// enumerated in spec.md §1.
type Message interface {
	// Address is the destination address string, possibly in fully-qualified
	// form "address::queueName" (spec.md §4.4 step 6).
	Address() string
	// GroupID returns the message-group id and whether one was set.
	GroupID() (string, bool)

	// GetBytesProperty reads a reserved property (see Hdr* above).
	GetBytesProperty(name string) ([]byte, bool)
	// RemoveProperty deletes a reserved property; the protocol in §4.4
	// consumes HdrScaledownToIDs, HdrRouteToIDs, and HdrRouteToAckIDs.
	RemoveProperty(name string)
	// SetBytesProperty writes a reserved property (used to translate
	// HdrScaledownToIDs into HdrRouteToIDs).
	SetBytesProperty(name string, val []byte)

	// Summary is a short human-readable description for logging.
	Summary() string
}

// DecodeIDs parses a reserved property's big-endian uint64 sequence.
func DecodeIDs(b []byte) []int64 {
	if len(b)%8 != 0 {
		return nil
	}
	ids := make([]int64, len(b)/8)
	for i := range ids {
		ids[i] = int64(binary.BigEndian.Uint64(b[i*8 : i*8+8]))
	}
	return ids
}

// EncodeIDs is the inverse of DecodeIDs.
func EncodeIDs(ids []int64) []byte {
	b := make([]byte, len(ids)*8)
	for i, id := range ids {
		binary.BigEndian.PutUint64(b[i*8:i*8+8], uint64(id))
	}
	return b
}
