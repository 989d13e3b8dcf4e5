// Package trace provides per-run recording of MAC activity for offline analysis.
// This package has no dependencies on sim/ or its sub-packages; it stores pure data types.
package trace

// Kind names what happened at a node.
type Kind string

const (
	// KindTransmit: the node put a frame on the air.
	KindTransmit Kind = "transmit"
	// KindDeliver: a frame was received cleanly and handed upward.
	KindDeliver Kind = "deliver"
	// KindCollide: overlapping receptions destroyed a frame.
	KindCollide Kind = "collide"
	// KindDrop: a full queue rejected a new packet.
	KindDrop Kind = "drop"
	// KindWait: the node scheduled a random backoff.
	KindWait Kind = "wait"
)

// Record captures a single MAC-level occurrence.
type Record struct {
	Time   float64
	Node   int
	Kind   Kind
	Packet uint64
	Peer   int // source for deliver/collide, -1 when not applicable
}
