package sim

import "fmt"

// NodeID identifies a node within one topology instance.
type NodeID int

// Packet is an opaque frame handle. Queues and processors compare packets by pointer.
type Packet struct {
	ID      uint64  // unique within a trial
	Source  NodeID  // originating node
	Size    int     // frame length in bits
	Created float64 // simulated time the packet was generated
	// Echo marks a response generated on delivery; responses are not echoed again.
	Echo bool
}

func (p *Packet) String() string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("pkt_%d(src=%d)", p.ID, p.Source)
}

// PacketProcessor is the upper-layer contract a MAC node drains its queue through.
type PacketProcessor interface {
	// HasPending reports whether q holds a sendable packet.
	HasPending(q *FIFO) bool
	// TakeNext pops the next packet. Returns ErrEmptyQueue when HasPending is false.
	TakeNext(q *FIFO) (*Packet, error)
	// Deliver hands a fully received packet upward. It may enqueue responses into q.
	Deliver(source, destination NodeID, p *Packet, q *FIFO)
}

// Receiver is a node that can be the far end of a broadcast.
type Receiver interface {
	NodeID() NodeID
	Receive(source NodeID, p *Packet, s *Simulator) error
}

// CommChannel computes air time and fans a frame out to a receiver.
type CommChannel interface {
	// TransmitDuration returns the air time of p; always > 0.
	TransmitDuration(p *Packet) float64
	// Broadcast starts the reception of p at receiver. The sender never touches
	// a peer's state except through this call.
	Broadcast(sender NodeID, receiver Receiver, p *Packet, s *Simulator) error
}

// PacketFactory stamps packets with trial-unique IDs and creation times.
type PacketFactory struct {
	clock  Clock
	nextID uint64
}

// NewPacketFactory returns a factory that reads creation times from clock.
func NewPacketFactory(clock Clock) *PacketFactory {
	return &PacketFactory{clock: clock}
}

// New returns a fresh packet originating at source.
func (f *PacketFactory) New(source NodeID, size int) *Packet {
	p := &Packet{ID: f.nextID, Source: source, Size: size, Created: f.clock.Now()}
	f.nextID++
	return p
}

// Issued returns how many packets the factory has created.
func (f *PacketFactory) Issued() uint64 {
	return f.nextID
}
