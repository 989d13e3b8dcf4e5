// Package mac implements contention-based medium access control nodes:
// event-driven (pure) ALOHA and slotted p-persistent ALOHA.
//
// A node owns its queue exclusively. Peers reach it only through the
// CommChannel's Broadcast, which calls Receive; upper layers reach it only
// through the PacketProcessor.
package mac

import (
	"fmt"

	"github.com/inference-sim/macsim/sim"
	"github.com/inference-sim/macsim/sim/topology"
	"github.com/inference-sim/macsim/sim/trace"
)

// Node is the surface the trial driver needs from either protocol variant.
type Node interface {
	sim.Receiver
	Location() topology.Coordinate
	SetPartners(partners []sim.Receiver)
	Enqueue(p *sim.Packet, now float64) bool
	Stats() Stats
}

// Stats counts what a node has done during a run.
type Stats struct {
	Transmitted    int // frames put on the air
	Delivered      int // receptions handed to the processor
	Collisions     int // reception periods destroyed by overlap
	WaitsScheduled int // random waits drawn
	Dropped        int // arrivals rejected by the full queue
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Transmitted += o.Transmitted
	s.Delivered += o.Delivered
	s.Collisions += o.Collisions
	s.WaitsScheduled += o.WaitsScheduled
	s.Dropped += o.Dropped
}

// reception is the in-flight frame a node would deliver if nothing overlaps it.
// Later receptions overwrite earlier ones; only a lone reception is ever delivered.
type reception struct {
	source sim.NodeID
	packet *sim.Packet
}

// base holds what both ALOHA variants share.
type base struct {
	id        sim.NodeID
	location  topology.Coordinate
	queue     *sim.FIFO
	processor sim.PacketProcessor
	channel   sim.CommChannel
	partners  []sim.Receiver
	trace     *trace.SimulationTrace

	rx    reception
	stats Stats
}

func newBase(id sim.NodeID, at topology.Coordinate, queue *sim.FIFO, processor sim.PacketProcessor,
	channel sim.CommChannel, tr *trace.SimulationTrace) base {
	if queue == nil || processor == nil || channel == nil {
		panic(fmt.Sprintf("node %d: queue, processor and channel must not be nil", id))
	}
	return base{
		id:        id,
		location:  at,
		queue:     queue,
		processor: processor,
		channel:   channel,
		trace:     tr,
	}
}

// NodeID returns the node's identifier.
func (b *base) NodeID() sim.NodeID { return b.id }

// Location returns where the node sits.
func (b *base) Location() topology.Coordinate { return b.location }

// SetPartners installs the transmit-partner set. It must be called before the
// run starts and not again during it.
func (b *base) SetPartners(partners []sim.Receiver) {
	b.partners = partners
}

// Partners returns the transmit-partner set.
func (b *base) Partners() []sim.Receiver { return b.partners }

// Stats returns a snapshot of the node's counters.
func (b *base) Stats() Stats { return b.stats }

// QueueLen returns how many packets are waiting at the node.
func (b *base) QueueLen() int { return b.queue.Len() }

// Enqueue offers a locally generated packet to the node's queue.
// A false return means the packet was dropped; the drop is counted.
func (b *base) Enqueue(p *sim.Packet, now float64) bool {
	if b.queue.Offer(p) {
		return true
	}
	b.stats.Dropped++
	b.record(now, trace.KindDrop, p, -1)
	return false
}

// broadcast hands p to every partner through the channel.
func (b *base) broadcast(p *sim.Packet, s *sim.Simulator) error {
	for _, partner := range b.partners {
		if err := b.channel.Broadcast(b.id, partner, p, s); err != nil {
			return err
		}
	}
	return nil
}

// deliver hands the pending reception upward.
func (b *base) deliver(now float64) {
	b.stats.Delivered++
	b.record(now, trace.KindDeliver, b.rx.packet, int(b.rx.source))
	b.processor.Deliver(b.rx.source, b.id, b.rx.packet, b.queue)
}

func (b *base) record(now float64, kind trace.Kind, p *sim.Packet, peer int) {
	if b.trace == nil {
		return
	}
	var id uint64
	if p != nil {
		id = p.ID
	}
	b.trace.Record(trace.Record{Time: now, Node: int(b.id), Kind: kind, Packet: id, Peer: peer})
}
