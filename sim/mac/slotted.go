package mac

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/macsim/sim"
	"github.com/inference-sim/macsim/sim/topology"
	"github.com/inference-sim/macsim/sim/trace"
)

// SlottedALOHA is a p-persistent slotted ALOHA node. It is driven by one Run
// call per slot instead of events: in each slot a node with a queued packet
// transmits with probability p.
//
// Receptions within a slot are tallied and resolved at the next slot
// boundary. A lone reception is delivered unless the node itself transmitted
// in that slot; two or more receptions are lost without any explicit
// collided state.
type SlottedALOHA struct {
	base

	p   float64
	rng *rand.Rand

	onGoing         int     // receptions seen in the current slot
	lastTransmitted bool    // transmitted in the current slot
	lastReceive     float64 // slot time the counters belong to
}

var _ Node = (*SlottedALOHA)(nil)

// NewSlottedALOHA builds a node that transmits with probability p, drawing from rng.
func NewSlottedALOHA(id sim.NodeID, at topology.Coordinate, queue *sim.FIFO, processor sim.PacketProcessor,
	channel sim.CommChannel, p float64, rng *rand.Rand, tr *trace.SimulationTrace) *SlottedALOHA {
	if p < 0 || p > 1 || math.IsNaN(p) {
		panic(fmt.Sprintf("NewSlottedALOHA: node %d: p must be in [0, 1], got %v", id, p))
	}
	if rng == nil {
		panic(fmt.Sprintf("NewSlottedALOHA: node %d: rng must not be nil", id))
	}
	return &SlottedALOHA{
		base:        newBase(id, at, queue, processor, channel, tr),
		p:           p,
		rng:         rng,
		lastReceive: math.Inf(-1),
	}
}

func (n *SlottedALOHA) String() string { return fmt.Sprintf("slotted_%d", n.id) }

// P returns the transmission probability.
func (n *SlottedALOHA) P() float64 { return n.p }

// Run executes the node's share of the slot stamped now. It reports whether
// the node had a packet to contend with, whether or not it won the draw.
func (n *SlottedALOHA) Run(now float64, s *sim.Simulator) (bool, error) {
	n.flush(now)

	if !n.processor.HasPending(n.queue) {
		return false, nil
	}
	if n.rng.Float64() < n.p {
		n.lastTransmitted = true
		pkt, err := n.processor.TakeNext(n.queue)
		if err != nil {
			return true, fmt.Errorf("%s: %w", n, err)
		}
		n.stats.Transmitted++
		n.record(now, trace.KindTransmit, pkt, -1)
		if err := n.broadcast(pkt, s); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Receive tallies a frame arriving in the current slot.
func (n *SlottedALOHA) Receive(source sim.NodeID, p *sim.Packet, s *sim.Simulator) error {
	n.flush(s.Now())
	n.onGoing++
	n.rx = reception{source: source, packet: p}
	return nil
}

// flush resolves the previous slot's receptions once time has moved on.
func (n *SlottedALOHA) flush(now float64) {
	if n.lastReceive != now {
		switch {
		case n.onGoing == 1 && !n.lastTransmitted:
			n.deliver(n.lastReceive)
		case n.onGoing > 1:
			n.stats.Collisions++
			n.record(n.lastReceive, trace.KindCollide, n.rx.packet, int(n.rx.source))
			logrus.Debugf("%s: %d receptions at t=%g, all lost", n, n.onGoing, n.lastReceive)
		}
		n.onGoing = 0
		n.lastTransmitted = false
	}
	n.lastReceive = now
}

// SlottedTemplate stamps slotted nodes sharing Channel, Processor, P and Trace.
// Each node gets its own queue and RNG stream.
type SlottedTemplate struct {
	Channel   sim.CommChannel
	Processor sim.PacketProcessor
	P         float64
	Queue     *sim.FIFO
	Trace     *trace.SimulationTrace
}

// Instantiate returns a new node bound to location at, drawing from rng.
func (t SlottedTemplate) Instantiate(id sim.NodeID, at topology.Coordinate, rng *rand.Rand) *SlottedALOHA {
	if t.Queue == nil {
		panic("SlottedTemplate.Instantiate: Queue prototype must not be nil")
	}
	return NewSlottedALOHA(id, at, t.Queue.FreshCopy(), t.Processor, t.Channel, t.P, rng, t.Trace)
}
