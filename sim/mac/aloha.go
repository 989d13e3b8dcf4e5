package mac

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/macsim/sim"
	"github.com/inference-sim/macsim/sim/distribution"
	"github.com/inference-sim/macsim/sim/topology"
	"github.com/inference-sim/macsim/sim/trace"
)

// State is the protocol state of an event-driven ALOHA node.
type State int

const (
	Idle State = iota
	Waiting
	Transmitting
	Receiving
	Collided
)

var stateNames = [...]string{
	Idle:         "Idle",
	Waiting:      "Waiting",
	Transmitting: "Transmitting",
	Receiving:    "Receiving",
	Collided:     "Collided",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// ALOHA is an event-driven pure ALOHA node. It transmits whenever a random
// wait ends with a packet queued, without sensing the channel, and treats any
// overlap between receptions, or between a reception and its own
// transmission, as a collision.
//
// The node starts Idle and never terminates; the trial driver bounds the run.
type ALOHA struct {
	base

	state        State
	onGoing      int  // receptions currently arriving
	transmitting bool // own frame on the air
	wait         distribution.Distribution
}

var _ Node = (*ALOHA)(nil)
var _ sim.Handler = (*ALOHA)(nil)

// NewALOHA builds a node that owns queue and draws backoffs from wait.
func NewALOHA(id sim.NodeID, at topology.Coordinate, queue *sim.FIFO, processor sim.PacketProcessor,
	channel sim.CommChannel, wait distribution.Distribution, tr *trace.SimulationTrace) *ALOHA {
	if wait == nil {
		panic(fmt.Sprintf("NewALOHA: node %d: wait distribution must not be nil", id))
	}
	return &ALOHA{
		base:  newBase(id, at, queue, processor, channel, tr),
		state: Idle,
		wait:  wait,
	}
}

// State returns the current protocol state.
func (a *ALOHA) State() State { return a.state }

// OnGoing returns the number of receptions in progress.
func (a *ALOHA) OnGoing() int { return a.onGoing }

func (a *ALOHA) String() string { return fmt.Sprintf("aloha_%d", a.id) }

// HandleEvent dispatches one of the node's scheduled callbacks.
func (a *ALOHA) HandleEvent(now float64, label sim.EventLabel, s *sim.Simulator) error {
	switch label {
	case sim.ReceiveEnded:
		return a.receiveEnded(now, s)
	case sim.TransmissionEnded:
		a.transmitting = false
		return a.scheduleWait(now, s)
	case sim.WaitEnded:
		return a.waitEnded(s)
	default:
		return fmt.Errorf("%w: %s dispatched %s", sim.ErrUnknownEvent, a, label)
	}
}

// Start puts the node into its first random wait. The trial driver calls it
// once per node before running, in place of seeding a bare WaitEnded.
func (a *ALOHA) Start(s *sim.Simulator) error {
	return a.scheduleWait(s.Now(), s)
}

// Trigger is called when the node's queue becomes non-empty. An Idle node
// with a packet starts transmitting at once; in every other state the
// pending wait or transmission end will pick the packet up.
func (a *ALOHA) Trigger(s *sim.Simulator) error {
	if a.state != Idle || !a.processor.HasPending(a.queue) {
		return nil
	}
	return a.startTransmission(s)
}

// Receive is called by a peer's broadcast when its frame starts arriving here.
func (a *ALOHA) Receive(source sim.NodeID, p *sim.Packet, s *sim.Simulator) error {
	switch a.state {
	case Transmitting, Receiving, Collided:
		a.setState(Collided)
	default:
		a.setState(Receiving)
	}
	a.onGoing++
	a.rx = reception{source: source, packet: p}
	return s.After(a.channel.TransmitDuration(p), a, sim.ReceiveEnded)
}

func (a *ALOHA) receiveEnded(now float64, s *sim.Simulator) error {
	if a.onGoing == 0 {
		return fmt.Errorf("%s: receive ended with no reception in progress", a)
	}
	a.onGoing--
	// scheduleWait may leave Collided, so capture it first
	collided := a.state == Collided
	if err := a.scheduleWait(now, s); err != nil {
		return err
	}
	if a.onGoing > 0 {
		return nil
	}
	if collided {
		a.stats.Collisions++
		a.record(now, trace.KindCollide, a.rx.packet, int(a.rx.source))
		return nil
	}
	a.deliver(now)
	return nil
}

func (a *ALOHA) waitEnded(s *sim.Simulator) error {
	// A wait scheduled before the current transmission started is stale;
	// TransmissionEnded schedules the next one.
	if a.transmitting {
		return nil
	}
	if a.processor.HasPending(a.queue) {
		return a.startTransmission(s)
	}
	if a.state == Waiting {
		a.setState(Idle)
	}
	return nil
}

// scheduleWait draws a random wait, but only when the node is neither
// transmitting nor receiving.
func (a *ALOHA) scheduleWait(now float64, s *sim.Simulator) error {
	if a.transmitting || a.onGoing != 0 {
		return nil
	}
	a.setState(Waiting)
	a.stats.WaitsScheduled++
	a.record(now, trace.KindWait, nil, -1)
	return s.After(a.wait.Sample(), a, sim.WaitEnded)
}

// startTransmission pulls one packet and puts it on the air. Starting while a
// reception is in progress is itself a collision.
func (a *ALOHA) startTransmission(s *sim.Simulator) error {
	p, err := a.processor.TakeNext(a.queue)
	if err != nil {
		return fmt.Errorf("%s: start transmission: %w", a, err)
	}
	if a.onGoing != 0 {
		a.setState(Collided)
	} else {
		a.setState(Transmitting)
	}
	a.transmitting = true
	a.stats.Transmitted++
	a.record(s.Now(), trace.KindTransmit, p, -1)

	if err := s.After(a.channel.TransmitDuration(p), a, sim.TransmissionEnded); err != nil {
		return err
	}
	return a.broadcast(p, s)
}

func (a *ALOHA) setState(next State) {
	if next != a.state {
		logrus.Debugf("%s: %s -> %s", a, a.state, next)
	}
	a.state = next
}

// Template describes a node configuration that many live nodes are stamped from.
// Instantiated nodes share Channel, Processor, Wait and Trace by reference and
// each get a fresh queue with the capacity of Queue.
type Template struct {
	Channel   sim.CommChannel
	Processor sim.PacketProcessor
	Wait      distribution.Distribution
	Queue     *sim.FIFO
	Trace     *trace.SimulationTrace
}

// Instantiate returns a new node bound to location at.
func (t Template) Instantiate(id sim.NodeID, at topology.Coordinate) *ALOHA {
	if t.Queue == nil {
		panic("Template.Instantiate: Queue prototype must not be nil")
	}
	return NewALOHA(id, at, t.Queue.FreshCopy(), t.Processor, t.Channel, t.Wait, t.Trace)
}
