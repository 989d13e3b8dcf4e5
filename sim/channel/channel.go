// Package channel implements the shared wireless medium nodes transmit over.
package channel

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/macsim/sim"
)

// MinDuration is the air time floor for zero-length frames, keeping every
// TransmitDuration strictly positive.
const MinDuration = 1e-9

// Shared is an error-free broadcast medium with a fixed bit rate and no
// propagation delay: a reception starts at the instant the sender transmits.
type Shared struct {
	bitRate float64

	// broadcasts counts frame copies handed to receivers.
	broadcasts int64
}

// NewShared returns a medium carrying bitRate bits per time unit.
func NewShared(bitRate float64) *Shared {
	if bitRate <= 0 {
		panic(fmt.Sprintf("NewShared: bitRate must be > 0, got %v", bitRate))
	}
	return &Shared{bitRate: bitRate}
}

// TransmitDuration returns the air time of p.
func (c *Shared) TransmitDuration(p *sim.Packet) float64 {
	d := float64(p.Size) / c.bitRate
	if d < MinDuration {
		return MinDuration
	}
	return d
}

// Broadcast starts the reception of p at receiver.
func (c *Shared) Broadcast(sender sim.NodeID, receiver sim.Receiver, p *sim.Packet, s *sim.Simulator) error {
	c.broadcasts++
	logrus.Tracef("channel: %s %d -> %d", p, sender, receiver.NodeID())
	if err := receiver.Receive(sender, p, s); err != nil {
		return fmt.Errorf("broadcast %s from %d to %d: %w", p, sender, receiver.NodeID(), err)
	}
	return nil
}

// Broadcasts returns the number of frame copies delivered to receivers so far.
func (c *Shared) Broadcasts() int64 {
	return c.broadcasts
}
