// Package processor implements the upper layer MAC nodes drain their queues into.
package processor

import (
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/macsim/sim"
)

// Counting drains queues in FIFO order and tallies what it is handed.
// With Echo set, every delivered data packet triggers a same-size response
// queued at the receiver; responses are never echoed again.
type Counting struct {
	clock   sim.Clock
	packets *sim.PacketFactory
	echo    bool

	delivered     map[sim.NodeID]int
	delays        []float64
	echoesQueued  int
	echoesDropped int
}

// NewCounting returns a processor. packets is only used when echo is true.
func NewCounting(clock sim.Clock, packets *sim.PacketFactory, echo bool) *Counting {
	if echo && packets == nil {
		panic("NewCounting: echo requires a packet factory")
	}
	return &Counting{
		clock:     clock,
		packets:   packets,
		echo:      echo,
		delivered: make(map[sim.NodeID]int),
	}
}

// HasPending reports whether q holds a packet.
func (c *Counting) HasPending(q *sim.FIFO) bool {
	return q.Len() > 0
}

// TakeNext pops the head of q.
func (c *Counting) TakeNext(q *sim.FIFO) (*sim.Packet, error) {
	p, ok := q.Poll()
	if !ok {
		return nil, sim.ErrEmptyQueue
	}
	return p, nil
}

// Deliver records a clean reception at destination.
func (c *Counting) Deliver(source, destination sim.NodeID, p *sim.Packet, q *sim.FIFO) {
	c.delivered[destination]++
	c.delays = append(c.delays, c.clock.Now()-p.Created)
	logrus.Debugf("deliver %s: %d -> %d", p, source, destination)

	if !c.echo || p.Echo {
		return
	}
	resp := c.packets.New(destination, p.Size)
	resp.Echo = true
	if q.Offer(resp) {
		c.echoesQueued++
	} else {
		c.echoesDropped++
	}
}

// Delivered returns the number of packets delivered at node id.
func (c *Counting) Delivered(id sim.NodeID) int {
	return c.delivered[id]
}

// TotalDelivered returns deliveries summed over all nodes.
func (c *Counting) TotalDelivered() int {
	total := 0
	for _, n := range c.delivered {
		total += n
	}
	return total
}

// Delays returns end-to-end delays (delivery time minus creation time) in delivery order.
// The slice is the processor's own storage; callers must not modify it.
func (c *Counting) Delays() []float64 {
	return c.delays
}

// Echoes returns how many responses were queued and how many the queue rejected.
func (c *Counting) Echoes() (queued, dropped int) {
	return c.echoesQueued, c.echoesDropped
}
