// Implements the FIFO link-layer queue owned by each MAC node.
// Admission is drop-tail: a full queue rejects the new arrival and keeps what it has.

package sim

import (
	"fmt"
	"strings"
)

// FIFO is a bounded first-in first-out queue of packets.
// A capacity of 0 means unbounded.
type FIFO struct {
	capacity int
	queue    []*Packet
	dropped  int
}

// NewFIFO returns an empty queue with the given capacity (0 = unbounded).
func NewFIFO(capacity int) *FIFO {
	if capacity < 0 {
		panic(fmt.Sprintf("NewFIFO: capacity must be >= 0, got %d", capacity))
	}
	return &FIFO{capacity: capacity}
}

// Offer appends p at the tail if there is room.
// It returns false, leaving the queue unchanged, when the queue is full.
func (q *FIFO) Offer(p *Packet) bool {
	if p == nil {
		panic("Offer: packet must not be nil")
	}
	if q.capacity != 0 && len(q.queue) >= q.capacity {
		q.dropped++
		return false
	}
	q.queue = append(q.queue, p)
	return true
}

// Poll removes and returns the oldest packet. ok is false when the queue is empty.
func (q *FIFO) Poll() (p *Packet, ok bool) {
	if len(q.queue) == 0 {
		return nil, false
	}
	p = q.queue[0]
	q.queue[0] = nil
	q.queue = q.queue[1:]
	return p, true
}

// Peek returns the oldest packet without removing it.
func (q *FIFO) Peek() (*Packet, bool) {
	if len(q.queue) == 0 {
		return nil, false
	}
	return q.queue[0], true
}

// Contains reports whether p is currently queued.
func (q *FIFO) Contains(p *Packet) bool {
	for _, queued := range q.queue {
		if queued == p {
			return true
		}
	}
	return false
}

// Len returns the number of queued packets.
func (q *FIFO) Len() int {
	return len(q.queue)
}

// Cap returns the configured capacity (0 = unbounded).
func (q *FIFO) Cap() int {
	return q.capacity
}

// Dropped returns how many offers this queue has rejected.
func (q *FIFO) Dropped() int {
	return q.dropped
}

// FreshCopy returns a new empty queue with the same capacity.
// Used when a node template is instantiated into a live topology.
func (q *FIFO) FreshCopy() *FIFO {
	return NewFIFO(q.capacity)
}

func (q *FIFO) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range q.queue {
		sb.WriteString(val.String())
		if i < len(q.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
