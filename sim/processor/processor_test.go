package processor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/macsim/sim"
)

type fixedClock float64

func (c fixedClock) Now() float64 { return float64(c) }

func TestCounting_TakeNext_FIFOAndEmpty(t *testing.T) {
	c := NewCounting(fixedClock(0), nil, false)
	q := sim.NewFIFO(0)
	a, b := &sim.Packet{ID: 1}, &sim.Packet{ID: 2}
	q.Offer(a)
	q.Offer(b)

	assert.True(t, c.HasPending(q))
	got, err := c.TakeNext(q)
	require.NoError(t, err)
	assert.Same(t, a, got)
	got, err = c.TakeNext(q)
	require.NoError(t, err)
	assert.Same(t, b, got)

	assert.False(t, c.HasPending(q))
	_, err = c.TakeNext(q)
	assert.True(t, errors.Is(err, sim.ErrEmptyQueue))
}

func TestCounting_Deliver_RecordsCountAndDelay(t *testing.T) {
	// GIVEN a processor at time 10
	c := NewCounting(fixedClock(10), nil, false)
	q := sim.NewFIFO(0)

	// WHEN two packets created at 4 and 7 are delivered to node 3
	c.Deliver(1, 3, &sim.Packet{ID: 1, Created: 4}, q)
	c.Deliver(2, 3, &sim.Packet{ID: 2, Created: 7}, q)

	// THEN both are counted with their delays, and nothing was echoed
	assert.Equal(t, 2, c.Delivered(3))
	assert.Equal(t, 0, c.Delivered(1))
	assert.Equal(t, 2, c.TotalDelivered())
	assert.Equal(t, []float64{6, 3}, c.Delays())
	assert.Equal(t, 0, q.Len())
}

func TestCounting_Echo_QueuesResponseOnce(t *testing.T) {
	// GIVEN an echoing processor and a capacity-1 receive-side queue
	clock := fixedClock(5)
	c := NewCounting(clock, sim.NewPacketFactory(clock), true)
	q := sim.NewFIFO(1)

	// WHEN a data packet is delivered
	c.Deliver(0, 1, &sim.Packet{ID: 100, Source: 0, Size: 64}, q)

	// THEN a response from node 1 is queued
	resp, ok := q.Peek()
	require.True(t, ok)
	assert.True(t, resp.Echo)
	assert.Equal(t, sim.NodeID(1), resp.Source)
	assert.Equal(t, 64, resp.Size)
	assert.Equal(t, 5.0, resp.Created)

	// AND delivering an echo does not produce another response
	c.Deliver(1, 0, resp, sim.NewFIFO(0))

	// AND a second data packet overflows the full queue
	c.Deliver(0, 1, &sim.Packet{ID: 101, Size: 64}, q)
	queued, dropped := c.Echoes()
	assert.Equal(t, 1, queued)
	assert.Equal(t, 1, dropped)
}

func TestNewCounting_EchoWithoutFactory_Panics(t *testing.T) {
	assert.Panics(t, func() { NewCounting(fixedClock(0), nil, true) })
}
