// sim/simulator.go
package sim

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// eventQueue implements heap.Interface and orders events by (time, seq).
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type eventQueue []Event

func (eq eventQueue) Len() int { return len(eq) }
func (eq eventQueue) Less(i, j int) bool {
	if eq[i].time != eq[j].time {
		return eq[i].time < eq[j].time
	}
	return eq[i].seq < eq[j].seq
}
func (eq eventQueue) Swap(i, j int) { eq[i], eq[j] = eq[j], eq[i] }

func (eq *eventQueue) Push(x any) {
	*eq = append(*eq, x.(Event))
}

func (eq *eventQueue) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	old[n-1] = Event{}
	*eq = old[0 : n-1]
	return item
}

// Clock is anything that can report the current simulated time.
type Clock interface {
	Now() float64
}

// Simulator owns all pending events and the simulation clock.
// It is not safe for concurrent use; one Simulator drives one trial.
type Simulator struct {
	clock   float64
	events  eventQueue
	nextSeq uint64

	// dispatched counts events handed to their targets so far.
	dispatched int64
	// maxEvents caps dispatches per run call; 0 disables the cap.
	maxEvents int64
}

// NewSimulator returns a Simulator with the clock at zero and no pending events.
func NewSimulator() *Simulator {
	return &Simulator{
		events: make(eventQueue, 0),
	}
}

// Now returns the current simulated time.
func (s *Simulator) Now() float64 { return s.clock }

// Pending returns the number of scheduled but undispatched events.
func (s *Simulator) Pending() int { return len(s.events) }

// Dispatched returns the number of events dispatched so far.
func (s *Simulator) Dispatched() int64 { return s.dispatched }

// SetMaxEvents bounds the total number of dispatched events. Zero means unbounded.
func (s *Simulator) SetMaxEvents(n int64) {
	if n < 0 {
		panic(fmt.Sprintf("SetMaxEvents: n must be >= 0, got %d", n))
	}
	s.maxEvents = n
}

// Schedule adds an event firing at time at on target.
// Events at equal times fire in the order they were scheduled.
func (s *Simulator) Schedule(at float64, target Handler, label EventLabel) error {
	if math.IsNaN(at) || at < s.clock {
		return fmt.Errorf("%w: at=%g now=%g label=%s", ErrInvalidSchedule, at, s.clock, label)
	}
	if !label.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownEvent, label)
	}
	if target == nil {
		panic("Schedule: target must not be nil")
	}
	heap.Push(&s.events, Event{time: at, target: target, label: label, seq: s.nextSeq})
	s.nextSeq++
	return nil
}

// After schedules an event delay time units from now.
func (s *Simulator) After(delay float64, target Handler, label EventLabel) error {
	return s.Schedule(s.clock+delay, target, label)
}

// AdvanceTo moves the clock forward without dispatching anything.
// The slot driver uses it to stamp slots on a shared time reference.
func (s *Simulator) AdvanceTo(t float64) error {
	if math.IsNaN(t) || t < s.clock {
		return fmt.Errorf("%w: advance to %g from %g", ErrInvalidSchedule, t, s.clock)
	}
	if len(s.events) > 0 && s.events[0].time < t {
		return fmt.Errorf("%w: advance to %g skips event at %g", ErrInvalidSchedule, t, s.events[0].time)
	}
	s.clock = t
	return nil
}

// Run dispatches events until none are pending.
func (s *Simulator) Run() error {
	return s.RunUntil(math.Inf(1))
}

// RunUntil dispatches events in (time, seq) order and stops before the first
// event later than horizon; such events stay pending. A handler error aborts
// the run.
func (s *Simulator) RunUntil(horizon float64) error {
	for len(s.events) > 0 {
		if s.events[0].time > horizon {
			break
		}
		if s.maxEvents > 0 && s.dispatched >= s.maxEvents {
			return fmt.Errorf("%w: %d events dispatched by t=%g", ErrEventBudgetExhausted, s.dispatched, s.clock)
		}
		ev := heap.Pop(&s.events).(Event)
		if ev.time < s.clock {
			panic(fmt.Sprintf("clock went backwards: %g < %g", ev.time, s.clock))
		}
		s.clock = ev.time
		s.dispatched++
		logrus.Debugf("[t=%012.6f] %s -> %v", s.clock, ev.label, ev.target)
		if err := ev.target.HandleEvent(s.clock, ev.label, s); err != nil {
			return fmt.Errorf("t=%g %s: %w", s.clock, ev.label, err)
		}
	}
	logrus.Debugf("[t=%012.6f] run stopped, %d events pending", s.clock, len(s.events))
	return nil
}
