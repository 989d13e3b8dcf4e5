package sim

import "fmt"

// EventLabel tags what a scheduled callback means to its target.
// The set is closed: handlers switch over every label and treat anything
// else as ErrUnknownEvent.
type EventLabel uint8

const (
	// ReceiveEnded fires when an inbound frame finishes arriving.
	ReceiveEnded EventLabel = iota
	// TransmissionEnded fires when the node's own frame leaves the air.
	TransmissionEnded
	// WaitEnded fires when a random wait (backoff or inter-arrival) expires.
	WaitEnded

	numEventLabels
)

var eventLabelNames = [numEventLabels]string{
	ReceiveEnded:      "Receive Ended",
	TransmissionEnded: "Transmission Ended",
	WaitEnded:         "Wait Ended",
}

// Valid reports whether l is one of the defined labels.
func (l EventLabel) Valid() bool {
	return l < numEventLabels
}

func (l EventLabel) String() string {
	if !l.Valid() {
		return fmt.Sprintf("EventLabel(%d)", uint8(l))
	}
	return eventLabelNames[l]
}

// Handler is implemented by every entity that can be the target of an Event.
// HandleEvent runs synchronously; it may schedule further events on s.
type Handler interface {
	HandleEvent(now float64, label EventLabel, s *Simulator) error
}

// Event is an immutable scheduled callback.
// seq is assigned by the Simulator and breaks ties between equal times.
type Event struct {
	time   float64
	target Handler
	label  EventLabel
	seq    uint64
}

// Time returns the simulated time the event fires at.
func (e Event) Time() float64 { return e.time }

// Target returns the handler the event is dispatched to.
func (e Event) Target() Handler { return e.target }

// Label returns the event tag.
func (e Event) Label() EventLabel { return e.label }

// Seq returns the scheduling sequence number.
func (e Event) Seq() uint64 { return e.seq }

func (e Event) String() string {
	return fmt.Sprintf("{t=%g %s -> %v #%d}", e.time, e.label, e.target, e.seq)
}
