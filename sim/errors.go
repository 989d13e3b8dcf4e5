package sim

import "errors"

var (
	// ErrInvalidSchedule is returned when an event is scheduled before the current clock.
	ErrInvalidSchedule = errors.New("invalid schedule: event time is in the past")

	// ErrUnknownEvent is returned when a handler is dispatched a label it has no entry for.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrEmptyQueue is returned by PacketProcessor.TakeNext when nothing is pending.
	ErrEmptyQueue = errors.New("queue is empty")

	// ErrEventBudgetExhausted is returned when a run dispatches more events than allowed.
	ErrEventBudgetExhausted = errors.New("event budget exhausted")
)
