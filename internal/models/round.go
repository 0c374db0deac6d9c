package models

// RotationState tracks whose turn it is to act
type RotationState struct {
	// Order is the list of actor ids (participants or teams) fixed at
	// round start
	Order []string

	// Cursor is the index of the current actor in Order
	Cursor int

	// CurrentActorID is the participant or team whose turn it is
	CurrentActorID string

	// CurrentActingMemberID is the member performing the action when
	// rotation runs over teams, empty in individual mode
	CurrentActingMemberID string
}

// TimerState holds the shared countdown, derived locally by every observer.
//
// Timestamps are adjusted unix milliseconds; zero means unset. Exactly one
// of {not started, running, paused} holds: not started when StartedAt is
// zero, paused when PausedAt is set, running otherwise.
type TimerState struct {
	// DurationMs is the countdown duration
	DurationMs int64

	// StartedAt is the timestamp of the last resume
	StartedAt int64

	// PausedAt is set while the timer is paused
	PausedAt int64

	// AccumulatedMs is elapsed time banked from prior run segments
	AccumulatedMs int64
}

// Started reports whether the timer has ever been started
func (t TimerState) Started() bool {
	return t.StartedAt != 0
}

// Paused reports whether the timer is currently paused
func (t TimerState) Paused() bool {
	return t.Started() && t.PausedAt != 0
}

// Running reports whether the timer is counting down
func (t TimerState) Running() bool {
	return t.Started() && t.PausedAt == 0
}

// RoundState is the per-round subtree shared by all observers
type RoundState struct {
	// Number increments each time rotation advances to a new round
	Number int

	// Rotation is the turn-order state
	Rotation RotationState

	// Timer is the shared countdown
	Timer TimerState

	// BuzzWindowID is the id of the open buzz window, empty between rounds
	BuzzWindowID string
}
