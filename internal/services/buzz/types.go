package buzz

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/partydeck/partydeck/internal/clocksync"
	"github.com/partydeck/partydeck/internal/common/uuid"
	roundRepo "github.com/partydeck/partydeck/internal/repositories/round"
	sessionRepo "github.com/partydeck/partydeck/internal/repositories/session"
)

// Config holds configuration for the buzz arbiter
type Config struct {
	// SessionRepo provides the room and participants
	SessionRepo sessionRepo.Repository

	// RoundRepo stores windows and signals
	RoundRepo roundRepo.Repository

	// Adjuster provides skew-corrected timestamps
	Adjuster clocksync.Adjuster

	// UUIDGenerator mints window ids
	UUIDGenerator uuid.UUID

	// Clock drives the race-window timer
	Clock clockwork.Clock

	// RaceWindow is how long after the first observed signal the window
	// stays open to near-simultaneous buzzes
	RaceWindow time.Duration

	// Logger for arbitration steps
	Logger zerolog.Logger
}

// OpenWindowInput contains parameters for opening a buzz window
type OpenWindowInput struct {
	// Code is the join code
	Code string

	// FacilitatorID is the actor excluded from buzzing
	FacilitatorID string

	// FacilitatorTeamID excludes the whole facilitating team in team mode
	FacilitatorTeamID string
}

// OpenWindowOutput contains the opened window
type OpenWindowOutput struct {
	// WindowID is the id of the new window
	WindowID string
}

// SubmitInput contains parameters for submitting a buzz signal
type SubmitInput struct {
	// Code is the join code
	Code string

	// ActorID is the participant buzzing
	ActorID string
}

// SubmitOutput contains the recorded signal
type SubmitOutput struct {
	// WindowID is the window the signal was recorded against
	WindowID string

	// AdjustedAt is the skew-corrected submission timestamp
	AdjustedAt int64
}

// ScheduleResolveInput contains parameters for scheduling resolution
type ScheduleResolveInput struct {
	// Code is the join code
	Code string

	// WindowID is the window to resolve
	WindowID string

	// FirstSignalAt is the adjusted timestamp of the first observed signal
	FirstSignalAt int64

	// RaceWindowMs overrides the arbiter's default race window when
	// positive, carrying the session's configured value
	RaceWindowMs int64

	// OnResolved is invoked with the resolution result. Optional.
	OnResolved func(*ResolveOutput)

	// OnEmpty is invoked when resolution found no eligible signals and
	// the window was reopened. Optional.
	OnEmpty func()
}

// ResolveInput contains parameters for resolving a window
type ResolveInput struct {
	// Code is the join code
	Code string

	// WindowID is the window to resolve
	WindowID string
}

// ResolveOutput contains the resolution result
type ResolveOutput struct {
	// WinnerID is the committed winner
	WinnerID string

	// Committed indicates this resolver performed the commit; false means
	// another resolver won the race and this call was a benign no-op
	Committed bool
}

// ReopenInput contains parameters for reopening a resolved window
type ReopenInput struct {
	// Code is the join code
	Code string

	// WindowID is the window to reopen
	WindowID string

	// PenalizeWinner applies a lockout to the resolved winner; false for
	// accidental-buzz cancellation
	PenalizeWinner bool

	// LockoutMs is the penalty duration when PenalizeWinner is set
	LockoutMs int64
}

// ReopenOutput contains the result of reopening a window
type ReopenOutput struct {
	// PenalizedActorID is the actor locked out, empty without penalty
	PenalizedActorID string

	// PenalizedUntil is when the lockout expires
	PenalizedUntil *time.Time
}

// CloseWindowInput contains parameters for discarding a window
type CloseWindowInput struct {
	// Code is the join code
	Code string

	// WindowID is the window to discard
	WindowID string
}
