package timer

import (
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/partydeck/partydeck/internal/clocksync"
	roundRepo "github.com/partydeck/partydeck/internal/repositories/round"
)

// Config holds configuration for the timer controller
type Config struct {
	// RoundRepo stores the shared timer state
	RoundRepo roundRepo.Repository

	// Adjuster provides skew-corrected timestamps
	Adjuster clocksync.Adjuster

	// Clock is used for local display ticks
	Clock clockwork.Clock

	// Logger for timer transitions
	Logger zerolog.Logger
}

// StartInput contains parameters for starting the countdown
type StartInput struct {
	// Code is the join code
	Code string

	// DurationMs is the countdown duration
	DurationMs int64
}

// PauseInput contains parameters for pausing the countdown
type PauseInput struct {
	// Code is the join code
	Code string
}

// ResumeInput contains parameters for resuming the countdown
type ResumeInput struct {
	// Code is the join code
	Code string
}

// RemainingInput contains parameters for reading the countdown
type RemainingInput struct {
	// Code is the join code
	Code string
}

// RemainingOutput contains the locally derived countdown value
type RemainingOutput struct {
	// RemainingMs is the time left on the countdown
	RemainingMs int64

	// Running indicates the timer is counting down
	Running bool

	// Expired indicates the countdown reached zero while not paused
	Expired bool
}
