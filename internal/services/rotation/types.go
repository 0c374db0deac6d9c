package rotation

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/partydeck/partydeck/internal/models"
	"github.com/partydeck/partydeck/internal/random"
	roundRepo "github.com/partydeck/partydeck/internal/repositories/round"
	sessionRepo "github.com/partydeck/partydeck/internal/repositories/session"
)

// PresenceSource provides the liveness classification used to skip
// unreachable actors
type PresenceSource interface {
	Snapshot(ctx context.Context, code string) (map[string]models.PresenceStatus, error)
}

// Config holds configuration for the rotation scheduler
type Config struct {
	// SessionRepo provides the room, participants and teams
	SessionRepo sessionRepo.Repository

	// RoundRepo stores the rotation state
	RoundRepo roundRepo.Repository

	// Presence classifies actor liveness
	Presence PresenceSource

	// Random shuffles the order and picks acting members
	Random *random.Generator

	// Logger for rotation transitions
	Logger zerolog.Logger
}

// BuildOrderInput contains parameters for fixing the turn order
type BuildOrderInput struct {
	// Code is the join code
	Code string
}

// BuildOrderOutput contains the fixed turn order
type BuildOrderOutput struct {
	// Rotation is the freshly built rotation state
	Rotation models.RotationState
}

// AdvanceInput contains parameters for moving to the next actor
type AdvanceInput struct {
	// Code is the join code
	Code string
}

// AdvanceOutput contains the next actor
type AdvanceOutput struct {
	// ActorID is the participant or team whose turn it is now
	ActorID string

	// TeamID is set when rotation runs over teams
	TeamID string

	// ActingMemberID is the member performing the action in team mode
	ActingMemberID string
}

// HandleInactiveInput contains parameters for reacting to a dropped actor
type HandleInactiveInput struct {
	// Code is the join code
	Code string

	// ActorID is the participant observed to have gone inactive
	ActorID string
}

// HandleInactiveOutput contains the result of reacting to a dropped actor
type HandleInactiveOutput struct {
	// Advanced indicates rotation moved because the dropped actor was due
	// to act
	Advanced bool

	// Next is set when Advanced is true
	Next *AdvanceOutput
}
