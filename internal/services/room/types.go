package room

import (
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/partydeck/partydeck/internal/clocksync"
	"github.com/partydeck/partydeck/internal/common/uuid"
	"github.com/partydeck/partydeck/internal/models"
	"github.com/partydeck/partydeck/internal/random"
	presenceRepo "github.com/partydeck/partydeck/internal/repositories/presence"
	roundRepo "github.com/partydeck/partydeck/internal/repositories/round"
	sessionRepo "github.com/partydeck/partydeck/internal/repositories/session"
	"github.com/partydeck/partydeck/internal/services/buzz"
	"github.com/partydeck/partydeck/internal/services/rotation"
	"github.com/partydeck/partydeck/internal/services/timer"
)

// Config holds configuration for the room service
type Config struct {
	// SessionRepo stores the room, participants and teams
	SessionRepo sessionRepo.Repository

	// RoundRepo stores rotation, timer and buzz state
	RoundRepo roundRepo.Repository

	// PresenceRepo stores heartbeats, cleared when the room closes
	PresenceRepo presenceRepo.Repository

	// Timer is the shared countdown controller
	Timer *timer.Controller

	// Arbiter resolves buzz races
	Arbiter *buzz.Arbiter

	// Rotation computes turn order
	Rotation *rotation.Scheduler

	// Adjuster provides skew-corrected timestamps
	Adjuster clocksync.Adjuster

	// UUIDGenerator mints participant and team ids
	UUIDGenerator uuid.UUID

	// Random generates join codes and team assignment shuffles
	Random *random.Generator

	// Clock drives authority-side timers
	Clock clockwork.Clock

	// Logger for command handling
	Logger zerolog.Logger

	// Events receives notifications for the presentation layer. Optional.
	Events func(models.Event)

	// OnHostLoss is the host-failover extension point, invoked when the
	// host leaves or drops mid-session. Election itself is not part of
	// the core. Optional.
	OnHostLoss func(code, hostID string)
}

// CreateSessionInput contains parameters for creating a room
type CreateSessionInput struct {
	// HostID is the host's participant id; generated when empty
	HostID string

	// HostName is the host's display name
	HostName string

	// Config is the game configuration; zero fields get defaults
	Config models.SessionConfig
}

// CreateSessionOutput contains the created room
type CreateSessionOutput struct {
	// Code is the join code
	Code string

	// HostID is the host's participant id
	HostID string
}

// JoinSessionInput contains parameters for joining a room
type JoinSessionInput struct {
	// Code is the join code
	Code string

	// ActorID is the joining participant's id; generated when empty.
	// Passing a known id re-activates a disconnected participant.
	ActorID string

	// DisplayName is the participant's display name
	DisplayName string
}

// JoinSessionOutput contains the joined participant
type JoinSessionOutput struct {
	// Participant is the stored participant
	Participant *models.Participant
}

// LeaveSessionInput contains parameters for leaving a room
type LeaveSessionInput struct {
	// Code is the join code
	Code string

	// ActorID is the leaving participant
	ActorID string
}

// CloseSessionInput contains parameters for ending a session
type CloseSessionInput struct {
	// Code is the join code
	Code string

	// ActorID is the caller
	ActorID string

	// Role is the caller's claimed role; must be host
	Role models.Role
}

// SetTeamCountInput contains parameters for (re)creating teams
type SetTeamCountInput struct {
	// Code is the join code
	Code string

	// ActorID is the caller
	ActorID string

	// Role is the caller's claimed role; must be host
	Role models.Role

	// Count is the number of teams
	Count int
}

// SetTeamCountOutput contains the created teams
type SetTeamCountOutput struct {
	// Teams are the created teams with members assigned round-robin
	Teams []*models.Team
}

// AssignActorToTeamInput contains parameters for moving a participant
type AssignActorToTeamInput struct {
	// Code is the join code
	Code string

	// ActorID is the caller
	ActorID string

	// Role is the caller's claimed role; must be host
	Role models.Role

	// TargetID is the participant being moved
	TargetID string

	// TeamID is the destination team
	TeamID string
}

// RenameTeamInput contains parameters for renaming a team
type RenameTeamInput struct {
	// Code is the join code
	Code string

	// ActorID is the caller; must be a member of the team
	ActorID string

	// TeamID is the team to rename
	TeamID string

	// Name is the new team name
	Name string
}

// SetLocationInput contains parameters for recording a screen change
type SetLocationInput struct {
	// Code is the join code
	Code string

	// ActorID is the participant reporting their screen
	ActorID string

	// Location is the screen tag
	Location string
}

// StartRoundInput contains parameters for starting play
type StartRoundInput struct {
	// Code is the join code
	Code string

	// ActorID is the caller
	ActorID string

	// Role is the caller's claimed role
	Role models.Role

	// DurationMs overrides the configured round duration when positive
	DurationMs int64
}

// StartRoundOutput contains the opening round
type StartRoundOutput struct {
	// ActorID is the first actor due to act
	ActorID string

	// TeamID is set in team mode
	TeamID string

	// ActingMemberID is the acting member in team mode
	ActingMemberID string

	// WindowID is the opened buzz window
	WindowID string
}

// TimerCommandInput contains parameters for pause/resume commands
type TimerCommandInput struct {
	// Code is the join code
	Code string

	// ActorID is the caller
	ActorID string

	// Role is the caller's claimed role
	Role models.Role
}

// SubmitBuzzInput contains parameters for buzzing
type SubmitBuzzInput struct {
	// Code is the join code
	Code string

	// ActorID is the buzzing participant
	ActorID string
}

// SubmitBuzzOutput contains the recorded signal
type SubmitBuzzOutput struct {
	// WindowID is the window the signal was recorded against
	WindowID string

	// AdjustedAt is the skew-corrected submission timestamp
	AdjustedAt int64
}

// ResolutionInput contains parameters for judging a resolved buzz
type ResolutionInput struct {
	// Code is the join code
	Code string

	// ActorID is the caller
	ActorID string

	// Role is the caller's claimed role
	Role models.Role
}

// ResolutionOutput contains the next round after a judgement
type ResolutionOutput struct {
	// WinnerID is the actor the judgement applied to
	WinnerID string

	// NextActorID is the actor due to act next, empty when the round
	// was reopened instead of advanced
	NextActorID string

	// NextTeamID is set in team mode
	NextTeamID string
}

// AdvanceRotationInput contains parameters for explicitly advancing
type AdvanceRotationInput struct {
	// Code is the join code
	Code string

	// ActorID is the caller
	ActorID string

	// Role is the caller's claimed role
	Role models.Role
}

// AdvanceRotationOutput contains the next actor
type AdvanceRotationOutput struct {
	// ActorID is the actor due to act next
	ActorID string

	// TeamID is set in team mode
	TeamID string

	// ActingMemberID is the acting member in team mode
	ActingMemberID string
}
