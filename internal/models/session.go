package models

import (
	"time"
)

// Mode determines whether actors compete individually or as teams
type Mode string

const (
	// ModeIndividual indicates every participant plays for themselves
	ModeIndividual Mode = "individual"

	// ModeTeams indicates participants are grouped into teams
	ModeTeams Mode = "teams"
)

// RotationMode determines who facilitates each round
type RotationMode string

const (
	// RotationSingle indicates the host facilitates every round
	RotationSingle RotationMode = "single"

	// RotationRotating indicates the facilitator role rotates between actors
	RotationRotating RotationMode = "rotating"
)

// Phase represents the lifecycle state of a session
type Phase string

const (
	// PhaseLobby indicates the session is waiting for participants to join
	PhaseLobby Phase = "lobby"

	// PhasePlaying indicates a round is in progress
	PhasePlaying Phase = "playing"

	// PhasePaused indicates the current round is paused
	PhasePaused Phase = "paused"

	// PhaseEnded indicates the host has ended the session
	PhaseEnded Phase = "ended"
)

// Role is the authority level a caller claims when issuing a command
type Role string

const (
	// RoleHost is the participant who created the room
	RoleHost Role = "host"

	// RoleFacilitator is the actor currently asking/miming in rotating modes
	RoleFacilitator Role = "facilitator"

	// RolePlayer is any other participant
	RolePlayer Role = "player"
)

// SessionConfig holds the per-session game configuration
type SessionConfig struct {
	// Mode is individual or team play
	Mode Mode

	// RotationMode is single or rotating facilitator
	RotationMode RotationMode

	// RoundSeconds is the countdown duration for each round
	RoundSeconds int

	// RaceWindowMs is how long the buzz race window stays open after the
	// first signal is observed
	RaceWindowMs int64

	// LockoutMs is how long a wrong-answer penalty lasts
	LockoutMs int64

	// HeartbeatSeconds is the liveness write interval
	HeartbeatSeconds int

	// LivenessSeconds is the age threshold for classifying an actor online
	LivenessSeconds int

	// MinTeamSize is the minimum member count for a team to be valid
	MinTeamSize int
}

// Session represents a game room joined by a short human-typeable code
type Session struct {
	// Code is the join code, unique per active room
	Code string

	// HostID is the participant ID of the room's host
	HostID string

	// Phase is the current lifecycle state
	Phase Phase

	// Config is the game configuration chosen by the host
	Config SessionConfig

	// Closed indicates the host has ended the session
	Closed bool

	// CreatedAt is when the session was created
	CreatedAt time.Time

	// UpdatedAt is when the session was last updated
	UpdatedAt time.Time
}
