package ws

import (
	"github.com/partydeck/partydeck/internal/models"
	"github.com/partydeck/partydeck/internal/replica"
)

// Command names accepted over the bridge
const (
	CommandCreate       = "create"
	CommandJoin         = "join"
	CommandLeave        = "leave"
	CommandClose        = "close"
	CommandSetTeamCount = "setTeamCount"
	CommandAssignTeam   = "assignTeam"
	CommandRenameTeam   = "renameTeam"
	CommandSetLocation  = "setLocation"
	CommandStartRound   = "startRound"
	CommandPauseTimer   = "pauseTimer"
	CommandResumeTimer  = "resumeTimer"
	CommandBuzz         = "buzz"
	CommandCorrect      = "correct"
	CommandWrong        = "wrong"
	CommandCancelBuzz   = "cancelBuzz"
	CommandSkip         = "skip"
	CommandAdvance      = "advance"
)

// Envelope types pushed to the UI
const (
	envelopeResult   = "result"
	envelopeError    = "error"
	envelopeEvent    = "event"
	envelopeSnapshot = "snapshot"
)

// Command is one JSON message from the UI
type Command struct {
	// Type is the command name
	Type string `json:"type"`

	// Code is the join code, required for everything but create
	Code string `json:"code,omitempty"`

	// ActorID identifies the caller
	ActorID string `json:"actorId,omitempty"`

	// Role is the caller's claimed role
	Role models.Role `json:"role,omitempty"`

	// DisplayName is used by create and join
	DisplayName string `json:"displayName,omitempty"`

	// Config is the game configuration on create
	Config *models.SessionConfig `json:"config,omitempty"`

	// Count is the team count on setTeamCount
	Count int `json:"count,omitempty"`

	// TargetID is the participant being moved on assignTeam
	TargetID string `json:"targetId,omitempty"`

	// TeamID is used by assignTeam and renameTeam
	TeamID string `json:"teamId,omitempty"`

	// Name is the new team name on renameTeam
	Name string `json:"name,omitempty"`

	// Location is the screen tag on setLocation
	Location string `json:"location,omitempty"`

	// DurationMs overrides the round duration on startRound
	DurationMs int64 `json:"durationMs,omitempty"`
}

// Envelope is one JSON message to the UI
type Envelope struct {
	// Type is result, error, event or snapshot
	Type string `json:"type"`

	// Command echoes the command a result or error answers
	Command string `json:"command,omitempty"`

	// Error is the failure message on error envelopes
	Error string `json:"error,omitempty"`

	// Result carries the command output on result envelopes
	Result interface{} `json:"result,omitempty"`

	// Event carries the notification on event envelopes
	Event *models.Event `json:"event,omitempty"`

	// Snapshot carries the replica view on snapshot envelopes
	Snapshot *replica.Snapshot `json:"snapshot,omitempty"`
}
