package session

import (
	"github.com/partydeck/partydeck/internal/models"
)

// SaveRoomInput contains parameters for saving the room document
type SaveRoomInput struct {
	// Room is the session to persist
	Room *models.Session
}

// GetRoomInput contains parameters for retrieving the room document
type GetRoomInput struct {
	// Code is the join code
	Code string
}

// DeleteRoomInput contains parameters for deleting the room subtree
type DeleteRoomInput struct {
	// Code is the join code
	Code string
}

// SaveParticipantInput contains parameters for saving a participant
type SaveParticipantInput struct {
	// Code is the join code
	Code string

	// Participant is the participant to persist
	Participant *models.Participant
}

// GetParticipantInput contains parameters for retrieving a participant
type GetParticipantInput struct {
	// Code is the join code
	Code string

	// ParticipantID is the participant to retrieve
	ParticipantID string
}

// ListParticipantsInput contains parameters for listing participants
type ListParticipantsInput struct {
	// Code is the join code
	Code string
}

// RemoveParticipantInput contains parameters for removing a participant
type RemoveParticipantInput struct {
	// Code is the join code
	Code string

	// ParticipantID is the participant to remove
	ParticipantID string
}

// SaveTeamInput contains parameters for saving a team
type SaveTeamInput struct {
	// Code is the join code
	Code string

	// Team is the team to persist
	Team *models.Team
}

// ListTeamsInput contains parameters for listing teams
type ListTeamsInput struct {
	// Code is the join code
	Code string
}

// DeleteTeamsInput contains parameters for removing all teams
type DeleteTeamsInput struct {
	// Code is the join code
	Code string
}

// WatchInput contains parameters for watching the room subtrees
type WatchInput struct {
	// Code is the join code
	Code string
}
