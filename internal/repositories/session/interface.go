package session

import (
	"context"

	"github.com/partydeck/partydeck/internal/models"
)

//go:generate mockgen -package=mocks -destination=mocks/mock_repository.go github.com/partydeck/partydeck/internal/repositories/session Repository

// Repository defines storage for the room document, participants and teams.
// Every mutation publishes a subtree change so other clients can re-read.
type Repository interface {
	// SaveRoom persists the room document
	SaveRoom(ctx context.Context, input *SaveRoomInput) error

	// GetRoom retrieves the room document by join code
	GetRoom(ctx context.Context, input *GetRoomInput) (*models.Session, error)

	// DeleteRoom removes the room subtree and signals deletion to watchers
	DeleteRoom(ctx context.Context, input *DeleteRoomInput) error

	// SaveParticipant persists one participant
	SaveParticipant(ctx context.Context, input *SaveParticipantInput) error

	// GetParticipant retrieves one participant
	GetParticipant(ctx context.Context, input *GetParticipantInput) (*models.Participant, error)

	// ListParticipants retrieves all participants in the room
	ListParticipants(ctx context.Context, input *ListParticipantsInput) ([]*models.Participant, error)

	// RemoveParticipant removes one participant
	RemoveParticipant(ctx context.Context, input *RemoveParticipantInput) error

	// SaveTeam persists one team
	SaveTeam(ctx context.Context, input *SaveTeamInput) error

	// ListTeams retrieves all teams in the room
	ListTeams(ctx context.Context, input *ListTeamsInput) ([]*models.Team, error)

	// DeleteTeams removes every team in the room
	DeleteTeams(ctx context.Context, input *DeleteTeamsInput) error

	// Watch streams room/participant/team subtree changes until the
	// context is cancelled
	Watch(ctx context.Context, input *WatchInput) (<-chan models.Change, error)
}
