package round

import (
	"context"

	"github.com/partydeck/partydeck/internal/models"
)

//go:generate mockgen -package=mocks -destination=mocks/mock_repository.go github.com/partydeck/partydeck/internal/repositories/round Repository

// Repository defines storage for the per-round subtree: rotation, timer and
// buzz windows. Buzz signals are written as sibling hash fields so
// concurrent submissions never conflict with each other.
type Repository interface {
	// SaveRound persists the round state
	SaveRound(ctx context.Context, input *SaveRoundInput) error

	// GetRound retrieves the round state
	GetRound(ctx context.Context, input *GetRoundInput) (*models.RoundState, error)

	// DeleteRound removes the round state
	DeleteRound(ctx context.Context, input *DeleteRoundInput) error

	// SaveWindow persists a buzz window document
	SaveWindow(ctx context.Context, input *SaveWindowInput) error

	// GetWindow retrieves a buzz window document
	GetWindow(ctx context.Context, input *GetWindowInput) (*models.BuzzWindow, error)

	// SubmitSignal records one actor's buzz signal
	SubmitSignal(ctx context.Context, input *SubmitSignalInput) error

	// ListSignals retrieves every signal submitted to a window
	ListSignals(ctx context.Context, input *ListSignalsInput) ([]*models.BuzzSignal, error)

	// CommitWinner writes the winner exactly once; a lost commit race
	// returns the already-committed winner instead of an error
	CommitWinner(ctx context.Context, input *CommitWinnerInput) (*CommitWinnerOutput, error)

	// ClearSignals wipes a window's signals and winner so it can reopen
	ClearSignals(ctx context.Context, input *ClearSignalsInput) error

	// DeleteWindow removes a window and its signals
	DeleteWindow(ctx context.Context, input *DeleteWindowInput) error

	// Watch streams round subtree changes until the context is cancelled
	Watch(ctx context.Context, input *WatchInput) (<-chan models.Change, error)
}
