package presence

import (
	"context"
	"time"
)

//go:generate mockgen -package=mocks -destination=mocks/mock_repository.go github.com/partydeck/partydeck/internal/repositories/presence Repository

// Repository defines storage for liveness heartbeats and exposes the
// store's authoritative clock
type Repository interface {
	// Heartbeat records a liveness write for one actor
	Heartbeat(ctx context.Context, input *HeartbeatInput) error

	// Snapshot retrieves the last heartbeat of every actor in the room
	Snapshot(ctx context.Context, input *SnapshotInput) (*SnapshotOutput, error)

	// ClearRoom removes all heartbeats for a room
	ClearRoom(ctx context.Context, input *ClearRoomInput) error

	// ServerTime returns the store's authoritative time
	ServerTime(ctx context.Context) (time.Time, error)
}

// HeartbeatInput contains parameters for a liveness write
type HeartbeatInput struct {
	// Code is the join code
	Code string

	// ActorID is the participant writing the heartbeat
	ActorID string

	// AtMs is the adjusted timestamp of the write in unix milliseconds
	AtMs int64
}

// SnapshotInput contains parameters for reading all heartbeats
type SnapshotInput struct {
	// Code is the join code
	Code string
}

// SnapshotOutput contains the last heartbeat per actor
type SnapshotOutput struct {
	// Heartbeats maps actor id to last heartbeat in unix milliseconds
	Heartbeats map[string]int64
}

// ClearRoomInput contains parameters for removing a room's heartbeats
type ClearRoomInput struct {
	// Code is the join code
	Code string
}
