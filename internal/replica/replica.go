package replica

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/partydeck/partydeck/internal/models"
	roundRepo "github.com/partydeck/partydeck/internal/repositories/round"
	sessionRepo "github.com/partydeck/partydeck/internal/repositories/session"
)

// ErrReplicaClosed is returned after the room was deleted or Run stopped
var ErrReplicaClosed = errors.New("replica is closed")

// Snapshot is a consistent local view of one room's replicated state
type Snapshot struct {
	// Room is the session document
	Room *models.Session

	// Participants are the room's participants
	Participants []*models.Participant

	// Teams are the room's teams, empty in individual mode
	Teams []*models.Team

	// Round is the rotation/timer/buzz state, nil before the first round
	Round *models.RoundState

	// Closed indicates the room was deleted by the host
	Closed bool

	// Version increments on every applied change
	Version uint64
}

// Config holds configuration for the replica
type Config struct {
	// Code is the join code of the replicated room
	Code string

	// SessionRepo provides the room, participants and teams
	SessionRepo sessionRepo.Repository

	// RoundRepo provides the round state
	RoundRepo roundRepo.Repository

	// Logger for replication errors
	Logger zerolog.Logger
}

// Replica maintains a client's local copy of one room by applying the
// store's change notifications. Reads are served from memory; the store is
// only touched when a subtree is reported changed.
type Replica struct {
	code        string
	sessionRepo sessionRepo.Repository
	roundRepo   roundRepo.Repository
	logger      zerolog.Logger

	mu          sync.RWMutex
	snapshot    Snapshot
	subscribers []func(Snapshot)
}

// New creates a new replica
func New(cfg *Config) (*Replica, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Code == "" {
		return nil, errors.New("code cannot be empty")
	}

	if cfg.SessionRepo == nil || cfg.RoundRepo == nil {
		return nil, errors.New("repositories cannot be nil")
	}

	return &Replica{
		code:        cfg.Code,
		sessionRepo: cfg.SessionRepo,
		roundRepo:   cfg.RoundRepo,
		logger:      cfg.Logger,
	}, nil
}

// Snapshot returns the current local view
func (r *Replica) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// Subscribe registers a callback invoked with each new snapshot. Callbacks
// run on the replication goroutine and must not block.
func (r *Replica) Subscribe(fn func(Snapshot)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

// Run loads the initial state and applies changes until the context is
// cancelled or the room is deleted
func (r *Replica) Run(ctx context.Context) error {
	sessionChanges, err := r.sessionRepo.Watch(ctx, &sessionRepo.WatchInput{Code: r.code})
	if err != nil {
		return err
	}

	roundChanges, err := r.roundRepo.Watch(ctx, &roundRepo.WatchInput{Code: r.code})
	if err != nil {
		return err
	}

	// Initial full load happens after the subscriptions are live, so a
	// write between load and subscribe cannot be missed
	for _, subtree := range []models.Subtree{
		models.SubtreeRoom,
		models.SubtreeParticipants,
		models.SubtreeTeams,
		models.SubtreeRound,
	} {
		if err := r.apply(ctx, models.Change{Subtree: subtree, Kind: models.ChangeUpdated}); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-sessionChanges:
			if !ok {
				return ErrReplicaClosed
			}
			if err := r.apply(ctx, change); err != nil {
				return err
			}
			if r.Snapshot().Closed {
				return ErrReplicaClosed
			}
		case change, ok := <-roundChanges:
			if !ok {
				return ErrReplicaClosed
			}
			if err := r.apply(ctx, change); err != nil {
				return err
			}
		}
	}
}

// apply refreshes one subtree from the store and publishes the new snapshot
func (r *Replica) apply(ctx context.Context, change models.Change) error {
	r.mu.Lock()

	switch change.Subtree {
	case models.SubtreeRoom:
		if change.Kind == models.ChangeDeleted {
			// A deleted room is the host ending the session
			r.snapshot.Closed = true
			break
		}
		room, err := r.sessionRepo.GetRoom(ctx, &sessionRepo.GetRoomInput{Code: r.code})
		if err != nil {
			if errors.Is(err, sessionRepo.ErrSessionNotFound) {
				r.snapshot.Closed = true
				break
			}
			r.mu.Unlock()
			return err
		}
		r.snapshot.Room = room

	case models.SubtreeParticipants:
		participants, err := r.sessionRepo.ListParticipants(ctx, &sessionRepo.ListParticipantsInput{Code: r.code})
		if err != nil {
			r.mu.Unlock()
			return err
		}
		r.snapshot.Participants = participants

	case models.SubtreeTeams:
		teams, err := r.sessionRepo.ListTeams(ctx, &sessionRepo.ListTeamsInput{Code: r.code})
		if err != nil {
			r.mu.Unlock()
			return err
		}
		r.snapshot.Teams = teams

	case models.SubtreeRound:
		if change.Kind == models.ChangeDeleted {
			r.snapshot.Round = nil
			break
		}
		state, err := r.roundRepo.GetRound(ctx, &roundRepo.GetRoundInput{Code: r.code})
		if err != nil {
			if errors.Is(err, roundRepo.ErrRoundNotFound) {
				r.snapshot.Round = nil
				break
			}
			r.mu.Unlock()
			return err
		}
		r.snapshot.Round = state
	}

	r.snapshot.Version++
	snapshot := r.snapshot
	subscribers := make([]func(Snapshot), len(r.subscribers))
	copy(subscribers, r.subscribers)
	r.mu.Unlock()

	for _, fn := range subscribers {
		fn(snapshot)
	}

	return nil
}
