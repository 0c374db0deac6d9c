package presence

import (
	"context"
	"errors"
	"time"

	"github.com/partydeck/partydeck/internal/clocksync"
	"github.com/partydeck/partydeck/internal/models"
	presenceRepo "github.com/partydeck/partydeck/internal/repositories/presence"
	sessionRepo "github.com/partydeck/partydeck/internal/repositories/session"
)

// ClassifierConfig holds configuration for the classifier
type ClassifierConfig struct {
	// Repo stores the heartbeats
	Repo presenceRepo.Repository

	// Adjuster provides skew-corrected timestamps
	Adjuster clocksync.Adjuster

	// LivenessWindow is the age threshold for classifying online
	LivenessWindow time.Duration

	// Sessions, when set, lets Snapshot use each room's configured
	// liveness window instead of the process default. Optional.
	Sessions sessionRepo.Repository
}

// Classifier derives liveness statuses from heartbeat age for any room
type Classifier struct {
	repo           presenceRepo.Repository
	adjuster       clocksync.Adjuster
	livenessWindow time.Duration
	sessions       sessionRepo.Repository
}

// NewClassifier creates a new classifier
func NewClassifier(cfg *ClassifierConfig) (*Classifier, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Repo == nil {
		return nil, errors.New("presence repository cannot be nil")
	}

	if cfg.Adjuster == nil {
		return nil, errors.New("adjuster cannot be nil")
	}

	livenessWindow := cfg.LivenessWindow
	if livenessWindow <= 0 {
		livenessWindow = 9 * time.Second
	}

	return &Classifier{
		repo:           cfg.Repo,
		adjuster:       cfg.Adjuster,
		livenessWindow: livenessWindow,
		sessions:       cfg.Sessions,
	}, nil
}

// Classify derives a liveness status from heartbeat age. The thresholds
// are shared by every client so all observers agree.
func Classify(age, livenessWindow time.Duration) models.PresenceStatus {
	if age < 0 {
		age = 0
	}

	switch {
	case age <= livenessWindow:
		return models.PresenceOnline
	case age <= livenessWindow+livenessWindow/2:
		return models.PresenceUncertain
	default:
		return models.PresenceOffline
	}
}

// Snapshot classifies every actor with a recorded heartbeat in the room
func (c *Classifier) Snapshot(ctx context.Context, code string) (map[string]models.PresenceStatus, error) {
	out, err := c.repo.Snapshot(ctx, &presenceRepo.SnapshotInput{Code: code})
	if err != nil {
		return nil, err
	}

	window := c.windowFor(ctx, code)
	nowMs := c.adjuster.NowMs()
	statuses := make(map[string]models.PresenceStatus, len(out.Heartbeats))
	for actorID, atMs := range out.Heartbeats {
		age := time.Duration(nowMs-atMs) * time.Millisecond
		statuses[actorID] = Classify(age, window)
	}

	return statuses, nil
}

// windowFor resolves the liveness window for one room, preferring the
// room's configured value over the process default
func (c *Classifier) windowFor(ctx context.Context, code string) time.Duration {
	if c.sessions == nil {
		return c.livenessWindow
	}

	sess, err := c.sessions.GetRoom(ctx, &sessionRepo.GetRoomInput{Code: code})
	if err != nil || sess.Config.LivenessSeconds <= 0 {
		return c.livenessWindow
	}

	return time.Duration(sess.Config.LivenessSeconds) * time.Second
}
