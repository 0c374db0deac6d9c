package presence

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/partydeck/partydeck/internal/clocksync"
	"github.com/partydeck/partydeck/internal/models"
	presenceRepo "github.com/partydeck/partydeck/internal/repositories/presence"
)

// Resyncer recomputes the clock offset after a connectivity gap
type Resyncer interface {
	Sync(ctx context.Context) error
}

// Config holds configuration for the presence tracker
type Config struct {
	// Code is the join code of the tracked room
	Code string

	// ActorID is the local participant writing heartbeats
	ActorID string

	// Repo stores the heartbeats
	Repo presenceRepo.Repository

	// Adjuster provides skew-corrected timestamps
	Adjuster clocksync.Adjuster

	// Resyncer is invoked after heartbeat writes recover from a failure,
	// because the offset can drift across a network stall. Optional.
	Resyncer Resyncer

	// Clock drives the heartbeat ticker
	Clock clockwork.Clock

	// Interval is the heartbeat write period
	Interval time.Duration

	// LivenessWindow is the age threshold for classifying online
	LivenessWindow time.Duration

	// Logger for liveness transitions
	Logger zerolog.Logger

	// OnChange is invoked when an actor's classification changes. Optional.
	OnChange func(models.Event)
}

// Tracker writes the local actor's heartbeat and watches every actor's
// classification. The classification is advisory: it informs skipping and
// warnings, never destructive removal.
type Tracker struct {
	code       string
	actorID    string
	repo       presenceRepo.Repository
	classifier *Classifier
	adjuster   clocksync.Adjuster
	resyncer   Resyncer
	clock      clockwork.Clock
	interval   time.Duration
	logger     zerolog.Logger
	onChange   func(models.Event)

	lastSeen map[string]models.PresenceStatus
}

// New creates a new presence tracker
func New(cfg *Config) (*Tracker, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Code == "" || cfg.ActorID == "" {
		return nil, errors.New("code and actor ID cannot be empty")
	}

	if cfg.Repo == nil {
		return nil, errors.New("presence repository cannot be nil")
	}

	if cfg.Adjuster == nil {
		return nil, errors.New("adjuster cannot be nil")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 3 * time.Second
	}

	livenessWindow := cfg.LivenessWindow
	if livenessWindow <= 0 {
		livenessWindow = 3 * interval
	}

	classifier, err := NewClassifier(&ClassifierConfig{
		Repo:           cfg.Repo,
		Adjuster:       cfg.Adjuster,
		LivenessWindow: livenessWindow,
	})
	if err != nil {
		return nil, err
	}

	return &Tracker{
		code:       cfg.Code,
		actorID:    cfg.ActorID,
		repo:       cfg.Repo,
		classifier: classifier,
		adjuster:   cfg.Adjuster,
		resyncer:   cfg.Resyncer,
		clock:      clock,
		interval:   interval,
		logger:     cfg.Logger,
		onChange:   cfg.OnChange,
		lastSeen:   make(map[string]models.PresenceStatus),
	}, nil
}

// Snapshot classifies every actor with a recorded heartbeat
func (t *Tracker) Snapshot(ctx context.Context) (map[string]models.PresenceStatus, error) {
	return t.classifier.Snapshot(ctx, t.code)
}

// Run writes heartbeats and emits classification transitions until the
// context is cancelled
func (t *Tracker) Run(ctx context.Context) error {
	ticker := t.clock.NewTicker(t.interval)
	defer ticker.Stop()

	// First heartbeat immediately so other clients see us before the
	// first tick
	writeFailed := t.beat(ctx, false)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			writeFailed = t.beat(ctx, writeFailed)
			t.observe(ctx)
		}
	}
}

// beat writes one heartbeat. It returns whether the write failed so the
// next success can trigger a clock resync.
func (t *Tracker) beat(ctx context.Context, recovering bool) bool {
	err := t.repo.Heartbeat(ctx, &presenceRepo.HeartbeatInput{
		Code:    t.code,
		ActorID: t.actorID,
		AtMs:    t.adjuster.NowMs(),
	})
	if err != nil {
		t.logger.Warn().Err(err).Msg("heartbeat write failed")
		return true
	}

	if recovering && t.resyncer != nil {
		if err := t.resyncer.Sync(ctx); err != nil {
			t.logger.Warn().Err(err).Msg("clock resync after reconnect failed")
		}
	}

	return false
}

// observe diffs the current classification against the last one and emits
// presenceChanged events
func (t *Tracker) observe(ctx context.Context) {
	statuses, err := t.Snapshot(ctx)
	if err != nil {
		t.logger.Warn().Err(err).Msg("presence snapshot failed")
		return
	}

	for actorID, status := range statuses {
		if previous, known := t.lastSeen[actorID]; known && previous == status {
			continue
		}

		t.lastSeen[actorID] = status
		t.logger.Debug().
			Str("actor_id", actorID).
			Str("status", string(status)).
			Msg("presence changed")

		if t.onChange != nil {
			t.onChange(models.Event{
				Type:    models.EventPresenceChanged,
				Code:    t.code,
				ActorID: actorID,
				Status:  status,
				At:      t.adjuster.AdjustedNow(),
			})
		}
	}
}
