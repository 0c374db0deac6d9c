package timer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/partydeck/partydeck/internal/clocksync"
	"github.com/partydeck/partydeck/internal/models"
	roundRepo "github.com/partydeck/partydeck/internal/repositories/round"
)

// ErrTimerNotStarted is returned when pausing or resuming before start
var ErrTimerNotStarted = errors.New("timer has not been started")

// Controller maintains the shared countdown. No client owns a ticking
// loop: the stored timestamps plus each observer's adjusted clock are
// enough to derive the same remaining value everywhere.
type Controller struct {
	roundRepo roundRepo.Repository
	adjuster  clocksync.Adjuster
	clock     clockwork.Clock
	logger    zerolog.Logger
}

// New creates a new timer controller
func New(cfg *Config) (*Controller, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.RoundRepo == nil {
		return nil, errors.New("round repository cannot be nil")
	}

	if cfg.Adjuster == nil {
		return nil, errors.New("adjuster cannot be nil")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Controller{
		roundRepo: cfg.RoundRepo,
		adjuster:  cfg.Adjuster,
		clock:     clock,
		logger:    cfg.Logger,
	}, nil
}

// RemainingMs derives the countdown value from stored timestamps. It is a
// pure function so every observer computes the same value from the same
// state, independent of any UI refresh mechanism.
func RemainingMs(t models.TimerState, nowMs int64) int64 {
	if !t.Started() {
		return t.DurationMs
	}

	elapsed := t.AccumulatedMs
	if t.Paused() {
		elapsed += t.PausedAt - t.StartedAt
	} else {
		elapsed += nowMs - t.StartedAt
	}

	remaining := t.DurationMs - elapsed
	if remaining < 0 {
		return 0
	}

	return remaining
}

// Expired reports whether the countdown reached zero while not paused
func Expired(t models.TimerState, nowMs int64) bool {
	return t.Running() && RemainingMs(t, nowMs) == 0
}

// Start begins a fresh countdown
func (c *Controller) Start(ctx context.Context, input *StartInput) error {
	if input == nil || input.Code == "" {
		return errors.New("input and code cannot be empty")
	}

	if input.DurationMs <= 0 {
		return errors.New("duration must be positive")
	}

	state, err := c.roundRepo.GetRound(ctx, &roundRepo.GetRoundInput{Code: input.Code})
	if err != nil {
		return fmt.Errorf("failed to load round: %w", err)
	}

	state.Timer = models.TimerState{
		DurationMs:    input.DurationMs,
		StartedAt:     c.adjuster.NowMs(),
		PausedAt:      0,
		AccumulatedMs: 0,
	}

	if err := c.roundRepo.SaveRound(ctx, &roundRepo.SaveRoundInput{Code: input.Code, Round: state}); err != nil {
		return fmt.Errorf("failed to save timer start: %w", err)
	}

	c.logger.Debug().Str("code", input.Code).Int64("duration_ms", input.DurationMs).Msg("timer started")

	return nil
}

// Pause freezes the countdown. Pausing an already-paused timer is a no-op.
func (c *Controller) Pause(ctx context.Context, input *PauseInput) error {
	if input == nil || input.Code == "" {
		return errors.New("input and code cannot be empty")
	}

	state, err := c.roundRepo.GetRound(ctx, &roundRepo.GetRoundInput{Code: input.Code})
	if err != nil {
		return fmt.Errorf("failed to load round: %w", err)
	}

	if !state.Timer.Started() {
		return ErrTimerNotStarted
	}

	if state.Timer.Paused() {
		return nil
	}

	state.Timer.PausedAt = c.adjuster.NowMs()

	if err := c.roundRepo.SaveRound(ctx, &roundRepo.SaveRoundInput{Code: input.Code, Round: state}); err != nil {
		return fmt.Errorf("failed to save timer pause: %w", err)
	}

	c.logger.Debug().Str("code", input.Code).Msg("timer paused")

	return nil
}

// Resume continues a paused countdown. The finished run segment is banked
// into the accumulator before a fresh StartedAt is written; recomputing
// elapsed time from a single timestamp pair after several pause/resume
// cycles would double-count or lose paused intervals.
func (c *Controller) Resume(ctx context.Context, input *ResumeInput) error {
	if input == nil || input.Code == "" {
		return errors.New("input and code cannot be empty")
	}

	state, err := c.roundRepo.GetRound(ctx, &roundRepo.GetRoundInput{Code: input.Code})
	if err != nil {
		return fmt.Errorf("failed to load round: %w", err)
	}

	if !state.Timer.Started() {
		return ErrTimerNotStarted
	}

	if !state.Timer.Paused() {
		return nil
	}

	state.Timer.AccumulatedMs += state.Timer.PausedAt - state.Timer.StartedAt
	state.Timer.StartedAt = c.adjuster.NowMs()
	state.Timer.PausedAt = 0

	if err := c.roundRepo.SaveRound(ctx, &roundRepo.SaveRoundInput{Code: input.Code, Round: state}); err != nil {
		return fmt.Errorf("failed to save timer resume: %w", err)
	}

	c.logger.Debug().Str("code", input.Code).Msg("timer resumed")

	return nil
}

// Remaining reads the stored timer and derives the countdown locally
func (c *Controller) Remaining(ctx context.Context, input *RemainingInput) (*RemainingOutput, error) {
	if input == nil || input.Code == "" {
		return nil, errors.New("input and code cannot be empty")
	}

	state, err := c.roundRepo.GetRound(ctx, &roundRepo.GetRoundInput{Code: input.Code})
	if err != nil {
		return nil, fmt.Errorf("failed to load round: %w", err)
	}

	nowMs := c.adjuster.NowMs()

	return &RemainingOutput{
		RemainingMs: RemainingMs(state.Timer, nowMs),
		Running:     state.Timer.Running(),
		Expired:     Expired(state.Timer, nowMs),
	}, nil
}
