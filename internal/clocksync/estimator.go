package clocksync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Number of server-time samples taken per sync; the sample with the
// smallest round trip gives the tightest offset bound.
const syncSamples = 3

// ErrTimeSourceUnavailable is returned when no server-time sample succeeds
var ErrTimeSourceUnavailable = errors.New("authoritative time source unavailable")

// TimeSource provides the store's authoritative clock
type TimeSource interface {
	ServerTime(ctx context.Context) (time.Time, error)
}

// Adjuster exposes skew-corrected time to the other components
type Adjuster interface {
	// AdjustedNow returns local time corrected by the estimated offset
	AdjustedNow() time.Time

	// NowMs is AdjustedNow in unix milliseconds
	NowMs() int64
}

// Config holds configuration for the estimator
type Config struct {
	// TimeSource is the store's authoritative clock
	TimeSource TimeSource

	// Clock is the local clock
	Clock clockwork.Clock

	// Logger for sync diagnostics
	Logger zerolog.Logger
}

// Estimator computes the local clock's skew against the store's clock so
// timestamps from different devices can be compared. It must be re-synced
// after a reconnect because the offset can drift across a network stall.
type Estimator struct {
	source TimeSource
	clock  clockwork.Clock
	logger zerolog.Logger

	mu       sync.RWMutex
	offset   time.Duration
	degraded bool
}

// New creates a new estimator
func New(cfg *Config) (*Estimator, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.TimeSource == nil {
		return nil, errors.New("time source cannot be nil")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Estimator{
		source: cfg.TimeSource,
		clock:  clock,
		logger: cfg.Logger,
	}, nil
}

// Sync samples the authoritative clock and recomputes the offset. On total
// failure the offset falls back to zero and the estimator reports degraded:
// races are still arbitrated, just without skew correction.
func (e *Estimator) Sync(ctx context.Context) error {
	var (
		bestRTT    time.Duration
		bestOffset time.Duration
		sampled    bool
		lastErr    error
	)

	for i := 0; i < syncSamples; i++ {
		before := e.clock.Now()
		serverTime, err := e.source.ServerTime(ctx)
		after := e.clock.Now()
		if err != nil {
			lastErr = err
			continue
		}

		rtt := after.Sub(before)
		midpoint := before.Add(rtt / 2)
		offset := serverTime.Sub(midpoint)

		if !sampled || rtt < bestRTT {
			bestRTT = rtt
			bestOffset = offset
			sampled = true
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !sampled {
		e.offset = 0
		e.degraded = true
		e.logger.Warn().Err(lastErr).Msg("clock sync failed, race fairness reduced")
		return fmt.Errorf("%w: %v", ErrTimeSourceUnavailable, lastErr)
	}

	e.offset = bestOffset
	e.degraded = false
	e.logger.Debug().
		Dur("offset", bestOffset).
		Dur("rtt", bestRTT).
		Msg("clock offset estimated")

	return nil
}

// AdjustedNow returns the local time corrected by the estimated offset
func (e *Estimator) AdjustedNow() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.clock.Now().Add(e.offset)
}

// NowMs returns AdjustedNow in unix milliseconds
func (e *Estimator) NowMs() int64 {
	return e.AdjustedNow().UnixMilli()
}

// Offset returns the current offset estimate
func (e *Estimator) Offset() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.offset
}

// Degraded reports whether the last sync failed and the offset fell back
// to zero
func (e *Estimator) Degraded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.degraded
}
