package room

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/partydeck/partydeck/internal/models"
	roundRepo "github.com/partydeck/partydeck/internal/repositories/round"
	sessionRepo "github.com/partydeck/partydeck/internal/repositories/session"
	"github.com/partydeck/partydeck/internal/services/buzz"
	"github.com/partydeck/partydeck/internal/services/rotation"
	"github.com/partydeck/partydeck/internal/services/timer"
)

// RunAuthority drives the background duties of the authority node for one
// room: locking the buzz window once signals arrive and firing the countdown
// expiry. Exactly one node per room runs this loop; every other client only
// reads the store and submits commands. Blocks until the context is cancelled
// or the room is deleted.
func (s *service) RunAuthority(ctx context.Context, code string) error {
	changes, err := s.roundRepo.Watch(ctx, &roundRepo.WatchInput{Code: code})
	if err != nil {
		return err
	}

	var expiry clockwork.Timer
	var expiryCh <-chan time.Time
	defer func() {
		if expiry != nil {
			stopAndDrainTimer(expiry)
		}
	}()

	// Evaluate once on entry: the authority may be resuming after a
	// restart with a round already in flight.
	expiry, expiryCh = s.evaluate(ctx, code, expiry, expiryCh)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			if change.Kind == models.ChangeDeleted {
				s.logger.Info().Str("code", code).Msg("round subtree deleted, authority loop exiting")
				return nil
			}
			expiry, expiryCh = s.evaluate(ctx, code, expiry, expiryCh)
		case <-expiryCh:
			expiryCh = nil
			s.handleExpiry(ctx, code)
			expiry, expiryCh = s.evaluate(ctx, code, expiry, expiryCh)
		}
	}
}

// evaluate inspects the round state and reconciles the authority's two
// local timers: the race-window resolution and the countdown expiry
func (s *service) evaluate(ctx context.Context, code string, expiry clockwork.Timer, expiryCh <-chan time.Time) (clockwork.Timer, <-chan time.Time) {
	state, err := s.roundRepo.GetRound(ctx, &roundRepo.GetRoundInput{Code: code})
	if err != nil {
		if !errors.Is(err, roundRepo.ErrRoundNotFound) {
			s.logger.Error().Err(err).Str("code", code).Msg("failed to load round")
		}
		if expiryCh != nil {
			stopAndDrainTimer(expiry)
		}
		return expiry, nil
	}

	if state.BuzzWindowID != "" {
		s.reconcileWindow(ctx, code, state.BuzzWindowID)
	}

	nowMs := s.adjuster.NowMs()
	if state.Timer.Running() && !timer.Expired(state.Timer, nowMs) {
		remaining := time.Duration(timer.RemainingMs(state.Timer, nowMs)) * time.Millisecond
		return replaceTimer(s.clock, expiry, expiryCh, remaining)
	}

	if state.Timer.Running() && timer.Expired(state.Timer, nowMs) {
		// Already past zero, e.g. the authority restarted mid-round
		s.handleExpiry(ctx, code)
		state, err = s.roundRepo.GetRound(ctx, &roundRepo.GetRoundInput{Code: code})
		if err == nil && state.Timer.Running() && !timer.Expired(state.Timer, s.adjuster.NowMs()) {
			remaining := time.Duration(timer.RemainingMs(state.Timer, s.adjuster.NowMs())) * time.Millisecond
			return replaceTimer(s.clock, expiry, expiryCh, remaining)
		}
	}

	if expiryCh != nil {
		stopAndDrainTimer(expiry)
	}
	return expiry, nil
}

// reconcileWindow locks an open window once it has signals: the countdown
// pauses so arbitration never costs round time, and resolution is scheduled
// for the end of the race window
func (s *service) reconcileWindow(ctx context.Context, code, windowID string) {
	window, err := s.roundRepo.GetWindow(ctx, &roundRepo.GetWindowInput{Code: code, WindowID: windowID})
	if err != nil {
		if !errors.Is(err, roundRepo.ErrWindowNotFound) {
			s.logger.Error().Err(err).Str("code", code).Msg("failed to load window")
		}
		return
	}

	if window.State != models.BuzzStateOpen {
		return
	}

	signals, err := s.roundRepo.ListSignals(ctx, &roundRepo.ListSignalsInput{Code: code, WindowID: windowID})
	if err != nil {
		s.logger.Error().Err(err).Str("code", code).Msg("failed to list signals")
		return
	}

	if len(signals) == 0 {
		return
	}

	first := signals[0].AdjustedAt
	for _, sig := range signals[1:] {
		if sig.AdjustedAt < first {
			first = sig.AdjustedAt
		}
	}

	if err := s.timer.Pause(ctx, &timer.PauseInput{Code: code}); err != nil && !errors.Is(err, timer.ErrTimerNotStarted) {
		s.logger.Error().Err(err).Str("code", code).Msg("failed to pause countdown for arbitration")
	}

	var raceWindowMs int64
	if sess, err := s.sessionRepo.GetRoom(ctx, &sessionRepo.GetRoomInput{Code: code}); err == nil {
		raceWindowMs = sess.Config.RaceWindowMs
	}

	err = s.arbiter.ScheduleResolve(ctx, &buzz.ScheduleResolveInput{
		Code:          code,
		WindowID:      windowID,
		FirstSignalAt: first,
		RaceWindowMs:  raceWindowMs,
		OnResolved: func(out *buzz.ResolveOutput) {
			s.emit(models.Event{
				Type:     models.EventBuzzResolved,
				Code:     code,
				WinnerID: out.WinnerID,
				At:       s.adjuster.AdjustedNow(),
			})
		},
		OnEmpty: func() {
			// The pause above must not outlive the arbitration it was
			// bracketing
			if err := s.timer.Resume(ctx, &timer.ResumeInput{Code: code}); err != nil && !errors.Is(err, timer.ErrTimerNotStarted) {
				s.logger.Error().Err(err).Str("code", code).Msg("failed to resume countdown after empty resolution")
			}
		},
	})
	if err != nil {
		s.logger.Error().Err(err).Str("code", code).Str("window_id", windowID).Msg("failed to schedule resolution")
	}
}

// handleExpiry fires when the countdown reaches zero: the turn is forfeit
// and rotation advances
func (s *service) handleExpiry(ctx context.Context, code string) {
	sess, err := s.sessionRepo.GetRoom(ctx, &sessionRepo.GetRoomInput{Code: code})
	if err != nil {
		if !errors.Is(err, sessionRepo.ErrSessionNotFound) {
			s.logger.Error().Err(err).Str("code", code).Msg("failed to load room at expiry")
		}
		return
	}

	if sess.Phase != models.PhasePlaying {
		return
	}

	state, err := s.roundRepo.GetRound(ctx, &roundRepo.GetRoundInput{Code: code})
	if err != nil {
		return
	}

	// The schedule can be stale: a resolution paused the countdown, or a
	// judgement already restarted it
	if !state.Timer.Running() || !timer.Expired(state.Timer, s.adjuster.NowMs()) {
		return
	}

	s.emit(models.Event{
		Type:    models.EventTimeExpired,
		Code:    code,
		ActorID: state.Rotation.CurrentActorID,
		At:      s.adjuster.AdjustedNow(),
	})

	if _, err := s.nextRound(ctx, sess, state); err != nil {
		if errors.Is(err, rotation.ErrNoActiveActors) {
			s.logger.Warn().Str("code", code).Msg("countdown expired with no active actors")
			return
		}
		s.logger.Error().Err(err).Str("code", code).Msg("failed to advance after expiry")
	}
}

// HandlePresenceChange is the hook for the presence tracker: an offline
// classification of the current actor advances rotation instead of letting
// the room wait out a vanished turn
func (s *service) HandlePresenceChange(ctx context.Context, event models.Event) {
	if event.Type != models.EventPresenceChanged {
		return
	}

	s.emit(event)

	if event.Status != models.PresenceOffline {
		return
	}

	if err := s.HandleActorOffline(ctx, event.Code, event.ActorID); err != nil {
		if errors.Is(err, rotation.ErrNoActiveActors) || errors.Is(err, rotation.ErrRotationNotBuilt) {
			return
		}
		s.logger.Error().Err(err).Str("code", event.Code).Str("actor_id", event.ActorID).Msg("failed to handle offline actor")
	}
}

// replaceTimer arms the expiry timer for a new deadline, reusing the timer
// when one exists
func replaceTimer(clock clockwork.Clock, t clockwork.Timer, ch <-chan time.Time, d time.Duration) (clockwork.Timer, <-chan time.Time) {
	if t == nil {
		t = clock.NewTimer(d)
		return t, t.Chan()
	}
	if ch != nil {
		stopAndDrainTimer(t)
	}
	t.Reset(d)
	return t, t.Chan()
}

// stopAndDrainTimer stops a timer and drains a pending fire so a stale tick
// never wakes the loop
func stopAndDrainTimer(t clockwork.Timer) {
	if t == nil {
		return
	}
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}
