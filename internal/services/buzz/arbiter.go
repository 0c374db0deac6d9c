package buzz

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/partydeck/partydeck/internal/clocksync"
	"github.com/partydeck/partydeck/internal/common/uuid"
	"github.com/partydeck/partydeck/internal/models"
	roundRepo "github.com/partydeck/partydeck/internal/repositories/round"
	sessionRepo "github.com/partydeck/partydeck/internal/repositories/session"
)

var (
	// ErrWindowNotOpen is returned when buzzing outside an open window
	ErrWindowNotOpen = errors.New("buzz window is not open")

	// ErrNotEligible is returned when the facilitator or their team buzzes
	ErrNotEligible = errors.New("actor is not eligible to buzz")

	// ErrPenalized is returned while a wrong-buzz lockout is in effect
	ErrPenalized = errors.New("actor is penalized")

	// ErrNoSignals is returned when resolving a window with no eligible
	// signals
	ErrNoSignals = errors.New("no eligible signals in window")

	// ErrWindowSuperseded is returned when the round moved on before
	// resolution committed
	ErrWindowSuperseded = errors.New("buzz window superseded by phase change")

	// ErrWindowNotResolved is returned when reopening an unresolved window
	ErrWindowNotResolved = errors.New("buzz window has no resolved winner")
)

const defaultRaceWindow = 150 * time.Millisecond

// Arbiter collects competing "I answered" signals and deterministically
// picks one winner. Signals accumulate as sibling store keys; the total
// order over logically concurrent buzzes comes from comparing their
// skew-corrected timestamps.
type Arbiter struct {
	sessionRepo sessionRepo.Repository
	roundRepo   roundRepo.Repository
	adjuster    clocksync.Adjuster
	uuids       uuid.UUID
	clock       clockwork.Clock
	raceWindow  time.Duration
	logger      zerolog.Logger

	// pending guards against scheduling two race-window timers for the
	// same window
	pendingMu sync.Mutex
	pending   map[string]clockwork.Timer
}

// New creates a new buzz arbiter
func New(cfg *Config) (*Arbiter, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.SessionRepo == nil {
		return nil, errors.New("session repository cannot be nil")
	}

	if cfg.RoundRepo == nil {
		return nil, errors.New("round repository cannot be nil")
	}

	if cfg.Adjuster == nil {
		return nil, errors.New("adjuster cannot be nil")
	}

	if cfg.UUIDGenerator == nil {
		return nil, errors.New("uuid generator cannot be nil")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	raceWindow := cfg.RaceWindow
	if raceWindow <= 0 {
		raceWindow = defaultRaceWindow
	}

	return &Arbiter{
		sessionRepo: cfg.SessionRepo,
		roundRepo:   cfg.RoundRepo,
		adjuster:    cfg.Adjuster,
		uuids:       cfg.UUIDGenerator,
		clock:       clock,
		raceWindow:  raceWindow,
		logger:      cfg.Logger,
		pending:     make(map[string]clockwork.Timer),
	}, nil
}

// OpenWindow creates a fresh window for the current question/word and
// points the round at it
func (a *Arbiter) OpenWindow(ctx context.Context, input *OpenWindowInput) (*OpenWindowOutput, error) {
	if input == nil || input.Code == "" {
		return nil, errors.New("input and code cannot be empty")
	}

	window := &models.BuzzWindow{
		ID:                a.uuids.NewUUID(),
		State:             models.BuzzStateOpen,
		FacilitatorID:     input.FacilitatorID,
		FacilitatorTeamID: input.FacilitatorTeamID,
		OpenedAt:          a.adjuster.NowMs(),
	}

	if err := a.roundRepo.SaveWindow(ctx, &roundRepo.SaveWindowInput{Code: input.Code, Window: window}); err != nil {
		return nil, fmt.Errorf("failed to save window: %w", err)
	}

	state, err := a.roundRepo.GetRound(ctx, &roundRepo.GetRoundInput{Code: input.Code})
	if err != nil {
		return nil, fmt.Errorf("failed to load round: %w", err)
	}

	state.BuzzWindowID = window.ID
	if err := a.roundRepo.SaveRound(ctx, &roundRepo.SaveRoundInput{Code: input.Code, Round: state}); err != nil {
		return nil, fmt.Errorf("failed to point round at window: %w", err)
	}

	a.logger.Debug().Str("code", input.Code).Str("window_id", window.ID).Msg("buzz window opened")

	return &OpenWindowOutput{WindowID: window.ID}, nil
}

// Submit records one actor's buzz signal. The UI disables buzzing for
// ineligible actors, but eligibility is checked here as well.
func (a *Arbiter) Submit(ctx context.Context, input *SubmitInput) (*SubmitOutput, error) {
	if input == nil || input.Code == "" || input.ActorID == "" {
		return nil, errors.New("input, code and actor ID cannot be empty")
	}

	state, err := a.roundRepo.GetRound(ctx, &roundRepo.GetRoundInput{Code: input.Code})
	if err != nil {
		return nil, fmt.Errorf("failed to load round: %w", err)
	}

	if state.BuzzWindowID == "" {
		return nil, ErrWindowNotOpen
	}

	window, err := a.roundRepo.GetWindow(ctx, &roundRepo.GetWindowInput{Code: input.Code, WindowID: state.BuzzWindowID})
	if err != nil {
		return nil, fmt.Errorf("failed to load window: %w", err)
	}

	// Near-simultaneous buzzes are still accepted while the race window
	// counts down; only a resolved window rejects them
	if window.State == models.BuzzStateResolved {
		return nil, ErrWindowNotOpen
	}

	participant, err := a.sessionRepo.GetParticipant(ctx, &sessionRepo.GetParticipantInput{
		Code:          input.Code,
		ParticipantID: input.ActorID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load participant: %w", err)
	}

	if err := eligible(participant, window, a.adjuster.AdjustedNow()); err != nil {
		return nil, err
	}

	signal := &models.BuzzSignal{
		ActorID:    input.ActorID,
		AdjustedAt: a.adjuster.NowMs(),
	}

	err = a.roundRepo.SubmitSignal(ctx, &roundRepo.SubmitSignalInput{
		Code:     input.Code,
		WindowID: window.ID,
		Signal:   signal,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit signal: %w", err)
	}

	a.logger.Debug().
		Str("code", input.Code).
		Str("actor_id", input.ActorID).
		Int64("adjusted_at", signal.AdjustedAt).
		Msg("buzz signal submitted")

	return &SubmitOutput{WindowID: window.ID, AdjustedAt: signal.AdjustedAt}, nil
}

// eligible rejects signals from the facilitator, the facilitating team,
// penalized actors and non-active participants
func eligible(p *models.Participant, w *models.BuzzWindow, now time.Time) error {
	if p.ID == w.FacilitatorID {
		return ErrNotEligible
	}

	if w.FacilitatorTeamID != "" && p.TeamID == w.FacilitatorTeamID {
		return ErrNotEligible
	}

	if p.Status != models.ParticipantStatusActive {
		return ErrNotEligible
	}

	if p.Penalized(now) {
		return ErrPenalized
	}

	return nil
}

// ScheduleResolve marks the window resolving and arms the race-window
// timer. The window closes a fixed interval after the first observed
// signal, bounding the unfairness of one client's extra network hop.
// Scheduling the same window twice is a no-op.
func (a *Arbiter) ScheduleResolve(ctx context.Context, input *ScheduleResolveInput) error {
	if input == nil || input.Code == "" || input.WindowID == "" {
		return errors.New("input, code and window ID cannot be empty")
	}

	key := input.Code + ":" + input.WindowID

	a.pendingMu.Lock()
	if _, exists := a.pending[key]; exists {
		a.pendingMu.Unlock()
		return nil
	}

	raceMs := a.raceWindow.Milliseconds()
	if input.RaceWindowMs > 0 {
		raceMs = input.RaceWindowMs
	}

	nowMs := a.adjuster.NowMs()
	wait := time.Duration(input.FirstSignalAt+raceMs-nowMs) * time.Millisecond
	if wait < 0 {
		wait = 0
	}

	timer := a.clock.NewTimer(wait)
	a.pending[key] = timer
	a.pendingMu.Unlock()

	window, err := a.roundRepo.GetWindow(ctx, &roundRepo.GetWindowInput{Code: input.Code, WindowID: input.WindowID})
	if err != nil {
		a.removePending(key)
		stopAndDrainTimer(timer)
		return fmt.Errorf("failed to load window: %w", err)
	}

	if window.State == models.BuzzStateOpen {
		window.State = models.BuzzStateResolving
		window.LockedAt = nowMs
		if err := a.roundRepo.SaveWindow(ctx, &roundRepo.SaveWindowInput{Code: input.Code, Window: window}); err != nil {
			a.removePending(key)
			stopAndDrainTimer(timer)
			return fmt.Errorf("failed to mark window resolving: %w", err)
		}
	}

	go func() {
		defer a.removePending(key)

		select {
		case <-timer.Chan():
			out, err := a.Resolve(ctx, &ResolveInput{Code: input.Code, WindowID: input.WindowID})
			if err != nil {
				if errors.Is(err, ErrWindowSuperseded) {
					a.logger.Debug().Err(err).Str("window_id", input.WindowID).Msg("scheduled resolution dropped")
					return
				}
				if errors.Is(err, ErrNoSignals) {
					// Every signal lost eligibility between submit and
					// the race-window expiry. The window must not stay
					// locked in resolving with nobody to win it.
					if err := a.reopenEmpty(ctx, input.Code, input.WindowID); err != nil {
						a.logger.Error().Err(err).Str("window_id", input.WindowID).Msg("failed to reopen empty window")
						return
					}
					if input.OnEmpty != nil {
						input.OnEmpty()
					}
					return
				}
				a.logger.Error().Err(err).Str("window_id", input.WindowID).Msg("scheduled resolution failed")
				return
			}
			if input.OnResolved != nil {
				input.OnResolved(out)
			}
		case <-ctx.Done():
			stopAndDrainTimer(timer)
		}
	}()

	a.logger.Debug().
		Str("code", input.Code).
		Str("window_id", input.WindowID).
		Dur("wait", wait).
		Msg("race window armed")

	return nil
}

func (a *Arbiter) removePending(key string) {
	a.pendingMu.Lock()
	defer a.pendingMu.Unlock()
	delete(a.pending, key)
}

// stopAndDrainTimer stops a timer and drains its channel so the goroutine
// waiting on it can exit
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

// Resolve picks the signal with the smallest adjusted timestamp, ties
// broken by lexical actor id so the outcome is reproducible if evaluated
// twice. The winner is committed exactly once; losing the commit race is a
// benign no-op that returns the committed winner.
func (a *Arbiter) Resolve(ctx context.Context, input *ResolveInput) (*ResolveOutput, error) {
	if input == nil || input.Code == "" || input.WindowID == "" {
		return nil, errors.New("input, code and window ID cannot be empty")
	}

	// Re-check the round before committing: a phase change supersedes
	// whatever we were waiting on
	state, err := a.roundRepo.GetRound(ctx, &roundRepo.GetRoundInput{Code: input.Code})
	if err != nil {
		return nil, fmt.Errorf("failed to load round: %w", err)
	}

	if state.BuzzWindowID != input.WindowID {
		return nil, ErrWindowSuperseded
	}

	window, err := a.roundRepo.GetWindow(ctx, &roundRepo.GetWindowInput{Code: input.Code, WindowID: input.WindowID})
	if err != nil {
		return nil, fmt.Errorf("failed to load window: %w", err)
	}

	if window.State == models.BuzzStateResolved {
		return &ResolveOutput{WinnerID: window.WinnerID, Committed: false}, nil
	}

	signals, err := a.roundRepo.ListSignals(ctx, &roundRepo.ListSignalsInput{Code: input.Code, WindowID: input.WindowID})
	if err != nil {
		return nil, fmt.Errorf("failed to list signals: %w", err)
	}

	eligibleSignals := make([]*models.BuzzSignal, 0, len(signals))
	now := a.adjuster.AdjustedNow()
	for _, signal := range signals {
		participant, err := a.sessionRepo.GetParticipant(ctx, &sessionRepo.GetParticipantInput{
			Code:          input.Code,
			ParticipantID: signal.ActorID,
		})
		if err != nil {
			if errors.Is(err, sessionRepo.ErrParticipantNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to load participant %s: %w", signal.ActorID, err)
		}

		if eligible(participant, window, now) != nil {
			continue
		}

		eligibleSignals = append(eligibleSignals, signal)
	}

	if len(eligibleSignals) == 0 {
		return nil, ErrNoSignals
	}

	sort.Slice(eligibleSignals, func(i, j int) bool {
		if eligibleSignals[i].AdjustedAt != eligibleSignals[j].AdjustedAt {
			return eligibleSignals[i].AdjustedAt < eligibleSignals[j].AdjustedAt
		}
		return eligibleSignals[i].ActorID < eligibleSignals[j].ActorID
	})

	pick := eligibleSignals[0].ActorID

	commit, err := a.roundRepo.CommitWinner(ctx, &roundRepo.CommitWinnerInput{
		Code:     input.Code,
		WindowID: input.WindowID,
		WinnerID: pick,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to commit winner: %w", err)
	}

	window.State = models.BuzzStateResolved
	window.WinnerID = commit.WinnerID
	if err := a.roundRepo.SaveWindow(ctx, &roundRepo.SaveWindowInput{Code: input.Code, Window: window}); err != nil {
		return nil, fmt.Errorf("failed to save resolved window: %w", err)
	}

	a.logger.Info().
		Str("code", input.Code).
		Str("window_id", input.WindowID).
		Str("winner_id", commit.WinnerID).
		Bool("committed", commit.Committed).
		Msg("buzz window resolved")

	return &ResolveOutput{WinnerID: commit.WinnerID, Committed: commit.Committed}, nil
}

// reopenEmpty returns a resolving window with no eligible signals to the
// open state so the race can start over
func (a *Arbiter) reopenEmpty(ctx context.Context, code, windowID string) error {
	window, err := a.roundRepo.GetWindow(ctx, &roundRepo.GetWindowInput{Code: code, WindowID: windowID})
	if err != nil {
		return fmt.Errorf("failed to load window: %w", err)
	}

	if window.State != models.BuzzStateResolving {
		return nil
	}

	if err := a.roundRepo.ClearSignals(ctx, &roundRepo.ClearSignalsInput{Code: code, WindowID: windowID}); err != nil {
		return fmt.Errorf("failed to clear signals: %w", err)
	}

	window.State = models.BuzzStateOpen
	window.LockedAt = 0
	if err := a.roundRepo.SaveWindow(ctx, &roundRepo.SaveWindowInput{Code: code, Window: window}); err != nil {
		return fmt.Errorf("failed to save reopened window: %w", err)
	}

	a.logger.Debug().
		Str("code", code).
		Str("window_id", windowID).
		Msg("buzz window reopened with no eligible signals")

	return nil
}

// Reopen returns a resolved window to the open state after a wrong answer
// or an accidental buzz. Previous signals and the winner are wiped so the
// race starts over.
func (a *Arbiter) Reopen(ctx context.Context, input *ReopenInput) (*ReopenOutput, error) {
	if input == nil || input.Code == "" || input.WindowID == "" {
		return nil, errors.New("input, code and window ID cannot be empty")
	}

	window, err := a.roundRepo.GetWindow(ctx, &roundRepo.GetWindowInput{Code: input.Code, WindowID: input.WindowID})
	if err != nil {
		return nil, fmt.Errorf("failed to load window: %w", err)
	}

	if window.State != models.BuzzStateResolved || window.WinnerID == "" {
		return nil, ErrWindowNotResolved
	}

	out := &ReopenOutput{}

	if input.PenalizeWinner && input.LockoutMs > 0 {
		participant, err := a.sessionRepo.GetParticipant(ctx, &sessionRepo.GetParticipantInput{
			Code:          input.Code,
			ParticipantID: window.WinnerID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load winner: %w", err)
		}

		until := a.adjuster.AdjustedNow().Add(time.Duration(input.LockoutMs) * time.Millisecond)
		participant.PenalizedUntil = &until

		if err := a.sessionRepo.SaveParticipant(ctx, &sessionRepo.SaveParticipantInput{
			Code:        input.Code,
			Participant: participant,
		}); err != nil {
			return nil, fmt.Errorf("failed to save penalty: %w", err)
		}

		out.PenalizedActorID = participant.ID
		out.PenalizedUntil = &until
	}

	if err := a.roundRepo.ClearSignals(ctx, &roundRepo.ClearSignalsInput{Code: input.Code, WindowID: input.WindowID}); err != nil {
		return nil, fmt.Errorf("failed to clear signals: %w", err)
	}

	window.State = models.BuzzStateOpen
	window.WinnerID = ""
	window.LockedAt = 0
	if err := a.roundRepo.SaveWindow(ctx, &roundRepo.SaveWindowInput{Code: input.Code, Window: window}); err != nil {
		return nil, fmt.Errorf("failed to save reopened window: %w", err)
	}

	a.logger.Debug().
		Str("code", input.Code).
		Str("window_id", input.WindowID).
		Str("penalized", out.PenalizedActorID).
		Msg("buzz window reopened")

	return out, nil
}

// CloseWindow discards a window once the round advances
func (a *Arbiter) CloseWindow(ctx context.Context, input *CloseWindowInput) error {
	if input == nil || input.Code == "" || input.WindowID == "" {
		return errors.New("input, code and window ID cannot be empty")
	}

	if err := a.roundRepo.DeleteWindow(ctx, &roundRepo.DeleteWindowInput{Code: input.Code, WindowID: input.WindowID}); err != nil {
		return fmt.Errorf("failed to delete window: %w", err)
	}

	return nil
}
