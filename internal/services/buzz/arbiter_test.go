package buzz

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/partydeck/partydeck/internal/common/uuid"
	"github.com/partydeck/partydeck/internal/models"
	roundRepo "github.com/partydeck/partydeck/internal/repositories/round"
	sessionRepo "github.com/partydeck/partydeck/internal/repositories/session"
)

// fixedAdjuster returns a settable instant, standing in for the synced clock
type fixedAdjuster struct {
	nowMs int64
}

func (f *fixedAdjuster) AdjustedNow() time.Time {
	return time.UnixMilli(f.nowMs)
}

func (f *fixedAdjuster) NowMs() int64 {
	return f.nowMs
}

type ArbiterTestSuite struct {
	suite.Suite
	mr       *miniredis.Miniredis
	client   *redis.Client
	sessions sessionRepo.Repository
	rounds   roundRepo.Repository
	adjuster *fixedAdjuster
	arbiter  *Arbiter
	ctx      context.Context

	testCode string
}

func (s *ArbiterTestSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr

	s.client = redis.NewClient(&redis.Options{Addr: s.mr.Addr()})

	sessions, err := sessionRepo.NewRedis(&sessionRepo.Config{RedisClient: s.client})
	s.Require().NoError(err)
	s.sessions = sessions

	rounds, err := roundRepo.NewRedis(&roundRepo.Config{RedisClient: s.client})
	s.Require().NoError(err)
	s.rounds = rounds

	s.adjuster = &fixedAdjuster{nowMs: 10000}
	s.ctx = context.Background()
	s.testCode = "WXYZ2"

	arbiter, err := New(&Config{
		SessionRepo:   sessions,
		RoundRepo:     rounds,
		Adjuster:      s.adjuster,
		UUIDGenerator: uuid.New(),
		RaceWindow:    150 * time.Millisecond,
	})
	s.Require().NoError(err)
	s.arbiter = arbiter

	// Seed a round so windows have something to attach to
	err = s.rounds.SaveRound(s.ctx, &roundRepo.SaveRoundInput{
		Code:  s.testCode,
		Round: &models.RoundState{Number: 1},
	})
	s.Require().NoError(err)
}

func (s *ArbiterTestSuite) TearDownTest() {
	s.client.Close()
	s.mr.Close()
}

func TestArbiterTestSuite(t *testing.T) {
	suite.Run(t, new(ArbiterTestSuite))
}

func (s *ArbiterTestSuite) saveParticipant(id, teamID string, status models.ParticipantStatus) {
	err := s.sessions.SaveParticipant(s.ctx, &sessionRepo.SaveParticipantInput{
		Code: s.testCode,
		Participant: &models.Participant{
			ID:          id,
			DisplayName: id,
			TeamID:      teamID,
			Status:      status,
		},
	})
	s.Require().NoError(err)
}

func (s *ArbiterTestSuite) openWindow(facilitatorID, facilitatorTeamID string) string {
	out, err := s.arbiter.OpenWindow(s.ctx, &OpenWindowInput{
		Code:              s.testCode,
		FacilitatorID:     facilitatorID,
		FacilitatorTeamID: facilitatorTeamID,
	})
	s.Require().NoError(err)
	return out.WindowID
}

func (s *ArbiterTestSuite) submitAt(actorID string, atMs int64) {
	s.adjuster.nowMs = atMs
	_, err := s.arbiter.Submit(s.ctx, &SubmitInput{Code: s.testCode, ActorID: actorID})
	s.Require().NoError(err)
}

func (s *ArbiterTestSuite) TestOpenWindowPointsRound() {
	windowID := s.openWindow("host-id", "")

	state, err := s.rounds.GetRound(s.ctx, &roundRepo.GetRoundInput{Code: s.testCode})
	s.Require().NoError(err)
	s.Equal(windowID, state.BuzzWindowID)

	window, err := s.rounds.GetWindow(s.ctx, &roundRepo.GetWindowInput{Code: s.testCode, WindowID: windowID})
	s.Require().NoError(err)
	s.Equal(models.BuzzStateOpen, window.State)
}

func (s *ArbiterTestSuite) TestSubmitWithoutWindow() {
	s.saveParticipant("actor-1", "", models.ParticipantStatusActive)

	_, err := s.arbiter.Submit(s.ctx, &SubmitInput{Code: s.testCode, ActorID: "actor-1"})
	s.Require().ErrorIs(err, ErrWindowNotOpen)
}

func (s *ArbiterTestSuite) TestEarliestAdjustedTimestampWins() {
	s.saveParticipant("actor-a", "", models.ParticipantStatusActive)
	s.saveParticipant("actor-b", "", models.ParticipantStatusActive)
	windowID := s.openWindow("host-id", "")

	// B's signal arrives at the store first but carries the later
	// adjusted timestamp; A still wins
	s.submitAt("actor-b", 1020)
	s.submitAt("actor-a", 1000)

	out, err := s.arbiter.Resolve(s.ctx, &ResolveInput{Code: s.testCode, WindowID: windowID})
	s.Require().NoError(err)
	s.Equal("actor-a", out.WinnerID)
	s.True(out.Committed)
}

func (s *ArbiterTestSuite) TestTieBreaksByActorID() {
	s.saveParticipant("actor-b", "", models.ParticipantStatusActive)
	s.saveParticipant("actor-a", "", models.ParticipantStatusActive)
	windowID := s.openWindow("host-id", "")

	s.submitAt("actor-b", 1000)
	s.submitAt("actor-a", 1000)

	out, err := s.arbiter.Resolve(s.ctx, &ResolveInput{Code: s.testCode, WindowID: windowID})
	s.Require().NoError(err)
	s.Equal("actor-a", out.WinnerID)
}

func (s *ArbiterTestSuite) TestDoubleResolutionIsBenign() {
	s.saveParticipant("actor-a", "", models.ParticipantStatusActive)
	windowID := s.openWindow("host-id", "")
	s.submitAt("actor-a", 1000)

	first, err := s.arbiter.Resolve(s.ctx, &ResolveInput{Code: s.testCode, WindowID: windowID})
	s.Require().NoError(err)
	s.True(first.Committed)

	second, err := s.arbiter.Resolve(s.ctx, &ResolveInput{Code: s.testCode, WindowID: windowID})
	s.Require().NoError(err)
	s.False(second.Committed)
	s.Equal(first.WinnerID, second.WinnerID)
}

func (s *ArbiterTestSuite) TestResolveSupersededWindow() {
	s.saveParticipant("actor-a", "", models.ParticipantStatusActive)
	oldWindow := s.openWindow("host-id", "")
	s.submitAt("actor-a", 1000)

	// The round moved on to a fresh window before resolution ran
	s.openWindow("host-id", "")

	_, err := s.arbiter.Resolve(s.ctx, &ResolveInput{Code: s.testCode, WindowID: oldWindow})
	s.Require().ErrorIs(err, ErrWindowSuperseded)
}

func (s *ArbiterTestSuite) TestFacilitatorCannotBuzz() {
	s.saveParticipant("host-id", "", models.ParticipantStatusActive)
	s.openWindow("host-id", "")

	s.adjuster.nowMs = 1000
	_, err := s.arbiter.Submit(s.ctx, &SubmitInput{Code: s.testCode, ActorID: "host-id"})
	s.Require().ErrorIs(err, ErrNotEligible)
}

func (s *ArbiterTestSuite) TestFacilitatingTeamCannotBuzz() {
	s.saveParticipant("teammate", "team-1", models.ParticipantStatusActive)
	s.openWindow("asker", "team-1")

	s.adjuster.nowMs = 1000
	_, err := s.arbiter.Submit(s.ctx, &SubmitInput{Code: s.testCode, ActorID: "teammate"})
	s.Require().ErrorIs(err, ErrNotEligible)
}

func (s *ArbiterTestSuite) TestInactiveParticipantCannotBuzz() {
	s.saveParticipant("actor-1", "", models.ParticipantStatusDisconnected)
	s.openWindow("host-id", "")

	s.adjuster.nowMs = 1000
	_, err := s.arbiter.Submit(s.ctx, &SubmitInput{Code: s.testCode, ActorID: "actor-1"})
	s.Require().ErrorIs(err, ErrNotEligible)
}

func (s *ArbiterTestSuite) TestPenalizedParticipantCannotBuzz() {
	until := time.UnixMilli(20000)
	err := s.sessions.SaveParticipant(s.ctx, &sessionRepo.SaveParticipantInput{
		Code: s.testCode,
		Participant: &models.Participant{
			ID:             "actor-1",
			Status:         models.ParticipantStatusActive,
			PenalizedUntil: &until,
		},
	})
	s.Require().NoError(err)
	s.openWindow("host-id", "")

	// Still locked out at 15000
	s.adjuster.nowMs = 15000
	_, err = s.arbiter.Submit(s.ctx, &SubmitInput{Code: s.testCode, ActorID: "actor-1"})
	s.Require().ErrorIs(err, ErrPenalized)

	// Lockout expired at 20001
	s.adjuster.nowMs = 20001
	_, err = s.arbiter.Submit(s.ctx, &SubmitInput{Code: s.testCode, ActorID: "actor-1"})
	s.Require().NoError(err)
}

func (s *ArbiterTestSuite) TestEligibilityRecheckedAtResolution() {
	s.saveParticipant("actor-a", "", models.ParticipantStatusActive)
	s.saveParticipant("actor-b", "", models.ParticipantStatusActive)
	windowID := s.openWindow("host-id", "")

	s.submitAt("actor-a", 1000)
	s.submitAt("actor-b", 1500)

	// The fastest buzzer left before resolution; the next signal wins
	s.saveParticipant("actor-a", "", models.ParticipantStatusLeft)

	out, err := s.arbiter.Resolve(s.ctx, &ResolveInput{Code: s.testCode, WindowID: windowID})
	s.Require().NoError(err)
	s.Equal("actor-b", out.WinnerID)
}

func (s *ArbiterTestSuite) TestResolveWithNoSignals() {
	windowID := s.openWindow("host-id", "")

	_, err := s.arbiter.Resolve(s.ctx, &ResolveInput{Code: s.testCode, WindowID: windowID})
	s.Require().ErrorIs(err, ErrNoSignals)
}

func (s *ArbiterTestSuite) TestScheduleResolveFiresAfterRaceWindow() {
	s.saveParticipant("actor-a", "", models.ParticipantStatusActive)
	windowID := s.openWindow("host-id", "")
	s.submitAt("actor-a", 1000)

	resolved := make(chan *ResolveOutput, 1)
	err := s.arbiter.ScheduleResolve(s.ctx, &ScheduleResolveInput{
		Code:          s.testCode,
		WindowID:      windowID,
		FirstSignalAt: 1000,
		OnResolved: func(out *ResolveOutput) {
			resolved <- out
		},
	})
	s.Require().NoError(err)

	// The window locks immediately
	window, err := s.rounds.GetWindow(s.ctx, &roundRepo.GetWindowInput{Code: s.testCode, WindowID: windowID})
	s.Require().NoError(err)
	s.Equal(models.BuzzStateResolving, window.State)

	select {
	case out := <-resolved:
		s.Equal("actor-a", out.WinnerID)
	case <-time.After(2 * time.Second):
		s.Fail("expected scheduled resolution to fire")
	}
}

func (s *ArbiterTestSuite) TestScheduleResolveReopensWhenNoSignalEligible() {
	s.saveParticipant("actor-a", "", models.ParticipantStatusActive)
	windowID := s.openWindow("host-id", "")
	s.submitAt("actor-a", 1000)

	// The only buzzer leaves before the race window closes
	s.saveParticipant("actor-a", "", models.ParticipantStatusLeft)

	emptied := make(chan struct{}, 1)
	err := s.arbiter.ScheduleResolve(s.ctx, &ScheduleResolveInput{
		Code:          s.testCode,
		WindowID:      windowID,
		FirstSignalAt: 1000,
		OnResolved: func(out *ResolveOutput) {
			s.Fail("no winner should be committed")
		},
		OnEmpty: func() {
			emptied <- struct{}{}
		},
	})
	s.Require().NoError(err)

	select {
	case <-emptied:
	case <-time.After(2 * time.Second):
		s.Fail("expected empty resolution to reopen the window")
	}

	// The window is back to open with the stale signal cleared, so the
	// race can start over
	window, err := s.rounds.GetWindow(s.ctx, &roundRepo.GetWindowInput{Code: s.testCode, WindowID: windowID})
	s.Require().NoError(err)
	s.Equal(models.BuzzStateOpen, window.State)
	s.Empty(window.WinnerID)

	signals, err := s.rounds.ListSignals(s.ctx, &roundRepo.ListSignalsInput{Code: s.testCode, WindowID: windowID})
	s.Require().NoError(err)
	s.Empty(signals)

	s.saveParticipant("actor-b", "", models.ParticipantStatusActive)
	s.submitAt("actor-b", 2000)
}

func (s *ArbiterTestSuite) TestScheduleResolveHonorsRaceWindowOverride() {
	// An arbiter with a long process default; the per-room value should
	// take precedence
	slow, err := New(&Config{
		SessionRepo:   s.sessions,
		RoundRepo:     s.rounds,
		Adjuster:      s.adjuster,
		UUIDGenerator: uuid.New(),
		RaceWindow:    30 * time.Second,
	})
	s.Require().NoError(err)

	s.saveParticipant("actor-a", "", models.ParticipantStatusActive)
	windowID := s.openWindow("host-id", "")
	s.submitAt("actor-a", 1000)

	resolved := make(chan *ResolveOutput, 1)
	err = slow.ScheduleResolve(s.ctx, &ScheduleResolveInput{
		Code:          s.testCode,
		WindowID:      windowID,
		FirstSignalAt: 1000,
		RaceWindowMs:  50,
		OnResolved: func(out *ResolveOutput) {
			resolved <- out
		},
	})
	s.Require().NoError(err)

	select {
	case out := <-resolved:
		s.Equal("actor-a", out.WinnerID)
	case <-time.After(2 * time.Second):
		s.Fail("expected the configured race window to override the default")
	}
}

func (s *ArbiterTestSuite) TestSubmitAcceptedWhileResolving() {
	s.saveParticipant("actor-a", "", models.ParticipantStatusActive)
	s.saveParticipant("actor-b", "", models.ParticipantStatusActive)
	windowID := s.openWindow("host-id", "")
	s.submitAt("actor-b", 1020)

	// Mark resolving by hand; the race window is still counting down
	window, err := s.rounds.GetWindow(s.ctx, &roundRepo.GetWindowInput{Code: s.testCode, WindowID: windowID})
	s.Require().NoError(err)
	window.State = models.BuzzStateResolving
	err = s.rounds.SaveWindow(s.ctx, &roundRepo.SaveWindowInput{Code: s.testCode, Window: window})
	s.Require().NoError(err)

	// A slower-network client with an earlier adjusted timestamp still
	// gets in and wins
	s.submitAt("actor-a", 1000)

	out, err := s.arbiter.Resolve(s.ctx, &ResolveInput{Code: s.testCode, WindowID: windowID})
	s.Require().NoError(err)
	s.Equal("actor-a", out.WinnerID)
}

func (s *ArbiterTestSuite) TestReopenWithPenalty() {
	s.saveParticipant("actor-a", "", models.ParticipantStatusActive)
	windowID := s.openWindow("host-id", "")
	s.submitAt("actor-a", 1000)

	_, err := s.arbiter.Resolve(s.ctx, &ResolveInput{Code: s.testCode, WindowID: windowID})
	s.Require().NoError(err)

	s.adjuster.nowMs = 2000
	out, err := s.arbiter.Reopen(s.ctx, &ReopenInput{
		Code:           s.testCode,
		WindowID:       windowID,
		PenalizeWinner: true,
		LockoutMs:      5000,
	})
	s.Require().NoError(err)
	s.Equal("actor-a", out.PenalizedActorID)
	s.Require().NotNil(out.PenalizedUntil)
	s.Equal(int64(7000), out.PenalizedUntil.UnixMilli())

	// The window is open again with no signals or winner
	window, err := s.rounds.GetWindow(s.ctx, &roundRepo.GetWindowInput{Code: s.testCode, WindowID: windowID})
	s.Require().NoError(err)
	s.Equal(models.BuzzStateOpen, window.State)
	s.Empty(window.WinnerID)

	signals, err := s.rounds.ListSignals(s.ctx, &roundRepo.ListSignalsInput{Code: s.testCode, WindowID: windowID})
	s.Require().NoError(err)
	s.Empty(signals)

	// The penalized actor is locked out of the reopened window
	s.adjuster.nowMs = 3000
	_, err = s.arbiter.Submit(s.ctx, &SubmitInput{Code: s.testCode, ActorID: "actor-a"})
	s.Require().ErrorIs(err, ErrPenalized)
}

func (s *ArbiterTestSuite) TestReopenWithoutPenalty() {
	s.saveParticipant("actor-a", "", models.ParticipantStatusActive)
	windowID := s.openWindow("host-id", "")
	s.submitAt("actor-a", 1000)

	_, err := s.arbiter.Resolve(s.ctx, &ResolveInput{Code: s.testCode, WindowID: windowID})
	s.Require().NoError(err)

	out, err := s.arbiter.Reopen(s.ctx, &ReopenInput{
		Code:     s.testCode,
		WindowID: windowID,
	})
	s.Require().NoError(err)
	s.Empty(out.PenalizedActorID)

	// No lockout: the same actor can buzz again right away
	s.adjuster.nowMs = 2000
	_, err = s.arbiter.Submit(s.ctx, &SubmitInput{Code: s.testCode, ActorID: "actor-a"})
	s.Require().NoError(err)
}

func (s *ArbiterTestSuite) TestReopenUnresolvedWindow() {
	windowID := s.openWindow("host-id", "")

	_, err := s.arbiter.Reopen(s.ctx, &ReopenInput{Code: s.testCode, WindowID: windowID})
	s.Require().ErrorIs(err, ErrWindowNotResolved)
}

func (s *ArbiterTestSuite) TestCloseWindowDiscardsState() {
	s.saveParticipant("actor-a", "", models.ParticipantStatusActive)
	windowID := s.openWindow("host-id", "")
	s.submitAt("actor-a", 1000)

	err := s.arbiter.CloseWindow(s.ctx, &CloseWindowInput{Code: s.testCode, WindowID: windowID})
	s.Require().NoError(err)

	_, err = s.rounds.GetWindow(s.ctx, &roundRepo.GetWindowInput{Code: s.testCode, WindowID: windowID})
	s.Require().ErrorIs(err, roundRepo.ErrWindowNotFound)
}
