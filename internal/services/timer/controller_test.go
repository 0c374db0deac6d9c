package timer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/partydeck/partydeck/internal/models"
	roundRepo "github.com/partydeck/partydeck/internal/repositories/round"
	roundMocks "github.com/partydeck/partydeck/internal/repositories/round/mocks"
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

func TestRemainingMs(t *testing.T) {
	tests := []struct {
		name  string
		timer models.TimerState
		nowMs int64
		want  int64
	}{
		{
			name:  "not started returns full duration",
			timer: models.TimerState{DurationMs: 30000},
			nowMs: 99999,
			want:  30000,
		},
		{
			name:  "running counts down",
			timer: models.TimerState{DurationMs: 30000, StartedAt: 1000},
			nowMs: 6000,
			want:  25000,
		},
		{
			name:  "paused freezes at pause instant",
			timer: models.TimerState{DurationMs: 30000, StartedAt: 1000, PausedAt: 6000},
			nowMs: 50000,
			want:  25000,
		},
		{
			name: "resume cycle banks paused interval",
			// Ran 1000..6000, paused 6000..9000, resumed at 9000
			timer: models.TimerState{DurationMs: 30000, StartedAt: 9000, AccumulatedMs: 5000},
			nowMs: 12000,
			want:  22000,
		},
		{
			name:  "clamps at zero",
			timer: models.TimerState{DurationMs: 30000, StartedAt: 1000},
			nowMs: 100000,
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RemainingMs(tt.timer, tt.nowMs)
			if got != tt.want {
				t.Errorf("RemainingMs() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExpired(t *testing.T) {
	running := models.TimerState{DurationMs: 30000, StartedAt: 1000}

	if Expired(running, 6000) {
		t.Error("timer with time left should not be expired")
	}

	if !Expired(running, 31001) {
		t.Error("timer past its duration should be expired")
	}

	// A paused timer never expires, even past the deadline
	paused := models.TimerState{DurationMs: 30000, StartedAt: 1000, PausedAt: 2000}
	if Expired(paused, 99999) {
		t.Error("paused timer should not be expired")
	}

	unstarted := models.TimerState{DurationMs: 30000}
	if Expired(unstarted, 99999) {
		t.Error("unstarted timer should not be expired")
	}
}

type ControllerTestSuite struct {
	suite.Suite
	mockCtrl      *gomock.Controller
	mockRoundRepo *roundMocks.MockRepository
	adjuster      *fixedAdjuster
	controller    *Controller
	ctx           context.Context

	testCode string
}

func (s *ControllerTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockRoundRepo = roundMocks.NewMockRepository(s.mockCtrl)
	s.adjuster = &fixedAdjuster{nowMs: 10000}
	s.ctx = context.Background()
	s.testCode = "WXYZ2"

	controller, err := New(&Config{
		RoundRepo: s.mockRoundRepo,
		Adjuster:  s.adjuster,
	})
	s.Require().NoError(err)
	s.controller = controller
}

func (s *ControllerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestControllerTestSuite(t *testing.T) {
	suite.Run(t, new(ControllerTestSuite))
}

func (s *ControllerTestSuite) TestStartWritesFreshTimer() {
	s.mockRoundRepo.EXPECT().
		GetRound(s.ctx, &roundRepo.GetRoundInput{Code: s.testCode}).
		Return(&models.RoundState{Number: 1}, nil)

	s.mockRoundRepo.EXPECT().
		SaveRound(s.ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, input *roundRepo.SaveRoundInput) error {
			s.Equal(int64(30000), input.Round.Timer.DurationMs)
			s.Equal(int64(10000), input.Round.Timer.StartedAt)
			s.Equal(int64(0), input.Round.Timer.PausedAt)
			s.Equal(int64(0), input.Round.Timer.AccumulatedMs)
			return nil
		})

	err := s.controller.Start(s.ctx, &StartInput{Code: s.testCode, DurationMs: 30000})
	s.Require().NoError(err)
}

func (s *ControllerTestSuite) TestStartRejectsZeroDuration() {
	err := s.controller.Start(s.ctx, &StartInput{Code: s.testCode, DurationMs: 0})
	s.Require().Error(err)
}

func (s *ControllerTestSuite) TestPauseRecordsInstant() {
	s.mockRoundRepo.EXPECT().
		GetRound(s.ctx, gomock.Any()).
		Return(&models.RoundState{
			Timer: models.TimerState{DurationMs: 30000, StartedAt: 5000},
		}, nil)

	s.mockRoundRepo.EXPECT().
		SaveRound(s.ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, input *roundRepo.SaveRoundInput) error {
			s.Equal(int64(10000), input.Round.Timer.PausedAt)
			return nil
		})

	err := s.controller.Pause(s.ctx, &PauseInput{Code: s.testCode})
	s.Require().NoError(err)
}

func (s *ControllerTestSuite) TestPauseBeforeStart() {
	s.mockRoundRepo.EXPECT().
		GetRound(s.ctx, gomock.Any()).
		Return(&models.RoundState{}, nil)

	err := s.controller.Pause(s.ctx, &PauseInput{Code: s.testCode})
	s.Require().ErrorIs(err, ErrTimerNotStarted)
}

func (s *ControllerTestSuite) TestPauseWhilePausedIsNoOp() {
	s.mockRoundRepo.EXPECT().
		GetRound(s.ctx, gomock.Any()).
		Return(&models.RoundState{
			Timer: models.TimerState{DurationMs: 30000, StartedAt: 5000, PausedAt: 7000},
		}, nil)

	// No SaveRound expected
	err := s.controller.Pause(s.ctx, &PauseInput{Code: s.testCode})
	s.Require().NoError(err)
}

func (s *ControllerTestSuite) TestResumeBanksAccumulator() {
	s.mockRoundRepo.EXPECT().
		GetRound(s.ctx, gomock.Any()).
		Return(&models.RoundState{
			Timer: models.TimerState{DurationMs: 30000, StartedAt: 5000, PausedAt: 8000},
		}, nil)

	s.mockRoundRepo.EXPECT().
		SaveRound(s.ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, input *roundRepo.SaveRoundInput) error {
			s.Equal(int64(3000), input.Round.Timer.AccumulatedMs)
			s.Equal(int64(10000), input.Round.Timer.StartedAt)
			s.Equal(int64(0), input.Round.Timer.PausedAt)
			return nil
		})

	err := s.controller.Resume(s.ctx, &ResumeInput{Code: s.testCode})
	s.Require().NoError(err)
}

func (s *ControllerTestSuite) TestResumeWhileRunningIsNoOp() {
	s.mockRoundRepo.EXPECT().
		GetRound(s.ctx, gomock.Any()).
		Return(&models.RoundState{
			Timer: models.TimerState{DurationMs: 30000, StartedAt: 5000},
		}, nil)

	err := s.controller.Resume(s.ctx, &ResumeInput{Code: s.testCode})
	s.Require().NoError(err)
}

func (s *ControllerTestSuite) TestRemainingAfterPauseResumeCycle() {
	// Started at 1000 with 30s, paused at 6000, resumed at 9000: at
	// 12000 the countdown has consumed 8s of wall time but only 5s of
	// run time
	s.adjuster.nowMs = 12000

	s.mockRoundRepo.EXPECT().
		GetRound(s.ctx, gomock.Any()).
		Return(&models.RoundState{
			Timer: models.TimerState{
				DurationMs:    30000,
				StartedAt:     9000,
				AccumulatedMs: 5000,
			},
		}, nil)

	out, err := s.controller.Remaining(s.ctx, &RemainingInput{Code: s.testCode})
	s.Require().NoError(err)
	s.Equal(int64(22000), out.RemainingMs)
	s.True(out.Running)
	s.False(out.Expired)
}
