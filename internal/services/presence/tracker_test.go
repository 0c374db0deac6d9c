package presence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/partydeck/partydeck/internal/models"
	presenceRepo "github.com/partydeck/partydeck/internal/repositories/presence"
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

func TestClassify(t *testing.T) {
	window := 9 * time.Second

	tests := []struct {
		name string
		age  time.Duration
		want models.PresenceStatus
	}{
		{"fresh heartbeat", 0, models.PresenceOnline},
		{"at the window boundary", 9 * time.Second, models.PresenceOnline},
		{"just past the window", 9*time.Second + time.Millisecond, models.PresenceUncertain},
		{"at the uncertain boundary", 13500 * time.Millisecond, models.PresenceUncertain},
		{"past the uncertain boundary", 13501 * time.Millisecond, models.PresenceOffline},
		{"ancient heartbeat", time.Hour, models.PresenceOffline},
		{"clock skew gives negative age", -2 * time.Second, models.PresenceOnline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.age, window)
			if got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.age, got, tt.want)
			}
		})
	}
}

type ClassifierTestSuite struct {
	suite.Suite
	mr       *miniredis.Miniredis
	client   *redis.Client
	repo     presenceRepo.Repository
	adjuster *fixedAdjuster
	ctx      context.Context

	testCode string
}

func (s *ClassifierTestSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr

	s.client = redis.NewClient(&redis.Options{Addr: s.mr.Addr()})

	repo, err := presenceRepo.NewRedis(&presenceRepo.Config{RedisClient: s.client})
	s.Require().NoError(err)
	s.repo = repo

	s.adjuster = &fixedAdjuster{nowMs: 100000}
	s.ctx = context.Background()
	s.testCode = "WXYZ2"
}

func (s *ClassifierTestSuite) TearDownTest() {
	s.client.Close()
	s.mr.Close()
}

func TestClassifierTestSuite(t *testing.T) {
	suite.Run(t, new(ClassifierTestSuite))
}

func (s *ClassifierTestSuite) TestSnapshotClassifiesByAge() {
	classifier, err := NewClassifier(&ClassifierConfig{
		Repo:           s.repo,
		Adjuster:       s.adjuster,
		LivenessWindow: 9 * time.Second,
	})
	s.Require().NoError(err)

	heartbeats := map[string]int64{
		"fresh":    98000, // 2s old
		"stale":    89000, // 11s old
		"vanished": 50000, // 50s old
	}
	for actorID, atMs := range heartbeats {
		err := s.repo.Heartbeat(s.ctx, &presenceRepo.HeartbeatInput{
			Code:    s.testCode,
			ActorID: actorID,
			AtMs:    atMs,
		})
		s.Require().NoError(err)
	}

	statuses, err := classifier.Snapshot(s.ctx, s.testCode)
	s.Require().NoError(err)

	s.Equal(models.PresenceOnline, statuses["fresh"])
	s.Equal(models.PresenceUncertain, statuses["stale"])
	s.Equal(models.PresenceOffline, statuses["vanished"])
}

func (s *ClassifierTestSuite) TestSnapshotUsesSessionLivenessWindow() {
	sessions, err := sessionRepo.NewRedis(&sessionRepo.Config{RedisClient: s.client})
	s.Require().NoError(err)

	err = sessions.SaveRoom(s.ctx, &sessionRepo.SaveRoomInput{
		Room: &models.Session{
			Code:   s.testCode,
			Config: models.SessionConfig{LivenessSeconds: 4},
		},
	})
	s.Require().NoError(err)

	classifier, err := NewClassifier(&ClassifierConfig{
		Repo:           s.repo,
		Sessions:       sessions,
		Adjuster:       s.adjuster,
		LivenessWindow: 9 * time.Second,
	})
	s.Require().NoError(err)

	// 5s old: online under the 9s process default, uncertain under the
	// room's 4s window
	err = s.repo.Heartbeat(s.ctx, &presenceRepo.HeartbeatInput{
		Code:    s.testCode,
		ActorID: "actor-1",
		AtMs:    95000,
	})
	s.Require().NoError(err)

	statuses, err := classifier.Snapshot(s.ctx, s.testCode)
	s.Require().NoError(err)
	s.Equal(models.PresenceUncertain, statuses["actor-1"])

	// A room without stored config falls back to the process default
	statuses, err = classifier.Snapshot(s.ctx, "NOROOM")
	s.Require().NoError(err)
	s.Empty(statuses)
}

type TrackerTestSuite struct {
	suite.Suite
	mr       *miniredis.Miniredis
	client   *redis.Client
	repo     presenceRepo.Repository
	adjuster *fixedAdjuster
	ctx      context.Context

	testCode string
}

func (s *TrackerTestSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr

	s.client = redis.NewClient(&redis.Options{Addr: s.mr.Addr()})

	repo, err := presenceRepo.NewRedis(&presenceRepo.Config{RedisClient: s.client})
	s.Require().NoError(err)
	s.repo = repo

	s.adjuster = &fixedAdjuster{nowMs: 100000}
	s.ctx = context.Background()
	s.testCode = "WXYZ2"
}

func (s *TrackerTestSuite) TearDownTest() {
	s.client.Close()
	s.mr.Close()
}

func TestTrackerTestSuite(t *testing.T) {
	suite.Run(t, new(TrackerTestSuite))
}

func (s *TrackerTestSuite) TestRunWritesImmediateHeartbeat() {
	tracker, err := New(&Config{
		Code:     s.testCode,
		ActorID:  "actor-1",
		Repo:     s.repo,
		Adjuster: s.adjuster,
		Interval: time.Minute,
	})
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = tracker.Run(ctx)
	}()

	// The first heartbeat lands before the first tick
	s.Require().Eventually(func() bool {
		out, err := s.repo.Snapshot(s.ctx, &presenceRepo.SnapshotInput{Code: s.testCode})
		if err != nil {
			return false
		}
		return out.Heartbeats["actor-1"] == 100000
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func (s *TrackerTestSuite) TestObserveEmitsTransitionsOnce() {
	events := make(chan models.Event, 16)
	tracker, err := New(&Config{
		Code:           s.testCode,
		ActorID:        "actor-1",
		Repo:           s.repo,
		Adjuster:       s.adjuster,
		Interval:       3 * time.Second,
		LivenessWindow: 9 * time.Second,
		OnChange: func(event models.Event) {
			events <- event
		},
	})
	s.Require().NoError(err)

	err = s.repo.Heartbeat(s.ctx, &presenceRepo.HeartbeatInput{
		Code:    s.testCode,
		ActorID: "actor-2",
		AtMs:    99000,
	})
	s.Require().NoError(err)

	tracker.observe(s.ctx)

	select {
	case event := <-events:
		s.Equal(models.EventPresenceChanged, event.Type)
		s.Equal("actor-2", event.ActorID)
		s.Equal(models.PresenceOnline, event.Status)
	default:
		s.Fail("expected a presence change event")
	}

	// Unchanged classification emits nothing
	tracker.observe(s.ctx)
	s.Empty(events)

	// The heartbeat ages past the offline threshold
	s.adjuster.nowMs = 99000 + 14*1000

	tracker.observe(s.ctx)
	select {
	case event := <-events:
		s.Equal(models.PresenceOffline, event.Status)
	default:
		s.Fail("expected an offline transition event")
	}
}
