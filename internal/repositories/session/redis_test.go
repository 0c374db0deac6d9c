package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/partydeck/partydeck/internal/models"
)

type RedisRepositoryTestSuite struct {
	suite.Suite
	mr      *miniredis.Miniredis
	client  *redis.Client
	repo    Repository
	testNow time.Time
}

func (s *RedisRepositoryTestSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr

	s.client = redis.NewClient(&redis.Options{
		Addr: s.mr.Addr(),
	})

	repo, err := NewRedis(&Config{
		RedisClient: s.client,
	})
	s.Require().NoError(err)
	s.repo = repo

	s.testNow = time.Date(2026, 3, 7, 20, 0, 0, 0, time.UTC)
}

func (s *RedisRepositoryTestSuite) TearDownTest() {
	s.client.Close()
	s.mr.Close()
}

func TestRedisRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RedisRepositoryTestSuite))
}

func (s *RedisRepositoryTestSuite) testRoom() *models.Session {
	return &models.Session{
		Code:   "WXYZ2",
		HostID: "host-id",
		Phase:  models.PhaseLobby,
		Config: models.SessionConfig{
			Mode:         models.ModeIndividual,
			RotationMode: models.RotationRotating,
			RoundSeconds: 30,
		},
		CreatedAt: s.testNow,
		UpdatedAt: s.testNow,
	}
}

func (s *RedisRepositoryTestSuite) TestSaveAndGetRoom() {
	room := s.testRoom()

	err := s.repo.SaveRoom(context.Background(), &SaveRoomInput{Room: room})
	s.Require().NoError(err)

	retrieved, err := s.repo.GetRoom(context.Background(), &GetRoomInput{Code: "WXYZ2"})
	s.Require().NoError(err)
	s.Require().NotNil(retrieved)

	s.Equal("WXYZ2", retrieved.Code)
	s.Equal("host-id", retrieved.HostID)
	s.Equal(models.PhaseLobby, retrieved.Phase)
	s.Equal(models.ModeIndividual, retrieved.Config.Mode)
	s.Equal(models.RotationRotating, retrieved.Config.RotationMode)
	s.Equal(30, retrieved.Config.RoundSeconds)
	s.Equal(s.testNow.Unix(), retrieved.CreatedAt.Unix())
}

func (s *RedisRepositoryTestSuite) TestGetRoomNotFound() {
	retrieved, err := s.repo.GetRoom(context.Background(), &GetRoomInput{Code: "NOPE2"})
	s.Require().ErrorIs(err, ErrSessionNotFound)
	s.Nil(retrieved)
}

func (s *RedisRepositoryTestSuite) TestDeleteRoom() {
	room := s.testRoom()

	err := s.repo.SaveRoom(context.Background(), &SaveRoomInput{Room: room})
	s.Require().NoError(err)

	err = s.repo.DeleteRoom(context.Background(), &DeleteRoomInput{Code: "WXYZ2"})
	s.Require().NoError(err)

	_, err = s.repo.GetRoom(context.Background(), &GetRoomInput{Code: "WXYZ2"})
	s.Require().ErrorIs(err, ErrSessionNotFound)
}

func (s *RedisRepositoryTestSuite) TestSaveAndGetParticipant() {
	participant := &models.Participant{
		ID:          "actor-1",
		DisplayName: "Alice",
		Status:      models.ParticipantStatusActive,
		JoinedAt:    s.testNow,
	}

	err := s.repo.SaveParticipant(context.Background(), &SaveParticipantInput{
		Code:        "WXYZ2",
		Participant: participant,
	})
	s.Require().NoError(err)

	retrieved, err := s.repo.GetParticipant(context.Background(), &GetParticipantInput{
		Code:          "WXYZ2",
		ParticipantID: "actor-1",
	})
	s.Require().NoError(err)
	s.Equal("Alice", retrieved.DisplayName)
	s.Equal(models.ParticipantStatusActive, retrieved.Status)
}

func (s *RedisRepositoryTestSuite) TestGetParticipantNotFound() {
	_, err := s.repo.GetParticipant(context.Background(), &GetParticipantInput{
		Code:          "WXYZ2",
		ParticipantID: "missing",
	})
	s.Require().ErrorIs(err, ErrParticipantNotFound)
}

func (s *RedisRepositoryTestSuite) TestListParticipants() {
	for _, id := range []string{"actor-1", "actor-2", "actor-3"} {
		err := s.repo.SaveParticipant(context.Background(), &SaveParticipantInput{
			Code: "WXYZ2",
			Participant: &models.Participant{
				ID:          id,
				DisplayName: id,
				Status:      models.ParticipantStatusActive,
			},
		})
		s.Require().NoError(err)
	}

	participants, err := s.repo.ListParticipants(context.Background(), &ListParticipantsInput{Code: "WXYZ2"})
	s.Require().NoError(err)
	s.Len(participants, 3)

	ids := make(map[string]bool)
	for _, p := range participants {
		ids[p.ID] = true
	}
	s.True(ids["actor-1"])
	s.True(ids["actor-2"])
	s.True(ids["actor-3"])
}

func (s *RedisRepositoryTestSuite) TestRemoveParticipant() {
	err := s.repo.SaveParticipant(context.Background(), &SaveParticipantInput{
		Code: "WXYZ2",
		Participant: &models.Participant{
			ID:     "actor-1",
			Status: models.ParticipantStatusActive,
		},
	})
	s.Require().NoError(err)

	err = s.repo.RemoveParticipant(context.Background(), &RemoveParticipantInput{
		Code:          "WXYZ2",
		ParticipantID: "actor-1",
	})
	s.Require().NoError(err)

	_, err = s.repo.GetParticipant(context.Background(), &GetParticipantInput{
		Code:          "WXYZ2",
		ParticipantID: "actor-1",
	})
	s.Require().ErrorIs(err, ErrParticipantNotFound)
}

func (s *RedisRepositoryTestSuite) TestSaveAndListTeams() {
	teams := []*models.Team{
		{ID: "team-1", Name: "Team 1", Color: "red"},
		{ID: "team-2", Name: "Team 2", Color: "blue"},
	}

	for _, team := range teams {
		err := s.repo.SaveTeam(context.Background(), &SaveTeamInput{Code: "WXYZ2", Team: team})
		s.Require().NoError(err)
	}

	retrieved, err := s.repo.ListTeams(context.Background(), &ListTeamsInput{Code: "WXYZ2"})
	s.Require().NoError(err)
	s.Len(retrieved, 2)
}

func (s *RedisRepositoryTestSuite) TestDeleteTeams() {
	err := s.repo.SaveTeam(context.Background(), &SaveTeamInput{
		Code: "WXYZ2",
		Team: &models.Team{ID: "team-1", Name: "Team 1"},
	})
	s.Require().NoError(err)

	err = s.repo.DeleteTeams(context.Background(), &DeleteTeamsInput{Code: "WXYZ2"})
	s.Require().NoError(err)

	teams, err := s.repo.ListTeams(context.Background(), &ListTeamsInput{Code: "WXYZ2"})
	s.Require().NoError(err)
	s.Empty(teams)
}

func (s *RedisRepositoryTestSuite) TestWatchSeesRoomUpdate() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := s.repo.Watch(ctx, &WatchInput{Code: "WXYZ2"})
	s.Require().NoError(err)

	err = s.repo.SaveRoom(context.Background(), &SaveRoomInput{Room: s.testRoom()})
	s.Require().NoError(err)

	select {
	case change := <-changes:
		s.Equal(models.SubtreeRoom, change.Subtree)
		s.Equal(models.ChangeUpdated, change.Kind)
	case <-time.After(2 * time.Second):
		s.Fail("expected a room change notification")
	}
}

func (s *RedisRepositoryTestSuite) TestWatchSeesRoomDeletion() {
	err := s.repo.SaveRoom(context.Background(), &SaveRoomInput{Room: s.testRoom()})
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := s.repo.Watch(ctx, &WatchInput{Code: "WXYZ2"})
	s.Require().NoError(err)

	err = s.repo.DeleteRoom(context.Background(), &DeleteRoomInput{Code: "WXYZ2"})
	s.Require().NoError(err)

	select {
	case change := <-changes:
		s.Equal(models.SubtreeRoom, change.Subtree)
		s.Equal(models.ChangeDeleted, change.Kind)
	case <-time.After(2 * time.Second):
		s.Fail("expected a room deletion notification")
	}
}

func (s *RedisRepositoryTestSuite) TestWatchSeesParticipantUpdate() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := s.repo.Watch(ctx, &WatchInput{Code: "WXYZ2"})
	s.Require().NoError(err)

	err = s.repo.SaveParticipant(context.Background(), &SaveParticipantInput{
		Code:        "WXYZ2",
		Participant: &models.Participant{ID: "actor-1", Status: models.ParticipantStatusActive},
	})
	s.Require().NoError(err)

	select {
	case change := <-changes:
		s.Equal(models.SubtreeParticipants, change.Subtree)
		s.Equal(models.ChangeUpdated, change.Kind)
	case <-time.After(2 * time.Second):
		s.Fail("expected a participant change notification")
	}
}
