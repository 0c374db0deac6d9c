package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/partydeck/partydeck/internal/models"
)

const (
	// Key prefixes for Redis
	roomKeyPrefix         = "room:"
	participantsKeySuffix = ":participants"
	teamsKeySuffix        = ":teams"
	eventsKeyPrefix       = "events:"

	// Pub/sub payloads
	payloadUpdated = "updated"
	payloadDeleted = "deleted"
)

var (
	// ErrSessionNotFound is returned when no room exists for a join code
	ErrSessionNotFound = errors.New("session not found")

	// ErrParticipantNotFound is returned when a participant is not in the room
	ErrParticipantNotFound = errors.New("participant not found")
)

// Config holds configuration for the Redis session repository
type Config struct {
	// Redis client
	RedisClient *redis.Client
}

// redisRepository implements the Repository interface using Redis
type redisRepository struct {
	client *redis.Client
}

// NewRedis creates a new Redis-backed session repository
func NewRedis(cfg *Config) (*redisRepository, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisRepository{
		client: cfg.RedisClient,
	}, nil
}

func roomKey(code string) string {
	return fmt.Sprintf("%s%s", roomKeyPrefix, code)
}

func participantsKey(code string) string {
	return fmt.Sprintf("%s%s%s", roomKeyPrefix, code, participantsKeySuffix)
}

func teamsKey(code string) string {
	return fmt.Sprintf("%s%s%s", roomKeyPrefix, code, teamsKeySuffix)
}

func eventsChannel(code string, subtree models.Subtree) string {
	return fmt.Sprintf("%s%s:%s", eventsKeyPrefix, code, subtree)
}

// SaveRoom persists the room document and notifies watchers
func (r *redisRepository) SaveRoom(ctx context.Context, input *SaveRoomInput) error {
	if input == nil || input.Room == nil {
		return errors.New("input and room cannot be nil")
	}

	roomJSON, err := json.Marshal(input.Room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, roomKey(input.Room.Code), roomJSON, 0)
	pipe.Publish(ctx, eventsChannel(input.Room.Code, models.SubtreeRoom), payloadUpdated)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save room: %w", err)
	}

	return nil
}

// GetRoom retrieves the room document by join code
func (r *redisRepository) GetRoom(ctx context.Context, input *GetRoomInput) (*models.Session, error) {
	if input == nil || input.Code == "" {
		return nil, errors.New("input and code cannot be empty")
	}

	roomJSON, err := r.client.Get(ctx, roomKey(input.Code)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	var room models.Session
	if err := json.Unmarshal([]byte(roomJSON), &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &room, nil
}

// DeleteRoom removes the room subtree and signals deletion to watchers.
// Deletion is published as its own payload so observers can distinguish
// "host ended the session" from a momentarily empty room.
func (r *redisRepository) DeleteRoom(ctx context.Context, input *DeleteRoomInput) error {
	if input == nil || input.Code == "" {
		return errors.New("input and code cannot be empty")
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, roomKey(input.Code))
	pipe.Del(ctx, participantsKey(input.Code))
	pipe.Del(ctx, teamsKey(input.Code))
	pipe.Publish(ctx, eventsChannel(input.Code, models.SubtreeRoom), payloadDeleted)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	return nil
}

// SaveParticipant persists one participant and notifies watchers
func (r *redisRepository) SaveParticipant(ctx context.Context, input *SaveParticipantInput) error {
	if input == nil || input.Code == "" || input.Participant == nil {
		return errors.New("input, code and participant cannot be empty")
	}

	participantJSON, err := json.Marshal(input.Participant)
	if err != nil {
		return fmt.Errorf("failed to marshal participant: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, participantsKey(input.Code), input.Participant.ID, participantJSON)
	pipe.Publish(ctx, eventsChannel(input.Code, models.SubtreeParticipants), payloadUpdated)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save participant: %w", err)
	}

	return nil
}

// GetParticipant retrieves one participant
func (r *redisRepository) GetParticipant(ctx context.Context, input *GetParticipantInput) (*models.Participant, error) {
	if input == nil || input.Code == "" || input.ParticipantID == "" {
		return nil, errors.New("input, code and participant ID cannot be empty")
	}

	participantJSON, err := r.client.HGet(ctx, participantsKey(input.Code), input.ParticipantID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	var participant models.Participant
	if err := json.Unmarshal([]byte(participantJSON), &participant); err != nil {
		return nil, fmt.Errorf("failed to unmarshal participant: %w", err)
	}

	return &participant, nil
}

// ListParticipants retrieves all participants in the room
func (r *redisRepository) ListParticipants(ctx context.Context, input *ListParticipantsInput) ([]*models.Participant, error) {
	if input == nil || input.Code == "" {
		return nil, errors.New("input and code cannot be empty")
	}

	entries, err := r.client.HGetAll(ctx, participantsKey(input.Code)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	participants := make([]*models.Participant, 0, len(entries))
	for id, participantJSON := range entries {
		var participant models.Participant
		if err := json.Unmarshal([]byte(participantJSON), &participant); err != nil {
			return nil, fmt.Errorf("failed to unmarshal participant %s: %w", id, err)
		}
		participants = append(participants, &participant)
	}

	return participants, nil
}

// RemoveParticipant removes one participant and notifies watchers
func (r *redisRepository) RemoveParticipant(ctx context.Context, input *RemoveParticipantInput) error {
	if input == nil || input.Code == "" || input.ParticipantID == "" {
		return errors.New("input, code and participant ID cannot be empty")
	}

	pipe := r.client.Pipeline()
	pipe.HDel(ctx, participantsKey(input.Code), input.ParticipantID)
	pipe.Publish(ctx, eventsChannel(input.Code, models.SubtreeParticipants), payloadUpdated)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}

	return nil
}

// SaveTeam persists one team and notifies watchers
func (r *redisRepository) SaveTeam(ctx context.Context, input *SaveTeamInput) error {
	if input == nil || input.Code == "" || input.Team == nil {
		return errors.New("input, code and team cannot be empty")
	}

	teamJSON, err := json.Marshal(input.Team)
	if err != nil {
		return fmt.Errorf("failed to marshal team: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, teamsKey(input.Code), input.Team.ID, teamJSON)
	pipe.Publish(ctx, eventsChannel(input.Code, models.SubtreeTeams), payloadUpdated)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save team: %w", err)
	}

	return nil
}

// ListTeams retrieves all teams in the room
func (r *redisRepository) ListTeams(ctx context.Context, input *ListTeamsInput) ([]*models.Team, error) {
	if input == nil || input.Code == "" {
		return nil, errors.New("input and code cannot be empty")
	}

	entries, err := r.client.HGetAll(ctx, teamsKey(input.Code)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}

	teams := make([]*models.Team, 0, len(entries))
	for id, teamJSON := range entries {
		var team models.Team
		if err := json.Unmarshal([]byte(teamJSON), &team); err != nil {
			return nil, fmt.Errorf("failed to unmarshal team %s: %w", id, err)
		}
		teams = append(teams, &team)
	}

	return teams, nil
}

// DeleteTeams removes every team in the room and notifies watchers
func (r *redisRepository) DeleteTeams(ctx context.Context, input *DeleteTeamsInput) error {
	if input == nil || input.Code == "" {
		return errors.New("input and code cannot be empty")
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, teamsKey(input.Code))
	pipe.Publish(ctx, eventsChannel(input.Code, models.SubtreeTeams), payloadUpdated)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete teams: %w", err)
	}

	return nil
}

// Watch streams room/participant/team subtree changes until the context is
// cancelled
func (r *redisRepository) Watch(ctx context.Context, input *WatchInput) (<-chan models.Change, error) {
	if input == nil || input.Code == "" {
		return nil, errors.New("input and code cannot be empty")
	}

	subtrees := map[string]models.Subtree{
		eventsChannel(input.Code, models.SubtreeRoom):         models.SubtreeRoom,
		eventsChannel(input.Code, models.SubtreeParticipants): models.SubtreeParticipants,
		eventsChannel(input.Code, models.SubtreeTeams):        models.SubtreeTeams,
	}

	channels := make([]string, 0, len(subtrees))
	for channel := range subtrees {
		channels = append(channels, channel)
	}

	pubsub := r.client.Subscribe(ctx, channels...)

	// Confirm the subscription before returning so no change is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to room events: %w", err)
	}

	changes := make(chan models.Change)

	go func() {
		defer close(changes)
		defer pubsub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}

				subtree, known := subtrees[msg.Channel]
				if !known {
					continue
				}

				kind := models.ChangeUpdated
				if msg.Payload == payloadDeleted {
					kind = models.ChangeDeleted
				}

				select {
				case changes <- models.Change{Subtree: subtree, Kind: kind}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return changes, nil
}
