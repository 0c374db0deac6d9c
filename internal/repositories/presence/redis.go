package presence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const presenceKeyPrefix = "presence:"

// Config holds configuration for the Redis presence repository
type Config struct {
	// Redis client
	RedisClient *redis.Client
}

// redisRepository implements the Repository interface using Redis
type redisRepository struct {
	client *redis.Client
}

// NewRedis creates a new Redis-backed presence repository
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

func presenceKey(code string) string {
	return fmt.Sprintf("%s%s", presenceKeyPrefix, code)
}

// Heartbeat records a liveness write for one actor
func (r *redisRepository) Heartbeat(ctx context.Context, input *HeartbeatInput) error {
	if input == nil || input.Code == "" || input.ActorID == "" {
		return errors.New("input, code and actor ID cannot be empty")
	}

	err := r.client.HSet(ctx, presenceKey(input.Code), input.ActorID, input.AtMs).Err()
	if err != nil {
		return fmt.Errorf("failed to write heartbeat: %w", err)
	}

	return nil
}

// Snapshot retrieves the last heartbeat of every actor in the room
func (r *redisRepository) Snapshot(ctx context.Context, input *SnapshotInput) (*SnapshotOutput, error) {
	if input == nil || input.Code == "" {
		return nil, errors.New("input and code cannot be empty")
	}

	entries, err := r.client.HGetAll(ctx, presenceKey(input.Code)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read heartbeats: %w", err)
	}

	heartbeats := make(map[string]int64, len(entries))
	for actorID, raw := range entries {
		atMs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse heartbeat for %s: %w", actorID, err)
		}
		heartbeats[actorID] = atMs
	}

	return &SnapshotOutput{Heartbeats: heartbeats}, nil
}

// ClearRoom removes all heartbeats for a room
func (r *redisRepository) ClearRoom(ctx context.Context, input *ClearRoomInput) error {
	if input == nil || input.Code == "" {
		return errors.New("input and code cannot be empty")
	}

	if err := r.client.Del(ctx, presenceKey(input.Code)).Err(); err != nil {
		return fmt.Errorf("failed to clear heartbeats: %w", err)
	}

	return nil
}

// ServerTime returns the store's authoritative time via the TIME command
func (r *redisRepository) ServerTime(ctx context.Context) (time.Time, error) {
	serverTime, err := r.client.Time(ctx).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read server time: %w", err)
	}

	return serverTime, nil
}
