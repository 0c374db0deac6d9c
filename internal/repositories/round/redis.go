package round

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
	roundKeyPrefix   = "room:"
	roundKeySuffix   = ":round"
	buzzKeyPrefix    = "buzz:"
	signalsKeySuffix = ":signals"
	winnerKeySuffix  = ":winner"
	eventsKeyPrefix  = "events:"

	// Pub/sub payloads
	payloadUpdated = "updated"
	payloadDeleted = "deleted"
)

var (
	// ErrRoundNotFound is returned when no round state exists for a room
	ErrRoundNotFound = errors.New("round not found")

	// ErrWindowNotFound is returned when a buzz window does not exist
	ErrWindowNotFound = errors.New("buzz window not found")
)

// Config holds configuration for the Redis round repository
type Config struct {
	// Redis client
	RedisClient *redis.Client
}

// redisRepository implements the Repository interface using Redis
type redisRepository struct {
	client *redis.Client
}

// NewRedis creates a new Redis-backed round repository
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

func roundKey(code string) string {
	return fmt.Sprintf("%s%s%s", roundKeyPrefix, code, roundKeySuffix)
}

func windowKey(code, windowID string) string {
	return fmt.Sprintf("%s%s:%s", buzzKeyPrefix, code, windowID)
}

func signalsKey(code, windowID string) string {
	return fmt.Sprintf("%s%s", windowKey(code, windowID), signalsKeySuffix)
}

func winnerKey(code, windowID string) string {
	return fmt.Sprintf("%s%s", windowKey(code, windowID), winnerKeySuffix)
}

func eventsChannel(code string) string {
	return fmt.Sprintf("%s%s:%s", eventsKeyPrefix, code, models.SubtreeRound)
}

// SaveRound persists the round state and notifies watchers
func (r *redisRepository) SaveRound(ctx context.Context, input *SaveRoundInput) error {
	if input == nil || input.Code == "" || input.Round == nil {
		return errors.New("input, code and round cannot be empty")
	}

	roundJSON, err := json.Marshal(input.Round)
	if err != nil {
		return fmt.Errorf("failed to marshal round: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, roundKey(input.Code), roundJSON, 0)
	pipe.Publish(ctx, eventsChannel(input.Code), payloadUpdated)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save round: %w", err)
	}

	return nil
}

// GetRound retrieves the round state
func (r *redisRepository) GetRound(ctx context.Context, input *GetRoundInput) (*models.RoundState, error) {
	if input == nil || input.Code == "" {
		return nil, errors.New("input and code cannot be empty")
	}

	roundJSON, err := r.client.Get(ctx, roundKey(input.Code)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get round: %w", err)
	}

	var round models.RoundState
	if err := json.Unmarshal([]byte(roundJSON), &round); err != nil {
		return nil, fmt.Errorf("failed to unmarshal round: %w", err)
	}

	return &round, nil
}

// DeleteRound removes the round state and notifies watchers
func (r *redisRepository) DeleteRound(ctx context.Context, input *DeleteRoundInput) error {
	if input == nil || input.Code == "" {
		return errors.New("input and code cannot be empty")
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, roundKey(input.Code))
	pipe.Publish(ctx, eventsChannel(input.Code), payloadDeleted)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete round: %w", err)
	}

	return nil
}

// SaveWindow persists a buzz window document and notifies watchers
func (r *redisRepository) SaveWindow(ctx context.Context, input *SaveWindowInput) error {
	if input == nil || input.Code == "" || input.Window == nil {
		return errors.New("input, code and window cannot be empty")
	}

	windowJSON, err := json.Marshal(input.Window)
	if err != nil {
		return fmt.Errorf("failed to marshal window: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, windowKey(input.Code, input.Window.ID), windowJSON, 0)
	pipe.Publish(ctx, eventsChannel(input.Code), payloadUpdated)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save window: %w", err)
	}

	return nil
}

// GetWindow retrieves a buzz window document
func (r *redisRepository) GetWindow(ctx context.Context, input *GetWindowInput) (*models.BuzzWindow, error) {
	if input == nil || input.Code == "" || input.WindowID == "" {
		return nil, errors.New("input, code and window ID cannot be empty")
	}

	windowJSON, err := r.client.Get(ctx, windowKey(input.Code, input.WindowID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrWindowNotFound
		}
		return nil, fmt.Errorf("failed to get window: %w", err)
	}

	var window models.BuzzWindow
	if err := json.Unmarshal([]byte(windowJSON), &window); err != nil {
		return nil, fmt.Errorf("failed to unmarshal window: %w", err)
	}

	return &window, nil
}

// SubmitSignal records one actor's buzz signal. Each signal is a separate
// hash field keyed by actor id, so concurrent submissions from different
// actors never overwrite each other.
func (r *redisRepository) SubmitSignal(ctx context.Context, input *SubmitSignalInput) error {
	if input == nil || input.Code == "" || input.WindowID == "" || input.Signal == nil {
		return errors.New("input, code, window ID and signal cannot be empty")
	}

	signalJSON, err := json.Marshal(input.Signal)
	if err != nil {
		return fmt.Errorf("failed to marshal signal: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.HSetNX(ctx, signalsKey(input.Code, input.WindowID), input.Signal.ActorID, signalJSON)
	pipe.Publish(ctx, eventsChannel(input.Code), payloadUpdated)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to submit signal: %w", err)
	}

	return nil
}

// ListSignals retrieves every signal submitted to a window
func (r *redisRepository) ListSignals(ctx context.Context, input *ListSignalsInput) ([]*models.BuzzSignal, error) {
	if input == nil || input.Code == "" || input.WindowID == "" {
		return nil, errors.New("input, code and window ID cannot be empty")
	}

	entries, err := r.client.HGetAll(ctx, signalsKey(input.Code, input.WindowID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list signals: %w", err)
	}

	signals := make([]*models.BuzzSignal, 0, len(entries))
	for actorID, signalJSON := range entries {
		var signal models.BuzzSignal
		if err := json.Unmarshal([]byte(signalJSON), &signal); err != nil {
			return nil, fmt.Errorf("failed to unmarshal signal %s: %w", actorID, err)
		}
		signals = append(signals, &signal)
	}

	return signals, nil
}

// CommitWinner writes the winner exactly once via SETNX. When another
// resolver already committed, the stored winner is returned and Committed
// is false; callers treat that as a benign no-op.
func (r *redisRepository) CommitWinner(ctx context.Context, input *CommitWinnerInput) (*CommitWinnerOutput, error) {
	if input == nil || input.Code == "" || input.WindowID == "" || input.WinnerID == "" {
		return nil, errors.New("input, code, window ID and winner ID cannot be empty")
	}

	committed, err := r.client.SetNX(ctx, winnerKey(input.Code, input.WindowID), input.WinnerID, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to commit winner: %w", err)
	}

	if !committed {
		existing, err := r.client.Get(ctx, winnerKey(input.Code, input.WindowID)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read committed winner: %w", err)
		}
		return &CommitWinnerOutput{WinnerID: existing, Committed: false}, nil
	}

	if err := r.client.Publish(ctx, eventsChannel(input.Code), payloadUpdated).Err(); err != nil {
		return nil, fmt.Errorf("failed to publish winner commit: %w", err)
	}

	return &CommitWinnerOutput{WinnerID: input.WinnerID, Committed: true}, nil
}

// ClearSignals wipes a window's signals and winner so it can reopen
func (r *redisRepository) ClearSignals(ctx context.Context, input *ClearSignalsInput) error {
	if input == nil || input.Code == "" || input.WindowID == "" {
		return errors.New("input, code and window ID cannot be empty")
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, signalsKey(input.Code, input.WindowID))
	pipe.Del(ctx, winnerKey(input.Code, input.WindowID))
	pipe.Publish(ctx, eventsChannel(input.Code), payloadUpdated)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear signals: %w", err)
	}

	return nil
}

// DeleteWindow removes a window and its signals
func (r *redisRepository) DeleteWindow(ctx context.Context, input *DeleteWindowInput) error {
	if input == nil || input.Code == "" || input.WindowID == "" {
		return errors.New("input, code and window ID cannot be empty")
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, windowKey(input.Code, input.WindowID))
	pipe.Del(ctx, signalsKey(input.Code, input.WindowID))
	pipe.Del(ctx, winnerKey(input.Code, input.WindowID))
	pipe.Publish(ctx, eventsChannel(input.Code), payloadUpdated)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete window: %w", err)
	}

	return nil
}

// Watch streams round subtree changes until the context is cancelled
func (r *redisRepository) Watch(ctx context.Context, input *WatchInput) (<-chan models.Change, error) {
	if input == nil || input.Code == "" {
		return nil, errors.New("input and code cannot be empty")
	}

	pubsub := r.client.Subscribe(ctx, eventsChannel(input.Code))

	// Confirm the subscription before returning so no change is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to round events: %w", err)
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

				kind := models.ChangeUpdated
				if msg.Payload == payloadDeleted {
					kind = models.ChangeDeleted
				}

				select {
				case changes <- models.Change{Subtree: models.SubtreeRound, Kind: kind}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return changes, nil
}
