package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/partydeck/partydeck/internal/clocksync"
	"github.com/partydeck/partydeck/internal/common/uuid"
	"github.com/partydeck/partydeck/internal/config"
	"github.com/partydeck/partydeck/internal/handlers/ws"
	"github.com/partydeck/partydeck/internal/models"
	"github.com/partydeck/partydeck/internal/random"
	"github.com/partydeck/partydeck/internal/replica"
	presenceRepo "github.com/partydeck/partydeck/internal/repositories/presence"
	roundRepo "github.com/partydeck/partydeck/internal/repositories/round"
	sessionRepo "github.com/partydeck/partydeck/internal/repositories/session"
	"github.com/partydeck/partydeck/internal/services/buzz"
	presenceService "github.com/partydeck/partydeck/internal/services/presence"
	"github.com/partydeck/partydeck/internal/services/room"
	"github.com/partydeck/partydeck/internal/services/rotation"
	"github.com/partydeck/partydeck/internal/services/timer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatalLogger := zerolog.New(os.Stderr)
		fatalLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()

	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect to store")
	}

	sessions, err := sessionRepo.NewRedis(&sessionRepo.Config{RedisClient: redisClient})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create session repository")
	}

	rounds, err := roundRepo.NewRedis(&roundRepo.Config{RedisClient: redisClient})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create round repository")
	}

	presence, err := presenceRepo.NewRedis(&presenceRepo.Config{RedisClient: redisClient})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create presence repository")
	}

	clock := clockwork.NewRealClock()

	estimator, err := clocksync.New(&clocksync.Config{
		TimeSource: presence,
		Clock:      clock,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create clock estimator")
	}

	if err := estimator.Sync(pingCtx); err != nil {
		// Degraded sync still arbitrates, just without skew correction
		logger.Warn().Err(err).Msg("clock sync degraded, using local time")
	}

	classifier, err := presenceService.NewClassifier(&presenceService.ClassifierConfig{
		Repo:     presence,
		Adjuster: estimator,
		Sessions: sessions,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create presence classifier")
	}

	rng := random.New(&random.Config{Seed: cfg.RandomSeed})
	uuids := uuid.New()

	timerCtrl, err := timer.New(&timer.Config{
		RoundRepo: rounds,
		Adjuster:  estimator,
		Clock:     clock,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create timer controller")
	}

	arbiter, err := buzz.New(&buzz.Config{
		SessionRepo:   sessions,
		RoundRepo:     rounds,
		Adjuster:      estimator,
		UUIDGenerator: uuids,
		Clock:         clock,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create buzz arbiter")
	}

	scheduler, err := rotation.New(&rotation.Config{
		SessionRepo: sessions,
		RoundRepo:   rounds,
		Presence:    classifier,
		Random:      rng,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create rotation scheduler")
	}

	hub := ws.NewHub(logger)

	engine, err := room.New(&room.Config{
		SessionRepo:   sessions,
		RoundRepo:     rounds,
		PresenceRepo:  presence,
		Timer:         timerCtrl,
		Arbiter:       arbiter,
		Rotation:      scheduler,
		Adjuster:      estimator,
		UUIDGenerator: uuids,
		Random:        rng,
		Clock:         clock,
		Logger:        logger,
		Events:        hub.Publish,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create room service")
	}

	handler, err := ws.New(&ws.Config{
		Engine: engine,
		Hub:    hub,
		NewReplica: func(code string) (*replica.Replica, error) {
			return replica.New(&replica.Config{
				Code:        code,
				SessionRepo: sessions,
				RoundRepo:   rounds,
				Logger:      logger,
			})
		},
		NewTracker: func(code, actorID string, onChange func(models.Event)) (*presenceService.Tracker, error) {
			// Heartbeat cadence and liveness window are per-session
			// configuration, fixed at room creation
			roomCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			sess, err := sessions.GetRoom(roomCtx, &sessionRepo.GetRoomInput{Code: code})
			if err != nil {
				return nil, err
			}
			return presenceService.New(&presenceService.Config{
				Code:           code,
				ActorID:        actorID,
				Repo:           presence,
				Adjuster:       estimator,
				Resyncer:       estimator,
				Clock:          clock,
				Interval:       time.Duration(sess.Config.HeartbeatSeconds) * time.Second,
				LivenessWindow: time.Duration(sess.Config.LivenessSeconds) * time.Second,
				Logger:         logger,
				OnChange:       onChange,
			})
		},
		Logger: logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create websocket handler")
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", handler)

	corsWrapper := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	})

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: corsWrapper.Handler(mux),
	}

	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("engine listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shut down cleanly")
	}

	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close store client")
	}
}
