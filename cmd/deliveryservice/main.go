package main

import (
	"context"
	_ "embed" // Required for go:embed
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Raul302/Push-notifications-brazof/deliveryservice"
	"github.com/Raul302/Push-notifications-brazof/deliveryservice/config"
	"github.com/Raul302/Push-notifications-brazof/internal/app"
	"github.com/Raul302/Push-notifications-brazof/internal/engine"
	"github.com/Raul302/Push-notifications-brazof/internal/platform/persistence"
	"github.com/Raul302/Push-notifications-brazof/internal/platform/push"
	"github.com/Raul302/Push-notifications-brazof/internal/realtime"
	"github.com/Raul302/Push-notifications-brazof/pkg/delivery"
)

//go:embed config.yaml
var configFile []byte

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := newLogger(cfg)

	ctx := context.Background()

	tokens, err := newTokenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize token store")
	}
	defer func() {
		if err := tokens.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing token store")
		}
	}()

	gateway := push.NewExpoGateway(
		cfg.Push.URL,
		time.Duration(cfg.Push.TimeoutSeconds)*time.Second,
		logger,
	)

	hub := realtime.NewHub(logger)

	deliveryEngine, err := engine.New(&delivery.ServiceDependencies{
		Broadcaster: hub,
		TokenStore:  tokens,
		PushGateway: gateway,
	}, time.Duration(cfg.Push.TimeoutSeconds)*time.Second, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create delivery engine")
	}

	apiService, err := deliveryservice.New(cfg, deliveryEngine, tokens, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create API service")
	}

	connManager, err := realtime.NewConnectionManager(
		cfg.WebSocketPort,
		hub,
		deliveryEngine,
		tokens,
		cfg.Cors.AllowedOrigins,
		logger,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Connection Manager")
	}

	app.Run(ctx, logger, apiService, connManager, deliveryEngine)
}

// newLogger sets up structured logging, with optional rotating file output.
func newLogger(cfg *config.AppConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || cfg.Log.Level == "" {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stderr
	if cfg.Log.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
	}

	return zerolog.New(out).Level(level).With().
		Timestamp().
		Str("service", "push-notifications").
		Logger()
}

// newTokenStore builds the configured push-credential backend.
func newTokenStore(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (delivery.TokenStore, error) {
	switch cfg.TokenStore.Type {
	case "sqlite":
		return persistence.NewSQLiteTokenStore(cfg.TokenStore.SQLite.Path, logger)

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.TokenStore.Redis.Addr})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return persistence.NewRedisTokenStore(client, logger)

	case "firestore":
		client, err := firestore.NewClient(ctx, cfg.TokenStore.Firestore.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to firestore: %w", err)
		}
		return persistence.NewFirestoreTokenStore(client, cfg.TokenStore.Firestore.Collection, logger)

	default:
		return nil, fmt.Errorf("unknown token store type %q", cfg.TokenStore.Type)
	}
}
