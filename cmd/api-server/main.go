package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicore/clinic-scheduling/internal/api"
	"github.com/clinicore/clinic-scheduling/internal/config"
	"github.com/clinicore/clinic-scheduling/internal/db"
	redisclient "github.com/clinicore/clinic-scheduling/internal/redis"
	"github.com/clinicore/clinic-scheduling/internal/scheduling"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		errLogger := zerolog.New(os.Stderr)
		errLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := newLogger(cfg)
	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	repo := scheduling.NewPgRepository(pgPool)
	locker := redisclient.NewRedisScheduleLocker(rdb, cfg.LockTTL)
	notifier := scheduling.NewLogNotifier(logger.With().Str("component", "notifier").Logger())
	svc := scheduling.NewService(repo, locker, notifier, logger.With().Str("component", "scheduling").Logger())

	router := api.NewRouter(api.RouterConfig{
		Service: svc,
		PgPool:  pgPool,
		Redis:   rdb,
		Logger:  logger.With().Str("component", "http").Logger(),
		Env:     cfg.Env,
		Version: version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	case <-rootCtx.Done():
	}

	logger.Info().Msg("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out = os.Stdout
	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if cfg.Env == "dev" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: out})
	}
	return logger
}
