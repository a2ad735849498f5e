// Command server runs the study-session API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/habitguard/study-server/internal/config"
	"github.com/habitguard/study-server/internal/database"
	"github.com/habitguard/study-server/internal/handler"
	"github.com/habitguard/study-server/internal/jobs"
	"github.com/habitguard/study-server/internal/redis"
	"github.com/habitguard/study-server/internal/repository"
	"github.com/habitguard/study-server/internal/service"
	"github.com/habitguard/study-server/internal/sse"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(logLevel(cfg.LogLevel))

	if err := cfg.Validate(cfg.IsProduction()); err != nil {
		return err
	}
	statsLoc, err := cfg.StatsLocation()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	log.Info().Msg("postgres ready")

	pingCtx, cancel := context.WithTimeout(ctx, config.DBPingTimeout)
	rdb, err := redis.NewClient(pingCtx, cfg.RedisURL)
	cancel()
	if err != nil {
		return err
	}
	defer rdb.Close()
	log.Info().Msg("redis ready")

	sessionRepo := repository.NewStudySessionRepository(db.DB)
	subjectRepo := repository.NewSubjectRepository(db.DB)
	planRepo := repository.NewStudyPlanRepository(db.DB)
	statsRepo := repository.NewStatisticsRepository(db.DB)

	broker := sse.NewBroker(sse.NewRedisBus(rdb))
	defer broker.Close()

	stats := service.NewStatisticsService(statsRepo, redis.NewStatsCache(rdb, cfg.StatsCacheTTL()), statsLoc)
	sessions := service.NewStudySessionService(
		db, sessionRepo, subjectRepo, planRepo, stats, broker, cfg.MaxPlannedMinutes,
	)
	plans := service.NewStudyPlanService(planRepo, subjectRepo)

	router := newRouter(cfg, routes{
		sessions: handler.NewStudySessionHandler(sessions),
		stats:    handler.NewStatisticsHandler(stats),
		plans:    handler.NewStudyPlanHandler(plans),
		subjects: handler.NewSubjectHandler(subjectRepo),
		events:   handler.NewEventsHandler(broker, sessions),
		health: handler.NewHealthHandler(config.DBPingTimeout, map[string]handler.Probe{
			"postgres": db.Healthy,
			"redis":    rdb.Healthy,
		}),
	}, rdb)

	if after := cfg.StaleSessionAfter(); after > 0 {
		job := jobs.NewStaleSessionJob(sessions, after, config.StaleSessionJobInterval)
		job.Start()
		defer job.Stop()
	}

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     router,
		ReadTimeout: config.ReadTimeout,
		IdleTimeout: config.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancelShutdown()
	// open event streams only end when the broker closes them
	broker.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
	return nil
}

func logLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(name)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
