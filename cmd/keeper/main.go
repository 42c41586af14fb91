package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"harvest-backend/bootstrap"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	healthOnly := flag.Bool("health", false, "print dependency and keeper status as JSON and exit")
	once := flag.Bool("once", false, "run one settlement pass and exit")
	resetStats := flag.Bool("reset-stats", false, "clear keeper run statistics and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap.New(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Startup failed")
		return 1
	}
	defer a.Close()
	setupLogger(a.Config.LogLevel, a.Config.IsProduction())

	switch {
	case *healthOnly:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(a.Health(ctx))
		return 0
	case *resetStats:
		if err := a.ResetStats(ctx, time.Now()); err != nil {
			log.Error().Err(err).Msg("Keeper stats reset failed")
			return 1
		}
		log.Info().Msg("Keeper stats reset")
		return 0
	}

	sqlDB, err := a.DB.DB()
	if err != nil {
		log.Error().Err(err).Msg("Database handle unavailable")
		return 1
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		log.Error().Err(err).Msg("Database connection failed")
		return 1
	}
	log.Info().Msg("Database connected")
	if a.Rdb != nil {
		if err := a.Rdb.Ping(ctx).Err(); err != nil {
			log.Error().Err(err).Msg("Redis connection failed")
			return 1
		}
		log.Info().Msg("Redis connected")
	}
	a.Stats.MarkStart(ctx, time.Now())

	runner, err := a.Keeper(ctx)
	if err != nil {
		log.Error().Err(err).Str("schedule", a.Config.KeeperSchedule).Msg("Invalid keeper schedule")
		return 1
	}
	if *once {
		if report := runner.RunOnce(ctx, a.Settlement); report.Failed() {
			return 1
		}
		return 0
	}

	runner.Start()
	log.Info().Str("schedule", a.Config.KeeperSchedule).Msg("Settlement keeper running")
	<-ctx.Done()
	log.Info().Msg("Shutting down keeper")
	runner.Stop()
	return 0
}

func setupLogger(level string, production bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if !production {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
