package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fermwise/farm-monitoring/internal/app"
	"github.com/fermwise/farm-monitoring/internal/config"
	httpHandlers "github.com/fermwise/farm-monitoring/internal/http"
	"github.com/fermwise/farm-monitoring/internal/monitoring"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logger := config.SetupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer a.Close()

	if a.Bus != nil {
		go func() {
			if err := a.Bus.Run(ctx, func(p monitoring.ThresholdPatch) error {
				_, err := a.Engine.ReplaceThresholds(p)
				return err
			}); err != nil {
				log.Error().Err(err).Msg("threshold bus stopped")
			}
		}()
	}
	if config.WatchThresholds(func(p monitoring.ThresholdPatch) error {
		_, err := a.Services.Monitoring.UpdateThresholds(ctx, p)
		return err
	}) {
		log.Info().Str("file", config.ConfigFile()).Msg("watching threshold config")
	}

	srv := fiber.New(fiber.Config{DisableStartupMessage: true})
	httpHandlers.Register(srv, a.Services)

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		_ = srv.Shutdown()
	}()

	addr := config.APIAddr()
	log.Info().Str("addr", addr).Msg("api listening")
	if err := srv.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("server exit")
	}
}
