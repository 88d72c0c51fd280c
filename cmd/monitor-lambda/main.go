package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/fermwise/farm-monitoring/internal/app"
	"github.com/fermwise/farm-monitoring/internal/config"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logger := config.SetupLogging()

	a, err := app.New(context.Background(), logger)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer a.Close()

	h := &sweeper{farms: a.Services.Monitoring}
	lambda.Start(h.Handle)
}
