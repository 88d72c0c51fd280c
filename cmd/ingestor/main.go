package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/fermwise/farm-monitoring/internal/app"
	"github.com/fermwise/farm-monitoring/internal/config"
	"github.com/fermwise/farm-monitoring/internal/service"
)

const handleTimeout = 10 * time.Second

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
	readings := a.Services.Readings

	opts := mqtt.NewClientOptions().
		AddBroker(config.MQTTBroker()).
		SetClientID(config.MQTTClientID()).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn().Err(err).Msg("mqtt connection lost")
		})
	client := mqtt.NewClient(opts)
	if err := connect(ctx, client); err != nil {
		log.Fatal().Err(err).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		hctx, cancel := context.WithTimeout(ctx, handleTimeout)
		defer cancel()
		if err := readings.FromMQTT(hctx, msg.Topic(), msg.Payload()); err != nil {
			ev := log.Error()
			if errors.Is(err, service.ErrRejected) {
				ev = log.Warn()
			}
			ev.Err(err).Str("topic", msg.Topic()).Msg("ingest failed")
		}
	}

	topic := config.MQTTTopic()
	if token := client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("subscribe failed")
	}

	log.Info().Str("topic", topic).Msg("ingestor running; Ctrl+C to stop")
	<-ctx.Done()
	log.Info().Msg("ingestor stopping")
}

func connect(ctx context.Context, client mqtt.Client) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = time.Minute
	return backoff.Retry(func() error {
		token := client.Connect()
		if !token.WaitTimeout(10 * time.Second) {
			return fmt.Errorf("timed out connecting to %s", config.MQTTBroker())
		}
		if err := token.Error(); err != nil {
			log.Warn().Err(err).Msg("broker not ready, retrying")
			return err
		}
		return nil
	}, backoff.WithContext(bo, ctx))
}
