// Package thresholdbus propagates accepted threshold updates between API
// instances over Redis pub/sub.
package thresholdbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/fermwise/farm-monitoring/internal/monitoring"
)

// ErrNoSnapshot is returned by Load when nothing was ever published.
var ErrNoSnapshot = errors.New("no thresholds published")

type Bus struct {
	client  *redis.Client
	channel string
	log     zerolog.Logger
}

func New(client *redis.Client, channel string, logger zerolog.Logger) *Bus {
	return &Bus{
		client:  client,
		channel: channel,
		log:     logger.With().Str("component", "thresholdbus").Str("channel", channel).Logger(),
	}
}

func NewClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
}

func (b *Bus) currentKey() string { return b.channel + ":current" }

// Publish stores th as the current record and notifies subscribers.
func (b *Bus) Publish(ctx context.Context, th monitoring.Thresholds) error {
	payload, err := json.Marshal(th)
	if err != nil {
		return fmt.Errorf("marshal thresholds: %w", err)
	}
	if err := b.client.Set(ctx, b.currentKey(), payload, 0).Err(); err != nil {
		return fmt.Errorf("store thresholds: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish thresholds: %w", err)
	}
	return nil
}

// Load returns the last published record.
func (b *Bus) Load(ctx context.Context) (monitoring.Thresholds, error) {
	raw, err := b.client.Get(ctx, b.currentKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return monitoring.Thresholds{}, ErrNoSnapshot
	}
	if err != nil {
		return monitoring.Thresholds{}, fmt.Errorf("load thresholds: %w", err)
	}
	var th monitoring.Thresholds
	if err := json.Unmarshal(raw, &th); err != nil {
		return monitoring.Thresholds{}, fmt.Errorf("decode thresholds: %w", err)
	}
	return th, nil
}

// Run subscribes to the channel and hands every received record to apply
// until ctx is done. Undecodable or rejected records are logged and skipped.
func (b *Bus) Run(ctx context.Context, apply func(monitoring.ThresholdPatch) error) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	// wait for the subscription to be confirmed so no publish is missed
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.log.Info().Msg("listening for threshold updates")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.handle(msg.Payload, apply)
		}
	}
}

func (b *Bus) handle(payload string, apply func(monitoring.ThresholdPatch) error) {
	var th monitoring.Thresholds
	if err := json.Unmarshal([]byte(payload), &th); err != nil {
		b.log.Warn().Err(err).Msg("dropping undecodable threshold update")
		return
	}
	if err := apply(monitoring.FullPatch(th)); err != nil {
		b.log.Warn().Err(err).Msg("threshold update rejected")
		return
	}
	b.log.Debug().Interface("thresholds", th).Msg("thresholds applied")
}
