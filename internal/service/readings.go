package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fermwise/farm-monitoring/internal/domain"
	"github.com/fermwise/farm-monitoring/internal/metrics"
	"github.com/fermwise/farm-monitoring/internal/monitoring"
	"github.com/fermwise/farm-monitoring/internal/transform"
)

// ErrRejected marks payloads that can never be stored; retrying is pointless.
var ErrRejected = errors.New("payload rejected")

type ReadingService struct {
	docs       DocumentWriter
	farms      FarmStore
	transforms *transform.Manager
	now        func() time.Time
	log        zerolog.Logger
}

// source is what a topic tells us about the sender.
type source struct {
	farmID     string
	deviceID   string
	deviceType string
}

// parseTopic understands farms/{farm}/devices/{device}/readings and
// devices/{type}/{device}.
func parseTopic(topic string) source {
	parts := strings.Split(strings.Trim(topic, "/"), "/")
	switch {
	case len(parts) == 5 && parts[0] == "farms" && parts[2] == "devices":
		return source{farmID: parts[1], deviceID: parts[3]}
	case len(parts) == 3 && parts[0] == "devices":
		return source{deviceType: parts[1], deviceID: parts[2]}
	}
	return source{}
}

// FromMQTT turns one MQTT message into a stored sensor document.
func (s *ReadingService) FromMQTT(ctx context.Context, topic string, payload []byte) error {
	err := s.ingest(ctx, topic, payload)
	switch {
	case err == nil:
		metrics.Ingest.WithLabelValues("stored").Inc()
	case errors.Is(err, ErrRejected):
		metrics.Ingest.WithLabelValues("rejected").Inc()
	default:
		metrics.Ingest.WithLabelValues("failed").Inc()
	}
	return err
}

func (s *ReadingService) ingest(ctx context.Context, topic string, payload []byte) error {
	src := parseTopic(topic)

	if src.deviceID != "" && s.farms != nil && (src.deviceType == "" || src.farmID == "") {
		if dev, err := s.farms.GetDevice(ctx, src.deviceID); err == nil {
			if src.deviceType == "" {
				src.deviceType = dev.Type
			}
			if src.farmID == "" {
				src.farmID = dev.FarmID
			}
		}
	}

	if src.deviceType != "" {
		out, ok, err := s.transforms.Transform(src.deviceType, payload)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRejected, err)
		}
		if ok {
			payload = out
		}
	}

	var doc domain.SensorDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("%w: decode payload on %s: %v", ErrRejected, topic, err)
	}
	if doc.FarmID == "" {
		doc.FarmID = src.farmID
	}
	if doc.DeviceID == "" {
		doc.DeviceID = src.deviceID
	}
	if doc.FarmID == "" || doc.DeviceID == "" {
		return fmt.Errorf("%w: no farm or device id for topic %s", ErrRejected, topic)
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Time.IsZero() {
		doc.Time = domain.TimestampOf(s.now())
	}
	if len(monitoring.Normalize(doc)) == 0 {
		return fmt.Errorf("%w: document %s carries no usable reading", ErrRejected, doc.ID)
	}

	if err := s.docs.InsertDocument(ctx, doc); err != nil {
		return fmt.Errorf("store document %s: %w", doc.ID, err)
	}
	s.log.Debug().Str("farm_id", doc.FarmID).Str("device_id", doc.DeviceID).Str("topic", topic).Msg("reading stored")
	return nil
}
