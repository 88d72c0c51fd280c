package main

import (
	"context"
	"sort"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

type farmEvaluator interface {
	FarmMonitoring(ctx context.Context, farmID string) (domain.FarmVerdict, error)
}

// streamHandler re-evaluates every farm that received new sensor documents
// in a DynamoDB stream batch, so critical farms are notified as soon as
// their readings land.
type streamHandler struct {
	farms farmEvaluator
}

func (h *streamHandler) Handle(ctx context.Context, event events.DynamoDBEvent) error {
	farms := touchedFarms(event.Records)
	log.Info().Int("records", len(event.Records)).Int("farms", len(farms)).Msg("processing stream batch")

	for _, id := range farms {
		v, err := h.farms.FarmMonitoring(ctx, id)
		if err != nil {
			// returning an error would make the stream redeliver the whole batch
			log.Error().Err(err).Str("farm_id", id).Msg("farm evaluation failed")
			continue
		}
		log.Info().Str("farm_id", id).Str("status", string(v.Status)).Int("alerts", len(v.Alerts)).Msg("farm re-evaluated")
	}
	return nil
}

// touchedFarms returns the distinct farm IDs of inserted or modified
// documents, sorted.
func touchedFarms(records []events.DynamoDBEventRecord) []string {
	seen := map[string]bool{}
	for _, r := range records {
		if r.EventName != string(events.DynamoDBOperationTypeInsert) && r.EventName != string(events.DynamoDBOperationTypeModify) {
			continue
		}
		v, ok := r.Change.NewImage["farmId"]
		if !ok || v.DataType() != events.DataTypeString || v.String() == "" {
			continue
		}
		seen[v.String()] = true
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
