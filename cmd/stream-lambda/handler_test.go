package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

type recordingFarms struct{ seen []string }

func (r *recordingFarms) FarmMonitoring(_ context.Context, id string) (domain.FarmVerdict, error) {
	r.seen = append(r.seen, id)
	if id == "broken" {
		return domain.FarmVerdict{}, errors.New("boom")
	}
	return domain.FarmVerdict{FarmID: id, Status: domain.Healthy}, nil
}

func record(event, farmID string) events.DynamoDBEventRecord {
	return events.DynamoDBEventRecord{
		EventName: event,
		Change: events.DynamoDBStreamRecord{
			NewImage: map[string]events.DynamoDBAttributeValue{
				"farmId":   events.NewStringAttribute(farmID),
				"humidity": events.NewNumberAttribute("55"),
			},
		},
	}
}

func TestTouchedFarms(t *testing.T) {
	recs := []events.DynamoDBEventRecord{
		record("INSERT", "farm-b"),
		record("INSERT", "farm-a"),
		record("MODIFY", "farm-b"),
		record("REMOVE", "farm-c"),
		record("INSERT", ""),
	}

	assert.Equal(t, []string{"farm-a", "farm-b"}, touchedFarms(recs))
}

func TestHandle_ContinuesPastFailures(t *testing.T) {
	farms := &recordingFarms{}
	h := &streamHandler{farms: farms}

	err := h.Handle(context.Background(), events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		record("INSERT", "broken"),
		record("INSERT", "farm-z"),
	}})

	assert.NoError(t, err)
	assert.Equal(t, []string{"broken", "farm-z"}, farms.seen)
}
