package main

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

type farmEvaluator interface {
	FarmMonitoring(ctx context.Context, farmID string) (domain.FarmVerdict, error)
}

// SweepEvent is the scheduled trigger payload.
type SweepEvent struct {
	FarmIDs []string `json:"farm_ids"`
}

type FarmResult struct {
	FarmID  string              `json:"farm_id"`
	Status  domain.HealthStatus `json:"status,omitempty"`
	Summary string              `json:"summary,omitempty"`
	Alerts  int                 `json:"alerts"`
	Error   string              `json:"error,omitempty"`
}

type LambdaResponse struct {
	StatusCode int                    `json:"statusCode"`
	Body       map[string]interface{} `json:"body"`
}

// sweeper evaluates every farm in the event. Critical farms are notified by
// the monitoring service itself.
type sweeper struct {
	farms farmEvaluator
}

func (s *sweeper) Handle(ctx context.Context, event SweepEvent) (LambdaResponse, error) {
	if len(event.FarmIDs) == 0 {
		return LambdaResponse{
			StatusCode: 400,
			Body:       map[string]interface{}{"error": "farm_ids is required"},
		}, errors.New("no farms to sweep")
	}

	results := make([]FarmResult, 0, len(event.FarmIDs))
	critical, failed := 0, 0
	for _, id := range event.FarmIDs {
		v, err := s.farms.FarmMonitoring(ctx, id)
		if err != nil {
			failed++
			log.Error().Err(err).Str("farm_id", id).Msg("farm sweep failed")
			results = append(results, FarmResult{FarmID: id, Error: err.Error()})
			continue
		}
		if v.Status == domain.Critical {
			critical++
		}
		results = append(results, FarmResult{FarmID: id, Status: v.Status, Summary: v.Summary, Alerts: len(v.Alerts)})
	}

	log.Info().Int("farms", len(results)).Int("critical", critical).Int("failed", failed).Msg("sweep finished")
	return LambdaResponse{
		StatusCode: 200,
		Body: map[string]interface{}{
			"message":  "Farms evaluated",
			"critical": critical,
			"failed":   failed,
			"results":  results,
		},
	}, nil
}
