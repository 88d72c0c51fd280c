package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

type fakeFarms map[string]domain.FarmVerdict

func (f fakeFarms) FarmMonitoring(_ context.Context, id string) (domain.FarmVerdict, error) {
	v, ok := f[id]
	if !ok {
		return domain.FarmVerdict{}, errors.New("farm not found")
	}
	return v, nil
}

func TestSweep(t *testing.T) {
	s := &sweeper{farms: fakeFarms{
		"a": {FarmID: "a", Status: domain.Critical, Alerts: []domain.Alert{{Level: domain.LevelCritical}}},
		"b": {FarmID: "b", Status: domain.Healthy},
	}}

	resp, err := s.Handle(context.Background(), SweepEvent{FarmIDs: []string{"a", "b", "c"}})

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 1, resp.Body["critical"])
	assert.Equal(t, 1, resp.Body["failed"])
	results := resp.Body["results"].([]FarmResult)
	require.Len(t, results, 3)
	assert.Equal(t, FarmResult{FarmID: "a", Status: domain.Critical, Alerts: 1}, results[0])
	assert.Equal(t, "farm not found", results[2].Error)
}

func TestSweep_NoFarms(t *testing.T) {
	s := &sweeper{farms: fakeFarms{}}

	resp, err := s.Handle(context.Background(), SweepEvent{})

	assert.Error(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}
