package monitoring

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

func TestNewThresholdStore_RejectsInvertedBand(t *testing.T) {
	th := DefaultThresholds()
	th.SoilMoisture = domain.Band{Min: 60, Max: 30}

	_, err := NewThresholdStore(th)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidThresholds))
}

func TestThresholdStore_PartialReplace(t *testing.T) {
	store, err := NewThresholdStore(DefaultThresholds())
	require.NoError(t, err)

	got, err := store.Replace(ThresholdPatch{Humidity: &domain.Band{Min: 35, Max: 75}})

	require.NoError(t, err)
	assert.Equal(t, domain.Band{Min: 35, Max: 75}, got.Humidity)
	assert.Equal(t, DefaultThresholds().SoilMoisture, got.SoilMoisture)
	assert.Equal(t, got, store.Snapshot())
}

func TestThresholdStore_InvalidReplaceKeepsPrior(t *testing.T) {
	store, err := NewThresholdStore(DefaultThresholds())
	require.NoError(t, err)

	_, err = store.Replace(ThresholdPatch{
		Humidity:             &domain.Band{Min: 20, Max: 90},
		LivestockTemperature: &domain.Band{Min: 39.5, Max: 39.5},
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, domain.LivestockTemperature, verr.Parameter)
	assert.Contains(t, err.Error(), "min (39.5) must be less than max (39.5)")
	assert.Equal(t, DefaultThresholds(), store.Snapshot())
}

func TestThresholdStore_ConcurrentPatchesAreNotLost(t *testing.T) {
	store, err := NewThresholdStore(DefaultThresholds())
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, _ = store.Replace(ThresholdPatch{Humidity: &domain.Band{Min: 41, Max: 71}})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, _ = store.Replace(ThresholdPatch{SoilMoisture: &domain.Band{Min: 31, Max: 61}})
		}
	}()
	wg.Wait()

	got := store.Snapshot()
	assert.Equal(t, domain.Band{Min: 41, Max: 71}, got.Humidity)
	assert.Equal(t, domain.Band{Min: 31, Max: 61}, got.SoilMoisture)
}

func TestThresholds_Band(t *testing.T) {
	th := DefaultThresholds()

	_, ok := th.Band(domain.Temperature)
	assert.False(t, ok)
	_, ok = th.Band(domain.SoilTemperature)
	assert.False(t, ok)

	b, ok := th.Band(domain.LivestockTemperature)
	assert.True(t, ok)
	assert.Equal(t, domain.Band{Min: 37.5, Max: 39.5}, b)
}
