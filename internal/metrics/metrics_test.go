package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

func TestObserveFarm(t *testing.T) {
	farmBefore := testutil.ToFloat64(Evaluations.WithLabelValues("farm", "critical"))
	deviceBefore := testutil.ToFloat64(Evaluations.WithLabelValues("device", "healthy"))
	critBefore := testutil.ToFloat64(Alerts.WithLabelValues("critical"))

	ObserveFarm(domain.FarmVerdict{
		Status: domain.Critical,
		Alerts: []domain.Alert{{Level: domain.LevelCritical}, {Level: domain.LevelCritical}},
		Devices: []domain.DeviceVerdict{
			{Status: domain.Critical},
			{Status: domain.Healthy},
		},
	})

	assert.Equal(t, farmBefore+1, testutil.ToFloat64(Evaluations.WithLabelValues("farm", "critical")))
	assert.Equal(t, deviceBefore+1, testutil.ToFloat64(Evaluations.WithLabelValues("device", "healthy")))
	assert.Equal(t, critBefore+2, testutil.ToFloat64(Alerts.WithLabelValues("critical")))
}

func TestObserveDevice(t *testing.T) {
	before := testutil.ToFloat64(Alerts.WithLabelValues("info"))

	ObserveDevice(domain.DeviceVerdict{Status: domain.NeedsAttention, Alerts: []domain.Alert{{Level: domain.LevelInfo}}})

	assert.Equal(t, before+1, testutil.ToFloat64(Alerts.WithLabelValues("info")))
}
