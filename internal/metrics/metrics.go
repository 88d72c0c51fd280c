package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

var (
	Evaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "farm_monitoring",
		Name:      "evaluations_total",
		Help:      "Monitoring evaluations by scope and resulting status.",
	}, []string{"scope", "status"})

	Alerts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "farm_monitoring",
		Name:      "alerts_total",
		Help:      "Alerts raised by level.",
	}, []string{"level"})

	ImageAnalysis = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "farm_monitoring",
		Name:      "image_analysis_total",
		Help:      "Crop image analyses by result (ok, placeholder).",
	}, []string{"result"})

	Ingest = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "farm_monitoring",
		Name:      "ingest_total",
		Help:      "Ingested MQTT payloads by result (stored, rejected, failed).",
	}, []string{"result"})
)

// ObserveFarm records a farm verdict. Device verdicts inside it are counted
// under the device scope.
func ObserveFarm(v domain.FarmVerdict) {
	Evaluations.WithLabelValues("farm", string(v.Status)).Inc()
	for _, d := range v.Devices {
		Evaluations.WithLabelValues("device", string(d.Status)).Inc()
	}
	observeAlerts(v.Alerts)
}

func ObserveDevice(v domain.DeviceVerdict) {
	Evaluations.WithLabelValues("device", string(v.Status)).Inc()
	observeAlerts(v.Alerts)
}

func observeAlerts(alerts []domain.Alert) {
	for _, a := range alerts {
		Alerts.WithLabelValues(string(a.Level)).Inc()
	}
}
