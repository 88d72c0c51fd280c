// Package monitoring turns raw sensor readings into device and farm health
// verdicts. Everything here is synchronous and free of I/O; callers gather
// readings and device metadata before invoking the engine.
package monitoring

import (
	"fmt"
	"time"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

// StaleAfter is how old a latest reading may get before it is reported.
const StaleAfter = 24 * time.Hour

const (
	unknownDeviceName = "Unknown Device"
	unknownDeviceType = "Unknown Type"

	connectivityAdvice = "Check sensor connectivity and ensure regular data collection."
)

// Directory resolves device metadata for display.
type Directory interface {
	Lookup(deviceID string) (domain.Device, bool)
}

// DeviceDirectory is a Directory backed by a map keyed by device ID.
type DeviceDirectory map[string]domain.Device

func (d DeviceDirectory) Lookup(deviceID string) (domain.Device, bool) {
	dev, ok := d[deviceID]
	return dev, ok
}

// DirectoryOf indexes devices by ID.
func DirectoryOf(devices []domain.Device) DeviceDirectory {
	out := make(DeviceDirectory, len(devices))
	for _, d := range devices {
		out[d.ID] = d
	}
	return out
}

type Engine struct {
	thresholds *ThresholdStore
	now        func() time.Time
}

type Option func(*Engine)

// WithClock overrides the evaluation time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store *ThresholdStore, opts ...Option) *Engine {
	e := &Engine{thresholds: store, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Thresholds returns the record subsequent evaluations will use.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds.Snapshot()
}

// ReplaceThresholds validates and swaps in patch. In-flight evaluations keep
// the snapshot they started with.
func (e *Engine) ReplaceThresholds(patch ThresholdPatch) (Thresholds, error) {
	return e.thresholds.Replace(patch)
}

// EvaluateDevice produces the verdict for one device from all of its readings.
func (e *Engine) EvaluateDevice(deviceID string, readings []domain.Reading, dir Directory) domain.DeviceVerdict {
	v, _ := evaluateDevice(deviceID, readings, dir, e.thresholds.Snapshot(), e.now())
	return v
}

// deviceTally carries counts the farm rollup needs alongside a verdict.
type deviceTally struct {
	critical int
	warning  int
	stale    bool
}

func evaluateDevice(deviceID string, readings []domain.Reading, dir Directory, th Thresholds, now time.Time) (domain.DeviceVerdict, deviceTally) {
	latest := Latest(readings)
	name, typ := describe(deviceID, dir)

	v := domain.DeviceVerdict{
		DeviceID:             deviceID,
		DeviceName:           name,
		DeviceType:           typ,
		Alerts:               []domain.Alert{},
		Recommendations:      []domain.Recommendation{},
		Readings:             snapshot(latest, th),
		LastReadingTimestamp: LastTimestamp(latest),
	}
	if img, ok := latest[domain.CropImage]; ok {
		v.LatestImage = &domain.ImageRequest{
			ImageURL:  img.ImageURL,
			FarmID:    img.FarmID,
			DeviceID:  deviceID,
			Timestamp: img.Time,
		}
	}

	var t deviceTally
	for _, r := range rules {
		reading, ok := latest[r.kind]
		if !ok {
			continue
		}
		value, ok := reading.Measured()
		if !ok {
			continue
		}
		band, _ := th.Band(r.kind)
		if Evaluate(&value, &band) == domain.StatusNormal {
			continue
		}
		o, ok := r.outcomeFor(sideOf(value, band))
		if !ok {
			continue
		}
		v.Alerts = append(v.Alerts, domain.Alert{
			Level:     o.level,
			Parameter: r.kind,
			Message:   fmt.Sprintf(o.alert, formatValue(value, r.unit)),
			Value:     value,
			Threshold: band,
			Timestamp: reading.Time,
		})
		v.Recommendations = append(v.Recommendations, domain.Recommendation{
			Parameter: string(r.kind),
			Message:   o.advice,
			Priority:  o.priority,
		})
		switch o.level {
		case domain.LevelCritical:
			t.critical++
		case domain.LevelWarning:
			t.warning++
		}
	}

	stale := staleKinds(latest, now)
	for _, kind := range stale {
		v.Alerts = append(v.Alerts, domain.Alert{
			Level:     domain.LevelInfo,
			Parameter: kind,
			Message:   fmt.Sprintf("%s reading is stale: sensor data is more than 24 hours old.", kind),
			Timestamp: latest[kind].Time,
		})
	}
	if len(stale) > 0 {
		t.stale = true
		v.Recommendations = append(v.Recommendations, domain.Recommendation{
			Parameter: "data_collection",
			Message:   connectivityAdvice,
			Priority:  domain.PriorityLow,
		})
	}

	v.Status = rollup(t.critical, t.warning, t.stale)
	v.Summary = deviceSummary(name, v.Status, t)
	return v, t
}

func describe(deviceID string, dir Directory) (string, string) {
	name, typ := unknownDeviceName, unknownDeviceType
	if dir == nil {
		return name, typ
	}
	if d, ok := dir.Lookup(deviceID); ok {
		if d.Name != "" {
			name = d.Name
		}
		if d.Type != "" {
			typ = d.Type
		}
	}
	return name, typ
}

func snapshot(latest map[domain.ParameterKind]domain.Reading, th Thresholds) map[domain.ParameterKind]domain.ParameterSnapshot {
	out := make(map[domain.ParameterKind]domain.ParameterSnapshot, len(latest))
	for kind, r := range latest {
		value, ok := r.Measured()
		if !ok {
			continue
		}
		var band *domain.Band
		if b, ok := th.Band(kind); ok {
			band = &b
		}
		out[kind] = domain.ParameterSnapshot{
			Value:  value,
			Unit:   r.Unit,
			Status: Evaluate(&value, band),
		}
	}
	return out
}

// staleKinds lists, in a fixed order, the kinds whose latest reading is older
// than StaleAfter. Comparison is at whole-second precision.
func staleKinds(latest map[domain.ParameterKind]domain.Reading, now time.Time) []domain.ParameterKind {
	cutoff := now.Add(-StaleAfter).Unix()
	var out []domain.ParameterKind
	for _, kind := range domain.Kinds {
		r, ok := latest[kind]
		if ok && r.Time.Seconds < cutoff {
			out = append(out, kind)
		}
	}
	return out
}

func rollup(critical, warning int, stale bool) domain.HealthStatus {
	switch {
	case critical > 0:
		return domain.Critical
	case warning > 0 || stale:
		return domain.NeedsAttention
	}
	return domain.Healthy
}
