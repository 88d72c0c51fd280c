// Package timeseries keeps a history of verdicts in InfluxDB.
package timeseries

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

// Sink records farm verdicts.
type Sink interface {
	RecordFarm(ctx context.Context, v domain.FarmVerdict) error
	Close()
}

type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// NewInfluxSink returns a no-op sink when no URL is configured.
func NewInfluxSink(cfg InfluxConfig) (Sink, error) {
	if cfg.URL == "" {
		return Nop{}, nil
	}
	if cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx config incomplete")
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}, nil
}

func (s *InfluxSink) RecordFarm(ctx context.Context, v domain.FarmVerdict) error {
	for _, p := range Points(v) {
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return fmt.Errorf("write %s point: %w", p.Name(), err)
		}
	}
	return nil
}

func (s *InfluxSink) Close() { s.client.Close() }

// Points converts a farm verdict into one farm_status point plus one
// device_status point per device, all stamped with the verdict time.
func Points(v domain.FarmVerdict) []*write.Point {
	t := v.LastUpdated.Time()
	if v.LastUpdated.IsZero() {
		t = time.Now()
	}
	critical, warning := countLevels(v.Alerts)

	points := make([]*write.Point, 0, len(v.Devices)+1)
	points = append(points, influxdb2.NewPoint("farm_status",
		map[string]string{
			"farm_id": v.FarmID,
			"status":  string(v.Status),
		},
		map[string]interface{}{
			"alerts":   len(v.Alerts),
			"critical": critical,
			"warnings": warning,
			"devices":  len(v.Devices),
		}, t))

	for _, d := range v.Devices {
		c, w := countLevels(d.Alerts)
		fields := map[string]interface{}{
			"alerts":   len(d.Alerts),
			"critical": c,
			"warnings": w,
		}
		for kind, snap := range d.Readings {
			fields[string(kind)] = snap.Value
		}
		points = append(points, influxdb2.NewPoint("device_status",
			map[string]string{
				"farm_id":     v.FarmID,
				"device_id":   d.DeviceID,
				"device_type": d.DeviceType,
				"status":      string(d.Status),
			}, fields, t))
	}
	return points
}

func countLevels(alerts []domain.Alert) (critical, warning int) {
	for _, a := range alerts {
		switch a.Level {
		case domain.LevelCritical:
			critical++
		case domain.LevelWarning:
			warning++
		}
	}
	return critical, warning
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordFarm(context.Context, domain.FarmVerdict) error { return nil }
func (Nop) Close()                                               {}
