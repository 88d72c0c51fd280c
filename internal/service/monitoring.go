package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/fermwise/farm-monitoring/internal/domain"
	"github.com/fermwise/farm-monitoring/internal/metrics"
	"github.com/fermwise/farm-monitoring/internal/monitoring"
	"github.com/fermwise/farm-monitoring/internal/report"
	"github.com/fermwise/farm-monitoring/internal/repository"
	"github.com/fermwise/farm-monitoring/internal/timeseries"
	"github.com/fermwise/farm-monitoring/internal/vision"
)

// maxConcurrentAnalyses bounds image analyses running for one farm.
const maxConcurrentAnalyses = 4

// MonitoringService gathers readings and metadata, runs the engine, and
// attaches the side results (crop health, history, notifications).
type MonitoringService struct {
	farms    FarmStore
	source   ReadingSource
	engine   *monitoring.Engine
	analyzer vision.Analyzer
	timeout  time.Duration
	lookback time.Duration
	notifier Notifier
	uploader ReportUploader
	bus      ThresholdPublisher
	history  timeseries.Sink
	now      func() time.Time
	log      zerolog.Logger
}

func (s *MonitoringService) since() time.Time {
	if s.lookback <= 0 {
		return time.Time{}
	}
	return s.now().Add(-s.lookback)
}

// FarmMonitoring evaluates every registered device of the farm plus any
// device that reported readings for it.
func (s *MonitoringService) FarmMonitoring(ctx context.Context, farmID string) (domain.FarmVerdict, error) {
	farm, devices, readings, err := s.loadFarm(ctx, farmID)
	if err != nil {
		return domain.FarmVerdict{}, err
	}

	byDevice := make(map[string][]domain.Reading, len(devices))
	for _, d := range devices {
		byDevice[d.ID] = nil
	}
	for _, r := range readings {
		byDevice[r.DeviceID] = append(byDevice[r.DeviceID], r)
	}

	v := s.engine.EvaluateFarm(farm, byDevice, monitoring.DirectoryOf(devices))
	s.attachCropHealth(ctx, farm.CropType, v.Devices)
	metrics.ObserveFarm(v)

	log := s.log.With().Str("farm_id", farmID).Str("status", string(v.Status)).Logger()
	log.Info().Int("devices", len(v.Devices)).Int("alerts", len(v.Alerts)).Msg("farm evaluated")

	if err := s.history.RecordFarm(ctx, v); err != nil {
		log.Warn().Err(err).Msg("failed to record verdict history")
	}
	if v.Status == domain.Critical && s.notifier != nil {
		if err := s.notifier.NotifyFarm(ctx, v); err != nil {
			log.Warn().Err(err).Msg("failed to send critical notification")
		}
	}
	return v, nil
}

func (s *MonitoringService) loadFarm(ctx context.Context, farmID string) (domain.Farm, []domain.Device, []domain.Reading, error) {
	farm, err := s.farms.GetFarm(ctx, farmID)
	if err != nil {
		return domain.Farm{}, nil, nil, err
	}
	devices, err := s.farms.ListDevices(ctx, farmID)
	if err != nil {
		return domain.Farm{}, nil, nil, fmt.Errorf("list devices of farm %s: %w", farmID, err)
	}
	docs, err := s.source.ReadingsForFarm(ctx, farmID, s.since())
	if err != nil {
		return domain.Farm{}, nil, nil, fmt.Errorf("load readings of farm %s: %w", farmID, err)
	}
	return farm, devices, monitoring.NormalizeAll(docs), nil
}

// DeviceMonitoring evaluates a single device. A device that is not
// registered is still evaluated when it has readings.
func (s *MonitoringService) DeviceMonitoring(ctx context.Context, deviceID string) (domain.DeviceVerdict, error) {
	var dir monitoring.Directory
	cropType := ""
	dev, err := s.farms.GetDevice(ctx, deviceID)
	switch {
	case err == nil:
		dir = monitoring.DirectoryOf([]domain.Device{dev})
		farm, ferr := s.farms.GetFarm(ctx, dev.FarmID)
		switch {
		case ferr == nil:
			cropType = farm.CropType
		case !errors.Is(ferr, repository.ErrNotFound):
			s.log.Warn().Err(ferr).Str("device_id", deviceID).Str("farm_id", dev.FarmID).Msg("failed to load farm of device")
		}
	case !errors.Is(err, repository.ErrNotFound):
		return domain.DeviceVerdict{}, err
	}

	docs, lerr := s.source.ReadingsForDevice(ctx, deviceID, s.since())
	if lerr != nil {
		return domain.DeviceVerdict{}, fmt.Errorf("load readings of device %s: %w", deviceID, lerr)
	}
	readings := monitoring.NormalizeAll(docs)
	if dir == nil && len(readings) == 0 {
		return domain.DeviceVerdict{}, err
	}

	v := s.engine.EvaluateDevice(deviceID, readings, dir)
	verdicts := []domain.DeviceVerdict{v}
	s.attachCropHealth(ctx, cropType, verdicts)
	metrics.ObserveDevice(verdicts[0])

	s.log.Info().Str("device_id", deviceID).Str("status", string(v.Status)).Msg("device evaluated")
	return verdicts[0], nil
}

// attachCropHealth analyzes the latest image of every device in parallel.
// Failures become the placeholder result and never fail the evaluation.
func (s *MonitoringService) attachCropHealth(ctx context.Context, cropType string, verdicts []domain.DeviceVerdict) {
	var g errgroup.Group
	g.SetLimit(maxConcurrentAnalyses)
	for i := range verdicts {
		img := verdicts[i].LatestImage
		if img == nil || img.ImageURL == "" {
			continue
		}
		req := *img
		req.CropType = cropType
		g.Go(func() error {
			h := s.AnalyzeImage(ctx, req)
			verdicts[i].CropHealth = &h
			return nil
		})
	}
	_ = g.Wait()
}

// AnalyzeImage returns the crop health for img, or the placeholder result
// when the analyzer fails or times out.
func (s *MonitoringService) AnalyzeImage(ctx context.Context, img domain.ImageRequest) domain.CropHealth {
	h, err := vision.AnalyzeOrPlaceholder(ctx, s.analyzer, img, s.timeout)
	if err != nil {
		metrics.ImageAnalysis.WithLabelValues("placeholder").Inc()
		if !errors.Is(err, vision.ErrAnalysisUnavailable) {
			s.log.Warn().Err(err).Str("device_id", img.DeviceID).Str("image_url", img.ImageURL).Msg("crop image analysis failed")
		}
		return h
	}
	metrics.ImageAnalysis.WithLabelValues("ok").Inc()
	return h
}

// EnvironmentalAnalysis averages the farm's readings over the look-back
// window and analyzes the most recent crop image.
func (s *MonitoringService) EnvironmentalAnalysis(ctx context.Context, farmID string) (monitoring.EnvironmentReport, error) {
	farm, _, readings, err := s.loadFarm(ctx, farmID)
	if err != nil {
		return monitoring.EnvironmentReport{}, err
	}

	rep := s.engine.AnalyzeEnvironment(farmID, readings)

	var images []domain.Reading
	for _, r := range readings {
		if r.Kind == domain.CropImage && r.ImageURL != "" {
			images = append(images, r)
		}
	}
	if img, ok := monitoring.Latest(images)[domain.CropImage]; ok {
		h := s.AnalyzeImage(ctx, domain.ImageRequest{
			ImageURL:  img.ImageURL,
			CropType:  farm.CropType,
			FarmID:    farmID,
			DeviceID:  img.DeviceID,
			Timestamp: img.Time,
		})
		rep.CropHealth = &h
	}
	return rep, nil
}

func (s *MonitoringService) Thresholds() monitoring.Thresholds {
	return s.engine.Thresholds()
}

// UpdateThresholds applies patch locally and then broadcasts the merged
// record. A failed broadcast does not undo the local update.
func (s *MonitoringService) UpdateThresholds(ctx context.Context, patch monitoring.ThresholdPatch) (monitoring.Thresholds, error) {
	th, err := s.engine.ReplaceThresholds(patch)
	if err != nil {
		return th, err
	}
	s.log.Info().Interface("thresholds", th).Msg("thresholds updated")

	if s.bus != nil {
		if err := s.bus.Publish(ctx, th); err != nil {
			s.log.Warn().Err(err).Msg("failed to broadcast thresholds")
		}
	}
	return th, nil
}

// Report is a rendered farm workbook. URL is set when it was uploaded.
type Report struct {
	Key  string
	Data []byte
	URL  string
}

func (s *MonitoringService) Report(ctx context.Context, farmID string) (Report, error) {
	v, err := s.FarmMonitoring(ctx, farmID)
	if err != nil {
		return Report{}, err
	}
	data, err := report.FarmWorkbook(v)
	if err != nil {
		return Report{}, fmt.Errorf("render report for farm %s: %w", farmID, err)
	}

	out := Report{
		Key:  fmt.Sprintf("reports/%s/%s-%s.xlsx", farmID, s.now().UTC().Format("20060102T150405Z"), uuid.NewString()[:8]),
		Data: data,
	}
	if s.uploader == nil {
		return out, nil
	}
	url, err := s.uploader.UploadReport(ctx, out.Key, data, report.ContentType)
	if err != nil {
		return Report{}, fmt.Errorf("upload report for farm %s: %w", farmID, err)
	}
	out.URL = url
	return out, nil
}
