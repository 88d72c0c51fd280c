package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/fermwise/farm-monitoring/internal/domain"
	"github.com/fermwise/farm-monitoring/internal/monitoring"
	"github.com/fermwise/farm-monitoring/internal/timeseries"
	"github.com/fermwise/farm-monitoring/internal/transform"
	"github.com/fermwise/farm-monitoring/internal/vision"
)

// ReadingSource loads stored sensor documents. The postgres repository and
// the DynamoDB client both implement it.
type ReadingSource interface {
	ReadingsForFarm(ctx context.Context, farmID string, since time.Time) ([]domain.SensorDocument, error)
	ReadingsForDevice(ctx context.Context, deviceID string, since time.Time) ([]domain.SensorDocument, error)
}

// FarmStore resolves farm and device metadata.
type FarmStore interface {
	GetFarm(ctx context.Context, id string) (domain.Farm, error)
	ListDevices(ctx context.Context, farmID string) ([]domain.Device, error)
	GetDevice(ctx context.Context, id string) (domain.Device, error)
}

// DocumentWriter persists ingested documents.
type DocumentWriter interface {
	InsertDocument(ctx context.Context, doc domain.SensorDocument) error
}

// Notifier is told about farms whose verdict is critical.
type Notifier interface {
	NotifyFarm(ctx context.Context, v domain.FarmVerdict) error
}

// ReportUploader stores a generated report and returns a download URL.
type ReportUploader interface {
	UploadReport(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ThresholdPublisher broadcasts accepted thresholds to other instances.
type ThresholdPublisher interface {
	Publish(ctx context.Context, th monitoring.Thresholds) error
}

// Deps wires the services. Farms, Source and Engine are required; the rest
// may be left nil.
type Deps struct {
	Farms           FarmStore
	Source          ReadingSource
	Documents       DocumentWriter
	Engine          *monitoring.Engine
	Analyzer        vision.Analyzer
	AnalysisTimeout time.Duration
	Lookback        time.Duration
	Notifier        Notifier
	Uploader        ReportUploader
	Bus             ThresholdPublisher
	History         timeseries.Sink
	Transforms      *transform.Manager
	Logger          zerolog.Logger
	Now             func() time.Time
}

type Services struct {
	Monitoring *MonitoringService
	Readings   *ReadingService
}

func New(d Deps) *Services {
	if d.Analyzer == nil {
		d.Analyzer = vision.Disabled{}
	}
	if d.History == nil {
		d.History = timeseries.Nop{}
	}
	if d.Transforms == nil {
		d.Transforms = transform.NewManager(d.Logger)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Services{
		Monitoring: &MonitoringService{
			farms:    d.Farms,
			source:   d.Source,
			engine:   d.Engine,
			analyzer: d.Analyzer,
			timeout:  d.AnalysisTimeout,
			lookback: d.Lookback,
			notifier: d.Notifier,
			uploader: d.Uploader,
			bus:      d.Bus,
			history:  d.History,
			now:      d.Now,
			log:      d.Logger.With().Str("component", "monitoring").Logger(),
		},
		Readings: &ReadingService{
			docs:       d.Documents,
			farms:      d.Farms,
			transforms: d.Transforms,
			now:        d.Now,
			log:        d.Logger.With().Str("component", "ingest").Logger(),
		},
	}
}
