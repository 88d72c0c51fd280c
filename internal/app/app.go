// Package app assembles the monitoring services from configuration. The API
// server and the scheduled sweep share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/fermwise/farm-monitoring/internal/cloud"
	"github.com/fermwise/farm-monitoring/internal/config"
	"github.com/fermwise/farm-monitoring/internal/database"
	"github.com/fermwise/farm-monitoring/internal/monitoring"
	"github.com/fermwise/farm-monitoring/internal/repository"
	"github.com/fermwise/farm-monitoring/internal/service"
	"github.com/fermwise/farm-monitoring/internal/thresholdbus"
	"github.com/fermwise/farm-monitoring/internal/timeseries"
	"github.com/fermwise/farm-monitoring/internal/transform"
	"github.com/fermwise/farm-monitoring/internal/vision"
)

type App struct {
	Services *service.Services
	Engine   *monitoring.Engine
	Bus      *thresholdbus.Bus // nil when Redis is unreachable

	db      *sqlx.DB
	redis   *redis.Client
	history timeseries.Sink
}

// awsLoader loads the AWS config once, on first use.
type awsLoader struct {
	region string
	cfg    *aws.Config
}

func (l *awsLoader) get(ctx context.Context) (aws.Config, error) {
	if l.cfg != nil {
		return *l.cfg, nil
	}
	cfg, err := cloud.LoadConfig(ctx, l.region)
	if err != nil {
		return aws.Config{}, err
	}
	l.cfg = &cfg
	return cfg, nil
}

// New connects to every configured backend and wires the services. config.Load
// must have been called.
func New(ctx context.Context, logger zerolog.Logger) (*App, error) {
	a := &App{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	db, err := database.Connect(ctx)
	if err != nil {
		return nil, err
	}
	a.db = db
	if err := database.Migrate(ctx, db); err != nil {
		return nil, err
	}
	repos := repository.New(db)

	store, err := monitoring.NewThresholdStore(config.Thresholds())
	if err != nil {
		return nil, fmt.Errorf("configured thresholds: %w", err)
	}
	a.Engine = monitoring.NewEngine(store)

	a.connectBus(ctx, logger)

	awsCfg := &awsLoader{region: config.AWSRegion()}
	deps := service.Deps{
		Farms:           repos,
		Source:          repos,
		Documents:       repos,
		Engine:          a.Engine,
		AnalysisTimeout: config.ImageAnalysisTimeout(),
		Lookback:        config.Lookback(),
		Logger:          logger,
	}
	if a.Bus != nil {
		deps.Bus = a.Bus
	}

	switch config.ReadingSource() {
	case "postgres", "":
	case "dynamodb":
		cfg, err := awsCfg.get(ctx)
		if err != nil {
			return nil, err
		}
		dyn := cloud.NewDynamoDBClient(cfg, config.DynamoReadingsTable())
		deps.Source = dyn
		deps.Documents = dyn
	default:
		return nil, fmt.Errorf("unknown READING_SOURCE %q", config.ReadingSource())
	}

	if config.UseCloudServices() {
		cfg, err := awsCfg.get(ctx)
		if err != nil {
			return nil, err
		}
		if arn := config.SNSTopicArn(); arn != "" {
			deps.Notifier = cloud.NewSNSClient(cfg, arn)
		}
		deps.Uploader = cloud.NewS3Client(cfg, config.S3Bucket())
		logger.Info().Str("region", cfg.Region).Msg("cloud services enabled")
	}

	analyzer, err := newAnalyzer(ctx, awsCfg)
	if err != nil {
		return nil, err
	}
	deps.Analyzer = analyzer

	history, err := timeseries.NewInfluxSink(timeseries.InfluxConfig{
		URL:    config.InfluxURL(),
		Token:  config.InfluxToken(),
		Org:    config.InfluxOrg(),
		Bucket: config.InfluxBucket(),
	})
	if err != nil {
		return nil, err
	}
	a.history = history
	deps.History = history

	tm := transform.NewManager(logger)
	if err := tm.LoadDir(config.TransformersDir()); err != nil {
		return nil, err
	}
	deps.Transforms = tm

	a.Services = service.New(deps)
	ok = true
	return a, nil
}

func (a *App) connectBus(ctx context.Context, logger zerolog.Logger) {
	addr := config.RedisAddr()
	if addr == "" {
		return
	}
	client := thresholdbus.NewClient(addr, config.RedisPassword())
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", addr).Msg("redis unavailable, thresholds stay local")
		_ = client.Close()
		return
	}
	a.redis = client
	a.Bus = thresholdbus.New(client, config.ThresholdChannel(), logger)

	// adopt what other instances already agreed on
	th, err := a.Bus.Load(ctx)
	switch {
	case errors.Is(err, thresholdbus.ErrNoSnapshot):
	case err != nil:
		logger.Warn().Err(err).Msg("failed to load shared thresholds")
	default:
		if _, err := a.Engine.ReplaceThresholds(monitoring.FullPatch(th)); err != nil {
			logger.Warn().Err(err).Msg("shared thresholds rejected")
		}
	}
}

func newAnalyzer(ctx context.Context, awsCfg *awsLoader) (vision.Analyzer, error) {
	var next vision.Analyzer
	switch config.ImageAnalyzer() {
	case "none", "":
		return vision.Disabled{}, nil
	case "gemini":
		g, err := vision.NewGeminiAnalyzer(vision.GeminiConfig{
			BaseURL: config.GeminiBaseURL(),
			APIKey:  config.GeminiAPIKey(),
			Model:   config.GeminiModel(),
			Timeout: config.ImageAnalysisTimeout(),
		})
		if err != nil {
			return nil, err
		}
		next = g
	case "lambda":
		cfg, err := awsCfg.get(ctx)
		if err != nil {
			return nil, err
		}
		next = cloud.NewLambdaImageAnalyzer(cfg, config.ImageLambdaFunction())
	default:
		return nil, fmt.Errorf("unknown IMAGE_ANALYZER %q", config.ImageAnalyzer())
	}
	return vision.NewBreaker(next, vision.BreakerSettings{
		Name: config.ImageAnalyzer(),
		Open: 30 * time.Second,
	}), nil
}

// Close releases every connection New opened.
func (a *App) Close() {
	if a.history != nil {
		a.history.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
