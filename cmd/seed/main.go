package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fermwise/farm-monitoring/internal/cloud"
	"github.com/fermwise/farm-monitoring/internal/config"
	"github.com/fermwise/farm-monitoring/internal/database"
	"github.com/fermwise/farm-monitoring/internal/domain"
	"github.com/fermwise/farm-monitoring/internal/repository"
)

// seed registers the demo farm and the devices the simulator publishes for.
func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	config.SetupLogging()
	ctx := context.Background()

	db, err := database.Connect(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}
	repos := repository.New(db)

	planted := time.Now().UTC().AddDate(0, 0, -40).Truncate(24 * time.Hour)
	farm := domain.Farm{ID: "farm-demo", Name: "Demo Farm", CropType: "maize", PlantingDate: &planted}
	if err := repos.UpsertFarm(ctx, farm); err != nil {
		log.Fatal().Err(err).Msg("seed farm")
	}

	devices := []domain.Device{
		{ID: "weather-1", FarmID: farm.ID, Name: "Field Station", Type: "weather_station",
			Capabilities: []string{string(domain.Temperature), string(domain.Humidity), string(domain.SoilMoisture)}},
		{ID: "collar-1", FarmID: farm.ID, Name: "Herd Collar", Type: "livestock_collar",
			Capabilities: []string{string(domain.LivestockTemperature)}},
		{ID: "camera-1", FarmID: farm.ID, Name: "Crop Camera", Type: "camera",
			Capabilities: []string{string(domain.CropImage)}},
	}
	for _, d := range devices {
		if err := repos.UpsertDevice(ctx, d); err != nil {
			log.Fatal().Err(err).Str("device_id", d.ID).Msg("seed device")
		}
	}

	docs := history(farm.ID, time.Now().UTC())
	if config.ReadingSource() == "dynamodb" {
		cfg, err := cloud.LoadConfig(ctx, config.AWSRegion())
		if err != nil {
			log.Fatal().Err(err).Msg("aws config")
		}
		dyn := cloud.NewDynamoDBClient(cfg, config.DynamoReadingsTable())
		if err := dyn.BatchPutDocuments(ctx, docs); err != nil {
			log.Fatal().Err(err).Msg("seed documents")
		}
	} else {
		for _, doc := range docs {
			if err := repos.InsertDocument(ctx, doc); err != nil {
				log.Fatal().Err(err).Msg("seed documents")
			}
		}
	}
	log.Info().Str("farm_id", farm.ID).Int("devices", len(devices)).Int("documents", len(docs)).Msg("demo data seeded")
}

// history is a day of hourly in-band station readings ending an hour ago.
func history(farmID string, now time.Time) []domain.SensorDocument {
	docs := make([]domain.SensorDocument, 0, 24)
	for h := 24; h >= 1; h-- {
		docs = append(docs, domain.SensorDocument{
			ID:           uuid.NewString(),
			FarmID:       farmID,
			DeviceID:     "weather-1",
			Time:         domain.TimestampOf(now.Add(-time.Duration(h) * time.Hour)),
			Temperature:  domain.Float(22 + float64(h%6)),
			Humidity:     domain.Float(50 + float64(h%10)),
			SoilMoisture: domain.Float(40 + float64(h%8)),
		})
	}
	return docs
}
