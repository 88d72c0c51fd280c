package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fermwise/farm-monitoring/internal/config"
	"github.com/fermwise/farm-monitoring/internal/domain"
)

const (
	farmID = "farm-demo"
	rounds = 100
)

// outOfBand is how often a value is pushed outside its band.
const outOfBand = 0.1

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	config.SetupLogging()

	opts := mqtt.NewClientOptions().AddBroker(config.MQTTBroker()).SetClientID("farm-simulator")
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	th := config.Thresholds()
	for i := 0; i < rounds; i++ {
		now := domain.TimestampOf(time.Now())

		// flat document from a combined weather/soil station
		publish(client, "weather-1", domain.SensorDocument{
			ID:           uuid.NewString(),
			Time:         now,
			Temperature:  domain.Float(round(18 + rand.Float64()*12)),
			Humidity:     domain.Float(sample(th.Humidity)),
			SoilMoisture: domain.Float(sample(th.SoilMoisture)),
		})

		// typed document from a livestock collar
		publish(client, "collar-1", domain.SensorDocument{
			ID:    uuid.NewString(),
			Time:  now,
			Type:  string(domain.LivestockTemperature),
			Value: domain.Float(sample(th.LivestockTemperature)),
			Unit:  "°C",
		})

		if i%20 == 0 {
			publish(client, "camera-1", domain.SensorDocument{
				ID:       uuid.NewString(),
				Time:     now,
				Type:     string(domain.CropImage),
				ImageURL: fmt.Sprintf("https://images.example.com/%s/%d.jpg", farmID, i),
			})
		}
		time.Sleep(500 * time.Millisecond)
	}
	log.Info().Msg("simulation done")
}

func publish(client mqtt.Client, deviceID string, doc domain.SensorDocument) {
	payload, err := json.Marshal(doc)
	if err != nil {
		log.Error().Err(err).Msg("marshal")
		return
	}
	topic := fmt.Sprintf("farms/%s/devices/%s/readings", farmID, deviceID)
	token := client.Publish(topic, 1, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("publish failed")
	}
}

// sample mostly stays inside band and occasionally lands well outside it.
func sample(band domain.Band) float64 {
	width := band.Max - band.Min
	if rand.Float64() < outOfBand {
		if rand.Intn(2) == 0 {
			return round(band.Min - width*(0.1+rand.Float64()*0.5))
		}
		return round(band.Max + width*(0.1+rand.Float64()*0.5))
	}
	return round(band.Min + rand.Float64()*width)
}

func round(v float64) float64 {
	return float64(int(v*10)) / 10
}
