package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

func TestNormalize_TypedDocument(t *testing.T) {
	doc := domain.SensorDocument{
		ID: "doc-1", FarmID: "farm-1", DeviceID: "dev-1",
		Time: domain.Timestamp{Seconds: 1700000000},
		Type: "humidity", Value: domain.Float(62.5),
	}

	got := Normalize(doc)

	require.Len(t, got, 1)
	assert.Equal(t, domain.Humidity, got[0].Kind)
	assert.Equal(t, 62.5, *got[0].Value)
	assert.Equal(t, "%", got[0].Unit)
	assert.Equal(t, "doc-1", got[0].DocumentID)
	assert.Equal(t, "dev-1", got[0].DeviceID)
}

func TestNormalize_TypedKeepsExplicitUnit(t *testing.T) {
	doc := domain.SensorDocument{ID: "doc-1", Type: "temperature", Value: domain.Float(77), Unit: "°F"}

	got := Normalize(doc)

	require.Len(t, got, 1)
	assert.Equal(t, "°F", got[0].Unit)
}

func TestNormalize_FlatDocument(t *testing.T) {
	doc := domain.SensorDocument{
		ID: "doc-2", DeviceID: "dev-1",
		Temperature:  domain.Float(24),
		Humidity:     domain.Float(65),
		SoilMoisture: domain.Float(41),
	}

	got := Normalize(doc)

	require.Len(t, got, 3)
	kinds := map[domain.ParameterKind]float64{}
	for _, r := range got {
		kinds[r.Kind] = *r.Value
	}
	assert.Equal(t, map[domain.ParameterKind]float64{
		domain.Temperature:  24,
		domain.Humidity:     65,
		domain.SoilMoisture: 41,
	}, kinds)
}

func TestNormalize_CropImage(t *testing.T) {
	typed := domain.SensorDocument{ID: "a", Type: "crop_image", ImageURL: "https://img/1.jpg"}
	flat := domain.SensorDocument{ID: "b", ImageURL: "https://img/2.jpg", Humidity: domain.Float(50)}

	gotTyped := Normalize(typed)
	gotFlat := Normalize(flat)

	require.Len(t, gotTyped, 1)
	assert.Equal(t, domain.CropImage, gotTyped[0].Kind)
	assert.Nil(t, gotTyped[0].Value)
	assert.Equal(t, "https://img/1.jpg", gotTyped[0].ImageURL)
	require.Len(t, gotFlat, 2)
	assert.Equal(t, domain.CropImage, gotFlat[1].Kind)
}

func TestNormalize_SkipsEmptyAndUnknown(t *testing.T) {
	assert.Empty(t, Normalize(domain.SensorDocument{ID: "x", Type: "humidity"}))
	assert.Empty(t, Normalize(domain.SensorDocument{ID: "y", Type: "wind_speed", Value: domain.Float(3)}))
	assert.Empty(t, Normalize(domain.SensorDocument{ID: "z", Type: "crop_image"}))
}

func TestNormalize_MixedShapesCompeteWithinKind(t *testing.T) {
	docs := []domain.SensorDocument{
		{ID: "old", DeviceID: "dev-1", Time: domain.Timestamp{Seconds: 100}, Humidity: domain.Float(50), SoilMoisture: domain.Float(35)},
		{ID: "new", DeviceID: "dev-1", Time: domain.Timestamp{Seconds: 200}, Type: "humidity", Value: domain.Float(72)},
	}

	latest := Latest(NormalizeAll(docs))

	assert.Equal(t, 72.0, *latest[domain.Humidity].Value)
	assert.Equal(t, 35.0, *latest[domain.SoilMoisture].Value)
}
