package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Repos) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, New(sqlx.NewDb(db, "sqlmock"))
}

func TestGetFarm(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	planted := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, name, crop_type, planting_date FROM farms`).
		WithArgs("farm-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "crop_type", "planting_date"}).
			AddRow("farm-1", "Green Acres", "maize", planted))

	f, err := repo.GetFarm(context.Background(), "farm-1")

	require.NoError(t, err)
	assert.Equal(t, "Green Acres", f.Name)
	assert.Equal(t, "maize", f.CropType)
	require.NotNil(t, f.PlantingDate)
	assert.True(t, planted.Equal(*f.PlantingDate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFarm_NotFound(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, name, crop_type, planting_date FROM farms`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "crop_type", "planting_date"}))

	_, err := repo.GetFarm(context.Background(), "nope")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDevices(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, farm_id, name, device_type, capabilities FROM devices WHERE farm_id`).
		WithArgs("farm-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "farm_id", "name", "device_type", "capabilities"}).
			AddRow("dev-1", "farm-1", "North Probe", "soil_sensor", "soil_moisture, soil_temperature").
			AddRow("dev-2", "farm-1", "Barn Collar", "livestock_tag", ""))

	devices, err := repo.ListDevices(context.Background(), "farm-1")

	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, []string{"soil_moisture", "soil_temperature"}, devices[0].Capabilities)
	assert.Equal(t, "soil_sensor", devices[0].Type)
	assert.Nil(t, devices[1].Capabilities)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDevice_NotFound(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, farm_id, name, device_type, capabilities FROM devices WHERE id`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetDevice(context.Background(), "ghost")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadingsForFarm(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	since := time.Unix(1700000000, 0)
	cols := []string{"id", "farm_id", "device_id", "ts_seconds", "ts_nanos", "type", "value", "unit",
		"temperature", "humidity", "soil_moisture", "soil_temperature", "livestock_temperature", "image_url"}
	mock.ExpectQuery(`SELECT (.+) FROM sensor_documents WHERE farm_id = \$1 AND ts_seconds >= \$2`).
		WithArgs("farm-1", since.Unix()).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("d1", "farm-1", "dev-1", int64(1700000100), int32(5), "humidity", 61.5, "%", nil, nil, nil, nil, nil, "").
			AddRow("d2", "farm-1", "dev-1", int64(1700000200), int32(0), "", nil, "", 21.0, 64.0, 38.0, nil, nil, ""))

	docs, err := repo.ReadingsForFarm(context.Background(), "farm-1", since)

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, domain.Timestamp{Seconds: 1700000100, Nanoseconds: 5}, docs[0].Time)
	require.NotNil(t, docs[0].Value)
	assert.Equal(t, 61.5, *docs[0].Value)
	assert.Nil(t, docs[1].Value)
	require.NotNil(t, docs[1].SoilMoisture)
	assert.Equal(t, 38.0, *docs[1].SoilMoisture)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertDocument(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	doc := domain.SensorDocument{
		ID: "d1", FarmID: "farm-1", DeviceID: "dev-1",
		Time: domain.Timestamp{Seconds: 1700000000, Nanoseconds: 42},
		Type: "soil_moisture", Value: domain.Float(33), Unit: "%",
	}
	mock.ExpectExec(`INSERT INTO sensor_documents`).
		WithArgs("d1", "farm-1", "dev-1", int64(1700000000), int32(42), "soil_moisture", doc.Value, "%",
			nil, nil, nil, nil, nil, "").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.InsertDocument(context.Background(), doc))
	assert.NoError(t, mock.ExpectationsWereMet())
}
