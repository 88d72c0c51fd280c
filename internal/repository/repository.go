package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

var ErrNotFound = errors.New("not found")

type Repos struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Repos { return &Repos{db: db} }

func (r *Repos) GetFarm(ctx context.Context, id string) (domain.Farm, error) {
	var f domain.Farm
	err := r.db.GetContext(ctx, &f, `SELECT id, name, crop_type, planting_date FROM farms WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return f, fmt.Errorf("farm %s: %w", id, ErrNotFound)
	}
	return f, err
}

func (r *Repos) UpsertFarm(ctx context.Context, f domain.Farm) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO farms(id, name, crop_type, planting_date) VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, crop_type = EXCLUDED.crop_type, planting_date = EXCLUDED.planting_date`,
		f.ID, f.Name, f.CropType, f.PlantingDate)
	return err
}

type deviceRow struct {
	domain.Device
	Capabilities string `db:"capabilities"`
}

func (d deviceRow) toDomain() domain.Device {
	out := d.Device
	out.Capabilities = nil
	for _, c := range strings.Split(d.Capabilities, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out.Capabilities = append(out.Capabilities, c)
		}
	}
	return out
}

func (r *Repos) ListDevices(ctx context.Context, farmID string) ([]domain.Device, error) {
	var rows []deviceRow
	err := r.db.SelectContext(ctx, &rows, `SELECT id, farm_id, name, device_type, capabilities FROM devices WHERE farm_id = $1 ORDER BY id`, farmID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Device, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *Repos) GetDevice(ctx context.Context, id string) (domain.Device, error) {
	var row deviceRow
	err := r.db.GetContext(ctx, &row, `SELECT id, farm_id, name, device_type, capabilities FROM devices WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Device{}, fmt.Errorf("device %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Device{}, err
	}
	return row.toDomain(), nil
}

func (r *Repos) UpsertDevice(ctx context.Context, d domain.Device) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO devices(id, farm_id, name, device_type, capabilities) VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET farm_id = EXCLUDED.farm_id, name = EXCLUDED.name, device_type = EXCLUDED.device_type, capabilities = EXCLUDED.capabilities`,
		d.ID, d.FarmID, d.Name, d.Type, strings.Join(d.Capabilities, ","))
	return err
}

type documentRow struct {
	domain.SensorDocument
	TsSeconds int64 `db:"ts_seconds"`
	TsNanos   int32 `db:"ts_nanos"`
}

func (d documentRow) toDomain() domain.SensorDocument {
	out := d.SensorDocument
	out.Time = domain.Timestamp{Seconds: d.TsSeconds, Nanoseconds: d.TsNanos}
	return out
}

const documentColumns = `id, farm_id, device_id, ts_seconds, ts_nanos, type, value, unit,
	temperature, humidity, soil_moisture, soil_temperature, livestock_temperature, image_url`

func (r *Repos) InsertDocument(ctx context.Context, doc domain.SensorDocument) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO sensor_documents(`+documentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		doc.ID, doc.FarmID, doc.DeviceID, doc.Time.Seconds, doc.Time.Nanoseconds, doc.Type, doc.Value, doc.Unit,
		doc.Temperature, doc.Humidity, doc.SoilMoisture, doc.SoilTemperature, doc.LivestockTemperature, doc.ImageURL)
	return err
}

// ReadingsForFarm returns every document of the farm timestamped at or after since.
func (r *Repos) ReadingsForFarm(ctx context.Context, farmID string, since time.Time) ([]domain.SensorDocument, error) {
	return r.selectDocuments(ctx, `SELECT `+documentColumns+` FROM sensor_documents WHERE farm_id = $1 AND ts_seconds >= $2`, farmID, since.Unix())
}

// ReadingsForDevice returns every document of the device timestamped at or after since.
func (r *Repos) ReadingsForDevice(ctx context.Context, deviceID string, since time.Time) ([]domain.SensorDocument, error) {
	return r.selectDocuments(ctx, `SELECT `+documentColumns+` FROM sensor_documents WHERE device_id = $1 AND ts_seconds >= $2`, deviceID, since.Unix())
}

func (r *Repos) selectDocuments(ctx context.Context, query string, args ...any) ([]domain.SensorDocument, error) {
	var rows []documentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]domain.SensorDocument, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
