package domain

import "time"

// Timestamp has the seconds + nanoseconds precision devices report with.
type Timestamp struct {
	Seconds     int64 `json:"seconds" dynamodbav:"seconds"`
	Nanoseconds int32 `json:"nanoseconds" dynamodbav:"nanoseconds"`
}

// TimestampOf converts t into a Timestamp.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp{Seconds: t.Unix(), Nanoseconds: int32(t.Nanosecond())}
}

// Time returns ts as a UTC time.
func (ts Timestamp) Time() time.Time {
	return time.Unix(ts.Seconds, int64(ts.Nanoseconds)).UTC()
}

func (ts Timestamp) IsZero() bool {
	return ts.Seconds == 0 && ts.Nanoseconds == 0
}

// Compare orders timestamps by seconds, then nanoseconds. It returns -1, 0 or +1.
func (ts Timestamp) Compare(other Timestamp) int {
	switch {
	case ts.Seconds < other.Seconds:
		return -1
	case ts.Seconds > other.Seconds:
		return 1
	case ts.Nanoseconds < other.Nanoseconds:
		return -1
	case ts.Nanoseconds > other.Nanoseconds:
		return 1
	}
	return 0
}

func (ts Timestamp) Before(other Timestamp) bool { return ts.Compare(other) < 0 }

// SensorDocument is a stored reading document in either of its two layouts:
// the typed layout sets Type and Value, the flat layout sets one field per
// measured parameter. Both may appear on the same document.
type SensorDocument struct {
	ID       string    `json:"id" db:"id" dynamodbav:"id"`
	FarmID   string    `json:"farm_id" db:"farm_id" dynamodbav:"farmId"`
	DeviceID string    `json:"device_id" db:"device_id" dynamodbav:"deviceId"`
	Time     Timestamp `json:"timestamp" db:"-" dynamodbav:"timestamp"`

	Type  string   `json:"type,omitempty" db:"type" dynamodbav:"type,omitempty"`
	Value *float64 `json:"value,omitempty" db:"value" dynamodbav:"value,omitempty"`
	Unit  string   `json:"unit,omitempty" db:"unit" dynamodbav:"unit,omitempty"`

	Temperature          *float64 `json:"temperature,omitempty" db:"temperature" dynamodbav:"temperature,omitempty"`
	Humidity             *float64 `json:"humidity,omitempty" db:"humidity" dynamodbav:"humidity,omitempty"`
	SoilMoisture         *float64 `json:"soil_moisture,omitempty" db:"soil_moisture" dynamodbav:"soilMoisture,omitempty"`
	SoilTemperature      *float64 `json:"soil_temperature,omitempty" db:"soil_temperature" dynamodbav:"soilTemperature,omitempty"`
	LivestockTemperature *float64 `json:"livestock_temperature,omitempty" db:"livestock_temperature" dynamodbav:"livestockTemperature,omitempty"`
	ImageURL             string   `json:"image_url,omitempty" db:"image_url" dynamodbav:"imageUrl,omitempty"`
}

// Reading is the canonical single-parameter measurement the engine evaluates.
// Value is nil for crop_image readings.
type Reading struct {
	DocumentID string
	DeviceID   string
	FarmID     string
	Kind       ParameterKind
	Value      *float64
	Unit       string
	Time       Timestamp
	ImageURL   string
}

// Measured returns the numeric value and whether one is present.
func (r Reading) Measured() (float64, bool) {
	if r.Value == nil {
		return 0, false
	}
	return *r.Value, true
}

// HasData reports whether the reading carries anything for its kind.
func (r Reading) HasData() bool {
	if r.Kind == CropImage {
		return r.ImageURL != ""
	}
	return r.Value != nil
}

// Float is a small helper for building optional values.
func Float(v float64) *float64 { return &v }
