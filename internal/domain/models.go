package domain

import "time"

// ParameterKind is the sensor dimension a reading measures.
type ParameterKind string

const (
	Temperature          ParameterKind = "temperature"
	Humidity             ParameterKind = "humidity"
	SoilMoisture         ParameterKind = "soil_moisture"
	SoilTemperature      ParameterKind = "soil_temperature"
	LivestockTemperature ParameterKind = "livestock_temperature"
	CropImage            ParameterKind = "crop_image"
)

// Kinds lists every parameter kind in a fixed order.
var Kinds = []ParameterKind{Temperature, Humidity, SoilMoisture, SoilTemperature, LivestockTemperature, CropImage}

// Valid reports whether k is one of the known parameter kinds.
func (k ParameterKind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// DefaultUnit is the unit assumed when a document does not carry one.
func (k ParameterKind) DefaultUnit() string {
	switch k {
	case Humidity, SoilMoisture:
		return "%"
	case Temperature, SoilTemperature, LivestockTemperature:
		return "°C"
	}
	return ""
}

type ParameterStatus string

const (
	StatusNormal   ParameterStatus = "normal"
	StatusWarning  ParameterStatus = "warning"
	StatusCritical ParameterStatus = "critical"
)

type AlertLevel string

const (
	LevelInfo     AlertLevel = "info"
	LevelWarning  AlertLevel = "warning"
	LevelCritical AlertLevel = "critical"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// HealthStatus is the rolled-up state of a device or a farm.
type HealthStatus string

const (
	Healthy        HealthStatus = "healthy"
	NeedsAttention HealthStatus = "needs_attention"
	Critical       HealthStatus = "critical"
)

// Farm is the metadata the aggregator needs about a farm.
type Farm struct {
	ID           string     `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	CropType     string     `db:"crop_type" json:"crop_type"`
	PlantingDate *time.Time `db:"planting_date" json:"planting_date,omitempty"`
}

// Device is a directory entry for a registered sensor device.
type Device struct {
	ID           string   `db:"id" json:"id"`
	FarmID       string   `db:"farm_id" json:"farm_id"`
	Name         string   `db:"name" json:"name"`
	Type         string   `db:"device_type" json:"device_type"`
	Capabilities []string `db:"-" json:"capabilities,omitempty"`
}

// Band is the acceptable [Min, Max] range for a parameter.
type Band struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Alert is generated by an evaluation and never mutated afterwards.
type Alert struct {
	Level     AlertLevel    `json:"level"`
	Parameter ParameterKind `json:"parameter"`
	Message   string        `json:"message"`
	Value     float64       `json:"value"`
	Threshold Band          `json:"threshold"`
	Timestamp Timestamp     `json:"timestamp"`
}

// Recommendation parameters are usually a ParameterKind, but farm-level advice
// uses "data_collection", "crop_management" and "growth_stage".
type Recommendation struct {
	Parameter string   `json:"parameter"`
	Message   string   `json:"message"`
	Priority  Priority `json:"priority"`
}

// ParameterSnapshot is the evaluated latest value of one parameter.
type ParameterSnapshot struct {
	Value  float64         `json:"value"`
	Unit   string          `json:"unit"`
	Status ParameterStatus `json:"status"`
}

type DeviceVerdict struct {
	DeviceID             string                              `json:"device_id"`
	DeviceName           string                              `json:"device_name"`
	DeviceType           string                              `json:"device_type"`
	Status               HealthStatus                        `json:"status"`
	Alerts               []Alert                             `json:"alerts"`
	Recommendations      []Recommendation                    `json:"recommendations"`
	Summary              string                              `json:"summary"`
	LastReadingTimestamp *Timestamp                          `json:"last_reading_timestamp"`
	Readings             map[ParameterKind]ParameterSnapshot `json:"readings"`
	LatestImage          *ImageRequest                       `json:"latest_image,omitempty"`
	CropHealth           *CropHealth                         `json:"crop_health,omitempty"`
}

type FarmVerdict struct {
	FarmID          string           `json:"farm_id"`
	Status          HealthStatus     `json:"status"`
	Summary         string           `json:"summary"`
	Alerts          []Alert          `json:"alerts"`
	Recommendations []Recommendation `json:"recommendations"`
	Devices         []DeviceVerdict  `json:"devices_monitoring"`
	LastUpdated     Timestamp        `json:"last_updated"`
}

// ImageRequest identifies an uploaded crop photo to be analyzed.
type ImageRequest struct {
	ImageURL  string    `json:"image_url"`
	CropType  string    `json:"crop_type,omitempty"`
	FarmID    string    `json:"farm_id,omitempty"`
	DeviceID  string    `json:"device_id,omitempty"`
	Timestamp Timestamp `json:"timestamp"`
}

// CropHealth is the outcome of the image analysis collaborator.
type CropHealth struct {
	Status          ParameterStatus `json:"status"`
	Message         string          `json:"message"`
	Suggestion      string          `json:"suggestion"`
	ImageURL        string          `json:"image_url"`
	DetectedIssues  []string        `json:"detected_issues,omitempty"`
	ConfidenceScore float64         `json:"confidence_score,omitempty"`
	AnalyzedAt      time.Time       `json:"analyzed_at"`
}
