package monitoring

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

// ErrInvalidThresholds is wrapped by every *ValidationError.
var ErrInvalidThresholds = errors.New("invalid thresholds")

// Thresholds holds the enforced band for every parameter that has one.
type Thresholds struct {
	Humidity             domain.Band `json:"humidity"`
	SoilMoisture         domain.Band `json:"soil_moisture"`
	LivestockTemperature domain.Band `json:"livestock_temperature"`
}

// DefaultThresholds are used when nothing is configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Humidity:             domain.Band{Min: 40, Max: 70},
		SoilMoisture:         domain.Band{Min: 30, Max: 60},
		LivestockTemperature: domain.Band{Min: 37.5, Max: 39.5},
	}
}

// Band returns the band for kind. temperature, soil_temperature and
// crop_image have none.
func (t Thresholds) Band(kind domain.ParameterKind) (domain.Band, bool) {
	switch kind {
	case domain.Humidity:
		return t.Humidity, true
	case domain.SoilMoisture:
		return t.SoilMoisture, true
	case domain.LivestockTemperature:
		return t.LivestockTemperature, true
	}
	return domain.Band{}, false
}

// Validate checks every band of a complete threshold record.
func (t Thresholds) Validate() error {
	return ThresholdPatch{
		Humidity:             &t.Humidity,
		SoilMoisture:         &t.SoilMoisture,
		LivestockTemperature: &t.LivestockTemperature,
	}.Validate()
}

// ThresholdPatch replaces only the bands it carries.
type ThresholdPatch struct {
	Humidity             *domain.Band `json:"humidity,omitempty"`
	SoilMoisture         *domain.Band `json:"soil_moisture,omitempty"`
	LivestockTemperature *domain.Band `json:"livestock_temperature,omitempty"`
}

// FullPatch turns a complete record into a patch that replaces every band.
func FullPatch(t Thresholds) ThresholdPatch {
	return ThresholdPatch{Humidity: &t.Humidity, SoilMoisture: &t.SoilMoisture, LivestockTemperature: &t.LivestockTemperature}
}

func (p ThresholdPatch) Empty() bool {
	return p.Humidity == nil && p.SoilMoisture == nil && p.LivestockTemperature == nil
}

// Validate rejects any supplied band whose min is not below its max.
func (p ThresholdPatch) Validate() error {
	for _, b := range []struct {
		kind domain.ParameterKind
		band *domain.Band
	}{
		{domain.Humidity, p.Humidity},
		{domain.SoilMoisture, p.SoilMoisture},
		{domain.LivestockTemperature, p.LivestockTemperature},
	} {
		if b.band == nil {
			continue
		}
		if b.band.Min >= b.band.Max {
			return &ValidationError{Parameter: b.kind, Band: *b.band}
		}
	}
	return nil
}

// Apply returns t with the patched bands swapped in. It does not validate.
func (p ThresholdPatch) Apply(t Thresholds) Thresholds {
	if p.Humidity != nil {
		t.Humidity = *p.Humidity
	}
	if p.SoilMoisture != nil {
		t.SoilMoisture = *p.SoilMoisture
	}
	if p.LivestockTemperature != nil {
		t.LivestockTemperature = *p.LivestockTemperature
	}
	return t
}

// ValidationError names the band that failed validation.
type ValidationError struct {
	Parameter domain.ParameterKind
	Band      domain.Band
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s thresholds: min (%v) must be less than max (%v)", e.Parameter, e.Band.Min, e.Band.Max)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidThresholds }

// ThresholdStore is the process-wide threshold record. Readers get an
// immutable snapshot; updates swap the whole record.
type ThresholdStore struct {
	current atomic.Pointer[Thresholds]
}

// NewThresholdStore validates initial and fails if any band is inverted.
func NewThresholdStore(initial Thresholds) (*ThresholdStore, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	s := &ThresholdStore{}
	s.current.Store(&initial)
	return s, nil
}

// Snapshot returns the thresholds in effect right now.
func (s *ThresholdStore) Snapshot() Thresholds {
	return *s.current.Load()
}

// Replace validates patch and swaps in the merged record. On a validation
// error the previous record stays in place.
func (s *ThresholdStore) Replace(patch ThresholdPatch) (Thresholds, error) {
	if err := patch.Validate(); err != nil {
		return s.Snapshot(), err
	}
	for {
		old := s.current.Load()
		next := patch.Apply(*old)
		if s.current.CompareAndSwap(old, &next) {
			return next, nil
		}
	}
}
