package monitoring

import (
	"strings"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

// Normalize maps a stored document of either layout onto canonical readings.
// Fields that carry no value are skipped. An unknown type contributes nothing.
func Normalize(doc domain.SensorDocument) []domain.Reading {
	var out []domain.Reading
	base := domain.Reading{
		DocumentID: doc.ID,
		DeviceID:   doc.DeviceID,
		FarmID:     doc.FarmID,
		Time:       doc.Time,
	}

	if doc.Type != "" {
		kind := domain.ParameterKind(strings.ToLower(strings.TrimSpace(doc.Type)))
		if kind.Valid() {
			r := base
			r.Kind = kind
			r.Value = doc.Value
			r.Unit = unitOr(doc.Unit, kind)
			if kind == domain.CropImage {
				r.Value = nil
				r.ImageURL = doc.ImageURL
			}
			if r.HasData() {
				out = append(out, r)
			}
		}
	}

	for _, f := range []struct {
		kind  domain.ParameterKind
		value *float64
	}{
		{domain.Temperature, doc.Temperature},
		{domain.Humidity, doc.Humidity},
		{domain.SoilMoisture, doc.SoilMoisture},
		{domain.SoilTemperature, doc.SoilTemperature},
		{domain.LivestockTemperature, doc.LivestockTemperature},
	} {
		if f.value == nil {
			continue
		}
		r := base
		r.Kind = f.kind
		r.Value = f.value
		r.Unit = f.kind.DefaultUnit()
		out = append(out, r)
	}

	// a typed crop_image document already consumed the URL
	if doc.ImageURL != "" && !strings.EqualFold(strings.TrimSpace(doc.Type), string(domain.CropImage)) {
		r := base
		r.Kind = domain.CropImage
		r.ImageURL = doc.ImageURL
		out = append(out, r)
	}
	return out
}

// NormalizeAll flattens a batch of documents.
func NormalizeAll(docs []domain.SensorDocument) []domain.Reading {
	out := make([]domain.Reading, 0, len(docs))
	for _, d := range docs {
		out = append(out, Normalize(d)...)
	}
	return out
}

func unitOr(unit string, kind domain.ParameterKind) string {
	if unit != "" {
		return unit
	}
	return kind.DefaultUnit()
}
