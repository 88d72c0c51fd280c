package monitoring

import (
	"strings"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

// Latest folds readings into the most recent reading per kind. Readings
// without data for their kind are ignored.
func Latest(readings []domain.Reading) map[domain.ParameterKind]domain.Reading {
	out := make(map[domain.ParameterKind]domain.Reading)
	for _, r := range readings {
		if !r.HasData() {
			continue
		}
		cur, ok := out[r.Kind]
		if !ok || Newer(r, cur) {
			out[r.Kind] = r
		}
	}
	return out
}

// Newer reports whether a should replace b as the latest reading of a kind.
// Timestamps compare by (seconds, nanoseconds); exact ties go to the greater
// document ID, then the greater value, so the fold does not depend on input
// order.
func Newer(a, b domain.Reading) bool {
	if c := a.Time.Compare(b.Time); c != 0 {
		return c > 0
	}
	if c := strings.Compare(a.DocumentID, b.DocumentID); c != 0 {
		return c > 0
	}
	av, aok := a.Measured()
	bv, bok := b.Measured()
	switch {
	case aok && bok:
		if av != bv {
			return av > bv
		}
	case aok != bok:
		return aok
	}
	return strings.Compare(a.ImageURL, b.ImageURL) > 0
}

// LastTimestamp is the newest timestamp across the selected readings.
func LastTimestamp(latest map[domain.ParameterKind]domain.Reading) *domain.Timestamp {
	var last *domain.Timestamp
	for _, r := range latest {
		if last == nil || last.Before(r.Time) {
			ts := r.Time
			last = &ts
		}
	}
	return last
}
