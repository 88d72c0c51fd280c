package monitoring

import "github.com/fermwise/farm-monitoring/internal/domain"

const (
	criticalLowFactor  = 0.8
	criticalHighFactor = 1.2
)

// Evaluate classifies value against band. A missing value or a missing band
// is normal. Outside the band is a warning; below min*0.8 or above max*1.2
// (strictly) is critical.
func Evaluate(value *float64, band *domain.Band) domain.ParameterStatus {
	if value == nil || band == nil {
		return domain.StatusNormal
	}
	v := *value
	switch {
	case v < band.Min*criticalLowFactor || v > band.Max*criticalHighFactor:
		return domain.StatusCritical
	case v < band.Min || v > band.Max:
		return domain.StatusWarning
	}
	return domain.StatusNormal
}

// breach says which side of the band a value fell on.
type breach int

const (
	inBand breach = iota
	belowMin
	aboveMax
)

func sideOf(v float64, band domain.Band) breach {
	switch {
	case v < band.Min:
		return belowMin
	case v > band.Max:
		return aboveMax
	}
	return inBand
}
