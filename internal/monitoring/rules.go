package monitoring

import (
	"strconv"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

// outcome is what a breach on one side of a band produces.
type outcome struct {
	level    domain.AlertLevel
	priority domain.Priority
	alert    string // %s is replaced by the formatted value
	advice   string
}

type rule struct {
	kind  domain.ParameterKind
	unit  string
	below outcome
	above outcome
}

// rules is the fixed alert table. Kinds not listed never alert.
var rules = []rule{
	{
		kind: domain.Humidity,
		unit: "%",
		below: outcome{
			level:    domain.LevelWarning,
			priority: domain.PriorityMedium,
			alert:    "Humidity is too low (%s). Consider irrigation or humidity control.",
			advice:   "Increase irrigation frequency or use humidity control systems.",
		},
		above: outcome{
			level:    domain.LevelWarning,
			priority: domain.PriorityMedium,
			alert:    "Humidity is too high (%s). Consider improving ventilation.",
			advice:   "Improve ventilation or reduce irrigation frequency.",
		},
	},
	{
		kind: domain.SoilMoisture,
		unit: "%",
		below: outcome{
			level:    domain.LevelCritical,
			priority: domain.PriorityHigh,
			alert:    "Soil moisture is critically low (%s). Immediate irrigation needed.",
			advice:   "Irrigate immediately and consider increasing regular irrigation schedule.",
		},
		above: outcome{
			level:    domain.LevelWarning,
			priority: domain.PriorityMedium,
			alert:    "Soil moisture is too high (%s). Risk of root rot.",
			advice:   "Reduce irrigation and ensure proper drainage.",
		},
	},
	{
		kind: domain.LivestockTemperature,
		unit: "°C",
		below: outcome{
			level:    domain.LevelCritical,
			priority: domain.PriorityHigh,
			alert:    "Livestock temperature is too low (%s). Immediate attention required.",
			advice:   "Provide warmth and shelter. Consider veterinary consultation.",
		},
		above: outcome{
			level:    domain.LevelCritical,
			priority: domain.PriorityHigh,
			alert:    "Livestock temperature is too high (%s). Immediate cooling needed.",
			advice:   "Provide shade, water, and cooling. Consider veterinary consultation.",
		},
	},
}

func (r rule) outcomeFor(side breach) (outcome, bool) {
	switch side {
	case belowMin:
		return r.below, true
	case aboveMax:
		return r.above, true
	}
	return outcome{}, false
}

func formatValue(v float64, unit string) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + unit
}
