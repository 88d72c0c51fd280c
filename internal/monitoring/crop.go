package monitoring

import (
	"strings"
	"time"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

type growthStage struct {
	untilDay int // exclusive; 0 means open ended
	message  string
	priority domain.Priority
}

type cropGuide struct {
	tip    string
	stages []growthStage
}

var maize = cropGuide{
	tip: "For optimal maize growth, maintain soil moisture between 40-60% during tasseling stage.",
	stages: []growthStage{
		{30, "Early growth stage: Focus on weed control and maintaining adequate soil moisture.", domain.PriorityMedium},
		{60, "Vegetative stage: Ensure adequate nitrogen availability for optimal leaf development.", domain.PriorityMedium},
		{90, "Reproductive stage: Critical period for water needs. Maintain consistent soil moisture.", domain.PriorityHigh},
		{0, "Maturation stage: Reduce irrigation to allow proper grain drying.", domain.PriorityMedium},
	},
}

var cropGuides = map[string]cropGuide{
	"maize": maize,
	"corn":  maize,
}

// CropRecommendations returns the agronomic tips for the farm's crop: a fixed
// tip plus, when the planting date is known, one tip for the current growth
// stage. Unknown crops get nothing.
func CropRecommendations(farm domain.Farm, now time.Time) []domain.Recommendation {
	guide, ok := cropGuides[strings.ToLower(strings.TrimSpace(farm.CropType))]
	if !ok {
		return nil
	}
	out := []domain.Recommendation{{
		Parameter: "crop_management",
		Message:   guide.tip,
		Priority:  domain.PriorityMedium,
	}}
	if farm.PlantingDate == nil || farm.PlantingDate.IsZero() {
		return out
	}
	days := DaysSince(*farm.PlantingDate, now)
	for _, s := range guide.stages {
		if s.untilDay == 0 || days < s.untilDay {
			out = append(out, domain.Recommendation{
				Parameter: "growth_stage",
				Message:   s.message,
				Priority:  s.priority,
			})
			break
		}
	}
	return out
}
