package monitoring

import (
	"sort"
	"time"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

// EvaluateFarm runs the device analysis for every device key in
// readingsByDevice and rolls the results up into one farm verdict. All
// devices are evaluated against the same threshold snapshot and clock.
func (e *Engine) EvaluateFarm(farm domain.Farm, readingsByDevice map[string][]domain.Reading, dir Directory) domain.FarmVerdict {
	th := e.thresholds.Snapshot()
	now := e.now()

	ids := make([]string, 0, len(readingsByDevice))
	for id := range readingsByDevice {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := domain.FarmVerdict{
		FarmID:          farm.ID,
		Alerts:          []domain.Alert{},
		Recommendations: []domain.Recommendation{},
		Devices:         make([]domain.DeviceVerdict, 0, len(ids)),
		LastUpdated:     domain.TimestampOf(now),
	}

	recs := newRecommendationSet()
	var critical, warning int
	var all []domain.Reading
	for _, id := range ids {
		readings := readingsByDevice[id]
		all = append(all, readings...)

		v, t := evaluateDevice(id, readings, dir, th, now)
		out.Devices = append(out.Devices, v)
		out.Alerts = append(out.Alerts, v.Alerts...)
		critical += t.critical
		warning += t.warning
		for _, r := range v.Recommendations {
			recs.add(r)
		}
	}

	// staleness for the rollup is judged on the farm-wide latest readings
	stale := len(staleKinds(Latest(all), now)) > 0

	for _, r := range CropRecommendations(farm, now) {
		recs.add(r)
	}
	out.Recommendations = recs.items

	out.Status = rollup(critical, warning, stale)
	out.Summary = farmSummary(out.Status, deviceTally{critical: critical, warning: warning, stale: stale})
	return out
}

// recommendationSet keeps first-seen order and drops repeats of the same
// (parameter, message).
type recommendationSet struct {
	seen  map[[2]string]struct{}
	items []domain.Recommendation
}

func newRecommendationSet() *recommendationSet {
	return &recommendationSet{seen: map[[2]string]struct{}{}, items: []domain.Recommendation{}}
}

func (s *recommendationSet) add(r domain.Recommendation) {
	key := [2]string{r.Parameter, r.Message}
	if _, ok := s.seen[key]; ok {
		return
	}
	s.seen[key] = struct{}{}
	s.items = append(s.items, r)
}

// DaysSince counts whole days from t to now, flooring toward minus infinity.
func DaysSince(t, now time.Time) int {
	d := now.Sub(t)
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}
