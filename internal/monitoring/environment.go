package monitoring

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

// AnomalyDeviations is how many population standard deviations from the mean
// a value must be to count as an anomaly.
const AnomalyDeviations = 2.0

// ParameterAnalysis is the averaged view of one parameter over a window.
type ParameterAnalysis struct {
	Parameter  domain.ParameterKind   `json:"parameter"`
	Status     domain.ParameterStatus `json:"status"`
	Message    string                 `json:"message"`
	Suggestion string                 `json:"suggestion"`
	Action     string                 `json:"action,omitempty"`
	Value      float64                `json:"value"`
	Unit       string                 `json:"unit"`
	Threshold  domain.Band            `json:"threshold"`
	Samples    int                    `json:"samples"`
	Anomalies  []float64              `json:"anomalies,omitempty"`
}

// EnvironmentReport is the windowed environmental analysis of a farm.
type EnvironmentReport struct {
	FarmID               string             `json:"farm_id"`
	GeneratedAt          time.Time          `json:"generated_at"`
	Humidity             *ParameterAnalysis `json:"humidity,omitempty"`
	SoilMoisture         *ParameterAnalysis `json:"soil_moisture,omitempty"`
	LivestockTemperature *ParameterAnalysis `json:"livestock_temperature,omitempty"`
	CropHealth           *domain.CropHealth `json:"crop_health,omitempty"`
}

// AnalyzeEnvironment averages humidity and soil moisture over every reading
// supplied and checks the latest livestock temperature.
func (e *Engine) AnalyzeEnvironment(farmID string, readings []domain.Reading) EnvironmentReport {
	th := e.thresholds.Snapshot()
	rep := EnvironmentReport{FarmID: farmID, GeneratedAt: e.now()}

	byKind := map[domain.ParameterKind][]domain.Reading{}
	for _, r := range readings {
		if _, ok := r.Measured(); ok {
			byKind[r.Kind] = append(byKind[r.Kind], r)
		}
	}

	if rs := byKind[domain.Humidity]; len(rs) > 0 {
		a := analyzeHumidity(rs, th.Humidity)
		rep.Humidity = &a
	}
	if rs := byKind[domain.SoilMoisture]; len(rs) > 0 {
		a := analyzeSoilMoisture(rs, th.SoilMoisture)
		rep.SoilMoisture = &a
	}
	if r, ok := Latest(byKind[domain.LivestockTemperature])[domain.LivestockTemperature]; ok {
		a := analyzeLivestock(r, th.LivestockTemperature)
		rep.LivestockTemperature = &a
	}
	return rep
}

// averaged returns the analysis skeleton, the raw values and their unrounded
// mean. Band checks use the mean; Value is rounded for display.
func averaged(kind domain.ParameterKind, rs []domain.Reading, band domain.Band) (ParameterAnalysis, []float64, float64) {
	values := make([]float64, 0, len(rs))
	var sum float64
	for _, r := range rs {
		v, _ := r.Measured()
		values = append(values, v)
		sum += v
	}
	mean := sum / float64(len(values))
	unit := rs[0].Unit
	if unit == "" {
		unit = kind.DefaultUnit()
	}
	return ParameterAnalysis{
		Parameter: kind,
		Status:    domain.StatusNormal,
		Value:     round2(mean),
		Unit:      unit,
		Threshold: band,
		Samples:   len(values),
	}, values, mean
}

func analyzeHumidity(rs []domain.Reading, band domain.Band) ParameterAnalysis {
	a, values, mean := averaged(domain.Humidity, rs, band)
	shown := formatValue(a.Value, a.Unit)
	switch sideOf(mean, band) {
	case belowMin:
		a.Status = domain.StatusWarning
		a.Message = fmt.Sprintf("Humidity is too low (%s)! This can stress your crops.", shown)
		a.Suggestion = "Consider increasing irrigation or using a humidifier in enclosed spaces."
	case aboveMax:
		a.Status = domain.StatusWarning
		a.Message = fmt.Sprintf("Humidity is too high (%s)! This can lead to fungal diseases.", shown)
		a.Suggestion = "Ensure proper ventilation in your crop area."
	default:
		a.Message = fmt.Sprintf("Humidity is at an optimal level (%s).", shown)
		a.Suggestion = "Continue with your current management practices."
	}
	markAnomalies(&a, values, "humidity")
	return a
}

func analyzeSoilMoisture(rs []domain.Reading, band domain.Band) ParameterAnalysis {
	a, values, mean := averaged(domain.SoilMoisture, rs, band)
	shown := formatValue(a.Value, a.Unit)
	switch sideOf(mean, band) {
	case belowMin:
		a.Status = domain.StatusWarning
		a.Message = fmt.Sprintf("Soil moisture is too low (%s)! Your plants might be thirsty.", shown)
		a.Suggestion = "Increase irrigation to provide adequate water for your crops."
		a.Action = "Turning on the irrigation system."
	case aboveMax:
		a.Status = domain.StatusWarning
		a.Message = fmt.Sprintf("Soil moisture is too high (%s)! This can lead to root rot.", shown)
		a.Suggestion = "Reduce irrigation and ensure proper drainage."
		a.Action = "Pausing scheduled irrigation until soil dries."
	default:
		a.Message = fmt.Sprintf("Soil moisture is at an optimal level (%s).", shown)
		a.Suggestion = "Continue with your current irrigation schedule."
		a.Action = "The soil has enough moisture. No need to water now."
	}
	markAnomalies(&a, values, "soil moisture")
	return a
}

func analyzeLivestock(r domain.Reading, band domain.Band) ParameterAnalysis {
	v, _ := r.Measured()
	a := ParameterAnalysis{
		Parameter: domain.LivestockTemperature,
		Status:    domain.StatusNormal,
		Value:     v,
		Unit:      r.Unit,
		Threshold: band,
		Samples:   1,
	}
	shown := formatValue(v, r.Unit)
	switch sideOf(v, band) {
	case belowMin:
		a.Status = domain.StatusCritical
		a.Message = fmt.Sprintf("Livestock temperature is too low (%s)! This could indicate health issues.", shown)
		a.Suggestion = "Provide warmth and shelter immediately."
		a.Action = "Activating heating systems in livestock areas."
	case aboveMax:
		a.Status = domain.StatusCritical
		a.Message = fmt.Sprintf("Livestock temperature is too high (%s)! This could indicate fever or heat stress.", shown)
		a.Suggestion = "Provide shade, water, and contact a veterinarian if needed."
		a.Action = "Activating cooling systems and increasing water supply."
	default:
		a.Message = fmt.Sprintf("Livestock temperature is normal (%s).", shown)
		a.Suggestion = "Continue regular monitoring."
		a.Action = "The temperature is fine for your livestock. No action needed."
	}
	return a
}

func markAnomalies(a *ParameterAnalysis, values []float64, label string) {
	anomalies := DetectAnomalies(values, AnomalyDeviations)
	if len(anomalies) == 0 {
		return
	}
	a.Anomalies = anomalies
	a.Status = domain.StatusWarning
	a.Message += fmt.Sprintf(" Anomalies detected in %s readings.", label)
	a.Suggestion += " Check sensors for calibration issues."
}

// DetectAnomalies returns the values lying more than k population standard
// deviations from the mean. Fewer than three values never produce anomalies.
func DetectAnomalies(values []float64, k float64) []float64 {
	if len(values) < 3 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	sd := math.Sqrt(sq / float64(len(values)))

	var out []float64
	for _, v := range values {
		if math.Abs(v-mean) > k*sd {
			out = append(out, v)
		}
	}
	return out
}

// FormatEnvironmentReport renders rep as plain text for notifications.
func FormatEnvironmentReport(rep EnvironmentReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Farm Monitoring Report for %s\n", rep.FarmID)
	fmt.Fprintf(&b, "Generated %s\n\n", rep.GeneratedAt.UTC().Format(time.RFC1123))

	section := func(title string, a *ParameterAnalysis) {
		if a == nil {
			return
		}
		fmt.Fprintf(&b, "%s: %s\n", title, formatValue(a.Value, a.Unit))
		switch a.Status {
		case domain.StatusCritical:
			fmt.Fprintf(&b, "CRITICAL: %s\n", a.Message)
		case domain.StatusWarning:
			fmt.Fprintf(&b, "Warning: %s\n", a.Message)
		default:
			fmt.Fprintf(&b, "OK: %s\n", a.Message)
		}
		if a.Suggestion != "" {
			fmt.Fprintf(&b, "Suggestion: %s\n", a.Suggestion)
		}
		if a.Action != "" {
			fmt.Fprintf(&b, "Action: %s\n", a.Action)
		}
		b.WriteString("\n")
	}
	section("Average Humidity", rep.Humidity)
	section("Average Soil Moisture", rep.SoilMoisture)
	section("Current Livestock Temperature", rep.LivestockTemperature)

	if h := rep.CropHealth; h != nil {
		fmt.Fprintf(&b, "Crop Health Analysis for image: %s\n", h.ImageURL)
		switch h.Status {
		case domain.StatusCritical:
			fmt.Fprintf(&b, "CRITICAL: %s\n", h.Message)
		case domain.StatusWarning:
			fmt.Fprintf(&b, "Warning: %s\n", h.Message)
		default:
			fmt.Fprintf(&b, "OK: %s\n", h.Message)
		}
		if h.Suggestion != "" {
			fmt.Fprintf(&b, "Suggestion: %s\n", h.Suggestion)
		}
		if len(h.DetectedIssues) > 0 {
			issues := append([]string(nil), h.DetectedIssues...)
			sort.Strings(issues)
			fmt.Fprintf(&b, "Detected issues: %s\n", strings.Join(issues, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
