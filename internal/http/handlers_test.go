package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fermwise/farm-monitoring/internal/domain"
	"github.com/fermwise/farm-monitoring/internal/monitoring"
	"github.com/fermwise/farm-monitoring/internal/report"
	"github.com/fermwise/farm-monitoring/internal/repository"
	"github.com/fermwise/farm-monitoring/internal/service"
)

type fakeMonitoring struct {
	thresholds monitoring.Thresholds
	report     service.Report
	analyzed   domain.ImageRequest
}

func (f *fakeMonitoring) FarmMonitoring(_ context.Context, farmID string) (domain.FarmVerdict, error) {
	switch farmID {
	case "farm-1":
		return domain.FarmVerdict{FarmID: farmID, Status: domain.NeedsAttention, Devices: []domain.DeviceVerdict{}}, nil
	case "broken":
		return domain.FarmVerdict{}, errors.New("database unavailable")
	}
	return domain.FarmVerdict{}, fmt.Errorf("farm %s: %w", farmID, repository.ErrNotFound)
}

func (f *fakeMonitoring) DeviceMonitoring(_ context.Context, deviceID string) (domain.DeviceVerdict, error) {
	return domain.DeviceVerdict{DeviceID: deviceID, DeviceName: "Unknown Device", Status: domain.Healthy}, nil
}

func (f *fakeMonitoring) EnvironmentalAnalysis(_ context.Context, farmID string) (monitoring.EnvironmentReport, error) {
	return monitoring.EnvironmentReport{
		FarmID: farmID,
		Humidity: &monitoring.ParameterAnalysis{
			Parameter: domain.Humidity, Status: domain.StatusWarning, Value: 75, Unit: "%",
			Message: "Humidity is above the optimal range.",
		},
	}, nil
}

func (f *fakeMonitoring) AnalyzeImage(_ context.Context, img domain.ImageRequest) domain.CropHealth {
	f.analyzed = img
	return domain.CropHealth{Status: domain.StatusWarning, Message: "Failed to analyze crop health image.", ImageURL: img.ImageURL}
}

func (f *fakeMonitoring) Thresholds() monitoring.Thresholds { return f.thresholds }

func (f *fakeMonitoring) UpdateThresholds(_ context.Context, patch monitoring.ThresholdPatch) (monitoring.Thresholds, error) {
	if err := patch.Validate(); err != nil {
		return f.thresholds, err
	}
	f.thresholds = patch.Apply(f.thresholds)
	return f.thresholds, nil
}

func (f *fakeMonitoring) Report(_ context.Context, farmID string) (service.Report, error) {
	return f.report, nil
}

func setupApp() (*fiber.App, *fakeMonitoring) {
	fake := &fakeMonitoring{thresholds: monitoring.DefaultThresholds()}
	app := fiber.New()
	RegisterMonitoring(app, fake)
	return app, fake
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(raw)
}

func TestHealth(t *testing.T) {
	app, _ := setupApp()

	code, body := do(t, app, "GET", "/health", "")

	assert.Equal(t, 200, code)
	assert.Equal(t, "ok", body)
}

func TestFarmMonitoring_StatusCodes(t *testing.T) {
	app, _ := setupApp()

	code, body := do(t, app, "GET", "/farms/farm-1/monitoring", "")
	assert.Equal(t, 200, code)
	var v domain.FarmVerdict
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	assert.Equal(t, domain.NeedsAttention, v.Status)

	code, body = do(t, app, "GET", "/farms/missing/monitoring", "")
	assert.Equal(t, 404, code)
	assert.Contains(t, body, "not found")

	code, _ = do(t, app, "GET", "/farms/broken/monitoring", "")
	assert.Equal(t, 500, code)
}

func TestDeviceMonitoring(t *testing.T) {
	app, _ := setupApp()

	code, body := do(t, app, "GET", "/devices/dev-9/monitoring", "")

	assert.Equal(t, 200, code)
	assert.Contains(t, body, `"device_name":"Unknown Device"`)
}

func TestAnalysis(t *testing.T) {
	app, _ := setupApp()

	code, body := do(t, app, "GET", "/farms/farm-1/analysis", "")
	assert.Equal(t, 200, code)
	assert.Contains(t, body, `"humidity"`)

	code, body = do(t, app, "GET", "/farms/farm-1/analysis?format=text", "")
	assert.Equal(t, 200, code)
	assert.Contains(t, body, "Farm Monitoring Report for farm-1")
	assert.Contains(t, body, "Average Humidity: 75%")
}

func TestThresholds(t *testing.T) {
	app, fake := setupApp()

	code, body := do(t, app, "GET", "/monitoring/thresholds", "")
	assert.Equal(t, 200, code)
	assert.JSONEq(t, `{"humidity":{"min":40,"max":70},"soil_moisture":{"min":30,"max":60},"livestock_temperature":{"min":37.5,"max":39.5}}`, body)

	code, body = do(t, app, "POST", "/monitoring/thresholds", `{"humidity":{"min":80,"max":20}}`)
	assert.Equal(t, 400, code)
	assert.Contains(t, body, "invalid humidity thresholds: min (80) must be less than max (20)")
	assert.Equal(t, monitoring.DefaultThresholds(), fake.thresholds)

	code, _ = do(t, app, "POST", "/monitoring/thresholds", `{}`)
	assert.Equal(t, 400, code)

	code, _ = do(t, app, "POST", "/monitoring/thresholds", `{"humidity":`)
	assert.Equal(t, 400, code)

	code, body = do(t, app, "POST", "/monitoring/thresholds", `{"soil_moisture":{"min":25,"max":55}}`)
	assert.Equal(t, 200, code)
	assert.Contains(t, body, "Thresholds updated successfully")
	assert.Equal(t, domain.Band{Min: 25, Max: 55}, fake.thresholds.SoilMoisture)
}

func TestAnalyzeImage(t *testing.T) {
	app, fake := setupApp()

	code, _ := do(t, app, "POST", "/monitoring/analyze-image", `{"crop_type":"maize"}`)
	assert.Equal(t, 400, code)

	code, body := do(t, app, "POST", "/monitoring/analyze-image", `{"image_url":"https://img/1.jpg","crop_type":"maize"}`)
	assert.Equal(t, 200, code)
	assert.Contains(t, body, "Failed to analyze crop health image.")
	assert.Equal(t, "maize", fake.analyzed.CropType)
}

func TestReport(t *testing.T) {
	app, fake := setupApp()
	fake.report = service.Report{Key: "reports/farm-1/r.xlsx", Data: []byte("PK")}

	req := httptest.NewRequest("GET", "/farms/farm-1/report", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, report.ContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "r.xlsx")

	fake.report.URL = "https://s3/r.xlsx"
	code, body := do(t, app, "GET", "/farms/farm-1/report", "")
	assert.Equal(t, 200, code)
	assert.Contains(t, body, `"report_url":"https://s3/r.xlsx"`)
}

func TestMetricsEndpoint(t *testing.T) {
	app, _ := setupApp()

	code, body := do(t, app, "GET", "/metrics", "")

	assert.Equal(t, 200, code)
	assert.Contains(t, body, "go_goroutines")
}
