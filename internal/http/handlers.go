package http

import (
	"context"
	"errors"
	"path"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fermwise/farm-monitoring/internal/domain"
	"github.com/fermwise/farm-monitoring/internal/monitoring"
	"github.com/fermwise/farm-monitoring/internal/report"
	"github.com/fermwise/farm-monitoring/internal/repository"
	"github.com/fermwise/farm-monitoring/internal/service"
)

// Monitoring is the part of the monitoring service the API exposes.
type Monitoring interface {
	FarmMonitoring(ctx context.Context, farmID string) (domain.FarmVerdict, error)
	DeviceMonitoring(ctx context.Context, deviceID string) (domain.DeviceVerdict, error)
	EnvironmentalAnalysis(ctx context.Context, farmID string) (monitoring.EnvironmentReport, error)
	AnalyzeImage(ctx context.Context, img domain.ImageRequest) domain.CropHealth
	Thresholds() monitoring.Thresholds
	UpdateThresholds(ctx context.Context, patch monitoring.ThresholdPatch) (monitoring.Thresholds, error)
	Report(ctx context.Context, farmID string) (service.Report, error)
}

func Register(app *fiber.App, svcs *service.Services) {
	RegisterMonitoring(app, svcs.Monitoring)
}

func RegisterMonitoring(app *fiber.App, m Monitoring) {
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	g := app.Group("/")
	g.Get("farms/:id/monitoring", func(c *fiber.Ctx) error {
		v, err := m.FarmMonitoring(c.UserContext(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(v)
	})
	g.Get("devices/:id/monitoring", func(c *fiber.Ctx) error {
		v, err := m.DeviceMonitoring(c.UserContext(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(v)
	})
	g.Get("farms/:id/analysis", func(c *fiber.Ctx) error {
		rep, err := m.EnvironmentalAnalysis(c.UserContext(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		if c.Query("format") == "text" {
			return c.SendString(monitoring.FormatEnvironmentReport(rep))
		}
		return c.JSON(rep)
	})
	g.Get("farms/:id/report", func(c *fiber.Ctx) error {
		r, err := m.Report(c.UserContext(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		if r.URL != "" {
			return c.JSON(fiber.Map{"report_url": r.URL, "key": r.Key})
		}
		c.Attachment(path.Base(r.Key))
		c.Set(fiber.HeaderContentType, report.ContentType)
		return c.Send(r.Data)
	})

	g.Get("monitoring/thresholds", func(c *fiber.Ctx) error {
		return c.JSON(m.Thresholds())
	})
	g.Post("monitoring/thresholds", func(c *fiber.Ctx) error {
		var patch monitoring.ThresholdPatch
		if err := c.BodyParser(&patch); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if patch.Empty() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no thresholds supplied"})
		}
		th, err := m.UpdateThresholds(c.UserContext(), patch)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "Thresholds updated successfully", "thresholds": th})
	})
	g.Post("monitoring/analyze-image", func(c *fiber.Ctx) error {
		var img domain.ImageRequest
		if err := c.BodyParser(&img); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if img.ImageURL == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image_url is required"})
		}
		return c.JSON(m.AnalyzeImage(c.UserContext(), img))
	})
}

func fail(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var verr *monitoring.ValidationError
	switch {
	case errors.As(err, &verr):
		code = fiber.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		code = fiber.StatusNotFound
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
