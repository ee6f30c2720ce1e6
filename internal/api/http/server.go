package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const serviceName = "flight-delays"

// AppOptions configures NewApp.
type AppOptions struct {
	// MetricsHandler is mounted at /metrics when non-nil.
	MetricsHandler http.Handler
	// RequestLogging enables Fiber's access log middleware.
	RequestLogging bool
}

// NewApp builds the Fiber app with middleware, health, metrics and API routes.
func NewApp(service DelayService, opts AppOptions) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Manual fetches wait on the provider.
		WriteTimeout: 60 * time.Second,
		ErrorHandler: errorHandler,
	})

	if opts.RequestLogging {
		app.Use(logger.New())
	}
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": serviceName,
		})
	})

	if opts.MetricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(opts.MetricsHandler))
	}

	RegisterRoutes(app, service)
	return app
}

// errorHandler renders every error as {"error": true, "message": ...}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}
