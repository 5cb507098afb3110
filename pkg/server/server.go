package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/modelhub/modelhub/pkg/config"
	"github.com/modelhub/modelhub/pkg/contract"
	"github.com/modelhub/modelhub/pkg/metrics"
)

func newErrorHandler(log *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		e, ok := contract.AsError(err)
		if !ok {
			code := contract.ErrorCodeInternalError

			var f *fiber.Error
			if errors.As(err, &f) {
				switch f.Code {
				case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge:
					code = contract.ErrorCodeBadRequest
				case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
					code = contract.ErrorCodeEndpointNotFound
				}
			}

			e = contract.NewError(code, err.Error())
		}

		var fn func(format string, args ...any)

		switch e.StatusCode() {
		case fiber.StatusBadRequest, fiber.StatusConflict, fiber.StatusUnsupportedMediaType,
			fiber.StatusUnprocessableEntity, fiber.StatusUnauthorized:
			fn = log.Infof
		case fiber.StatusNotFound:
			fn = log.Debugf
		default:
			fn = log.Errorf
		}

		fn("Error encountered in %s %s: %s", c.Method(), c.Path(), err)

		public := e.Public()

		return c.Status(public.StatusCode()).JSON(public)
	}
}

// NewApp assembles the HTTP surface: unauthenticated health checks and metrics at
// the root, the JWT-guarded API under /api/v1.
func NewApp(cfg *config.Config, log *logrus.Logger, m *metrics.Metrics, service *ModelhubService) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		BodyLimit:             cfg.BodyLimit,
		ReadBufferSize:        16384,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          cfg.InferenceTimeout.Duration + 30*time.Second,
		IdleTimeout:           120 * time.Second,
		ServerHeader:          "modelhub/" + cfg.Version,
		DisableStartupMessage: true,
		ErrorHandler:          newErrorHandler(log),
	})

	app.Use(compress.New())
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(logger.New(logger.Config{
		Format: "${status} - ${latency} ${method} ${path}\n",
		Output: log.Writer(),
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	app.Get("/version", func(c *fiber.Ctx) error {
		return c.SendString(cfg.Version)
	})
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	parser, err := NewHTTPRequestParser()
	if err != nil {
		return nil, err
	}

	api := app.Group("/api/v1", authenticate([]byte(cfg.AuthSecret)))
	RegisterModelhubServiceRoutes(service, parser, api)

	return app, nil
}
