// Package httpapi serves the data and schema operations as a JSON REST API
package httpapi

import (
	"context"
	"time"

	"github.com/flockhq/flock/internal/infrastructure/metrics"
	"github.com/flockhq/flock/internal/services"
	"github.com/flockhq/flock/internal/services/authorization"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
)

// Options wires the HTTP server to its collaborators
type Options struct {
	Records       services.RecordServiceInterface
	Schemas       services.SchemaServiceInterface
	Authenticator authorization.AuthenticatorInterface
	Logger        zerolog.Logger

	// Optional; requests are not measured when nil
	Collector *metrics.Collector
	Exporter  *metrics.PrometheusExporter

	// Optional readiness check for /healthz
	HealthCheck func(ctx context.Context) error
}

// Server is the Fiber application serving /v1
type Server struct {
	app  *fiber.App
	opts Options
}

// New creates the Fiber app with middleware and routes registered
func New(opts Options) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "flock",
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
		IdleTimeout:           60 * time.Second,
		BodyLimit:             1 * 1024 * 1024,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s := &Server{app: app, opts: opts}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// App exposes the underlying Fiber app, mainly for app.Test
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves HTTP on addr until Shutdown is called
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) setupMiddleware() {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	s.app.Use(requestid.New())
	s.app.Use(requestLogger(s.opts.Logger))
	if s.opts.Collector != nil && s.opts.Exporter != nil {
		s.app.Use(metrics.FiberMiddleware(s.opts.Collector, s.opts.Exporter))
	}
}

func (s *Server) setupRoutes() {
	s.app.Get("/healthz", s.healthz)

	records := &recordHandler{records: s.opts.Records, schemas: s.opts.Schemas}
	schema := &schemaHandler{schemas: s.opts.Schemas}

	v1 := s.app.Group("/v1", APIKeyMiddleware(s.opts.Authenticator))

	models := v1.Group("/models")
	models.Post("/:model", records.Create)
	models.Get("/:model", records.List)
	models.Get("/:model/:id", records.Get)
	models.Patch("/:model/:id", records.Update)
	models.Delete("/:model/:id", records.Delete)
	models.Get("/:model/:id/:relationship", records.Related)

	v1.Get("/schema", schema.Read)
}

func (s *Server) healthz(c *fiber.Ctx) error {
	if s.opts.HealthCheck != nil {
		if err := s.opts.HealthCheck(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
			})
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
