package api

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/passbi/passbi_fleet/internal/middleware"
	"github.com/rs/zerolog"
)

// maxBodySize bounds request bodies, line archives included
const maxBodySize = 32 << 20

// Options wires the cross-cutting pieces of the HTTP surface
type Options struct {
	// Auth guards mutating routes
	Auth fiber.Handler
	// RateLimit guards POST /v1/calculate; nil disables it
	RateLimit fiber.Handler
	// Metrics is served on /metrics when set
	Metrics http.Handler
	Log     zerolog.Logger
}

// NewApp builds the Fiber application with every route registered
func NewApp(h *Handler, opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "PassBi Fleet API",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    maxBodySize,
		ErrorHandler: errorHandler(opts.Log),
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(opts.Log))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	auth := opts.Auth
	if auth == nil {
		auth = middleware.PlannerAuth([32]byte{})
	}
	limit := opts.RateLimit
	if limit == nil {
		limit = func(c *fiber.Ctx) error { return c.Next() }
	}

	app.Get("/health", h.Health)
	if opts.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(opts.Metrics))
	}

	v1 := app.Group("/v1")

	// read side, served from the last good calculation
	v1.Post("/calculate", limit, h.Calculate)
	v1.Get("/results", h.Results)
	v1.Get("/network", h.Network)
	v1.Get("/lines", h.ListLines)
	v1.Get("/lines/:id", h.GetLine)
	v1.Get("/lines/:id/daily", h.LineDaily)
	v1.Get("/params", h.GetParams)
	v1.Get("/calendar", h.GetCalendar)

	// planner side
	v1.Put("/lines/:id", auth, h.PutLine)
	v1.Delete("/lines/:id", auth, h.DeleteLine)
	v1.Post("/lines/import", auth, h.ImportLines)
	v1.Put("/params", auth, h.PutParams)
	v1.Put("/calendar", auth, h.PutCalendar)
	v1.Post("/recalculate", auth, h.Recalculate)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "endpoint not found",
		})
	})

	return app
}
