package web

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type API struct {
	launcher Launcher
	ready    Pinger
	gatherer prometheus.Gatherer
	events   Subscriber
	validate *validator.Validate
	logger   *slog.Logger
}

// NewAPI creates the launch API. ready backs /readyz; a nil gatherer disables
// /metrics.
func NewAPI(logger *slog.Logger, launcher Launcher, ready Pinger, gatherer prometheus.Gatherer) *API {
	return &API{
		launcher: launcher,
		ready:    ready,
		gatherer: gatherer,
		validate: NewValidator(),
		logger:   logger,
	}
}

// WithEvents enables GET /launches/:requestID/events backed by sub.
func (a *API) WithEvents(sub Subscriber) *API {
	a.events = sub
	return a
}

func (a *API) App() *fiber.App {
	handlers := NewAPIHandlers(a.launcher, a.validate, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			if a.ready == nil {
				return true
			}
			if err := a.ready.Ping(c.Context()); err != nil {
				a.logger.Warn("Readiness probe failed", "error", err)
				return false
			}
			return true
		},
	}))
	if a.gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{})))
	}

	l := app.Group("/launches")
	l.Post("/", handlers.CreateLaunch)
	l.Get("/:requestID", handlers.GetLaunch)
	if a.events != nil {
		stream := &streamHandler{events: a.events, keepAlive: DefaultKeepAlive, logger: a.logger}
		l.Get("/:requestID/events", stream.StreamLaunchEvents)
	}

	return app
}

// Start serves the API on addr until the listener fails.
func (a *API) Start(addr string) error {
	return a.App().Listen(addr)
}
