package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/placequest/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// RouterOptions tunes the shared middleware.
type RouterOptions struct {
	// RateLimit is the number of requests per minute per IP. Zero disables it.
	RateLimit int
}

// DefaultRouterOptions returns production settings.
func DefaultRouterOptions() RouterOptions {
	return RouterOptions{RateLimit: 240}
}

// SetupRoutes registers all REST, GraphQL and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies, opts RouterOptions) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	if opts.RateLimit > 0 {
		// Walking a player around fetches up to nine tiles per step burst.
		app.Use(limiter.New(limiter.Config{
			Max:        opts.RateLimit,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
			},
		}))
	}

	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Get("/places", timeout.NewWithContext(PlacesInBoundsHandler(deps), requestTimeout))
	v1.Get("/places/nearby", timeout.NewWithContext(NearbyPlacesHandler(deps), requestTimeout))
	v1.Get("/places/:id", timeout.NewWithContext(GetPlaceHandler(deps), requestTimeout))
	v1.Post("/visits", timeout.NewWithContext(RecordVisitHandler(deps), requestTimeout))
	v1.Get("/players/:id/visits", timeout.NewWithContext(PlayerVisitsHandler(deps), requestTimeout))
	v1.Get("/players/:id/score", timeout.NewWithContext(PlayerScoreHandler(deps), requestTimeout))
	v1.Get("/cities/search", timeout.NewWithContext(SearchCitiesHandler(deps), requestTimeout))
	v1.Get("/cities", timeout.NewWithContext(CitiesInCountryHandler(deps), requestTimeout))
	v1.Get("/countries", timeout.NewWithContext(CountriesHandler(deps), requestTimeout))
	v1.Post("/sessions", timeout.NewWithContext(StartSessionHandler(deps), requestTimeout))

	if deps.Audit != nil {
		admin := v1.Group("/admin", AdminMiddleware(deps.AdminToken))
		admin.Get("/fetch-logs", timeout.NewWithContext(FetchLogsHandler(deps), requestTimeout))
	}

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app, deps.DocsPath)

	if deps.NATS != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
	}
}
