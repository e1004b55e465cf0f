package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": "dev",
		})
	}
}

// ReadyHandler checks the backends. Only the database and NATS can make the
// service not ready; cache and search are reported but optional.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string)
		allOK := true

		probe := func(name string, p Pinger, mustExist, mustPass bool) {
			if p == nil {
				checks[name] = "not configured"
				if mustExist {
					allOK = false
				}
				return
			}
			if err := p.Ping(ctx); err != nil {
				checks[name] = "error: " + err.Error()
				if mustPass {
					allOK = false
				}
				return
			}
			checks[name] = "ok"
		}

		probe("database", deps.DB, true, true)
		probe("nats", deps.Broker, false, true)
		probe("cache", deps.Cache, false, false)
		probe("search", deps.Search, false, false)

		status := "ready"
		code := fiber.StatusOK
		if !allOK {
			status = "not ready"
			code = fiber.StatusServiceUnavailable
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
