package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/placequest/internal/core/usecases"
)

// Pinger is a backend that can report its connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Places *usecases.PlaceService
	Visits *usecases.VisitService
	Cities *usecases.CityService
	Audit  *usecases.AuditService
	NATS   *nats.Conn

	// AdminToken guards /v1/admin. Empty refuses every admin request.
	AdminToken string

	// Readiness probes. DB is required, Broker must be up when configured,
	// Cache and Search are reported only.
	DB     Pinger
	Broker Pinger
	Cache  Pinger
	Search Pinger

	// DocsPath is the OpenAPI document served at /docs/openapi.yaml.
	DocsPath string
}
