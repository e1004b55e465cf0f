package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/placequest/internal/adapters/elastic"
	"github.com/samirrijal/placequest/internal/adapters/http"
	natsadapter "github.com/samirrijal/placequest/internal/adapters/nats"
	"github.com/samirrijal/placequest/internal/adapters/postgres"
	"github.com/samirrijal/placequest/internal/adapters/upstream"
	"github.com/samirrijal/placequest/internal/adapters/valkey"
	"github.com/samirrijal/placequest/internal/core/ports"
	"github.com/samirrijal/placequest/internal/core/usecases"
	"github.com/samirrijal/placequest/internal/pkg/config"
	"github.com/samirrijal/placequest/internal/pkg/logging"
	"github.com/samirrijal/placequest/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("placequest-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database: visits and the fetch log always live in Postgres.
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	deps := &http.Dependencies{DB: db, DocsPath: "api/openapi.yaml"}

	// Places: Postgres by default, Elasticsearch when configured.
	var places ports.PlaceRepository = postgres.NewPlaceRepo(db)
	if cfg.Places.Backend == "elastic" {
		es, err := elastic.New(ctx, cfg.Elastic.URL, cfg.Elastic.Index)
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		defer es.Close()
		places = es
		deps.Search = es
	}

	// Cache
	var cache ports.CacheService
	vk, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vk.Close()
		cache = vk
		deps.Cache = vk
	}

	// NATS
	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
		deps.Broker = pub
	}

	// Raw NATS connection for the WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
		deps.NATS = natsConn
	}

	provider := upstream.New(upstream.Options{
		PlacesURL:     cfg.Upstream.PlacesURL,
		APIKey:        cfg.Upstream.APIKey,
		GeocoderURL:   cfg.Upstream.GeocoderURL,
		CountriesURL:  cfg.Upstream.CountriesURL,
		LocalitiesURL: cfg.Upstream.LocalitiesURL,
		UserAgent:     cfg.Upstream.UserAgent,
		Timeout:       cfg.Upstream.Timeout,
	})
	fetchLogs := postgres.NewFetchLogRepo(db)

	deps.Places = usecases.NewPlaceService(places, provider, fetchLogs, cache, usecases.PlaceOptions{
		DefaultLimit:        cfg.Places.DefaultLimit,
		MaxLimit:            cfg.Places.MaxLimit,
		TileTTL:             cfg.Places.TileCacheTTL,
		FetchUpstreamOnMiss: cfg.Places.FetchUpstreamOnMiss,
	})
	deps.Visits = usecases.NewVisitService(postgres.NewVisitRepo(db), publisher)
	deps.Cities = usecases.NewCityService(provider, fetchLogs, cache, cfg.Places.CityCacheTTL)
	deps.Audit = usecases.NewAuditService(fetchLogs)
	deps.AdminToken = cfg.Server.AdminToken
	if deps.AdminToken == "" {
		slog.Info("server.admin_token unset, admin endpoints refuse every request")
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "PlaceQuest API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, X-Admin-Token",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps, http.DefaultRouterOptions())

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "places_backend", cfg.Places.Backend)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
