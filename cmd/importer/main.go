package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/placequest/internal/adapters/elastic"
	"github.com/samirrijal/placequest/internal/adapters/postgres"
	"github.com/samirrijal/placequest/internal/adapters/upstream"
	"github.com/samirrijal/placequest/internal/adapters/valkey"
	"github.com/samirrijal/placequest/internal/core/ports"
	"github.com/samirrijal/placequest/internal/core/usecases"
	"github.com/samirrijal/placequest/internal/pkg/config"
	"github.com/samirrijal/placequest/internal/pkg/logging"
	"github.com/samirrijal/placequest/internal/workflows"
)

const usage = "usage: importer worker | importer start <name> <lat> <lng> [rings]"

func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	cfg, err := config.Load("placequest-importer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	switch os.Args[1] {
	case "worker":
		runWorker(cfg, c)
	case "start":
		if err := startImport(cfg, c, os.Args[2:]); err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatal(usage)
	}
}

func runWorker(cfg *config.Config, c client.Client) {
	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var places ports.PlaceRepository = postgres.NewPlaceRepo(db)
	if cfg.Places.Backend == "elastic" {
		es, err := elastic.New(ctx, cfg.Elastic.URL, cfg.Elastic.Index)
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		defer es.Close()
		places = es
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

	acts := &workflows.ImportActivities{Provider: provider, Places: places}
	if vk, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, tile cache will not be invalidated", "error", err)
	} else {
		defer vk.Close()
		// Invalidation goes through the service so keys match the API's.
		acts.Cache = usecases.NewPlaceService(places, nil, nil, vk, usecases.DefaultPlaceOptions())
	}

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.ImportRegionWorkflow)
	w.RegisterActivity(acts)

	slog.Info("import worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

func startImport(cfg *config.Config, c client.Client, args []string) error {
	if len(args) < 3 {
		return errors.New(usage)
	}
	lat, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("lat: %w", err)
	}
	lng, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("lng: %w", err)
	}
	rings := 1
	if len(args) > 3 {
		if rings, err = strconv.Atoi(args[3]); err != nil {
			return fmt.Errorf("rings: %w", err)
		}
	}

	in := workflows.ImportInput{
		Name:     args[0],
		Lat:      lat,
		Lng:      lng,
		Rings:    rings,
		TileSize: cfg.Explore.TileSize,
		Limit:    cfg.Places.MaxLimit,
	}
	if _, err := workflows.ImportTiles(in.Lat, in.Lng, in.Rings, in.TileSize); err != nil {
		return err
	}

	ctx := context.Background()
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflows.WorkflowID(in.Name),
		TaskQueue: cfg.Temporal.TaskQueue,
	}, workflows.ImportRegionWorkflow, in)
	if err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}
	slog.Info("import started", "workflow_id", run.GetID(), "run_id", run.GetRunID())

	var res workflows.ImportResult
	if err := run.Get(ctx, &res); err != nil {
		return fmt.Errorf("import %s: %w", in.Name, err)
	}
	slog.Info("import finished", "region", in.Name, "tiles", res.Tiles, "places", res.Places, "failed", len(res.Failed))
	return nil
}
