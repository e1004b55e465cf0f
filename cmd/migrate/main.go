package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/samirrijal/placequest/internal/adapters/postgres"
	"github.com/samirrijal/placequest/internal/pkg/config"
	"github.com/samirrijal/placequest/internal/pkg/logging"
)

func main() {
	dir := flag.String("dir", "migrations", "directory holding the *.sql files")
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatal("usage: migrate [-dir migrations] <up|down>")
	}

	cfg, err := config.Load("placequest-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, "text")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	switch flag.Arg(0) {
	case "up":
		applied, err := db.Migrate(ctx, *dir)
		if err != nil {
			log.Fatalf("migrate up: %v", err)
		}
		for _, f := range applied {
			fmt.Printf("OK  %s\n", f)
		}
		slog.Info("all migrations applied", "count", len(applied))
	case "down":
		if err := db.Rollback(ctx, *dir); err != nil {
			log.Fatalf("migrate down: %v", err)
		}
		slog.Info("schema dropped")
	default:
		log.Fatalf("unknown command: %s", flag.Arg(0))
	}
}
