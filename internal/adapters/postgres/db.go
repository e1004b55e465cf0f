package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/placequest/internal/pkg/metrics"
)

// DB wraps pgxpool.Pool and provides a shared connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new DB connection pool.
func New(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	cfg.MaxConns = 20
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Ping checks connectivity for readiness probes.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// ReportPoolStats publishes pool gauges every interval until ctx ends.
func (db *DB) ReportPoolStats(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Migrate executes every *.sql file in dir in lexical order, skipping
// down.sql. Files must be idempotent.
func (db *DB) Migrate(ctx context.Context, dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	var applied []string
	for _, f := range files {
		if strings.HasSuffix(f, "down.sql") {
			continue
		}
		if err := db.execFile(ctx, f); err != nil {
			return applied, err
		}
		slog.Info("migration applied", "file", f)
		applied = append(applied, f)
	}
	return applied, nil
}

// Rollback executes dir/down.sql.
func (db *DB) Rollback(ctx context.Context, dir string) error {
	return db.execFile(ctx, filepath.Join(dir, "down.sql"))
}

func (db *DB) execFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if _, err := db.Pool.Exec(ctx, string(data)); err != nil {
		return fmt.Errorf("exec %s: %w", path, err)
	}
	return nil
}

// Close releases pool resources.
func (db *DB) Close() {
	db.Pool.Close()
}
