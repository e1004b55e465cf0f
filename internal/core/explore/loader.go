package explore

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/samirrijal/placequest/internal/core/domain"
	"github.com/samirrijal/placequest/internal/core/ports"
	"github.com/samirrijal/placequest/internal/pkg/geospatial"
	"github.com/samirrijal/placequest/internal/pkg/metrics"
)

// QueryMode selects how a tile is described to the backend.
type QueryMode string

const (
	QueryBBox   QueryMode = "bbox"
	QueryRadius QueryMode = "radius"
)

// LoaderConfig tunes a TileLoader.
type LoaderConfig struct {
	TileSize        float64
	QueryMode       QueryMode
	Limit           int
	RareProbability float64
	// Category restricts fetched features; empty fetches every category.
	Category string
	// Rand returns values in [0,1). Defaults to math/rand/v2.
	Rand func() float64
	// Dispatch runs a fetch. Defaults to a new goroutine.
	Dispatch func(func())
	Logger   *slog.Logger
}

// TileLoader fetches features one tile at a time and merges them into a
// FeatureStore, drawing only features that are new to the store.
type TileLoader struct {
	grid     Grid
	cfg      LoaderConfig
	fetcher  ports.FeatureFetcher
	store    *FeatureStore
	renderer ports.MapRenderer
	sidebar  ports.SidebarRenderer
	logger   *slog.Logger

	// onMerged runs after newly created features have been rendered.
	onMerged func(created []domain.Feature)

	inflight sync.WaitGroup
}

// NewTileLoader creates a TileLoader. renderer and sidebar may be nil.
func NewTileLoader(
	fetcher ports.FeatureFetcher,
	store *FeatureStore,
	renderer ports.MapRenderer,
	sidebar ports.SidebarRenderer,
	cfg LoaderConfig,
) *TileLoader {
	if cfg.Rand == nil {
		cfg.Rand = rand.Float64
	}
	if cfg.Dispatch == nil {
		cfg.Dispatch = func(f func()) { go f() }
	}
	if cfg.QueryMode == "" {
		cfg.QueryMode = QueryBBox
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TileLoader{
		grid:     Grid{Size: cfg.TileSize},
		cfg:      cfg,
		fetcher:  fetcher,
		store:    store,
		renderer: renderer,
		sidebar:  sidebar,
		logger:   logger.With("component", "tile_loader"),
	}
}

// Grid returns the loader's tile grid.
func (l *TileLoader) Grid() Grid {
	return l.grid
}

// OnPositionChanged fetches the tile under pos unless it was already
// requested in this generation.
func (l *TileLoader) OnPositionChanged(ctx context.Context, pos domain.Position) {
	if !pos.Valid() {
		l.logger.Error("invalid coordinates, fetch aborted", "lat", pos.Lat, "lng", pos.Lng)
		metrics.TileFetches.WithLabelValues("invalid").Inc()
		return
	}
	l.loadKey(ctx, l.grid.KeyFor(pos))
}

// PreloadSurroundingTiles fetches the 3×3 block of tiles around a centre,
// skipping those already requested.
func (l *TileLoader) PreloadSurroundingTiles(ctx context.Context, lat, lng float64) {
	center := domain.Position{Lat: lat, Lng: lng}
	if !center.Valid() {
		l.logger.Error("invalid coordinates, preload aborted", "lat", lat, "lng", lng)
		metrics.TileFetches.WithLabelValues("invalid").Inc()
		return
	}
	for _, k := range l.grid.Neighborhood(l.grid.KeyFor(center)) {
		l.loadKey(ctx, k)
	}
}

// Wait blocks until every dispatched fetch has finished.
func (l *TileLoader) Wait() {
	l.inflight.Wait()
}

func (l *TileLoader) loadKey(ctx context.Context, k domain.TileKey) bool {
	// Marked before the request goes out so that a second move into the same
	// tile while the fetch is in flight does not issue another one.
	gen, ok := l.store.MarkTile(k)
	if !ok {
		return false
	}

	q := l.query(k)
	l.inflight.Add(1)
	l.cfg.Dispatch(func() {
		defer l.inflight.Done()
		l.fetchTile(ctx, k, gen, q)
	})
	return true
}

func (l *TileLoader) query(k domain.TileKey) domain.FeatureQuery {
	b := l.grid.Bounds(k)
	if l.cfg.QueryMode == QueryRadius {
		c := b.Center()
		return domain.FeatureQuery{
			Center:       &c,
			RadiusMeters: geospatial.RadiusForBox(b.MinLat, b.MinLon, b.MaxLat, b.MaxLon),
			Limit:        l.cfg.Limit,
			Category:     l.cfg.Category,
		}
	}
	return domain.FeatureQuery{Bounds: &b, Limit: l.cfg.Limit, Category: l.cfg.Category}
}

func (l *TileLoader) fetchTile(ctx context.Context, k domain.TileKey, gen uint64, q domain.FeatureQuery) {
	log := l.logger.With("tile_x", k.X, "tile_y", k.Y, "generation", gen)

	start := time.Now()
	body, err := l.fetcher.FetchFeatures(ctx, q)
	metrics.TileFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		// The tile stays marked: failed tiles are not retried.
		log.Warn("tile fetch failed", "error", err)
		metrics.TileFetches.WithLabelValues("error").Inc()
		return
	}

	features, err := DecodeFeatures(body)
	if err != nil {
		log.Warn("tile payload malformed", "error", err)
		metrics.TileFetches.WithLabelValues("malformed").Inc()
		return
	}

	created, ok := l.store.Merge(gen, features, l.flagRarity)
	if !ok {
		log.Debug("discarding stale tile result", "current_generation", l.store.Generation())
		metrics.TileFetches.WithLabelValues("stale").Inc()
		return
	}
	metrics.TileFetches.WithLabelValues("ok").Inc()
	metrics.FeaturesMerged.Add(float64(len(created)))
	log.Debug("tile merged", "received", len(features), "created", len(created))

	l.render(created)
	if l.onMerged != nil && len(created) > 0 {
		l.onMerged(created)
	}
}

// flagRarity runs once per feature, when the store creates it.
func (l *TileLoader) flagRarity(f *domain.Feature) {
	f.Rare = l.cfg.Rand() < l.cfg.RareProbability
	if f.Rare {
		f.Story = domain.RareStory
	} else {
		f.Story = domain.CommonStory
	}
}

func (l *TileLoader) render(created []domain.Feature) {
	for _, f := range created {
		if l.renderer != nil {
			h := l.renderer.DrawMarker(f)
			if !l.store.SetHandle(f.ID, h) {
				// Cleared while drawing.
				l.renderer.RemoveMarker(h)
				continue
			}
		}
		if l.sidebar != nil {
			id, pos := f.ID, f.Position()
			l.sidebar.RenderSidebarEntry(f, func() {
				if l.renderer == nil {
					return
				}
				l.renderer.SetView(pos, focusZoom)
				if h := l.store.Handle(id); h != nil {
					l.renderer.OpenPopup(h)
				}
			})
		}
	}
}

const focusZoom = 16
