package explore

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samirrijal/placequest/internal/core/domain"
	"github.com/samirrijal/placequest/internal/core/ports"
	"github.com/samirrijal/placequest/internal/pkg/geospatial"
	"github.com/samirrijal/placequest/internal/pkg/metrics"
)

// Config holds the tunables of a Session.
type Config struct {
	TileSize        float64
	DiscoveryRadius float64
	// Distance measures in the unit of DiscoveryRadius. nil means Euclidean
	// degrees.
	Distance        geospatial.DistanceFunc
	MoveStep        float64
	Debounce        time.Duration
	SwipeThreshold  float64
	RareProbability float64
	QueryMode       QueryMode
	FetchLimit      int
	Category        string
	Start           domain.Position
	Zoom            int

	Rand      func() float64
	Dispatch  func(func())
	AfterFunc AfterFunc
	Logger    *slog.Logger
}

// DefaultConfig returns the stock game settings, starting in Dubai.
func DefaultConfig() Config {
	return Config{
		TileSize:        0.1,
		DiscoveryRadius: 0.005,
		MoveStep:        0.002,
		Debounce:        300 * time.Millisecond,
		SwipeThreshold:  30,
		RareProbability: 0.1,
		QueryMode:       QueryBBox,
		FetchLimit:      50,
		Start:           domain.Position{Lat: 25.2048, Lng: 55.2708},
		Zoom:            14,
	}
}

// Session wires a tracker, loader, detector and store for one player.
type Session struct {
	cfg      Config
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *slog.Logger
	renderer ports.MapRenderer
	sidebar  ports.SidebarRenderer
	notifier ports.GameNotifier

	tracker   *PositionTracker
	store     *FeatureStore
	loader    *TileLoader
	detector  *ProximityDetector
	debouncer *Debouncer

	// scanMu serialises scans so score updates reach the notifier in order.
	scanMu sync.Mutex
	score  atomic.Int64
}

// NewSession builds a session. renderer, sidebar and notifier may be nil.
func NewSession(
	ctx context.Context,
	cfg Config,
	fetcher ports.FeatureFetcher,
	renderer ports.MapRenderer,
	sidebar ports.SidebarRenderer,
	notifier ports.GameNotifier,
) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)

	s := &Session{
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger.With("component", "session"),
		renderer:  renderer,
		sidebar:   sidebar,
		notifier:  notifier,
		tracker:   NewPositionTracker(cfg.Start, cfg.SwipeThreshold),
		store:     NewFeatureStore(),
		detector:  NewProximityDetector(cfg.DiscoveryRadius, cfg.Distance),
		debouncer: NewDebouncer(cfg.Debounce, cfg.AfterFunc),
	}
	s.loader = NewTileLoader(fetcher, s.store, renderer, sidebar, LoaderConfig{
		TileSize:        cfg.TileSize,
		QueryMode:       cfg.QueryMode,
		Limit:           cfg.FetchLimit,
		RareProbability: cfg.RareProbability,
		Category:        cfg.Category,
		Rand:            cfg.Rand,
		Dispatch:        cfg.Dispatch,
		Logger:          logger,
	})
	s.loader.onMerged = func([]domain.Feature) {
		s.scan(s.tracker.Position())
	}

	s.tracker.OnPositionChanged(s.resetOnJump)
	s.tracker.OnPositionChanged(s.moveView)
	s.tracker.OnPositionChanged(s.fetch)
	s.tracker.OnPositionChanged(func(pos domain.Position, _ Source) { s.scan(pos) })
	return s
}

// Start shows the starting position and loads the tiles around it.
func (s *Session) Start() {
	pos := s.tracker.Position()
	if s.renderer != nil {
		s.renderer.SetView(pos, s.cfg.Zoom)
	}
	s.loader.PreloadSurroundingTiles(s.ctx, pos.Lat, pos.Lng)
	s.scan(pos)
}

// Move takes one step in dir.
func (s *Session) Move(dir domain.Direction) bool {
	return s.tracker.ApplyStep(dir, s.cfg.MoveStep)
}

// Key handles a WASD or arrow key press.
func (s *Session) Key(key string) bool {
	return s.tracker.HandleKey(key, s.cfg.MoveStep)
}

// Swipe handles a drag of (dx, dy) pixels.
func (s *Session) Swipe(dx, dy float64) bool {
	return s.tracker.Swipe(dx, dy, s.cfg.MoveStep)
}

// JumpTo teleports, dropping every loaded tile and feature.
func (s *Session) JumpTo(lat, lng float64) bool {
	ok := s.tracker.JumpTo(lat, lng)
	if !ok {
		s.logger.Error("invalid jump target", "lat", lat, "lng", lng)
	}
	return ok
}

// Reset clears the session in place and reloads around the current position.
func (s *Session) Reset() {
	pos := s.tracker.Position()
	s.resetOnJump(pos, SourceJump)
	s.loader.PreloadSurroundingTiles(s.ctx, pos.Lat, pos.Lng)
}

// Position returns the tracked position.
func (s *Session) Position() domain.Position {
	return s.tracker.Position()
}

// Score returns the points earned so far. It survives jumps.
func (s *Session) Score() int {
	return int(s.score.Load())
}

// Store exposes the feature store.
func (s *Session) Store() *FeatureStore {
	return s.store
}

// Grid returns the tile grid in use.
func (s *Session) Grid() Grid {
	return s.loader.Grid()
}

// Wait blocks until every dispatched fetch has finished.
func (s *Session) Wait() {
	s.loader.Wait()
}

// Close cancels pending work and waits for in-flight fetches.
func (s *Session) Close() {
	s.debouncer.Cancel()
	s.cancel()
	s.loader.Wait()
}

func (s *Session) resetOnJump(_ domain.Position, src Source) {
	if src != SourceJump {
		return
	}
	s.debouncer.Cancel()
	handles := s.store.Clear()
	if s.renderer != nil {
		for _, h := range handles {
			s.renderer.RemoveMarker(h)
		}
	}
	if s.sidebar != nil {
		s.sidebar.ClearSidebar()
	}
	s.logger.Info("session reset", "generation", s.store.Generation(), "markers_removed", len(handles))
}

func (s *Session) moveView(pos domain.Position, src Source) {
	if s.renderer == nil {
		return
	}
	if src == SourceJump {
		s.renderer.SetView(pos, s.cfg.Zoom)
		return
	}
	s.renderer.PanTo(pos)
}

func (s *Session) fetch(pos domain.Position, src Source) {
	if src == SourceJump {
		s.loader.PreloadSurroundingTiles(s.ctx, pos.Lat, pos.Lng)
		return
	}
	s.debouncer.Trigger(func() {
		s.loader.OnPositionChanged(s.ctx, s.tracker.Position())
	})
}

func (s *Session) scan(pos domain.Position) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	for _, ev := range s.detector.Scan(pos, s.store) {
		score := s.score.Add(int64(ev.Points))
		rarity := "common"
		if ev.Feature.Rare {
			rarity = "rare"
		}
		metrics.Discoveries.WithLabelValues(rarity).Inc()
		s.logger.Info("feature discovered",
			"id", ev.Feature.ID, "name", ev.Feature.Name, "rare", ev.Feature.Rare, "points", ev.Points)
		if s.notifier != nil {
			s.notifier.OnDiscovery(ev)
			s.notifier.OnScoreChanged(int(score))
		}
	}
}
