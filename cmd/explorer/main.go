package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/samirrijal/placequest/internal/adapters/placesapi"
	"github.com/samirrijal/placequest/internal/adapters/tui"
	"github.com/samirrijal/placequest/internal/core/domain"
	"github.com/samirrijal/placequest/internal/core/explore"
	"github.com/samirrijal/placequest/internal/pkg/config"
	"github.com/samirrijal/placequest/internal/pkg/geospatial"
	"github.com/samirrijal/placequest/internal/pkg/logging"
)

func main() {
	cfg, err := config.Load("placequest-explorer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// The screen owns stdout, so logs go to a file.
	logFile := cfg.Log.File
	if logFile == "" {
		logFile = "explorer.log"
	}
	closer, err := logging.SetupFile(logFile, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}

	err = run(cfg)
	if err != nil {
		slog.Error("explorer failed", "error", err)
	}
	closer.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	distance, err := geospatial.Strategy(cfg.Explore.Distance)
	if err != nil {
		return err
	}
	category, err := domain.NormalizeCategory(cfg.Explore.Category)
	if err != nil {
		return fmt.Errorf("explore.category: %w", err)
	}
	start := domain.Position{Lat: cfg.Explore.StartLat, Lng: cfg.Explore.StartLng}

	var sound tui.Sound
	if cfg.Client.Sound {
		beeper, err := tui.NewBeeper()
		if err != nil {
			slog.Warn("sound disabled", "error", err)
		} else {
			defer beeper.Close()
			sound = beeper
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("screen init: %w", err)
	}
	defer screen.Fini()

	api := placesapi.New(cfg.Client.APIURL, cfg.Upstream.Timeout)
	view := tui.NewView(start, sound)
	notifier := &visitNotifier{view: view, api: api, player: cfg.Client.PlayerID, ctx: ctx}

	session := explore.NewSession(ctx, explore.Config{
		TileSize:        cfg.Explore.TileSize,
		DiscoveryRadius: cfg.Explore.Radius(),
		Distance:        distance,
		MoveStep:        cfg.Explore.MoveStep,
		Debounce:        cfg.Explore.Debounce,
		SwipeThreshold:  cfg.Explore.SwipeThreshold,
		RareProbability: cfg.Explore.RareProbability,
		QueryMode:       explore.QueryMode(cfg.Explore.QueryMode),
		FetchLimit:      cfg.Explore.FetchLimit,
		Category:        category,
		Start:           start,
		Zoom:            explore.DefaultConfig().Zoom,
	}, api, view, view, notifier)
	defer notifier.Wait()
	defer session.Close()

	slog.Info("explorer starting", "api", cfg.Client.APIURL, "player_id", cfg.Client.PlayerID, "start", start)
	session.Start()

	app := tui.NewApp(screen, view, &controller{Session: session, view: view}, api.SearchCities)
	if err := app.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// controller keeps the player glyph on the session position after a jump;
// steps already move it through PanTo.
type controller struct {
	*explore.Session
	view *tui.View
}

func (c *controller) JumpTo(lat, lng float64) bool {
	ok := c.Session.JumpTo(lat, lng)
	if ok {
		c.view.SetPlayer(c.Session.Position())
	}
	return ok
}

// visitNotifier shows discoveries and submits them to the API in the
// background. A failed submission only costs the server-side record.
type visitNotifier struct {
	view   *tui.View
	api    *placesapi.Client
	player string
	ctx    context.Context
	wg     sync.WaitGroup
}

func (n *visitNotifier) OnDiscovery(ev domain.DiscoveryEvent) {
	n.view.OnDiscovery(ev)

	v := placesapi.VisitFromEvent(n.player, ev)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(n.ctx, 5*time.Second)
		defer cancel()
		if _, err := n.api.RecordVisit(ctx, v); err != nil {
			slog.Warn("record visit failed", "place_id", v.PlaceID, "error", err)
		}
	}()
}

func (n *visitNotifier) OnScoreChanged(score int) {
	n.view.OnScoreChanged(score)
}

// Wait blocks until submitted visits have finished.
func (n *visitNotifier) Wait() {
	n.wg.Wait()
}
