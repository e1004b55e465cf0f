package explore_test

import (
	"context"
	"math"
	"testing"

	"github.com/samirrijal/placequest/internal/core/domain"
	"github.com/samirrijal/placequest/internal/core/explore"
)

type sessionFixture struct {
	session  *explore.Session
	fetcher  *mockFetcher
	renderer *mockRenderer
	sidebar  *mockSidebar
	notifier *mockNotifier
	clock    *fakeClock
}

func newSession(t *testing.T, fetchFn func(ctx context.Context, q domain.FeatureQuery) ([]byte, error), rand func() float64) *sessionFixture {
	t.Helper()
	fx := &sessionFixture{
		fetcher:  &mockFetcher{fetchFn: fetchFn},
		renderer: &mockRenderer{},
		sidebar:  &mockSidebar{},
		notifier: &mockNotifier{},
		clock:    &fakeClock{},
	}
	cfg := explore.DefaultConfig()
	cfg.Rand = rand
	cfg.Dispatch = inline
	cfg.AfterFunc = fx.clock.AfterFunc
	fx.session = explore.NewSession(context.Background(), cfg, fx.fetcher, fx.renderer, fx.sidebar, fx.notifier)
	t.Cleanup(fx.session.Close)
	return fx
}

// A single café 0.00085° from the Dubai start position.
func cafe(ctx context.Context, q domain.FeatureQuery) ([]byte, error) {
	return flatPayload(domain.Feature{ID: "cafe", Name: "Café", Lat: 25.2050, Lng: 55.2700}), nil
}

func TestSession_StartDiscoversNearbyFeature(t *testing.T) {
	fx := newSession(t, cafe, never)
	fx.session.Start()

	if fx.fetcher.calls() != 9 {
		t.Errorf("expected 3x3 preload, got %d fetches", fx.fetcher.calls())
	}
	if len(fx.notifier.events) != 1 {
		t.Fatalf("expected 1 discovery, got %d", len(fx.notifier.events))
	}
	ev := fx.notifier.events[0]
	if ev.Feature.ID != "cafe" || ev.Points != 10 || ev.Story != domain.CommonStory {
		t.Errorf("unexpected event %+v", ev)
	}
	if fx.session.Score() != 10 {
		t.Errorf("expected score 10, got %d", fx.session.Score())
	}
	if len(fx.notifier.scores) != 1 || fx.notifier.scores[0] != 10 {
		t.Errorf("expected score notification 10, got %v", fx.notifier.scores)
	}
}

func TestSession_RareDiscoveryScores25(t *testing.T) {
	fx := newSession(t, cafe, always)
	fx.session.Start()

	if fx.session.Score() != 25 {
		t.Errorf("expected 25 points for a rare feature, got %d", fx.session.Score())
	}
	if ev := fx.notifier.events[0]; ev.Story != domain.RareStory {
		t.Errorf("expected rare story, got %q", ev.Story)
	}
}

func TestSession_StepsAreDebounced(t *testing.T) {
	fx := newSession(t, nil, never)
	fx.session.Start()
	before := fx.fetcher.calls()

	// Walk east far enough to leave the preloaded block.
	for i := 0; i < 100; i++ {
		fx.session.Move(domain.East)
	}
	if fx.fetcher.calls() != before {
		t.Fatalf("steps fetched before the debounce window closed: %d", fx.fetcher.calls()-before)
	}
	if len(fx.renderer.pans) != 100 {
		t.Errorf("expected a pan per step, got %d", len(fx.renderer.pans))
	}

	fx.clock.fire()

	if got := fx.fetcher.calls() - before; got != 1 {
		t.Errorf("expected one coalesced fetch, got %d", got)
	}
	want := fx.session.Grid().KeyFor(fx.session.Position())
	if !fx.session.Store().TileLoaded(want) {
		t.Errorf("tile under the final position %v should be loaded", want)
	}
}

func TestSession_KeysAndSwipesMove(t *testing.T) {
	fx := newSession(t, nil, never)
	start := fx.session.Position()

	fx.session.Key("ArrowUp")
	fx.session.Key("d")
	fx.session.Swipe(5, 5)
	fx.session.Swipe(-60, 10)

	p := fx.session.Position()
	if !near(p.Lat, start.Lat+0.002) || !near(p.Lng, start.Lng) {
		t.Errorf("unexpected position %+v", p)
	}
}

func TestSession_JumpResetsAndAllowsRediscovery(t *testing.T) {
	fx := newSession(t, cafe, never)
	fx.session.Start()
	if fx.session.Store().Len() != 1 {
		t.Fatalf("expected 1 feature, got %d", fx.session.Store().Len())
	}
	gen := fx.session.Store().Generation()

	// Jump away: everything is dropped and the new block is loaded.
	fx.session.JumpTo(48.8566, 2.3522)

	if fx.session.Store().Generation() != gen+1 {
		t.Errorf("expected generation %d, got %d", gen+1, fx.session.Store().Generation())
	}
	if len(fx.renderer.removed) != 1 || fx.renderer.removed[0] != "marker:cafe" {
		t.Errorf("expected the old marker removed, got %v", fx.renderer.removed)
	}
	if fx.sidebar.cleared != 1 {
		t.Errorf("expected sidebar cleared once, got %d", fx.sidebar.cleared)
	}
	if fx.fetcher.calls() != 18 {
		t.Errorf("expected 9 more fetches after the jump, got %d total", fx.fetcher.calls())
	}
	if len(fx.renderer.views) != 2 {
		t.Errorf("expected SetView on start and jump, got %d", len(fx.renderer.views))
	}

	// Jump back: the café is fetched afresh and can be discovered again.
	fx.session.JumpTo(25.2048, 55.2708)

	if len(fx.notifier.events) != 2 {
		t.Fatalf("expected rediscovery after reset, got %d events", len(fx.notifier.events))
	}
	if fx.session.Score() != 20 {
		t.Errorf("score should survive jumps, got %d", fx.session.Score())
	}
}

func TestSession_JumpCancelsPendingStepFetch(t *testing.T) {
	fx := newSession(t, nil, never)
	fx.session.Start()
	fx.session.Move(domain.North)

	fx.session.JumpTo(48.8566, 2.3522)
	calls := fx.fetcher.calls()
	fx.clock.fire()

	if fx.fetcher.calls() != calls {
		t.Errorf("debounced fetch survived the jump")
	}
}

func TestSession_InvalidJump(t *testing.T) {
	fx := newSession(t, nil, never)
	start := fx.session.Position()
	if fx.session.JumpTo(math.NaN(), 10) {
		t.Fatal("NaN jump accepted")
	}
	if fx.session.Position() != start || fx.session.Store().Generation() != 0 {
		t.Error("rejected jump changed state")
	}
}

func TestSession_Reset(t *testing.T) {
	fx := newSession(t, cafe, never)
	fx.session.Start()
	fx.session.Reset()

	if fx.session.Store().Generation() != 1 {
		t.Errorf("expected generation 1, got %d", fx.session.Store().Generation())
	}
	if fx.session.Store().LoadedTiles() != 9 {
		t.Errorf("expected the block reloaded, got %d tiles", fx.session.Store().LoadedTiles())
	}
}
