package explore_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samirrijal/placequest/internal/core/domain"
	"github.com/samirrijal/placequest/internal/core/explore"
)

// --- Mock FeatureFetcher ---

type mockFetcher struct {
	mu      sync.Mutex
	queries []domain.FeatureQuery
	fetchFn func(ctx context.Context, q domain.FeatureQuery) ([]byte, error)
}

func (m *mockFetcher) FetchFeatures(ctx context.Context, q domain.FeatureQuery) ([]byte, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	m.mu.Unlock()
	if m.fetchFn != nil {
		return m.fetchFn(ctx, q)
	}
	return []byte(`[]`), nil
}

func (m *mockFetcher) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

// --- Mock MapRenderer ---

type mockRenderer struct {
	mu      sync.Mutex
	drawn   []string
	removed []domain.VisualHandle
	popups  []domain.VisualHandle
	pans    []domain.Position
	views   []domain.Position
}

func (m *mockRenderer) DrawMarker(f domain.Feature) domain.VisualHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drawn = append(m.drawn, f.ID)
	return "marker:" + f.ID
}

func (m *mockRenderer) RemoveMarker(h domain.VisualHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, h)
}

func (m *mockRenderer) OpenPopup(h domain.VisualHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.popups = append(m.popups, h)
}

func (m *mockRenderer) PanTo(p domain.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pans = append(m.pans, p)
}

func (m *mockRenderer) SetView(p domain.Position, zoom int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views = append(m.views, p)
}

// --- Mock SidebarRenderer ---

type mockSidebar struct {
	mu      sync.Mutex
	entries []string
	clicks  map[string]func()
	cleared int
}

func (m *mockSidebar) RenderSidebarEntry(f domain.Feature, onClick func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clicks == nil {
		m.clicks = make(map[string]func())
	}
	m.entries = append(m.entries, f.ID)
	m.clicks[f.ID] = onClick
}

func (m *mockSidebar) ClearSidebar() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.clicks = nil
	m.cleared++
}

// --- Mock GameNotifier ---

type mockNotifier struct {
	mu     sync.Mutex
	events []domain.DiscoveryEvent
	scores []int
}

func (m *mockNotifier) OnDiscovery(ev domain.DiscoveryEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockNotifier) OnScoreChanged(score int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = append(m.scores, score)
}

// --- Helpers ---

func inline(f func()) { f() }

func never() float64 { return 0.99 }

func always() float64 { return 0 }

func flatPayload(features ...domain.Feature) []byte {
	body := "["
	for i, f := range features {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`{"id":%q,"name":%q,"category":"park","lat":%v,"lng":%v}`, f.ID, f.Name, f.Lat, f.Lng)
	}
	return []byte(body + "]")
}

// --- Fake clock for the debouncer ---

type fakeTimer struct {
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(_ time.Duration, f func()) explore.Stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{fn: f}
	c.timers = append(c.timers, t)
	return t
}

// fire runs every timer that has not been stopped.
func (c *fakeClock) fire() {
	c.mu.Lock()
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped {
			t.stopped = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.fn()
	}
}
