// Package tui renders an exploration session in a terminal with tcell.
package tui

import (
	"fmt"
	"math"
	"sync"

	"github.com/samirrijal/placequest/internal/core/domain"
	"github.com/samirrijal/placequest/internal/pkg/geospatial"
)

const (
	maxStories  = 5
	defaultZoom = 14
)

type marker struct {
	feature    domain.Feature
	discovered bool
}

type sidebarEntry struct {
	feature domain.Feature
	onClick func()
}

// Sound plays feedback tones. Implementations must not block.
type Sound interface {
	Discovery(rare bool)
}

// View is the terminal map state. It implements ports.MapRenderer,
// ports.SidebarRenderer and ports.GameNotifier; every method is safe to
// call from fetch goroutines while the event loop draws.
type View struct {
	mu sync.Mutex

	markers map[string]*marker
	order   []string
	popup   string

	center domain.Position
	zoom   int
	player domain.Position

	sidebar  []sidebarEntry
	selected int

	score     int
	message   string
	stories   []string
	haversine bool

	sound Sound
}

// NewView creates a view centred on start. sound may be nil.
func NewView(start domain.Position, sound Sound) *View {
	return &View{
		markers: make(map[string]*marker),
		center:  start,
		player:  start,
		zoom:    defaultZoom,
		sound:   sound,
	}
}

// DrawMarker adds a marker and returns its handle.
func (v *View) DrawMarker(f domain.Feature) domain.VisualHandle {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.markers[f.ID]; !ok {
		v.order = append(v.order, f.ID)
	}
	v.markers[f.ID] = &marker{feature: f}
	return f.ID
}

// RemoveMarker drops the marker behind h.
func (v *View) RemoveMarker(h domain.VisualHandle) {
	id, ok := h.(string)
	if !ok {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.markers[id]; !ok {
		return
	}
	delete(v.markers, id)
	for i, o := range v.order {
		if o == id {
			v.order = append(v.order[:i], v.order[i+1:]...)
			break
		}
	}
	if v.popup == id {
		v.popup = ""
	}
}

// OpenPopup shows the details line of the marker behind h.
func (v *View) OpenPopup(h domain.VisualHandle) {
	id, ok := h.(string)
	if !ok {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if m, ok := v.markers[id]; ok {
		v.popup = id
		v.message = fmt.Sprintf("%s (%s)", m.feature.Name, m.feature.Category)
	}
}

// PanTo follows the player.
func (v *View) PanTo(p domain.Position) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.center = p
	v.player = p
}

// SetView recentres the map at the given zoom.
func (v *View) SetView(p domain.Position, zoom int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.center = p
	if zoom > 0 {
		v.zoom = zoom
	}
}

// SetPlayer moves the player glyph without moving the map.
func (v *View) SetPlayer(p domain.Position) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.player = p
}

// RenderSidebarEntry appends a feature to the sidebar list.
func (v *View) RenderSidebarEntry(f domain.Feature, onClick func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sidebar = append(v.sidebar, sidebarEntry{feature: f, onClick: onClick})
}

// ClearSidebar empties the sidebar list.
func (v *View) ClearSidebar() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sidebar = nil
	v.selected = 0
}

// OnDiscovery records the story and plays a tone.
func (v *View) OnDiscovery(ev domain.DiscoveryEvent) {
	v.mu.Lock()
	if m, ok := v.markers[ev.Feature.ID]; ok {
		m.discovered = true
	}
	v.message = fmt.Sprintf("Discovered %s! +%d", ev.Feature.Name, ev.Points)
	v.stories = append(v.stories, fmt.Sprintf("%s: %s", ev.Feature.Name, ev.Story))
	if len(v.stories) > maxStories {
		v.stories = v.stories[len(v.stories)-maxStories:]
	}
	sound := v.sound
	v.mu.Unlock()

	if sound != nil {
		sound.Discovery(ev.Feature.Rare)
	}
}

// OnScoreChanged updates the score line.
func (v *View) OnScoreChanged(score int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.score = score
}

// SetMessage replaces the transient message line.
func (v *View) SetMessage(format string, args ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.message = fmt.Sprintf(format, args...)
}

// SelectNext moves the sidebar selection by delta, wrapping around.
func (v *View) SelectNext(delta int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := len(v.sidebar)
	if n == 0 {
		return
	}
	v.selected = ((v.selected+delta)%n + n) % n
}

// ActivateSelected runs the click handler of the selected sidebar entry.
func (v *View) ActivateSelected() {
	v.mu.Lock()
	var click func()
	if v.selected < len(v.sidebar) {
		click = v.sidebar[v.selected].onClick
	}
	v.mu.Unlock()

	// The handler calls back into SetView and OpenPopup.
	if click != nil {
		click()
	}
}

// ToggleDistance switches the nearest-place readout between degrees and metres.
func (v *View) ToggleDistance() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.haversine = !v.haversine
	return v.haversine
}

// nearestLocked returns the closest undiscovered marker to the player.
func (v *View) nearestLocked() (domain.Feature, float64, bool) {
	dist := geospatial.Euclidean
	if v.haversine {
		dist = geospatial.Haversine
	}
	var (
		best  domain.Feature
		bestD = math.Inf(1)
	)
	for _, id := range v.order {
		m := v.markers[id]
		if m.discovered {
			continue
		}
		d := dist(v.player.Lat, v.player.Lng, m.feature.Lat, m.feature.Lng)
		if d < bestD {
			best, bestD = m.feature, d
		}
	}
	return best, bestD, !math.IsInf(bestD, 1)
}
