package explore

import (
	"math"
	"strings"
	"sync"

	"github.com/samirrijal/placequest/internal/core/domain"
)

// Source tells observers what kind of input moved the position.
type Source int

const (
	// SourceStep is continuous movement: keys, swipes, explicit steps.
	SourceStep Source = iota
	// SourceJump is a discontinuous teleport such as picking a city.
	SourceJump
)

func (s Source) String() string {
	if s == SourceJump {
		return "jump"
	}
	return "step"
}

// Observer is notified after every position change.
type Observer func(pos domain.Position, src Source)

// PositionTracker owns the authoritative position. Observers run
// synchronously in registration order.
type PositionTracker struct {
	swipeThreshold float64

	mu        sync.Mutex
	pos       domain.Position
	observers []Observer
}

// NewPositionTracker starts at start. Swipes shorter than swipeThreshold
// pixels are ignored.
func NewPositionTracker(start domain.Position, swipeThreshold float64) *PositionTracker {
	return &PositionTracker{pos: start, swipeThreshold: swipeThreshold}
}

// Position returns the current position.
func (t *PositionTracker) Position() domain.Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pos
}

// OnPositionChanged registers an observer.
func (t *PositionTracker) OnPositionChanged(o Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, o)
}

// ApplyStep moves one step in dir. Unknown directions and steps that would
// leave a non-finite position are ignored.
func (t *PositionTracker) ApplyStep(dir domain.Direction, step float64) bool {
	t.mu.Lock()
	next := t.pos
	switch dir {
	case domain.North:
		next.Lat += step
	case domain.South:
		next.Lat -= step
	case domain.East:
		next.Lng += step
	case domain.West:
		next.Lng -= step
	default:
		t.mu.Unlock()
		return false
	}
	if !next.Valid() {
		t.mu.Unlock()
		return false
	}
	t.pos = next
	observers := t.observers
	t.mu.Unlock()

	notify(observers, next, SourceStep)
	return true
}

// JumpTo replaces the position outright. Non-finite coordinates are rejected.
func (t *PositionTracker) JumpTo(lat, lng float64) bool {
	next := domain.Position{Lat: lat, Lng: lng}
	if !next.Valid() {
		return false
	}

	t.mu.Lock()
	t.pos = next
	observers := t.observers
	t.mu.Unlock()

	notify(observers, next, SourceJump)
	return true
}

// HandleKey maps WASD and arrow keys onto steps.
func (t *PositionTracker) HandleKey(key string, step float64) bool {
	dir, ok := keyDirections[strings.ToLower(key)]
	if !ok {
		return false
	}
	return t.ApplyStep(dir, step)
}

var keyDirections = map[string]domain.Direction{
	"w": domain.North, "up": domain.North, "arrowup": domain.North,
	"s": domain.South, "down": domain.South, "arrowdown": domain.South,
	"a": domain.West, "left": domain.West, "arrowleft": domain.West,
	"d": domain.East, "right": domain.East, "arrowright": domain.East,
}

// Swipe interprets a touch gesture of (dx, dy) pixels. Screen y grows
// downward, so a downward swipe moves south.
func (t *PositionTracker) Swipe(dx, dy, step float64) bool {
	return t.ApplyStep(SwipeDirection(dx, dy, t.swipeThreshold), step)
}

// SwipeDirection classifies a gesture, returning "" when it is too short.
func SwipeDirection(dx, dy, threshold float64) domain.Direction {
	if math.Abs(dx) > math.Abs(dy) {
		switch {
		case dx > threshold:
			return domain.East
		case dx < -threshold:
			return domain.West
		}
		return ""
	}
	switch {
	case dy > threshold:
		return domain.South
	case dy < -threshold:
		return domain.North
	}
	return ""
}

func notify(observers []Observer, pos domain.Position, src Source) {
	for _, o := range observers {
		o(pos, src)
	}
}
