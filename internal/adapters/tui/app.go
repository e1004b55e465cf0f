package tui

import (
	"context"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/samirrijal/placequest/internal/core/domain"
)

// Cell sizes in pixels, used to turn mouse drags into swipe distances.
const (
	cellWidthPx  = 8
	cellHeightPx = 16
)

// Controller is the part of an exploration session the terminal drives.
type Controller interface {
	Key(key string) bool
	Swipe(dx, dy float64) bool
	JumpTo(lat, lng float64) bool
	Position() domain.Position
}

// CitySearch resolves a city name to a start position.
type CitySearch func(ctx context.Context, query string) ([]domain.City, error)

// App runs the input/draw loop.
type App struct {
	screen tcell.Screen
	view   *View
	ctrl   Controller
	search CitySearch

	prompting bool
	prompt    strings.Builder

	dragging   bool
	dragX      int
	dragY      int
	refreshDur time.Duration
}

// NewApp creates an App on an initialised screen. search may be nil.
func NewApp(screen tcell.Screen, view *View, ctrl Controller, search CitySearch) *App {
	screen.EnableMouse()
	return &App{screen: screen, view: view, ctrl: ctrl, search: search, refreshDur: 50 * time.Millisecond}
}

// Run processes events until ctx is done or the player quits.
func (a *App) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 64)
	quit := make(chan struct{})
	go a.screen.ChannelEvents(events, quit)
	defer close(quit)

	ticker := time.NewTicker(a.refreshDur)
	defer ticker.Stop()

	a.redraw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !a.Handle(ctx, ev) {
				return nil
			}
			a.redraw()
		case <-ticker.C:
			// Fetches land asynchronously.
			a.redraw()
		}
	}
}

func (a *App) redraw() {
	a.view.Draw(a.screen)
	if a.prompting {
		_, h := a.screen.Size()
		fill(a.screen, 0, h-1, 200, styleHeader)
		drawText(a.screen, 0, h-1, 200, "City: "+a.prompt.String(), styleHeader)
	}
	a.screen.Show()
}

// Handle applies one event and reports whether the loop should continue.
func (a *App) Handle(ctx context.Context, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if a.prompting {
			a.handlePrompt(ctx, ev)
			return true
		}
		return a.handleKey(ev)
	case *tcell.EventMouse:
		a.handleMouse(ev)
	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

func (a *App) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		a.ctrl.Key("ArrowUp")
	case tcell.KeyDown:
		a.ctrl.Key("ArrowDown")
	case tcell.KeyLeft:
		a.ctrl.Key("ArrowLeft")
	case tcell.KeyRight:
		a.ctrl.Key("ArrowRight")
	case tcell.KeyTab:
		a.view.SelectNext(1)
	case tcell.KeyBacktab:
		a.view.SelectNext(-1)
	case tcell.KeyEnter:
		a.view.ActivateSelected()
	case tcell.KeyRune:
		switch r := ev.Rune(); r {
		case 'q':
			return false
		case 'c':
			a.prompting = true
			a.prompt.Reset()
		case 'g':
			if a.view.ToggleDistance() {
				a.view.SetMessage("Distances in metres (haversine)")
			} else {
				a.view.SetMessage("Distances in degrees (euclidean)")
			}
		default:
			a.ctrl.Key(string(r))
		}
	}
	return true
}

func (a *App) handlePrompt(ctx context.Context, ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		a.prompting = false
	case tcell.KeyEnter:
		a.prompting = false
		a.jumpToCity(ctx, a.prompt.String())
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		s := []rune(a.prompt.String())
		if len(s) > 0 {
			a.prompt.Reset()
			a.prompt.WriteString(string(s[:len(s)-1]))
		}
	case tcell.KeyRune:
		a.prompt.WriteRune(ev.Rune())
	}
}

func (a *App) jumpToCity(ctx context.Context, query string) {
	query = strings.TrimSpace(query)
	if query == "" || a.search == nil {
		return
	}
	cities, err := a.search(ctx, query)
	if err != nil {
		a.view.SetMessage("City search failed: %v", err)
		return
	}
	if len(cities) == 0 {
		a.view.SetMessage("No city found for %q", query)
		return
	}
	c := cities[0]
	if !a.ctrl.JumpTo(c.Lat, c.Lng) {
		a.view.SetMessage("Invalid coordinates for %s", c.Name)
		return
	}
	a.view.SetMessage("Exploring %s", c.Name)
}

func (a *App) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	pressed := ev.Buttons()&tcell.Button1 != 0

	switch {
	case pressed && !a.dragging:
		a.dragging, a.dragX, a.dragY = true, x, y
	case !pressed && a.dragging:
		a.dragging = false
		dx, dy := x-a.dragX, y-a.dragY
		if dx == 0 && dy == 0 {
			// Plain click recentres the map on the clicked cell.
			w, h := a.screen.Size()
			vp := a.view.Viewport(w, h)
			if x < vp.Left+vp.Width && y >= vp.Top && y < vp.Top+vp.Height {
				a.view.SetView(vp.Unproject(x, y), 0)
			}
			return
		}
		a.ctrl.Swipe(float64(dx*cellWidthPx), float64(dy*cellHeightPx))
	}
}
