package tui

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/samirrijal/placequest/internal/core/domain"
)

const (
	sidebarWidth = 32
	headerRows   = 1
	footerRows   = 2 + maxStories

	// Degrees of longitude per column at zoom 14. Rows cover twice as much
	// latitude since terminal cells are about twice as tall as wide.
	baseDegPerCol = 0.0005
)

var (
	styleDefault  = tcell.StyleDefault
	styleHeader   = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorTeal)
	stylePlayer   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleMarker   = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleRare     = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleFound    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	stylePopup    = tcell.StyleDefault.Foreground(tcell.ColorAqua).Reverse(true)
	styleSelected = tcell.StyleDefault.Reverse(true)
	styleMessage  = tcell.StyleDefault.Foreground(tcell.ColorAqua)
	styleStory    = tcell.StyleDefault.Foreground(tcell.ColorSilver)
	styleBorder   = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
)

// Viewport maps between screen cells and coordinates for a map area.
type Viewport struct {
	Left, Top, Width, Height int
	Center                   domain.Position
	Zoom                     int
}

func (vp Viewport) degPerCol() float64 {
	return baseDegPerCol * math.Pow(2, float64(defaultZoom-vp.Zoom))
}

// Project returns the cell of p and whether it lies inside the viewport.
func (vp Viewport) Project(p domain.Position) (x, y int, ok bool) {
	dc := vp.degPerCol()
	col := int(math.Round((p.Lng - vp.Center.Lng) / dc))
	row := int(math.Round((vp.Center.Lat - p.Lat) / (2 * dc)))
	x = vp.Left + vp.Width/2 + col
	y = vp.Top + vp.Height/2 + row
	ok = x >= vp.Left && x < vp.Left+vp.Width && y >= vp.Top && y < vp.Top+vp.Height
	return x, y, ok
}

// Unproject returns the coordinate under a screen cell.
func (vp Viewport) Unproject(x, y int) domain.Position {
	dc := vp.degPerCol()
	return domain.Position{
		Lat: vp.Center.Lat - float64(y-vp.Top-vp.Height/2)*2*dc,
		Lng: vp.Center.Lng + float64(x-vp.Left-vp.Width/2)*dc,
	}
}

// viewport computes the map area for a screen of w×h cells.
func (v *View) viewportLocked(w, h int) Viewport {
	mapWidth := w - sidebarWidth - 1
	if mapWidth < 10 {
		mapWidth = w
	}
	mapHeight := h - headerRows - footerRows
	if mapHeight < 3 {
		mapHeight = 3
	}
	return Viewport{Left: 0, Top: headerRows, Width: mapWidth, Height: mapHeight, Center: v.center, Zoom: v.zoom}
}

// Viewport returns the current map area for a screen of w×h cells.
func (v *View) Viewport(w, h int) Viewport {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.viewportLocked(w, h)
}

// Draw renders the whole view onto s. It does not call s.Show.
func (v *View) Draw(s tcell.Screen) {
	v.mu.Lock()
	defer v.mu.Unlock()

	s.Clear()
	w, h := s.Size()
	vp := v.viewportLocked(w, h)

	header := fmt.Sprintf(" Score %d │ %.4f, %.4f │ zoom %d ", v.score, v.player.Lat, v.player.Lng, v.zoom)
	if f, d, ok := v.nearestLocked(); ok {
		if v.haversine {
			header += fmt.Sprintf("│ nearest %s %.0f m ", f.Name, d)
		} else {
			header += fmt.Sprintf("│ nearest %s %.4f° ", f.Name, d)
		}
	}
	fill(s, 0, 0, w, styleHeader)
	drawText(s, 0, 0, w, header, styleHeader)

	for _, id := range v.order {
		m := v.markers[id]
		x, y, ok := vp.Project(m.feature.Position())
		if !ok {
			continue
		}
		r, style := '•', styleMarker
		switch {
		case m.discovered:
			r, style = '✓', styleFound
		case m.feature.Rare:
			r, style = '★', styleRare
		}
		if id == v.popup {
			style = stylePopup
		}
		s.SetContent(x, y, r, nil, style)
	}
	if x, y, ok := vp.Project(v.player); ok {
		s.SetContent(x, y, '@', nil, stylePlayer)
	}

	if vp.Width < w {
		left := vp.Width
		for y := headerRows; y < headerRows+vp.Height; y++ {
			s.SetContent(left, y, '│', nil, styleBorder)
		}
		drawText(s, left+1, headerRows, sidebarWidth, fmt.Sprintf("Places (%d)", len(v.sidebar)), styleDefault.Bold(true))
		for i, e := range v.sidebar {
			y := headerRows + 1 + i
			if y >= headerRows+vp.Height {
				break
			}
			style := styleDefault
			if i == v.selected {
				style = styleSelected
			}
			drawText(s, left+1, y, sidebarWidth, e.feature.Name, style)
		}
	}

	y := headerRows + vp.Height
	drawText(s, 0, y, w, v.message, styleMessage)
	for i, story := range v.stories {
		drawText(s, 0, y+1+i, w, story, styleStory)
	}
}

func fill(s tcell.Screen, x, y, width int, style tcell.Style) {
	for i := 0; i < width; i++ {
		s.SetContent(x+i, y, ' ', nil, style)
	}
}

func drawText(s tcell.Screen, x, y, maxWidth int, text string, style tcell.Style) {
	col := 0
	for _, r := range text {
		if col >= maxWidth {
			return
		}
		s.SetContent(x+col, y, r, nil, style)
		col++
	}
}
