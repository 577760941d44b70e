package editor

import (
	"sync"

	"github.com/vanderheijden86/ordermachine/pkg/drag"
	"github.com/vanderheijden86/ordermachine/pkg/model"
	"github.com/vanderheijden86/ordermachine/pkg/sections"
)

// Viewport is the scrollable area the rows are laid out in.
type Viewport interface {
	drag.Scroller
	ScrollY() float64
	ScrollTo(y float64)
}

// Window is an in-memory Viewport. It is safe for concurrent use because
// the auto-scroll monitor reads its height from its own goroutine.
type Window struct {
	mu      sync.Mutex
	height  float64
	y       float64
	max     float64
	bounded bool
}

// NewWindow creates a window of the given height.
func NewWindow(height float64) *Window {
	return &Window{height: height}
}

func (w *Window) ViewportHeight() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.height
}

// SetHeight resizes the window.
func (w *Window) SetHeight(h float64) {
	w.mu.Lock()
	w.height = h
	w.mu.Unlock()
}

// SetMax sets the largest scroll offset. Windows start unbounded.
func (w *Window) SetMax(max float64) {
	w.mu.Lock()
	w.max = max
	w.bounded = true
	w.y = w.clamp(w.y)
	w.mu.Unlock()
}

func (w *Window) ScrollY() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.y
}

func (w *Window) ScrollBy(dy float64) {
	w.mu.Lock()
	w.y = w.clamp(w.y + dy)
	w.mu.Unlock()
}

func (w *Window) ScrollTo(y float64) {
	w.mu.Lock()
	w.y = w.clamp(y)
	w.mu.Unlock()
}

func (w *Window) clamp(y float64) float64 {
	if y < 0 {
		return 0
	}
	if w.bounded && y > w.max {
		return w.max
	}
	return y
}

// listGeometry lays the shown rows of the active region out as a single
// column. Positions are computed lazily because section visibility is only
// final once the tree has been applied.
type listGeometry struct {
	e         *Editor
	rowHeight float64
	indent    float64
	index     map[*model.Row]int
}

func (g *listGeometry) invalidate() {
	g.index = nil
}

func (g *listGeometry) Rect(row *model.Row) (sections.Rect, bool) {
	if g.index == nil {
		g.index = make(map[*model.Row]int)
		for i, r := range g.e.Visible() {
			g.index[r] = i
		}
	}
	i, ok := g.index[row]
	if !ok {
		return sections.Rect{}, false
	}
	left := 0.0
	if t := g.e.sections.Tree(); t != nil {
		left = float64(t.Indent(row)) * g.indent
	}
	return sections.Rect{Top: float64(i) * g.rowHeight, Left: left, Height: g.rowHeight}, true
}
