package sections

import (
	"github.com/vanderheijden86/ordermachine/pkg/debug"
	"github.com/vanderheijden86/ordermachine/pkg/metrics"
	"github.com/vanderheijden86/ordermachine/pkg/model"
)

// Rect is the laid-out position of a row.
type Rect struct {
	Top, Left, Height float64
}

// Geometry reports where a row is laid out. ok is false for rows that are
// not currently rendered.
type Geometry interface {
	Rect(row *model.Row) (r Rect, ok bool)
}

// Box is the frame drawn around a section. Boxes are carried over between
// rebuilds for the same opener so a renderer can keep its handle.
type Box struct {
	Opener *model.Row
	Closer *model.Row
	Level  int
	Rect   Rect
	Hidden bool
}

type boxKey struct {
	opener *model.Row
	level  int
}

// Manager rebuilds the section forest and lays out section boxes.
type Manager struct {
	delta    DeltaFunc
	geometry Geometry
	// Pad is the margin added around each box.
	Pad float64

	tree  *Tree
	boxes map[boxKey]*Box
	order []*Box
}

// NewManager creates a Manager. geometry may be nil, in which case boxes
// carry no coordinates.
func NewManager(delta DeltaFunc, geometry Geometry) *Manager {
	return &Manager{
		delta:    delta,
		geometry: geometry,
		boxes:    make(map[boxKey]*Box),
	}
}

// SetGeometry replaces the layout source used for boxes.
func (m *Manager) SetGeometry(g Geometry) {
	m.geometry = g
}

// Update rebuilds the forest for rows (already in visual order), reapplies
// collapse visibility and recomputes the boxes.
func (m *Manager) Update(rows []*model.Row) *Tree {
	defer metrics.Timer(metrics.SectionRebuild)()

	t := Build(rows, m.delta)
	t.ApplyVisibility()
	m.tree = t

	next := make(map[boxKey]*Box, len(t.Spans))
	order := make([]*Box, 0, len(t.Spans))
	for _, span := range t.Spans {
		k := boxKey{span.Opener, span.Level}
		box, ok := m.boxes[k]
		if !ok {
			box = &Box{Opener: span.Opener, Level: span.Level}
		}
		box.Closer = span.Closer
		if box.Closer == nil {
			box.Closer = lastShown(rows)
		}
		box.Hidden = span.Opener.Collapsed || span.Opener.Hidden
		box.Rect = m.layout(box)
		next[k] = box
		order = append(order, box)
	}
	dropped := len(m.boxes) - countReused(m.boxes, next)
	debug.LogIf(dropped > 0, "sections: released %d section boxes", dropped)

	m.boxes = next
	m.order = order
	return t
}

// Tree returns the forest of the last Update, or nil before the first one.
func (m *Manager) Tree() *Tree {
	return m.tree
}

// Boxes returns the boxes of the last Update in closing order.
func (m *Manager) Boxes() []*Box {
	return m.order
}

func (m *Manager) layout(box *Box) Rect {
	if m.geometry == nil {
		return Rect{}
	}
	from, ok := m.geometry.Rect(box.Opener)
	if !ok {
		return Rect{}
	}
	until, ok := m.geometry.Rect(box.Closer)
	if !ok {
		until = from
	}
	return Rect{
		Top:    from.Top - m.Pad,
		Left:   from.Left - m.Pad,
		Height: until.Top - from.Top + until.Height + 2*m.Pad,
	}
}

// lastShown returns the last row not hidden by a collapsed ancestor, or the
// last row when every row is hidden.
func lastShown(rows []*model.Row) *model.Row {
	if len(rows) == 0 {
		return nil
	}
	for i := len(rows) - 1; i >= 0; i-- {
		if !rows[i].Hidden {
			return rows[i]
		}
	}
	return rows[len(rows)-1]
}

func countReused(prev, next map[boxKey]*Box) int {
	n := 0
	for k := range next {
		if _, ok := prev[k]; ok {
			n++
		}
	}
	return n
}
