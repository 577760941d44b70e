// Package sections derives the nested section forest from a flat, ordered
// list of rows whose plugin types open or close nesting levels.
//
// The forest is a snapshot: Build scans the rows once with an explicit stack
// and the result is discarded and rebuilt on every structural change.
package sections

import (
	"github.com/vanderheijden86/ordermachine/pkg/model"
)

// DeltaFunc returns the nesting depth change a row introduces.
type DeltaFunc func(*model.Row) int

// Span is the extent of one section, from the row that opened it to the row
// at which it closed.
type Span struct {
	Opener *model.Row
	// Closer is nil when the section was still open at the end of the list.
	Closer *model.Row
	// Level is the nesting level the section opened, starting at 1.
	Level int
}

// Tree is the section forest for one ordered row sequence.
type Tree struct {
	TopLevel []*model.Row
	Spans    []Span

	rows     []*model.Row
	children map[*model.Row][]*model.Row
	indent   map[*model.Row]int
	parent   map[*model.Row]*model.Row
}

// Build scans rows in visual order. Depth never drops below zero; a row
// with a delta above one opens several nested levels at once.
func Build(rows []*model.Row, delta DeltaFunc) *Tree {
	t := &Tree{
		rows:     rows,
		children: make(map[*model.Row][]*model.Row),
		indent:   make(map[*model.Row]int, len(rows)),
		parent:   make(map[*model.Row]*model.Row),
	}

	depth := 0
	var stack []*model.Row
	closeAt := func(at *model.Row) {
		opener := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t.Spans = append(t.Spans, Span{Opener: opener, Closer: at, Level: len(stack) + 1})
	}

	for _, row := range rows {
		t.indent[row] = depth
		next := depth + delta(row)
		if next < 0 {
			next = 0
		}

		if len(stack) > 0 {
			top := stack[len(stack)-1]
			t.children[top] = append(t.children[top], row)
			t.parent[row] = top
		} else {
			t.TopLevel = append(t.TopLevel, row)
		}

		for depth < next {
			stack = append(stack, row)
			if _, ok := t.children[row]; !ok {
				t.children[row] = []*model.Row{}
			}
			depth++
		}
		for depth > next {
			closeAt(row)
			depth--
		}
	}

	for len(stack) > 0 {
		closeAt(nil)
	}
	return t
}

// Rows returns the sequence the tree was built from.
func (t *Tree) Rows() []*model.Row {
	return t.rows
}

// Children returns the direct children of row.
func (t *Tree) Children(row *model.Row) []*model.Row {
	return t.children[row]
}

// IsOpener reports whether row opened at least one section.
func (t *Tree) IsOpener(row *model.Row) bool {
	_, ok := t.children[row]
	return ok
}

// Parent returns the opener whose section directly contains row.
func (t *Tree) Parent(row *model.Row) (*model.Row, bool) {
	p, ok := t.parent[row]
	return p, ok
}

// Indent returns the nesting level row is rendered at.
func (t *Tree) Indent(row *model.Row) int {
	return t.indent[row]
}

// Descendants returns every row below row, depth first.
func (t *Tree) Descendants(row *model.Row) []*model.Row {
	var out []*model.Row
	var walk func(*model.Row)
	walk = func(r *model.Row) {
		for _, c := range t.children[r] {
			out = append(out, c)
			walk(c)
		}
	}
	walk(row)
	return out
}

// HideSection hides or shows the descendants of row. Children that are
// themselves collapsed are shown but keep their own descendants hidden.
func (t *Tree) HideSection(row *model.Row, hide bool) {
	for _, child := range t.children[row] {
		if child == nil {
			continue
		}
		child.Hidden = hide
		t.HideSection(child, hide || child.Collapsed)
	}
}

// SelectSection marks every descendant of row as selected.
func (t *Tree) SelectSection(row *model.Row) {
	for _, child := range t.children[row] {
		child.Selected = true
		t.SelectSection(child)
	}
}

// ApplyVisibility derives the Hidden flag of every row from the collapse
// state of its ancestors.
func (t *Tree) ApplyVisibility() {
	for _, row := range t.TopLevel {
		row.Hidden = false
		t.HideSection(row, row.Collapsed)
	}
}
