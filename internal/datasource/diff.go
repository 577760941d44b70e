package datasource

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vanderheijden86/ordermachine/pkg/model"
)

// DocumentDiff represents differences between two versions of a page document
type DocumentDiff struct {
	// Added contains row IDs present in the new version only
	Added []string
	// Removed contains row IDs present in the old version only
	Removed []string
	// Changed contains per-field differences for rows present in both
	Changed []RowChange
	// CountA is the number of managed rows in the old version
	CountA int
	// CountB is the number of managed rows in the new version
	CountB int
	// ContextChanged is set when regions, plugins or allowChange differ
	ContextChanged bool
}

// RowChange represents a single field difference for one row
type RowChange struct {
	ID     string `json:"id"`
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// Fields compared by Diff.
const (
	FieldOrdering = "ordering"
	FieldRegion   = "region"
	FieldDelete   = "delete"
	FieldLabel    = "label"
)

// HasChanges returns true if the two versions differ in anything Diff tracks
func (d DocumentDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Changed) > 0 || d.ContextChanged
}

// Summary returns a one-line human-readable summary of the differences
func (d DocumentDiff) Summary() string {
	if !d.HasChanges() {
		return fmt.Sprintf("no changes (%d rows)", d.CountB)
	}
	var parts []string
	if len(d.Added) > 0 {
		parts = append(parts, fmt.Sprintf("%d added", len(d.Added)))
	}
	if len(d.Removed) > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", len(d.Removed)))
	}
	if n := d.count(FieldOrdering); n > 0 {
		parts = append(parts, fmt.Sprintf("%d reordered", n))
	}
	if n := d.count(FieldRegion); n > 0 {
		parts = append(parts, fmt.Sprintf("%d moved", n))
	}
	if n := len(d.Changed) - d.count(FieldOrdering) - d.count(FieldRegion); n > 0 {
		parts = append(parts, fmt.Sprintf("%d edited", n))
	}
	if d.ContextChanged {
		parts = append(parts, "context changed")
	}
	return strings.Join(parts, ", ")
}

func (d DocumentDiff) count(field string) int {
	n := 0
	for _, c := range d.Changed {
		if c.Field == field {
			n++
		}
	}
	return n
}

// DiffOptions configures the diff operation
type DiffOptions struct {
	// CompareFields specifies which row fields to compare (empty = all)
	CompareFields []string
	// MaxDifferences limits the number of changes tracked (0 = unlimited)
	MaxDifferences int
}

// DefaultDiffOptions returns sensible default diff options
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{MaxDifferences: 100}
}

// Diff compares two versions of a document. Template rows are ignored.
func Diff(a, b *model.Document, opts DiffOptions) DocumentDiff {
	var diff DocumentDiff

	mapA := rowMap(a)
	mapB := rowMap(b)
	diff.CountA = len(mapA)
	diff.CountB = len(mapB)
	diff.ContextChanged = contextChanged(a, b)

	fields := opts.CompareFields
	if len(fields) == 0 {
		fields = []string{FieldOrdering, FieldRegion, FieldDelete, FieldLabel}
	}
	room := func(n int) bool { return opts.MaxDifferences == 0 || n < opts.MaxDifferences }

	for id := range mapA {
		if _, ok := mapB[id]; !ok && room(len(diff.Removed)) {
			diff.Removed = append(diff.Removed, id)
		}
	}
	for id, rowB := range mapB {
		rowA, ok := mapA[id]
		if !ok {
			if room(len(diff.Added)) {
				diff.Added = append(diff.Added, id)
			}
			continue
		}
		for _, f := range fields {
			before, after := fieldValue(rowA, f), fieldValue(rowB, f)
			if before != after && room(len(diff.Changed)) {
				diff.Changed = append(diff.Changed, RowChange{ID: id, Field: f, Before: before, After: after})
			}
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Slice(diff.Changed, func(i, j int) bool {
		if diff.Changed[i].ID != diff.Changed[j].ID {
			return diff.Changed[i].ID < diff.Changed[j].ID
		}
		return diff.Changed[i].Field < diff.Changed[j].Field
	})
	return diff
}

func rowMap(doc *model.Document) map[string]*model.Row {
	m := make(map[string]*model.Row)
	if doc == nil {
		return m
	}
	for _, r := range doc.Rows {
		if r.Managed() {
			m[r.ID] = r
		}
	}
	return m
}

func fieldValue(r *model.Row, field string) string {
	switch field {
	case FieldOrdering:
		return r.Ordering.String()
	case FieldRegion:
		return r.Region
	case FieldDelete:
		return strconv.FormatBool(r.MarkedForDeletion)
	case FieldLabel:
		return r.Label
	}
	return r.Fields[field]
}

func contextChanged(a, b *model.Document) bool {
	if a == nil || b == nil {
		return a != b
	}
	ca, cb := a.Context, b.Context
	if ca.AllowChange != cb.AllowChange || len(ca.Regions) != len(cb.Regions) || len(ca.Plugins) != len(cb.Plugins) {
		return true
	}
	for i := range ca.Regions {
		if ca.Regions[i] != cb.Regions[i] {
			return true
		}
	}
	for i := range ca.Plugins {
		pa, pb := ca.Plugins[i], cb.Plugins[i]
		if pa.Prefix != pb.Prefix || pa.Sections != pb.Sections || strings.Join(pa.Regions, ",") != strings.Join(pb.Regions, ",") {
			return true
		}
	}
	return false
}
