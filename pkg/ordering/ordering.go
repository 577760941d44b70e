// Package ordering keeps the numeric ordering values of rows consistent with
// their visual position.
//
// Orderings are renumbered in steps of 10. Template rows never take part, and
// rows whose ordering is not a number sort last and are skipped by the
// numeric scans rather than causing an error.
package ordering

import (
	"sort"

	"github.com/vanderheijden86/ordermachine/pkg/metrics"
	"github.com/vanderheijden86/ordermachine/pkg/model"
)

// Step is the gap between consecutive ordering values.
const Step = 10

// Sorted returns the managed rows in visual order: ascending ordering,
// invalid orderings last, ties kept in input order.
func Sorted(rows []*model.Row) []*model.Row {
	out := model.ManagedRows(rows)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Ordering.SortKey() < out[j].Ordering.SortKey()
	})
	return out
}

// Normalize renumbers every managed row to Step*(index+1) in visual order.
func Normalize(rows []*model.Row) {
	defer metrics.Timer(metrics.Normalize)()
	for i, r := range Sorted(rows) {
		r.Ordering = model.NewOrdering(float64(Step * (i + 1)))
	}
}

// Biggest returns Step plus the largest valid ordering among managed rows,
// or Step when there is none.
func Biggest(rows []*model.Row) float64 {
	highest, found := 0.0, false
	for _, r := range rows {
		if !r.Managed() || !r.Ordering.Valid {
			continue
		}
		if !found || r.Ordering.Value > highest {
			highest, found = r.Ordering.Value, true
		}
	}
	return Step + highest
}

// SetBiggest moves row to the end of the global order.
func SetBiggest(rows []*model.Row, row *model.Row) {
	if row == nil {
		return
	}
	row.Ordering = model.NewOrdering(Biggest(rows))
}

// InsertAdjacent places moving directly before (or after) anchor and
// renumbers the affected rows.
//
// Rows other than moving are split around the anchor's current ordering: with
// after=false a row equal to the anchor lands after the insertion point, with
// after=true it lands before. Rows whose ordering is not numeric keep their
// value. When the anchor itself has no numeric ordering there is no insertion
// point and the call is a no-op, as is moving a row next to itself.
func InsertAdjacent(rows []*model.Row, moving, anchor *model.Row, after bool) {
	if !moving.Managed() || anchor == nil || anchor == moving || !anchor.Ordering.Valid {
		return
	}
	pivot := anchor.Ordering.Value

	var before, rest []*model.Row
	for _, r := range rows {
		if r == moving || !r.Managed() || !r.Ordering.Valid {
			continue
		}
		v := r.Ordering.Value
		if (after && v > pivot) || (!after && v >= pivot) {
			rest = append(rest, r)
		} else {
			before = append(before, r)
		}
	}
	byOrdering(before)
	byOrdering(rest)

	seq := make([]*model.Row, 0, len(before)+1+len(rest))
	seq = append(seq, before...)
	seq = append(seq, moving)
	seq = append(seq, rest...)
	for i, r := range seq {
		r.Ordering = model.NewOrdering(float64(Step * (i + 1)))
	}
}

// MoveSelection inserts every row of moving next to anchor while keeping the
// relative order of the moved rows. Rows are processed in descending prior
// ordering when inserting after the anchor and ascending otherwise, so each
// InsertAdjacent call pushes the previously placed rows outward.
func MoveSelection(rows []*model.Row, moving []*model.Row, anchor *model.Row, after bool) {
	type entry struct {
		row   *model.Row
		prior float64
	}
	entries := make([]entry, 0, len(moving))
	for _, r := range moving {
		if r.Managed() {
			entries = append(entries, entry{row: r, prior: r.Ordering.SortKey()})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if after {
			return entries[i].prior > entries[j].prior
		}
		return entries[i].prior < entries[j].prior
	})
	for _, e := range entries {
		InsertAdjacent(rows, e.row, anchor, after)
	}
}

// InRegion returns the managed rows of region in visual order.
func InRegion(rows []*model.Row, region string) []*model.Row {
	var out []*model.Row
	for _, r := range Sorted(rows) {
		if r.Key() == region {
			out = append(out, r)
		}
	}
	return out
}

func byOrdering(rows []*model.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Ordering.Value < rows[j].Ordering.Value
	})
}
