package ordering

import (
	"fmt"
	"testing"

	"github.com/vanderheijden86/ordermachine/pkg/model"
	"github.com/vanderheijden86/ordermachine/pkg/testutil"
	"pgregory.net/rapid"
)

func TestNormalizeReproducesVisualOrder(t *testing.T) {
	rows := []*model.Row{
		{ID: "a", Ordering: model.NewOrdering(30)},
		{ID: "b", Ordering: model.NewOrdering(5)},
		{ID: "c", Ordering: model.ParseOrdering("")},
		{ID: "d", Ordering: model.NewOrdering(12.5)},
		{ID: "tpl", IsTemplate: true, Ordering: model.NewOrdering(1)},
	}
	Normalize(rows)

	sorted := Sorted(rows)
	testutil.AssertOrder(t, sorted, "b", "d", "a", "c")
	testutil.AssertStrictlyIncreasing(t, sorted)
	if sorted[0].Ordering.Value != 10 || sorted[3].Ordering.Value != 40 {
		t.Errorf("expected gapped values 10..40, got %s..%s", sorted[0].Ordering, sorted[3].Ordering)
	}
	if rows[4].Ordering.Value != 1 {
		t.Errorf("template row must not be renumbered, got %s", rows[4].Ordering)
	}
}

func TestBiggest(t *testing.T) {
	tests := []struct {
		name string
		rows []*model.Row
		want float64
	}{
		{"empty", nil, 10},
		{"skips invalid", []*model.Row{
			{ID: "a", Ordering: model.NewOrdering(20)},
			{ID: "b", Ordering: model.ParseOrdering("x")},
		}, 30},
		{"ignores template", []*model.Row{
			{ID: "a", Ordering: model.NewOrdering(20)},
			{ID: "t", IsTemplate: true, Ordering: model.NewOrdering(900)},
		}, 30},
		{"only invalid", []*model.Row{{ID: "a"}}, 10},
		{"all negative", []*model.Row{
			{ID: "a", Ordering: model.NewOrdering(-30)},
			{ID: "b", Ordering: model.NewOrdering(-5)},
		}, 5},
	}
	for _, tt := range tests {
		if got := Biggest(tt.rows); got != tt.want {
			t.Errorf("%s: Biggest = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestInsertAdjacent(t *testing.T) {
	for _, after := range []bool{false, true} {
		rows := testutil.Sequential(4, "main")
		m := &model.Row{ID: "M", Region: "main"}
		all := append(rows, m)

		InsertAdjacent(all, m, rows[2], after)

		want := []string{"text-0", "text-1", "M", "text-2", "text-3"}
		if after {
			want = []string{"text-0", "text-1", "text-2", "M", "text-3"}
		}
		got := Sorted(all)
		testutil.AssertOrder(t, got, want...)
		testutil.AssertStrictlyIncreasing(t, got)
	}
}

func TestInsertAdjacentSkipsInvalidAndNoAnchor(t *testing.T) {
	rows := testutil.Sequential(3, "main")
	broken := &model.Row{ID: "broken"}
	m := &model.Row{ID: "M", Ordering: model.NewOrdering(99)}
	all := append(rows, broken, m)

	InsertAdjacent(all, m, rows[0], false)
	if broken.Ordering.Valid {
		t.Errorf("row with invalid ordering must be skipped, got %s", broken.Ordering)
	}
	testutil.AssertOrder(t, Sorted(all), "M", "text-0", "text-1", "text-2", "broken")

	before := testutil.Snapshot(all)
	InsertAdjacent(all, m, broken, true)
	after := testutil.Snapshot(all)
	for id, v := range before {
		if after[id] != v {
			t.Errorf("anchor without ordering must be a no-op; %s changed %v -> %v", id, v, after[id])
		}
	}
}

func TestMoveSelectionPreservesRelativeOrder(t *testing.T) {
	rows := testutil.Sequential(5, "main")
	// positions 1 and 3 (1-indexed), dropped after position 5
	MoveSelection(rows, []*model.Row{rows[2], rows[0]}, rows[4], true)
	testutil.AssertOrder(t, Sorted(rows), "text-1", "text-3", "text-4", "text-0", "text-2")

	rows = testutil.Sequential(5, "main")
	MoveSelection(rows, []*model.Row{rows[4], rows[2]}, rows[0], false)
	testutil.AssertOrder(t, Sorted(rows), "text-2", "text-4", "text-0", "text-1", "text-3")
}

func TestInRegion(t *testing.T) {
	rows := testutil.New(testutil.GeneratorConfig{Regions: []string{"main", "sidebar"}}).Rows(6)
	main := InRegion(rows, "main")
	if len(main) != 3 {
		t.Fatalf("expected 3 main rows, got %d", len(main))
	}
	for _, r := range main {
		if r.Region != "main" {
			t.Errorf("row %s from region %s leaked into main", r.ID, r.Region)
		}
	}
	testutil.AssertStrictlyIncreasing(t, main)
}

func TestNormalizeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		values := rapid.SliceOf(rapid.Float64Range(-1000, 1000)).Draw(t, "orderings")
		rows := make([]*model.Row, len(values))
		for i, v := range values {
			rows[i] = &model.Row{ID: fmt.Sprintf("r%d", i), Ordering: model.NewOrdering(v)}
		}
		visual := Sorted(rows)
		Normalize(rows)
		after := Sorted(rows)
		for i := range visual {
			if visual[i] != after[i] {
				t.Fatalf("visual order changed at %d", i)
			}
			if after[i].Ordering.Value != float64(Step*(i+1)) {
				t.Fatalf("row %d has ordering %v", i, after[i].Ordering.Value)
			}
		}
	})
}

func TestMoveSelectionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 12).Draw(t, "n")
		rows := testutil.Sequential(n, "main")
		picked := rapid.SliceOfNDistinct(rapid.IntRange(0, n-1), 1, n-1, rapid.ID[int]).Draw(t, "picked")
		anchorIdx := rapid.IntRange(0, n-1).Draw(t, "anchor")
		after := rapid.Bool().Draw(t, "after")

		index := map[*model.Row]int{}
		for i, r := range rows {
			index[r] = i
		}
		selected := map[*model.Row]bool{}
		var moving []*model.Row
		for _, i := range picked {
			moving = append(moving, rows[i])
			selected[rows[i]] = true
		}
		if selected[rows[anchorIdx]] {
			t.Skip("anchor is part of the selection")
		}

		MoveSelection(rows, moving, rows[anchorIdx], after)
		sorted := Sorted(rows)

		// moved rows keep their original relative order and are contiguous
		var movedSeq []*model.Row
		first, last := -1, -1
		for i, r := range sorted {
			if selected[r] {
				movedSeq = append(movedSeq, r)
				if first < 0 {
					first = i
				}
				last = i
			}
		}
		if last-first+1 != len(movedSeq) {
			t.Fatalf("moved rows are not contiguous: %v", testutil.IDs(sorted))
		}
		for i := 1; i < len(movedSeq); i++ {
			if index[movedSeq[i-1]] > index[movedSeq[i]] {
				t.Fatalf("relative order lost: %v", testutil.IDs(movedSeq))
			}
		}
		for i := 1; i < len(sorted); i++ {
			if sorted[i-1].Ordering.Value >= sorted[i].Ordering.Value {
				t.Fatalf("orderings not strictly increasing")
			}
		}
	})
}
