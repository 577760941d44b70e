package testutil

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/ordermachine/pkg/model"
)

// IDs returns the IDs of rows in order.
func IDs(rows []*model.Row) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}

// ByID finds a row by ID or fails the test.
func ByID(t *testing.T, rows []*model.Row, id string) *model.Row {
	t.Helper()
	for _, r := range rows {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("row %s not found", id)
	return nil
}

// AssertOrder verifies the IDs of rows match want exactly.
func AssertOrder(t *testing.T, rows []*model.Row, want ...string) {
	t.Helper()
	got := IDs(rows)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", got, want)
	}
}

// AssertStrictlyIncreasing verifies that orderings in rows increase strictly.
func AssertStrictlyIncreasing(t *testing.T, rows []*model.Row) {
	t.Helper()
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1].Ordering, rows[i].Ordering
		if !prev.Valid || !cur.Valid || prev.Value >= cur.Value {
			t.Errorf("ordering not strictly increasing at %d: %s (%s) then %s (%s)",
				i, rows[i-1].ID, prev.String(), rows[i].ID, cur.String())
		}
	}
}

// Snapshot captures the ordering and region of every row.
func Snapshot(rows []*model.Row) map[string][2]string {
	out := make(map[string][2]string, len(rows))
	for _, r := range rows {
		out[r.ID] = [2]string{r.Ordering.String(), r.Region}
	}
	return out
}
