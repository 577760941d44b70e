package plugins

import (
	"testing"

	"github.com/vanderheijden86/ordermachine/pkg/model"
	"github.com/vanderheijden86/ordermachine/pkg/regions"
	"github.com/vanderheijden86/ordermachine/pkg/testutil"
)

func TestSectionDelta(t *testing.T) {
	r := New(testutil.Plugins())
	tests := []struct {
		row  *model.Row
		want int
	}{
		{&model.Row{ID: "open-1"}, 1},
		{&model.Row{ID: "x-1", Prefix: "close"}, -1},
		{&model.Row{ID: "text-4"}, 0},
		{&model.Row{ID: "nope-1"}, 0},
	}
	for _, tt := range tests {
		if got := r.SectionDelta(tt.row); got != tt.want {
			t.Errorf("SectionDelta(%s) = %d, want %d", tt.row.ID, got, tt.want)
		}
	}
	if !r.HasSections() {
		t.Error("HasSections should be true")
	}
	if New([]model.Plugin{{Prefix: "a"}}).HasSections() {
		t.Error("HasSections should be false without deltas")
	}
}

func TestIsAllowedIn(t *testing.T) {
	regs := regions.New(testutil.Regions(), "Unknown")
	unknown := regs.Classify("legacy")
	r := New(testutil.Plugins())

	tests := []struct {
		prefix, region string
		want           bool
	}{
		{"text", "main", true},
		{"text", "sidebar", true},
		{"teaser", "main", false},
		{"teaser", "sidebar", true},
		{"text", unknown, false},
		{"missing", "main", false},
	}
	for _, tt := range tests {
		if got := r.IsAllowedIn(tt.prefix, tt.region, regs); got != tt.want {
			t.Errorf("IsAllowedIn(%s, %s) = %v, want %v", tt.prefix, tt.region, got, tt.want)
		}
	}

	empty := regions.New(nil, "Unknown")
	if r.IsAllowedIn("text", "main", empty) {
		t.Error("nothing is allowed without declared regions")
	}
}

func TestAllowedRegionsExcludesUnknown(t *testing.T) {
	regs := regions.New(testutil.Regions(), "Unknown")
	regs.Classify("legacy")
	r := New(append(testutil.Plugins(), model.Plugin{Prefix: "odd", Regions: []string{"legacy", "main", "nowhere"}}))

	if got := r.AllowedRegions("text", regs); len(got) != 2 {
		t.Errorf("text allowed = %v", got)
	}
	if got := r.AllowedRegions("odd", regs); len(got) != 1 || got[0] != "main" {
		t.Errorf("odd allowed = %v", got)
	}
}
