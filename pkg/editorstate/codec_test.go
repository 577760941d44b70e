package editorstate

import (
	"testing"

	"github.com/vanderheijden86/ordermachine/pkg/model"
	"github.com/vanderheijden86/ordermachine/pkg/regions"
	"github.com/vanderheijden86/ordermachine/pkg/storage"
	"github.com/vanderheijden86/ordermachine/pkg/testutil"
	"pgregory.net/rapid"
)

func TestURLMarker(t *testing.T) {
	tests := []struct {
		action, tagged string
	}{
		{"/admin/page/1/change/", "/admin/page/1/change/#restore"},
		{"/admin/page/1/change/#tab-2", "/admin/page/1/change/#restore"},
		{"https://example.com/x/?_changelist_filters=a#restore", "https://example.com/x/?_changelist_filters=a#restore"},
	}
	for _, tt := range tests {
		if got := TagURL(tt.action); got != tt.tagged {
			t.Errorf("TagURL(%q) = %q, want %q", tt.action, got, tt.tagged)
		}
		if !HasMarker(tt.tagged) {
			t.Errorf("HasMarker(%q) = false", tt.tagged)
		}
	}
	if HasMarker("/restore/page/") {
		t.Error("marker outside the fragment must not count")
	}
	if got := StripMarker("/a/#restore"); got != "/a/" {
		t.Errorf("StripMarker = %q", got)
	}
	if got := StripMarker("/a/#other"); got != "/a/#other" {
		t.Errorf("StripMarker without marker = %q", got)
	}
	if got := PathOf("https://example.com/admin/x/?q=1#restore"); got != "/admin/x/" {
		t.Errorf("PathOf = %q", got)
	}
}

func TestRoundTrip(t *testing.T) {
	regs := regions.New(testutil.Regions(), "Unknown")
	rows := testutil.Sequential(4, "main")
	rows[0].Collapsed = true
	rows[2].Collapsed = true
	rows = append(rows, &model.Row{ID: "tpl", IsTemplate: true, Collapsed: true})

	session := storage.NewSafe(storage.NewMemory(), nil)
	c := New(session, "/admin/page/1/change/")
	c.Persist(Capture("sidebar", 340, rows))

	if st := c.Restore("/admin/page/1/change/"); st != nil {
		t.Fatal("restore without marker must return nil")
	}

	// reload: collapse flags reset, one row now has a validation error
	for _, r := range rows {
		r.Collapsed = false
	}
	rows[2].HasError = true

	st := c.Restore("/admin/page/1/change/#restore")
	if st == nil {
		t.Fatal("expected saved state")
	}
	if st.ScrollY != 340 {
		t.Errorf("ScrollY = %v", st.ScrollY)
	}
	region := Apply(st, rows, regs)
	if region != "sidebar" {
		t.Errorf("region = %q", region)
	}
	if !rows[0].Collapsed || rows[1].Collapsed || rows[2].Collapsed || rows[3].Collapsed {
		t.Errorf("collapsed = %v %v %v %v", rows[0].Collapsed, rows[1].Collapsed, rows[2].Collapsed, rows[3].Collapsed)
	}

	if again := c.Restore("/admin/page/1/change/#restore"); again != nil {
		t.Error("state must be consumed at most once")
	}
}

func TestRestoreCorruptBlob(t *testing.T) {
	mem := storage.NewMemory()
	mem.Set(storage.Key("/p/"), []byte("{not json"))
	c := New(storage.NewSafe(mem, nil), "/p/")
	if st := c.Restore("/p/#restore"); st != nil {
		t.Errorf("corrupt state should be ignored, got %+v", st)
	}
}

func TestApplyFallsBackToFirstRegion(t *testing.T) {
	regs := regions.New(testutil.Regions(), "Unknown")
	if got := Apply(&model.EditorState{Region: "gone"}, nil, regs); got != "main" {
		t.Errorf("Apply = %q, want main", got)
	}
	if got := Apply(nil, nil, regs); got != "main" {
		t.Errorf("Apply(nil) = %q", got)
	}
}

func TestRoundTripProperty(t *testing.T) {
	regs := regions.New(testutil.Regions(), "Unknown")
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(t, "n")
		rows := testutil.Sequential(n, "main")
		collapsed := make([]bool, n)
		for i, r := range rows {
			collapsed[i] = rapid.Bool().Draw(t, "collapsed")
			r.Collapsed = collapsed[i]
		}
		region := rapid.SampledFrom([]string{"main", "sidebar"}).Draw(t, "region")

		c := New(storage.NewSafe(storage.NewMemory(), nil), "/x/")
		c.Persist(Capture(region, 0, rows))

		errored := make([]bool, n)
		for i, r := range rows {
			r.Collapsed = false
			errored[i] = rapid.Bool().Draw(t, "error")
			r.HasError = errored[i]
		}
		got := Apply(c.Restore("/x/#restore"), rows, regs)
		if got != region {
			t.Fatalf("region = %q, want %q", got, region)
		}
		for i, r := range rows {
			if want := collapsed[i] && !errored[i]; r.Collapsed != want {
				t.Fatalf("row %d collapsed = %v, want %v", i, r.Collapsed, want)
			}
		}
	})
}
