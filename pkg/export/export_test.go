package export

import (
	"bytes"
	"encoding/xml"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/ordermachine/pkg/model"
	"github.com/vanderheijden86/ordermachine/pkg/plugins"
	"github.com/vanderheijden86/ordermachine/pkg/regions"
	"github.com/vanderheijden86/ordermachine/pkg/testutil"
)

func row(id, region string, ord float64) *model.Row {
	return &model.Row{ID: id, Region: region, RegionKey: region, Label: "Label " + id, Ordering: model.NewOrdering(ord)}
}

func fixture() SnapshotOptions {
	rows := []*model.Row{
		row("open-0", "main", 10),
		row("text-1", "main", 20),
		row("close-2", "main", 30),
		row("text-3", "main", 40),
		row("teaser-4", "sidebar", 50),
		{ID: "text-empty", IsTemplate: true},
	}
	rows[1].HasError = true
	rows[3].MarkedForDeletion = true
	return SnapshotOptions{
		Title:   "Page <1>",
		Rows:    rows,
		Regions: regions.New(testutil.Regions(), "Unknown region"),
		Plugins: plugins.New(testutil.Plugins()),
	}
}

func TestBuildLayout(t *testing.T) {
	l := BuildLayout(fixture())
	if len(l.Columns) != 2 {
		t.Fatalf("columns = %d, want 2", len(l.Columns))
	}
	if l.RowCount != 5 || l.SectionCount != 1 {
		t.Errorf("rows=%d sections=%d, want 5 and 1", l.RowCount, l.SectionCount)
	}

	main := l.Columns[0]
	if main.Key != "main" || len(main.Rows) != 4 {
		t.Fatalf("main column = %+v", main)
	}
	if main.Rows[1].Indent != 1 || main.Rows[3].Indent != 0 {
		t.Errorf("indents = %d,%d, want 1,0", main.Rows[1].Indent, main.Rows[3].Indent)
	}
	if main.Rows[1].X <= main.Rows[0].X {
		t.Error("nested row should be indented")
	}
	if !main.Rows[0].Opener {
		t.Error("open-0 should be an opener")
	}
	if main.Rows[3].Color != colorDeleted {
		t.Error("deleted rows use the deleted color")
	}

	box := main.Boxes[0]
	first, closer := main.Rows[0], main.Rows[2]
	if box.Y >= first.Y || box.Y+box.H <= closer.Y+closer.H {
		t.Errorf("box %+v does not enclose open-0..close-2", box)
	}
	if l.Columns[1].X <= main.X {
		t.Error("sidebar column should sit right of main")
	}
}

func TestBuildLayoutSingleRegion(t *testing.T) {
	opts := fixture()
	opts.Region = "sidebar"
	l := BuildLayout(opts)
	if len(l.Columns) != 1 || l.Columns[0].Key != "sidebar" || l.RowCount != 1 {
		t.Errorf("layout = %+v", l)
	}
}

func TestSaveSnapshotSVG(t *testing.T) {
	opts := fixture()
	opts.Path = filepath.Join(t.TempDir(), "out", "layout.svg")
	if err := SaveSnapshot(opts); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	content, err := os.ReadFile(opts.Path)
	if err != nil {
		t.Fatal(err)
	}
	var doc interface{}
	if err := xml.Unmarshal(content, &doc); err != nil {
		t.Errorf("SVG is not valid XML: %v", err)
	}
	s := string(content)
	for _, want := range []string{"<svg", `id="region-main"`, "Page &lt;1&gt;", "open-0"} {
		if !strings.Contains(s, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
}

func TestSaveSnapshotPNG(t *testing.T) {
	opts := fixture()
	opts.Path = filepath.Join(t.TempDir(), "layout.png")
	if err := SaveSnapshot(opts); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	f, err := os.Open(opts.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	l := BuildLayout(opts)
	if b := img.Bounds(); b.Dx() != l.Width || b.Dy() != l.Height {
		t.Errorf("size = %v, want %dx%d", b, l.Width, l.Height)
	}
}

func TestSaveSnapshotMarkdown(t *testing.T) {
	opts := fixture()
	opts.Path = filepath.Join(t.TempDir(), "layout.md")
	if err := SaveSnapshot(opts); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	content, _ := os.ReadFile(opts.Path)
	s := string(content)
	for _, want := range []string{
		"## Main content",
		"- [-] Label open-0",
		"  - Label text-1 `text-1`",
		"~~Label text-3~~",
		"open-0[\"(-) Label open-0\"] --> text-1",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("markdown missing %q\n%s", want, s)
		}
	}
}

func TestSaveSnapshotErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SnapshotOptions)
		want   string
	}{
		{"no path", func(o *SnapshotOptions) { o.Path = "" }, "output path"},
		{"no rows", func(o *SnapshotOptions) { o.Rows = nil }, "no rows"},
		{"bad format", func(o *SnapshotOptions) { o.Format = "gif" }, "unsupported format"},
		{"no registries", func(o *SnapshotOptions) { o.Regions = nil }, "required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := fixture()
			opts.Path = filepath.Join(t.TempDir(), "x.svg")
			tt.mutate(&opts)
			err := SaveSnapshot(opts)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestSaveSnapshotDefaultsToSVG(t *testing.T) {
	opts := fixture()
	opts.Path = filepath.Join(t.TempDir(), "layout")
	if err := SaveSnapshot(opts); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(opts.Path + ".svg"); err != nil {
		t.Errorf("expected .svg to be appended: %v", err)
	}
}

func TestRobotDump(t *testing.T) {
	opts := fixture()
	d := BuildRobotDump(opts.Rows, opts.Regions, opts.Plugins)
	if len(d.Regions) != 2 {
		t.Fatalf("regions = %d", len(d.Regions))
	}
	main := d.Regions[0]
	if len(main.Rows) != 4 {
		t.Fatalf("main rows = %d, template must be excluded", len(main.Rows))
	}
	if main.Rows[1].Parent != "open-0" || main.Rows[1].Indent != 1 || !main.Rows[1].HasError {
		t.Errorf("text-1 = %+v", main.Rows[1])
	}
	if len(main.Sections) != 1 {
		t.Fatalf("sections = %+v", main.Sections)
	}
	s := main.Sections[0]
	if s.Opener != "open-0" || s.Closer != "close-2" || strings.Join(s.Rows, ",") != "text-1,close-2" {
		t.Errorf("section = %+v", s)
	}

	var buf bytes.Buffer
	if err := WriteRobotJSON(&buf, d); err != nil {
		t.Fatal(err)
	}
	var back RobotDump
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("robot JSON does not parse: %v", err)
	}
	if back.Regions[1].Rows[0].ID != "teaser-4" {
		t.Errorf("sidebar rows = %+v", back.Regions[1].Rows)
	}
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"#ff0000", true},
		{"0f0", true},
		{"", false},
		{"#zzzzzz", false},
	}
	for _, tt := range tests {
		if _, ok := parseHex(tt.in); ok != tt.ok {
			t.Errorf("parseHex(%q) ok = %v, want %v", tt.in, ok, tt.ok)
		}
	}
}
