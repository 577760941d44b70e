package main

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/ordermachine/internal/datasource"
	"github.com/vanderheijden86/ordermachine/pkg/config"
	"github.com/vanderheijden86/ordermachine/pkg/debug"
	"github.com/vanderheijden86/ordermachine/pkg/editor"
	"github.com/vanderheijden86/ordermachine/pkg/export"
	"github.com/vanderheijden86/ordermachine/pkg/model"
	"github.com/vanderheijden86/ordermachine/pkg/testutil"
)

func testEditor(t *testing.T) *editor.Editor {
	t.Helper()
	doc := &model.Document{
		Context: model.Context{Regions: testutil.Regions(), Plugins: testutil.Plugins(), AllowChange: true},
		Rows: []*model.Row{
			{ID: "text-0", Region: "main", Ordering: model.NewOrdering(20)},
			{ID: "open-1", Region: "main", Ordering: model.NewOrdering(10)},
			{ID: "teaser-2", Region: "sidebar", Ordering: model.NewOrdering(30)},
		},
	}
	e := editor.New(doc, datasource.NewFormset(doc), editor.Options{})
	t.Cleanup(e.Close)
	return e
}

func TestSavePath(t *testing.T) {
	tests := []struct {
		src  datasource.Source
		want string
	}{
		{datasource.Source{Path: "/p/page.json", Format: datasource.FormatJSON}, "/p/page.json"},
		{datasource.Source{Path: "/p/page.html", Format: datasource.FormatHTML}, "/p/page.json"},
		{datasource.Source{Path: "/p/page", Format: datasource.FormatHTML}, "/p/page.json"},
	}
	for _, tt := range tests {
		if got := savePath(tt.src); got != tt.want {
			t.Errorf("savePath(%s) = %s, want %s", tt.src.Path, got, tt.want)
		}
	}
}

func TestFileURL(t *testing.T) {
	got := fileURL("page.html")
	if !strings.HasPrefix(got, "file:///") || !strings.HasSuffix(got, "/page.html") {
		t.Errorf("fileURL = %s", got)
	}
}

func TestWriteRobotDump(t *testing.T) {
	e := testEditor(t)
	e.Start("https://example.com/page/")

	var buf bytes.Buffer
	src := datasource.Source{Path: "/p/page.json", Format: datasource.FormatJSON}
	if err := writeRobotDump(&buf, e, src, ""); err != nil {
		t.Fatal(err)
	}
	var d export.RobotDump
	if err := json.Unmarshal(buf.Bytes(), &d); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if d.Document != "/p/page.json" || d.Active != "main" || !d.AllowChange {
		t.Errorf("dump header = %+v", d)
	}
	if len(d.Regions) != 2 || d.Regions[0].Rows[0].ID != "open-1" {
		t.Errorf("regions = %+v", d.Regions)
	}

	buf.Reset()
	if err := writeRobotDump(&buf, e, src, "sidebar"); err != nil {
		t.Fatal(err)
	}
	d = export.RobotDump{}
	if err := json.Unmarshal(buf.Bytes(), &d); err != nil {
		t.Fatal(err)
	}
	if len(d.Regions) != 1 || d.Regions[0].Key != "sidebar" {
		t.Errorf("filtered regions = %+v", d.Regions)
	}
}

func TestRunScripts(t *testing.T) {
	dir := t.TempDir()
	ok := filepath.Join(dir, "ok.js")
	if err := os.WriteFile(ok, []byte(`contentEditor.on("ready", function () { console.log("ready", contentEditor.active()); });`), 0o644); err != nil {
		t.Fatal(err)
	}

	e := testEditor(t)
	var out bytes.Buffer
	err := runScripts(e, []string{ok, filepath.Join(dir, "missing.js")}, &out)
	if err == nil {
		t.Error("missing script should be reported")
	}
	e.Start("https://example.com/page/")
	if got := strings.TrimSpace(out.String()); got != "ready main" {
		t.Errorf("script output = %q", got)
	}

	if err := runScripts(e, nil, &out); err != nil {
		t.Errorf("no scripts: %v", err)
	}
}

func TestOpenStores(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Storage.SessionDB = filepath.Join(dir, "state", "session.db")
	cfg.Storage.LocalDir = filepath.Join(dir, "local")

	s := openStores(cfg)
	defer s.Close()
	if s.sqlite == nil {
		t.Fatal("expected the SQLite session store")
	}
	if err := s.session.Set("k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := s.local.Set("collapseAll", []byte("true")); err != nil {
		t.Fatal(err)
	}
	if got, err := s.local.Get("collapseAll"); err != nil || string(got) != "true" {
		t.Errorf("local = %q, %v", got, err)
	}
}

func TestHooksDir(t *testing.T) {
	src := datasource.Source{Path: "/p/site/page.html", Format: datasource.FormatHTML}
	if got := hooksDir(src, false); got != "/p/site" {
		t.Errorf("hooksDir = %s", got)
	}
	if got := hooksDir(src, true); got != "" {
		t.Errorf("disabled hooksDir = %q", got)
	}
}

func TestShouldSuppressTTYQueries(t *testing.T) {
	tests := []struct {
		args     []string
		envRobot bool
		want     bool
	}{
		{[]string{"page.html"}, false, false},
		{[]string{"-robot-dump", "page.html"}, false, true},
		{[]string{"--robot-dump"}, false, true},
		{[]string{"-export=out.svg"}, false, true},
		{[]string{"-version"}, false, true},
		{[]string{"export"}, false, false},
		{[]string{"page.html"}, true, true},
	}
	for _, tt := range tests {
		if got := shouldSuppressTTYQueries(tt.args, tt.envRobot, false); got != tt.want {
			t.Errorf("shouldSuppressTTYQueries(%v, %v) = %v, want %v", tt.args, tt.envRobot, got, tt.want)
		}
	}
}

func TestDebugLogFile(t *testing.T) {
	debug.SetEnabled(false)
	if f := debugLogFile(); f != nil {
		f.Close()
		t.Fatal("debug off should not open a log file")
	}

	path := filepath.Join(t.TempDir(), "debug.log")
	t.Setenv("OM_DEBUG_LOG", path)
	debug.SetEnabled(true)
	t.Cleanup(func() {
		debug.SetOutput(os.Stderr)
		debug.SetEnabled(false)
		log.SetOutput(os.Stderr)
	})

	f := debugLogFile()
	if f == nil {
		t.Fatal("expected a log file")
	}
	debug.Log("ui: reloaded %s", "page.json")
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "ui: reloaded page.json") {
		t.Errorf("log file = %q", data)
	}
}
