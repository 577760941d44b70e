package main_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type robotDump struct {
	Document    string `json:"document"`
	AllowChange bool   `json:"allow_change"`
	Active      string `json:"active_region"`
	Regions     []struct {
		Key  string `json:"key"`
		Rows []struct {
			ID       string  `json:"id"`
			Ordering float64 `json:"ordering"`
			Indent   int     `json:"indent"`
			Parent   string  `json:"parent"`
		} `json:"rows"`
		Sections []struct {
			Opener string   `json:"opener"`
			Closer string   `json:"closer"`
			Rows   []string `json:"rows"`
		} `json:"sections"`
	} `json:"regions"`
}

func decodeDump(t *testing.T, out string) robotDump {
	t.Helper()
	if strings.ContainsRune(out, '\x1b') {
		t.Fatalf("robot output contains terminal escape sequences: %q", out)
	}
	var d robotDump
	if err := json.Unmarshal([]byte(out), &d); err != nil {
		t.Fatalf("robot output is not JSON: %v\n%s", err, out)
	}
	return d
}

func TestRobotDumpOrdersAndNests(t *testing.T) {
	page := writeFixture(t)
	res := runOm(t, "-robot-dump", page)
	if res.code != 0 {
		t.Fatalf("exit %d: %s", res.code, res.stderr)
	}
	d := decodeDump(t, res.stdout)
	if d.Document != page || d.Active != "main" || !d.AllowChange {
		t.Errorf("header = %+v", d)
	}
	if len(d.Regions) != 2 {
		t.Fatalf("regions = %d, want 2", len(d.Regions))
	}

	main := d.Regions[0]
	var ids []string
	for _, r := range main.Rows {
		ids = append(ids, r.ID)
	}
	if got := strings.Join(ids, ","); got != "open-1,text-2,close-3,text-0" {
		t.Errorf("main order = %s", got)
	}
	for i := 1; i < len(main.Rows); i++ {
		if main.Rows[i].Ordering <= main.Rows[i-1].Ordering {
			t.Errorf("orderings not increasing: %v", main.Rows)
		}
	}
	if main.Rows[1].Parent != "open-1" || main.Rows[1].Indent != 1 {
		t.Errorf("text-2 = %+v, want nested under open-1", main.Rows[1])
	}
	if main.Rows[3].Indent != 0 {
		t.Errorf("text-0 indent = %d, want 0", main.Rows[3].Indent)
	}
	if len(main.Sections) != 1 || main.Sections[0].Closer != "close-3" {
		t.Errorf("sections = %+v", main.Sections)
	}

	if len(d.Regions[1].Rows) != 1 || d.Regions[1].Rows[0].ID != "text-4" {
		t.Errorf("sidebar = %+v", d.Regions[1])
	}
}

func TestRobotDumpRegionFilter(t *testing.T) {
	page := writeFixture(t)
	res := runOm(t, "-robot-dump", "-region", "sidebar", "-doc", page)
	if res.code != 0 {
		t.Fatalf("exit %d: %s", res.code, res.stderr)
	}
	d := decodeDump(t, res.stdout)
	if d.Active != "sidebar" || len(d.Regions) != 1 || d.Regions[0].Key != "sidebar" {
		t.Errorf("dump = %+v", d)
	}

	res = runOm(t, "-robot-dump", "-region", "footer", page)
	if res.code != 2 || !strings.Contains(res.stderr, "unknown region") {
		t.Errorf("unknown region: exit %d, stderr %q", res.code, res.stderr)
	}
}

func TestExportSnapshots(t *testing.T) {
	page := writeFixture(t)
	out := filepath.Join(filepath.Dir(page), "out")

	for _, ext := range []string{".svg", ".md", ".png"} {
		path := out + ext
		res := runOm(t, "-export", path, page)
		if res.code != 0 {
			t.Fatalf("export %s: exit %d: %s", ext, res.code, res.stderr)
		}
		info, err := os.Stat(path)
		if err != nil || info.Size() == 0 {
			t.Fatalf("export %s not written: %v", ext, err)
		}
	}

	md, _ := os.ReadFile(out + ".md")
	if !strings.Contains(string(md), "## Main content") || !strings.Contains(string(md), "Intro body") {
		t.Errorf("markdown export:\n%s", md)
	}
}

func TestUsageErrors(t *testing.T) {
	res := runOm(t)
	if res.code != 2 || !strings.Contains(res.stderr, "no document") {
		t.Errorf("no args: exit %d, stderr %q", res.code, res.stderr)
	}

	res = runOm(t, "-robot-dump", filepath.Join(t.TempDir(), "missing.html"))
	if res.code != 1 {
		t.Errorf("missing document: exit %d", res.code)
	}

	res = runOm(t, "-version")
	if res.code != 0 || !strings.HasPrefix(res.stdout, "om ") {
		t.Errorf("version: exit %d, stdout %q", res.code, res.stdout)
	}
}

func TestNonTerminalFallsBackToRobotDump(t *testing.T) {
	page := writeFixture(t)
	res := runOm(t, page)
	if res.code != 0 {
		t.Fatalf("exit %d: %s", res.code, res.stderr)
	}
	decodeDump(t, res.stdout)
	if !strings.Contains(res.stderr, "not a terminal") {
		t.Errorf("stderr = %q", res.stderr)
	}
}

func TestTUIAutoClose(t *testing.T) {
	skipIfNoScript(t)
	page := writeFixture(t)
	home := t.TempDir()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cmd := scriptTUICommand(ctx, "-no-watch", page)
	cmd.Env = append(os.Environ(),
		"TERM=xterm-256color",
		"HOME="+home,
		"XDG_CONFIG_HOME="+filepath.Join(home, "config"),
		"XDG_STATE_HOME="+filepath.Join(home, "state"),
		"OM_TUI_AUTOCLOSE_MS=300",
	)
	out, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		t.Fatal("om did not auto-exit under script")
	}
	if err != nil {
		t.Skipf("script TUI run failed in this environment: %v\n%s", err, out)
	}
	if !strings.Contains(string(out), "Main content") {
		t.Errorf("TUI output does not show the region tabs:\n%q", out)
	}
}
