package hooks

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeHooksFile(t *testing.T, dir, content string) {
	t.Helper()
	om := filepath.Join(dir, ".om")
	if err := os.MkdirAll(om, 0o755); err != nil {
		t.Fatalf("mkdir .om: %v", err)
	}
	if err := os.WriteFile(filepath.Join(om, "hooks.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write hooks.yaml: %v", err)
	}
}

func testContext() SaveContext {
	return SaveContext{
		DocumentPath: "/tmp/page.json",
		RestoreURL:   "https://example.com/page/#restore",
		RowCount:     7,
		DeletedCount: 2,
		Timestamp:    time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
	}
}

func TestSaveContextToEnv(t *testing.T) {
	env := strings.Join(testContext().ToEnv(), "\n")
	for _, want := range []string{
		"OM_DOCUMENT_PATH=/tmp/page.json",
		"OM_RESTORE_URL=https://example.com/page/#restore",
		"OM_ROW_COUNT=7",
		"OM_DELETED_COUNT=2",
		"OM_TIMESTAMP=2026-03-01T10:30:00Z",
	} {
		if !strings.Contains(env, want) {
			t.Errorf("env missing %s", want)
		}
	}
}

func TestLoaderNoConfig(t *testing.T) {
	loader := NewLoader(WithProjectDir(t.TempDir()))
	if err := loader.Load(); err != nil {
		t.Fatalf("expected no error for missing config, got: %v", err)
	}
	if loader.HasHooks() {
		t.Error("expected no hooks when config is missing")
	}
}

func TestLoaderDefaults(t *testing.T) {
	dir := t.TempDir()
	writeHooksFile(t, dir, `
hooks:
  pre-save:
    - name: validate
      command: echo "validating"
      timeout: 5s
    - command: "  "
  post-save:
    - command: echo "done"
      timeout: 10
      env:
        CUSTOM_VAR: custom_value
`)
	loader := NewLoader(WithProjectDir(dir))
	if err := loader.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	pre := loader.GetHooks(PreSave)
	if len(pre) != 1 {
		t.Fatalf("pre-save hooks = %d, want 1", len(pre))
	}
	if pre[0].Timeout != 5*time.Second || pre[0].OnError != "fail" {
		t.Errorf("pre hook = %+v", pre[0])
	}
	if len(loader.Warnings()) != 1 {
		t.Errorf("warnings = %v, want one for the empty command", loader.Warnings())
	}

	post := loader.GetHooks(PostSave)
	if len(post) != 1 {
		t.Fatalf("post-save hooks = %d, want 1", len(post))
	}
	if post[0].Name != "post-save-1" || post[0].OnError != "continue" || post[0].Timeout != 10*time.Second {
		t.Errorf("post hook = %+v", post[0])
	}
	if post[0].Env["CUSTOM_VAR"] != "custom_value" {
		t.Errorf("env = %v", post[0].Env)
	}
}

func TestLoaderInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeHooksFile(t, dir, "hooks: [")
	if err := NewLoader(WithProjectDir(dir)).Load(); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadDefaultUsesCWD(t *testing.T) {
	dir := t.TempDir()
	writeHooksFile(t, dir, "hooks:\n  post-save:\n    - command: echo ok\n")
	t.Chdir(dir)

	loader, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault error: %v", err)
	}
	if !loader.HasHooks() {
		t.Fatal("expected hooks loaded via cwd")
	}
}

func TestExecutor(t *testing.T) {
	t.Setenv("TEST_HOOK_VAR", "expanded_value")

	tests := []struct {
		name    string
		phase   HookPhase
		hooks   []Hook
		wantErr bool
		stdout  []string
		success []bool
	}{
		{
			name:    "simple",
			phase:   PreSave,
			hooks:   []Hook{{Name: "echo", Command: "echo hello", OnError: "fail"}},
			stdout:  []string{"hello"},
			success: []bool{true},
		},
		{
			name:    "context env",
			phase:   PreSave,
			hooks:   []Hook{{Name: "env", Command: "echo $OM_DOCUMENT_PATH $OM_ROW_COUNT", OnError: "fail"}},
			stdout:  []string{"/tmp/page.json 7"},
			success: []bool{true},
		},
		{
			name:  "custom env expansion",
			phase: PreSave,
			hooks: []Hook{{Name: "expand", Command: "echo $CUSTOM_VAR", OnError: "fail",
				Env: map[string]string{"CUSTOM_VAR": "${TEST_HOOK_VAR}"}}},
			stdout:  []string{"expanded_value"},
			success: []bool{true},
		},
		{
			name:  "pre-save failure stops",
			phase: PreSave,
			hooks: []Hook{
				{Name: "fail", Command: "exit 1", OnError: "fail"},
				{Name: "never", Command: "echo never", OnError: "fail"},
			},
			wantErr: true,
			stdout:  []string{""},
			success: []bool{false},
		},
		{
			name:  "continue on error",
			phase: PostSave,
			hooks: []Hook{
				{Name: "fail", Command: "exit 1", OnError: "continue"},
				{Name: "after", Command: "echo still-running", OnError: "continue"},
			},
			stdout:  []string{"", "still-running"},
			success: []bool{false, true},
		},
		{
			name:  "post-save failure keeps running",
			phase: PostSave,
			hooks: []Hook{
				{Name: "fail", Command: "exit 1", OnError: "fail"},
				{Name: "after", Command: "echo ok", OnError: "continue"},
			},
			wantErr: true,
			stdout:  []string{"", "ok"},
			success: []bool{false, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			if tt.phase == PreSave {
				cfg.Hooks.PreSave = tt.hooks
			} else {
				cfg.Hooks.PostSave = tt.hooks
			}
			ex := NewExecutor(cfg, testContext())
			var err error
			if tt.phase == PreSave {
				err = ex.RunPreSave()
			} else {
				err = ex.RunPostSave()
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			res := ex.Results()
			if len(res) != len(tt.success) {
				t.Fatalf("results = %d, want %d", len(res), len(tt.success))
			}
			for i := range res {
				if res[i].Success != tt.success[i] {
					t.Errorf("result %d success = %v (%v)", i, res[i].Success, res[i].Error)
				}
				if res[i].Stdout != tt.stdout[i] {
					t.Errorf("result %d stdout = %q, want %q", i, res[i].Stdout, tt.stdout[i])
				}
			}
		})
	}
}

func TestExecutorTimeout(t *testing.T) {
	cfg := &Config{Hooks: HooksByPhase{PreSave: []Hook{
		{Name: "slow", Command: "sleep 10", Timeout: 100 * time.Millisecond, OnError: "fail"},
	}}}
	ex := NewExecutor(cfg, testContext())
	if err := ex.RunPreSave(); err == nil {
		t.Fatal("expected timeout error")
	}
	res := ex.Results()
	if len(res) != 1 || res[0].Success {
		t.Fatalf("results = %+v", res)
	}
	if res[0].Duration < 100*time.Millisecond {
		t.Errorf("duration = %v, want >= 100ms", res[0].Duration)
	}
	if !strings.Contains(res[0].Error.Error(), "timed out") {
		t.Errorf("error = %v", res[0].Error)
	}
}

func TestExecutorSummary(t *testing.T) {
	cfg := &Config{Hooks: HooksByPhase{
		PreSave:  []Hook{{Name: "ok", Command: "true", OnError: "continue"}},
		PostSave: []Hook{{Name: "bad", Command: "exit 1", OnError: "continue"}},
	}}
	ex := NewExecutor(cfg, testContext())
	if ex.Summary() != "" {
		t.Error("summary should be empty before any run")
	}
	_ = ex.RunPreSave()
	_ = ex.RunPostSave()
	if got := ex.Summary(); got != "2 hook(s), failed: bad" {
		t.Errorf("summary = %q", got)
	}
}

func TestRunHooks(t *testing.T) {
	dir := t.TempDir()
	ex, err := RunHooks(dir, testContext(), true)
	if err != nil || ex != nil {
		t.Fatalf("disabled should short-circuit, got ex=%v err=%v", ex, err)
	}
	ex, err = RunHooks(dir, testContext(), false)
	if err != nil || ex != nil {
		t.Fatalf("missing config should return nil, got ex=%v err=%v", ex, err)
	}

	writeHooksFile(t, dir, "hooks:\n  pre-save:\n    - name: hello\n      command: echo hi\n")
	ex, err = RunHooks(dir, testContext(), false)
	if err != nil || ex == nil {
		t.Fatalf("RunHooks = %v, %v", ex, err)
	}
	if len(ex.config.Hooks.PreSave) != 1 || len(ex.Results()) != 0 {
		t.Errorf("executor = %+v", ex)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abcdefghijklmnopqrstuvwxyz", 8); got != "abcde..." {
		t.Errorf("truncate = %q", got)
	}
}
