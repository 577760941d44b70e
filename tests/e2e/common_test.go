package main_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

var omBinaryPath string
var omBinaryDir string

func TestMain(m *testing.M) {
	os.Setenv("OM_TEST_MODE", "1")

	// Build the binary once for all tests
	if err := buildOmOnce(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build om binary: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	if omBinaryDir != "" {
		_ = os.RemoveAll(omBinaryDir)
	}
	os.Exit(code)
}

func buildOmOnce() error {
	tempDir, err := os.MkdirTemp("", "om-e2e-build-*")
	if err != nil {
		return err
	}
	omBinaryDir = tempDir

	binName := "om"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	binPath := filepath.Join(tempDir, binName)

	cmd := exec.Command("go", "build", "-o", binPath, "../../cmd/om")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("go build failed: %v\n%s", err, out)
	}

	omBinaryPath = binPath
	return nil
}

const fixturePage = `<!DOCTYPE html>
<html><body>
<script id="content-editor-context" type="application/json">
{"regions":[{"key":"main","title":"Main content"},{"key":"sidebar","title":"Sidebar","inherited":true}],
 "plugins":[{"prefix":"text","title":"Text"},{"prefix":"open","title":"Section","sections":1},{"prefix":"close","title":"Section end","sections":-1}]}
</script>
<form>
<div class="inline-group">
  <div class="inline-related" id="text-0">
    <h3><span class="inline_label">Closing words</span></h3>
    <input class="order-machine-ordering" name="text-0-ordering" value="40">
    <input class="order-machine-region" name="text-0-region" value="main">
  </div>
  <div class="inline-related" id="open-1">
    <h3><span class="inline_label">Intro section</span></h3>
    <input class="order-machine-ordering" name="open-1-ordering" value="10">
    <input class="order-machine-region" name="open-1-region" value="main">
  </div>
  <div class="inline-related" id="text-2">
    <h3><span class="inline_label">Intro body</span></h3>
    <input class="order-machine-ordering" name="text-2-ordering" value="20">
    <input class="order-machine-region" name="text-2-region" value="main">
  </div>
  <div class="inline-related" id="close-3">
    <input class="order-machine-ordering" name="close-3-ordering" value="30">
    <input class="order-machine-region" name="close-3-region" value="main">
  </div>
  <div class="inline-related" id="text-4">
    <h3><span class="inline_label">Sidebar note</span></h3>
    <input class="order-machine-ordering" name="text-4-ordering" value="50">
    <input class="order-machine-region" name="text-4-region" value="sidebar">
  </div>
  <div class="inline-related empty-form" id="text-empty">
    <input class="order-machine-ordering" name="text-__prefix__-ordering" value="">
  </div>
</div>
</form>
</body></html>`

// writeFixture writes the fixture page into a fresh directory and returns
// the page path.
func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	if err := os.WriteFile(path, []byte(fixturePage), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

type result struct {
	stdout string
	stderr string
	code   int
}

// runOm runs the binary with an isolated config and state directory.
func runOm(t *testing.T, args ...string) result {
	t.Helper()
	if omBinaryPath == "" {
		t.Fatal("om binary not built")
	}
	home := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, omBinaryPath, args...)
	cmd.Env = append(os.Environ(),
		"HOME="+home,
		"XDG_CONFIG_HOME="+filepath.Join(home, "config"),
		"XDG_STATE_HOME="+filepath.Join(home, "state"),
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	res := result{stdout: stdout.String(), stderr: stderr.String()}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.code = exitErr.ExitCode()
	default:
		t.Fatalf("run om: %v", err)
	}
	return res
}

// skipIfNoScript skips the test if the script command is unavailable.
func skipIfNoScript(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("script"); err != nil {
		t.Skip("skipping: script command not available")
	}
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("skipping: script TUI harness unsupported on this OS")
	}
}

// scriptTUICommand runs the om binary under `script` to provide a
// pseudo-TTY for TUI tests.
func scriptTUICommand(ctx context.Context, args ...string) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		scriptArgs := append([]string{"-q", "/dev/null", omBinaryPath}, args...)
		return exec.CommandContext(ctx, "script", scriptArgs...)
	default:
		cmdStr := omBinaryPath
		for _, arg := range args {
			if strings.ContainsAny(arg, " \t") {
				cmdStr += " \"" + arg + "\""
			} else {
				cmdStr += " " + arg
			}
		}
		return exec.CommandContext(ctx, "script", "-q", "-e", "-f", "-c", cmdStr, "/dev/null")
	}
}
