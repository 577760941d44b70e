package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/vanderheijden86/ordermachine/pkg/debug"
)

// maxOutput bounds captured hook output kept in results.
const maxOutput = 2000

// Result is the outcome of one hook run.
type Result struct {
	Hook     Hook
	Phase    HookPhase
	Success  bool
	Stdout   string
	Stderr   string
	Duration time.Duration
	Error    error
}

// Executor runs configured hooks for one save.
type Executor struct {
	config  *Config
	ctx     SaveContext
	results []Result
}

// NewExecutor creates an executor for config and the save described by ctx.
func NewExecutor(config *Config, ctx SaveContext) *Executor {
	if config == nil {
		config = &Config{}
	}
	return &Executor{config: config, ctx: ctx}
}

// RunPreSave runs pre-save hooks. The first failing hook with
// on_error=fail stops the run and cancels the save.
func (e *Executor) RunPreSave() error {
	return e.runPhase(PreSave, e.config.Hooks.PreSave)
}

// RunPostSave runs post-save hooks.
func (e *Executor) RunPostSave() error {
	return e.runPhase(PostSave, e.config.Hooks.PostSave)
}

func (e *Executor) runPhase(phase HookPhase, hooks []Hook) error {
	var errs []error
	for _, h := range hooks {
		res := e.run(phase, h)
		e.results = append(e.results, res)
		if res.Success {
			continue
		}
		debug.Log("hooks: %s %q failed: %v", phase, h.Name, res.Error)
		if h.OnError == "continue" {
			continue
		}
		err := fmt.Errorf("%s hook %q: %w", phase, h.Name, res.Error)
		if phase == PreSave {
			return err
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Executor) run(phase HookPhase, h Hook) Result {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", h.Command)
	cmd.Env = append(os.Environ(), e.ctx.ToEnv()...)
	for k, v := range h.Env {
		cmd.Env = append(cmd.Env, k+"="+os.ExpandEnv(v))
	}
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Hook:     h,
		Phase:    phase,
		Stdout:   truncate(strings.TrimSpace(stdout.String()), maxOutput),
		Stderr:   truncate(strings.TrimSpace(stderr.String()), maxOutput),
		Duration: time.Since(start),
	}
	if ctx.Err() == context.DeadlineExceeded {
		err = fmt.Errorf("timed out after %v", timeout)
	}
	res.Error = err
	res.Success = err == nil
	return res
}

// Results returns the results of every hook run so far.
func (e *Executor) Results() []Result {
	return e.results
}

// Summary describes the hook runs in one line.
func (e *Executor) Summary() string {
	if len(e.results) == 0 {
		return ""
	}
	var failed []string
	for _, r := range e.results {
		if !r.Success {
			failed = append(failed, r.Hook.Name)
		}
	}
	if len(failed) == 0 {
		return fmt.Sprintf("%d hook(s) ok", len(e.results))
	}
	return fmt.Sprintf("%d hook(s), failed: %s", len(e.results), strings.Join(failed, ", "))
}

// RunHooks loads hooks from dir and returns an executor for ctx. It returns
// nil when disabled or when no hooks are configured.
func RunHooks(dir string, ctx SaveContext, disabled bool) (*Executor, error) {
	if disabled {
		return nil, nil
	}
	loader := NewLoader(WithProjectDir(dir))
	if err := loader.Load(); err != nil {
		return nil, err
	}
	for _, w := range loader.Warnings() {
		debug.Log("hooks: %s", w)
	}
	if !loader.HasHooks() {
		return nil, nil
	}
	return NewExecutor(loader.Config(), ctx), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
