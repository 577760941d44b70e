// Package script runs page scripts against an editor. Scripts see a
// contentEditor global with the public editor API and a minimal console.
package script

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dop251/goja"

	"github.com/vanderheijden86/ordermachine/pkg/debug"
	"github.com/vanderheijden86/ordermachine/pkg/editor"
	"github.com/vanderheijden86/ordermachine/pkg/model"
)

// Events scripts may subscribe to with contentEditor.on.
const (
	EventActivate   = "activate"
	EventDeactivate = "deactivate"
	EventReady      = "ready"
)

// Host owns one JavaScript runtime bound to an editor. Like the editor it
// must only be used from the host's event loop.
type Host struct {
	vm        *goja.Runtime
	editor    *editor.Editor
	listeners map[string][]goja.Callable
	errors    []error
	out       io.Writer
	onError   func(error)
}

// New creates a runtime exposing e to scripts.
func New(e *editor.Editor) *Host {
	h := &Host{
		vm:        goja.New(),
		editor:    e,
		listeners: make(map[string][]goja.Callable),
		out:       io.Discard,
	}
	h.vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	h.setupConsole()
	h.setupEditor()

	e.Observe(editor.Observer{
		Activate:   func(r *model.Row) { h.emit(EventActivate, h.rowValue(r)) },
		Deactivate: func(r *model.Row) { h.emit(EventDeactivate, h.rowValue(r)) },
		Ready:      func(*editor.Editor) { h.emit(EventReady) },
	})
	return h
}

// SetOutput sets where console output goes.
func (h *Host) SetOutput(w io.Writer) {
	h.out = w
}

// SetOnError sets a callback for script errors, including errors thrown by
// event listeners.
func (h *Host) SetOnError(fn func(error)) {
	h.onError = fn
}

// Errors returns every error recorded so far.
func (h *Host) Errors() []error {
	return append([]error{}, h.errors...)
}

// Run compiles and runs code. name is used in stack traces.
func (h *Host) Run(name, code string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("script %s panicked: %v", name, p)
			h.fail(err)
		}
	}()

	program, err := goja.Compile(name, code, false)
	if err != nil {
		h.fail(err)
		return err
	}
	if _, err = h.vm.RunProgram(program); err != nil {
		h.fail(err)
	}
	return err
}

// RunFile runs the script at path.
func (h *Host) RunFile(path string) error {
	code, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	return h.Run(path, string(code))
}

// Eval runs an expression and returns its exported value.
func (h *Host) Eval(code string) (any, error) {
	v, err := h.vm.RunString(code)
	if err != nil {
		h.fail(err)
		return nil, err
	}
	return v.Export(), nil
}

func (h *Host) fail(err error) {
	h.errors = append(h.errors, err)
	debug.Log("script: %v", err)
	if h.onError != nil {
		h.onError(err)
	}
}

func (h *Host) emit(event string, args ...goja.Value) {
	for _, fn := range h.listeners[event] {
		if _, err := fn(goja.Undefined(), args...); err != nil {
			h.fail(fmt.Errorf("%s listener: %w", event, err))
		}
	}
}

func (h *Host) setupConsole() {
	console := h.vm.NewObject()
	logFn := func(level string) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, a := range call.Arguments {
				parts[i] = a.String()
			}
			line := strings.Join(parts, " ")
			if level != "" {
				line = level + ": " + line
			}
			fmt.Fprintln(h.out, line)
			return goja.Undefined()
		}
	}
	console.Set("log", logFn(""))
	console.Set("info", logFn(""))
	console.Set("warn", logFn("warn"))
	console.Set("error", logFn("error"))
	h.vm.Set("console", console)
}

// rowInfo is the script view of a row.
type rowInfo struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Region    string `json:"region"`
	Ordering  string `json:"ordering"`
	Label     string `json:"label"`
	Collapsed bool   `json:"collapsed"`
	Deleted   bool   `json:"deleted"`
}

func (h *Host) rowValue(r *model.Row) goja.Value {
	return h.vm.ToValue(rowInfo{
		ID:        r.ID,
		Type:      r.Type(),
		Region:    r.Key(),
		Ordering:  r.Ordering.String(),
		Label:     r.Label,
		Collapsed: r.Collapsed,
		Deleted:   r.MarkedForDeletion,
	})
}

func (h *Host) findRow(id string) *model.Row {
	for _, r := range h.editor.Rows() {
		if r.ID == id && r.Managed() {
			return r
		}
	}
	return nil
}

func (h *Host) setupEditor() {
	vm := h.vm
	ce := vm.NewObject()

	ce.Set("addContent", func(prefix string) goja.Value {
		row, err := h.editor.AddContent(prefix)
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return h.rowValue(row)
	})

	ce.Set("on", func(call goja.FunctionCall) goja.Value {
		event := call.Argument(0).String()
		fn, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			panic(vm.NewTypeError("contentEditor.on: listener must be a function"))
		}
		switch event {
		case EventActivate, EventDeactivate, EventReady:
		default:
			panic(vm.NewTypeError("contentEditor.on: unknown event %q", event))
		}
		h.listeners[event] = append(h.listeners[event], fn)
		if event == EventReady && h.editor.Started() {
			if _, err := fn(goja.Undefined()); err != nil {
				h.fail(fmt.Errorf("ready listener: %w", err))
			}
		}
		return goja.Undefined()
	})

	ce.Set("regions", func() goja.Value {
		type regionInfo struct {
			Key       string `json:"key"`
			Title     string `json:"title"`
			Inherited bool   `json:"inherited"`
			Unknown   bool   `json:"unknown"`
		}
		var out []any
		for _, r := range h.editor.Regions().All() {
			out = append(out, regionInfo{Key: r.Key, Title: r.Title, Inherited: r.Inherited, Unknown: r.Unknown})
		}
		return vm.NewArray(out...)
	})

	ce.Set("active", func() string { return h.editor.Active() })

	ce.Set("switchTo", func(key string) goja.Value {
		if !h.editor.Regions().IsKnown(key) {
			panic(vm.NewTypeError("contentEditor.switchTo: unknown region %q", key))
		}
		st := h.editor.SwitchRegion(key)
		obj := vm.NewObject()
		obj.Set("region", st.Region)
		obj.Set("visible", st.Visible)
		obj.Set("message", st.Message)
		return obj
	})

	ce.Set("rows", func() goja.Value {
		var out []any
		for _, r := range h.editor.Region() {
			out = append(out, h.rowValue(r))
		}
		return vm.NewArray(out...)
	})

	ce.Set("collapse", func(id string) bool {
		r := h.findRow(id)
		if r == nil {
			return false
		}
		h.editor.ToggleCollapse(r)
		return r.Collapsed
	})

	ce.Set("collapseAll", func(on bool) {
		h.editor.CollapseAll(on)
	})

	ce.Set("moveToRegion", func(id, region string) bool {
		r := h.findRow(id)
		return r != nil && h.editor.MoveToRegion(r, region)
	})

	vm.Set("contentEditor", ce)
}
