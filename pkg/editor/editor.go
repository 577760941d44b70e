// Package editor wires the ordering, region, section, drag and state
// components into one content editor bound to a host document.
//
// All methods must be called from the host's event loop. Work scheduled by
// timers (row-removal settling, debounced resize, auto-scroll, scroll
// restore) is handed back through Options.Post; hosts without an event loop
// leave Post nil and call Flush.
package editor

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/ordermachine/pkg/config"
	"github.com/vanderheijden86/ordermachine/pkg/debug"
	"github.com/vanderheijden86/ordermachine/pkg/drag"
	"github.com/vanderheijden86/ordermachine/pkg/editorstate"
	"github.com/vanderheijden86/ordermachine/pkg/metrics"
	"github.com/vanderheijden86/ordermachine/pkg/model"
	"github.com/vanderheijden86/ordermachine/pkg/ordering"
	"github.com/vanderheijden86/ordermachine/pkg/plugins"
	"github.com/vanderheijden86/ordermachine/pkg/regions"
	"github.com/vanderheijden86/ordermachine/pkg/regionview"
	"github.com/vanderheijden86/ordermachine/pkg/sections"
	"github.com/vanderheijden86/ordermachine/pkg/storage"
	"github.com/vanderheijden86/ordermachine/pkg/watcher"
)

var (
	// ErrReadOnly is returned by mutating actions when changes are not allowed.
	ErrReadOnly = errors.New("editor: changes are not allowed")
	// ErrUnknownPlugin is returned by AddContent for an unregistered prefix.
	ErrUnknownPlugin = errors.New("editor: unknown plugin")
	// ErrNotAllowed is returned by AddContent when the plugin may not be
	// placed in the active region.
	ErrNotAllowed = errors.New("editor: plugin not allowed in region")
	// ErrNoFormset is returned by AddContent when the editor has no host formset.
	ErrNoFormset = errors.New("editor: no formset to create rows")
)

// collapseAllKey is the local store key remembering the collapse-all toggle.
const collapseAllKey = "collapseAll"

// Formset creates rows on behalf of the editor.
type Formset interface {
	// AddRow instantiates an empty row of the plugin type prefix.
	AddRow(prefix string) (*model.Row, error)
}

// Observer receives editor broadcasts. Nil fields are skipped.
type Observer struct {
	// Activate is called when a row becomes shown.
	Activate func(row *model.Row)
	// Deactivate is called when a row stops being shown.
	Deactivate func(row *model.Row)
	// Ready is called once Start has finished.
	Ready func(e *Editor)
}

// Options configures an Editor. Zero values select defaults.
type Options struct {
	Drag               drag.Options
	ResizeDebounce     time.Duration
	SettleDelay        time.Duration
	RestoreScrollDelay time.Duration

	// Session holds the per-page editor state slot; Local the global
	// collapse-all toggle. Nil selects in-memory stores.
	Session storage.Store
	Local   storage.Store

	Viewport  Viewport
	RowHeight float64
	Indent    float64

	// Post runs fn on the host's event loop.
	Post func(fn func())
}

// OptionsFromConfig derives editor options from the user configuration.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Drag: drag.Options{
			Threshold: cfg.Editor.ScrollThreshold,
			Step:      cfg.Editor.ScrollStep,
			Interval:  cfg.Editor.ScrollInterval(),
			Margin:    cfg.Editor.DropMargin,
		},
		ResizeDebounce:     cfg.Editor.ResizeDebounce(),
		SettleDelay:        cfg.Editor.SettleDelay(),
		RestoreScrollDelay: cfg.Editor.RestoreScrollDelay(),
		RowHeight:          float64(cfg.UI.RowHeight),
	}
}

// Editor is the content editor for one page document.
type Editor struct {
	doc     *model.Document
	formset Formset

	regs     *regions.Registry
	plugs    *plugins.Registry
	sections *sections.Manager
	view     *regionview.View
	drag     *drag.Controller
	codec    *editorstate.Codec
	session  *storage.Safe
	local    *storage.Safe
	viewport Viewport
	geometry *listGeometry

	resize  *watcher.Debouncer
	settle  *settleQueue
	inbox   inbox
	post    func(func())
	restore time.Duration

	observers    []Observer
	shown        map[*model.Row]bool
	status       regionview.Status
	insertBefore *model.Row
	started      bool
}

// New binds an editor to doc. Row regions are classified immediately;
// everything else happens in Start.
func New(doc *model.Document, formset Formset, opts Options) *Editor {
	if opts.RowHeight <= 0 {
		opts.RowHeight = 1
	}
	if opts.Indent <= 0 {
		opts.Indent = 2
	}
	if opts.Drag == (drag.Options{}) {
		opts.Drag = drag.DefaultOptions()
	}
	if opts.Session == nil {
		opts.Session = storage.NewMemory()
	}
	if opts.Local == nil {
		opts.Local = storage.NewMemory()
	}
	if opts.Viewport == nil {
		opts.Viewport = NewWindow(24 * opts.RowHeight)
	}

	e := &Editor{
		doc:      doc,
		formset:  formset,
		regs:     regions.New(doc.Context.Regions, doc.Context.Message(model.MsgUnknownRegion)),
		plugs:    plugins.New(doc.Context.Plugins),
		local:    storage.NewSafe(opts.Local, metrics.LocalStore),
		viewport: opts.Viewport,
		resize:   watcher.NewDebouncer(opts.ResizeDebounce),
		restore:  opts.RestoreScrollDelay,
		shown:    make(map[*model.Row]bool),
	}
	e.post = opts.Post
	if e.post == nil {
		e.post = e.inbox.post
	}
	e.settle = &settleQueue{delay: opts.SettleDelay, post: e.post}

	for _, r := range doc.Rows {
		if r.Managed() {
			r.RegionKey = e.regs.Classify(r.Region)
		}
	}

	e.geometry = &listGeometry{e: e, rowHeight: opts.RowHeight, indent: opts.Indent}
	e.sections = sections.NewManager(e.plugs.SectionDelta, e.geometry)
	e.view = regionview.New(e, e.regs, e.plugs, &doc.Context)
	e.drag = drag.New(e, e.viewport, opts.Drag)
	e.drag.AllowChange = doc.Context.AllowChange
	e.drag.Post = e.post

	e.session = storage.NewSafe(opts.Session, metrics.SessionStore)
	e.codec = editorstate.New(e.session, "")
	return e
}

// Observe registers o for activation and ready broadcasts.
func (e *Editor) Observe(o Observer) {
	e.observers = append(e.observers, o)
}

// Start initializes the editor for the page at pageURL: it replays saved
// state when the URL carries the restore marker, renumbers orderings,
// activates a region, applies the remembered collapse-all toggle and
// broadcasts Ready. It returns pageURL with the marker removed.
func (e *Editor) Start(pageURL string) string {
	e.codec = editorstate.New(e.session, editorstate.PathOf(pageURL))

	state := e.codec.Restore(pageURL)
	region := editorstate.Apply(state, e.doc.Rows, e.regs)
	ordering.Normalize(e.doc.Rows)
	e.SwitchRegion(region)

	if on, ok := e.savedCollapseAll(); ok {
		e.CollapseAll(on)
	}

	if state != nil {
		y := state.ScrollY
		time.AfterFunc(e.restore, func() {
			e.post(func() { e.viewport.ScrollTo(y) })
		})
	}

	e.started = true
	for _, o := range e.observers {
		if o.Ready != nil {
			o.Ready(e)
		}
	}
	debug.Log("editor: ready (%d rows, region %q, restored=%v)", len(e.doc.Rows), region, state != nil)
	return editorstate.StripMarker(pageURL)
}

// Started reports whether Start has run.
func (e *Editor) Started() bool {
	return e.started
}

// Document returns the bound document.
func (e *Editor) Document() *model.Document {
	return e.doc
}

// Rows returns every row of the document, including other regions.
func (e *Editor) Rows() []*model.Row {
	return e.doc.Rows
}

// Context returns the initialization payload.
func (e *Editor) Context() *model.Context {
	return &e.doc.Context
}

// Regions returns the region registry.
func (e *Editor) Regions() *regions.Registry {
	return e.regs
}

// Plugins returns the plugin registry.
func (e *Editor) Plugins() *plugins.Registry {
	return e.plugs
}

// Drag returns the drag controller.
func (e *Editor) Drag() *drag.Controller {
	return e.drag
}

// Codec returns the editor state codec for the current page.
func (e *Editor) Codec() *editorstate.Codec {
	return e.codec
}

// Viewport returns the scroll area.
func (e *Editor) Viewport() Viewport {
	return e.viewport
}

// Status returns the region pane status of the last refresh.
func (e *Editor) Status() regionview.Status {
	return e.status
}

// Active returns the active region key.
func (e *Editor) Active() string {
	return e.view.Active()
}

// Tree returns the section forest of the active region.
func (e *Editor) Tree() *sections.Tree {
	return e.sections.Tree()
}

// Boxes returns the section boxes of the active region.
func (e *Editor) Boxes() []*sections.Box {
	return e.sections.Boxes()
}

// Region returns the rows of the active region in visual order, including
// rows hidden by a collapsed section.
func (e *Editor) Region() []*model.Row {
	return ordering.InRegion(e.doc.Rows, e.view.Active())
}

// Visible returns the rows currently shown, in visual order.
func (e *Editor) Visible() []*model.Row {
	var out []*model.Row
	for _, r := range e.Region() {
		if r.Shown() {
			out = append(out, r)
		}
	}
	return out
}

// Rect returns the laid-out position of row.
func (e *Editor) Rect(row *model.Row) (sections.Rect, bool) {
	return e.geometry.Rect(row)
}

// Rebuild refreshes region visibility, rebuilds the section forest of the
// active region and broadcasts visibility changes.
func (e *Editor) Rebuild() {
	e.status = e.view.Refresh()
	e.geometry.invalidate()
	e.sections.Update(e.Region())
	e.geometry.invalidate()
	e.notify()
}

// Reorder is called after a drop.
func (e *Editor) Reorder() {
	e.Rebuild()
}

// notify broadcasts Activate and Deactivate for every row whose shown state
// changed since the last call.
func (e *Editor) notify() {
	present := make(map[*model.Row]bool, len(e.doc.Rows))
	for _, r := range e.doc.Rows {
		present[r] = true
		now := r.Shown()
		if now == e.shown[r] {
			continue
		}
		if now {
			e.shown[r] = true
			e.broadcast(r, true)
		} else {
			delete(e.shown, r)
			e.broadcast(r, false)
		}
	}
	for r := range e.shown {
		if !present[r] {
			delete(e.shown, r)
			e.broadcast(r, false)
		}
	}
}

func (e *Editor) broadcast(r *model.Row, active bool) {
	for _, o := range e.observers {
		switch {
		case active && o.Activate != nil:
			o.Activate(r)
		case !active && o.Deactivate != nil:
			o.Deactivate(r)
		}
	}
}

// SwitchRegion activates region.
func (e *Editor) SwitchRegion(region string) regionview.Status {
	e.drag.End()
	e.insertBefore = nil
	e.status = e.view.SwitchTo(region)
	return e.status
}

// AddContent creates a row of type prefix through the formset and places it
// in the active region, before the insert target when one is set.
func (e *Editor) AddContent(prefix string) (*model.Row, error) {
	if !e.doc.Context.AllowChange {
		return nil, ErrReadOnly
	}
	if !e.plugs.Has(prefix) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlugin, prefix)
	}
	if !e.plugs.IsAllowedIn(prefix, e.Active(), e.regs) {
		return nil, fmt.Errorf("%w: %q in %q", ErrNotAllowed, prefix, e.Active())
	}
	if e.formset == nil {
		return nil, ErrNoFormset
	}
	row, err := e.formset.AddRow(prefix)
	if err != nil {
		return nil, fmt.Errorf("add %s row: %w", prefix, err)
	}
	e.RowAdded(row, prefix)
	return row, nil
}

// SetInsertBefore makes the next added row land before row. A nil row
// restores appending.
func (e *Editor) SetInsertBefore(row *model.Row) {
	if row != nil && (!row.Managed() || row.Key() != e.Active()) {
		return
	}
	e.insertBefore = row
}

// InsertBefore returns the pending insert target.
func (e *Editor) InsertBefore() *model.Row {
	return e.insertBefore
}

// RowAdded handles the host notification for a new row of group prefix.
// Notifications for groups the editor does not manage are ignored.
func (e *Editor) RowAdded(row *model.Row, prefix string) {
	if row == nil || !e.plugs.Has(prefix) {
		debug.Log("editor: ignoring added row of unmanaged group %q", prefix)
		return
	}
	if !e.contains(row) {
		e.doc.Rows = append(e.doc.Rows, row)
	}
	row.IsTemplate = false
	if row.Prefix == "" {
		row.Prefix = prefix
	}
	row.SetRegion(e.Active())
	if row.Label == "" {
		row.Label = e.doc.Context.Message(model.MsgNewItem)
	}
	ordering.SetBiggest(e.doc.Rows, row)
	if e.insertBefore != nil {
		ordering.InsertAdjacent(e.doc.Rows, row, e.insertBefore, false)
		e.insertBefore = nil
	}
	e.Rebuild()
}

// RowRemoved handles the host notification for a removed row. The row is
// deactivated at once; sections are rebuilt after the settle delay.
func (e *Editor) RowRemoved(row *model.Row, prefix string) {
	if row == nil || !e.plugs.Has(prefix) {
		return
	}
	for i, r := range e.doc.Rows {
		if r == row {
			e.doc.Rows = append(e.doc.Rows[:i], e.doc.Rows[i+1:]...)
			break
		}
	}
	if e.insertBefore == row {
		e.insertBefore = nil
	}
	e.status = e.view.Refresh()
	e.notify()
	e.settle.enqueue(e.Rebuild)
}

func (e *Editor) contains(row *model.Row) bool {
	for _, r := range e.doc.Rows {
		if r == row {
			return true
		}
	}
	return false
}

// ToggleCollapse flips the collapsed state of row. Expanding also unhides
// the row itself.
func (e *Editor) ToggleCollapse(row *model.Row) {
	if !row.Managed() {
		return
	}
	row.Collapsed = !row.Collapsed
	if !row.Collapsed {
		row.Hidden = false
	}
	e.Rebuild()
}

// ToggleSelect adds row to or removes it from the drag selection.
func (e *Editor) ToggleSelect(row *model.Row) {
	if !row.Managed() || !e.doc.Context.AllowChange {
		return
	}
	row.Selected = !row.Selected
}

// Selected returns the rows in the drag selection.
func (e *Editor) Selected() []*model.Row {
	var out []*model.Row
	for _, r := range e.Region() {
		if r.Selected {
			out = append(out, r)
		}
	}
	return out
}

// CollapseAll collapses or expands every row and remembers the choice.
// Rows with validation errors stay expanded.
func (e *Editor) CollapseAll(on bool) {
	for _, r := range e.doc.Rows {
		if r.Managed() {
			r.Collapsed = on && !r.HasError
		}
	}
	if data, err := json.Marshal(on); err == nil {
		e.local.Set(storage.Key(collapseAllKey), data)
	}
	e.Rebuild()
}

// CollapsedAll returns the remembered collapse-all toggle.
func (e *Editor) CollapsedAll() bool {
	on, _ := e.savedCollapseAll()
	return on
}

func (e *Editor) savedCollapseAll() (on, ok bool) {
	data, found := e.local.Get(storage.Key(collapseAllKey))
	if !found {
		return false, false
	}
	if err := json.Unmarshal(data, &on); err != nil {
		debug.Log("editor: ignoring corrupt collapse-all value: %v", err)
		return false, false
	}
	return on, true
}

// MarkForDeletion toggles the deletion mark of row.
func (e *Editor) MarkForDeletion(row *model.Row) error {
	if !e.doc.Context.AllowChange {
		return ErrReadOnly
	}
	if !row.Managed() {
		return nil
	}
	row.MarkedForDeletion = !row.MarkedForDeletion
	return nil
}

// MoveToRegion moves row to region, appending it to the global order.
func (e *Editor) MoveToRegion(row *model.Row, region string) bool {
	if !e.view.MoveRowToRegion(row, region) {
		return false
	}
	if e.insertBefore == row {
		e.insertBefore = nil
	}
	return true
}

// Dropdown returns the move-to-region choices for row.
func (e *Editor) Dropdown(row *model.Row) (regionview.Dropdown, bool) {
	return e.view.Dropdown(row)
}

// Move places row (with its section) directly before or after anchor.
func (e *Editor) Move(row, anchor *model.Row, after bool) bool {
	if !e.doc.Context.AllowChange || !row.Managed() || !anchor.Managed() || row == anchor {
		return false
	}
	if row.Key() != anchor.Key() {
		return false
	}
	moving := []*model.Row{row}
	if t := e.Tree(); t != nil {
		moving = append(moving, t.Descendants(row)...)
	}
	for _, m := range moving {
		if m == anchor {
			return false
		}
	}
	ordering.MoveSelection(e.doc.Rows, moving, anchor, after)
	e.Rebuild()
	return true
}

// MoveUp moves row above the previous shown row.
func (e *Editor) MoveUp(row *model.Row) bool {
	visible := e.Visible()
	for i, r := range visible {
		if r == row && i > 0 {
			return e.Move(row, visible[i-1], false)
		}
	}
	return false
}

// MoveDown moves row below the next shown row. A collapsed section below is
// skipped as a whole.
func (e *Editor) MoveDown(row *model.Row) bool {
	visible := e.Visible()
	t := e.Tree()
	block := map[*model.Row]bool{row: true}
	if t != nil {
		for _, d := range t.Descendants(row) {
			block[d] = true
		}
	}
	seen := false
	for _, r := range visible {
		if r == row {
			seen = true
			continue
		}
		if !seen || block[r] {
			continue
		}
		anchor := r
		if t != nil && r.Collapsed {
			if desc := t.Descendants(r); len(desc) > 0 {
				anchor = desc[len(desc)-1]
			}
		}
		return e.Move(row, anchor, true)
	}
	return false
}

// Resize schedules a debounced section rebuild after a layout change.
func (e *Editor) Resize() {
	e.resize.Trigger(func() { e.post(e.Rebuild) })
}

// Capture snapshots the editor state for submit.
func (e *Editor) Capture() model.EditorState {
	return editorstate.Capture(e.Active(), e.viewport.ScrollY(), e.doc.Rows)
}

// Submit persists the editor state and returns the form target tagged with
// the restore marker.
func (e *Editor) Submit(action string) string {
	e.codec.Persist(e.Capture())
	return editorstate.TagURL(action)
}

// Flush runs every deferred callback now: pending settle callbacks in
// order, then work posted from timers.
func (e *Editor) Flush() {
	e.settle.drain()
	for {
		items := e.inbox.take()
		if len(items) == 0 {
			return
		}
		for _, fn := range items {
			fn()
		}
	}
}

// Pending reports whether deferred work is waiting.
func (e *Editor) Pending() bool {
	return e.settle.len() > 0 || e.resize.Pending()
}

// Close stops timers and ends any drag session.
func (e *Editor) Close() {
	e.drag.End()
	e.resize.Cancel()
}
