// Package ui is the terminal host of the content editor: region tabs, the
// row list with section guides, keyboard dragging and the add/move pickers.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/ordermachine/internal/datasource"
	"github.com/vanderheijden86/ordermachine/pkg/config"
	"github.com/vanderheijden86/ordermachine/pkg/debug"
	"github.com/vanderheijden86/ordermachine/pkg/drag"
	"github.com/vanderheijden86/ordermachine/pkg/editor"
	"github.com/vanderheijden86/ordermachine/pkg/editorstate"
	"github.com/vanderheijden86/ordermachine/pkg/hooks"
	"github.com/vanderheijden86/ordermachine/pkg/metrics"
	"github.com/vanderheijden86/ordermachine/pkg/model"
	"github.com/vanderheijden86/ordermachine/pkg/sections"
	"github.com/vanderheijden86/ordermachine/pkg/watcher"
)

// chromeLines is the number of lines around the row list: header, tabs,
// divider, status line and key help.
const chromeLines = 5

// FileChangedMsg is sent when the watched document changes on disk.
type FileChangedMsg struct{}

// WatchFileCmd waits for the next change of the watched document.
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

type savedMsg struct {
	path   string
	target string
	hooks  string
	err    error
}

type mode int

const (
	modeNormal mode = iota
	modePopup
	modeHelp
)

type popupKind int

const (
	popupMove popupKind = iota
	popupAdd
)

type popupItem struct {
	value    string
	title    string
	disabled bool
}

type popup struct {
	kind   popupKind
	title  string
	row    *model.Row
	items  []popupItem
	cursor int
}

// Options configures the terminal host.
type Options struct {
	// PageURL is the address the document was opened from.
	PageURL string
	// SavePath receives the document on save; "" disables saving.
	SavePath string
	// HooksDir holds .om/hooks.yaml with pre-save and post-save hooks;
	// "" disables hooks.
	HooksDir string
	Config   config.Config
	// Watcher enables live reload of the document file.
	Watcher *watcher.Watcher
	// Reload builds a started editor for a reloaded document. Nil disables
	// live reload.
	Reload func(doc *model.Document) *editor.Editor
	// Clipboard defaults to the system clipboard.
	Clipboard func(string) error
}

// Model is the bubbletea model wrapping one editor.
type Model struct {
	editor *editor.Editor
	window *editor.Window
	opts   Options
	theme  Theme
	keys   keyMap
	help   help.Model

	width  int
	height int
	cursor int
	mode   mode
	popup  popup
	over   helpOverlay

	statusMsg   string
	statusIsErr bool
}

// NewModel creates the host model for a started editor.
func NewModel(e *editor.Editor, opts Options) Model {
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	w, _ := e.Viewport().(*editor.Window)
	m := Model{
		editor: e,
		window: w,
		opts:   opts,
		theme:  DefaultTheme(lipgloss.DefaultRenderer()),
		keys:   defaultKeyMap(),
		help:   help.New(),
		width:  80,
		height: 24,
	}
	m.layout()
	return m
}

// Editor returns the wrapped editor, which changes on live reload.
func (m Model) Editor() *editor.Editor {
	return m.editor
}

// Cursor returns the row under the cursor, or nil.
func (m Model) Cursor() *model.Row {
	rows := m.editor.Visible()
	if len(rows) == 0 {
		return nil
	}
	return rows[clampIndex(m.cursor, len(rows))]
}

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.opts.Watcher != nil && m.opts.Reload != nil {
		cmds = append(cmds, WatchFileCmd(m.opts.Watcher))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.layout()
		m.editor.Resize()
		return m, nil

	case callbackMsg:
		msg()
		m.clampCursor()
		return m, nil

	case FileChangedMsg:
		m.reload()
		return m, WatchFileCmd(m.opts.Watcher)

	case savedMsg:
		if msg.err != nil {
			m.setError(fmt.Sprintf("Save failed: %v", msg.err))
		} else {
			status := fmt.Sprintf("Saved %s → %s", msg.path, msg.target)
			if msg.hooks != "" {
				status += " (" + msg.hooks + ")"
			}
			m.setStatus(status)
		}
		return m, nil

	case tea.KeyMsg:
		idle := m.mode == modeNormal && m.editor.Drag().State() != drag.Dragging
		if msg.String() == "ctrl+c" || key.Matches(msg, m.keys.Quit) && idle {
			m.editor.Close()
			return m, tea.Quit
		}
		switch m.mode {
		case modeHelp:
			m.mode = modeNormal
			return m, nil
		case modePopup:
			return m.updatePopup(msg)
		}
		if m.editor.Drag().State() == drag.Dragging {
			return m.updateDrag(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	e := m.editor
	row := m.Cursor()
	m.statusMsg = ""

	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.NextRegion):
		m.cycleRegion(1)
	case key.Matches(msg, m.keys.PrevRegion):
		m.cycleRegion(-1)
	case key.Matches(msg, m.keys.Help):
		m.mode = modeHelp
	case key.Matches(msg, m.keys.CollapseAll):
		e.CollapseAll(!e.CollapsedAll())
		m.clampCursor()
	case key.Matches(msg, m.keys.Add):
		m.openAddPicker()
	case key.Matches(msg, m.keys.Save):
		return m, m.save()
	}
	if row == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Toggle):
		e.ToggleCollapse(row)
		m.clampCursor()
	case key.Matches(msg, m.keys.Select):
		e.ToggleSelect(row)
	case key.Matches(msg, m.keys.MoveUp):
		if e.MoveUp(row) {
			m.follow(row)
		}
	case key.Matches(msg, m.keys.MoveDown):
		if e.MoveDown(row) {
			m.follow(row)
		}
	case key.Matches(msg, m.keys.Grab):
		if !e.Drag().Start(row, true) {
			m.setError("Cannot drag this row")
		} else {
			m.setStatus(fmt.Sprintf("Dragging %d row(s): j/k to pick a target, g to drop", len(e.Selected())))
		}
	case key.Matches(msg, m.keys.MoveRegion):
		m.openMovePicker(row)
	case key.Matches(msg, m.keys.InsertHere):
		if e.InsertBefore() == row {
			e.SetInsertBefore(nil)
			m.setStatus("New content will be appended")
		} else {
			e.SetInsertBefore(row)
			m.setStatus(fmt.Sprintf("New content will be inserted before %s", row.ID))
		}
	case key.Matches(msg, m.keys.Delete):
		if err := e.MarkForDeletion(row); err != nil {
			m.setError(err.Error())
		}
	case key.Matches(msg, m.keys.Copy):
		if err := m.opts.Clipboard(row.ID); err != nil {
			m.setError(fmt.Sprintf("Clipboard error: %v", err))
		} else {
			m.setStatus(fmt.Sprintf("Copied %s", row.ID))
		}
	}
	return m, nil
}

// updateDrag handles keys during a keyboard drag session: the cursor picks
// the drop target, rows below the dragged one receive the drop after them.
func (m Model) updateDrag(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.editor.Drag()
	switch {
	case key.Matches(msg, m.keys.Cancel):
		c.End()
		m.setStatus("Drag cancelled")
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
		m.dragOver()
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
		m.dragOver()
	case key.Matches(msg, m.keys.Grab), key.Matches(msg, m.keys.Toggle):
		target, after := c.Target()
		if target == nil {
			c.End()
			m.setStatus("Drag cancelled")
			return m, nil
		}
		rect := m.viewRect(target)
		if c.Drop(target, rect, m.pointerY(rect, after)) {
			m.setStatus(fmt.Sprintf("Dropped %s %s", sideLabel(after), target.ID))
			m.follow(target)
		}
	}
	return m, nil
}

func (m *Model) dragOver() {
	c := m.editor.Drag()
	target := m.Cursor()
	dragged := c.Dragging()
	if target == nil || dragged == nil {
		return
	}
	after := m.indexOf(target) > m.indexOf(dragged)
	rect := m.viewRect(target)
	c.Over(target, rect, m.pointerY(rect, after))
}

// viewRect returns the layout of row relative to the scrolled window.
func (m Model) viewRect(row *model.Row) sections.Rect {
	r, _ := m.editor.Rect(row)
	r.Top -= m.editor.Viewport().ScrollY()
	return r
}

// pointerY is the pointer position that selects the wanted drop side.
func (m Model) pointerY(rect sections.Rect, after bool) float64 {
	if !after {
		return rect.Top
	}
	return rect.Top + rect.Height/2 + m.editor.Drag().Options().Margin + 1
}

func sideLabel(after bool) string {
	if after {
		return "after"
	}
	return "before"
}

func (m Model) updatePopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := &m.popup
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeNormal
	case key.Matches(msg, m.keys.Up):
		p.cursor = clampIndex(p.cursor-1, len(p.items))
	case key.Matches(msg, m.keys.Down):
		p.cursor = clampIndex(p.cursor+1, len(p.items))
	case key.Matches(msg, m.keys.Toggle):
		if len(p.items) == 0 {
			m.mode = modeNormal
			return m, nil
		}
		item := p.items[p.cursor]
		if item.disabled {
			return m, nil
		}
		m.mode = modeNormal
		m.applyPopup(item)
	}
	return m, nil
}

func (m *Model) applyPopup(item popupItem) {
	e := m.editor
	switch m.popup.kind {
	case popupMove:
		if e.MoveToRegion(m.popup.row, item.value) {
			m.setStatus(fmt.Sprintf("Moved %s to %s", m.popup.row.ID, item.title))
		}
		m.clampCursor()
	case popupAdd:
		row, err := e.AddContent(item.value)
		if err != nil {
			m.setError(err.Error())
			return
		}
		m.follow(row)
		m.setStatus(fmt.Sprintf("Added %s", row.ID))
	}
}

func (m *Model) openMovePicker(row *model.Row) {
	d, ok := m.editor.Dropdown(row)
	if !ok {
		m.setError("This row cannot be moved")
		return
	}
	p := popup{kind: popupMove, title: "Move " + row.ID + " to", row: row}
	for _, o := range d.Options {
		p.items = append(p.items, popupItem{value: o.Value, title: o.Title, disabled: o.Disabled || o.Value == d.Selected})
	}
	m.popup = p
	m.mode = modePopup
}

func (m *Model) openAddPicker() {
	st := m.editor.Status()
	if !m.editor.Context().AllowChange {
		m.setError(editor.ErrReadOnly.Error())
		return
	}
	p := popup{kind: popupAdd, title: "Add content"}
	for _, b := range st.Buttons {
		p.items = append(p.items, popupItem{value: b.Prefix, title: b.Title, disabled: !b.Enabled})
	}
	if len(p.items) == 0 {
		m.setError(m.editor.Context().Message(model.MsgNoPlugins))
		return
	}
	m.popup = p
	m.mode = modePopup
}

func (m *Model) cycleRegion(dir int) {
	e := m.editor
	all := e.Regions().All()
	if len(all) == 0 {
		return
	}
	i := 0
	for j, r := range all {
		if r.Key == e.Active() {
			i = j
			break
		}
	}
	i = (i + dir + len(all)) % len(all)
	e.SwitchRegion(all[i].Key)
	m.cursor = 0
	m.scrollTo(0)
}

// save writes the document and the editor state in the background. The
// row snapshot is taken on the event loop so the write never races edits.
func (m *Model) save() tea.Cmd {
	if m.opts.SavePath == "" {
		m.setError("Saving is disabled for this document")
		return nil
	}
	e := m.editor
	snapshot := cloneDocument(e.Document())
	state := e.Capture()
	target := editorstate.TagURL(m.opts.PageURL)
	path := m.opts.SavePath
	if m.opts.Watcher != nil {
		m.opts.Watcher.IgnoreNext()
	}
	hookCtx := hooks.SaveContext{
		DocumentPath: path,
		RestoreURL:   target,
		Timestamp:    time.Now(),
	}
	for _, r := range model.ManagedRows(snapshot.Rows) {
		hookCtx.RowCount++
		if r.MarkedForDeletion {
			hookCtx.DeletedCount++
		}
	}
	dir := m.opts.HooksDir
	m.setStatus("Saving…")
	return func() tea.Msg {
		msg := savedMsg{path: path, target: target}
		ex, err := hooks.RunHooks(dir, hookCtx, dir == "")
		if err != nil {
			msg.err = err
			return msg
		}
		if ex != nil {
			if err := ex.RunPreSave(); err != nil {
				msg.err = err
				return msg
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		msg.err = datasource.Commit{Path: path, Doc: snapshot, State: &state, Store: e.Codec()}.Run(ctx)

		if ex != nil && msg.err == nil {
			if err := ex.RunPostSave(); err != nil {
				debug.Log("ui: %v", err)
			}
			msg.hooks = ex.Summary()
		}
		return msg
	}
}

// reload replaces the editor with one bound to the changed document,
// carrying the active region and collapsed sections over.
func (m *Model) reload() {
	path := m.editor.Document().Path
	doc, err := datasource.Load(path)
	if err != nil {
		m.setError(fmt.Sprintf("Reload failed: %v", err))
		return
	}
	diff := datasource.Diff(m.editor.Document(), doc, datasource.DefaultDiffOptions())
	state := m.editor.Capture()

	next := m.opts.Reload(doc)
	if next == nil {
		return
	}
	m.editor.Close()
	region := editorstate.Apply(&state, next.Rows(), next.Regions())
	next.SwitchRegion(region)
	m.editor = next
	m.window, _ = next.Viewport().(*editor.Window)
	m.layout()
	m.clampCursor()
	m.setStatus("Reloaded: " + diff.Summary())
	debug.Log("ui: reloaded %s (%s)", path, diff.Summary())
}

func cloneDocument(doc *model.Document) *model.Document {
	out := &model.Document{Path: doc.Path, Context: doc.Context}
	out.Rows = make([]*model.Row, len(doc.Rows))
	for i, r := range doc.Rows {
		c := *r
		out.Rows[i] = &c
	}
	return out
}

func (m *Model) setStatus(s string) {
	m.statusMsg, m.statusIsErr = s, false
}

func (m *Model) setError(s string) {
	m.statusMsg, m.statusIsErr = s, true
}

func (m Model) bodyHeight() int {
	h := m.height - chromeLines
	if h < 1 {
		h = 1
	}
	return h
}

// layout sizes the editor window to the row list.
func (m *Model) layout() {
	if m.window == nil {
		return
	}
	h := m.bodyHeight()
	m.window.SetHeight(float64(h))
	max := len(m.editor.Visible()) - h
	if max < 0 {
		max = 0
	}
	m.window.SetMax(float64(max))
}

func (m *Model) moveCursor(delta int) {
	m.cursor = clampIndex(m.cursor+delta, len(m.editor.Visible()))
	m.ensureVisible()
}

func (m *Model) clampCursor() {
	m.layout()
	m.cursor = clampIndex(m.cursor, len(m.editor.Visible()))
	m.ensureVisible()
}

// follow keeps the cursor on row after it moved.
func (m *Model) follow(row *model.Row) {
	m.layout()
	if i := m.indexOf(row); i >= 0 {
		m.cursor = i
	}
	m.clampCursor()
}

func (m Model) indexOf(row *model.Row) int {
	for i, r := range m.editor.Visible() {
		if r == row {
			return i
		}
	}
	return -1
}

func (m *Model) scrollTo(y int) {
	m.editor.Viewport().ScrollTo(float64(y))
}

func (m *Model) ensureVisible() {
	top := int(m.editor.Viewport().ScrollY())
	h := m.bodyHeight()
	switch {
	case m.cursor < top:
		m.scrollTo(m.cursor)
	case m.cursor >= top+h:
		m.scrollTo(m.cursor - h + 1)
	}
}

func (m Model) View() string {
	defer metrics.Timer(metrics.UIRender)()

	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(m.renderTabs())
	sb.WriteString("\n")
	sb.WriteString(RenderDivider(m.width))
	sb.WriteString("\n")

	var body []string
	switch m.mode {
	case modeHelp:
		body = strings.Split(m.over.render(m.keys, m.width-4), "\n")
	case modePopup:
		body = strings.Split(m.renderPopup(), "\n")
	default:
		body = m.renderRows()
	}
	h := m.bodyHeight()
	if len(body) > h {
		body = body[:h]
	}
	for len(body) < h {
		body = append(body, "")
	}
	sb.WriteString(strings.Join(body, "\n"))
	sb.WriteString("\n")
	sb.WriteString(m.renderStatus())
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func (m Model) renderHeader() string {
	doc := m.editor.Document()
	title := "ordermachine"
	if doc.Path != "" {
		title += " · " + doc.Path
	}
	if !m.editor.Context().AllowChange {
		title += " (read-only)"
	}
	return m.theme.Header.Render(truncate(title, m.width-2))
}

func (m Model) renderTabs() string {
	e := m.editor
	var tabs []string
	for _, r := range e.Regions().All() {
		label := r.Title
		n := 0
		for _, row := range e.Rows() {
			if row.Managed() && row.Key() == r.Key {
				n++
			}
		}
		label = fmt.Sprintf("%s (%d)", label, n)
		style := m.theme.Tab
		if r.Key == e.Active() {
			style = m.theme.ActiveTab
		}
		if r.Unknown {
			style = style.Foreground(m.theme.Unknown)
		}
		tabs = append(tabs, style.Render(label))
	}
	if len(tabs) == 0 {
		return m.theme.MutedText.Render(e.Context().Message(model.MsgNoRegions))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderRows() []string {
	e := m.editor
	rows := e.Visible()
	if len(rows) == 0 {
		msg := e.Status().Message
		if msg == "" {
			msg = e.Context().Message(model.MsgEmpty)
		}
		return []string{m.theme.MutedText.Render("  " + msg)}
	}

	top := int(e.Viewport().ScrollY())
	if top > len(rows) {
		top = len(rows)
	}
	end := top + m.bodyHeight()
	if end > len(rows) {
		end = len(rows)
	}
	var lines []string
	for i := top; i < end; i++ {
		r := rows[i]
		if r.DropTarget && !r.DropAfter {
			lines = append(lines, RenderDropLine(m.width))
		}
		lines = append(lines, m.renderRow(r, i == m.cursor))
		if r.DropTarget && r.DropAfter {
			lines = append(lines, RenderDropLine(m.width))
		}
	}
	return lines
}

func (m Model) renderRow(r *model.Row, cursor bool) string {
	e := m.editor
	t := m.theme
	tree := e.Tree()

	level := 0
	opener := false
	if tree != nil {
		level = tree.Indent(r)
		opener = tree.IsOpener(r)
	}

	var sb strings.Builder
	if cursor {
		sb.WriteString(t.PrimaryBold.Render("▌"))
	} else {
		sb.WriteString(" ")
	}
	sb.WriteString(t.MutedText.Render("⠿ "))
	for l := 0; l < level; l++ {
		if m.opts.Config.UI.ShowSectionBoxes {
			sb.WriteString(lipgloss.NewStyle().Foreground(sectionColor(l)).Render("│ "))
		} else {
			sb.WriteString("  ")
		}
	}
	switch {
	case r.Collapsed:
		sb.WriteString("▸ ")
	case opener:
		sb.WriteString("▾ ")
	default:
		sb.WriteString("  ")
	}

	title, color := r.Type(), ""
	if p, ok := e.Plugins().Get(r.Type()); ok {
		title, color = p.Title, p.Color
	}
	sb.WriteString(RenderTypeBadge(title, color, level))
	sb.WriteString(" ")

	suffix := " " + t.MutedText.Render(r.Ordering.String())
	var flags []string
	if r.HasError {
		flags = append(flags, t.ErrorText.Render("!"))
	}
	if r.Selected {
		flags = append(flags, t.Picked.Render("◆"))
	}
	if e.InsertBefore() == r {
		flags = append(flags, t.InfoText.Render("⤒"))
	}
	if len(flags) > 0 {
		suffix += " " + strings.Join(flags, "")
	}

	used := lipgloss.Width(sb.String()) + lipgloss.Width(suffix)
	label := r.Label
	if label == "" {
		label = r.ID
	}
	label = padRight(truncate(label, m.width-used-1), m.width-used-1)
	switch {
	case r.MarkedForDeletion:
		label = t.DeletedText.Render(label)
	case r.Dragging:
		label = t.Picked.Render(label)
	case cursor:
		label = t.Selected.Render(label)
	}
	sb.WriteString(label)
	sb.WriteString(suffix)
	return sb.String()
}

func (m Model) renderPopup() string {
	p := m.popup
	var lines []string
	lines = append(lines, m.theme.PrimaryBold.Render(p.title))
	for i, it := range p.items {
		marker := "  "
		if i == p.cursor {
			marker = "> "
		}
		line := marker + it.title
		switch {
		case it.disabled:
			line = m.theme.MutedText.Render(line)
		case i == p.cursor:
			line = m.theme.Selected.Render(line)
		}
		lines = append(lines, line)
	}
	return PopupStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderStatus() string {
	if m.statusMsg != "" {
		if m.statusIsErr {
			return m.theme.ErrorText.Render(truncate(m.statusMsg, m.width))
		}
		return m.theme.InfoText.Render(truncate(m.statusMsg, m.width))
	}
	e := m.editor
	parts := []string{fmt.Sprintf("%d shown", len(e.Visible()))}
	if st := e.Drag().State(); st == drag.Dragging {
		parts = append(parts, "dragging")
	}
	if n := len(e.Selected()); n > 0 {
		parts = append(parts, fmt.Sprintf("%d selected", n))
	}
	if e.CollapsedAll() {
		parts = append(parts, "all collapsed")
	}
	return m.theme.MutedText.Render(strings.Join(parts, " · "))
}
