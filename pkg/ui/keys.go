package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	NextRegion  key.Binding
	PrevRegion  key.Binding
	Toggle      key.Binding
	Select      key.Binding
	MoveUp      key.Binding
	MoveDown    key.Binding
	Grab        key.Binding
	Cancel      key.Binding
	MoveRegion  key.Binding
	Add         key.Binding
	InsertHere  key.Binding
	Delete      key.Binding
	CollapseAll key.Binding
	Save        key.Binding
	Copy        key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:          key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		Down:        key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		NextRegion:  key.NewBinding(key.WithKeys("tab", "l"), key.WithHelp("tab", "next region")),
		PrevRegion:  key.NewBinding(key.WithKeys("shift+tab", "h"), key.WithHelp("shift+tab", "previous region")),
		Toggle:      key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "collapse/expand")),
		Select:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "select")),
		MoveUp:      key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "move up")),
		MoveDown:    key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "move down")),
		Grab:        key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "grab/drop")),
		Cancel:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		MoveRegion:  key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "move to region")),
		Add:         key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add content")),
		InsertHere:  key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "insert before row")),
		Delete:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "mark for deletion")),
		CollapseAll: key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "collapse all")),
		Save:        key.NewBinding(key.WithKeys("s", "ctrl+s"), key.WithHelp("s", "save")),
		Copy:        key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy row id")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextRegion, k.Toggle, k.Grab, k.Add, k.Save, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextRegion, k.PrevRegion},
		{k.Toggle, k.CollapseAll, k.Select, k.Delete},
		{k.MoveUp, k.MoveDown, k.Grab, k.Cancel, k.MoveRegion},
		{k.Add, k.InsertHere, k.Save, k.Copy, k.Help, k.Quit},
	}
}

// markdown renders the full key map as a markdown table for the help overlay.
func (k keyMap) markdown() string {
	var sb strings.Builder
	sb.WriteString("# Keys\n\n| Key | Action |\n|---|---|\n")
	for _, group := range k.FullHelp() {
		for _, b := range group {
			h := b.Help()
			fmt.Fprintf(&sb, "| `%s` | %s |\n", h.Key, h.Desc)
		}
	}
	sb.WriteString("\nWhile dragging, `j`/`k` pick the drop target and `g` or `enter` drops.\n")
	return sb.String()
}
