package model

import (
	"strings"

	"github.com/goccy/go-json"
)

// UnknownRegionPrefix marks region keys synthesized for unrecognized raw values.
const UnknownRegionPrefix = "_unknown_"

// Region is a named placement target for rows.
type Region struct {
	Key       string `json:"key"`
	Title     string `json:"title"`
	Inherited bool   `json:"inherited,omitempty"`
	Unknown   bool   `json:"-"`
}

// IsUnknownKey reports whether key was synthesized for an unknown raw value.
func IsUnknownKey(key string) bool {
	return strings.HasPrefix(key, UnknownRegionPrefix)
}

// Plugin is the static per-type descriptor supplied at initialization.
type Plugin struct {
	Prefix string `json:"prefix"`
	Title  string `json:"title"`
	// Regions is nil when the plugin may be placed in every region.
	Regions []string `json:"regions"`
	// Sections is the nesting depth change introduced by rows of this type.
	Sections int    `json:"sections"`
	Color    string `json:"color,omitempty"`
	Button   string `json:"button,omitempty"`
}

// UnmarshalJSON accepts both the compact payload keys (sections, button)
// and the long-form keys (sectionDelta, iconMarkup).
func (p *Plugin) UnmarshalJSON(data []byte) error {
	var raw struct {
		Prefix       string   `json:"prefix"`
		Title        string   `json:"title"`
		Regions      []string `json:"regions"`
		Sections     *int     `json:"sections"`
		SectionDelta *int     `json:"sectionDelta"`
		Color        string   `json:"color"`
		Button       string   `json:"button"`
		IconMarkup   string   `json:"iconMarkup"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Plugin{
		Prefix:  raw.Prefix,
		Title:   raw.Title,
		Regions: raw.Regions,
		Color:   raw.Color,
		Button:  raw.Button,
	}
	switch {
	case raw.Sections != nil:
		p.Sections = *raw.Sections
	case raw.SectionDelta != nil:
		p.Sections = *raw.SectionDelta
	}
	if p.Button == "" {
		p.Button = raw.IconMarkup
	}
	return nil
}

// Message keys of the initialization payload.
const (
	MsgEmpty          = "empty"
	MsgEmptyInherited = "emptyInherited"
	MsgNoRegions      = "noRegions"
	MsgNoPlugins      = "noPlugins"
	MsgNewItem        = "newItem"
	MsgSelectMultiple = "selectMultiple"
	MsgCollapseAll    = "collapseAll"
	MsgUncollapseAll  = "uncollapseAll"
	MsgForDeletion    = "forDeletion"
	MsgUnknownRegion  = "unknownRegion"
)

var defaultMessages = map[string]string{
	MsgEmpty:          "No items.",
	MsgEmptyInherited: "No items. Region may inherit content from the default.",
	MsgNoRegions:      "No regions available.",
	MsgNoPlugins:      "No plugins allowed in this region.",
	MsgNewItem:        "New item",
	MsgSelectMultiple: "Ctrl-click to select multiple items.",
	MsgCollapseAll:    "Collapse all items",
	MsgUncollapseAll:  "Uncollapse all items",
	MsgForDeletion:    "Marked for deletion",
	MsgUnknownRegion:  "Unknown region",
}

// Context is the initialization payload embedded in the host page.
type Context struct {
	Regions     []Region          `json:"regions"`
	Plugins     []Plugin          `json:"plugins"`
	Messages    map[string]string `json:"messages"`
	AllowChange bool              `json:"allowChange"`
}

// UnmarshalJSON defaults allowChange to true when the payload omits it.
func (c *Context) UnmarshalJSON(data []byte) error {
	type plain Context
	c.AllowChange = true
	return json.Unmarshal(data, (*plain)(c))
}

// Message returns the localized string for key, falling back to an English default.
func (c *Context) Message(key string) string {
	if c != nil {
		if s, ok := c.Messages[key]; ok && s != "" {
			return s
		}
	}
	return defaultMessages[key]
}
