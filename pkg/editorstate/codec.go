// Package editorstate carries the editor's UI state across a form submit:
// the active region, the scroll offset and which rows were collapsed.
//
// State is written to a per-page session slot right before submit and read
// back only when the reloaded URL carries the restore marker.
package editorstate

import (
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/ordermachine/pkg/debug"
	"github.com/vanderheijden86/ordermachine/pkg/model"
	"github.com/vanderheijden86/ordermachine/pkg/regions"
	"github.com/vanderheijden86/ordermachine/pkg/storage"
)

// Marker is the URL fragment that requests a restore.
const Marker = "restore"

// Codec persists EditorState for one page path.
type Codec struct {
	session *storage.Safe
	path    string
}

// New creates a codec writing to session under the key for pagePath.
func New(session *storage.Safe, pagePath string) *Codec {
	return &Codec{session: session, path: pagePath}
}

// PathOf returns the path component of a page URL, or the input itself when
// it does not parse.
func PathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return rawURL
	}
	return u.Path
}

func (c *Codec) key() string {
	return storage.Key(c.path)
}

// Capture snapshots the UI state. Collapsed rows are identified by their
// ordering value, which the reloaded page renders unchanged.
func Capture(active string, scrollY float64, rows []*model.Row) model.EditorState {
	st := model.EditorState{Region: active, ScrollY: scrollY, Collapsed: []string{}}
	for _, r := range rows {
		if r.Managed() && r.Collapsed {
			st.Collapsed = append(st.Collapsed, r.Ordering.String())
		}
	}
	return st
}

// Persist writes state to the session slot. Failures are dropped.
func (c *Codec) Persist(state model.EditorState) {
	data, err := json.Marshal(state)
	if err != nil {
		debug.Log("editorstate: encode failed: %v", err)
		return
	}
	c.session.Set(c.key(), data)
}

// TagURL returns the submit target for action: its fragment replaced by the
// restore marker.
func TagURL(action string) string {
	base, _, _ := strings.Cut(action, "#")
	return base + "#" + Marker
}

// HasMarker reports whether the fragment of rawURL contains the marker.
func HasMarker(rawURL string) bool {
	_, frag, ok := strings.Cut(rawURL, "#")
	return ok && strings.Contains(frag, Marker)
}

// StripMarker returns rawURL without its fragment, so a later reload of the
// same address does not restore again.
func StripMarker(rawURL string) string {
	if !HasMarker(rawURL) {
		return rawURL
	}
	base, _, _ := strings.Cut(rawURL, "#")
	return base
}

// Restore returns the saved state when rawURL carries the marker. The slot
// is cleared on read. A missing or corrupt slot yields nil.
func (c *Codec) Restore(rawURL string) *model.EditorState {
	if !HasMarker(rawURL) {
		return nil
	}
	data, ok := c.session.Get(c.key())
	if !ok {
		return nil
	}
	c.session.Delete(c.key())

	var st model.EditorState
	if err := json.Unmarshal(data, &st); err != nil {
		debug.Log("editorstate: discarding corrupt state for %s: %v", c.path, err)
		return nil
	}
	return &st
}

// Apply replays state onto rows and returns the region to activate: the
// saved one if it still exists, otherwise the first region. Rows with
// validation errors always come back expanded. A nil state collapses
// nothing and selects the first region.
func Apply(state *model.EditorState, rows []*model.Row, regs *regions.Registry) string {
	if state == nil {
		return regs.First()
	}
	collapsed := make(map[string]bool, len(state.Collapsed))
	for _, id := range state.Collapsed {
		collapsed[id] = true
	}
	for _, r := range rows {
		if !r.Managed() {
			continue
		}
		r.Collapsed = collapsed[r.Ordering.String()] && !r.HasError
	}
	if state.Region != "" && regs.IsKnown(state.Region) {
		return state.Region
	}
	return regs.First()
}
