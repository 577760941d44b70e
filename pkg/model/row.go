// Package model defines the data types shared by the ordering, region and
// section engines: rows rendered by the host form, regions, plugin
// descriptors and the persisted editor state.
package model

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Ordering is the numeric sort key carried by a row's ordering field.
// An invalid ordering (empty or non-numeric input) sorts after every valid one.
type Ordering struct {
	Value float64
	Valid bool
}

// ParseOrdering converts a raw form value into an Ordering.
func ParseOrdering(raw string) Ordering {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ordering{}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Ordering{}
	}
	return Ordering{Value: v, Valid: true}
}

// NewOrdering returns a valid ordering with the given value.
func NewOrdering(v float64) Ordering {
	return Ordering{Value: v, Valid: true}
}

// SortKey returns the value used for visual sorting; invalid orderings map to +Inf.
func (o Ordering) SortKey() float64 {
	if !o.Valid {
		return math.Inf(1)
	}
	return o.Value
}

// MarshalJSON writes the ordering as the form field string.
func (o Ordering) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON accepts a number or a (possibly empty) string.
func (o *Ordering) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*o = ParseOrdering(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*o = Ordering{}
		return nil
	}
	*o = NewOrdering(f)
	return nil
}

// String renders the ordering the way it is written back into the form field.
func (o Ordering) String() string {
	if !o.Valid {
		return ""
	}
	return strconv.FormatFloat(o.Value, 'f', -1, 64)
}

// Row is a handle to one content item rendered by the host form.
//
// The host owns the row; the engines only read and write Ordering, Region,
// Collapsed and Selected plus the derived visibility flags.
type Row struct {
	ID       string   `json:"id"`
	Prefix   string   `json:"prefix"`
	Ordering Ordering `json:"ordering"`
	Region   string   `json:"region"`
	// RegionKey is Region resolved against the region registry. It differs
	// from Region only for rows quarantined in an unknown region.
	RegionKey string            `json:"-"`
	Label     string            `json:"label,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`

	Collapsed         bool `json:"collapsed,omitempty"`
	Selected          bool `json:"-"`
	MarkedForDeletion bool `json:"delete,omitempty"`
	HasError          bool `json:"has_error,omitempty"`
	IsTemplate        bool `json:"template,omitempty"`

	// Hidden is set when an ancestor section is collapsed.
	Hidden bool `json:"-"`
	// Invisible is set when the row belongs to another region than the active one.
	Invisible bool `json:"-"`

	Dragging   bool `json:"-"`
	DropTarget bool `json:"-"`
	DropAfter  bool `json:"-"`
}

var rowIDPattern = regexp.MustCompile(`^([a-z0-9_]+)-\d+$`)

// PrefixFromID extracts the plugin prefix from a host row ID such as
// "testapp_text-3". It returns "" when the ID does not follow that shape.
func PrefixFromID(id string) string {
	m := rowIDPattern.FindStringSubmatch(id)
	if m == nil {
		return ""
	}
	return m[1]
}

// Type returns the plugin type of the row, falling back to the ID prefix.
func (r *Row) Type() string {
	if r.Prefix != "" {
		return r.Prefix
	}
	return PrefixFromID(r.ID)
}

// Key returns the resolved region key, falling back to the raw form value.
func (r *Row) Key() string {
	if r.RegionKey != "" {
		return r.RegionKey
	}
	return r.Region
}

// SetRegion moves the row into region, updating both the form value and
// the resolved key.
func (r *Row) SetRegion(region string) {
	r.Region = region
	r.RegionKey = region
}

// Shown reports whether the row is currently displayed: in the active
// region and not hidden by a collapsed ancestor.
func (r *Row) Shown() bool {
	return !r.IsTemplate && !r.Invisible && !r.Hidden
}

// Managed reports whether the row takes part in ordering and region operations.
func (r *Row) Managed() bool {
	return r != nil && !r.IsTemplate
}

// ManagedRows filters out template rows.
func ManagedRows(rows []*Row) []*Row {
	out := make([]*Row, 0, len(rows))
	for _, r := range rows {
		if r.Managed() {
			out = append(out, r)
		}
	}
	return out
}
