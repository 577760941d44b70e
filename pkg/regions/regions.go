// Package regions is the catalog of placement regions.
//
// Region keys that do not match a declared region are quarantined: a
// synthetic "unknown" region is registered for each distinct raw value so
// legacy rows stay visible under a flagged tab instead of disappearing.
package regions

import (
	"fmt"

	"github.com/vanderheijden86/ordermachine/pkg/debug"
	"github.com/vanderheijden86/ordermachine/pkg/model"
)

// Registry maps region keys to their metadata, keeping declaration order.
type Registry struct {
	order        []string
	byKey        map[string]*model.Region
	unknownLabel string
}

// New builds a registry from the declared regions. Duplicate keys keep the
// first declaration.
func New(declared []model.Region, unknownLabel string) *Registry {
	r := &Registry{
		byKey:        make(map[string]*model.Region, len(declared)),
		unknownLabel: unknownLabel,
	}
	for _, d := range declared {
		if _, dup := r.byKey[d.Key]; dup {
			debug.Log("regions: duplicate region key %q ignored", d.Key)
			continue
		}
		reg := d
		reg.Unknown = false
		r.byKey[d.Key] = &reg
		r.order = append(r.order, d.Key)
	}
	return r
}

// UnknownKey returns the synthetic key used for raw.
func UnknownKey(raw string) string {
	return model.UnknownRegionPrefix + raw
}

// Classify resolves a raw region value to a registered key, registering an
// unknown region for raw on first sight. It never fails.
func (r *Registry) Classify(raw string) string {
	if reg, ok := r.byKey[raw]; ok && !reg.Unknown {
		return raw
	}
	key := UnknownKey(raw)
	if _, ok := r.byKey[key]; ok {
		return key
	}
	r.byKey[key] = &model.Region{
		Key:     key,
		Title:   fmt.Sprintf("%s: %s", r.unknownLabel, raw),
		Unknown: true,
	}
	r.order = append(r.order, key)
	debug.Log("regions: registered unknown region %q", raw)
	return key
}

// IsKnown reports whether key is registered, declared or synthesized.
func (r *Registry) IsKnown(key string) bool {
	_, ok := r.byKey[key]
	return ok
}

// IsInherited reports whether key names a declared inherited region.
func (r *Registry) IsInherited(key string) bool {
	reg, ok := r.byKey[key]
	return ok && reg.Inherited
}

// IsUnknown reports whether key names a synthesized region.
func (r *Registry) IsUnknown(key string) bool {
	reg, ok := r.byKey[key]
	return ok && reg.Unknown
}

// Get returns the region for key.
func (r *Registry) Get(key string) (model.Region, bool) {
	reg, ok := r.byKey[key]
	if !ok {
		return model.Region{}, false
	}
	return *reg, true
}

// All returns every region, declared ones first, in registration order.
func (r *Registry) All() []model.Region {
	out := make([]model.Region, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, *r.byKey[k])
	}
	return out
}

// Declared returns the keys of the regions that are not synthesized.
func (r *Registry) Declared() []string {
	var out []string
	for _, k := range r.order {
		if !r.byKey[k].Unknown {
			out = append(out, k)
		}
	}
	return out
}

// First returns the first registered region key, or "" if there is none.
func (r *Registry) First() string {
	if len(r.order) == 0 {
		return ""
	}
	return r.order[0]
}

// Len returns the number of registered regions.
func (r *Registry) Len() int {
	return len(r.order)
}
