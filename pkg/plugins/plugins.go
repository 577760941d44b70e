// Package plugins holds the static plugin descriptors and answers the
// per-type questions the engines ask: nesting delta and allowed regions.
package plugins

import (
	"github.com/vanderheijden86/ordermachine/pkg/model"
	"github.com/vanderheijden86/ordermachine/pkg/regions"
)

// Registry looks up plugin descriptors by prefix.
type Registry struct {
	order  []string
	byType map[string]model.Plugin
}

// New builds a registry from the initialization payload.
func New(list []model.Plugin) *Registry {
	r := &Registry{byType: make(map[string]model.Plugin, len(list))}
	for _, p := range list {
		if _, dup := r.byType[p.Prefix]; dup {
			continue
		}
		r.byType[p.Prefix] = p
		r.order = append(r.order, p.Prefix)
	}
	return r
}

// Get returns the descriptor for prefix.
func (r *Registry) Get(prefix string) (model.Plugin, bool) {
	p, ok := r.byType[prefix]
	return p, ok
}

// Has reports whether rows of prefix are managed by the editor.
func (r *Registry) Has(prefix string) bool {
	_, ok := r.byType[prefix]
	return ok
}

// All returns the descriptors in declaration order.
func (r *Registry) All() []model.Plugin {
	out := make([]model.Plugin, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.byType[k])
	}
	return out
}

// SectionDelta returns the nesting change for a row; 0 for unknown types.
func (r *Registry) SectionDelta(row *model.Row) int {
	return r.byType[row.Type()].Sections
}

// HasSections reports whether any plugin opens or closes sections.
func (r *Registry) HasSections() bool {
	for _, p := range r.byType {
		if p.Sections != 0 {
			return true
		}
	}
	return false
}

// AllowedRegions returns the region keys a plugin may be placed in: the
// plugin's explicit list, or every declared region. Synthesized regions
// are never included.
func (r *Registry) AllowedRegions(prefix string, regs *regions.Registry) []string {
	p, ok := r.byType[prefix]
	if !ok {
		return nil
	}
	if p.Regions == nil {
		return regs.Declared()
	}
	var out []string
	for _, k := range p.Regions {
		if regs.IsKnown(k) && !regs.IsUnknown(k) {
			out = append(out, k)
		}
	}
	return out
}

// IsAllowedIn reports whether prefix may be added to or moved into region.
// Unknown plugins, an empty region catalog and synthesized regions all
// answer false.
func (r *Registry) IsAllowedIn(prefix, region string, regs *regions.Registry) bool {
	if _, ok := r.byType[prefix]; !ok || len(regs.Declared()) == 0 {
		return false
	}
	if regs.IsUnknown(region) {
		return false
	}
	for _, k := range r.AllowedRegions(prefix, regs) {
		if k == region {
			return true
		}
	}
	return false
}
