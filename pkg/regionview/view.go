// Package regionview filters rows by the active region and implements the
// move-to-region action.
package regionview

import (
	"github.com/vanderheijden86/ordermachine/pkg/debug"
	"github.com/vanderheijden86/ordermachine/pkg/metrics"
	"github.com/vanderheijden86/ordermachine/pkg/model"
	"github.com/vanderheijden86/ordermachine/pkg/ordering"
	"github.com/vanderheijden86/ordermachine/pkg/plugins"
	"github.com/vanderheijden86/ordermachine/pkg/regions"
)

// Host supplies the rows and rebuilds derived layout after a change.
type Host interface {
	Rows() []*model.Row
	// Rebuild re-derives sections for the active region.
	Rebuild()
}

// Button is one "add plugin" button.
type Button struct {
	Prefix  string
	Title   string
	Enabled bool
}

// Status describes what the region pane shows after a refresh.
type Status struct {
	Region  string
	Visible int
	// Message is the placeholder shown instead of rows, or "".
	Message   string
	NoPlugins bool
	NoRegions bool
	Buttons   []Button
	// InsertTargets is false when no plugin may be added to the region.
	InsertTargets bool
}

// Option is one entry of the move-to-region dropdown.
type Option struct {
	Value    string
	Title    string
	Disabled bool
}

// Dropdown is the move-to-region selector of a row.
type Dropdown struct {
	Options []Option
	// Selected is the current value; "" while the row sits in an unknown region.
	Selected string
}

// View tracks the active region.
type View struct {
	host    Host
	regs    *regions.Registry
	plugins *plugins.Registry
	ctx     *model.Context
	active  string
}

// New creates a view. The active region starts empty until SwitchTo.
func New(host Host, regs *regions.Registry, plugs *plugins.Registry, ctx *model.Context) *View {
	return &View{host: host, regs: regs, plugins: plugs, ctx: ctx}
}

// Active returns the active region key.
func (v *View) Active() string {
	return v.active
}

// SwitchTo activates region and rebuilds sections for it.
func (v *View) SwitchTo(region string) Status {
	defer metrics.Timer(metrics.RegionSwitch)()
	v.active = region
	st := v.Refresh()
	v.host.Rebuild()
	debug.Log("regionview: switched to %q (%d rows)", region, st.Visible)
	return st
}

// Refresh reapplies region visibility and recomputes the pane status
// without rebuilding sections.
func (v *View) Refresh() Status {
	st := Status{Region: v.active}
	for _, r := range v.host.Rows() {
		if !r.Managed() {
			continue
		}
		r.Invisible = r.Key() != v.active
		if !r.Invisible {
			st.Visible++
		}
	}

	if st.Visible == 0 {
		if v.regs.IsInherited(v.active) {
			st.Message = v.ctx.Message(model.MsgEmptyInherited)
		} else {
			st.Message = v.ctx.Message(model.MsgEmpty)
		}
	}

	enabled := 0
	for _, p := range v.plugins.All() {
		ok := v.plugins.IsAllowedIn(p.Prefix, v.active, v.regs)
		st.Buttons = append(st.Buttons, Button{Prefix: p.Prefix, Title: p.Title, Enabled: ok})
		if ok {
			enabled++
		}
	}
	st.InsertTargets = enabled > 0
	if enabled == 0 && v.active != "" && v.ctx.AllowChange {
		st.NoPlugins = true
		st.Message = v.ctx.Message(model.MsgNoPlugins)
	}
	if len(v.regs.Declared()) == 0 {
		st.NoRegions = true
		st.Message = v.ctx.Message(model.MsgNoRegions)
	}
	return st
}

// MoveRowToRegion assigns row to region and appends it to the end of the
// global order. It returns false without changes when region is empty,
// unchanged, not a real region, or the editor is read-only.
func (v *View) MoveRowToRegion(row *model.Row, region string) bool {
	if !row.Managed() || region == "" || region == row.Key() || !v.ctx.AllowChange {
		return false
	}
	if !v.regs.IsKnown(region) || v.regs.IsUnknown(region) {
		debug.Log("regionview: refusing move of %s to %q", row.ID, region)
		return false
	}
	row.SetRegion(region)
	ordering.SetBiggest(v.host.Rows(), row)
	v.Refresh()
	v.host.Rebuild()
	return true
}

// Dropdown builds the move-to-region selector for row. ok is false when
// there is nothing to choose: fewer than two destinations and the row is
// not stranded in an unknown region.
func (v *View) Dropdown(row *model.Row) (d Dropdown, ok bool) {
	if !row.Managed() || !v.ctx.AllowChange {
		return Dropdown{}, false
	}
	var allowed []string
	if p, known := v.plugins.Get(row.Type()); known && p.Regions != nil {
		allowed = v.plugins.AllowedRegions(p.Prefix, v.regs)
	} else {
		allowed = v.regs.Declared()
	}

	unknown := v.regs.IsUnknown(row.Key())
	if len(allowed) < 2 && !unknown {
		return Dropdown{}, false
	}

	if unknown {
		d.Options = append(d.Options, Option{Title: v.ctx.Message(model.MsgUnknownRegion), Disabled: true})
	} else {
		d.Selected = row.Key()
	}
	for _, k := range allowed {
		reg, _ := v.regs.Get(k)
		d.Options = append(d.Options, Option{Value: k, Title: reg.Title})
	}
	return d, true
}
