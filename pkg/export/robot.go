package export

import (
	"io"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/ordermachine/pkg/model"
	"github.com/vanderheijden86/ordermachine/pkg/ordering"
	"github.com/vanderheijden86/ordermachine/pkg/plugins"
	"github.com/vanderheijden86/ordermachine/pkg/regions"
	"github.com/vanderheijden86/ordermachine/pkg/sections"
)

// RobotDump is the machine-readable view of a document for automation.
type RobotDump struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Version     string         `json:"version,omitempty"`
	Document    string         `json:"document,omitempty"`
	AllowChange bool           `json:"allow_change"`
	Active      string         `json:"active_region,omitempty"`
	Regions     []RobotRegion  `json:"regions"`
	Plugins     []model.Plugin `json:"plugins"`
}

// RobotRegion is one region with its rows in visual order.
type RobotRegion struct {
	Key       string         `json:"key"`
	Title     string         `json:"title"`
	Inherited bool           `json:"inherited,omitempty"`
	Unknown   bool           `json:"unknown,omitempty"`
	Rows      []RobotRow     `json:"rows"`
	Sections  []RobotSection `json:"sections,omitempty"`
}

// RobotRow is one row of a region.
type RobotRow struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Ordering  float64 `json:"ordering"`
	Region    string  `json:"region"`
	Label     string  `json:"label,omitempty"`
	Indent    int     `json:"indent"`
	Parent    string  `json:"parent,omitempty"`
	Collapsed bool    `json:"collapsed,omitempty"`
	Deleted   bool    `json:"deleted,omitempty"`
	HasError  bool    `json:"has_error,omitempty"`
}

// RobotSection is one node of the section forest.
type RobotSection struct {
	Opener   string         `json:"opener"`
	Closer   string         `json:"closer,omitempty"`
	Children []RobotSection `json:"children,omitempty"`
	Rows     []string       `json:"rows"`
}

// BuildRobotDump derives the dump for rows. Every region gets its own
// section forest, exactly as the editor builds it when that region is active.
func BuildRobotDump(rows []*model.Row, regs *regions.Registry, plugs *plugins.Registry) RobotDump {
	d := RobotDump{
		GeneratedAt: time.Now().UTC(),
		Plugins:     plugs.All(),
	}
	managed := model.ManagedRows(rows)
	for _, reg := range regs.All() {
		inRegion := ordering.InRegion(managed, reg.Key)
		tree := sections.Build(inRegion, plugs.SectionDelta)
		rr := RobotRegion{
			Key:       reg.Key,
			Title:     reg.Title,
			Inherited: reg.Inherited,
			Unknown:   reg.Unknown,
			Rows:      make([]RobotRow, 0, len(inRegion)),
		}
		for _, r := range inRegion {
			row := RobotRow{
				ID:        r.ID,
				Type:      r.Type(),
				Ordering:  r.Ordering.SortKey(),
				Region:    r.Region,
				Label:     r.Label,
				Indent:    tree.Indent(r),
				Collapsed: r.Collapsed,
				Deleted:   r.MarkedForDeletion,
				HasError:  r.HasError,
			}
			if p, ok := tree.Parent(r); ok {
				row.Parent = p.ID
			}
			rr.Rows = append(rr.Rows, row)
		}
		// An opener with a delta above one owns several spans; the outermost
		// one closes its section.
		closers := make(map[*model.Row]*model.Row)
		levels := make(map[*model.Row]int)
		for _, s := range tree.Spans {
			if l, seen := levels[s.Opener]; !seen || s.Level < l {
				levels[s.Opener] = s.Level
				closers[s.Opener] = s.Closer
			}
		}
		for _, top := range tree.TopLevel {
			if tree.IsOpener(top) {
				rr.Sections = append(rr.Sections, robotSection(tree, top, closers))
			}
		}
		d.Regions = append(d.Regions, rr)
	}
	return d
}

func robotSection(tree *sections.Tree, opener *model.Row, closers map[*model.Row]*model.Row) RobotSection {
	s := RobotSection{Opener: opener.ID, Rows: []string{}}
	if c := closers[opener]; c != nil {
		s.Closer = c.ID
	}
	for _, child := range tree.Children(opener) {
		s.Rows = append(s.Rows, child.ID)
		if tree.IsOpener(child) {
			s.Children = append(s.Children, robotSection(tree, child, closers))
		}
	}
	return s
}

// WriteRobotJSON encodes d as indented JSON.
func WriteRobotJSON(w io.Writer, d RobotDump) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}
