// Package testutil provides deterministic row and plugin fixtures.
// All generators produce the same output for the same seed.
package testutil

import (
	"fmt"
	"math/rand"

	"github.com/vanderheijden86/ordermachine/pkg/model"
)

// GeneratorConfig controls fixture generation.
type GeneratorConfig struct {
	Seed    int64    // Random seed (0 = 42)
	Prefix  string   // Plugin prefix for generated rows (default: "text")
	Regions []string // Regions rows are spread across (default: main)
	// InvalidEvery makes every n-th row carry a non-numeric ordering (0 = never).
	InvalidEvery int
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:    42,
		Prefix:  "text",
		Regions: []string{"main"},
	}
}

// Generator creates row fixtures.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "text"
	}
	if len(cfg.Regions) == 0 {
		cfg.Regions = []string{"main"}
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// Rows creates n rows with shuffled, gapped orderings.
func (g *Generator) Rows(n int) []*model.Row {
	rows := make([]*model.Row, n)
	perm := g.rng.Perm(n)
	for i := range rows {
		r := &model.Row{
			ID:       fmt.Sprintf("%s-%d", g.cfg.Prefix, i),
			Prefix:   g.cfg.Prefix,
			Region:   g.cfg.Regions[i%len(g.cfg.Regions)],
			Ordering: model.NewOrdering(float64(7 * (perm[i] + 1))),
		}
		if g.cfg.InvalidEvery > 0 && (i+1)%g.cfg.InvalidEvery == 0 {
			r.Ordering = model.Ordering{}
		}
		rows[i] = r
	}
	return rows
}

// Sequential creates rows row-0..row-(n-1) with orderings 10, 20, ...
// in the given region.
func Sequential(n int, region string) []*model.Row {
	rows := make([]*model.Row, n)
	for i := range rows {
		rows[i] = &model.Row{
			ID:       fmt.Sprintf("text-%d", i),
			Prefix:   "text",
			Region:   region,
			Ordering: model.NewOrdering(float64(10 * (i + 1))),
		}
	}
	return rows
}

// SectionRows creates one row per delta using the prefixes open (+1),
// close (-1) and text (0). Other delta values get a prefix "delta<d>".
func SectionRows(deltas ...int) ([]*model.Row, func(*model.Row) int) {
	rows := make([]*model.Row, len(deltas))
	byPrefix := map[string]int{}
	for i, d := range deltas {
		var prefix string
		switch d {
		case 1:
			prefix = "open"
		case -1:
			prefix = "close"
		case 0:
			prefix = "text"
		default:
			prefix = fmt.Sprintf("delta%d", d)
			if d < 0 {
				prefix = fmt.Sprintf("deltam%d", -d)
			}
		}
		byPrefix[prefix] = d
		rows[i] = &model.Row{
			ID:       fmt.Sprintf("%s-%d", prefix, i),
			Prefix:   prefix,
			Region:   "main",
			Ordering: model.NewOrdering(float64(10 * (i + 1))),
		}
	}
	return rows, func(r *model.Row) int { return byPrefix[r.Prefix] }
}

// Plugins returns a plugin set covering text, section open/close and a
// plugin restricted to the sidebar region.
func Plugins() []model.Plugin {
	return []model.Plugin{
		{Prefix: "text", Title: "Text"},
		{Prefix: "open", Title: "Section", Sections: 1},
		{Prefix: "close", Title: "Section end", Sections: -1},
		{Prefix: "teaser", Title: "Teaser", Regions: []string{"sidebar"}},
	}
}

// Regions returns the declared regions used across tests.
func Regions() []model.Region {
	return []model.Region{
		{Key: "main", Title: "Main content"},
		{Key: "sidebar", Title: "Sidebar", Inherited: true},
	}
}
