// Package drag implements the drag session used to reorder rows: which rows
// are being dragged, where they would land, and auto-scrolling while the
// pointer sits near a viewport edge.
package drag

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vanderheijden86/ordermachine/pkg/debug"
	"github.com/vanderheijden86/ordermachine/pkg/metrics"
	"github.com/vanderheijden86/ordermachine/pkg/model"
	"github.com/vanderheijden86/ordermachine/pkg/ordering"
	"github.com/vanderheijden86/ordermachine/pkg/sections"
)

// State is the phase of the drag session.
type State int

const (
	Idle State = iota
	Dragging
	Dropped
	Cancelled
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Dropped:
		return "dropped"
	case Cancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// Host is the row collection the controller operates on.
type Host interface {
	// Rows returns every row, including rows of other regions.
	Rows() []*model.Row
	// Tree returns the current section forest.
	Tree() *sections.Tree
	// Reorder re-derives layout and sections after a drop.
	Reorder()
}

// Scroller scrolls the viewport during a drag.
type Scroller interface {
	ViewportHeight() float64
	ScrollBy(dy float64)
}

// Options tunes drop detection and auto-scroll.
type Options struct {
	// Threshold is the edge band, as a fraction of viewport height, that
	// triggers auto-scroll.
	Threshold float64
	Step      float64
	Interval  time.Duration
	// Margin shifts the before/after midpoint down to compensate for row spacing.
	Margin float64
}

// DefaultOptions returns the standard drag tuning.
func DefaultOptions() Options {
	return Options{
		Threshold: 0.1,
		Step:      10,
		Interval:  10 * time.Millisecond,
		Margin:    5,
	}
}

// Controller owns one drag session at a time.
type Controller struct {
	host     Host
	scroller Scroller
	opts     Options

	// AllowChange disables dragging entirely when false.
	AllowChange bool
	// Post runs fn on the event loop. Auto-scroll ticks are delivered through it.
	Post func(fn func())

	state    State
	last     State
	dragging *model.Row
	target   *model.Row

	cursorY   atomic.Uint64
	hasCursor atomic.Bool
	stop      func()
}

// New creates a controller. scroller may be nil to disable auto-scroll.
func New(host Host, scroller Scroller, opts Options) *Controller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultOptions().Interval
	}
	return &Controller{
		host:        host,
		scroller:    scroller,
		opts:        opts,
		AllowChange: true,
		Post:        func(fn func()) { fn() },
	}
}

// State returns the current phase.
func (c *Controller) State() State {
	return c.state
}

// Last returns how the previous session ended.
func (c *Controller) Last() State {
	return c.last
}

// Dragging returns the row the session started from.
func (c *Controller) Dragging() *model.Row {
	return c.dragging
}

// Options returns the tuning the controller was created with.
func (c *Controller) Options() Options {
	return c.opts
}

// Target returns the current drop target and side.
func (c *Controller) Target() (*model.Row, bool) {
	if c.target == nil {
		return nil, false
	}
	return c.target, c.target.DropAfter
}

// Start begins a session from row. Drags only start from the row's grip.
func (c *Controller) Start(row *model.Row, fromGrip bool) bool {
	if !c.AllowChange || !fromGrip || !row.Managed() || c.state == Dragging {
		return false
	}
	c.state = Dragging
	c.dragging = row
	row.Dragging = true
	row.Selected = true
	c.startMonitor()
	debug.Log("drag: start %s", row.ID)
	return true
}

// ShouldInsertAfter reports whether a pointer at y drops after the row laid
// out at rect.
func (c *Controller) ShouldInsertAfter(rect sections.Rect, y float64) bool {
	return y > rect.Top+rect.Height/2+c.opts.Margin
}

// Over marks target as the drop target for a pointer at y.
func (c *Controller) Over(target *model.Row, rect sections.Rect, y float64) {
	if c.state != Dragging || target == nil {
		return
	}
	c.PointerMove(y)
	if c.target != nil && c.target != target {
		c.target.DropTarget = false
		c.target.DropAfter = false
	}
	c.target = target
	target.DropTarget = true
	target.DropAfter = c.ShouldInsertAfter(rect, y)
}

// PointerMove records the latest pointer position for auto-scroll.
func (c *Controller) PointerMove(y float64) {
	c.cursorY.Store(math.Float64bits(y))
	c.hasCursor.Store(true)
}

// Drop commits the move of every selected row next to target. Selected
// section openers carry their descendants along.
func (c *Controller) Drop(target *model.Row, rect sections.Rect, y float64) bool {
	if c.state != Dragging || target == nil {
		return false
	}
	defer metrics.Timer(metrics.Drop)()

	rows := c.host.Rows()
	if tree := c.host.Tree(); tree != nil {
		for _, r := range rows {
			if r.Selected {
				tree.SelectSection(r)
			}
		}
	}

	var moving []*model.Row
	for _, r := range rows {
		if r.Selected {
			moving = append(moving, r)
		}
	}
	after := c.ShouldInsertAfter(rect, y)
	ordering.MoveSelection(rows, moving, target, after)
	for _, r := range moving {
		r.Selected = false
	}
	debug.Log("drag: dropped %d rows %s %s", len(moving), side(after), target.ID)

	c.finish(Dropped)
	c.host.Reorder()
	return true
}

// End finishes the session without a drop. Orderings and regions are left
// untouched. Calling End when no session is active is a no-op.
func (c *Controller) End() {
	if c.state != Dragging {
		return
	}
	for _, r := range c.host.Rows() {
		r.Selected = false
	}
	c.finish(Cancelled)
	debug.Log("drag: cancelled")
}

func (c *Controller) finish(outcome State) {
	if c.dragging != nil {
		c.dragging.Dragging = false
	}
	if c.target != nil {
		c.target.DropTarget = false
		c.target.DropAfter = false
	}
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	c.hasCursor.Store(false)
	c.dragging = nil
	c.target = nil
	c.last = outcome
	c.state = Idle
}

// startMonitor runs the auto-scroll ticker for the lifetime of the session.
func (c *Controller) startMonitor() {
	if c.scroller == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	c.stop = func() { once.Do(cancel) }

	go func() {
		ticker := time.NewTicker(c.opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if dy := c.scrollDelta(); dy != 0 {
					c.Post(func() {
						if ctx.Err() == nil {
							c.scroller.ScrollBy(dy)
						}
					})
				}
			}
		}
	}()
}

func (c *Controller) scrollDelta() float64 {
	if !c.hasCursor.Load() {
		return 0
	}
	y := math.Float64frombits(c.cursorY.Load())
	h := c.scroller.ViewportHeight()
	switch {
	case y < h*c.opts.Threshold:
		return -c.opts.Step
	case y > h*(1-c.opts.Threshold):
		return c.opts.Step
	}
	return 0
}

func side(after bool) string {
	if after {
		return "after"
	}
	return "before"
}
