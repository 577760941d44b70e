package metrics

import "sync/atomic"

// Counter tracks hits and misses of a lookup, such as a store read.
type Counter struct {
	name   string
	hits   int64
	misses int64
	writes int64
}

func newCounter(name string) *Counter {
	return &Counter{name: name}
}

// Hit records a successful lookup.
func (c *Counter) Hit() {
	if enabled {
		atomic.AddInt64(&c.hits, 1)
	}
}

// Miss records a lookup that found nothing.
func (c *Counter) Miss() {
	if enabled {
		atomic.AddInt64(&c.misses, 1)
	}
}

// Write records a store write.
func (c *Counter) Write() {
	if enabled {
		atomic.AddInt64(&c.writes, 1)
	}
}

// Name returns the counter name.
func (c *Counter) Name() string { return c.name }

// Hits returns the number of recorded hits.
func (c *Counter) Hits() int64 { return atomic.LoadInt64(&c.hits) }

// Misses returns the number of recorded misses.
func (c *Counter) Misses() int64 { return atomic.LoadInt64(&c.misses) }

// Writes returns the number of recorded writes.
func (c *Counter) Writes() int64 { return atomic.LoadInt64(&c.writes) }

// HitRate returns hits/(hits+misses), or 0 with no lookups.
func (c *Counter) HitRate() float64 {
	h, m := c.Hits(), c.Misses()
	if h+m == 0 {
		return 0
	}
	return float64(h) / float64(h+m)
}

// Reset clears the counter.
func (c *Counter) Reset() {
	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
	atomic.StoreInt64(&c.writes, 0)
}

// CounterStats is a snapshot of a Counter.
type CounterStats struct {
	Name    string  `json:"name"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Writes  int64   `json:"writes"`
	HitRate float64 `json:"hit_rate"`
}

// Stats returns a snapshot of the counter.
func (c *Counter) Stats() CounterStats {
	return CounterStats{Name: c.name, Hits: c.Hits(), Misses: c.Misses(), Writes: c.Writes(), HitRate: c.HitRate()}
}

var (
	SessionStore = newCounter("session_store")
	LocalStore   = newCounter("local_store")
)

// AllCounters returns all registered counters.
func AllCounters() []*Counter {
	return []*Counter{SessionStore, LocalStore}
}
