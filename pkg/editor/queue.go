package editor

import (
	"sync"
	"time"
)

// settleQueue defers callbacks by a fixed delay. Each timer runs the oldest
// pending callback, so callbacks run in enqueue order even when timers fire
// out of order.
type settleQueue struct {
	delay time.Duration
	post  func(func())

	mu      sync.Mutex
	pending []func()
}

func (q *settleQueue) enqueue(fn func()) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
	time.AfterFunc(q.delay, func() { q.post(q.runOldest) })
}

func (q *settleQueue) runOldest() {
	q.mu.Lock()
	if len(q.pending) == 0 {
		q.mu.Unlock()
		return
	}
	fn := q.pending[0]
	q.pending = q.pending[1:]
	q.mu.Unlock()
	fn()
}

func (q *settleQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *settleQueue) drain() {
	for q.len() > 0 {
		q.runOldest()
	}
}

// inbox collects work posted from timers when the host supplies no event
// loop of its own. It is drained by Editor.Flush.
type inbox struct {
	mu    sync.Mutex
	items []func()
}

func (b *inbox) post(fn func()) {
	b.mu.Lock()
	b.items = append(b.items, fn)
	b.mu.Unlock()
}

func (b *inbox) take() []func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := b.items
	b.items = nil
	return items
}
