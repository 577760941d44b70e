package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// callbackMsg carries deferred editor work onto the bubbletea loop.
type callbackMsg func()

// Dispatcher is the editor's Post hook for a bubbletea program. The editor
// is built before the program exists, so callbacks posted before Attach are
// held and delivered on attach.
type Dispatcher struct {
	mu      sync.Mutex
	send    func(tea.Msg)
	pending []func()
}

// Post queues fn for the program's Update loop.
func (d *Dispatcher) Post(fn func()) {
	d.mu.Lock()
	send := d.send
	if send == nil {
		d.pending = append(d.pending, fn)
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	send(callbackMsg(fn))
}

// Attach delivers future and held callbacks through send, usually
// (*tea.Program).Send.
func (d *Dispatcher) Attach(send func(tea.Msg)) {
	d.mu.Lock()
	d.send = send
	held := d.pending
	d.pending = nil
	d.mu.Unlock()
	for _, fn := range held {
		send(callbackMsg(fn))
	}
}

// Detach stops delivery; later callbacks are held again.
func (d *Dispatcher) Detach() {
	d.mu.Lock()
	d.send = nil
	d.mu.Unlock()
}
