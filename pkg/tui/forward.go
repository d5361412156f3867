package tui

import (
	"sync"

	"InteriorEditor/pkg/editor"

	tea "github.com/charmbracelet/bubbletea"
)

// snapshotForwarder hands session snapshots to the program from its own
// goroutine. Publish never blocks, so session mutators may be called from
// Update. Only the newest pending snapshot is kept; the model ignores older
// versions anyway.
type snapshotForwarder struct {
	send func(tea.Msg)

	mu      sync.Mutex
	pending *editor.Form
	wake    chan struct{}
	done    chan struct{}
	stopped sync.Once
}

func newSnapshotForwarder(send func(tea.Msg)) *snapshotForwarder {
	f := &snapshotForwarder{
		send: send,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go f.loop()
	return f
}

// Publish queues form for delivery.
func (f *snapshotForwarder) Publish(form editor.Form) {
	f.mu.Lock()
	if f.pending == nil || form.Version > f.pending.Version {
		f.pending = &form
	}
	f.mu.Unlock()

	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// Stop ends the delivery goroutine. Call it after the program exited, when
// send no longer blocks.
func (f *snapshotForwarder) Stop() {
	f.stopped.Do(func() { close(f.done) })
}

func (f *snapshotForwarder) loop() {
	for {
		select {
		case <-f.done:
			return
		case <-f.wake:
		}

		f.mu.Lock()
		form := f.pending
		f.pending = nil
		f.mu.Unlock()

		if form != nil {
			f.send(formMsg{form: *form})
		}
	}
}
