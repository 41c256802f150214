package socketio

import (
	"sync"
	"time"
)

// Event is a change noticed by the playback watcher.
type Event int

const (
	// EventItem means a different item is playing; clients need a new render.
	EventItem Event = iota
	// EventPlayback means play/pause changed; clients only need progress.
	EventPlayback
)

// BroadcastDebouncer collapses bursts of watcher events into one broadcast per
// kind. Skipping through a playlist yields a single render once it settles.
type BroadcastDebouncer struct {
	window           time.Duration
	renderCallback   func()
	progressCallback func()

	mu              sync.Mutex
	pendingRender   bool
	pendingProgress bool
	timer           *time.Timer
	stopped         bool
}

// NewBroadcastDebouncer creates a debouncer with the given window.
// renderCallback runs for item changes, progressCallback for playback changes.
func NewBroadcastDebouncer(window time.Duration, renderCallback, progressCallback func()) *BroadcastDebouncer {
	return &BroadcastDebouncer{
		window:           window,
		renderCallback:   renderCallback,
		progressCallback: progressCallback,
	}
}

// Trigger records an event. Callbacks run once the window elapses without
// further triggers. A pending render supersedes a pending progress push.
func (d *BroadcastDebouncer) Trigger(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	switch ev {
	case EventItem:
		d.pendingRender = true
	case EventPlayback:
		d.pendingProgress = true
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

func (d *BroadcastDebouncer) flush() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	doRender := d.pendingRender
	doProgress := d.pendingProgress && !doRender
	d.pendingRender = false
	d.pendingProgress = false
	d.mu.Unlock()

	if doRender && d.renderCallback != nil {
		d.renderCallback()
	}
	if doProgress && d.progressCallback != nil {
		d.progressCallback()
	}
}

// Stop prevents any further callbacks from firing.
func (d *BroadcastDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pendingRender = false
	d.pendingProgress = false
}
