// Package documents keeps per-buffer bookkeeping for the orchestrator.
// While a completion session is open its own triggered edits must not
// re-enter the event stream as unrelated changes, so change tracking is
// paused for the session's buffer.
package documents

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Tracker records which buffers have change tracking paused.
// Pause and Resume are idempotent and safe for buffers never seen before.
type Tracker struct {
	mu     sync.Mutex
	paused map[int]bool
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{paused: make(map[int]bool)}
}

// Pause suspends change tracking for the buffer.
func (t *Tracker) Pause(bufnr int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.paused[bufnr] {
		log.Debugf("pausing change tracking for buffer %d", bufnr)
	}
	t.paused[bufnr] = true
}

// Resume re-enables change tracking for the buffer.
func (t *Tracker) Resume(bufnr int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paused[bufnr] {
		log.Debugf("resuming change tracking for buffer %d", bufnr)
	}
	delete(t.paused, bufnr)
}

// IsPaused reports whether the buffer's change tracking is paused.
func (t *Tracker) IsPaused(bufnr int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused[bufnr]
}
