/*
Package session owns the completion-session state machine: whether a session
is open, for which option, what has been typed since it opened, and what
character was inserted last.

Splitting "is a session open" from "what was just typed" lets the
orchestrator answer two independent questions on every event: should it react
at all, and whether the reaction is a continuation of the current session or
a brand-new trigger.
*/
package session

import (
	"context"
	"sync"
	"time"

	"github.com/bastiangx/typeflow/pkg/complete"
	"github.com/bastiangx/typeflow/pkg/host"
)

// Tracker receives session lifecycle signals. pkg/documents implements it to
// pause change tracking while a session's own edits land in the buffer.
type Tracker interface {
	Pause(bufnr int)
	Resume(bufnr int)
}

// Insert is the most recently typed character with its arrival time.
type Insert struct {
	Char string
	Time time.Time
}

// State is the session state machine. All mutation goes through its methods;
// the orchestrator is the only caller.
type State struct {
	mu         sync.Mutex
	active     bool
	option     *complete.Option
	search     string
	lastOption *complete.Option // survives Stop for the shrink-restart branch
	lastSearch string           // same
	lastInsert *Insert

	tracker Tracker
}

// New creates an idle session. tracker may be nil.
func New(tracker Tracker) *State {
	return &State{tracker: tracker}
}

// Start opens a session for option, or re-arms an active one with a new
// option. Signals the tracker to pause change tracking for the buffer.
func (s *State) Start(option *complete.Option) {
	s.mu.Lock()
	s.active = true
	s.option = option
	s.search = option.Input
	s.mu.Unlock()

	if s.tracker != nil {
		s.tracker.Pause(option.Bufnr)
	}
}

// Stop closes the session. Idempotent; calling it while idle is a no-op.
// The option and search are remembered so a later shrink below the original
// anchor can be recognized.
func (s *State) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.lastOption = s.option
	s.lastSearch = s.search
	bufnr := s.option.Bufnr
	s.option = nil
	s.search = ""
	s.mu.Unlock()

	if s.tracker != nil {
		s.tracker.Resume(bufnr)
	}
}

// IsActive reports whether a session is open.
func (s *State) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Option returns the active session's option, nil while idle.
func (s *State) Option() *complete.Option {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.option
}

// Search returns the narrowed input typed since the session started.
// Defined only while active.
func (s *State) Search() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.search
}

// SetSearch records the narrowed input.
func (s *State) SetSearch(input string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		s.search = input
	}
}

// RememberedSearch returns the search kept from the last stopped session.
func (s *State) RememberedSearch() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSearch
}

// RememberedOption returns the option kept from the last stopped session.
func (s *State) RememberedOption() *complete.Option {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOption
}

// RecordInsert always records the character, overwriting any previous value,
// regardless of session state.
func (s *State) RecordInsert(char string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastInsert = &Insert{Char: char, Time: time.Now()}
}

// LatestInsert returns the recorded character, nil when none was recorded.
func (s *State) LatestInsert() *Insert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastInsert
}

// TakeInsert returns the recorded character and clears it.
func (s *State) TakeInsert() *Insert {
	s.mu.Lock()
	defer s.mu.Unlock()
	ins := s.lastInsert
	s.lastInsert = nil
	return ins
}

// InsertedWithin reports whether a character arrived within the window.
// Used to collapse duplicate notifications for the same keystroke that
// arrive on two different event channels.
func (s *State) InsertedWithin(window time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastInsert != nil && time.Since(s.lastInsert.Time) < window
}

// ResumeInput asks the host for the text currently typed at the session's
// trigger column. Valid only while active; an empty result means the cursor
// moved off the anchor and the caller should stop the session instead of
// resuming.
func (s *State) ResumeInput(ctx context.Context, h host.Host) (string, error) {
	s.mu.Lock()
	if !s.active || s.option == nil {
		s.mu.Unlock()
		return "", nil
	}
	col := s.option.Col
	s.mu.Unlock()

	input, err := h.ResumeInput(ctx, col)
	if err != nil {
		return "", err
	}
	if input != "" {
		s.SetSearch(input)
	}
	return input, nil
}
