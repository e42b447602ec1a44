package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bastiangx/typeflow/pkg/complete"
	"github.com/bastiangx/typeflow/pkg/host"
)

// fakeHost serves canned resume input for ResumeInput tests.
type fakeHost struct {
	resumeInput string
	resumeErr   error
	resumeCol   int
}

func (f *fakeHost) CursorPosition(context.Context) (host.Position, error) {
	return host.Position{}, nil
}

func (f *fakeHost) ResumeInput(_ context.Context, col int) (string, error) {
	f.resumeCol = col
	return f.resumeInput, f.resumeErr
}

func (f *fakeHost) CompleteOption(context.Context) (*complete.Option, error) { return nil, nil }

func (f *fakeHost) ShowCompletion(context.Context, []complete.Item, int) error { return nil }

func (f *fakeHost) HideCompletion(context.Context) error { return nil }

func (f *fakeHost) BufferOption(context.Context, int, string) (string, error) { return "", nil }

func (f *fakeHost) Echo(context.Context, string) error { return nil }

// trackerLog records pause/resume calls in order.
type trackerLog struct {
	calls []string
}

func (t *trackerLog) Pause(bufnr int)  { t.calls = append(t.calls, "pause") }
func (t *trackerLog) Resume(bufnr int) { t.calls = append(t.calls, "resume") }

func option(input string) *complete.Option {
	return &complete.Option{Bufnr: 1, Linenr: 10, Col: 4, Input: input, Line: "some " + input}
}

func TestStartStop(t *testing.T) {
	tracker := &trackerLog{}
	s := New(tracker)

	if s.IsActive() {
		t.Fatal("fresh session should be idle")
	}

	opt := option("fo")
	s.Start(opt)

	if !s.IsActive() {
		t.Fatal("session should be active after Start")
	}
	if s.Search() != "fo" {
		t.Errorf("search = %q, want %q", s.Search(), "fo")
	}
	if s.Option() != opt {
		t.Error("Option() should return the starting option")
	}

	s.Stop()

	if s.IsActive() {
		t.Fatal("session should be idle after Stop")
	}
	if s.Option() != nil {
		t.Error("Option() should be nil while idle")
	}
	if s.Search() != "" {
		t.Errorf("search should clear on Stop, got %q", s.Search())
	}

	want := []string{"pause", "resume"}
	if len(tracker.calls) != len(want) {
		t.Fatalf("tracker calls = %v, want %v", tracker.calls, want)
	}
	for i := range want {
		if tracker.calls[i] != want[i] {
			t.Fatalf("tracker calls = %v, want %v", tracker.calls, want)
		}
	}
}

// Stop while idle must be a no-op: no tracker signal, no state change.
func TestStopIdempotent(t *testing.T) {
	tracker := &trackerLog{}
	s := New(tracker)

	s.Stop()
	if len(tracker.calls) != 0 {
		t.Fatalf("idle Stop signaled the tracker: %v", tracker.calls)
	}

	s.Start(option("ba"))
	s.Stop()
	s.Stop()
	s.Stop()

	if got := len(tracker.calls); got != 2 {
		t.Fatalf("expected exactly one pause and one resume, got %v", tracker.calls)
	}
}

// After Stop the previous option and search stay readable, so a later
// deletion below the old anchor can be recognized and restarted.
func TestStopRemembersSearch(t *testing.T) {
	s := New(nil)

	opt := option("fo")
	s.Start(opt)
	s.SetSearch("foob")
	s.Stop()

	if got := s.RememberedSearch(); got != "foob" {
		t.Errorf("RememberedSearch = %q, want %q", got, "foob")
	}
	if got := s.RememberedOption(); got != opt {
		t.Error("RememberedOption should return the stopped session's option")
	}
}

func TestSetSearchOnlyWhileActive(t *testing.T) {
	s := New(nil)

	s.SetSearch("nope")
	if s.Search() != "" {
		t.Error("SetSearch should be ignored while idle")
	}

	s.Start(option("a"))
	s.SetSearch("ab")
	if s.Search() != "ab" {
		t.Errorf("search = %q, want %q", s.Search(), "ab")
	}
}

func TestRecordInsert(t *testing.T) {
	s := New(nil)

	if s.LatestInsert() != nil {
		t.Fatal("no insert should be recorded initially")
	}

	s.RecordInsert("a")
	s.RecordInsert("b")

	ins := s.LatestInsert()
	if ins == nil || ins.Char != "b" {
		t.Fatalf("LatestInsert = %+v, want char b", ins)
	}

	if got := s.TakeInsert(); got == nil || got.Char != "b" {
		t.Fatalf("TakeInsert = %+v, want char b", got)
	}
	if s.LatestInsert() != nil {
		t.Error("TakeInsert should clear the record")
	}
}

func TestInsertedWithin(t *testing.T) {
	s := New(nil)

	if s.InsertedWithin(time.Hour) {
		t.Fatal("no insert recorded yet")
	}

	s.RecordInsert("x")
	if !s.InsertedWithin(time.Hour) {
		t.Error("fresh insert should be inside a generous window")
	}
	if s.InsertedWithin(0) {
		t.Error("zero window can never match")
	}

	s.lastInsert.Time = time.Now().Add(-50 * time.Millisecond)
	if s.InsertedWithin(30 * time.Millisecond) {
		t.Error("a 50ms old insert is outside a 30ms window")
	}
}

func TestResumeInput(t *testing.T) {
	ctx := context.Background()

	t.Run("idle returns empty without calling the host", func(t *testing.T) {
		s := New(nil)
		h := &fakeHost{resumeInput: "should not matter", resumeCol: -1}

		input, err := s.ResumeInput(ctx, h)
		if err != nil || input != "" {
			t.Fatalf("idle ResumeInput = (%q, %v), want empty", input, err)
		}
		if h.resumeCol != -1 {
			t.Error("idle session must not query the host")
		}
	})

	t.Run("active updates search with non-empty input", func(t *testing.T) {
		s := New(nil)
		s.Start(option("fo"))
		h := &fakeHost{resumeInput: "foo"}

		input, err := s.ResumeInput(ctx, h)
		if err != nil {
			t.Fatal(err)
		}
		if input != "foo" {
			t.Errorf("input = %q, want foo", input)
		}
		if h.resumeCol != 4 {
			t.Errorf("queried col = %d, want the anchor col 4", h.resumeCol)
		}
		if s.Search() != "foo" {
			t.Errorf("search = %q, want foo", s.Search())
		}
	})

	t.Run("empty input leaves search untouched", func(t *testing.T) {
		s := New(nil)
		s.Start(option("fo"))
		h := &fakeHost{resumeInput: ""}

		input, err := s.ResumeInput(ctx, h)
		if err != nil || input != "" {
			t.Fatalf("ResumeInput = (%q, %v), want empty", input, err)
		}
		if s.Search() != "fo" {
			t.Errorf("search changed to %q on empty input", s.Search())
		}
	})

	t.Run("host error propagates", func(t *testing.T) {
		s := New(nil)
		s.Start(option("fo"))
		wantErr := errors.New("editor went away")
		h := &fakeHost{resumeErr: wantErr}

		if _, err := s.ResumeInput(ctx, h); !errors.Is(err, wantErr) {
			t.Fatalf("err = %v, want %v", err, wantErr)
		}
	})
}
