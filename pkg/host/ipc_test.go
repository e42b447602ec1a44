package host

import (
	"context"
	"encoding/binary"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// fakeEditor is the other end of the pipe pair: it reads the client's
// request frames and writes back whatever the test scripts.
type fakeEditor struct {
	t   *testing.T
	in  *io.PipeReader // frames the client wrote
	out *io.PipeWriter // frames the client will read
}

func newPair(t *testing.T, timeout time.Duration) (*Client, *fakeEditor) {
	t.Helper()
	clientIn, editorOut := io.Pipe()
	editorIn, clientOut := io.Pipe()
	c := NewClient(clientIn, clientOut, timeout)
	ed := &fakeEditor{t: t, in: editorIn, out: editorOut}
	t.Cleanup(func() {
		editorOut.Close()
		editorIn.Close()
	})
	return c, ed
}

func (e *fakeEditor) readRequest() map[string]any {
	e.t.Helper()
	var size uint32
	if err := binary.Read(e.in, binary.LittleEndian, &size); err != nil {
		e.t.Fatalf("reading frame size: %v", err)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(e.in, buf); err != nil {
		e.t.Fatalf("reading frame body: %v", err)
	}
	req := map[string]any{}
	if err := msgpack.Unmarshal(buf, &req); err != nil {
		e.t.Fatalf("decoding frame: %v", err)
	}
	return req
}

func (e *fakeEditor) write(frame map[string]any) {
	e.t.Helper()
	data, err := msgpack.Marshal(frame)
	if err != nil {
		e.t.Fatalf("encoding frame: %v", err)
	}
	if err := binary.Write(e.out, binary.LittleEndian, uint32(len(data))); err != nil {
		e.t.Fatalf("writing frame size: %v", err)
	}
	if _, err := e.out.Write(data); err != nil {
		e.t.Fatalf("writing frame body: %v", err)
	}
}

func TestEventDelivery(t *testing.T) {
	c, ed := newPair(t, time.Second)
	go c.Run()

	ed.write(map[string]any{"ev": EvInsertCharPre, "char": "x"})
	ed.write(map[string]any{"ev": EvInsertLeave, "bufnr": 3})

	select {
	case ev := <-c.Events():
		if ev.Kind != EvInsertCharPre || ev.Char != "x" {
			t.Fatalf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event arrived")
	}
	select {
	case ev := <-c.Events():
		if ev.Kind != EvInsertLeave || ev.Bufnr != 3 {
			t.Fatalf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("second event never arrived")
	}
}

func TestCallRoundTrip(t *testing.T) {
	c, ed := newPair(t, time.Second)
	go c.Run()

	go func() {
		req := ed.readRequest()
		if req["method"] != "resumeInput" {
			t.Errorf("method = %v, want resumeInput", req["method"])
		}
		ed.write(map[string]any{"id": req["id"], "input": "foo"})
	}()

	input, err := c.ResumeInput(context.Background(), 4)
	if err != nil {
		t.Fatal(err)
	}
	if input != "foo" {
		t.Errorf("input = %q, want foo", input)
	}
}

func TestCallErrorResponse(t *testing.T) {
	c, ed := newPair(t, time.Second)
	go c.Run()

	go func() {
		req := ed.readRequest()
		ed.write(map[string]any{"id": req["id"], "error": "no such buffer"})
	}()

	_, err := c.CursorPosition(context.Background())
	if err == nil || !strings.Contains(err.Error(), "no such buffer") {
		t.Fatalf("err = %v, want the editor's error text", err)
	}
}

// A request the editor never answers must fail after the configured
// timeout instead of hanging the caller.
func TestCallTimeout(t *testing.T) {
	c, ed := newPair(t, 30*time.Millisecond)
	go c.Run()

	go ed.readRequest() // consume the request, never reply

	start := time.Now()
	_, err := c.ResumeInput(context.Background(), 0)
	if err == nil {
		t.Fatal("unanswered call should time out")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("timeout took %v", elapsed)
	}
}

// Echo and hide are notifications: one outbound frame, no response
// expected, immediate return.
func TestNotify(t *testing.T) {
	c, ed := newPair(t, time.Second)
	go c.Run()

	done := make(chan map[string]any, 1)
	go func() { done <- ed.readRequest() }()

	if err := c.HideCompletion(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case req := <-done:
		if req["method"] != "hide" {
			t.Fatalf("method = %v, want hide", req["method"])
		}
	case <-time.After(time.Second):
		t.Fatal("no frame written")
	}
}

func TestRunEndsOnEOF(t *testing.T) {
	c, ed := newPair(t, time.Second)

	runDone := make(chan error, 1)
	go func() { runDone <- c.Run() }()

	ed.out.Close()

	select {
	case err := <-runDone:
		if err != nil {
			t.Fatalf("Run returned %v on clean EOF", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return on EOF")
	}

	if _, ok := <-c.Events(); ok {
		t.Fatal("events channel should close with the connection")
	}
	if err := c.Echo(context.Background(), "late"); err == nil {
		t.Fatal("calls after close should fail")
	}
}
