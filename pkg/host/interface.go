/*
Package host binds the orchestrator to the editor process.

The editor talks to us over msgpack frames on stdin/stdout. Frames going out
are requests (read the cursor, show the popup); frames coming in are either
responses to those requests, matched by id, or editor events carrying an `ev`
field. Events are converted to typed values and handed to whoever consumes
the Events channel, in arrival order.
*/
package host

import (
	"context"

	"github.com/bastiangx/typeflow/pkg/complete"
)

// Event names delivered by the editor.
const (
	EvInsertCharPre = "insertCharPre" // a character is about to be inserted
	EvTextChangedI  = "textChangedI"  // text changed while typing
	EvTextChangedP  = "textChangedP"  // text changed with the popup visible
	EvInsertEnter   = "insertEnter"
	EvInsertLeave   = "insertLeave"
	EvCompleteDone  = "completeDone" // an item was accepted (or menu dismissed)
)

// Event is one editor notification.
type Event struct {
	Kind  string
	Char  string         // EvInsertCharPre
	Bufnr int            // EvInsertEnter, EvInsertLeave
	Item  *complete.Item // EvCompleteDone, nil when the menu was dismissed
}

// Position is a cursor location reported by the editor.
type Position struct {
	Bufnr  int `msgpack:"bufnr"`
	Linenr int `msgpack:"linenr"`
	Col    int `msgpack:"col"`
}

// Host is the editor surface the core consumes. Every call is a round-trip
// to the editor process and honors the context deadline.
type Host interface {
	// CursorPosition reads the current cursor location.
	CursorPosition(ctx context.Context) (Position, error)

	// ResumeInput reads the text typed at the given column anchor on the
	// cursor line. An empty string means the cursor moved off the anchor.
	ResumeInput(ctx context.Context, col int) (string, error)

	// CompleteOption assembles a fresh completion option at the cursor.
	CompleteOption(ctx context.Context) (*complete.Option, error)

	// ShowCompletion pushes items to the popup anchored at col. The column
	// is always the start of the word being completed and does not advance
	// as the input narrows; the editor positions the popup there and
	// replaces the whole word on accept.
	ShowCompletion(ctx context.Context, items []complete.Item, col int) error

	// HideCompletion closes any visible popup.
	HideCompletion(ctx context.Context) error

	// BufferOption reads a buffer-local option such as the filetype.
	BufferOption(ctx context.Context, bufnr int, name string) (string, error)

	// Echo shows a transient status-line message to the user.
	Echo(ctx context.Context, msg string) error
}

// Wire frame types. Outgoing requests and incoming responses/events share
// the stdio channel; an inbound frame with a non-empty Ev field is an event,
// anything else is a response.

type request struct {
	ID     string          `msgpack:"id"`
	Method string          `msgpack:"method"`
	Col    int             `msgpack:"col,omitempty"`
	Bufnr  int             `msgpack:"bufnr,omitempty"`
	Name   string          `msgpack:"name,omitempty"`
	Msg    string          `msgpack:"msg,omitempty"`
	Items  []complete.Item `msgpack:"items,omitempty"`
}

type inbound struct {
	ID    string `msgpack:"id,omitempty"`
	Ev    string `msgpack:"ev,omitempty"`
	Error string `msgpack:"error,omitempty"`

	// response payloads
	Input  string           `msgpack:"input,omitempty"`
	Pos    *Position        `msgpack:"pos,omitempty"`
	Option *complete.Option `msgpack:"option,omitempty"`
	Value  string           `msgpack:"value,omitempty"`

	// event payloads
	Char  string         `msgpack:"char,omitempty"`
	Bufnr int            `msgpack:"bufnr,omitempty"`
	Item  *complete.Item `msgpack:"item,omitempty"`
}

// request method names
const (
	methodCursor         = "cursor"
	methodResumeInput    = "resumeInput"
	methodCompleteOption = "completeOption"
	methodShow           = "show"
	methodHide           = "hide"
	methodBufferOption   = "bufferOption"
	methodEcho           = "echo"
)
