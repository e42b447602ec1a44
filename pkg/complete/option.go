// Package complete holds the completion data model and the result cache that
// can narrow a fetched result set without going back to the sources.
package complete

// Option is the immutable per-request context a completion attempt runs
// against: where the cursor is, what partial word is typed and what caused
// the request.
type Option struct {
	Bufnr    int    `msgpack:"bufnr"`
	Linenr   int    `msgpack:"linenr"`
	Col      int    `msgpack:"col"` // column anchor of the triggered word
	Input    string `msgpack:"input"`
	Line     string `msgpack:"line"`
	Filetype string `msgpack:"filetype"`
	// TriggerCharacter is set when a non-word character fired the request
	TriggerCharacter string `msgpack:"triggerCharacter,omitempty"`
}

// SameSession checks whether other belongs to the same completion session:
// same buffer, same line and the same column anchor of the originally
// triggered word. Input is expected to grow or shrink as the user types.
func (o *Option) SameSession(other *Option) bool {
	if o == nil || other == nil {
		return false
	}
	return o.Bufnr == other.Bufnr && o.Linenr == other.Linenr && o.Col == other.Col
}

// Narrow returns a copy of the option carrying the narrowed input. The
// column anchor stays put: it marks the start of the word being completed,
// which does not move as the user types more of it.
func (o *Option) Narrow(input string) *Option {
	adjusted := *o
	adjusted.Input = input
	return &adjusted
}
