package complete

// Item is a single completion candidate as produced by a source and shown by
// the host.
type Item struct {
	Word      string `msgpack:"word"`
	Kind      string `msgpack:"kind,omitempty"`
	Menu      string `msgpack:"menu,omitempty"`
	Info      string `msgpack:"info,omitempty"`
	Source    string `msgpack:"source,omitempty"`
	Priority  int    `msgpack:"-"`
	Frequency int    `msgpack:"-"`
	// Resolved flips once the owning source filled in lazy details (Info).
	Resolved bool `msgpack:"-"`
}
