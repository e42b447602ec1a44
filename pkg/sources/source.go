// Package sources resolves which completion sources are eligible for a
// request and executes them, with per-source timeouts enforced at this
// boundary so a hung source can never wedge the orchestrator.
package sources

import (
	"context"

	"github.com/bastiangx/typeflow/pkg/complete"
)

// Kind tells where a source's candidates come from.
type Kind string

const (
	KindNative  Kind = "native"  // in-process
	KindRemote  Kind = "remote"  // separate process, same machine
	KindService Kind = "service" // network service
)

// ISource is the contract every completion source implements.
type ISource interface {
	// Name is the unique source identifier.
	Name() string

	// Kind tells native/remote/service.
	Kind() Kind

	// Priority orders merged results; higher wins ties.
	Priority() int

	// Filetypes lists the filetypes this source serves. Empty means all.
	Filetypes() []string

	// TriggerCharacters lists non-word characters that fire this source
	// for the given filetype.
	TriggerCharacters(filetype string) []string

	// Complete returns candidates for the option.
	Complete(ctx context.Context, opt *complete.Option) ([]complete.Item, error)

	// Resolve fills lazy details (docs, menu text) into the item.
	Resolve(ctx context.Context, item *complete.Item) error

	// Done is the accept hook, called after the user picked this source's
	// item.
	Done(ctx context.Context, item complete.Item) error

	// Filepath points at whatever backs this source, for stats display.
	Filepath() string

	// Dispose releases the source's resources.
	Dispose()
}

// Meta is the stat row exposed for one registered source.
type Meta struct {
	Name     string `msgpack:"name"`
	Filepath string `msgpack:"filepath"`
	Kind     Kind   `msgpack:"type"`
	Disabled bool   `msgpack:"disabled"`
}

// filetypeMatch checks source eligibility by filetype.
func filetypeMatch(filetypes []string, ft string) bool {
	if len(filetypes) == 0 {
		return true
	}
	for _, f := range filetypes {
		if f == ft {
			return true
		}
	}
	return false
}
