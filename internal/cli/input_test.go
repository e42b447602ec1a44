package cli

import (
	"context"
	"testing"
	"time"

	"github.com/bastiangx/typeflow/pkg/complete"
	"github.com/bastiangx/typeflow/pkg/sources"
)

// stubSource is a minimal ISource for command tests.
type stubSource struct {
	name      string
	filetypes []string
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Kind() sources.Kind { return sources.KindNative }

func (s *stubSource) Priority() int { return 10 }

func (s *stubSource) Filetypes() []string { return s.filetypes }

func (s *stubSource) TriggerCharacters(string) []string { return nil }

func (s *stubSource) Filepath() string { return "" }

func (s *stubSource) Complete(context.Context, *complete.Option) ([]complete.Item, error) {
	return nil, nil
}

func (s *stubSource) Resolve(context.Context, *complete.Item) error { return nil }

func (s *stubSource) Done(context.Context, complete.Item) error { return nil }

func (s *stubSource) Dispose() {}

// ":sources <filetype>" scopes the listing; bare ":sources" lists everything.
func TestSourceMetasScoping(t *testing.T) {
	registry := sources.NewRegistry(time.Second)
	registry.Register(&stubSource{name: "dict"})
	registry.Register(&stubSource{name: "gopher", filetypes: []string{"go"}})
	h := NewInputHandler(registry, complete.NewCache(), 0, false)

	all := h.sourceMetas(nil)
	if len(all) != 2 {
		t.Fatalf("unscoped metas = %v, want both sources", all)
	}

	scoped := h.sourceMetas([]string{"markdown"})
	if len(scoped) != 1 || scoped[0].Name != "dict" {
		t.Fatalf("markdown metas = %v, want only dict", scoped)
	}
}
