package sources

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bastiangx/typeflow/pkg/complete"
	"github.com/charmbracelet/log"
)

// Registry holds the registered sources and answers eligibility questions
// for the orchestrator.
type Registry struct {
	mu       sync.RWMutex
	sources  map[string]ISource
	disabled map[string]bool
	timeout  time.Duration
}

// NewRegistry creates an empty registry. timeout bounds each source query.
func NewRegistry(timeout time.Duration) *Registry {
	return &Registry{
		sources:  make(map[string]ISource),
		disabled: make(map[string]bool),
		timeout:  timeout,
	}
}

// Register adds a source. A source registered twice under one name replaces
// the earlier one.
func (r *Registry) Register(s ISource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sources[s.Name()]; ok {
		log.Warnf("source %s re-registered", s.Name())
	}
	r.sources[s.Name()] = s
}

// Get returns the source by name, nil when unknown.
func (r *Registry) Get(name string) ISource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[name]
}

// CompleteSources resolves the sources eligible for the option: enabled,
// matching the filetype, and claiming the trigger character when one fired
// the request. Results are wrapped with the registry's query timeout so they
// plug straight into the cache as providers.
func (r *Registry) CompleteSources(opt *complete.Option) []complete.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var providers []complete.Provider
	for name, s := range r.sources {
		if r.disabled[name] {
			continue
		}
		if !filetypeMatch(s.Filetypes(), opt.Filetype) {
			continue
		}
		if opt.TriggerCharacter != "" && !claims(s, opt.TriggerCharacter, opt.Filetype) {
			continue
		}
		providers = append(providers, &timedSource{source: s, timeout: r.timeout})
	}
	return providers
}

// ForFiletype returns stat rows for the sources serving a filetype.
func (r *Registry) ForFiletype(ft string) []Meta {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var metas []Meta
	for name, s := range r.sources {
		if !filetypeMatch(s.Filetypes(), ft) {
			continue
		}
		metas = append(metas, Meta{
			Name:     name,
			Filepath: s.Filepath(),
			Kind:     s.Kind(),
			Disabled: r.disabled[name],
		})
	}
	sortMetas(metas)
	return metas
}

// ShouldTrigger reports whether any enabled source claims the character for
// the filetype.
func (r *Registry) ShouldTrigger(char, ft string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, s := range r.sources {
		if r.disabled[name] || !filetypeMatch(s.Filetypes(), ft) {
			continue
		}
		if claims(s, char, ft) {
			return true
		}
	}
	return false
}

// Resolve runs the owning source's lazy detail fetch for the item.
func (r *Registry) Resolve(ctx context.Context, item *complete.Item) error {
	s := r.Get(item.Source)
	if s == nil {
		return fmt.Errorf("no source named %q", item.Source)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := s.Resolve(ctx, item); err != nil {
		return err
	}
	item.Resolved = true
	return nil
}

// DoneAccept fires the owning source's accept hook. Errors are logged, not
// returned; accepting an item must never fail user-visibly here.
func (r *Registry) DoneAccept(ctx context.Context, item complete.Item) {
	s := r.Get(item.Source)
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := s.Done(ctx, item); err != nil {
		log.Errorf("source %s accept hook: %v", item.Source, err)
	}
}

// Toggle flips a source's enabled state. Returns the new disabled state.
func (r *Registry) Toggle(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sources[name]; !ok {
		return false, fmt.Errorf("no source named %q", name)
	}
	r.disabled[name] = !r.disabled[name]
	return r.disabled[name], nil
}

// Stat returns stat rows for every registered source.
func (r *Registry) Stat() []Meta {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metas := make([]Meta, 0, len(r.sources))
	for name, s := range r.sources {
		metas = append(metas, Meta{
			Name:     name,
			Filepath: s.Filepath(),
			Kind:     s.Kind(),
			Disabled: r.disabled[name],
		})
	}
	sortMetas(metas)
	return metas
}

// Dispose releases every source. The registry is unusable afterwards.
func (r *Registry) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sources {
		s.Dispose()
	}
	r.sources = make(map[string]ISource)
	r.disabled = make(map[string]bool)
}

func claims(s ISource, char, ft string) bool {
	for _, c := range s.TriggerCharacters(ft) {
		if c == char {
			return true
		}
	}
	return false
}

func sortMetas(metas []Meta) {
	sort.Slice(metas, func(i, j int) bool { return metas[i].Name < metas[j].Name })
}

// timedSource adapts an ISource to complete.Provider, applying the
// registry's per-query timeout.
type timedSource struct {
	source  ISource
	timeout time.Duration
}

func (t *timedSource) Name() string  { return t.source.Name() }
func (t *timedSource) Priority() int { return t.source.Priority() }

func (t *timedSource) Complete(ctx context.Context, opt *complete.Option) ([]complete.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	items, err := t.source.Complete(ctx, opt)
	if err != nil {
		return nil, err
	}
	// stamp ownership so accept/resolve hooks can find their way back
	for i := range items {
		if items[i].Source == "" {
			items[i].Source = t.source.Name()
		}
		if items[i].Priority == 0 {
			items[i].Priority = t.source.Priority()
		}
	}
	return items, nil
}
