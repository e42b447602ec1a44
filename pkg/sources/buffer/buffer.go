// Package buffer is the native source completing against words already seen
// in the edited text. Every query harvests the words of the line it runs on,
// so the vocabulary grows as the user types.
package buffer

import (
	"context"
	"strings"
	"sync"

	"github.com/bastiangx/typeflow/internal/utils"
	"github.com/bastiangx/typeflow/pkg/complete"
	"github.com/bastiangx/typeflow/pkg/sources"
	"github.com/tchap/go-patricia/v2/patricia"
)

const sourcePriority = 90

// minWordLen keeps one and two letter noise out of the vocabulary.
const minWordLen = 3

// Source completes from harvested buffer words.
type Source struct {
	mu    sync.Mutex
	trie  *patricia.Trie
	seen  map[string]int // word -> times seen
	limit int
}

// New creates the buffer-words source. limit caps candidates per query.
func New(limit int) *Source {
	if limit <= 0 {
		limit = 64
	}
	return &Source{
		trie:  patricia.NewTrie(),
		seen:  make(map[string]int),
		limit: limit,
	}
}

// Ingest harvests the words of a line into the vocabulary.
func (s *Source) Ingest(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, word := range splitWords(line) {
		if len(word) < minWordLen {
			continue
		}
		s.seen[word]++
		s.trie.Insert(patricia.Prefix(strings.ToLower(word)), s.seen[word])
	}
}

// Name implements sources.ISource.
func (s *Source) Name() string { return "buffer" }

// Kind implements sources.ISource.
func (s *Source) Kind() sources.Kind { return sources.KindNative }

// Priority implements sources.ISource.
func (s *Source) Priority() int { return sourcePriority }

// Filetypes implements sources.ISource.
func (s *Source) Filetypes() []string { return nil }

// TriggerCharacters implements sources.ISource.
func (s *Source) TriggerCharacters(string) []string { return nil }

// Filepath implements sources.ISource.
func (s *Source) Filepath() string { return "" }

// Complete implements sources.ISource.
func (s *Source) Complete(ctx context.Context, opt *complete.Option) ([]complete.Item, error) {
	s.Ingest(opt.Line)

	lowerPrefix := strings.ToLower(opt.Input)
	if lowerPrefix == "" {
		return nil, nil
	}
	capitalPositions := utils.CapitalPositions(opt.Input)

	s.mu.Lock()
	defer s.mu.Unlock()

	var items []complete.Item
	err := s.trie.VisitSubtree(patricia.Prefix(lowerPrefix), func(p patricia.Prefix, item patricia.Item) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		word := string(p)
		if word == lowerPrefix {
			return nil
		}
		count, _ := item.(int)
		items = append(items, complete.Item{
			Word:      utils.ApplyCapitalization(word, capitalPositions),
			Kind:      "word",
			Menu:      "[buf]",
			Source:    s.Name(),
			Priority:  sourcePriority,
			Frequency: count,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(items) > s.limit {
		items = items[:s.limit]
	}
	return items, nil
}

// Resolve implements sources.ISource.
func (s *Source) Resolve(context.Context, *complete.Item) error { return nil }

// Done implements sources.ISource. An accepted word counts as seen again so
// it ranks higher next time.
func (s *Source) Done(_ context.Context, item complete.Item) error {
	s.Ingest(item.Word)
	return nil
}

// Dispose implements sources.ISource.
func (s *Source) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trie = patricia.NewTrie()
	s.seen = make(map[string]int)
}

// splitWords pulls the word tokens out of a line.
func splitWords(line string) []string {
	var words []string
	var b strings.Builder
	for _, r := range line {
		if utils.IsWordChar(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			words = append(words, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		words = append(words, b.String())
	}
	return words
}
