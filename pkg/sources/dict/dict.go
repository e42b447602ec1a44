// Package dict is the native dictionary source: Patricia-trie prefix lookup
// over lazily loaded chunked word lists, ranked by frequency.
package dict

import (
	"context"
	"strings"

	"github.com/bastiangx/typeflow/internal/utils"
	"github.com/bastiangx/typeflow/pkg/complete"
	"github.com/bastiangx/typeflow/pkg/sources"
	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

const sourcePriority = 50

// Options configure the dictionary source.
type Options struct {
	DataDir            string
	MaxWords           int
	MinFreqThreshold   int // minimum frequency for a word to surface
	MinFreqShortPrefix int // raised threshold for short or repetitive prefixes
	Limit              int // max candidates per query
}

// Source serves word completions from the loaded dictionary.
type Source struct {
	opts   Options
	loader *chunkLoader
	// extra words added at runtime (tests, user words); consulted after the
	// loader's trie
	extra *patricia.Trie
}

// New creates the dictionary source. Call Initialize before first use.
func New(opts Options) *Source {
	if opts.Limit <= 0 {
		opts.Limit = 64
	}
	return &Source{
		opts:  opts,
		extra: patricia.NewTrie(),
	}
}

// Initialize starts lazy chunk loading from the data dir.
func (s *Source) Initialize() error {
	s.loader = newChunkLoader(s.opts.DataDir, s.opts.MaxWords)
	return s.loader.start()
}

// AddWord inserts a word with its frequency, bypassing the chunk files.
func (s *Source) AddWord(word string, frequency int) {
	s.extra.Insert(patricia.Prefix(word), frequency)
}

// Name implements sources.ISource.
func (s *Source) Name() string { return "dict" }

// Kind implements sources.ISource.
func (s *Source) Kind() sources.Kind { return sources.KindNative }

// Priority implements sources.ISource.
func (s *Source) Priority() int { return sourcePriority }

// Filetypes implements sources.ISource. The dictionary serves every
// filetype.
func (s *Source) Filetypes() []string { return nil }

// TriggerCharacters implements sources.ISource. Words only, no punctuation
// triggers.
func (s *Source) TriggerCharacters(string) []string { return nil }

// Filepath implements sources.ISource.
func (s *Source) Filepath() string { return s.opts.DataDir }

// Complete implements sources.ISource.
func (s *Source) Complete(ctx context.Context, opt *complete.Option) ([]complete.Item, error) {
	prefix := opt.Input
	if !utils.IsValidInput(prefix) {
		return nil, nil
	}

	lowerPrefix := strings.ToLower(prefix)
	capitalPositions := utils.CapitalPositions(prefix)

	minThreshold := s.opts.MinFreqThreshold
	if len(lowerPrefix) <= 2 || utils.IsRepetitive(lowerPrefix) {
		minThreshold = s.opts.MinFreqShortPrefix
	}

	var items []complete.Item
	collect := func(p patricia.Prefix, item patricia.Item) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		word := string(p)
		if word == lowerPrefix {
			// the input itself is not a suggestion
			return nil
		}

		freq := 1
		switch v := item.(type) {
		case int:
			freq = v
		case int32:
			freq = int(v)
		case uint32:
			freq = int(v)
		case float64:
			freq = int(v)
		default:
			log.Errorf("Unknown item type: %T for word %s", item, p)
		}

		if freq < minThreshold {
			return nil
		}

		items = append(items, complete.Item{
			Word:      utils.ApplyCapitalization(word, capitalPositions),
			Kind:      "word",
			Source:    s.Name(),
			Priority:  sourcePriority,
			Frequency: freq,
		})
		return nil
	}

	if s.loader != nil {
		if err := s.loader.visit(patricia.Prefix(lowerPrefix), collect); err != nil {
			return nil, err
		}
	}
	if err := s.extra.VisitSubtree(patricia.Prefix(lowerPrefix), collect); err != nil {
		return nil, err
	}

	if len(items) > s.opts.Limit {
		items = items[:s.opts.Limit]
	}
	return items, nil
}

// Resolve implements sources.ISource. Dictionary details are cheap, so this
// only fills the menu text lazily.
func (s *Source) Resolve(_ context.Context, item *complete.Item) error {
	if item.Menu == "" {
		item.Menu = "[dict]"
	}
	return nil
}

// Done implements sources.ISource. Accepting a dictionary word needs no
// follow-up work.
func (s *Source) Done(context.Context, complete.Item) error { return nil }

// Stats reports loader progress for sourceStat displays.
func (s *Source) Stats() map[string]int {
	stats := map[string]int{}
	if s.loader != nil {
		total, maxFreq, chunks := s.loader.stats()
		stats["totalWords"] = total
		stats["maxFrequency"] = maxFreq
		stats["loadedChunks"] = chunks
	}
	return stats
}

// Dispose implements sources.ISource.
func (s *Source) Dispose() {
	if s.loader != nil {
		s.loader.stop()
	}
}
