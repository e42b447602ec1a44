package complete

import (
	"context"
	"sort"
	"sync"

	"github.com/bastiangx/typeflow/internal/utils"
	"github.com/charmbracelet/log"
)

// Provider is the slice of a completion source the cache needs to run a
// query. pkg/sources feeds its registered sources through this.
type Provider interface {
	Name() string
	Priority() int
	Complete(ctx context.Context, opt *Option) ([]Item, error)
}

const maxRecentWords = 10

// Cache queries the eligible providers once per session and keeps the merged
// result set together with the option that produced it, so a narrower input
// can be served by re-filtering instead of a fresh query.
type Cache struct {
	mu     sync.Mutex
	option *Option
	items  []Item
	recent []string
}

// NewCache creates an empty result cache.
func NewCache() *Cache {
	return &Cache{}
}

// DoComplete runs one merged query against the given providers and stores the
// result set. A provider failure is logged and contributes no items; it never
// aborts the whole attempt.
func (c *Cache) DoComplete(ctx context.Context, providers []Provider, opt *Option) ([]Item, error) {
	type result struct {
		name  string
		items []Item
		err   error
	}

	results := make(chan result, len(providers))
	var wg sync.WaitGroup
	for _, p := range providers {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()
			items, err := p.Complete(ctx, opt)
			results <- result{name: p.Name(), items: items, err: err}
		}(p)
	}
	wg.Wait()
	close(results)

	dedup := utils.NewDedup(opt.Input)
	var merged []Item
	for res := range results {
		if res.err != nil {
			log.Errorf("source %s failed: %v", res.name, res.err)
			continue
		}
		for _, item := range res.items {
			if item.Word == "" || !dedup.ShouldInclude(item.Word) {
				continue
			}
			merged = append(merged, item)
		}
	}

	c.sortItems(merged)

	c.mu.Lock()
	c.option = opt
	c.items = merged
	c.mu.Unlock()

	return merged, ctx.Err()
}

// FilterItems re-filters the stored result set against the narrower input of
// opt. Returns nil when the stored set cannot serve this option (different
// session anchor or the input no longer extends the stored one); callers
// should restart with a fresh query in that case.
func (c *Cache) FilterItems(opt *Option) []Item {
	c.mu.Lock()
	stored := c.option
	items := make([]Item, len(c.items))
	copy(items, c.items)
	c.mu.Unlock()

	if stored == nil || !stored.SameSession(opt) {
		return nil
	}
	if !utils.HasPrefixFold(opt.Input, stored.Input) {
		return nil
	}

	// filterByInput orders by match score; ties keep the stored order,
	// which already encodes recency, priority and frequency
	return filterByInput(items, opt.Input)
}

// Item looks up a stored item by its displayed word.
func (c *Cache) Item(word string) *Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].Word == word {
			item := c.items[i]
			return &item
		}
	}
	return nil
}

// Option returns the option the stored result set was produced for.
func (c *Cache) Option() *Option {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.option
}

// AddRecent records an accepted word for recency boosting.
func (c *Cache) AddRecent(word string) {
	if word == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range c.recent {
		if w == word {
			c.recent = append(c.recent[:i], c.recent[i+1:]...)
			break
		}
	}
	c.recent = append([]string{word}, c.recent...)
	if len(c.recent) > maxRecentWords {
		c.recent = c.recent[:maxRecentWords]
	}
}

// Recent returns the recently accepted words, most recent first.
func (c *Cache) Recent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.recent))
	copy(out, c.recent)
	return out
}

// Reset drops the stored result set. Recent words survive a reset.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.option = nil
	c.items = nil
	c.mu.Unlock()
}

// sortItems orders items by recency, source priority, then frequency.
// Must not be called with c.mu held... it takes the lock for the recent list.
func (c *Cache) sortItems(items []Item) {
	c.mu.Lock()
	recentRank := make(map[string]int, len(c.recent))
	for i, w := range c.recent {
		recentRank[w] = len(c.recent) - i
	}
	c.mu.Unlock()

	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := recentRank[items[i].Word], recentRank[items[j].Word]
		if ri != rj {
			return ri > rj
		}
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		return items[i].Frequency > items[j].Frequency
	})
}
