/*
Package completion is the orchestrator: it turns the editor's event stream
into a well-ordered sequence of completion attempts.

The rules it enforces are narrow and timing sensitive:

  - at most one end-to-end completion attempt is in flight at any time
  - narrowing the input resumes the session by re-filtering the cached
    result set, never by a fresh query
  - shrinking below the original trigger input restarts with a fresh query
  - a result that is stale by the time it arrives is discarded, never shown

Events are consumed from one channel by one dispatcher goroutine, so
handlers observe them in arrival order. The completion attempt itself runs
on its own goroutine; the session and the single-flight flag are the only
state shared with the dispatcher.
*/
package completion

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/bastiangx/typeflow/internal/utils"
	"github.com/bastiangx/typeflow/pkg/complete"
	"github.com/bastiangx/typeflow/pkg/config"
	"github.com/bastiangx/typeflow/pkg/host"
	"github.com/bastiangx/typeflow/pkg/session"
	"github.com/bastiangx/typeflow/pkg/sources"
	"github.com/charmbracelet/log"
)

// dedupeWindow collapses duplicate notifications for one keystroke arriving
// on two different event channels. Empirically tuned against a real editor,
// do not change casually.
const dedupeWindow = 30 * time.Millisecond

// Completion drives completion sessions from editor events.
type Completion struct {
	host     host.Host
	registry *sources.Registry
	cache    *complete.Cache
	session  *session.State
	cfg      func() *config.Config

	mu         sync.Mutex
	completing bool

	done        chan struct{}
	disposeOnce sync.Once
}

// New wires the orchestrator. tracker may be nil; cfg must not be.
func New(h host.Host, registry *sources.Registry, cache *complete.Cache, tracker session.Tracker, cfg func() *config.Config) *Completion {
	return &Completion{
		host:     h,
		registry: registry,
		cache:    cache,
		session:  session.New(tracker),
		cfg:      cfg,
		done:     make(chan struct{}),
	}
}

// Session exposes the state machine, mainly for tests and stats.
func (c *Completion) Session() *session.State {
	return c.session
}

// Init starts consuming editor events. Returns once the dispatcher goroutine
// is running; it exits when the channel closes or Dispose is called.
func (c *Completion) Init(events <-chan host.Event) {
	go c.loop(events)
}

func (c *Completion) loop(events <-chan host.Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.dispatch(ev)
		case <-c.done:
			return
		}
	}
}

// dispatch routes one event to its handler. A handler panic is logged and
// must never unwind past the dispatcher.
func (c *Completion) dispatch(ev host.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("event %s handler panicked: %v\n%s", ev.Kind, r, debug.Stack())
		}
	}()

	switch ev.Kind {
	case host.EvInsertCharPre:
		c.session.RecordInsert(ev.Char)
	case host.EvTextChangedI:
		c.onTextChangedI()
	case host.EvTextChangedP:
		c.onTextChangedP()
	case host.EvInsertEnter:
		c.onInsertEnter()
	case host.EvInsertLeave:
		c.onInsertLeave()
	case host.EvCompleteDone:
		c.onCompleteDone(ev.Item)
	default:
		log.Debugf("ignoring event %q", ev.Kind)
	}
}

// StartCompletion is the fire-and-continue entry point for a brand-new
// trigger. Failures surface as a transient editor message plus a logged
// stack; the single-flight flag is released on every exit path.
func (c *Completion) StartCompletion(opt *complete.Option) {
	go func() {
		if err := c.doComplete(opt); err != nil {
			c.reportError("completion failed", err)
		}
	}()
}

// ResumeCompletion re-filters the last cached result set against the
// narrowed input, without a new source query. Errors are reported, never
// rethrown.
func (c *Completion) ResumeCompletion(input string) {
	ctx, cancel := c.requestCtx()
	defer cancel()
	if err := c.resume(ctx, input); err != nil {
		c.reportError("resume failed", err)
	}
}

// ToggleSource flips a source's enabled state. Administrative passthrough,
// not on the timing-critical path.
func (c *Completion) ToggleSource(name string) (bool, error) {
	return c.registry.Toggle(name)
}

// SourceStat reports the registered sources.
func (c *Completion) SourceStat() []sources.Meta {
	return c.registry.Stat()
}

// Dispose stops the dispatcher, forces the session closed and releases the
// registry. Idempotent.
func (c *Completion) Dispose() {
	c.disposeOnce.Do(func() {
		close(c.done)
		c.session.Stop()
		c.registry.Dispose()
	})
}

// IsCompleting reports whether an attempt is in flight.
func (c *Completion) IsCompleting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completing
}

// tryBegin claims the single-flight flag. False means an attempt is already
// in flight and the caller must back off.
func (c *Completion) tryBegin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completing {
		return false
	}
	c.completing = true
	return true
}

func (c *Completion) end() {
	c.mu.Lock()
	c.completing = false
	c.mu.Unlock()
}

// doComplete is the single-flight completion attempt. Steps 4 and 5
// reconcile a query that was correct when issued but may be stale by the
// time it completes.
func (c *Completion) doComplete(opt *complete.Option) (err error) {
	if !c.tryBegin() {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("completion attempt panicked: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("completion attempt panicked: %v", r)
		}
		c.end()
	}()

	// 1. open the session before querying, so concurrent event handlers
	// already see it active while the query is outstanding
	c.session.Start(opt)

	// 2. resolve eligible sources
	providers := c.registry.CompleteSources(opt)
	if len(providers) == 0 {
		c.session.Stop()
		return nil
	}

	// 3. query and merge; per-source timeouts live in the registry
	items, err := c.cache.DoComplete(context.Background(), providers, opt)
	if err != nil {
		c.session.Stop()
		return err
	}

	// 4. nothing to offer
	if len(items) == 0 {
		c.session.Stop()
		return nil
	}

	// 5. reconcile with whatever was typed while the query ran
	search := c.session.Search()
	switch {
	case search == opt.Input:
		items = c.limitItems(items)
		ctx, cancel := c.requestCtx()
		defer cancel()
		return c.host.ShowCompletion(ctx, items, opt.Col)
	case search != "":
		// user kept typing during the query; the fetched set is stale
		ctx, cancel := c.requestCtx()
		defer cancel()
		return c.resume(ctx, search)
	default:
		c.session.Stop()
		return nil
	}
}

// resume re-filters the cached set against input and displays it, unless a
// keystroke arrived during the filter and made input itself stale.
func (c *Completion) resume(ctx context.Context, input string) error {
	opt := c.session.Option()
	if opt == nil {
		// no active session, nothing to resume
		return nil
	}
	adjusted := opt.Narrow(input)
	items := c.cache.FilterItems(adjusted)

	if !c.session.IsActive() || c.session.Search() != input {
		// a newer keystroke won the race; its own handler takes over
		return nil
	}
	if len(items) == 0 {
		c.session.Stop()
		return c.host.HideCompletion(ctx)
	}
	return c.host.ShowCompletion(ctx, c.limitItems(items), adjusted.Col)
}

// onTextChangedI handles text changes while typing, the busiest entry point.
func (c *Completion) onTextChangedI() {
	ctx, cancel := c.requestCtx()
	defer cancel()

	// each change owns at most one keystroke; consume it so a later change
	// with no keystroke of its own (formatter, paste, undo) cannot reuse it
	ins := c.session.TakeInsert()
	if ins != nil && time.Since(ins.Time) >= dedupeWindow {
		ins = nil
	}

	if c.session.IsActive() {
		// record the current input even while an attempt is in flight; step 5
		// of the attempt reconciles against it when the results land
		input, err := c.session.ResumeInput(ctx, c.host)
		if err != nil {
			c.reportError("reading resume input", err)
			return
		}
		if input == "" {
			// the cursor left the anchor, unless the change is a word
			// character whose menu just has not opened yet
			if ins != nil && utils.IsWord(ins.Char) {
				return
			}
			c.session.Stop()
			if err := c.host.HideCompletion(ctx); err != nil {
				log.Errorf("hiding completion: %v", err)
			}
			return
		}
		if c.IsCompleting() {
			return
		}
		if err := c.resume(ctx, input); err != nil {
			c.reportError("resume failed", err)
		}
		return
	}

	wordInserted := ins != nil && utils.IsWord(ins.Char)

	if remembered := c.session.RememberedSearch(); remembered != "" && !wordInserted {
		if c.shrinkRestart(ctx, remembered) {
			return
		}
	}

	if ins == nil {
		return
	}

	opt, err := c.host.CompleteOption(ctx)
	if err != nil {
		c.reportError("reading complete option", err)
		return
	}
	if opt == nil {
		return
	}
	if !utils.IsWord(ins.Char) && opt.TriggerCharacter == "" {
		opt.TriggerCharacter = ins.Char
	}
	if !c.shouldTrigger(ins.Char, opt) {
		return
	}
	c.StartCompletion(opt)
}

// shrinkRestart covers the user deleting characters below the original
// trigger point: the anchor itself shrank, so this is a restart with a
// fresh query, not a resume. Reports whether it fired.
func (c *Completion) shrinkRestart(ctx context.Context, remembered string) bool {
	lastOpt := c.session.RememberedOption()
	if lastOpt == nil {
		return false
	}
	pos, err := c.host.CursorPosition(ctx)
	if err != nil {
		c.reportError("reading cursor", err)
		return false
	}
	if pos.Bufnr != lastOpt.Bufnr || pos.Linenr != lastOpt.Linenr {
		return false
	}
	input, err := c.host.ResumeInput(ctx, lastOpt.Col)
	if err != nil {
		c.reportError("reading resume input", err)
		return false
	}
	if input == "" || len(input) >= len(remembered) {
		return false
	}
	c.StartCompletion(lastOpt.Narrow(input))
	return true
}

// onTextChangedP handles text changes while the popup is visible. A change
// right after a recorded keystroke is the user narrowing the match; a change
// with no recent keystroke is the menu itself rendering a selection, which
// only warrants a lazy resolve of the selected item.
func (c *Completion) onTextChangedP() {
	ctx, cancel := c.requestCtx()
	defer cancel()

	if c.session.InsertedWithin(dedupeWindow) {
		if c.session.IsActive() {
			// recording the input here keeps an in-flight attempt honest too
			input, err := c.session.ResumeInput(ctx, c.host)
			if err != nil {
				c.reportError("reading resume input", err)
				return
			}
			if input != "" && !c.IsCompleting() {
				if err := c.resume(ctx, input); err != nil {
					c.reportError("resume failed", err)
				}
			}
		}
		return
	}

	if c.IsCompleting() {
		return
	}
	opt := c.cache.Option()
	if opt == nil {
		return
	}
	text, err := c.host.ResumeInput(ctx, opt.Col)
	if err != nil {
		c.reportError("reading menu text", err)
		return
	}
	if text == "" {
		return
	}
	if item := c.cache.Item(text); item != nil && !item.Resolved {
		// lazy detail fetch is a side effect, not a new completion request
		if err := c.registry.Resolve(ctx, item); err != nil {
			log.Errorf("resolving %s: %v", item.Word, err)
		}
	}
}

// onInsertEnter optionally fires a completion right as insert mode starts.
func (c *Completion) onInsertEnter() {
	cfg := c.cfg().Completion
	if cfg.AutoTrigger != config.TriggerAlways || !cfg.TriggerAfterInsertEnter {
		return
	}
	ctx, cancel := c.requestCtx()
	defer cancel()
	opt, err := c.host.CompleteOption(ctx)
	if err != nil {
		c.reportError("reading complete option", err)
		return
	}
	if opt == nil {
		return
	}
	c.StartCompletion(opt)
}

// onInsertLeave unconditionally tears the session down.
func (c *Completion) onInsertLeave() {
	ctx, cancel := c.requestCtx()
	defer cancel()
	if err := c.host.HideCompletion(ctx); err != nil {
		log.Errorf("hiding completion: %v", err)
	}
	c.session.Stop()
}

// onCompleteDone handles the host reporting an accepted item.
func (c *Completion) onCompleteDone(item *complete.Item) {
	if item == nil || item.Source == "" {
		// dismissed menu, or an item some other plugin produced
		return
	}
	if c.registry.Get(item.Source) == nil {
		return
	}

	c.session.Stop()
	c.cache.AddRecent(item.Word)

	// fire and forget; the accept hook logs its own failures
	go c.registry.DoneAccept(context.Background(), *item)

	c.cache.Reset()
}

// shouldTrigger decides whether an inserted character opens a new session.
func (c *Completion) shouldTrigger(char string, opt *complete.Option) bool {
	if char == "" || char == " " {
		return false
	}
	cfg := c.cfg().Completion
	if cfg.AutoTrigger == config.TriggerNone {
		return false
	}
	if utils.IsWord(char) {
		if cfg.AutoTrigger == config.TriggerOnly {
			return false
		}
		return opt.Input != "" && len(opt.Input) >= cfg.MinPrefix
	}
	return c.registry.ShouldTrigger(char, opt.Filetype)
}

func (c *Completion) limitItems(items []complete.Item) []complete.Item {
	max := c.cfg().Completion.MaxItems
	if max > 0 && len(items) > max {
		items = items[:max]
	}
	return items
}

func (c *Completion) requestCtx() (context.Context, context.CancelFunc) {
	timeout := time.Duration(c.cfg().Completion.RequestTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

// reportError surfaces a failure to the user without breaking the session,
// and always logs it.
func (c *Completion) reportError(what string, err error) {
	log.Errorf("%s: %v", what, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if echoErr := c.host.Echo(ctx, fmt.Sprintf("completion: %s", what)); echoErr != nil {
		log.Debugf("echo failed too: %v", echoErr)
	}
}
