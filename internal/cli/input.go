// Package cli provides a simple interactive input loop for debugging the
// completion pipeline in real-time, without an editor attached.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bastiangx/typeflow/internal/utils"
	"github.com/bastiangx/typeflow/pkg/complete"
	"github.com/bastiangx/typeflow/pkg/sources"
	"github.com/charmbracelet/log"
)

// InputHandler reads prefixes from stdin and runs them through the same
// registry and cache the editor path uses.
type InputHandler struct {
	registry     *sources.Registry
	cache        *complete.Cache
	suggestLimit int
	requestCount int
	noFilter     bool // If true, bypasses all input filtering for debugging
}

// NewInputHandler creates a new CLI input handler
func NewInputHandler(registry *sources.Registry, cache *complete.Cache, limit int, noFilter bool) *InputHandler {
	return &InputHandler{
		registry:     registry,
		cache:        cache,
		suggestLimit: limit,
		noFilter:     noFilter,
	}
}

// Start begins the interface loop.
// It continuously prompts for input, reads a line from stdin,
// and passes the trimmed input to handleInput() for processing.
// Loop terminates if an error occurs while reading from stdin
func (h *InputHandler) Start() error {
	log.Print("typeflow CLI [BETA]")
	reader := bufio.NewReader(os.Stdin)
	log.Print("type something and press Enter to see the completions (Ctrl+C to exit):")

	for {
		log.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			h.handleCommand(line)
			continue
		}
		h.handleInput(line)
	}
}

// handleCommand serves the colon commands. ":sources" lists every registered
// source, ":sources <filetype>" only the ones serving that filetype.
func (h *InputHandler) handleCommand(line string) {
	fields := strings.Fields(strings.TrimPrefix(line, ":"))
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "sources":
		metas := h.sourceMetas(fields[1:])
		if len(metas) == 0 {
			log.Warn("No matching sources")
			return
		}
		for _, m := range metas {
			state := "enabled"
			if m.Disabled {
				state = "disabled"
			}
			log.Printf("%-12s %-8s %-8s %s", m.Name, m.Kind, state, m.Filepath)
		}
	default:
		log.Warnf("Unknown command: %s", fields[0])
	}
}

// sourceMetas resolves the stat rows for ":sources", scoped to a filetype
// when one was given.
func (h *InputHandler) sourceMetas(args []string) []sources.Meta {
	if len(args) > 0 {
		return h.registry.ForFiletype(args[0])
	}
	return h.registry.Stat()
}

// handleInput processes one line and displays the merged completions.
// The whole line is treated as buffer content; the trailing word is the
// input being completed.
func (h *InputHandler) handleInput(line string) {
	h.requestCount++

	input := utils.WordPrefix(line, len(line))
	if input == "" {
		input = line
	}

	if !h.noFilter {
		if !utils.IsValidInput(input) {
			log.Warnf("No completions for input: '%s' (filtered out)", input)
			return
		}
	} else {
		log.Debug("Input filtering disabled - allowing all inputs")
	}

	opt := &complete.Option{
		Bufnr:  0,
		Linenr: h.requestCount,
		Col:    len(line) - len(input),
		Input:  input,
		Line:   line,
	}

	providers := h.registry.CompleteSources(opt)
	if len(providers) == 0 {
		log.Warn("No sources accept this input")
		return
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	items, err := h.cache.DoComplete(ctx, providers, opt)
	elapsed := time.Since(start)

	if err != nil {
		log.Errorf("Completion failed: %v", err)
		return
	}
	log.Debugf("Took %v for input '%s'", elapsed, input)

	if len(items) == 0 {
		log.Warnf("No completions found for input: '%s'", input)
		return
	}
	if h.suggestLimit > 0 && len(items) > h.suggestLimit {
		items = items[:h.suggestLimit]
	}

	log.Printf("Found %d completions for input '%s':", len(items), input)
	for i, item := range items {
		fmtFreq := formatWithCommas(item.Frequency)
		clWord := fmt.Sprintf("\033[38;5;75m%s\033[0m", item.Word)

		log.Printf("%2d. %-40s %-10s (freq: %8s)", i+1, clWord, item.Source, fmtFreq)
	}
}

// formatWithCommas formats an integer with comma separators
func formatWithCommas(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	result := ""
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(char)
	}
	return result
}
