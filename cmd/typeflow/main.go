// Copyright 2026 The Typeflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the typeflow completion core [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

Typeflow turns raw editor typing events into completion popups. It connects
to an editor process over MessagePack IPC on stdin/stdout, watches the
insert-mode event stream, and drives completion sessions: opening them when
a keystroke warrants it, narrowing them as the user keeps typing, and
tearing them down the moment the context moves on.

The core guarantees that matter are behavioral, not cosmetic: only one
completion attempt runs at a time, narrowing re-filters the cached result
set instead of re-querying, and a result that is stale by the time it
arrives is silently discarded rather than flashed at the user.

# Usage

Start the core with default settings (the editor spawns this):

	typeflow

Use a custom dictionary directory and enable debug logging:

	typeflow -data /path/to/chunks -d

Run in CLI mode for interactive testing without an editor:

	typeflow -c -limit 10

The data directory should contain chunked binary files named dict_0001.bin,
dict_0002.bin, etc. These are loaded lazily based on the configured word
budget, so large dictionaries do not delay startup.

# Configuration

Runtime configuration lives in a TOML file that is created with defaults on
first run and hot-reloaded when edited:

	[completion]
	auto_trigger = "always"
	trigger_after_insert_enter = false
	max_items = 64
	min_prefix = 1
	complete_timeout_ms = 500
	request_timeout_ms = 1000

	[dict]
	data_dir = "data/"
	max_words = 50000
	chunk_size = 10000
	min_frequency_threshold = 20
	min_frequency_short_prefix = 24

# IPC Protocol

The editor and the core exchange length-prefixed MessagePack frames over
stdin/stdout. Frames from the editor are either events (insertCharPre,
textChangedI, textChangedP, insertEnter, insertLeave, completeDone) or
responses to requests the core issued. Frames to the editor are requests:
read the cursor, read the typed input, show or hide the popup.

stdout belongs to the IPC channel; all logging goes to stderr.

# Event Handling

Events are consumed in arrival order by a single dispatcher goroutine in
the completion package. The completion attempt itself runs on its own
goroutine behind a single-flight guard, so a slow source can never stack
up attempts.

	orchestrator := completion.New(client, registry, cache, tracker, watcher.Current)
	orchestrator.Init(client.Events())
	err := client.Run()

# Sources

Completion items come from registered sources. The built-in ones are the
frequency-ranked dictionary (Patricia trie over lazily loaded chunks) and
the buffer-words source, which offers words already typed in the current
line and accepted items. Sources are queried concurrently with a per-source
timeout and their results merged, deduplicated and ranked.

# CLI Mode

CLI mode reads lines from stdin and runs the trailing word through the same
registry and cache the editor path uses, printing the merged completions
with their source and frequency. It exists for development and debugging;
new source behavior should be checked here before testing inside an editor.

# Command Line Flags

The following flags control application behavior:

	-data string
	    Directory containing binary chunk files (default from config)
	-config string
	    Path to the TOML config file (default resolved per platform)
	-d  Enable debug mode with detailed logging
	-c  Run in CLI mode instead of IPC mode
	-limit int
	    Number of completions to show in CLI mode
	-no-filter
	    Disable input filtering in CLI mode (shows raw dictionary entries)
	-words int
	    Maximum words to load (0 for all)
	-version
	    Show current version
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bastiangx/typeflow/internal/cli"
	"github.com/bastiangx/typeflow/internal/logger"
	"github.com/bastiangx/typeflow/pkg/complete"
	"github.com/bastiangx/typeflow/pkg/completion"
	"github.com/bastiangx/typeflow/pkg/config"
	"github.com/bastiangx/typeflow/pkg/documents"
	"github.com/bastiangx/typeflow/pkg/host"
	"github.com/bastiangx/typeflow/pkg/sources"
	"github.com/bastiangx/typeflow/pkg/sources/buffer"
	"github.com/bastiangx/typeflow/pkg/sources/dict"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	Version = "0.3.0-beta"
	AppName = "typeflow"
	gh      = "https://github.com/bastiangx/typeflow"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main wires the packages together and picks the run mode.
// It does not implement completion logic and only manages the flow.
func main() {
	sigHandler()
	defaults := config.DefaultConfig()

	showVersion := flag.Bool("version", false, "Show current version")
	dataDir := flag.String("data", "", "Directory containing the binary dictionary files")
	configPath := flag.String("config", "", "Path to the TOML config file")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	limit := flag.Int("limit", defaults.Completion.MaxItems, "Number of completions to show (CLI mode)")
	noFilter := flag.Bool("no-filter", false, "Disable input filtering (DBG only) - shows all raw dictionary entries (numbers, symbols, etc)")
	wordLimit := flag.Int("words", defaults.Dict.MaxWords, "Maximum number of words to load (use 0 for all words)")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}
	// stdout carries IPC frames, logger.New keeps all logging on stderr
	log.SetDefault(logger.New(AppName))

	path := *configPath
	if path == "" {
		var err error
		path, err = config.GetDefaultConfigPath()
		if err != nil {
			log.Fatalf("Failed to determine config path: (%v)", err)
		}
	}
	log.Debugf("Using config file: (%s)", path)

	cfg, err := config.InitConfig(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dataDir != "" {
		cfg.Dict.DataDir = *dataDir
	}
	if *wordLimit != defaults.Dict.MaxWords {
		cfg.Dict.MaxWords = *wordLimit
	}

	watcher := config.NewWatcher(path, cfg)
	if err := watcher.Start(); err != nil {
		log.Warnf("Config watching disabled: %v", err)
	}
	defer watcher.Stop()

	log.Debugf("Init dict source: dataDir=[%s], maxWords=[%d]", cfg.Dict.DataDir, cfg.Dict.MaxWords)
	dictSource := dict.New(dict.Options{
		DataDir:            cfg.Dict.DataDir,
		MaxWords:           cfg.Dict.MaxWords,
		MinFreqThreshold:   cfg.Dict.MinFreqThreshold,
		MinFreqShortPrefix: cfg.Dict.MinFreqShortPrefix,
		Limit:              cfg.Completion.MaxItems,
	})
	if err := dictSource.Initialize(); err != nil {
		log.Warnf("Dictionary unavailable, continuing without it: %v", err)
	}
	defer dictSource.Dispose()

	registry := sources.NewRegistry(time.Duration(cfg.Completion.CompleteTimeoutMs) * time.Millisecond)
	registry.Register(dictSource)
	registry.Register(buffer.New(cfg.Completion.MaxItems))

	cache := complete.NewCache()

	if *cliMode {
		log.SetDefault(logger.NewWithConfig(AppName, log.GetLevel(), false, false, log.TextFormatter))
		handler := cli.NewInputHandler(registry, cache, *limit, *noFilter)
		if err := handler.Start(); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	log.Debug("spawning IPC")
	client := host.NewClient(os.Stdin, os.Stdout,
		time.Duration(cfg.Completion.RequestTimeoutMs)*time.Millisecond)

	orchestrator := completion.New(client, registry, cache, documents.NewTracker(), watcher.Current)
	orchestrator.Init(client.Events())
	defer orchestrator.Dispose()

	showStartupInfo(cfg.Dict.DataDir)

	if err := client.Run(); err != nil {
		log.Fatalf("IPC loop failed: %v", err)
	}
}

// printVersion renders the version banner.
func printVersion() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()

	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["version"] = lipgloss.NewStyle().
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})

	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})

	logger.SetStyles(styles)

	logger.Print("")
	logger.Print("[ typeflow ] Real-time completion sessions for your editor!")
	logger.Print("", "version", Version)
	logger.Print("")
	logger.Print("use -h or --help to see available options")
	logger.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(dataDir string) {
	pid := os.Getpid()
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	fmt.Fprintln(os.Stderr, "===========")
	fmt.Fprintln(os.Stderr, " typeflow ")
	fmt.Fprintln(os.Stderr, "===========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", pid)
	log.Info("init: OK")
	log.Infof("data dir: ( %s )", dataDir)
	log.Info("status: ready")
	fmt.Fprintln(os.Stderr, "===========")

	log.SetLevel(currentLevel)
}
