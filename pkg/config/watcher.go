package config

import (
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config file whenever it changes on disk and swaps the
// active value atomically. Readers go through Current().
type Watcher struct {
	path string

	mu      sync.RWMutex
	current *Config

	fsw  *fsnotify.Watcher
	done chan struct{}
}

// NewWatcher creates a watcher seeded with cfg. Call Start to begin watching.
func NewWatcher(path string, cfg *Config) *Watcher {
	return &Watcher{
		path:    path,
		current: cfg,
		done:    make(chan struct{}),
	}
}

// Current returns the active config.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start begins watching the config file. Editors replace files on save, so
// the parent directory is watched and events are filtered by name.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return err
	}

	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Name != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			cfg, err := LoadConfig(w.path)
			if err != nil {
				log.Warnf("config reload failed: %v", err)
				continue
			}
			w.mu.Lock()
			w.current = cfg
			w.mu.Unlock()
			log.Debugf("config reloaded from %s", w.path)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warnf("config watcher: %v", err)
		case <-w.done:
			return
		}
	}
}

// Stop ends the watch. Idempotent enough for shutdown paths.
func (w *Watcher) Stop() {
	select {
	case <-w.done:
		return
	default:
		close(w.done)
	}
	if w.fsw != nil {
		w.fsw.Close()
	}
}
