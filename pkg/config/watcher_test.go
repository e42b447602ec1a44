package config

import (
	"path/filepath"
	"testing"
	"time"
)

// Editing the config file on disk must swap the snapshot without a restart.
func TestWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := InitConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(path, cfg)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if got := w.Current().Completion.MaxItems; got != cfg.Completion.MaxItems {
		t.Fatalf("initial snapshot MaxItems = %d", got)
	}

	updated := DefaultConfig()
	updated.Completion.MaxItems = 5
	if err := SaveConfig(updated, path); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if w.Current().Completion.MaxItems == 5 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("watcher never picked up the edit, MaxItems = %d", w.Current().Completion.MaxItems)
}

// An unrelated file in the same directory must not disturb the snapshot.
func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	cfg, err := InitConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(path, cfg)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	other := DefaultConfig()
	other.Completion.MaxItems = 1
	if err := SaveConfig(other, filepath.Join(dir, "other.toml")); err != nil {
		t.Fatal(err)
	}

	time.Sleep(100 * time.Millisecond)
	if got := w.Current().Completion.MaxItems; got != cfg.Completion.MaxItems {
		t.Fatalf("unrelated file changed the snapshot: MaxItems = %d", got)
	}
}
