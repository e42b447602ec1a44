package dict

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bastiangx/typeflow/pkg/complete"
)

func newTestSource() *Source {
	return New(Options{
		MinFreqThreshold:   20,
		MinFreqShortPrefix: 24,
		Limit:              64,
	})
}

func completeWords(t *testing.T, s *Source, input string) []string {
	t.Helper()
	items, err := s.Complete(context.Background(), &complete.Option{Input: input})
	if err != nil {
		t.Fatal(err)
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Word
	}
	return out
}

func TestCompletePrefixLookup(t *testing.T) {
	s := newTestSource()
	s.AddWord("hello", 100)
	s.AddWord("help", 90)
	s.AddWord("helmet", 80)
	s.AddWord("banana", 70)

	got := completeWords(t, s, "hel")
	if len(got) != 3 {
		t.Fatalf("completions = %v, want the three hel words", got)
	}
	for _, w := range got {
		if w == "banana" {
			t.Error("banana does not share the prefix")
		}
	}
}

// The typed word itself must never come back as a suggestion.
func TestCompleteExcludesExactInput(t *testing.T) {
	s := newTestSource()
	s.AddWord("help", 100)
	s.AddWord("helpful", 90)

	got := completeWords(t, s, "help")
	if len(got) != 1 || got[0] != "helpful" {
		t.Fatalf("completions = %v, want only helpful", got)
	}
}

// Typed capitalization is carried onto the suggestions.
func TestCompleteAppliesCapitalization(t *testing.T) {
	s := newTestSource()
	s.AddWord("hello", 100)

	got := completeWords(t, s, "Hel")
	if len(got) != 1 || got[0] != "Hello" {
		t.Fatalf("completions = %v, want [Hello]", got)
	}
}

// Short prefixes use the raised frequency threshold to keep noise out.
func TestCompleteShortPrefixThreshold(t *testing.T) {
	s := newTestSource()
	s.AddWord("total", 22)  // above base threshold, below the short one
	s.AddWord("topics", 30) // above both

	if got := completeWords(t, s, "to"); len(got) != 1 || got[0] != "topics" {
		t.Fatalf("short prefix completions = %v, want [topics]", got)
	}
	if got := completeWords(t, s, "tot"); len(got) != 1 || got[0] != "total" {
		t.Fatalf("long prefix completions = %v, want [total]", got)
	}
}

func TestCompleteRejectsJunkInput(t *testing.T) {
	s := newTestSource()
	s.AddWord("1234x", 100)

	for _, input := range []string{"", "1234", "!!", "   "} {
		items, err := s.Complete(context.Background(), &complete.Option{Input: input})
		if err != nil {
			t.Fatal(err)
		}
		if len(items) != 0 {
			t.Errorf("input %q produced %d items, want none", input, len(items))
		}
	}
}

func TestCompleteHonorsLimit(t *testing.T) {
	s := New(Options{MinFreqThreshold: 1, MinFreqShortPrefix: 1, Limit: 2})
	s.AddWord("abcone", 10)
	s.AddWord("abctwo", 10)
	s.AddWord("abcthree", 10)

	if got := completeWords(t, s, "abc"); len(got) != 2 {
		t.Fatalf("completions = %v, want at most 2", got)
	}
}

func TestResolveFillsMenu(t *testing.T) {
	s := newTestSource()
	item := &complete.Item{Word: "hello", Source: "dict"}
	if err := s.Resolve(context.Background(), item); err != nil {
		t.Fatal(err)
	}
	if item.Menu != "[dict]" {
		t.Errorf("Menu = %q", item.Menu)
	}
}

// writeChunk produces a chunk file in the loader's binary layout:
// int32 LE entry count, then (uint16 LE length, word, uint16 LE rank).
func writeChunk(t *testing.T, dir string, id int, words []string) {
	t.Helper()
	path := filepath.Join(dir, fmt.Sprintf("dict_%04d.bin", id))
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, int32(len(words))); err != nil {
		t.Fatal(err)
	}
	for rank, w := range words {
		if err := binary.Write(f, binary.LittleEndian, uint16(len(w))); err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(w)); err != nil {
			t.Fatal(err)
		}
		if err := binary.Write(f, binary.LittleEndian, uint16(rank+1)); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoaderLoadsChunks(t *testing.T) {
	dir := t.TempDir()
	writeChunk(t, dir, 1, []string{"alpha", "alps", "beta"})
	writeChunk(t, dir, 2, []string{"gamma"})

	cl := newChunkLoader(dir, 0)
	if err := cl.start(); err != nil {
		t.Fatal(err)
	}
	defer cl.stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if total, _, chunks := cl.stats(); total == 4 && chunks == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	total, maxFreq, chunks := cl.stats()
	if total != 4 || chunks != 2 {
		t.Fatalf("stats = (%d words, %d chunks), want (4, 2)", total, chunks)
	}
	// rank 1 inverts to the highest score
	if maxFreq != 65535 {
		t.Errorf("maxFrequency = %d, want 65535", maxFreq)
	}

	for _, w := range []string{"alpha", "alps", "beta", "gamma"} {
		if cl.get(w) == nil {
			t.Errorf("word %q missing from the trie", w)
		}
	}
}

// Queries may run while chunks are still streaming in; the traversal holds
// the loader's read lock, so a load never mutates the trie mid-visit.
func TestCompleteDuringChunkLoading(t *testing.T) {
	dir := t.TempDir()
	for i := 1; i <= 6; i++ {
		writeChunk(t, dir, i, []string{fmt.Sprintf("stream%02d", i)})
	}
	s := New(Options{DataDir: dir, Limit: 10})
	if err := s.Initialize(); err != nil {
		t.Fatal(err)
	}
	defer s.Dispose()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		items, err := s.Complete(context.Background(), &complete.Option{Input: "stream"})
		if err != nil {
			t.Fatal(err)
		}
		if len(items) == 6 {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("timed out waiting for every chunk to surface")
}

func TestLoaderEmptyDirFails(t *testing.T) {
	cl := newChunkLoader(t.TempDir(), 0)
	if err := cl.start(); err == nil {
		t.Fatal("a directory with no chunks should fail initialization")
	}
	cl.stop()
}
