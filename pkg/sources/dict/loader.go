package dict

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// ChunkInfo contains metadata about a chunk file
type ChunkInfo struct {
	ChunkID   int
	Filename  string
	WordCount int
}

// chunkLoader lazily loads dict_NNNN.bin chunk files into one trie.
// Chunk format: 4 byte LE word count header, then repeated
// (2 byte LE word length, word bytes, 2 byte LE rank).
type chunkLoader struct {
	dirPath   string
	maxWords  int
	loadingCh chan int
	done      chan struct{}
	stopOnce  sync.Once

	mu           sync.RWMutex
	loadedChunks map[int]bool
	trie         *patricia.Trie
	totalWords   int
	maxFrequency int
}

func newChunkLoader(dirPath string, maxWords int) *chunkLoader {
	return &chunkLoader{
		dirPath:      dirPath,
		maxWords:     maxWords,
		loadingCh:    make(chan int, 10),
		done:         make(chan struct{}),
		loadedChunks: make(map[int]bool),
		trie:         patricia.NewTrie(),
	}
}

// availableChunks scans the directory for chunk files, sorted by ID.
func (cl *chunkLoader) availableChunks() ([]ChunkInfo, error) {
	pattern := filepath.Join(cl.dirPath, "dict_*.bin")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for chunk files: %w", err)
	}

	var chunks []ChunkInfo
	for _, file := range files {
		basename := filepath.Base(file)
		idStr := strings.TrimSuffix(strings.TrimPrefix(basename, "dict_"), ".bin")
		chunkID, err := strconv.Atoi(idStr)
		if err != nil {
			continue
		}
		wordCount, err := chunkWordCount(file)
		if err != nil {
			log.Warnf("Failed to get word count for chunk %s: %v", file, err)
			wordCount = 0
		}
		chunks = append(chunks, ChunkInfo{ChunkID: chunkID, Filename: file, WordCount: wordCount})
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ChunkID < chunks[j].ChunkID
	})
	return chunks, nil
}

// chunkWordCount reads the word count from a chunk file's header
func chunkWordCount(filename string) (int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	var wordCount int32
	if err := binary.Read(file, binary.LittleEndian, &wordCount); err != nil {
		return 0, err
	}
	return int(wordCount), nil
}

// start queues the initial chunks and spawns the background loader.
func (cl *chunkLoader) start() error {
	chunks, err := cl.availableChunks()
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("no chunk files found in %s", cl.dirPath)
	}
	log.Debugf("Found %d chunk files", len(chunks))

	go cl.backgroundLoader()

	wordsToLoad := cl.maxWords
	if wordsToLoad == 0 {
		for _, chunk := range chunks {
			wordsToLoad += chunk.WordCount
		}
	}

	queued := 0
	for _, chunk := range chunks {
		if queued >= wordsToLoad {
			break
		}
		select {
		case cl.loadingCh <- chunk.ChunkID:
		case <-cl.done:
			return nil
		}
		queued += chunk.WordCount
	}
	return nil
}

func (cl *chunkLoader) backgroundLoader() {
	for {
		select {
		case chunkID := <-cl.loadingCh:
			if err := cl.loadChunk(chunkID); err != nil {
				log.Errorf("Failed to load chunk %d: %v", chunkID, err)
			}
		case <-cl.done:
			return
		}
	}
}

// loadChunk loads a specific chunk into the trie
func (cl *chunkLoader) loadChunk(chunkID int) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.loadedChunks[chunkID] {
		return nil
	}

	filename := filepath.Join(cl.dirPath, fmt.Sprintf("dict_%04d.bin", chunkID))
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open chunk file %s: %w", filename, err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)

	var totalEntries int32
	if err := binary.Read(reader, binary.LittleEndian, &totalEntries); err != nil {
		return fmt.Errorf("failed to read chunk header: %w", err)
	}

	count := 0
	for count < int(totalEntries) {
		var wordLen uint16
		if err := binary.Read(reader, binary.LittleEndian, &wordLen); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read word length: %w", err)
		}

		wordBytes := make([]byte, wordLen)
		if _, err := io.ReadFull(reader, wordBytes); err != nil {
			return fmt.Errorf("failed to read word: %w", err)
		}
		word := string(wordBytes)

		var rank uint16
		if err := binary.Read(reader, binary.LittleEndian, &rank); err != nil {
			return fmt.Errorf("failed to read rank: %w", err)
		}

		// rank 1 is the most frequent word; invert so higher score wins
		score := int(65535 - rank + 1)

		cl.trie.Insert(patricia.Prefix(word), score)
		cl.totalWords++
		if score > cl.maxFrequency {
			cl.maxFrequency = score
		}
		count++
	}

	cl.loadedChunks[chunkID] = true
	log.Debugf("Chunk %d loaded: %d words", chunkID, count)
	return nil
}

// visit traverses the subtree under prefix while holding the read lock, so a
// chunk load cannot mutate the trie mid-traversal.
func (cl *chunkLoader) visit(prefix patricia.Prefix, fn patricia.VisitorFunc) error {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return cl.trie.VisitSubtree(prefix, fn)
}

// get reads one word's stored frequency under the read lock.
func (cl *chunkLoader) get(word string) patricia.Item {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return cl.trie.Get(patricia.Prefix(word))
}

func (cl *chunkLoader) stats() (totalWords, maxFrequency, loadedChunks int) {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return cl.totalWords, cl.maxFrequency, len(cl.loadedChunks)
}

func (cl *chunkLoader) stop() {
	cl.stopOnce.Do(func() { close(cl.done) })
}
