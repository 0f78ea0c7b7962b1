package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ai-fo/nexus/llm"
)

var (
	// ErrCorpusEmpty reports that no transcript files were found. It is not
	// fatal: the store still publishes an empty snapshot and callers degrade
	// to history-only answers.
	ErrCorpusEmpty = errors.New("no transcript files found")

	// ErrAlreadyInitialized reports an Initialize call with parameters that
	// differ from the first one. The store is an explicitly owned,
	// initialize-once resource; conflicting re-initialization is an error
	// rather than being silently ignored.
	ErrAlreadyInitialized = errors.New("corpus store already initialized with different parameters")

	// ErrNotInitialized reports use of the store before Initialize.
	ErrNotInitialized = errors.New("corpus store not initialized")
)

// Options tune a store at initialization time.
type Options struct {
	// ChunkSize is the target chunk length in characters; DefaultChunkSize
	// when zero.
	ChunkSize int
	// Debounce merges bursts of filesystem events into a single rebuild.
	Debounce time.Duration
}

// Store owns the corpus snapshot. Rebuilds are serialized by a mutex and the
// published snapshot is swapped atomically, so concurrent readers either see
// the prior snapshot or the completed new one, never a torn state.
//
// Invalidation is all-or-nothing: one changed, added or removed transcript
// re-embeds the entire corpus. This keeps the cache trivially coherent and
// is the accepted scalability ceiling for the corpus sizes this serves.
type Store struct {
	log      *slog.Logger
	embedder llm.Embedder

	mu          sync.Mutex
	initialized bool
	dir         string
	opts        Options

	snap atomic.Pointer[Snapshot]
}

func NewStore(log *slog.Logger, embedder llm.Embedder) *Store {
	s := &Store{log: log, embedder: embedder}
	s.snap.Store(&Snapshot{Files: map[string]FileInfo{}})
	return s
}

// Initialize scans dir, loading the persisted cache when its fingerprint
// matches the current directory state and rebuilding otherwise. It is
// idempotent for identical arguments; calling again with a different dir or
// options returns ErrAlreadyInitialized. Returns ErrCorpusEmpty when dir
// holds no transcripts.
func (s *Store) Initialize(ctx context.Context, dir string, opts Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if s.initialized {
		if dir != s.dir || opts != s.opts {
			return fmt.Errorf("%w: have dir=%s chunk_size=%d", ErrAlreadyInitialized, s.dir, s.opts.ChunkSize)
		}
		return nil
	}
	s.dir = dir
	s.opts = opts
	s.initialized = true

	return s.refreshLocked(ctx)
}

// Snapshot returns the current corpus snapshot. Never nil.
func (s *Store) Snapshot() *Snapshot {
	return s.snap.Load()
}

// Rebuild re-checks the cache fingerprint and re-embeds the corpus when it
// no longer matches the transcript directory. At most one rebuild runs at a
// time.
func (s *Store) Rebuild(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	return s.refreshLocked(ctx)
}

func (s *Store) refreshLocked(ctx context.Context) error {
	current, err := s.fingerprint()
	if err != nil {
		return err
	}

	c := newCache(s.dir)
	if cached, err := c.load(); err == nil && maps.Equal(cached.Files, current) {
		s.log.Info("corpus cache hit", "chunks", len(cached.Chunks), "files", len(current))
		s.snap.Store(cached)
		if len(current) == 0 {
			return ErrCorpusEmpty
		}
		return nil
	} else if err != nil && !errors.Is(err, ErrCacheCorrupt) {
		return err
	}

	return s.rebuildLocked(ctx, current)
}

func (s *Store) rebuildLocked(ctx context.Context, files map[string]FileInfo) error {
	p := &parser{chunkSize: s.opts.ChunkSize}

	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var chunks []Chunk
	for _, path := range paths {
		fileChunks, err := p.parseFile(path)
		if err != nil {
			return err
		}
		chunks = append(chunks, fileChunks...)
	}

	s.log.Info("rebuilding corpus", "files", len(paths), "chunks", len(chunks))
	for i := range chunks {
		vec, err := s.embedder.Embed(ctx, chunks[i].Content, llm.EmbedPassage)
		if err != nil {
			return fmt.Errorf("embed chunk %d of %s: %w", chunks[i].ChunkIndex, chunks[i].SourceFile, err)
		}
		chunks[i].Embedding = vec
	}

	snap := &Snapshot{Chunks: chunks, Files: files}
	if err := newCache(s.dir).save(snap); err != nil {
		return err
	}
	s.snap.Store(snap)

	if len(files) == 0 {
		return ErrCorpusEmpty
	}
	return nil
}

// fingerprint maps every transcript path to its modification time and size.
func (s *Store) fingerprint() (map[string]FileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read transcripts dir: %w", err)
	}
	files := make(map[string]FileInfo)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		files[filepath.Join(s.dir, e.Name())] = FileInfo{
			ModTime: info.ModTime().UnixNano(),
			Size:    info.Size(),
		}
	}
	return files, nil
}

// Watch rebuilds the corpus when transcript files change, merging event
// bursts within the configured debounce window. It blocks until ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return ErrNotInitialized
	}
	dir, debounce := s.dir, s.opts.Debounce
	s.mu.Unlock()

	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".txt") {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("watcher error", "error", err)
		case <-timer.C:
			if err := s.Rebuild(ctx); err != nil && !errors.Is(err, ErrCorpusEmpty) {
				s.log.Error("corpus rebuild failed", "error", err)
			}
		}
	}
}
