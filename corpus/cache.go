package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrCacheCorrupt marks a persisted cache that is missing, unreadable or
// internally inconsistent. It is always recoverable: the caller treats it as
// a cache miss and rebuilds.
var ErrCacheCorrupt = errors.New("corpus cache corrupt")

// The cache is three artifacts keyed together under <dir>/.cache: the chunk
// records, the parallel embedding vectors in the same order, and the
// per-file fingerprint map used solely for validity comparison.
const (
	cacheDirName    = ".cache"
	chunksFile      = "chunks.json"
	embeddingsFile  = "embeddings.json"
	fingerprintFile = "metadata.json"
)

type cache struct {
	dir string
}

func newCache(transcriptsDir string) cache {
	return cache{dir: filepath.Join(transcriptsDir, cacheDirName)}
}

// load reads all three artifacts. Any missing or undecodable file, or a
// chunk/embedding length mismatch, yields ErrCacheCorrupt.
func (c cache) load() (*Snapshot, error) {
	var chunks []Chunk
	if err := c.readJSON(chunksFile, &chunks); err != nil {
		return nil, err
	}
	var embeddings [][]float32
	if err := c.readJSON(embeddingsFile, &embeddings); err != nil {
		return nil, err
	}
	var files map[string]FileInfo
	if err := c.readJSON(fingerprintFile, &files); err != nil {
		return nil, err
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("%w: %d chunks but %d embeddings", ErrCacheCorrupt, len(chunks), len(embeddings))
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}
	return &Snapshot{Chunks: chunks, Files: files}, nil
}

func (c cache) save(snap *Snapshot) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	embeddings := make([][]float32, len(snap.Chunks))
	for i := range snap.Chunks {
		embeddings[i] = snap.Chunks[i].Embedding
	}
	if err := c.writeJSON(chunksFile, snap.Chunks); err != nil {
		return err
	}
	if err := c.writeJSON(embeddingsFile, embeddings); err != nil {
		return err
	}
	return c.writeJSON(fingerprintFile, snap.Files)
}

func (c cache) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(c.dir, name))
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrCacheCorrupt, name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrCacheCorrupt, name, err)
	}
	return nil
}

func (c cache) writeJSON(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(c.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
