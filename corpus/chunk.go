// Package corpus maintains the authoritative set of transcript chunks and
// their embeddings, backed by an on-disk cache keyed to a fingerprint of the
// source files.
package corpus

// Chunk is the minimal retrievable unit of transcript content. Identity is
// (SourceFile, ChunkIndex); ChunkIndex increases monotonically within a
// source file but is not a global key.
type Chunk struct {
	Content            string `json:"content"`
	IsImageDescription bool   `json:"is_image_description"`
	SourceFile         string `json:"source_file"`
	ChunkIndex         int    `json:"chunk_index"`

	// Embedding is populated during indexing and persisted separately from
	// the chunk record (see cache.go).
	Embedding []float32 `json:"-"`
}

// FileInfo fingerprints one source file for cache-validity comparison.
type FileInfo struct {
	ModTime int64 `json:"mtime"`
	Size    int64 `json:"size"`
}

// Snapshot is the complete indexed state of the transcript directory at one
// point in time. It is immutable once published; a rebuild swaps in a fresh
// one atomically.
type Snapshot struct {
	Chunks []Chunk
	Files  map[string]FileInfo
}
