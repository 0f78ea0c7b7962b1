package corpus

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-fo/nexus/llm"
)

// countingEmbedder wraps the deterministic mock and records how many
// passages were embedded, to distinguish cache hits from rebuilds.
type countingEmbedder struct {
	*llm.Mock
	embeds int
}

func (e *countingEmbedder) Embed(ctx context.Context, text string, role llm.EmbedRole) ([]float32, error) {
	e.embeds++
	return e.Mock.Embed(ctx, text, role)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore() (*Store, *countingEmbedder) {
	emb := &countingEmbedder{Mock: llm.NewMock(16)}
	return NewStore(discardLogger(), emb), emb
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func Test_Initialize_BuildsAndPersistsCache(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "a.txt", "==================== Page 1\nContenu du premier document.")
	writeFile(t, tmp, "b.txt", "==================== IMAGE\nDescription d'une image.")

	store, emb := newTestStore()
	require.NoError(t, store.Initialize(context.Background(), tmp, Options{}))

	snap := store.Snapshot()
	require.Len(t, snap.Chunks, 2)
	assert.Equal(t, 2, emb.embeds)
	for _, chunk := range snap.Chunks {
		assert.NotEmpty(t, chunk.Embedding)
	}

	for _, name := range []string{"chunks.json", "embeddings.json", "metadata.json"} {
		_, err := os.Stat(filepath.Join(tmp, ".cache", name))
		assert.NoError(t, err, name)
	}
}

func Test_Initialize_CacheHitSkipsEmbedding(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "a.txt", "==================== Page 1\nContenu mis en cache.")

	first, _ := newTestStore()
	require.NoError(t, first.Initialize(context.Background(), tmp, Options{}))
	want := first.Snapshot()

	second, emb := newTestStore()
	require.NoError(t, second.Initialize(context.Background(), tmp, Options{}))

	assert.Zero(t, emb.embeds)
	assert.Equal(t, want.Chunks, second.Snapshot().Chunks)
}

func Test_Initialize_IdempotentAndConflicting(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "a.txt", "==================== Page 1\nContenu.")

	store, _ := newTestStore()
	require.NoError(t, store.Initialize(context.Background(), tmp, Options{}))

	// Same arguments: a no-op.
	require.NoError(t, store.Initialize(context.Background(), tmp, Options{}))

	// Different directory: refused.
	err := store.Initialize(context.Background(), t.TempDir(), Options{})
	assert.ErrorIs(t, err, ErrAlreadyInitialized)

	// Different chunk size: refused too.
	err = store.Initialize(context.Background(), tmp, Options{ChunkSize: 64})
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func Test_Initialize_EmptyDir(t *testing.T) {
	store, _ := newTestStore()
	err := store.Initialize(context.Background(), t.TempDir(), Options{})

	assert.ErrorIs(t, err, ErrCorpusEmpty)
	assert.Empty(t, store.Snapshot().Chunks)
}

func Test_Rebuild_OnFileChange(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "a.txt", "==================== Page 1\nVersion initiale.")

	store, emb := newTestStore()
	require.NoError(t, store.Initialize(context.Background(), tmp, Options{}))
	require.Equal(t, 1, emb.embeds)

	// Unchanged directory: rebuild is a cache hit.
	require.NoError(t, store.Rebuild(context.Background()))
	assert.Equal(t, 1, emb.embeds)

	writeFile(t, tmp, "a.txt", "==================== Page 1\nVersion modifiée, plus longue.")
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(filepath.Join(tmp, "a.txt"), future, future))

	require.NoError(t, store.Rebuild(context.Background()))
	assert.Equal(t, 2, emb.embeds)
	assert.Contains(t, store.Snapshot().Chunks[0].Content, "modifiée")
}

func Test_Rebuild_OnCorruptCache(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "a.txt", "==================== Page 1\nContenu.")

	first, _ := newTestStore()
	require.NoError(t, first.Initialize(context.Background(), tmp, Options{}))

	require.NoError(t, os.WriteFile(filepath.Join(tmp, ".cache", "embeddings.json"), []byte("{not json"), 0o644))

	second, emb := newTestStore()
	require.NoError(t, second.Initialize(context.Background(), tmp, Options{}))
	assert.Equal(t, 1, emb.embeds)
	require.Len(t, second.Snapshot().Chunks, 1)
	assert.NotEmpty(t, second.Snapshot().Chunks[0].Embedding)
}

func Test_Rebuild_RequiresInitialize(t *testing.T) {
	store, _ := newTestStore()
	assert.ErrorIs(t, store.Rebuild(context.Background()), ErrNotInitialized)
}

func Test_Watch_RebuildsOnChange(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "a.txt", "==================== Page 1\nVersion initiale.")

	store, emb := newTestStore()
	require.NoError(t, store.Initialize(context.Background(), tmp, Options{Debounce: 50 * time.Millisecond}))
	require.Equal(t, 1, emb.embeds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = store.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	writeFile(t, tmp, "b.txt", "==================== Page 1\nNouveau document.")

	require.Eventually(t, func() bool {
		return len(store.Snapshot().Chunks) == 2
	}, 3*time.Second, 50*time.Millisecond)
}
