package index

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-fo/nexus/corpus"
	"github.com/ai-fo/nexus/llm"
)

type fakeSource struct {
	snap *corpus.Snapshot
}

func (f *fakeSource) Snapshot() *corpus.Snapshot { return f.snap }

// fixedEmbedder returns the same unit vector for every query, so chunk
// scores are fully determined by the chunk embeddings below.
type fixedEmbedder struct {
	vec []float32
	err error
}

func (e *fixedEmbedder) Embed(context.Context, string, llm.EmbedRole) ([]float32, error) {
	return e.vec, e.err
}

func (e *fixedEmbedder) Dimension() int { return len(e.vec) }

func chunk(content, source string, idx int, image bool, embedding []float32) corpus.Chunk {
	return corpus.Chunk{
		Content:            content,
		SourceFile:         source,
		ChunkIndex:         idx,
		IsImageDescription: image,
		Embedding:          embedding,
	}
}

func Test_Search_RanksByDotProduct(t *testing.T) {
	source := &fakeSource{snap: &corpus.Snapshot{Chunks: []corpus.Chunk{
		chunk("faible", "a.txt", 0, false, []float32{0.1, 0}),
		chunk("fort", "a.txt", 1, false, []float32{0.9, 0}),
		chunk("moyen", "b.txt", 0, false, []float32{0.5, 0}),
	}}}
	m := NewMemory(source, &fixedEmbedder{vec: []float32{1, 0}})

	results, err := m.Search(context.Background(), "question", 2)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "fort", results[0].Chunk.Content)
	assert.InDelta(t, 0.9, results[0].Score, 1e-6)
	assert.Equal(t, "moyen", results[1].Chunk.Content)
}

func Test_Search_DampsImageDescriptions(t *testing.T) {
	// Identical raw similarity: the text chunk must rank strictly above the
	// image chunk once damping is applied.
	source := &fakeSource{snap: &corpus.Snapshot{Chunks: []corpus.Chunk{
		chunk("image", "a.txt", 0, true, []float32{1, 0}),
		chunk("texte", "a.txt", 1, false, []float32{1, 0}),
	}}}
	m := NewMemory(source, &fixedEmbedder{vec: []float32{1, 0}})

	results, err := m.Search(context.Background(), "question", 5)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "texte", results[0].Chunk.Content)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "image", results[1].Chunk.Content)
	assert.InDelta(t, ImageDamping, results[1].Score, 1e-6)
}

func Test_Search_TiesKeepCorpusOrder(t *testing.T) {
	source := &fakeSource{snap: &corpus.Snapshot{Chunks: []corpus.Chunk{
		chunk("premier", "a.txt", 0, false, []float32{1, 0}),
		chunk("deuxième", "a.txt", 1, false, []float32{1, 0}),
		chunk("troisième", "b.txt", 0, false, []float32{1, 0}),
	}}}
	m := NewMemory(source, &fixedEmbedder{vec: []float32{1, 0}})

	results, err := m.Search(context.Background(), "question", 5)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "premier", results[0].Chunk.Content)
	assert.Equal(t, "deuxième", results[1].Chunk.Content)
	assert.Equal(t, "troisième", results[2].Chunk.Content)
}

func Test_Search_EmptyCorpus(t *testing.T) {
	m := NewMemory(&fakeSource{snap: &corpus.Snapshot{}}, &fixedEmbedder{vec: []float32{1, 0}})

	results, err := m.Search(context.Background(), "question", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func Test_Search_EmbedderFailure(t *testing.T) {
	source := &fakeSource{snap: &corpus.Snapshot{Chunks: []corpus.Chunk{
		chunk("texte", "a.txt", 0, false, []float32{1, 0}),
	}}}
	m := NewMemory(source, &fixedEmbedder{err: errors.New("provider down")})

	_, err := m.Search(context.Background(), "question", 5)
	assert.Error(t, err)
}
