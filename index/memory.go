package index

import (
	"context"
	"fmt"
	"sort"

	"github.com/ai-fo/nexus/corpus"
	"github.com/ai-fo/nexus/llm"
)

// SnapshotSource yields the corpus snapshot to rank over. *corpus.Store
// satisfies it.
type SnapshotSource interface {
	Snapshot() *corpus.Snapshot
}

// Memory is a brute-force in-memory searcher: the query is embedded with the
// same provider as the passages and scored by dot product against every
// chunk of the current snapshot. O(n) per query, which is fine for a corpus
// that fits in memory; larger deployments can swap in Chroma behind the same
// Searcher interface.
type Memory struct {
	source   SnapshotSource
	embedder llm.Embedder
	damping  float64
}

func NewMemory(source SnapshotSource, embedder llm.Embedder) *Memory {
	return &Memory{source: source, embedder: embedder, damping: ImageDamping}
}

func (m *Memory) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 5
	}
	snap := m.source.Snapshot()
	if len(snap.Chunks) == 0 {
		return nil, nil
	}

	queryVec, err := m.embedder.Embed(ctx, query, llm.EmbedQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results := make([]Result, 0, len(snap.Chunks))
	for _, chunk := range snap.Chunks {
		score := dot(queryVec, chunk.Embedding)
		if chunk.IsImageDescription {
			score *= m.damping
		}
		results = append(results, Result{Chunk: chunk, Score: score})
	}

	// Stable sort keeps corpus order on ties, which makes ranking
	// deterministic across rebuild-from-cache runs.
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
