// Package index ranks corpus chunks against a free-text query.
package index

import (
	"context"

	"github.com/ai-fo/nexus/corpus"
)

// Result pairs a chunk with its similarity score. After the image damping
// factor is applied the score is not guaranteed to stay within [-1, 1].
type Result struct {
	Chunk corpus.Chunk
	Score float64
}

// Searcher ranks all known chunks against a query and returns at most topK
// results, best first. Implementations must rank deterministically: equal
// scores keep corpus order.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]Result, error)
}

// ImageDamping is the factor applied to the raw similarity of
// image-description chunks before ranking, down-weighting image-derived
// content relative to transcript text.
const ImageDamping = 0.7
