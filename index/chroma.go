package index

import (
	"context"
	"fmt"
	"sort"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"github.com/ai-fo/nexus/corpus"
)

// Metadata keys attached to every chunk stored in Chroma.
const (
	metaSourceFile = "source_file"
	metaChunkIndex = "chunk_index"
	metaIsImage    = "is_image"
)

// ChromaConfig configures the Chroma-backed searcher.
type ChromaConfig struct {
	BaseURL       string
	Collection    string
	EmbeddingFunc embeddings.EmbeddingFunction
	RequestSize   int
	Reset         bool
}

// Chroma is the approximate-nearest-neighbor alternative to Memory for
// corpora too large to scan per query. Embedding is delegated to the
// configured Chroma embedding function; the image-damping policy is still
// applied here, from chunk metadata, so ranking semantics match Memory.
type Chroma struct {
	col         chroma.Collection
	requestSize int
	damping     float64
}

func NewChroma(ctx context.Context, cfg ChromaConfig) (*Chroma, error) {
	client, err := chroma.NewHTTPClient(chroma.WithBaseURL(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("create chroma client: %w", err)
	}
	if cfg.Collection == "" {
		cfg.Collection = "transcripts"
	}
	if cfg.Reset {
		if err := client.DeleteCollection(ctx, cfg.Collection); err != nil {
			return nil, fmt.Errorf("reset collection %s: %w", cfg.Collection, err)
		}
	}
	col, err := client.GetOrCreateCollection(ctx, cfg.Collection,
		chroma.WithEmbeddingFunctionCreate(cfg.EmbeddingFunc))
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", cfg.Collection, err)
	}
	if cfg.RequestSize <= 0 {
		cfg.RequestSize = 64
	}
	return &Chroma{col: col, requestSize: cfg.RequestSize, damping: ImageDamping}, nil
}

// Ingest uploads all chunks of the snapshot, batched by request size.
func (c *Chroma) Ingest(ctx context.Context, snap *corpus.Snapshot) error {
	for start := 0; start < len(snap.Chunks); start += c.requestSize {
		end := min(start+c.requestSize, len(snap.Chunks))

		texts := make([]string, 0, end-start)
		metadatas := make([]chroma.DocumentMetadata, 0, end-start)
		for _, chunk := range snap.Chunks[start:end] {
			isImage := 0
			if chunk.IsImageDescription {
				isImage = 1
			}
			texts = append(texts, chunk.Content)
			metadatas = append(metadatas, chroma.NewDocumentMetadata(
				chroma.NewStringAttribute(metaSourceFile, chunk.SourceFile),
				chroma.NewIntAttribute(metaChunkIndex, int64(chunk.ChunkIndex)),
				chroma.NewIntAttribute(metaIsImage, int64(isImage)),
			))
		}

		err := c.col.Add(ctx,
			chroma.WithTexts(texts...),
			chroma.WithIDGenerator(chroma.NewULIDGenerator()),
			chroma.WithMetadatas(metadatas...),
		)
		if err != nil {
			return fmt.Errorf("add chunks to chroma: %w", err)
		}
	}
	return nil
}

func (c *Chroma) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 5
	}
	r, err := c.col.Query(ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(topK),
	)
	if err != nil {
		return nil, fmt.Errorf("query chroma: %w", err)
	}

	docs := r.GetDocumentsGroups()[0]
	metadatas := r.GetMetadatasGroups()[0]
	distances := r.GetDistancesGroups()[0]

	results := make([]Result, 0, len(docs))
	for i := range docs {
		source, _ := metadatas[i].GetString(metaSourceFile)
		idx, _ := metadatas[i].GetInt(metaChunkIndex)
		isImage, _ := metadatas[i].GetInt(metaIsImage)

		// Chroma reports cosine distance; similarity is its complement.
		score := 1 - float64(distances[i])
		if isImage == 1 {
			score *= c.damping
		}
		results = append(results, Result{
			Chunk: corpus.Chunk{
				Content:            docs[i].ContentString(),
				SourceFile:         source,
				ChunkIndex:         int(idx),
				IsImageDescription: isImage == 1,
			},
			Score: score,
		})
	}

	// Damping can reorder what Chroma returned by raw distance.
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results, nil
}
