package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ai-fo/nexus/corpus"
	"github.com/ai-fo/nexus/index"
	"github.com/ai-fo/nexus/llm"
)

func resultsWithScores(scores ...float64) []index.Result {
	out := make([]index.Result, 0, len(scores))
	for i, s := range scores {
		out = append(out, index.Result{
			Chunk: corpus.Chunk{Content: "chunk", SourceFile: "doc.txt", ChunkIndex: i},
			Score: s,
		})
	}
	return out
}

func Test_ThresholdPolicy(t *testing.T) {
	p := ThresholdPolicy{Threshold: 0.15}

	assert.True(t, p.Groundable(context.Background(), "q", resultsWithScores(0.05, 0.20)))
	// The threshold must be strictly exceeded.
	assert.False(t, p.Groundable(context.Background(), "q", resultsWithScores(0.15, 0.10)))
	assert.False(t, p.Groundable(context.Background(), "q", nil))
}

func Test_JudgePolicy(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	gen := llm.NewMock(8)
	gen.Reply = "Oui"
	p := JudgePolicy{Log: log, Gen: gen}
	assert.True(t, p.Groundable(context.Background(), "q", resultsWithScores(0.5)))

	gen.Reply = "non"
	assert.False(t, p.Groundable(context.Background(), "q", resultsWithScores(0.5)))

	// No retrieved chunks: nothing to judge, no generation call.
	gen.Calls = nil
	assert.False(t, p.Groundable(context.Background(), "q", nil))
	assert.Empty(t, gen.Calls)

	// A failing judge is absorbed as not-groundable.
	gen.Err = errors.New("down")
	assert.False(t, p.Groundable(context.Background(), "q", resultsWithScores(0.5)))
}
