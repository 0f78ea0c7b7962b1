package router

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ai-fo/nexus/index"
	"github.com/ai-fo/nexus/llm"
)

// DefaultThreshold is the minimum damped similarity a retrieved chunk must
// strictly exceed for a message to count as document-groundable.
const DefaultThreshold = 0.15

// GroundingPolicy decides whether retrieved context is strong enough to
// answer from documents. Failures are absorbed: a policy that cannot decide
// reports not-groundable.
type GroundingPolicy interface {
	Groundable(ctx context.Context, question string, results []index.Result) bool
}

// ThresholdPolicy is the authoritative groundability check: at least one
// result must strictly exceed the similarity threshold. With an empty corpus
// no result can, so every message degrades to the fallback path.
type ThresholdPolicy struct {
	Threshold float64
}

func (p ThresholdPolicy) Groundable(_ context.Context, _ string, results []index.Result) bool {
	threshold := p.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	for _, r := range results {
		if r.Score > threshold {
			return true
		}
	}
	return false
}

// JudgePolicy is the alternate, pluggable check: it shows the retrieved
// chunks to the generation model and trusts its oui/non verdict. Slower and
// less predictable than ThresholdPolicy, which remains the default.
type JudgePolicy struct {
	Log *slog.Logger
	Gen llm.Generator
}

func (p JudgePolicy) Groundable(ctx context.Context, question string, results []index.Result) bool {
	if len(results) == 0 {
		return false
	}
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: judgePrompt},
		{Role: llm.RoleUser, Content: "Contexte:\n" + formatChunks(results) + "\n\nQuestion: " + question},
	}
	verdict, err := p.Gen.Generate(ctx, messages, 0.2, 10)
	if err != nil {
		p.Log.Warn("grounding judge unavailable", "error", err)
		return false
	}
	return strings.ToLower(strings.TrimSpace(verdict)) == "oui"
}
