// Package router is the per-message decision procedure: classify the
// message, decide whether retrieved documents can ground an answer, invoke
// exactly one generation strategy and record the turn.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/ai-fo/nexus/index"
	"github.com/ai-fo/nexus/llm"
	"github.com/ai-fo/nexus/session"
)

// QueryKind labels which generation strategy handled a message.
type QueryKind string

const (
	KindConversational QueryKind = "conversational"
	KindGrounded       QueryKind = "avec_documents"
	KindFallback       QueryKind = "sans_documents"
)

// Candidate summarizes one ranked chunk considered during evaluation.
type Candidate struct {
	Source     string  `json:"source"`
	Similarity float64 `json:"similarity"`
	IsImage    bool    `json:"is_image"`
}

// Diagnostics is the structured metadata returned with every reply.
type Diagnostics struct {
	Kind       QueryKind   `json:"type"`
	Candidates []Candidate `json:"candidates"`
	Error      string      `json:"error,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Reply is the outcome of one chat turn. Welcome is set only on the first
// turn of a session.
type Reply struct {
	Answer  string      `json:"answer"`
	Welcome string      `json:"welcome,omitempty"`
	Meta    Diagnostics `json:"meta"`
}

// Config tunes the router; zero values fall back to the defaults below.
type Config struct {
	Threshold   float64
	TopK        int
	Temperature float64
	MaxTokens   int
}

const (
	defaultTopK      = 5
	defaultMaxTokens = 500
	welcomeMaxTokens = 20
)

type Router struct {
	log      *slog.Logger
	searcher index.Searcher
	sessions *session.Store
	gen      llm.Generator
	policy   GroundingPolicy
	cfg      Config
}

// New assembles a router. A nil policy selects ThresholdPolicy with the
// configured threshold.
func New(log *slog.Logger, searcher index.Searcher, sessions *session.Store, gen llm.Generator, policy GroundingPolicy, cfg Config) *Router {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.2
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if policy == nil {
		policy = ThresholdPolicy{Threshold: cfg.Threshold}
	}
	return &Router{log: log, searcher: searcher, sessions: sessions, gen: gen, policy: policy, cfg: cfg}
}

// Chat runs one full turn: classify, maybe search, generate, record.
// External-service failures never surface as errors; they become the fixed
// apology text plus an error marker in the diagnostics. The only error
// returned is for invalid input.
func (r *Router) Chat(ctx context.Context, sessionKey, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if sessionKey == "" || message == "" {
		return Reply{}, errors.New("session key and message are required")
	}

	fresh := r.sessions.Len(sessionKey) == 0
	r.sessions.Append(sessionKey, session.RoleUser, message)

	var welcome string
	if fresh {
		welcome = r.generateWelcome(ctx, message)
		r.sessions.Append(sessionKey, session.RoleAssistant, welcome)
	}

	reply := r.route(ctx, sessionKey, message)
	reply.Welcome = welcome
	reply.Meta.Timestamp = time.Now()

	r.sessions.Append(sessionKey, session.RoleAssistant, reply.Answer)

	r.log.Info("chat turn",
		"session", sessionKey,
		"type", reply.Meta.Kind,
		"candidates", len(reply.Meta.Candidates),
		"generation_error", reply.Meta.Error != "")
	return reply, nil
}

// ClearSession drops the history of one session.
func (r *Router) ClearSession(sessionKey string) {
	r.sessions.Clear(sessionKey)
}

func (r *Router) route(ctx context.Context, sessionKey, message string) Reply {
	if IsConversational(message) {
		return r.generateDirect(ctx, sessionKey, message, KindConversational, nil)
	}

	results, err := r.searcher.Search(ctx, message, r.cfg.TopK)
	if err != nil {
		r.log.Warn("search failed, falling back to direct answer", "error", err)
		reply := r.generateDirect(ctx, sessionKey, message, KindFallback, nil)
		if reply.Meta.Error == "" {
			reply.Meta.Error = "search_unavailable"
		}
		return reply
	}

	if !r.policy.Groundable(ctx, message, results) {
		return r.generateDirect(ctx, sessionKey, message, KindFallback, results)
	}
	return r.generateGrounded(ctx, sessionKey, message, results)
}

// generateDirect answers from conversation history alone. It serves both
// the conversational and the fallback strategies, which differ only in how
// the turn is labeled.
func (r *Router) generateDirect(ctx context.Context, sessionKey, message string, kind QueryKind, results []index.Result) Reply {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: directPrompt},
		{Role: llm.RoleUser, Content: withHistory(r.sessions.FormatContext(sessionKey), message)},
	}
	answer, err := r.gen.Generate(ctx, messages, r.cfg.Temperature, r.cfg.MaxTokens)
	meta := Diagnostics{Kind: kind, Candidates: topCandidates(results)}
	if err != nil {
		r.log.Warn("generation failed", "type", kind, "error", err)
		return Reply{Answer: apologyText, Meta: withError(meta)}
	}
	return Reply{Answer: answer, Meta: meta}
}

// generateGrounded answers from the retrieved chunks plus history, then
// appends a pointer to the best-matching source document.
func (r *Router) generateGrounded(ctx context.Context, sessionKey, message string, results []index.Result) Reply {
	var prompt strings.Builder
	prompt.WriteString("Contexte:\n")
	prompt.WriteString(formatChunks(results))
	if history := r.sessions.FormatContext(sessionKey); history != "" {
		prompt.WriteString("\n\nHistorique de la conversation:\n")
		prompt.WriteString(history)
	}
	prompt.WriteString("\n\nQuestion: ")
	prompt.WriteString(message)

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: ragPrompt},
		{Role: llm.RoleUser, Content: prompt.String()},
	}
	meta := Diagnostics{Kind: KindGrounded, Candidates: topCandidates(results)}
	answer, err := r.gen.Generate(ctx, messages, r.cfg.Temperature, r.cfg.MaxTokens)
	if err != nil {
		r.log.Warn("generation failed", "type", KindGrounded, "error", err)
		return Reply{Answer: apologyText, Meta: withError(meta)}
	}

	if source := bestSource(results); source != "" {
		answer += "\n\n📄 Source : " + source
	}
	return Reply{Answer: answer, Meta: meta}
}

func (r *Router) generateWelcome(ctx context.Context, message string) string {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: welcomePrompt},
		{Role: llm.RoleUser, Content: message},
	}
	welcome, err := r.gen.Generate(ctx, messages, r.cfg.Temperature, welcomeMaxTokens)
	if err != nil {
		r.log.Warn("welcome generation failed", "error", err)
		return welcomeFallback
	}
	return welcome
}

func withHistory(history, message string) string {
	if history == "" {
		return message
	}
	return "Historique de la conversation:\n" + history + "\n\nQuestion: " + message
}

func withError(meta Diagnostics) Diagnostics {
	meta.Error = "generation_unavailable"
	return meta
}

// formatChunks renders ranked chunks for prompt assembly, flagging image
// descriptions and annotating each with its rounded similarity.
func formatChunks(results []index.Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		prefix := ""
		if r.Chunk.IsImageDescription {
			prefix = "[Description d'image] "
		}
		parts = append(parts, fmt.Sprintf("%s%s (Pertinence: %.2f)", prefix, r.Chunk.Content, r.Score))
	}
	return strings.Join(parts, "\n\n")
}

// topCandidates keeps the first three ranked results for the diagnostics.
func topCandidates(results []index.Result) []Candidate {
	n := min(len(results), 3)
	candidates := make([]Candidate, 0, n)
	for _, r := range results[:n] {
		source := ""
		if r.Chunk.SourceFile != "" {
			source = filepath.Base(r.Chunk.SourceFile)
		}
		candidates = append(candidates, Candidate{
			Source:     source,
			Similarity: r.Score,
			IsImage:    r.Chunk.IsImageDescription,
		})
	}
	return candidates
}

// bestSource returns the file name of the highest-ranked chunk that carries
// a source reference.
func bestSource(results []index.Result) string {
	for _, r := range results {
		if r.Chunk.SourceFile != "" {
			return filepath.Base(r.Chunk.SourceFile)
		}
	}
	return ""
}
