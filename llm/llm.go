// Package llm defines the boundary to the external language-model services:
// text generation and text embedding. The rest of the system only depends on
// the interfaces here, so the hosted API, a local inference server and the
// deterministic mock are interchangeable at construction time.
package llm

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// EmbedRole tells a framing-sensitive embedding model whether the text is a
// search query or an indexed passage. E5-style models expect a matching
// prefix on the input text.
type EmbedRole string

const (
	EmbedQuery   EmbedRole = "query"
	EmbedPassage EmbedRole = "passage"
)

type Generator interface {
	Generate(ctx context.Context, messages []Message, temperature float64, maxTokens int) (string, error)
}

// Embedder maps text to a fixed-length L2-normalized vector.
type Embedder interface {
	Embed(ctx context.Context, text string, role EmbedRole) ([]float32, error)
	Dimension() int
}
