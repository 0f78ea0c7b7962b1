package llm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// Mock is a deterministic offline implementation of Generator and Embedder.
// Embeddings are derived from a hash of the input text so that identical
// texts always map to identical unit vectors, which is enough for exercising
// ranking and routing without a model server.
type Mock struct {
	dim   int
	Reply string
	Err   error
	Calls []GenerateCall
}

type GenerateCall struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

func NewMock(dim int) *Mock {
	if dim <= 0 {
		dim = 64
	}
	return &Mock{dim: dim, Reply: "Réponse simulée."}
}

func (m *Mock) Generate(_ context.Context, messages []Message, temperature float64, maxTokens int) (string, error) {
	m.Calls = append(m.Calls, GenerateCall{Messages: messages, Temperature: temperature, MaxTokens: maxTokens})
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}

func (m *Mock) Embed(_ context.Context, text string, role EmbedRole) ([]float32, error) {
	return deterministicVector(string(role)+":"+text, m.dim), nil
}

func (m *Mock) Dimension() int { return m.dim }

func deterministicVector(input string, dim int) []float32 {
	vec := make([]float32, dim)
	seed := []byte(input)
	if len(seed) == 0 {
		seed = []byte("empty")
	}
	for i := 0; i < dim; i++ {
		h := sha256.Sum256(append(seed, byte(i%251)))
		u := binary.BigEndian.Uint32(h[:4])
		vec[i] = float32(u%2000)/1000.0 - 1.0
	}
	return Normalize(vec)
}
