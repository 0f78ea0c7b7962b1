package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"
)

// ErrGenerationUnavailable wraps any failure of the external generation
// call. Callers are expected to absorb it and degrade, never to propagate it
// to the end user.
var ErrGenerationUnavailable = errors.New("generation service unavailable")

// ClientConfig configures an OpenAI-compatible chat/embeddings client. The
// same wire format covers both the hosted Mistral API and a local vLLM or
// Ollama server, so the api/local split is a construction-time choice rather
// than a runtime switch.
type ClientConfig struct {
	BaseURL       string
	APIKeyEnv     string
	ChatModel     string
	EmbedModel    string
	Timeout       time.Duration
	QueryPrefix   string
	PassagePrefix string
}

type Client struct {
	baseURL       string
	apiKey        string
	chatModel     string
	embedModel    string
	queryPrefix   string
	passagePrefix string
	dimension     int
	http          *http.Client
}

// NewAPIClient builds a client for the hosted API. The key is read from the
// environment variable named in cfg.APIKeyEnv and must be present.
func NewAPIClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "MISTRAL_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mistral.ai/v1"
	}
	return newClient(cfg, key), nil
}

// NewLocalClient builds a client for a local OpenAI-compatible inference
// server. No credentials are required.
func NewLocalClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:5263/v1"
	}
	return newClient(cfg, "")
}

func newClient(cfg ClientConfig, key string) *Client {
	if cfg.ChatModel == "" {
		cfg.ChatModel = "mistral-small-latest"
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = "mistral-embed"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.QueryPrefix == "" {
		cfg.QueryPrefix = "query: "
	}
	if cfg.PassagePrefix == "" {
		cfg.PassagePrefix = "passage: "
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        key,
		chatModel:     cfg.ChatModel,
		embedModel:    cfg.EmbedModel,
		queryPrefix:   cfg.QueryPrefix,
		passagePrefix: cfg.PassagePrefix,
		http:          &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Generate(ctx context.Context, messages []Message, temperature float64, maxTokens int) (string, error) {
	payload, _ := json.Marshal(map[string]any{
		"model":       c.chatModel,
		"messages":    messages,
		"temperature": temperature,
		"max_tokens":  maxTokens,
	})
	body, err := c.post(ctx, "/chat/completions", payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode chat response: %v", ErrGenerationUnavailable, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrGenerationUnavailable)
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func (c *Client) Embed(ctx context.Context, text string, role EmbedRole) ([]float32, error) {
	switch role {
	case EmbedQuery:
		text = c.queryPrefix + text
	case EmbedPassage:
		text = c.passagePrefix + text
	}
	payload, _ := json.Marshal(map[string]any{
		"model": c.embedModel,
		"input": text,
	})
	body, err := c.post(ctx, "/embeddings", payload)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, errors.New("no embedding returned")
	}
	vec := Normalize(parsed.Data[0].Embedding)
	if c.dimension == 0 {
		c.dimension = len(vec)
	}
	return vec, nil
}

// Dimension reports the vector size observed on the first successful embed,
// zero before that.
func (c *Client) Dimension() int { return c.dimension }

func (c *Client) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s returned %s: %s", path, resp.Status, strings.TrimSpace(string(body)))
	}
	if readErr != nil {
		return nil, readErr
	}
	return body, nil
}

// Normalize scales v to unit L2 norm. A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}
