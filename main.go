package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	openai "github.com/amikos-tech/chroma-go/pkg/embeddings/openai"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ai-fo/nexus/corpus"
	"github.com/ai-fo/nexus/index"
	"github.com/ai-fo/nexus/llm"
	"github.com/ai-fo/nexus/router"
	"github.com/ai-fo/nexus/session"
	"github.com/ai-fo/nexus/tui"
)

func buildEmbedder(cfg *Config) (llm.Embedder, error) {
	clientCfg := llm.ClientConfig{
		BaseURL:       cfg.Embedder.BaseURL,
		APIKeyEnv:     cfg.Embedder.APIKeyEnv,
		EmbedModel:    cfg.Embedder.Model,
		Timeout:       time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
		QueryPrefix:   cfg.Embedder.QueryPrefix,
		PassagePrefix: cfg.Embedder.PassagePrefix,
	}
	if cfg.Embedder.APIKeyEnv != "" {
		return llm.NewAPIClient(clientCfg)
	}
	return llm.NewLocalClient(clientCfg), nil
}

func buildGenerator(cfg *Config) (llm.Generator, error) {
	clientCfg := llm.ClientConfig{
		BaseURL:   cfg.Generator.BaseURL,
		APIKeyEnv: cfg.Generator.APIKeyEnv,
		ChatModel: cfg.Generator.Model,
		Timeout:   time.Duration(cfg.Generator.TimeoutSecs) * time.Second,
	}
	switch cfg.Generator.Mode {
	case "api":
		return llm.NewAPIClient(clientCfg)
	case "local":
		return llm.NewLocalClient(clientCfg), nil
	default:
		return nil, fmt.Errorf("unknown generator mode: %s", cfg.Generator.Mode)
	}
}

func createEmbeddingFunction(cfg *ChromaConfig) (embeddings.EmbeddingFunction, error) {
	if cfg.OpenAI != nil {
		ef, err := openai.NewOpenAIEmbeddingFunction(
			os.Getenv(cfg.OpenAI.APIKeyEnv),
			openai.WithModel(openai.EmbeddingModel(cfg.OpenAI.Model)))
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI embedding function: %w", err)
		}
		return ef, nil
	}

	return nil, errors.New("invalid chroma embeddings provider configuration")
}

func buildSearcher(ctx context.Context, cfg *Config, store *corpus.Store, embedder llm.Embedder, reset bool) (index.Searcher, error) {
	switch cfg.IndexBackend {
	case "memory":
		return index.NewMemory(store, embedder), nil
	case "chroma":
		if cfg.Chroma == nil {
			return nil, errors.New("chroma index selected but chroma config missing")
		}
		ef, err := createEmbeddingFunction(cfg.Chroma)
		if err != nil {
			return nil, err
		}
		searcher, err := index.NewChroma(ctx, index.ChromaConfig{
			BaseURL:       cfg.Chroma.Addr,
			Collection:    cfg.Chroma.Collection,
			EmbeddingFunc: ef,
			RequestSize:   cfg.RequestSize,
			Reset:         reset,
		})
		if err != nil {
			return nil, err
		}
		if reset {
			if err := searcher.Ingest(ctx, store.Snapshot()); err != nil {
				return nil, fmt.Errorf("failed to ingest corpus into chroma: %w", err)
			}
		}
		return searcher, nil
	default:
		return nil, fmt.Errorf("unknown index backend: %s", cfg.IndexBackend)
	}
}

func main() {
	reset := flag.Bool("reset", false, "Rebuild the search index from scratch if set")
	chat := flag.Bool("chat", false, "Run the interactive chat TUI instead of the MCP server")
	cfgPath := flag.String("config", "cfg/config.yaml", "Configuration file for the assistant")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := readConfig(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		log.Fatalf("failed to open log file: %s", err)
	}
	defer logFile.Close()

	logger := slog.New(slog.NewJSONHandler(logFile, nil))

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		log.Fatal(err)
	}
	generator, err := buildGenerator(cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := corpus.NewStore(logger, embedder)
	err = store.Initialize(ctx, cfg.TranscriptsDir, corpus.Options{
		ChunkSize: cfg.ChunkSize,
		Debounce:  time.Duration(cfg.MergeEventsMs) * time.Millisecond,
	})
	switch {
	case errors.Is(err, corpus.ErrCorpusEmpty):
		logger.Warn("transcript corpus is empty, answers will not be document-grounded")
	case err != nil:
		log.Fatal(err)
	}

	searcher, err := buildSearcher(ctx, cfg, store, embedder, *reset)
	if err != nil {
		log.Fatal(err)
	}

	var policy router.GroundingPolicy
	if cfg.Grounding == "judge" {
		policy = router.JudgePolicy{Log: logger, Gen: generator}
	}

	sessions := session.NewStore(cfg.MaxHistory)
	rt := router.New(logger, searcher, sessions, generator, policy, router.Config{
		Threshold:   cfg.SimilarityThreshold,
		TopK:        cfg.TopK,
		Temperature: cfg.Generator.Temperature,
		MaxTokens:   cfg.Generator.MaxTokens,
	})

	if *chat {
		if _, err := tea.NewProgram(tui.New(rt), tea.WithAltScreen()).Run(); err != nil {
			log.Fatal(err)
		}
		return
	}

	if cfg.IndexBackend == "memory" {
		go func() {
			if err := store.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("transcript watcher stopped", "error", err)
			}
		}()
	}

	srv := NewAssistantServer(rt, searcher, logger)
	sse := server.NewSSEServer(srv, server.WithBaseURL(fmt.Sprintf("http://%s", cfg.ServerAddr)))
	log.Println(sse.Start(cfg.ServerAddr))
}
