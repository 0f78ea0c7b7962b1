package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type EmbedderConfig struct {
	BaseURL       string `yaml:"base_url"`
	APIKeyEnv     string `yaml:"api_key_env"`
	Model         string `yaml:"model"`
	TimeoutSecs   int    `yaml:"timeout_secs"`
	QueryPrefix   string `yaml:"query_prefix"`
	PassagePrefix string `yaml:"passage_prefix"`
}

type GeneratorConfig struct {
	// Mode selects the concrete client: "api" for the hosted service,
	// "local" for an OpenAI-compatible local server.
	Mode        string  `yaml:"mode"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type ChromaConfig struct {
	Addr       string `yaml:"addr"`
	Collection string `yaml:"collection"`
	OpenAI     *struct {
		Model     string `yaml:"model"`
		APIKeyEnv string `yaml:"api_key_env"`
	} `yaml:"open_ai"`
}

type Config struct {
	LogFile             string          `yaml:"log"`
	TranscriptsDir      string          `yaml:"transcripts_dir"`
	MergeEventsMs       int             `yaml:"write_debounce_ms"`
	ChunkSize           int             `yaml:"chunk_size"`
	TopK                int             `yaml:"top_k"`
	SimilarityThreshold float64         `yaml:"similarity_threshold"`
	MaxHistory          int             `yaml:"max_history"`
	Grounding           string          `yaml:"grounding"` // threshold | judge
	IndexBackend        string          `yaml:"index"`     // memory | chroma
	RequestSize         int             `yaml:"request_size"`
	ServerAddr          string          `yaml:"server_addr"`
	Chroma              *ChromaConfig   `yaml:"chroma"`
	Embedder            EmbedderConfig  `yaml:"embedder"`
	Generator           GeneratorConfig `yaml:"generator"`
}

func readConfig(cfgPath string) (*Config, error) {
	cfgFile, err := os.Open(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open config file: %w", err)
	}
	defer cfgFile.Close()

	cfg := &Config{}
	dec := yaml.NewDecoder(cfgFile)
	err = dec.Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	applyConfigDefaults(cfg)
	return cfg, nil
}

func applyConfigDefaults(cfg *Config) {
	if cfg.LogFile == "" {
		cfg.LogFile = "nexus.log"
	}
	if cfg.TranscriptsDir == "" {
		cfg.TranscriptsDir = "transcripts"
	}
	if cfg.MergeEventsMs <= 0 {
		cfg.MergeEventsMs = 500
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = 0.15
	}
	if cfg.Grounding == "" {
		cfg.Grounding = "threshold"
	}
	if cfg.IndexBackend == "" {
		cfg.IndexBackend = "memory"
	}
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = "localhost:8421"
	}
	if cfg.Generator.Mode == "" {
		cfg.Generator.Mode = "api"
	}
}
