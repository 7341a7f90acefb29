// Package file provides TOML-based configuration for the legisrag CLI.
// Values come from three layers, later wins: built-in defaults, the
// config file, and environment variables for secrets.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/juristec/legisrag/internal/core/domain"
)

// Environment variables consulted after the file is loaded. Secrets
// never belong in the TOML file.
const (
	EnvAPIKey      = "OPENAI_API_KEY"
	EnvDatabaseURL = "LEGISRAG_DATABASE_URL"
)

// Config is the on-disk configuration shape.
type Config struct {
	Storage    StorageConfig    `toml:"storage"`
	Embedding  EmbeddingConfig  `toml:"embedding"`
	Chunking   ChunkingConfig   `toml:"chunking"`
	Retrieval  RetrievalConfig  `toml:"retrieval"`
	Confidence ConfidenceConfig `toml:"confidence"`
}

// StorageConfig selects and configures the vector store backend.
type StorageConfig struct {
	// Backend is "sqlite" (embedded, default) or "pgvector".
	Backend string `toml:"backend"`

	// SQLitePath is the database file for the sqlite backend.
	// Empty means ~/.legisrag/data/legisrag.db.
	SQLitePath string `toml:"sqlite_path"`

	// DatabaseURL is the PostgreSQL connection string for the pgvector
	// backend. Usually supplied via LEGISRAG_DATABASE_URL instead.
	DatabaseURL string `toml:"database_url"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
	BaseURL    string `toml:"base_url"`
	CacheSize  int    `toml:"cache_size"`

	// APIKey is normally supplied via OPENAI_API_KEY.
	APIKey string `toml:"api_key"`
}

// ChunkingConfig bounds the chunker.
type ChunkingConfig struct {
	MaxTokens        int `toml:"max_tokens"`
	OverlapTokens    int `toml:"overlap_tokens"`
	MinChunkSize     int `toml:"min_chunk_size"`
	MetadataMaxDepth int `toml:"metadata_max_depth"`
}

// RetrievalConfig tunes the query pipeline.
type RetrievalConfig struct {
	TopK                int     `toml:"top_k"`
	MinSimilarity       float64 `toml:"min_similarity"`
	CandidateMultiplier int     `toml:"candidate_multiplier"`
	CandidateMin        int     `toml:"candidate_min"`
	CandidateCap        int     `toml:"candidate_cap"`
	FallbackDelta       float64 `toml:"fallback_delta"`
	FallbackFloor       float64 `toml:"fallback_floor"`
	HybridRerank        bool    `toml:"hybrid_rerank"`
	SemanticWeight      float64 `toml:"semantic_weight"`
	LexicalWeight       float64 `toml:"lexical_weight"`
	MetadataWeight      float64 `toml:"metadata_weight"`
	NotaMaxTokens       int     `toml:"nota_max_tokens"`
}

// ConfidenceConfig holds the confidence ladder thresholds.
type ConfidenceConfig struct {
	Alta  float64 `toml:"alta"`
	Media float64 `toml:"media"`
	Baixa float64 `toml:"baixa"`
}

// Default returns the built-in configuration, mirroring
// domain.DefaultSettings.
func Default() Config {
	s := domain.DefaultSettings()
	return Config{
		Storage: StorageConfig{
			Backend: "sqlite",
		},
		Embedding: EmbeddingConfig{
			Model:      s.EmbeddingModel,
			Dimensions: s.EmbeddingDimensions,
			CacheSize:  4096,
		},
		Chunking: ChunkingConfig{
			MaxTokens:        s.MaxTokens,
			OverlapTokens:    s.OverlapTokens,
			MinChunkSize:     s.MinChunkSize,
			MetadataMaxDepth: s.MetadataMaxDepth,
		},
		Retrieval: RetrievalConfig{
			TopK:                s.TopK,
			MinSimilarity:       s.MinSimilarity,
			CandidateMultiplier: s.CandidateMultiplier,
			CandidateMin:        s.CandidateMin,
			CandidateCap:        s.CandidateCap,
			FallbackDelta:       s.FallbackDelta,
			FallbackFloor:       s.FallbackFloor,
			HybridRerank:        s.HybridRerank,
			SemanticWeight:      s.SemanticWeight,
			LexicalWeight:       s.LexicalWeight,
			MetadataWeight:      s.MetadataWeight,
			NotaMaxTokens:       s.NotaMaxTokens,
		},
		Confidence: ConfidenceConfig{
			Alta:  s.ConfidenceAlta,
			Media: s.ConfidenceMedia,
			Baixa: s.ConfidenceBaixa,
		},
	}
}

// DefaultPath returns the default config file location,
// ~/.legisrag/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".legisrag", "config.toml"), nil
}

// Load reads the config file at path, overlaying it on the defaults and
// then applying environment overrides. A missing file is not an error:
// the defaults plus environment are used.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// No file yet: defaults apply.
	default:
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Settings().Validate(); err != nil {
		return cfg, err
	}
	if cfg.Storage.Backend != "sqlite" && cfg.Storage.Backend != "pgvector" {
		return cfg, fmt.Errorf("%w: unknown storage backend %q",
			domain.ErrInvalidInput, cfg.Storage.Backend)
	}
	return cfg, nil
}

// applyEnv overrides secrets from the environment.
func (c *Config) applyEnv() {
	if key := os.Getenv(EnvAPIKey); key != "" {
		c.Embedding.APIKey = key
	}
	if url := os.Getenv(EnvDatabaseURL); url != "" {
		c.Storage.DatabaseURL = url
	}
}

// Settings converts the file shape into the domain settings passed to
// core services.
func (c Config) Settings() domain.Settings {
	return domain.Settings{
		EmbeddingModel:      c.Embedding.Model,
		EmbeddingDimensions: c.Embedding.Dimensions,
		TopK:                c.Retrieval.TopK,
		MinSimilarity:       c.Retrieval.MinSimilarity,
		CandidateMultiplier: c.Retrieval.CandidateMultiplier,
		CandidateMin:        c.Retrieval.CandidateMin,
		CandidateCap:        c.Retrieval.CandidateCap,
		FallbackDelta:       c.Retrieval.FallbackDelta,
		FallbackFloor:       c.Retrieval.FallbackFloor,
		HybridRerank:        c.Retrieval.HybridRerank,
		SemanticWeight:      c.Retrieval.SemanticWeight,
		LexicalWeight:       c.Retrieval.LexicalWeight,
		MetadataWeight:      c.Retrieval.MetadataWeight,
		ConfidenceAlta:      c.Confidence.Alta,
		ConfidenceMedia:     c.Confidence.Media,
		ConfidenceBaixa:     c.Confidence.Baixa,
		MaxTokens:           c.Chunking.MaxTokens,
		OverlapTokens:       c.Chunking.OverlapTokens,
		MinChunkSize:        c.Chunking.MinChunkSize,
		MetadataMaxDepth:    c.Chunking.MetadataMaxDepth,
		NotaMaxTokens:       c.Retrieval.NotaMaxTokens,
	}
}

// Save writes the configuration to path with restricted permissions,
// creating the directory if needed.
func (c Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
