package cli

import (
	"context"
	"fmt"

	"github.com/juristec/legisrag/internal/adapters/driven/config/file"
	"github.com/juristec/legisrag/internal/adapters/driven/embedding/cache"
	"github.com/juristec/legisrag/internal/adapters/driven/embedding/openai"
	"github.com/juristec/legisrag/internal/adapters/driven/storage/pgvector"
	"github.com/juristec/legisrag/internal/adapters/driven/storage/sqlite"
	"github.com/juristec/legisrag/internal/core/domain"
	"github.com/juristec/legisrag/internal/core/ports/driven"
	"github.com/juristec/legisrag/internal/core/services"
	"github.com/juristec/legisrag/internal/metadata"
	"github.com/juristec/legisrag/internal/parsers"
	"github.com/juristec/legisrag/internal/parsers/docx"
	"github.com/juristec/legisrag/internal/parsers/pdf"
	"github.com/juristec/legisrag/internal/postprocessors/chunker"
)

// app holds the wired service graph for one command invocation.
type app struct {
	embedder driven.EmbeddingService
	store    driven.VectorStore

	Ingest *services.IngestService
	Query  *services.QueryService
}

// newApp loads configuration and wires adapters into the core services.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := file.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	settings := cfg.Settings()

	store, err := openStore(ctx, cfg, settings)
	if err != nil {
		return nil, err
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	registry := parsers.NewRegistry(docx.New(), pdf.New())
	chk := chunker.New(metadata.New(),
		chunker.WithMaxTokens(settings.MaxTokens),
		chunker.WithOverlapTokens(settings.OverlapTokens),
		chunker.WithMinChunkSize(settings.MinChunkSize),
		chunker.WithMetadataMaxDepth(settings.MetadataMaxDepth),
	)

	return &app{
		embedder: embedder,
		store:    store,
		Ingest:   services.NewIngestService(store, embedder, registry, chk, settings),
		Query:    services.NewQueryService(store, embedder, settings),
	}, nil
}

func (a *app) Close() {
	a.embedder.Close()
	a.store.Close()
}

// checkEmbedder verifies the embedding provider is reachable before an
// ingestion run commits to parsing and chunking work.
func (a *app) checkEmbedder(ctx context.Context) error {
	if err := a.embedder.Ping(ctx); err != nil {
		return fmt.Errorf("embedding provider unreachable: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg file.Config, settings domain.Settings) (driven.VectorStore, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		return sqlite.NewStore(cfg.Storage.SQLitePath)
	case "pgvector":
		return pgvector.NewStore(ctx, cfg.Storage.DatabaseURL, settings.EmbeddingDimensions)
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q",
			domain.ErrInvalidInput, cfg.Storage.Backend)
	}
}

func buildEmbedder(cfg file.Config) (driven.EmbeddingService, error) {
	inner, err := openai.NewEmbeddingService(openai.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, err
	}
	return cache.New(inner, cfg.Embedding.CacheSize)
}
