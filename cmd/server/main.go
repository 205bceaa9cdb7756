// Command server runs the Tome document QA HTTP API.
//
// Endpoints:
//
//	GET  /          health check
//	POST /query     ask a question, returns answer + sources
//	POST /upload    upload a document (multipart, field "file")
//	GET  /documents list ingested documents
package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	tome "github.com/nevindra/tome"
	"github.com/nevindra/tome/ingest"
	"github.com/nevindra/tome/internal/config"
	"github.com/nevindra/tome/observer"
	"github.com/nevindra/tome/provider/openaicompat"
	"github.com/nevindra/tome/query"
	"github.com/nevindra/tome/store/postgres"
	"github.com/nevindra/tome/store/sqlite"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load(os.Getenv("TOME_CONFIG"))
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if cfg.LLM.APIKey == "" {
		log.Fatal("missing LLM API key (TOME_LLM_API_KEY or tome.toml [llm].api_key)")
	}

	ctx := context.Background()

	// Observability (optional)
	var inst *observer.Instruments
	if cfg.Observer.Enabled {
		pricing := make(map[string]observer.ModelPricing, len(cfg.Observer.Pricing))
		for model, p := range cfg.Observer.Pricing {
			pricing[model] = observer.ModelPricing{InputPerMillion: p.Input, OutputPerMillion: p.Output}
		}
		var shutdown func(context.Context) error
		var err error
		inst, shutdown, err = observer.Init(ctx, pricing)
		if err != nil {
			log.Fatalf("observer init: %v", err)
		}
		defer shutdown(context.Background()) //nolint:errcheck
	}

	// Providers
	var provider tome.Provider = openaicompat.NewProvider(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL)
	var embedding tome.EmbeddingProvider = openaicompat.NewEmbedding(
		cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.BaseURL, cfg.Embedding.Dimensions)

	if inst != nil {
		provider = observer.WrapProvider(provider, cfg.LLM.Model, inst)
		embedding = observer.WrapEmbedding(embedding, cfg.Embedding.Model, inst)
	}

	provider = tome.WithRetry(provider, tome.RetryLogger(logger))
	embedding = tome.WithEmbeddingRetry(embedding, tome.RetryLogger(logger))

	if cfg.LLM.RPM > 0 || cfg.LLM.TPM > 0 {
		provider = tome.WithRateLimit(provider, tome.RPM(cfg.LLM.RPM), tome.TPM(cfg.LLM.TPM))
	}

	// Store
	var store tome.VectorStore
	switch cfg.Database.Driver {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Database.PostgresURL)
		if err != nil {
			log.Fatalf("postgres pool: %v", err)
		}
		defer pool.Close()
		store = postgres.New(pool, postgres.WithEmbeddingDimension(cfg.Embedding.Dimensions))
	default:
		store = sqlite.New(cfg.Database.Path)
	}
	if err := store.Init(ctx); err != nil {
		log.Fatalf("store init: %v", err)
	}
	defer store.Close()

	gateway := tome.NewGateway(store, embedding, tome.WithGatewayLogger(logger))

	ingestPipeline := ingest.NewPipeline(provider, gateway,
		ingest.WithChunker(ingest.ChunkerConfig{Size: cfg.Ingest.ChunkSize, Overlap: cfg.Ingest.ChunkOverlap}),
		ingest.WithConcurrency(cfg.Ingest.Concurrency),
		ingest.WithLogger(logger),
	)
	queryPipeline := query.NewPipeline(provider, gateway, query.WithLogger(logger))

	h := &handler{
		ingest:     ingestPipeline,
		query:      queryPipeline,
		gateway:    gateway,
		extractors: ingest.DefaultExtractors(),
		logger:     logger,
		inst:       inst,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/", h.Health)
	e.POST("/query", h.Query)
	e.POST("/upload", h.Upload)
	e.GET("/documents", h.ListDocuments)

	logger.Info("server starting", "addr", cfg.Server.Addr, "driver", cfg.Database.Driver)
	log.Fatal(e.Start(cfg.Server.Addr))
}
