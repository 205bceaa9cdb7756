package tome

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// existenceProbe is the text embedded for SourceExists. The probe only has
// to match *something* under the source filter, so any non-empty text works.
const existenceProbe = "test"

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithBatchSize sets the number of records per Embed() call (default 64).
func WithBatchSize(n int) GatewayOption {
	return func(g *Gateway) { g.batchSize = n }
}

// WithGatewayLogger sets a structured logger for gateway operations.
func WithGatewayLogger(l *slog.Logger) GatewayOption {
	return func(g *Gateway) { g.logger = l }
}

// Gateway is the sole point of contact with the embedding + index service.
// Both pipelines go through it: ingestion uploads record batches, querying
// runs filtered similarity searches. The gateway does not deduplicate
// sources; preventing duplicate uploads is the ingestion pipeline's job.
type Gateway struct {
	store     VectorStore
	embedding EmbeddingProvider
	batchSize int
	logger    *slog.Logger
}

// NewGateway creates a Gateway over the given store and embedding provider.
func NewGateway(store VectorStore, emb EmbeddingProvider, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		store:     store,
		embedding: emb,
		batchSize: 64,
		logger:    NopLogger,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Upsert assigns a unique id to every record without one, embeds all record
// contents in batches, and persists the whole set in one store call.
// Returns the ids in record order.
func (g *Gateway) Upsert(ctx context.Context, records []Record) ([]string, error) {
	start := time.Now()
	ids := make([]string, len(records))
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = NewID()
		}
		ids[i] = records[i].ID
	}

	if err := g.batchEmbed(ctx, records); err != nil {
		return nil, err
	}

	if err := g.store.StoreRecords(ctx, records); err != nil {
		return nil, fmt.Errorf("store records: %w", err)
	}

	g.logger.Debug("gateway: upsert ok", "records", len(records), "duration", time.Since(start))
	return ids, nil
}

// Search embeds the query and runs a filtered similarity search.
func (g *Gateway) Search(ctx context.Context, query string, topK int, filters ...RecordFilter) ([]ScoredRecord, error) {
	embs, err := g.embedding.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embs) == 0 {
		return nil, fmt.Errorf("embed query: no embedding returned")
	}

	results, err := g.store.SearchRecords(ctx, embs[0], topK, filters...)
	if err != nil {
		return nil, fmt.Errorf("search records: %w", err)
	}
	return results, nil
}

// SourceExists probes the store for any record under the given source name.
// Errors propagate instead of reading as "absent": a failed probe must not
// let a duplicate ingestion through.
func (g *Gateway) SourceExists(ctx context.Context, source string) (bool, error) {
	results, err := g.Search(ctx, existenceProbe, 1, FilterEq("source", source))
	if err != nil {
		return false, fmt.Errorf("existence probe for %q: %w", source, err)
	}
	return len(results) > 0, nil
}

// batchEmbed embeds record contents in batches of g.batchSize.
func (g *Gateway) batchEmbed(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	for i := 0; i < len(records); i += g.batchSize {
		end := i + g.batchSize
		if end > len(records) {
			end = len(records)
		}

		batch := records[i:end]
		texts := make([]string, len(batch))
		for j, r := range batch {
			texts[j] = r.Content
		}

		embeddings, err := g.embedding.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch %d-%d: %w", i, end, err)
		}

		for j := range batch {
			if j < len(embeddings) {
				records[i+j].Embedding = embeddings[j]
			}
		}
	}

	return nil
}
