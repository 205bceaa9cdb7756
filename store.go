package tome

import "context"

// VectorStore abstracts record persistence with vector search.
// Implementations own all persisted state; no component keeps document text
// in memory beyond the pipeline run that produced it.
type VectorStore interface {
	// StoreRecords persists all records in a single atomic batch.
	StoreRecords(ctx context.Context, records []Record) error
	// SearchRecords returns the topK records most similar to embedding,
	// restricted to records matching every filter. Results are ordered by
	// similarity descending.
	SearchRecords(ctx context.Context, embedding []float32, topK int, filters ...RecordFilter) ([]ScoredRecord, error)

	// --- Lifecycle ---
	Init(ctx context.Context) error
	Close() error
}
