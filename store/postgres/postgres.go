// Package postgres implements tome.VectorStore using PostgreSQL with
// pgvector for native vector similarity search.
//
// The Store accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nevindra/tome"
)

// pgConfig holds store configuration set via Option functions.
type pgConfig struct {
	embeddingDimension int // 0 = untyped vector
	hnswM              int // 0 = pgvector default (16)
	hnswEFConstruction int // 0 = pgvector default (64)
}

// Option configures a PostgreSQL Store.
type Option func(*pgConfig)

// WithEmbeddingDimension sets the vector column dimension (e.g. 1536, 1024).
// When set, CREATE TABLE uses vector(N) instead of untyped vector, enabling
// better index optimization and catching dimension mismatches at insert time.
// Only affects new table creation (no ALTER on existing tables).
func WithEmbeddingDimension(dim int) Option {
	return func(c *pgConfig) { c.embeddingDimension = dim }
}

// WithHNSWM sets the HNSW m parameter (max connections per node).
// Higher values improve recall at the cost of memory. Default: pgvector's 16.
func WithHNSWM(m int) Option {
	return func(c *pgConfig) { c.hnswM = m }
}

// WithEFConstruction sets the HNSW ef_construction parameter (build-time
// candidate list size). Higher values improve index quality at the cost of
// slower builds. Default: pgvector's 64.
func WithEFConstruction(ef int) Option {
	return func(c *pgConfig) { c.hnswEFConstruction = ef }
}

// Store implements tome.VectorStore backed by PostgreSQL with pgvector.
// Vector search uses an HNSW index with cosine distance.
type Store struct {
	pool *pgxpool.Pool
	cfg  pgConfig
}

var _ tome.VectorStore = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	var cfg pgConfig
	for _, o := range opts {
		o(&cfg)
	}
	return &Store{pool: pool, cfg: cfg}
}

// vectorType returns "vector" or "vector(N)" depending on config.
func (s *Store) vectorType() string {
	if s.cfg.embeddingDimension > 0 {
		return fmt.Sprintf("vector(%d)", s.cfg.embeddingDimension)
	}
	return "vector"
}

// hnswWithClause returns the WITH (...) clause for HNSW index creation,
// or an empty string if no tuning params are set.
func (s *Store) hnswWithClause() string {
	var parts []string
	if s.cfg.hnswM > 0 {
		parts = append(parts, fmt.Sprintf("m = %d", s.cfg.hnswM))
	}
	if s.cfg.hnswEFConstruction > 0 {
		parts = append(parts, fmt.Sprintf("ef_construction = %d", s.cfg.hnswEFConstruction))
	}
	if len(parts) == 0 {
		return ""
	}
	return " WITH (" + strings.Join(parts, ", ") + ")"
}

// Init creates the pgvector extension, the records table, and its indexes.
// Safe to call multiple times (all statements are idempotent).
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		`CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			section TEXT NOT NULL DEFAULT '',
			page_number INTEGER NOT NULL DEFAULT 0,
			record_type TEXT NOT NULL,
			publication_year INTEGER NOT NULL DEFAULT 0,
			keywords TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			embedding ` + s.vectorType() + `,
			created_at BIGINT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS records_source_idx ON records(source)`,
		`CREATE INDEX IF NOT EXISTS records_type_idx ON records(record_type)`,
		`CREATE INDEX IF NOT EXISTS records_embedding_idx ON records
			USING hnsw (embedding vector_cosine_ops)` + s.hnswWithClause(),
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init: %w", err)
		}
	}
	return nil
}

// StoreRecords inserts all records in a single transaction.
func (s *Store) StoreRecords(ctx context.Context, records []tome.Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := tome.NowUnix()
	for _, r := range records {
		var embStr *string
		if len(r.Embedding) > 0 {
			v := vectorLiteral(r.Embedding)
			embStr = &v
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO records
			 (id, source, section, page_number, record_type, publication_year, keywords, content, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::vector, $10)
			 ON CONFLICT (id) DO UPDATE SET
			   source = EXCLUDED.source,
			   section = EXCLUDED.section,
			   page_number = EXCLUDED.page_number,
			   record_type = EXCLUDED.record_type,
			   publication_year = EXCLUDED.publication_year,
			   keywords = EXCLUDED.keywords,
			   content = EXCLUDED.content,
			   embedding = EXCLUDED.embedding,
			   created_at = EXCLUDED.created_at`,
			r.ID, r.Meta.Source, r.Meta.Section, r.Meta.PageNumber, r.Meta.Type,
			r.Meta.PublicationYear, r.Meta.Keywords, r.Content, embStr, now)
		if err != nil {
			return fmt.Errorf("postgres: insert record: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

// SearchRecords performs vector similarity search using pgvector's cosine
// distance operator, restricted to records matching every filter.
func (s *Store) SearchRecords(ctx context.Context, embedding []float32, topK int, filters ...tome.RecordFilter) ([]tome.ScoredRecord, error) {
	whereExtra, filterArgs := buildRecordFilters(filters, 3)

	args := append([]any{vectorLiteral(embedding), topK}, filterArgs...)
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, section, page_number, record_type, publication_year, keywords, content,
		        1 - (embedding <=> $1::vector) AS score
		 FROM records
		 WHERE embedding IS NOT NULL`+whereExtra+`
		 ORDER BY embedding <=> $1::vector
		 LIMIT $2`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: search records: %w", err)
	}
	defer rows.Close()

	var results []tome.ScoredRecord
	for rows.Next() {
		var r tome.Record
		var score float32
		if err := rows.Scan(&r.ID, &r.Meta.Source, &r.Meta.Section, &r.Meta.PageNumber,
			&r.Meta.Type, &r.Meta.PublicationYear, &r.Meta.Keywords, &r.Content, &score); err != nil {
			return nil, fmt.Errorf("postgres: scan record: %w", err)
		}
		results = append(results, tome.ScoredRecord{Record: r, Score: score})
	}
	return results, rows.Err()
}

// Close is a no-op; the pool is externally owned.
func (s *Store) Close() error { return nil }

// buildRecordFilters translates RecordFilter values into SQL WHERE clauses
// using positional parameters starting at nextArg. An OpIn filter with an
// empty list compiles to an always-false clause.
func buildRecordFilters(filters []tome.RecordFilter, nextArg int) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	var clauses []string
	var args []any

	for _, f := range filters {
		col, ok := filterColumn(f.Field)
		if !ok {
			continue
		}
		switch f.Op {
		case tome.OpEq:
			clauses = append(clauses, col+" = $"+strconv.Itoa(nextArg))
			args = append(args, f.Value)
			nextArg++
		case tome.OpIn:
			values, ok := f.Value.([]string)
			if !ok || len(values) == 0 {
				clauses = append(clauses, "FALSE")
				continue
			}
			placeholders := make([]string, len(values))
			for i, v := range values {
				placeholders[i] = "$" + strconv.Itoa(nextArg)
				args = append(args, v)
				nextArg++
			}
			clauses = append(clauses, col+" IN ("+strings.Join(placeholders, ",")+")")
		}
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(clauses, " AND "), args
}

// filterColumn maps a filter field name to its column.
func filterColumn(field string) (string, bool) {
	switch field {
	case "source":
		return "source", true
	case "type":
		return "record_type", true
	default:
		return "", false
	}
}

// vectorLiteral formats a []float32 as a pgvector literal: [0.1,0.2,...].
func vectorLiteral(embedding []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
