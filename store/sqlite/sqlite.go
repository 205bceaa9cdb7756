// Package sqlite implements tome.VectorStore using pure-Go SQLite
// with in-process brute-force vector search. Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/nevindra/tome"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store.
// When set, the store emits debug logs for every operation including
// timing, row counts, and key parameters. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store implements tome.VectorStore backed by a local SQLite file.
// Embeddings are stored as JSON text and vector search is done
// in-process using brute-force cosine similarity.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ tome.VectorStore = (*Store)(nil)

// New creates a Store using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so that
// all goroutines serialize through one connection, eliminating SQLITE_BUSY
// errors caused by concurrent writers opening independent connections.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: tome.NopLogger}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates all required tables and indexes.
func (s *Store) Init(ctx context.Context) error {
	start := time.Now()
	s.logger.Debug("sqlite: init started")

	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		section TEXT NOT NULL DEFAULT '',
		page_number INTEGER NOT NULL DEFAULT 0,
		record_type TEXT NOT NULL,
		publication_year INTEGER NOT NULL DEFAULT 0,
		keywords TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		embedding TEXT,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	// Indexes on the two filterable columns.
	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_records_source ON records(source)`)
	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_records_type ON records(record_type)`)

	s.logger.Info("sqlite: init completed", "duration", time.Since(start))
	return nil
}

// StoreRecords inserts all records in a single transaction, so a source's
// page chunks and summary land atomically or not at all.
func (s *Store) StoreRecords(ctx context.Context, records []tome.Record) error {
	start := time.Now()
	s.logger.Debug("sqlite: store records", "count", len(records))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := tome.NowUnix()
	for _, r := range records {
		var embJSON *string
		if len(r.Embedding) > 0 {
			v := serializeEmbedding(r.Embedding)
			embJSON = &v
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO records
			 (id, source, section, page_number, record_type, publication_year, keywords, content, embedding, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.Meta.Source, r.Meta.Section, r.Meta.PageNumber, r.Meta.Type,
			r.Meta.PublicationYear, r.Meta.Keywords, r.Content, embJSON, now,
		)
		if err != nil {
			s.logger.Error("sqlite: insert record failed", "id", r.ID, "error", err)
			return fmt.Errorf("insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("sqlite: store records commit failed", "error", err)
		return fmt.Errorf("commit tx: %w", err)
	}
	s.logger.Debug("sqlite: store records ok", "count", len(records), "duration", time.Since(start))
	return nil
}

// SearchRecords performs brute-force cosine similarity search over records
// matching every filter.
func (s *Store) SearchRecords(ctx context.Context, embedding []float32, topK int, filters ...tome.RecordFilter) ([]tome.ScoredRecord, error) {
	start := time.Now()
	s.logger.Debug("sqlite: search records", "top_k", topK, "embedding_dim", len(embedding), "filters", len(filters))

	whereExtra, filterArgs := buildRecordFilters(filters)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, section, page_number, record_type, publication_year, keywords, content, embedding
		 FROM records WHERE embedding IS NOT NULL`+whereExtra,
		filterArgs...)
	if err != nil {
		return nil, fmt.Errorf("search records: %w", err)
	}
	defer rows.Close()

	var results []tome.ScoredRecord
	scanned := 0

	for rows.Next() {
		var r tome.Record
		var embJSON string
		if err := rows.Scan(&r.ID, &r.Meta.Source, &r.Meta.Section, &r.Meta.PageNumber,
			&r.Meta.Type, &r.Meta.PublicationYear, &r.Meta.Keywords, &r.Content, &embJSON); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		scanned++
		stored, err := deserializeEmbedding(embJSON)
		if err != nil {
			continue
		}
		results = append(results, tome.ScoredRecord{Record: r, Score: cosineSimilarity(embedding, stored)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	s.logger.Debug("sqlite: search records ok", "scanned", scanned, "returned", len(results), "duration", time.Since(start))
	return results, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// buildRecordFilters translates RecordFilter values into SQL WHERE clauses.
// The returned clause includes a leading " AND ..." per filter. An OpIn
// filter with an empty list compiles to an always-false clause: membership
// in the empty set matches nothing.
func buildRecordFilters(filters []tome.RecordFilter) (string, []any) {
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
			clauses = append(clauses, col+" = ?")
			args = append(args, f.Value)
		case tome.OpIn:
			values, ok := f.Value.([]string)
			if !ok || len(values) == 0 {
				clauses = append(clauses, "1 = 0")
				continue
			}
			placeholders := make([]string, len(values))
			for i, v := range values {
				placeholders[i] = "?"
				args = append(args, v)
			}
			clauses = append(clauses, col+" IN ("+strings.Join(placeholders, ",")+")")
		}
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(clauses, " AND "), args
}

// filterColumn maps a filter field name to its column. Only the two fields
// the pipelines filter on are supported.
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

// --- Vector math ---

// cosineSimilarity computes the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}

// serializeEmbedding converts []float32 to a JSON array string.
func serializeEmbedding(embedding []float32) string {
	data, _ := json.Marshal(embedding)
	return string(data)
}

// deserializeEmbedding parses a JSON array string back to []float32.
func deserializeEmbedding(s string) ([]float32, error) {
	var v []float32
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}
