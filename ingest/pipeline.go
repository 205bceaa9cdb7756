package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	tome "github.com/nevindra/tome"
)

// PageBreakMarker delimits raw pages within one uploaded text. Input without
// the marker is treated as a single page.
const PageBreakMarker = "<!-- PAGE BREAK -->"

// anchorTagRe matches the anchor-tag artifacts stripped before page-splitting.
var anchorTagRe = regexp.MustCompile(`<a id='[^']+'></a>`)

// Result holds the counts reported after a successful ingestion run.
// ChunksCreated excludes the appended summary record.
type Result struct {
	PagesProcessed  int    `json:"pages_processed"`
	SectionsCreated int    `json:"sections_created"`
	ChunksCreated   int    `json:"chunks_created"`
	DocumentIDCount int    `json:"document_ids_count"`
	PublicationYear int    `json:"publication_year"`
	Keywords        string `json:"keywords"`
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithChunker overrides the default 1000/100 chunking window. Degenerate
// windows (non-positive size, overlap at or above size) fall back to the
// defaults rather than stalling the chunk loop.
func WithChunker(cfg ChunkerConfig) Option {
	return func(p *Pipeline) { p.chunker = cfg.normalize() }
}

// WithConcurrency bounds the fan-out of per-page normalization and
// per-section summarization (default 4).
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithLogger sets a structured logger for pipeline stages.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// Pipeline orchestrates one exactly-once-per-source ingestion run:
// existence check, cleaning, page split, normalization, section split,
// summarization, metadata extraction, chunking, and a single final upload
// bundling page chunks and the summary record. Any stage failure aborts the
// run before anything is written, so the store never holds a partial source.
type Pipeline struct {
	normalizer  *Normalizer
	summarizer  *Summarizer
	gateway     *tome.Gateway
	chunker     ChunkerConfig
	concurrency int
	logger      *slog.Logger

	// Serializes check-then-upload per source. Two concurrent ingestions of
	// the same name must not both pass the existence check.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPipeline creates an ingestion Pipeline over the given provider and gateway.
func NewPipeline(provider tome.Provider, gateway *tome.Gateway, opts ...Option) *Pipeline {
	p := &Pipeline{
		gateway:     gateway,
		chunker:     DefaultChunkerConfig(),
		concurrency: 4,
		logger:      tome.NopLogger,
		locks:       make(map[string]*sync.Mutex),
	}
	for _, o := range opts {
		o(p)
	}
	p.normalizer = NewNormalizer(provider, p.logger)
	p.summarizer = NewSummarizer(provider, p.logger)
	return p
}

// Process runs the full ingestion state machine for one source. On success
// it returns the run's counts; on failure nothing has been written.
func (p *Pipeline) Process(ctx context.Context, fileContent, fileName string) (Result, error) {
	unlock := p.lockSource(fileName)
	defer unlock()

	start := time.Now()
	p.logger.Info("ingest: starting", "source", fileName)

	exists, err := p.gateway.SourceExists(ctx, fileName)
	if err != nil {
		return Result{}, err
	}
	if exists {
		return Result{}, &tome.ErrSourceExists{Source: fileName}
	}

	cleaned := strings.TrimSpace(anchorTagRe.ReplaceAllString(fileContent, ""))
	pages := strings.Split(cleaned, PageBreakMarker)

	normalized, err := p.normalizePages(ctx, pages)
	if err != nil {
		return Result{}, err
	}

	sections := SplitSections(normalized, fileName)
	p.logger.Debug("ingest: sections split", "source", fileName, "sections", len(sections))

	pageSummaries, err := p.summarizeSections(ctx, sections)
	if err != nil {
		return Result{}, err
	}

	documentSummary, err := p.summarizer.SummarizeDocument(ctx, pageSummaries)
	if err != nil {
		return Result{}, err
	}

	year, err := p.summarizer.ExtractYear(ctx, documentSummary)
	if err != nil {
		return Result{}, err
	}

	keywords, err := p.summarizer.ExtractKeywords(ctx, documentSummary)
	if err != nil {
		return Result{}, err
	}

	records := p.buildRecords(sections, fileName, year, keywords)
	chunkCount := len(records)

	// The summary record rides in the same batch, so the upload is all-or-nothing.
	records = append(records, tome.Record{
		Content: documentSummary,
		Meta: tome.RecordMeta{
			Source:          fileName,
			Section:         "",
			PageNumber:      0,
			PublicationYear: year,
			Keywords:        keywords,
			Type:            tome.TypeSummary,
		},
	})

	ids, err := p.gateway.Upsert(ctx, records)
	if err != nil {
		return Result{}, err
	}

	p.logger.Info("ingest: completed",
		"source", fileName,
		"pages", len(pages),
		"sections", len(sections),
		"chunks", chunkCount,
		"duration", time.Since(start))

	return Result{
		PagesProcessed:  len(pages),
		SectionsCreated: len(sections),
		ChunksCreated:   chunkCount,
		DocumentIDCount: len(ids),
		PublicationYear: year,
		Keywords:        keywords,
	}, nil
}

// normalizePages normalizes every page with bounded concurrent fan-out.
// Output order matches input order so page numbering survives the join.
func (p *Pipeline) normalizePages(ctx context.Context, pages []string) ([]string, error) {
	normalized := make([]string, len(pages))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, page := range pages {
		g.Go(func() error {
			out, err := p.normalizer.NormalizePage(ctx, page)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			normalized[i] = out
			p.logger.Debug("ingest: page normalized", "page", i+1, "total", len(pages))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return normalized, nil
}

// summarizeSections produces one summary per section record, fanned out with
// the same bound and order preservation as normalization.
func (p *Pipeline) summarizeSections(ctx context.Context, sections []Section) ([]string, error) {
	summaries := make([]string, len(sections))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, sec := range sections {
		g.Go(func() error {
			out, err := p.summarizer.SummarizeSection(ctx, sec.Text)
			if err != nil {
				return fmt.Errorf("section %d: %w", i+1, err)
			}
			summaries[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// buildRecords attaches document-level metadata to every section and chunks
// each section's text into page-type records.
func (p *Pipeline) buildRecords(sections []Section, fileName string, year int, keywords string) []tome.Record {
	var records []tome.Record
	for _, sec := range sections {
		for _, chunk := range ChunkText(sec.Text, p.chunker) {
			records = append(records, tome.Record{
				Content: chunk,
				Meta: tome.RecordMeta{
					Source:          fileName,
					Section:         sec.Heading,
					PageNumber:      sec.PageNumber,
					PublicationYear: year,
					Keywords:        keywords,
					Type:            tome.TypePage,
				},
			})
		}
	}
	return records
}

// lockSource acquires the per-source mutex, creating it on first use.
func (p *Pipeline) lockSource(source string) func() {
	p.mu.Lock()
	l, ok := p.locks[source]
	if !ok {
		l = &sync.Mutex{}
		p.locks[source] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l.Unlock
}
