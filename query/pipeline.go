// Package query implements the retrieval pipeline: a judge-scored
// document-level relevance filter, page-level semantic retrieval restricted
// to the surviving documents, and grounded answer synthesis.
package query

import (
	"context"
	"fmt"
	"log/slog"

	tome "github.com/nevindra/tome"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a structured logger for pipeline stages.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// Pipeline orchestrates filter → retrieve → synthesize → source extraction.
// It never returns an error past its own boundary: any stage failure degrades
// into a well-formed result whose answer describes the error, so a broken
// backing service cannot break a caller's integration.
type Pipeline struct {
	filter      *RelevanceFilter
	retriever   *PageRetriever
	synthesizer *Synthesizer
	logger      *slog.Logger
}

// NewPipeline creates a query Pipeline over the given provider and gateway.
func NewPipeline(provider tome.Provider, gateway *tome.Gateway, opts ...Option) *Pipeline {
	p := &Pipeline{
		logger: tome.NopLogger,
	}
	for _, o := range opts {
		o(p)
	}
	p.filter = NewRelevanceFilter(provider, gateway, p.logger)
	p.retriever = NewPageRetriever(gateway)
	p.synthesizer = NewSynthesizer(provider)
	return p
}

// Query answers a natural-language question against the indexed corpus.
func (p *Pipeline) Query(ctx context.Context, userQuery string) tome.QueryResult {
	p.logger.Info("query: starting", "query_len", len(userQuery))

	filteredDocs, err := p.filter.Filter(ctx, userQuery)
	if err != nil {
		return degraded(err)
	}
	p.logger.Debug("query: documents filtered", "count", len(filteredDocs))

	hits, err := p.retriever.Retrieve(ctx, userQuery, filteredDocs)
	if err != nil {
		return degraded(err)
	}

	answer, err := p.synthesizer.Answer(ctx, userQuery, hits)
	if err != nil {
		return degraded(err)
	}

	result := tome.QueryResult{
		Answer:            answer,
		Sources:           extractSources(hits),
		FilteredDocuments: filteredDocs,
	}
	if result.Sources == nil {
		result.Sources = []tome.Source{}
	}
	if result.FilteredDocuments == nil {
		result.FilteredDocuments = []string{}
	}
	p.logger.Info("query: completed", "sources", len(result.Sources))
	return result
}

// extractSources deduplicates hits by (source, page_number), keeping the
// first-seen record for each pair.
func extractSources(hits []tome.ScoredRecord) []tome.Source {
	seen := make(map[[2]any]bool)
	var sources []tome.Source

	for _, h := range hits {
		key := [2]any{h.Meta.Source, h.Meta.PageNumber}
		if seen[key] {
			continue
		}
		seen[key] = true
		sources = append(sources, tome.Source{
			Source:     h.Meta.Source,
			Section:    h.Meta.Section,
			PageNumber: h.Meta.PageNumber,
		})
	}
	return sources
}

// degraded converts a stage failure into a well-formed error-describing result.
func degraded(err error) tome.QueryResult {
	return tome.QueryResult{
		Answer:            fmt.Sprintf("An error occurred: %v", err),
		Sources:           []tome.Source{},
		FilteredDocuments: []string{},
	}
}
