package query

import (
	"context"
	"fmt"

	tome "github.com/nevindra/tome"
)

// pageTopK is the fine-retrieval fan-out per query.
const pageTopK = 5

// PageRetriever runs semantic search restricted to pages belonging to the
// relevance filter's selected documents.
type PageRetriever struct {
	gateway *tome.Gateway
}

// NewPageRetriever creates a PageRetriever.
func NewPageRetriever(gateway *tome.Gateway) *PageRetriever {
	return &PageRetriever{gateway: gateway}
}

// Retrieve returns the top page records for the query among filteredDocs.
// An empty filteredDocs list legitimately matches nothing: zero hits, no error.
func (r *PageRetriever) Retrieve(ctx context.Context, query string, filteredDocs []string) ([]tome.ScoredRecord, error) {
	if len(filteredDocs) == 0 {
		return nil, nil
	}

	hits, err := r.gateway.Search(ctx, query, pageTopK,
		tome.FilterEq("type", tome.TypePage),
		tome.FilterIn("source", filteredDocs))
	if err != nil {
		return nil, fmt.Errorf("retrieve pages: %w", err)
	}
	return hits, nil
}
