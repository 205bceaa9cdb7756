package tome

import (
	"context"
)

// stubProvider is a test Provider that returns pre-configured results in order.
type stubProvider struct {
	calls   int
	results []stubResult
}

type stubResult struct {
	resp ChatResponse
	err  error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) next() stubResult {
	i := s.calls
	s.calls++
	if i < len(s.results) {
		return s.results[i]
	}
	return stubResult{}
}

func (s *stubProvider) Chat(_ context.Context, _ ChatRequest) (ChatResponse, error) {
	r := s.next()
	return r.resp, r.err
}

var _ Provider = (*stubProvider)(nil)

// stubEmbedding returns a fixed-dimension vector for every input text and
// records each batch it receives. Set errs to fail calls in order.
type stubEmbedding struct {
	dims    int
	calls   int
	batches [][]string
	errs    []error
}

func (s *stubEmbedding) Name() string { return "stub-embed" }

func (s *stubEmbedding) Dimensions() int {
	if s.dims == 0 {
		return 4
	}
	return s.dims
}

func (s *stubEmbedding) Embed(_ context.Context, texts []string) ([][]float32, error) {
	i := s.calls
	s.calls++
	s.batches = append(s.batches, texts)
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	out := make([][]float32, len(texts))
	for j := range texts {
		vec := make([]float32, s.Dimensions())
		vec[0] = 1
		out[j] = vec
	}
	return out, nil
}

var _ EmbeddingProvider = (*stubEmbedding)(nil)

// memStore is an in-memory VectorStore that records stored batches and
// returns canned search results.
type memStore struct {
	stored      [][]Record
	searchHits  []ScoredRecord
	searchErr   error
	storeErr    error
	lastTopK    int
	lastFilters []RecordFilter
}

func (m *memStore) Init(_ context.Context) error { return nil }
func (m *memStore) Close() error                 { return nil }

func (m *memStore) StoreRecords(_ context.Context, records []Record) error {
	if m.storeErr != nil {
		return m.storeErr
	}
	m.stored = append(m.stored, records)
	return nil
}

func (m *memStore) SearchRecords(_ context.Context, _ []float32, topK int, filters ...RecordFilter) ([]ScoredRecord, error) {
	m.lastTopK = topK
	m.lastFilters = filters
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchHits, nil
}

var _ VectorStore = (*memStore)(nil)
