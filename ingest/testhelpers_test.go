package ingest

import (
	"context"
	"strings"

	tome "github.com/nevindra/tome"
)

// stubProvider returns pre-configured results in call order.
type stubProvider struct {
	calls   int
	results []stubResult
}

type stubResult struct {
	resp tome.ChatResponse
	err  error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Chat(_ context.Context, _ tome.ChatRequest) (tome.ChatResponse, error) {
	i := s.calls
	s.calls++
	if i < len(s.results) {
		return s.results[i].resp, s.results[i].err
	}
	return tome.ChatResponse{}, nil
}

var _ tome.Provider = (*stubProvider)(nil)

// scriptedProvider answers by matching a substring of the prompt, so
// concurrent callers get deterministic replies regardless of order.
type scriptedProvider struct {
	replies  map[string]string // prompt substring -> reply
	fallback string
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) Chat(_ context.Context, req tome.ChatRequest) (tome.ChatResponse, error) {
	prompt := req.Messages[len(req.Messages)-1].Content
	for needle, reply := range s.replies {
		if strings.Contains(prompt, needle) {
			return tome.ChatResponse{Content: reply}, nil
		}
	}
	return tome.ChatResponse{Content: s.fallback}, nil
}

var _ tome.Provider = (*scriptedProvider)(nil)

// stubEmbedding returns unit vectors for every text.
type stubEmbedding struct{}

func (stubEmbedding) Name() string    { return "stub-embed" }
func (stubEmbedding) Dimensions() int { return 4 }

func (stubEmbedding) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0, 0}
	}
	return out, nil
}

var _ tome.EmbeddingProvider = (stubEmbedding{})

// memStore records stored batches and serves canned search hits.
type memStore struct {
	stored     [][]tome.Record
	searchHits []tome.ScoredRecord
	searchErr  error
}

func (m *memStore) Init(_ context.Context) error { return nil }
func (m *memStore) Close() error                 { return nil }

func (m *memStore) StoreRecords(_ context.Context, records []tome.Record) error {
	m.stored = append(m.stored, records)
	return nil
}

func (m *memStore) SearchRecords(_ context.Context, _ []float32, _ int, _ ...tome.RecordFilter) ([]tome.ScoredRecord, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchHits, nil
}

var _ tome.VectorStore = (*memStore)(nil)
