package query

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

// scriptedProvider answers by prompt substring so the judge and answer
// prompts can be scripted independently.
type scriptedProvider struct {
	replies map[string]string
	errOn   string // prompts containing this substring fail
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) Chat(_ context.Context, req tome.ChatRequest) (tome.ChatResponse, error) {
	prompt := req.Messages[len(req.Messages)-1].Content
	if s.errOn != "" && strings.Contains(prompt, s.errOn) {
		return tome.ChatResponse{}, &tome.ErrHTTP{Status: 500, Body: "stage down"}
	}
	for needle, reply := range s.replies {
		if strings.Contains(prompt, needle) {
			return tome.ChatResponse{Content: reply}, nil
		}
	}
	return tome.ChatResponse{}, nil
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

// memStore serves canned hits per record type, mirroring the two search
// passes the query pipeline makes.
type memStore struct {
	searchHits  []tome.ScoredRecord // used when no type routing configured
	summaryHits []tome.ScoredRecord
	pageHits    []tome.ScoredRecord
	searchErr   error
	pageErr     error
	lastFilters []tome.RecordFilter
}

func (m *memStore) Init(_ context.Context) error { return nil }
func (m *memStore) Close() error                 { return nil }

func (m *memStore) StoreRecords(_ context.Context, _ []tome.Record) error { return nil }

func (m *memStore) SearchRecords(_ context.Context, _ []float32, _ int, filters ...tome.RecordFilter) ([]tome.ScoredRecord, error) {
	m.lastFilters = filters
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	for _, f := range filters {
		if f.Field != "type" || f.Op != tome.OpEq {
			continue
		}
		switch f.Value {
		case tome.TypeSummary:
			if m.summaryHits != nil {
				return m.summaryHits, nil
			}
		case tome.TypePage:
			if m.pageErr != nil {
				return nil, m.pageErr
			}
			if m.pageHits != nil {
				return m.pageHits, nil
			}
		}
	}
	return m.searchHits, nil
}

var _ tome.VectorStore = (*memStore)(nil)
