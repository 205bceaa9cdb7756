package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tome "github.com/nevindra/tome"
)

// pipelineProvider answers each pipeline prompt kind deterministically, so
// fan-out order does not matter.
func pipelineProvider() *scriptedProvider {
	return &scriptedProvider{
		replies: map[string]string{
			"Normalize the document":       "# Section A\nnormalized body text",
			"Summarize the following page": "section summary",
			"Combine the following page":   "document summary",
			"Extract the publication year": "2021",
			"Extract 5":                    "power, grid, optimization",
		},
	}
}

func newTestPipeline(store *memStore, opts ...Option) *Pipeline {
	gw := tome.NewGateway(store, stubEmbedding{})
	return NewPipeline(pipelineProvider(), gw, opts...)
}

func TestProcess_FullRun(t *testing.T) {
	store := &memStore{}
	p := newTestPipeline(store)

	content := "<a id='x1'></a># Raw\npage one text\n" + PageBreakMarker + "\npage two text"
	result, err := p.Process(context.Background(), content, "paper.md")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if result.PagesProcessed != 2 {
		t.Errorf("PagesProcessed = %d, want 2", result.PagesProcessed)
	}
	if result.SectionsCreated != 2 {
		t.Errorf("SectionsCreated = %d, want 2 (one per normalized page)", result.SectionsCreated)
	}
	if result.PublicationYear != 2021 {
		t.Errorf("PublicationYear = %d, want 2021", result.PublicationYear)
	}
	if result.Keywords == "" {
		t.Error("Keywords should be populated")
	}

	// One atomic store call carrying chunks plus the summary record.
	if len(store.stored) != 1 {
		t.Fatalf("got %d store calls, want 1", len(store.stored))
	}
	records := store.stored[0]
	if len(records) != result.ChunksCreated+1 {
		t.Errorf("stored %d records, want %d chunks + 1 summary", len(records), result.ChunksCreated)
	}

	last := records[len(records)-1]
	if last.Meta.Type != tome.TypeSummary {
		t.Errorf("final record type = %q, want summary", last.Meta.Type)
	}
	if last.Meta.PageNumber != 0 || last.Meta.Section != "" {
		t.Error("summary record should have zero page number and empty section")
	}
	if last.Meta.PublicationYear != 2021 {
		t.Errorf("summary year = %d, want 2021", last.Meta.PublicationYear)
	}

	for _, r := range records[:len(records)-1] {
		if r.Meta.Type != tome.TypePage {
			t.Errorf("chunk record type = %q, want page", r.Meta.Type)
		}
		if r.Meta.Source != "paper.md" {
			t.Errorf("chunk source = %q, want paper.md", r.Meta.Source)
		}
	}
}

func TestProcess_SourceAlreadyExists(t *testing.T) {
	store := &memStore{searchHits: []tome.ScoredRecord{
		{Record: tome.Record{Content: "existing"}},
	}}
	p := newTestPipeline(store)

	_, err := p.Process(context.Background(), "# Doc\ntext", "paper.md")
	var exists *tome.ErrSourceExists
	if !errors.As(err, &exists) {
		t.Fatalf("expected ErrSourceExists, got %v", err)
	}
	if exists.Source != "paper.md" {
		t.Errorf("Source = %q, want paper.md", exists.Source)
	}
	if len(store.stored) != 0 {
		t.Error("nothing must be written when the source already exists")
	}
}

func TestProcess_ExistenceCheckErrorAborts(t *testing.T) {
	store := &memStore{searchErr: errors.New("index down")}
	p := newTestPipeline(store)

	_, err := p.Process(context.Background(), "# Doc\ntext", "paper.md")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var exists *tome.ErrSourceExists
	if errors.As(err, &exists) {
		t.Error("a failed existence check must not be reported as a duplicate")
	}
	if len(store.stored) != 0 {
		t.Error("nothing must be written when the existence check fails")
	}
}

func TestProcess_NormalizationFailureWritesNothing(t *testing.T) {
	store := &memStore{}
	gw := tome.NewGateway(store, stubEmbedding{})
	failing := &failOnProvider{needle: "Normalize the document"}
	p := NewPipeline(failing, gw)

	_, err := p.Process(context.Background(), "# Doc\ntext", "paper.md")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if len(store.stored) != 0 {
		t.Error("nothing must be written when a stage fails")
	}
}

func TestProcess_StripsAnchorTags(t *testing.T) {
	var sawPrompt string
	capture := &capturingProvider{
		inner:    pipelineProvider(),
		needle:   "Normalize the document",
		captured: &sawPrompt,
	}
	gw := tome.NewGateway(&memStore{}, stubEmbedding{})
	p := NewPipeline(capture, gw)

	content := "<a id='page-1'></a># Doc\ntext"
	if _, err := p.Process(context.Background(), content, "paper.md"); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if strings.Contains(sawPrompt, "<a id=") {
		t.Error("anchor tags must be stripped before normalization")
	}
}

func TestProcess_ConcurrentSameSourceOnlyOneWins(t *testing.T) {
	// visibleStore reports a hit for any source once a write has landed, so
	// the loser of the per-source lock race sees the winner's upload.
	store := &visibleStore{}
	gw := tome.NewGateway(store, stubEmbedding{})
	p := NewPipeline(pipelineProvider(), gw)

	const workers = 4
	errs := make(chan error, workers)
	for range workers {
		go func() {
			_, err := p.Process(context.Background(), "# Doc\ntext", "same.md")
			errs <- err
		}()
	}

	var okCount, dupCount int
	for range workers {
		err := <-errs
		switch {
		case err == nil:
			okCount++
		default:
			var exists *tome.ErrSourceExists
			if errors.As(err, &exists) {
				dupCount++
			} else {
				t.Errorf("unexpected error: %v", err)
			}
		}
	}
	if okCount != 1 {
		t.Errorf("got %d successful runs, want exactly 1", okCount)
	}
	if okCount+dupCount != workers {
		t.Errorf("ok=%d dup=%d, want all %d accounted for", okCount, dupCount, workers)
	}
}

// visibleStore makes every stored record immediately visible to searches.
type visibleStore struct {
	mu     sync.Mutex
	stored []tome.Record
}

func (v *visibleStore) Init(_ context.Context) error { return nil }
func (v *visibleStore) Close() error                 { return nil }

func (v *visibleStore) StoreRecords(_ context.Context, records []tome.Record) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stored = append(v.stored, records...)
	return nil
}

func (v *visibleStore) SearchRecords(_ context.Context, _ []float32, topK int, _ ...tome.RecordFilter) ([]tome.ScoredRecord, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var hits []tome.ScoredRecord
	for _, r := range v.stored {
		if len(hits) >= topK {
			break
		}
		hits = append(hits, tome.ScoredRecord{Record: r, Score: 1})
	}
	return hits, nil
}

// failOnProvider errors on prompts containing needle and answers everything
// else in the pipeline script.
type failOnProvider struct {
	needle string
}

func (f *failOnProvider) Name() string { return "failing" }

func (f *failOnProvider) Chat(_ context.Context, req tome.ChatRequest) (tome.ChatResponse, error) {
	prompt := req.Messages[len(req.Messages)-1].Content
	if strings.Contains(prompt, f.needle) {
		return tome.ChatResponse{}, &tome.ErrHTTP{Status: 500, Body: "stage down"}
	}
	return tome.ChatResponse{Content: "# Section\nbody"}, nil
}

// capturingProvider records the first prompt containing needle, delegating
// all calls to inner.
type capturingProvider struct {
	inner    tome.Provider
	needle   string
	captured *string
}

func (c *capturingProvider) Name() string { return c.inner.Name() }

func (c *capturingProvider) Chat(ctx context.Context, req tome.ChatRequest) (tome.ChatResponse, error) {
	prompt := req.Messages[len(req.Messages)-1].Content
	if strings.Contains(prompt, c.needle) && *c.captured == "" {
		*c.captured = prompt
	}
	return c.inner.Chat(ctx, req)
}
