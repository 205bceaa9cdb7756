package query

import (
	"context"
	"strings"
	"testing"

	tome "github.com/nevindra/tome"
)

func pageHit(source, section string, page int, content string) tome.ScoredRecord {
	return tome.ScoredRecord{
		Record: tome.Record{
			Content: content,
			Meta:    tome.RecordMeta{Source: source, Section: section, PageNumber: page, Type: tome.TypePage},
		},
		Score: 0.9,
	}
}

func summaryHit(source string) tome.ScoredRecord {
	return tome.ScoredRecord{
		Record: tome.Record{
			Content: "summary of " + source,
			Meta:    tome.RecordMeta{Source: source, Type: tome.TypeSummary},
		},
		Score: 0.9,
	}
}

func TestQuery_EndToEnd(t *testing.T) {
	store := &memStore{
		summaryHits: []tome.ScoredRecord{summaryHit("a.md"), summaryHit("b.md")},
		pageHits: []tome.ScoredRecord{
			pageHit("a.md", "Intro", 1, "relevant page text"),
			pageHit("a.md", "Methods", 2, "more text"),
		},
	}
	provider := &scriptedProvider{replies: map[string]string{
		"precision-oriented": `[{"filename": "a.md", "score": 90}, {"filename": "b.md", "score": 20}]`,
		"research assistant": "The answer, per the sources.",
	}}
	p := NewPipeline(provider, tome.NewGateway(store, stubEmbedding{}))

	result := p.Query(context.Background(), "what does the paper say?")

	if result.Answer != "The answer, per the sources." {
		t.Errorf("answer = %q", result.Answer)
	}
	if len(result.FilteredDocuments) != 1 || result.FilteredDocuments[0] != "a.md" {
		t.Errorf("filtered documents = %v, want [a.md]", result.FilteredDocuments)
	}
	if len(result.Sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(result.Sources))
	}
	if result.Sources[0].Source != "a.md" || result.Sources[0].PageNumber != 1 {
		t.Errorf("first source = %+v", result.Sources[0])
	}
}

func TestQuery_DeduplicatesSourcesByPage(t *testing.T) {
	store := &memStore{
		summaryHits: []tome.ScoredRecord{summaryHit("a.md")},
		pageHits: []tome.ScoredRecord{
			pageHit("a.md", "Intro", 1, "chunk one"),
			pageHit("a.md", "Intro continued", 1, "chunk two, same page"),
			pageHit("a.md", "Methods", 2, "chunk three"),
		},
	}
	provider := &scriptedProvider{replies: map[string]string{
		"precision-oriented": `[{"filename": "a.md", "score": 90}]`,
		"research assistant": "answer",
	}}
	p := NewPipeline(provider, tome.NewGateway(store, stubEmbedding{}))

	result := p.Query(context.Background(), "question")

	if len(result.Sources) != 2 {
		t.Fatalf("got %d sources, want 2 (two hits share a page)", len(result.Sources))
	}
	// First-seen record wins for the duplicated page.
	if result.Sources[0].Section != "Intro" {
		t.Errorf("first source section = %q, want the first-seen record", result.Sources[0].Section)
	}
}

func TestQuery_EmptyCorpus(t *testing.T) {
	store := &memStore{
		summaryHits: []tome.ScoredRecord{},
		pageHits:    []tome.ScoredRecord{},
	}
	provider := &scriptedProvider{replies: map[string]string{
		"precision-oriented": `[]`,
		"research assistant": "I could not find relevant documents.",
	}}
	p := NewPipeline(provider, tome.NewGateway(store, stubEmbedding{}))

	result := p.Query(context.Background(), "question")

	if result.Sources == nil || result.FilteredDocuments == nil {
		t.Error("empty results must be empty slices, never nil")
	}
	if len(result.Sources) != 0 || len(result.FilteredDocuments) != 0 {
		t.Errorf("got sources=%v filtered=%v, want both empty", result.Sources, result.FilteredDocuments)
	}
	if result.Answer == "" {
		t.Error("answer must still be generated for an empty corpus")
	}
}

func TestQuery_DegradesOnFilterFailure(t *testing.T) {
	store := &memStore{
		summaryHits: []tome.ScoredRecord{summaryHit("a.md")},
	}
	provider := &scriptedProvider{errOn: "precision-oriented"}
	p := NewPipeline(provider, tome.NewGateway(store, stubEmbedding{}))

	result := p.Query(context.Background(), "question")

	if !strings.HasPrefix(result.Answer, "An error occurred:") {
		t.Errorf("answer = %q, want degraded error answer", result.Answer)
	}
	if result.Sources == nil || len(result.Sources) != 0 {
		t.Errorf("sources = %v, want empty slice", result.Sources)
	}
	if result.FilteredDocuments == nil || len(result.FilteredDocuments) != 0 {
		t.Errorf("filtered documents = %v, want empty slice", result.FilteredDocuments)
	}
}

func TestQuery_DegradesOnRetrievalFailure(t *testing.T) {
	store := &memStore{
		summaryHits: []tome.ScoredRecord{summaryHit("a.md")},
		pageErr:     &tome.ErrHTTP{Status: 503, Body: "index down"},
	}
	provider := &scriptedProvider{replies: map[string]string{
		"precision-oriented": `[{"filename": "a.md", "score": 90}]`,
	}}
	p := NewPipeline(provider, tome.NewGateway(store, stubEmbedding{}))

	result := p.Query(context.Background(), "question")

	if !strings.HasPrefix(result.Answer, "An error occurred:") {
		t.Errorf("answer = %q, want degraded error answer", result.Answer)
	}
}

func TestSynthesizer_ContextBlockFormat(t *testing.T) {
	var sawPrompt string
	provider := &promptCapture{reply: "answer", captured: &sawPrompt}
	s := NewSynthesizer(provider)

	hits := []tome.ScoredRecord{
		pageHit("a.md", "Intro", 3, "the page content"),
	}
	if _, err := s.Answer(context.Background(), "question", hits); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !strings.Contains(sawPrompt, "[Source: a.md | Page 3]\nthe page content") {
		t.Errorf("context block missing source tag, prompt:\n%s", sawPrompt)
	}
}

// promptCapture records the last prompt it saw.
type promptCapture struct {
	reply    string
	captured *string
}

func (p *promptCapture) Name() string { return "capture" }

func (p *promptCapture) Chat(_ context.Context, req tome.ChatRequest) (tome.ChatResponse, error) {
	*p.captured = req.Messages[len(req.Messages)-1].Content
	return tome.ChatResponse{Content: p.reply}, nil
}
