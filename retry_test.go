package tome

import (
	"context"
	"testing"
	"time"
)

// --- Chat tests ---

func TestWithRetry_Chat_SucceedsFirstAttempt(t *testing.T) {
	stub := &stubProvider{results: []stubResult{
		{resp: ChatResponse{Content: "hello"}},
	}}
	p := WithRetry(stub, RetryBaseDelay(0))

	resp, err := p.Chat(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello" {
		t.Errorf("got %q, want %q", resp.Content, "hello")
	}
	if stub.calls != 1 {
		t.Errorf("got %d calls, want 1", stub.calls)
	}
}

func TestWithRetry_Chat_RetriesOn503(t *testing.T) {
	stub := &stubProvider{results: []stubResult{
		{err: &ErrHTTP{Status: 503, Body: "unavailable"}},
		{resp: ChatResponse{Content: "hello"}},
	}}
	p := WithRetry(stub, RetryBaseDelay(0))

	resp, err := p.Chat(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello" {
		t.Errorf("got %q, want %q", resp.Content, "hello")
	}
	if stub.calls != 2 {
		t.Errorf("got %d calls, want 2", stub.calls)
	}
}

func TestWithRetry_Chat_RetriesOn429(t *testing.T) {
	stub := &stubProvider{results: []stubResult{
		{err: &ErrHTTP{Status: 429, Body: "rate limited"}},
		{resp: ChatResponse{Content: "ok"}},
	}}
	p := WithRetry(stub, RetryBaseDelay(0))

	_, err := p.Chat(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.calls != 2 {
		t.Errorf("got %d calls, want 2", stub.calls)
	}
}

func TestWithRetry_Chat_DoesNotRetryNonTransient(t *testing.T) {
	stub := &stubProvider{results: []stubResult{
		{err: &ErrHTTP{Status: 500, Body: "internal error"}},
	}}
	p := WithRetry(stub, RetryBaseDelay(0))

	_, err := p.Chat(context.Background(), ChatRequest{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if stub.calls != 1 {
		t.Errorf("got %d calls, want 1 (no retry for 500)", stub.calls)
	}
}

func TestWithRetry_Chat_ExhaustsMaxAttempts(t *testing.T) {
	transient := stubResult{err: &ErrHTTP{Status: 503, Body: "unavailable"}}
	stub := &stubProvider{results: []stubResult{transient, transient, transient, transient}}
	p := WithRetry(stub, RetryBaseDelay(0), RetryMaxAttempts(3))

	_, err := p.Chat(context.Background(), ChatRequest{})
	if err == nil {
		t.Fatal("expected error after max attempts, got nil")
	}
	if stub.calls != 3 {
		t.Errorf("got %d calls, want 3", stub.calls)
	}
}

func TestWithRetry_Chat_RespectsRetryAfter(t *testing.T) {
	stub := &stubProvider{results: []stubResult{
		{err: &ErrHTTP{Status: 429, Body: "rate limited", RetryAfter: 100 * time.Millisecond}},
		{resp: ChatResponse{Content: "ok"}},
	}}
	p := WithRetry(stub, RetryBaseDelay(0))

	start := time.Now()
	_, err := p.Chat(context.Background(), ChatRequest{})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed < 100*time.Millisecond {
		t.Errorf("retry happened after %v, want at least 100ms (Retry-After)", elapsed)
	}
}

func TestWithRetry_Chat_TimeoutAborts(t *testing.T) {
	transient := stubResult{err: &ErrHTTP{Status: 503}}
	stub := &stubProvider{results: []stubResult{transient, transient, transient}}
	p := WithRetry(stub, RetryBaseDelay(time.Second), RetryTimeout(50*time.Millisecond))

	_, err := p.Chat(context.Background(), ChatRequest{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if stub.calls >= 3 {
		t.Errorf("got %d calls, want fewer than 3 (timeout should abort)", stub.calls)
	}
}

func TestWithRetry_Name(t *testing.T) {
	p := WithRetry(&stubProvider{})
	if p.Name() != "stub" {
		t.Errorf("Name() = %q, want %q", p.Name(), "stub")
	}
}

// --- Embedding retry tests ---

func TestWithEmbeddingRetry_RetriesOn429(t *testing.T) {
	stub := &stubEmbedding{errs: []error{&ErrHTTP{Status: 429}}}
	p := WithEmbeddingRetry(stub, RetryBaseDelay(0))

	vecs, err := p.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 2 {
		t.Errorf("got %d vectors, want 2", len(vecs))
	}
	if stub.calls != 2 {
		t.Errorf("got %d calls, want 2", stub.calls)
	}
}

func TestWithEmbeddingRetry_DoesNotRetryNonTransient(t *testing.T) {
	stub := &stubEmbedding{errs: []error{&ErrHTTP{Status: 400, Body: "bad request"}}}
	p := WithEmbeddingRetry(stub, RetryBaseDelay(0))

	_, err := p.Embed(context.Background(), []string{"a"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if stub.calls != 1 {
		t.Errorf("got %d calls, want 1", stub.calls)
	}
}

func TestWithEmbeddingRetry_Dimensions(t *testing.T) {
	p := WithEmbeddingRetry(&stubEmbedding{dims: 1536})
	if p.Dimensions() != 1536 {
		t.Errorf("Dimensions() = %d, want 1536", p.Dimensions())
	}
}
