package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	tome "github.com/nevindra/tome"
)

// Embedding implements tome.EmbeddingProvider for any OpenAI-compatible
// embeddings API. The /embeddings path is appended to the configured base URL.
type Embedding struct {
	apiKey  string
	model   string
	baseURL string
	dims    int
	client  *http.Client
	name    string
}

// EmbeddingOption configures an Embedding instance.
type EmbeddingOption func(*Embedding)

// WithEmbeddingName sets the provider name returned by Name() (default "openai").
func WithEmbeddingName(name string) EmbeddingOption {
	return func(e *Embedding) { e.name = name }
}

// WithEmbeddingHTTPClient sets a custom HTTP client.
func WithEmbeddingHTTPClient(c *http.Client) EmbeddingOption {
	return func(e *Embedding) { e.client = c }
}

// NewEmbedding creates an OpenAI-compatible embedding provider.
// dims must match the model's output dimensionality (e.g. 1536 for
// text-embedding-3-small); vector stores use it to size their columns.
func NewEmbedding(apiKey, model, baseURL string, dims int, opts ...EmbeddingOption) *Embedding {
	e := &Embedding{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		dims:    dims,
		client:  &http.Client{},
		name:    "openai",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the provider name.
func (e *Embedding) Name() string { return e.name }

// Dimensions returns the configured embedding dimensionality.
func (e *Embedding) Dimensions() int { return e.dims }

// Embed embeds all texts in a single request and returns the vectors
// in input order.
func (e *Embedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body := EmbeddingRequest{Model: e.model, Input: texts}
	p := &Provider{apiKey: e.apiKey, baseURL: e.baseURL, client: e.client, name: e.name}

	resp, err := p.sendHTTP(ctx, "/embeddings", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, p.httpErr(resp)
	}

	var parsed EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &tome.ErrLLM{Provider: e.name, Message: fmt.Sprintf("decode embed response: %v", err)}
	}

	if len(parsed.Data) != len(texts) {
		return nil, &tome.ErrLLM{
			Provider: e.name,
			Message:  fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(parsed.Data)),
		}
	}

	// The API may return data out of order; the index field is authoritative.
	sort.Slice(parsed.Data, func(i, j int) bool { return parsed.Data[i].Index < parsed.Data[j].Index })

	embeddings := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		embeddings[i] = d.Embedding
	}
	return embeddings, nil
}

// Compile-time interface check.
var _ tome.EmbeddingProvider = (*Embedding)(nil)
