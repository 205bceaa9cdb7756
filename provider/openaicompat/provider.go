package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	tome "github.com/nevindra/tome"
)

// Provider implements tome.Provider for any OpenAI-compatible chat API.
type Provider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	name    string
	opts    []Option
}

// NewProvider creates an OpenAI-compatible chat provider.
//
// baseURL is the API base (e.g. "https://api.openai.com/v1",
// "https://api.groq.com/openai/v1", "http://localhost:11434/v1").
// The /chat/completions path is appended automatically.
//
// Provider-level options (WithOptions(WithTemperature(...)), etc.) are
// applied to every request.
func NewProvider(apiKey, model, baseURL string, opts ...ProviderOption) *Provider {
	p := &Provider{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{},
		name:    "openai",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider name (default "openai", configurable via WithName).
func (p *Provider) Name() string { return p.name }

// Chat sends a chat request and returns the complete response.
func (p *Provider) Chat(ctx context.Context, req tome.ChatRequest) (tome.ChatResponse, error) {
	body := ChatRequest{
		Model:    p.model,
		Messages: make([]Message, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, Message{Role: m.Role, Content: m.Content})
	}
	for _, opt := range p.opts {
		opt(&body)
	}

	resp, err := p.sendHTTP(ctx, "/chat/completions", body)
	if err != nil {
		return tome.ChatResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return tome.ChatResponse{}, p.httpErr(resp)
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return tome.ChatResponse{}, &tome.ErrLLM{Provider: p.name, Message: fmt.Sprintf("decode response: %v", err)}
	}

	return parseResponse(chatResp), nil
}

// parseResponse converts an OpenAI-format ChatResponse to a tome ChatResponse.
// It extracts content and usage from choices[0].
func parseResponse(resp ChatResponse) tome.ChatResponse {
	var out tome.ChatResponse

	if len(resp.Choices) > 0 && resp.Choices[0].Message != nil {
		out.Content = resp.Choices[0].Message.Content
	}
	if resp.Usage != nil {
		out.Usage = tome.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}
	}
	return out
}

// sendHTTP marshals the request body and sends it to baseURL+path.
func (p *Provider) sendHTTP(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &tome.ErrLLM{Provider: p.name, Message: fmt.Sprintf("marshal request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, &tome.ErrLLM{Provider: p.name, Message: fmt.Sprintf("create request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	return p.client.Do(httpReq)
}

// httpErr reads the response body and returns an ErrHTTP for retry middleware.
// Parses the Retry-After header when present (429/503 responses).
func (p *Provider) httpErr(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return &tome.ErrHTTP{
		Status:     resp.StatusCode,
		Body:       string(body),
		RetryAfter: tome.ParseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// Compile-time interface check.
var _ tome.Provider = (*Provider)(nil)
