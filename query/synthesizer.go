package query

import (
	"context"
	"fmt"
	"strings"

	tome "github.com/nevindra/tome"
)

// Synthesizer assembles retrieved pages into a context block and asks the
// generation model to answer strictly from it. There is no local groundedness
// check on the answer; the model's instruction-following is trusted.
type Synthesizer struct {
	provider tome.Provider
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(provider tome.Provider) *Synthesizer {
	return &Synthesizer{provider: provider}
}

// Answer generates an answer to the query from the retrieved pages. Each page
// is prefixed with its source and page number for traceability.
func (s *Synthesizer) Answer(ctx context.Context, query string, hits []tome.ScoredRecord) (string, error) {
	blocks := make([]string, len(hits))
	for i, h := range hits {
		blocks[i] = fmt.Sprintf("[Source: %s | Page %d]\n%s", h.Meta.Source, h.Meta.PageNumber, h.Content)
	}
	contextBlock := strings.Join(blocks, "\n\n")

	resp, err := s.provider.Chat(ctx, tome.ChatRequest{
		Messages: []tome.ChatMessage{
			tome.UserMessage(formatAnswerPrompt(contextBlock, query)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return resp.Content, nil
}
