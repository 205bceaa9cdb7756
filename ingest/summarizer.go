package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tome "github.com/nevindra/tome"
)

// Summarizer derives summaries and document metadata through sequential
// model calls. Every step's output is opaque text threaded into the next
// prompt; only the publication year is locally parsed (digit filter).
type Summarizer struct {
	provider tome.Provider
	logger   *slog.Logger
}

// NewSummarizer creates a Summarizer backed by the given provider.
func NewSummarizer(provider tome.Provider, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = tome.NopLogger
	}
	return &Summarizer{provider: provider, logger: logger}
}

// SummarizeSection produces a 2–3 sentence summary of one section record,
// with the year and keyword lines appended by instruction. Neither is parsed
// here; only the document-level fold extracts them.
func (s *Summarizer) SummarizeSection(ctx context.Context, content string) (string, error) {
	out, err := s.invoke(ctx, formatPrompt(pageSummaryPrompt, content))
	if err != nil {
		return "", fmt.Errorf("summarize section: %w", err)
	}
	return out, nil
}

// SummarizeDocument folds all page summaries for one source into a single
// coherent plain-text document summary retaining year and keywords.
func (s *Summarizer) SummarizeDocument(ctx context.Context, pageSummaries []string) (string, error) {
	out, err := s.invoke(ctx, formatPrompt(documentSummaryPrompt, strings.Join(pageSummaries, "\n")))
	if err != nil {
		return "", fmt.Errorf("summarize document: %w", err)
	}
	return out, nil
}

// ExtractYear asks the model for the publication year and keeps only the
// digits of its reply. No digits means 0.
func (s *Summarizer) ExtractYear(ctx context.Context, documentSummary string) (int, error) {
	out, err := s.invoke(ctx, formatPrompt(publicationYearPrompt, documentSummary))
	if err != nil {
		return 0, fmt.Errorf("extract year: %w", err)
	}

	var digits strings.Builder
	for _, r := range out {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		s.logger.Warn("summarizer: no digits in year reply, defaulting to 0")
		return 0, nil
	}
	year, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0, nil
	}
	return year, nil
}

// ExtractKeywords asks the model for a comma-separated keyword list.
func (s *Summarizer) ExtractKeywords(ctx context.Context, documentSummary string) (string, error) {
	out, err := s.invoke(ctx, formatPrompt(keywordsPrompt, documentSummary))
	if err != nil {
		return "", fmt.Errorf("extract keywords: %w", err)
	}
	return out, nil
}

func (s *Summarizer) invoke(ctx context.Context, prompt string) (string, error) {
	resp, err := s.provider.Chat(ctx, tome.ChatRequest{
		Messages: []tome.ChatMessage{tome.UserMessage(prompt)},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}
