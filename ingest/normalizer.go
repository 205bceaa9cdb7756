package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	tome "github.com/nevindra/tome"
)

// Normalizer rewrites one raw page of mixed-format text into a canonical
// heading-tagged fragment. The backing model is instructed to preserve every
// character of body text verbatim; its output is authoritative. The one local
// guard is the heading-boundary check: if the output does not begin with a
// level 1–3 heading, the call is retried once, and the second output is
// accepted either way.
type Normalizer struct {
	provider tome.Provider
	logger   *slog.Logger
}

// NewNormalizer creates a Normalizer backed by the given provider.
func NewNormalizer(provider tome.Provider, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = tome.NopLogger
	}
	return &Normalizer{provider: provider, logger: logger}
}

// NormalizePage normalizes one raw page. A failed generation call fails the
// page; there is no silent fallback — the orchestrator aborts the whole file.
func (n *Normalizer) NormalizePage(ctx context.Context, page string) (string, error) {
	out, err := n.invoke(ctx, page)
	if err != nil {
		return "", err
	}

	if !startsWithHeading(out) {
		n.logger.Warn("normalizer: output does not start with a heading, retrying once")
		retried, err := n.invoke(ctx, page)
		if err != nil {
			return "", err
		}
		out = retried
	}

	return out, nil
}

func (n *Normalizer) invoke(ctx context.Context, page string) (string, error) {
	resp, err := n.provider.Chat(ctx, tome.ChatRequest{
		Messages: []tome.ChatMessage{
			tome.UserMessage(formatPrompt(normalizationPrompt, page)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("normalize page: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// startsWithHeading reports whether the first block of the markdown text is
// a heading of level 1–3.
func startsWithHeading(md string) bool {
	source := []byte(md)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))
	first := doc.FirstChild()
	if first == nil {
		return false
	}
	h, ok := first.(*ast.Heading)
	return ok && h.Level <= 3
}
