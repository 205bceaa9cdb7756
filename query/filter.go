package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	tome "github.com/nevindra/tome"
)

const (
	// summaryCandidateLimit bounds the coarse filter pass. Each source has at
	// most one summary record, so this caps the corpus at 1000 sources per pass.
	summaryCandidateLimit = 1000
	// scoreFloor drops candidates the judge rated below this.
	scoreFloor = 50
	// maxFilteredDocs caps downstream page-retrieval fan-out.
	maxFilteredDocs = 3
)

// RelevanceFilter is the document-level pre-filter: it retrieves every
// summary record, asks a scoring judge to rank them against the query, and
// returns the top eligible source names.
type RelevanceFilter struct {
	provider tome.Provider
	gateway  *tome.Gateway
	logger   *slog.Logger
}

// NewRelevanceFilter creates a RelevanceFilter.
func NewRelevanceFilter(provider tome.Provider, gateway *tome.Gateway, logger *slog.Logger) *RelevanceFilter {
	if logger == nil {
		logger = tome.NopLogger
	}
	return &RelevanceFilter{provider: provider, gateway: gateway, logger: logger}
}

// judgeEntry uses pointer fields so a missing key reads as malformed output
// rather than a zero score.
type judgeEntry struct {
	Filename *string  `json:"filename"`
	Score    *float64 `json:"score"`
}

// Filter returns the source names of the documents most relevant to the
// query: judge-scored, floor 50, at most 3, ties kept in the judge's
// original relative order. An empty result is valid — nothing was relevant.
// If the judge's output cannot be parsed, the first 3 retrieved candidates
// are returned unscored.
func (f *RelevanceFilter) Filter(ctx context.Context, query string) ([]string, error) {
	candidates, err := f.gateway.Search(ctx, query, summaryCandidateLimit,
		tome.FilterEq("type", tome.TypeSummary))
	if err != nil {
		return nil, fmt.Errorf("retrieve summaries: %w", err)
	}

	var summaries strings.Builder
	for _, c := range candidates {
		fmt.Fprintf(&summaries, "Filename: %s\nSummary: %s\n---\n", c.Meta.Source, c.Content)
	}

	resp, err := f.provider.Chat(ctx, tome.ChatRequest{
		Messages: []tome.ChatMessage{
			tome.UserMessage(formatScorePrompt(query, summaries.String())),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("score summaries: %w", err)
	}

	scored, ok := parseJudgeOutput(resp.Content)
	if !ok {
		f.logger.Warn("relevance filter: unparsable judge output, falling back to retrieval order")
		return fallbackSelection(candidates), nil
	}

	// Stable sort keeps the judge's relative order for equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return *scored[i].Score > *scored[j].Score
	})

	var filtered []string
	for _, e := range scored {
		if *e.Score < scoreFloor {
			continue
		}
		filtered = append(filtered, *e.Filename)
		if len(filtered) == maxFilteredDocs {
			break
		}
	}
	return filtered, nil
}

// parseJudgeOutput parses the judge's strict JSON array, tolerating markdown
// code fences around it. Any malformed entry poisons the whole parse.
func parseJudgeOutput(content string) ([]judgeEntry, bool) {
	clean := strings.ReplaceAll(content, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	var entries []judgeEntry
	if err := json.Unmarshal([]byte(clean), &entries); err != nil {
		return nil, false
	}
	for _, e := range entries {
		if e.Filename == nil || e.Score == nil {
			return nil, false
		}
	}
	return entries, true
}

// fallbackSelection returns the first 3 candidates in retrieval order.
func fallbackSelection(candidates []tome.ScoredRecord) []string {
	var docs []string
	for _, c := range candidates {
		docs = append(docs, c.Meta.Source)
		if len(docs) == maxFilteredDocs {
			break
		}
	}
	return docs
}
