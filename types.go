package tome

// Record type tags. Page records carry embedded chunk text; summary records
// carry the folded document-level summary used by the relevance filter.
const (
	TypePage    = "page"
	TypeSummary = "summary"
)

// --- Domain types (vector store records) ---

// RecordMeta is the metadata attached to every stored record. Source and Type
// are the filterable fields; the rest travel with the record for citation.
type RecordMeta struct {
	Source          string `json:"source"`
	Section         string `json:"section"`
	PageNumber      int    `json:"page_number"`
	PublicationYear int    `json:"publication_year"`
	Keywords        string `json:"keywords"`
	Type            string `json:"type"`
}

// Record is one unit of stored content: a page chunk or a document summary.
type Record struct {
	ID        string     `json:"id"`
	Content   string     `json:"content"`
	Meta      RecordMeta `json:"meta"`
	Embedding []float32  `json:"-"`
}

// ScoredRecord is a Record with its similarity score against a query.
type ScoredRecord struct {
	Record
	Score float32 `json:"score"`
}

// Source is one citation in a query result.
type Source struct {
	Source     string `json:"source"`
	Section    string `json:"section"`
	PageNumber int    `json:"page_number"`
}

// QueryResult is the complete outcome of one query pipeline run.
type QueryResult struct {
	Answer            string   `json:"answer"`
	Sources           []Source `json:"sources"`
	FilteredDocuments []string `json:"filtered_documents"`
}

// --- Record filters ---

// FilterOp is a predicate operator on a record metadata field.
type FilterOp int

const (
	// OpEq matches records whose field equals Value.
	OpEq FilterOp = iota
	// OpIn matches records whose field is a member of Value ([]string).
	// An empty list matches nothing.
	OpIn
)

// RecordFilter restricts a search to records matching a metadata predicate.
// Supported fields are "source" and "type"; equality and set membership are
// the only operators the pipelines need.
type RecordFilter struct {
	Field string
	Op    FilterOp
	Value any
}

// FilterEq builds an equality filter.
func FilterEq(field, value string) RecordFilter {
	return RecordFilter{Field: field, Op: OpEq, Value: value}
}

// FilterIn builds a set-membership filter.
func FilterIn(field string, values []string) RecordFilter {
	return RecordFilter{Field: field, Op: OpIn, Value: values}
}

// --- LLM protocol types ---

type ChatMessage struct {
	Role    string `json:"role"` // "system" or "user"
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

type ChatResponse struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// --- ChatMessage constructors ---

func UserMessage(text string) ChatMessage {
	return ChatMessage{Role: "user", Content: text}
}

func SystemMessage(text string) ChatMessage {
	return ChatMessage{Role: "system", Content: text}
}
