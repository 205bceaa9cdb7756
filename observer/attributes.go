package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for LLM and pipeline observability spans and metrics.
var (
	AttrLLMModel    = attribute.Key("llm.model")
	AttrLLMProvider = attribute.Key("llm.provider")
	AttrLLMMethod   = attribute.Key("llm.method")

	AttrTokensInput  = attribute.Key("llm.tokens.input")
	AttrTokensOutput = attribute.Key("llm.tokens.output")
	AttrCostUSD      = attribute.Key("llm.cost_usd")

	AttrEmbedTextCount  = attribute.Key("llm.embed.text_count")
	AttrEmbedDimensions = attribute.Key("llm.embed.dimensions")

	AttrIngestSource = attribute.Key("ingest.source")
	AttrIngestPages  = attribute.Key("ingest.pages")
	AttrIngestChunks = attribute.Key("ingest.chunks")
	AttrIngestStatus = attribute.Key("ingest.status")

	AttrQuerySources = attribute.Key("query.sources")
	AttrQueryStatus  = attribute.Key("query.status")
)
