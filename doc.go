// Package tome is a document question-answering engine built on a two-stage
// retrieval pipeline: a judge-scored document-level relevance filter composed
// with page-level semantic retrieval and grounded answer synthesis.
//
// Documents enter through the ingestion pipeline, which normalizes each page
// into a canonical heading structure, splits it into sections, derives page
// and document summaries plus publication year and keyword metadata, chunks
// section text for embedding, and uploads everything as one batch.
//
// # Quick Start
//
//	llm := tome.WithRetry(openaicompat.NewProvider(apiKey, model, baseURL))
//	emb := tome.WithEmbeddingRetry(openaicompat.NewEmbedding(apiKey, embedModel, baseURL, dims))
//	store := sqlite.New("tome.db")
//	gateway := tome.NewGateway(store, emb)
//
//	ingestor := ingest.NewPipeline(llm, gateway)
//	result, err := ingestor.Process(ctx, fileContent, "paper.md")
//
//	qp := query.NewPipeline(llm, gateway)
//	answer := qp.Query(ctx, "What network was the MISOCP model tested on?")
//
// # Core Interfaces
//
// The root package defines the contracts all components implement:
//
//   - [Provider] — LLM chat backend
//   - [EmbeddingProvider] — text-to-vector embedding
//   - [VectorStore] — record persistence with filtered vector search
//   - [Gateway] — the single point of contact both pipelines use
//
// # Included Implementations
//
// Providers: provider/openaicompat (Mistral, OpenAI, Ollama, and any
// OpenAI-compatible API).
// Storage: store/sqlite (local, zero CGO), store/postgres (pgvector).
//
// See cmd/server for the HTTP reference application.
package tome
