// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - CompletionService: Prompt in, text out (OpenAI, Gemini, Anthropic, Ollama)
//   - EmbeddingService: Generates dense vectors for chunks and questions
//   - VectorStore: The embedding index, partitioned by collection
//   - LexicalRanker: Term-frequency ranking over a candidate chunk set
//   - CatalogStore: Persisted collection and document catalog
//   - PageExtractor: Native per-page PDF text
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - VisionOCR / PageRenderer: Without them scanned pages keep their native text.
//   - Reranker: Without it the fused ensemble order is final.
//   - PromptStore: Without it the built-in prompt templates are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
