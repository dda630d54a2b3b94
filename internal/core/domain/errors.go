package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrLLMUnavailable indicates the completion service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Ingestion Errors.

	// ErrExtraction indicates a file could not be read or parsed.
	// The file is skipped and the batch continues.
	ErrExtraction = errors.New("extraction failed")

	// ErrOCR indicates the vision OCR service exhausted its retries.
	// The page falls back to the best text available.
	ErrOCR = errors.New("ocr failed")

	// ErrEmptyDocument indicates a file produced zero chunks.
	ErrEmptyDocument = errors.New("document produced no chunks")

	// ErrCatalogLoad indicates the persisted catalog is unreadable.
	// This is the only fatal error in the core.
	ErrCatalogLoad = errors.New("catalog load failed")

	// Query Errors.

	// ErrRetrieval indicates the target collection is absent or empty.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrClassificationParse indicates the analysis output could not be parsed.
	ErrClassificationParse = errors.New("classification output malformed")

	// ErrSynthesis indicates a completion failed during map, reduce or answer generation.
	ErrSynthesis = errors.New("synthesis failed")

	// ErrInvalidTransition indicates an event that does not fit the current routing stage.
	ErrInvalidTransition = errors.New("invalid state transition")
)
