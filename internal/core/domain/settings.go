package domain

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for completions, embeddings or OCR.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is Google Gemini cloud API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p != AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// ProviderSettings configures one AI service.
type ProviderSettings struct {
	// Provider is the service provider.
	Provider AIProvider

	// Model is the model name.
	Model string

	// BaseURL is the API endpoint override.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string
}

// IsConfigured returns true if the provider is set up.
func (s ProviderSettings) IsConfigured() bool {
	if !s.Provider.IsValid() {
		return false
	}
	if s.Provider.RequiresAPIKey() && s.APIKey == "" {
		return false
	}
	return true
}

// ChunkStrategy selects how page text is split.
type ChunkStrategy string

// Chunking strategies.
const (
	ChunkFixedWindow ChunkStrategy = "fixed"
	ChunkParagraph   ChunkStrategy = "paragraph"
)

// IngestSettings configures the ingestion pipeline.
type IngestSettings struct {
	// ActsRoot holds one folder per act, each with base/ and amendment/ subfolders.
	ActsRoot string

	// Sources are explicit directory to collection mappings ingested alongside ActsRoot.
	Sources []SourceDir

	// Workers bounds per-file extraction concurrency.
	Workers int

	Strategy         ChunkStrategy
	ChunkSize        int
	ChunkOverlap     int
	MinLength        int
	MaxLength        int
	ParagraphOverlap int

	// EmbedBatch is the number of chunk texts sent per embedding request.
	EmbedBatch int

	// OCRThreshold is the native text length below which a page counts as scanned.
	OCRThreshold int
	OCRDPI       int
	OCRRetries   int
	OCRBackoff   time.Duration

	// OCRRatePerMinute caps vision OCR requests. Zero disables the limit.
	OCRRatePerMinute int

	DocumentType string
	Jurisdiction string
}

// RetrievalSettings configures the hybrid retriever.
type RetrievalSettings struct {
	DenseWeight   float64
	LexicalWeight float64

	// CandidatePool is the dense leg's minimum fetch size before fusion.
	CandidatePool int

	// RRFK is the reciprocal rank fusion constant.
	RRFK int

	// Rerank enables the cross-encoder stage.
	Rerank     bool
	RerankURL  string
	RerankTopN int

	// RouterK is the whole-collection top-k used by the question router.
	RouterK int
}

// SynthesisSettings configures map-reduce answering.
type SynthesisSettings struct {
	KPerDoc        int
	Temperature    float64
	MapConcurrency int
}

// IndexBackend selects the vector store implementation.
type IndexBackend string

// Vector store backends.
const (
	IndexSQLite   IndexBackend = "sqlite"
	IndexMemory   IndexBackend = "memory"
	IndexPGVector IndexBackend = "pgvector"
)

// CatalogBackend selects the catalog persistence.
type CatalogBackend string

// Catalog backends.
const (
	CatalogJSON   CatalogBackend = "json"
	CatalogSQLite CatalogBackend = "sqlite"
)

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Addr           string
	JWTSecret      string
	AllowedOrigins []string
}

// Config is the process configuration. It is built once at start-up
// and passed explicitly to every component that needs it.
type Config struct {
	// DataDir holds the catalog, sqlite database and prompt overrides.
	DataDir string

	Ingest    IngestSettings
	Retrieval RetrievalSettings
	Synthesis SynthesisSettings

	LLM       ProviderSettings
	Embedding ProviderSettings
	OCR       ProviderSettings

	IndexBackend   IndexBackend
	DatabaseURL    string
	CatalogBackend CatalogBackend

	Server ServerSettings
}

// DefaultDataDir returns ~/.lexrag, or ./.lexrag when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lexrag"
	}
	return filepath.Join(home, ".lexrag")
}

// DefaultConfig returns settings with the pipeline's standard defaults.
// Provider API keys are left empty.
func DefaultConfig() Config {
	return Config{
		DataDir: DefaultDataDir(),
		Ingest: IngestSettings{
			ActsRoot:         "Acts",
			Workers:          max(runtime.NumCPU(), 1),
			Strategy:         ChunkFixedWindow,
			ChunkSize:        1000,
			ChunkOverlap:     200,
			MinLength:        30,
			MaxLength:        1000,
			ParagraphOverlap: 50,
			EmbedBatch:       64,
			OCRThreshold:     25,
			OCRDPI:           220,
			OCRRetries:       3,
			OCRBackoff:       time.Second,
			DocumentType:     DefaultDocumentType,
			Jurisdiction:     DefaultJurisdiction,
		},
		Retrieval: RetrievalSettings{
			DenseWeight:   0.5,
			LexicalWeight: 0.5,
			CandidatePool: 20,
			RRFK:          60,
			RerankTopN:    20,
			RouterK:       5,
		},
		Synthesis: SynthesisSettings{
			KPerDoc:        3,
			Temperature:    0,
			MapConcurrency: 4,
		},
		LLM: ProviderSettings{
			Provider: AIProviderOpenAI,
			Model:    DefaultLLMModels()[AIProviderOpenAI],
		},
		Embedding: ProviderSettings{
			Provider: AIProviderOpenAI,
			Model:    DefaultEmbeddingModels()[AIProviderOpenAI],
		},
		OCR: ProviderSettings{
			Provider: AIProviderOpenAI,
			Model:    DefaultLLMModels()[AIProviderOpenAI],
		},
		IndexBackend:   IndexSQLite,
		CatalogBackend: CatalogJSON,
		Server: ServerSettings{
			Addr:           ":8000",
			AllowedOrigins: []string{"*"},
		},
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderGemini: "text-embedding-004",
	}
}

// DefaultLLMModels returns default models for each completion provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-1.5-flash",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"all-minilm":             384,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		"text-embedding-004":     768,
	}
}
