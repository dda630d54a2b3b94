package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Environment variables recognised by LoadConfig.
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvGeminiKey    = "GEMINI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvKPerDoc      = "K_PER_DOC"
	EnvChatModel    = "OPENAI_CHAT_MODEL"
	EnvTemperature  = "LLM_TEMPERATURE"
	EnvOCRDPI       = "OCR_DPI"
	EnvActsRoot     = "ACTS_ROOT"
	EnvDataDir      = "LEXRAG_DATA_DIR"
	EnvDatabaseURL  = "DATABASE_URL"
)

// LoadOptions controls where LoadConfig looks.
type LoadOptions struct {
	// DataDir overrides LEXRAG_DATA_DIR and the default ~/.lexrag.
	DataDir string

	// EnvFiles are dotenv files applied before reading the environment.
	// Missing files are ignored. Defaults to ".env".
	EnvFiles []string
}

// LoadConfig builds the process configuration. Later sources win:
// defaults, then config.toml in the data directory, then dotenv files,
// then environment variables. CLI flags are applied by the caller.
func LoadConfig(opts LoadOptions) (domain.Config, *ConfigStore, error) {
	files := opts.EnvFiles
	if files == nil {
		files = []string{".env"}
	}
	for _, f := range files {
		// godotenv never overrides variables already present in the process.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return domain.Config{}, nil, fmt.Errorf("%w: load %s: %w", domain.ErrInvalidInput, f, err)
		}
	}

	cfg := domain.DefaultConfig()
	switch {
	case opts.DataDir != "":
		cfg.DataDir = opts.DataDir
	case os.Getenv(EnvDataDir) != "":
		cfg.DataDir = os.Getenv(EnvDataDir)
	}

	store, err := NewConfigStore(cfg.DataDir)
	if err != nil {
		return domain.Config{}, nil, fmt.Errorf("%w: open config: %w", domain.ErrInvalidInput, err)
	}
	ApplyStore(store, &cfg)

	if err := applyEnv(&cfg); err != nil {
		return domain.Config{}, nil, err
	}
	if err := Validate(cfg); err != nil {
		return domain.Config{}, nil, err
	}
	logger.Debug("config loaded from %s", store.Path())
	return cfg, store, nil
}

// ApplyStore copies every key present in the store onto cfg.
// Absent keys leave the existing value untouched.
func ApplyStore(s *ConfigStore, cfg *domain.Config) {
	str := func(key string, dst *string) {
		if _, ok := s.Get(key); ok {
			*dst = s.GetString(key)
		}
	}
	num := func(key string, dst *int) {
		if _, ok := s.Get(key); ok {
			*dst = s.GetInt(key)
		}
	}
	flt := func(key string, dst *float64) {
		if _, ok := s.Get(key); ok {
			*dst = s.GetFloat(key)
		}
	}
	provider := func(prefix string, dst *domain.ProviderSettings) {
		if _, ok := s.Get(prefix + ".provider"); ok {
			dst.Provider = domain.AIProvider(s.GetString(prefix + ".provider"))
		}
		str(prefix+".model", &dst.Model)
		str(prefix+".base_url", &dst.BaseURL)
		str(prefix+".api_key", &dst.APIKey)
	}

	str("data_dir", &cfg.DataDir)

	in := &cfg.Ingest
	str("ingest.acts_root", &in.ActsRoot)
	num("ingest.workers", &in.Workers)
	if _, ok := s.Get("ingest.strategy"); ok {
		in.Strategy = domain.ChunkStrategy(s.GetString("ingest.strategy"))
	}
	num("ingest.chunk_size", &in.ChunkSize)
	num("ingest.chunk_overlap", &in.ChunkOverlap)
	num("ingest.min_length", &in.MinLength)
	num("ingest.max_length", &in.MaxLength)
	num("ingest.paragraph_overlap", &in.ParagraphOverlap)
	num("ingest.embed_batch", &in.EmbedBatch)
	num("ingest.ocr_threshold", &in.OCRThreshold)
	num("ingest.ocr_dpi", &in.OCRDPI)
	num("ingest.ocr_retries", &in.OCRRetries)
	if d := s.GetDuration("ingest.ocr_backoff"); d > 0 {
		in.OCRBackoff = d
	}
	num("ingest.ocr_rate_per_minute", &in.OCRRatePerMinute)
	str("ingest.document_type", &in.DocumentType)
	str("ingest.jurisdiction", &in.Jurisdiction)
	for _, t := range s.GetTables("ingest.sources") {
		path, _ := t["path"].(string)
		collection, _ := t["collection"].(string)
		if path != "" && collection != "" {
			in.Sources = append(in.Sources, domain.SourceDir{Path: path, Collection: collection})
		}
	}

	r := &cfg.Retrieval
	flt("retrieval.dense_weight", &r.DenseWeight)
	flt("retrieval.lexical_weight", &r.LexicalWeight)
	num("retrieval.candidate_pool", &r.CandidatePool)
	num("retrieval.rrf_k", &r.RRFK)
	if _, ok := s.Get("retrieval.rerank"); ok {
		r.Rerank = s.GetBool("retrieval.rerank")
	}
	str("retrieval.rerank_url", &r.RerankURL)
	num("retrieval.rerank_top", &r.RerankTopN)
	num("retrieval.router_k", &r.RouterK)

	num("synthesis.k_per_doc", &cfg.Synthesis.KPerDoc)
	flt("synthesis.temperature", &cfg.Synthesis.Temperature)
	num("synthesis.map_concurrency", &cfg.Synthesis.MapConcurrency)
	str("synthesis.model", &cfg.LLM.Model)

	provider("llm", &cfg.LLM)
	provider("embedding", &cfg.Embedding)
	provider("ocr", &cfg.OCR)

	if _, ok := s.Get("index.backend"); ok {
		cfg.IndexBackend = domain.IndexBackend(s.GetString("index.backend"))
	}
	str("index.dsn", &cfg.DatabaseURL)
	if _, ok := s.Get("catalog.backend"); ok {
		cfg.CatalogBackend = domain.CatalogBackend(s.GetString("catalog.backend"))
	}

	str("server.addr", &cfg.Server.Addr)
	str("server.jwt_secret", &cfg.Server.JWTSecret)
	if origins := s.GetStringSlice("server.allowed_origins"); origins != nil {
		cfg.Server.AllowedOrigins = origins
	}
}

func applyEnv(cfg *domain.Config) error {
	keys := map[domain.AIProvider]string{
		domain.AIProviderOpenAI:    os.Getenv(EnvOpenAIKey),
		domain.AIProviderGemini:    os.Getenv(EnvGeminiKey),
		domain.AIProviderAnthropic: os.Getenv(EnvAnthropicKey),
	}
	for _, p := range []*domain.ProviderSettings{&cfg.LLM, &cfg.Embedding, &cfg.OCR} {
		if p.APIKey == "" {
			p.APIKey = keys[p.Provider]
		}
	}

	if v := os.Getenv(EnvChatModel); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv(EnvActsRoot); v != "" {
		cfg.Ingest.ActsRoot = v
	}
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv(EnvKPerDoc); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", domain.ErrInvalidInput, EnvKPerDoc, v, err)
		}
		cfg.Synthesis.KPerDoc = n
	}
	if v := os.Getenv(EnvTemperature); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", domain.ErrInvalidInput, EnvTemperature, v, err)
		}
		cfg.Synthesis.Temperature = f
	}
	if v := os.Getenv(EnvOCRDPI); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", domain.ErrInvalidInput, EnvOCRDPI, v, err)
		}
		cfg.Ingest.OCRDPI = n
	}
	return nil
}

// Validate checks settings that would otherwise fail deep inside a run.
func Validate(cfg domain.Config) error {
	var problems []string
	in := cfg.Ingest
	if in.ChunkSize <= 0 {
		problems = append(problems, "ingest.chunk_size must be positive")
	}
	if in.ChunkOverlap < 0 || in.ChunkOverlap >= in.ChunkSize {
		problems = append(problems, "ingest.chunk_overlap must be in [0, chunk_size)")
	}
	if in.Strategy != domain.ChunkFixedWindow && in.Strategy != domain.ChunkParagraph {
		problems = append(problems, fmt.Sprintf("ingest.strategy %q is not fixed or paragraph", in.Strategy))
	}
	if cfg.Synthesis.KPerDoc <= 0 {
		problems = append(problems, "synthesis.k_per_doc must be positive")
	}
	if cfg.Synthesis.Temperature < 0 || cfg.Synthesis.Temperature > 2 {
		problems = append(problems, "synthesis.temperature must be in [0, 2]")
	}
	if cfg.Retrieval.DenseWeight < 0 || cfg.Retrieval.LexicalWeight < 0 {
		problems = append(problems, "retrieval weights must be non-negative")
	}
	for name, p := range map[string]domain.ProviderSettings{"llm": cfg.LLM, "embedding": cfg.Embedding, "ocr": cfg.OCR} {
		if !p.Provider.IsValid() {
			problems = append(problems, fmt.Sprintf("%s.provider %q is not supported", name, p.Provider))
		}
	}
	switch cfg.IndexBackend {
	case domain.IndexSQLite, domain.IndexMemory:
	case domain.IndexPGVector:
		if cfg.DatabaseURL == "" {
			problems = append(problems, "index.backend pgvector needs index.dsn or DATABASE_URL")
		}
	default:
		problems = append(problems, fmt.Sprintf("index.backend %q is not supported", cfg.IndexBackend))
	}
	if cfg.CatalogBackend != domain.CatalogJSON && cfg.CatalogBackend != domain.CatalogSQLite {
		problems = append(problems, fmt.Sprintf("catalog.backend %q is not supported", cfg.CatalogBackend))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}
