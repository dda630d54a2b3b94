package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads prompt templates from user-editable files on disk,
// falling back to the embedded defaults.
//
// The prompt directory is created and seeded on the first Load, not in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptMap: `You are a precise legal analyst. Answer ONLY using the context below for the specified document.
If the context does not contain relevant information, reply exactly: "No relevant information."

Document: {{.Title}}

Question:
{{.Question}}

Context:
{{.Context}}

Rules:
- Use ONLY the context above; do not invent facts.
- If partially relevant, answer with what is supported and state limits.
- If no relevant info, reply exactly "No relevant information."`,

	driven.PromptReduce: `You are a senior legal summarizer.

User Question:
{{.Question}}

Below are per-document answers (some may say "No relevant information."):

{{.Answers}}

Task:
- Merge only the relevant answers into one clear, comprehensive response.
- Cite documents by filename (e.g., "(see: file.pdf)").
- If documents conflict, point out the conflict and cite both sides.
- If ALL answers are "No relevant information.", say so clearly.

Final Answer:`,

	driven.PromptAnalyze: `You are a legal expert analyzing whether a user question can be answered using available legal acts.

Available Legal Acts/Collections:
{{.Collections}}

User Question: "{{.Question}}"

Analyze the question and determine:
1. Can this question be directly answered using the available acts?
2. Is the question related to legal matters but needs reshaping to align with available acts?
3. Is the question completely unrelated to the available legal acts?

Based on your analysis, classify the question as one of:
- ANSWERABLE: Question can be directly answered with available acts
- NEEDS_RESHAPING: Question is legal-related but needs to be reformulated to match available acts
- NOT_ANSWERABLE: Question is completely outside the scope of available acts

Provide your classification and a brief explanation.

Format your response as:
STATUS: [ANSWERABLE/NEEDS_RESHAPING/NOT_ANSWERABLE]
EXPLANATION: [Your explanation]
SUGGESTED_QUESTION: [If NEEDS_RESHAPING, provide a better question aligned with available acts]
RELEVANT_ACTS: [List relevant act names if any, comma separated]`,

	driven.PromptAnswer: `You are an expert legal assistant. Use the provided legal documents to answer the user's question comprehensively and accurately.

User Question: {{.Question}}

Legal Documents (some passages may be unrelated; use only the ones relevant to the question):
{{.Context}}

Instructions:
1. Provide a clear, comprehensive answer based solely on the provided legal documents
2. Cite specific sections or provisions where relevant
3. If the documents don't fully address the question, clearly state what aspects cannot be answered
4. Use professional legal language but ensure clarity for the user
5. Structure your answer logically with clear sections if the response is lengthy

Answer:`,

	driven.PromptOCR: `Extract all legible body text from this legal page. Preserve reading order. Ignore repeated headers/footers and watermarks. Return plain UTF-8 text.`,
}

// DefaultPrompt returns the embedded template for name.
func DefaultPrompt(name string) (string, bool) {
	p, ok := defaultPrompts[name]
	return p, ok
}

// NewPromptStore creates a file-based prompt store rooted at promptDir.
// If promptDir is empty, defaults to ~/.lexrag/prompts/.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".lexrag", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// A missing or unreadable file falls back to the embedded default.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	prompt, err := s.loadFromFile(name)
	if err != nil || prompt == "" {
		if def, ok := defaultPrompts[name]; ok {
			return def, nil
		}
		if err == nil {
			err = os.ErrNotExist
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and writes any missing default files.
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".tmpl")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	s.initErr = s.createReadme()
}

func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.promptDir, name+".tmpl"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	content := `# lexrag prompts

Each file is a Go text/template used by the question-answering pipeline.

| File | Used by | Fields |
|------|---------|--------|
| map.tmpl | per-document answer | .Question .Title .Context |
| reduce.tmpl | merge of per-document answers | .Question .Answers |
| analyze.tmpl | question router classification | .Question .Collections |
| answer.tmpl | question router final answer | .Question .Context |
| ocr.tmpl | scanned page OCR instruction | none |

The map prompt must keep the exact reply "No relevant information." for
documents without relevant context; the pipeline skips the merge step
when every document answers with it.

The analyze prompt must keep the STATUS / EXPLANATION / SUGGESTED_QUESTION /
RELEVANT_ACTS lines; the router parses them.

Delete a file to restore its default.
`
	return os.WriteFile(path, []byte(content), 0600)
}
