package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// Templates use text/template syntax; the fields available to each are
// listed beside the name.
const (
	// PromptMap answers one document's question from its chunks.
	// Fields: .Question, .Title, .Context.
	PromptMap = "map"

	// PromptReduce merges per-document answers.
	// Fields: .Question, .Answers.
	PromptReduce = "reduce"

	// PromptAnalyze classifies a question against the available collections.
	// Fields: .Question, .Collections.
	PromptAnalyze = "analyze"

	// PromptAnswer is the single-pass answer used by the question router.
	// Fields: .Question, .Context.
	PromptAnswer = "answer"

	// PromptOCR is the instruction sent with each page image.
	// This prompt has no fields.
	PromptOCR = "ocr"
)
