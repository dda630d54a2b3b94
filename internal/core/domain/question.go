package domain

// QuestionStatus is the answerability class assigned by question analysis.
type QuestionStatus int

// Question statuses. StatusUnknown is the zero value before analysis.
const (
	StatusUnknown QuestionStatus = iota
	StatusAnswerable
	StatusNeedsReshaping
	StatusNotAnswerable
)

// String returns the lower_snake name used in logs and the HTTP API.
func (s QuestionStatus) String() string {
	switch s {
	case StatusAnswerable:
		return "answerable"
	case StatusNeedsReshaping:
		return "needs_reshaping"
	case StatusNotAnswerable:
		return "not_answerable"
	default:
		return "unknown"
	}
}

// Stage is a node of the question routing state machine.
type Stage int

// Stages in execution order.
const (
	StageInput Stage = iota
	StageAnalyze
	StageReshape
	StageSelect
	StageRetrieve
	StageSynthesize
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageInput:
		return "input"
	case StageAnalyze:
		return "analyze"
	case StageReshape:
		return "reshape"
	case StageSelect:
		return "select"
	case StageRetrieve:
		return "retrieve"
	case StageSynthesize:
		return "synthesize"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// Outcome records how a session reached StageDone.
type Outcome int

// Session outcomes. OutcomeNone means the session has not finished.
const (
	OutcomeNone Outcome = iota
	OutcomeAnswered
	OutcomeNotAnswerable
	OutcomeCancelled
	OutcomeNoDocuments
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAnswered:
		return "answered"
	case OutcomeNotAnswerable:
		return "not_answerable"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeNoDocuments:
		return "no_documents"
	default:
		return "none"
	}
}

// Fixed user-visible answers for terminal outcomes.
const (
	MessageNotAnswerable = "Question cannot be answered with available legal acts."
	MessageCancelled     = "Question processing cancelled by user."
	MessageNoDocuments   = "No relevant documents found. Cannot provide an answer based on available legal acts."
)

// Map-reduce sentinels.
const (
	// NoRelevantInformation is the exact reply a map call gives when its
	// document has nothing on the question.
	NoRelevantInformation = "No relevant information."

	// MessageNoRelevantAcrossDocuments is the answer when every map call
	// returned NoRelevantInformation.
	MessageNoRelevantAcrossDocuments = "No relevant information across the documents for this question."
)

// Analysis is the parsed result of classifying a question.
type Analysis struct {
	Status            QuestionStatus
	Explanation       string
	SuggestedQuestion string
	RelevantActs      []string

	// Raw is the unparsed completion text.
	Raw string
}

// AgentState is the record threaded through one question routing session.
// It is discarded once the final answer is produced.
type AgentState struct {
	Stage   Stage
	Outcome Outcome

	UserQuestion         string
	Status               QuestionStatus
	Explanation          string
	ReshapedQuestion     string
	ApprovedQuestion     string
	SuggestedCollections []string
	SelectedCollections  []string
	RetrievedDocs        []ScoredChunk
	FinalAnswer          string

	// AnalyzeCalls counts question analysis calls. It is at most one.
	AnalyzeCalls int

	// CompletionCalls counts completion service calls made in this session,
	// including the analysis call.
	CompletionCalls int
}

// Done reports whether the session reached a terminal stage.
func (s AgentState) Done() bool {
	return s.Stage == StageDone
}
