package driving

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// RouterService runs one question routing session to completion.
type RouterService interface {
	// Run drives the state machine from question to a terminal stage,
	// asking decider whenever a human choice is needed.
	Run(ctx context.Context, question string, decider Decider) (domain.AgentState, error)
}

// Decider supplies the external decisions the router waits on.
// Console prompts, HTTP requests and tests each provide their own.
type Decider interface {
	// ApproveReshaped decides what to do with a suggested rewrite of original.
	ApproveReshaped(ctx context.Context, original, suggested string) (ReshapeDecision, error)

	// ConfirmCollections asks whether to proceed with the suggested collections.
	ConfirmCollections(ctx context.Context, suggested []string) (bool, error)

	// SelectCollections chooses collections manually from available.
	SelectCollections(ctx context.Context, available []string) ([]string, error)
}

// ReshapeChoice is the user's answer to a suggested question.
type ReshapeChoice int

// Reshape choices.
const (
	ReshapeAccept ReshapeChoice = iota
	ReshapeEdit
	ReshapeCancel
)

// ReshapeDecision is a ReshapeChoice with the edited question for ReshapeEdit.
type ReshapeDecision struct {
	Choice   ReshapeChoice
	Question string
}
