package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Session is the interactive question loop. It runs until the user types
// exit or input ends.
type Session struct {
	ports   *Ports
	decider *Decider
	out     io.Writer
}

// NewSession creates a console session over in and out.
func NewSession(ports *Ports, in io.Reader, out io.Writer) (*Session, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}
	return &Session{
		ports:   ports,
		decider: NewDecider(in, out),
		out:     out,
	}, nil
}

// Run prints the welcome banner and answers questions until exit.
func (s *Session) Run(ctx context.Context) error {
	st := s.decider.styles

	collections, err := s.ports.Catalog.Collections(ctx)
	if err != nil {
		return fmt.Errorf("listing collections: %w", err)
	}

	fmt.Fprintf(s.out, "%s\n", st.Heading.Render("=== Legal Acts Question Answering ==="))
	if len(collections) == 0 {
		fmt.Fprintf(s.out, "%s\n", st.Warning.Render("No collections have been ingested yet. Run 'lexrag --ingest' first."))
		return nil
	}
	fmt.Fprintf(s.out, "Loaded %d legal act collections:\n", len(collections))
	for _, c := range collections {
		fmt.Fprintf(s.out, "  • %s\n", c)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprintf(s.out, "\nEnter your question (or 'exit'): ")
		question, err := s.decider.readLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch strings.ToLower(question) {
		case "":
			continue
		case "exit", "quit":
			fmt.Fprintf(s.out, "%s\n", st.Muted.Render("Goodbye."))
			return nil
		}

		state, err := s.ports.Router.Run(ctx, question, s.decider)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			logger.Warn("chat: %v", err)
			fmt.Fprintf(s.out, "%s\n", st.Error.Render("Error: "+err.Error()))
			continue
		}
		s.printAnswer(state)
	}
}

func (s *Session) printAnswer(state domain.AgentState) {
	st := s.decider.styles

	fmt.Fprintf(s.out, "\n%s\n", st.Outcome(state.Outcome).Render("FINAL ANSWER"))
	fmt.Fprintf(s.out, "%s\n", st.Answer.Render(state.FinalAnswer))

	if state.Outcome != domain.OutcomeAnswered {
		return
	}
	citations := domain.Citations(state.RetrievedDocs)
	if len(citations) == 0 {
		return
	}
	fmt.Fprintf(s.out, "%s\n", st.Muted.Render("Sources:"))
	for _, c := range citations {
		fmt.Fprintf(s.out, "%s\n", st.Muted.Render(fmt.Sprintf("  - %s, page %d (%s)", c.Source, c.Page, c.Collection)))
	}
}
