package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

var (
	askCollections []string
	askJSON        bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question across the processed collections",
	Long: `Retrieves the most relevant chunks of every document, answers the question
per document, then merges those answers into one cited response.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAskQuestion(cmd, args[0])
	},
}

func init() {
	askCmd.Flags().StringSliceVarP(&askCollections, "collection", "c", nil, "restrict to these collections")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer and per-document answers as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAskQuestion(cmd *cobra.Command, question string) error {
	if err := requireAsk(cmd.Context()); err != nil {
		return err
	}

	opts := driving.AskOptions{Collections: askCollections}
	if cmd.Flags().Changed("temperature") {
		t := temperatureFlag
		opts.Temperature = &t
	}
	if cmd.Flags().Changed("k_per_doc") {
		opts.KPerDoc = kPerDocFlag
	}
	if cmd.Flags().Changed("model") {
		opts.Model = modelFlag
	}

	res, err := askService.Ask(cmd.Context(), question, opts)
	switch {
	case errors.Is(err, domain.ErrSynthesis) && res != nil:
		// the result still carries a readable answer
		logger.Warn("ask: %v", err)
	case err != nil:
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return outputAskJSON(cmd, res)
	}

	printf(cmd, "%s\n", res.Answer)
	if res.MapFailures > 0 {
		printf(cmd, "\n(%d documents could not be answered)\n", res.MapFailures)
	}
	return nil
}

type askDocumentJSON struct {
	DocumentID string `json:"document_id"`
	Answer     string `json:"answer"`
}

type askJSONOutput struct {
	Answer      string            `json:"answer"`
	Documents   []askDocumentJSON `json:"documents"`
	Reduced     bool              `json:"reduced"`
	MapFailures int               `json:"map_failures"`
}

func outputAskJSON(cmd *cobra.Command, res *driving.SynthesisResult) error {
	out := askJSONOutput{
		Answer:      res.Answer,
		Documents:   make([]askDocumentJSON, 0, len(res.Order)),
		Reduced:     res.Reduced,
		MapFailures: res.MapFailures,
	}
	for _, id := range res.Order {
		answer := res.DocumentAnswers[id]
		if answer == "" {
			answer = domain.NoRelevantInformation
		}
		out.Documents = append(out.Documents, askDocumentJSON{DocumentID: id, Answer: answer})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling answer: %w", err)
	}
	printf(cmd, "%s\n", data)
	return nil
}
