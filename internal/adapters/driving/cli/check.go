package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/lexrag/internal/core/domain"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check AI provider connectivity",
	Long: `Pings the configured completion, embedding and OCR providers and reports
which of them are reachable.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	validator := configValidator
	if validator == nil {
		validator = ai.NewConfigValidator()
	}

	checks := []struct {
		name     string
		settings domain.ProviderSettings
		validate func(domain.ProviderSettings) error
	}{
		{"LLM", cfg.LLM, validator.ValidateCompletion},
		{"Embedding", cfg.Embedding, validator.ValidateEmbedding},
		{"OCR", cfg.OCR, validator.ValidateCompletion},
	}

	var failed int
	for _, c := range checks {
		label := c.settings.Provider.Description()
		if c.settings.Model != "" {
			label += " / " + c.settings.Model
		}
		switch {
		case !c.settings.IsConfigured():
			printf(cmd, "%-10s %s: not configured\n", c.name, label)
			failed++
		default:
			if err := c.validate(c.settings); err != nil {
				printf(cmd, "%-10s %s: %v\n", c.name, label, err)
				failed++
				continue
			}
			printf(cmd, "%-10s %s: ok\n", c.name, label)
		}
	}

	if failed > 0 {
		return errors.New("one or more providers are unavailable")
	}
	return nil
}
