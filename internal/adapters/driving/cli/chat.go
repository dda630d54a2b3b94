package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/adapters/driving/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive question session",
	Long: `Starts an interactive session. Each question is classified against the
available acts; you may be asked to approve a reshaped question and to
confirm or choose the collections to search before the answer is produced.

Type 'exit' to leave the session.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if err := requireCatalog(); err != nil {
		return err
	}
	if err := requireRouter(ctx); err != nil {
		return err
	}

	session, err := tui.NewSession(&tui.Ports{
		Router:  routerService,
		Catalog: catalogService,
	}, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return session.Run(ctx)
}
