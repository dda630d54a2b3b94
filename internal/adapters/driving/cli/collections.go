package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections [name]",
	Short: "List processed collections",
	Long: `Lists every processed collection with its document count. With a
collection name, lists the documents ingested into it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCollections,
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
}

func runCollections(cmd *cobra.Command, args []string) error {
	if err := requireCatalog(); err != nil {
		return err
	}
	ctx := cmd.Context()

	if len(args) == 1 {
		docs, err := catalogService.Documents(ctx, args[0])
		if err != nil {
			return fmt.Errorf("listing documents: %w", err)
		}
		if len(docs) == 0 {
			printf(cmd, "No documents in %s.\n", args[0])
			return nil
		}
		for _, d := range docs {
			printf(cmd, "%s  %s  (%s)\n", d.ID, d.Title(), d.UploadDate)
		}
		return nil
	}

	names, err := catalogService.Collections(ctx)
	if err != nil {
		return fmt.Errorf("listing collections: %w", err)
	}
	if len(names) == 0 {
		printf(cmd, "No collections have been ingested yet. Run 'lexrag --ingest' first.\n")
		return nil
	}
	for _, name := range names {
		docs, err := catalogService.Documents(ctx, name)
		if err != nil {
			return fmt.Errorf("listing documents of %s: %w", name, err)
		}
		printf(cmd, "%-40s %d documents\n", name, len(docs))
	}
	return nil
}
