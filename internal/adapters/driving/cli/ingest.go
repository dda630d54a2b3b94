package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
)

var (
	ingestWatch      bool
	ingestDir        string
	ingestCollection string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest legal act PDFs into collections",
	Long: `Extracts page text from every PDF (with OCR for scanned pages), chunks it,
embeds the chunks and stores them in the vector index.

Without flags, every act folder under the acts root is ingested unless it
was already processed. Use --dir and --collection to ingest one directory.
Use --watch to keep running and ingest new act folders as they appear.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "watch the acts root for new folders")
	ingestCmd.Flags().StringVar(&ingestDir, "dir", "", "directory of PDFs to ingest")
	ingestCmd.Flags().StringVar(&ingestCollection, "collection", "", "collection name for --dir")
	ingestCmd.MarkFlagsRequiredTogether("dir", "collection")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	if err := requireIngest(cmd.Context()); err != nil {
		return err
	}

	if ingestDir != "" {
		printf(cmd, "Ingesting %s into %s...\n", ingestDir, ingestCollection)
		report, err := ingestService.Ingest(cmd.Context(), ingestDir, ingestCollection)
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		printReport(cmd, report)
		return nil
	}

	if err := runIngestAll(cmd); err != nil {
		return err
	}
	if !ingestWatch {
		return nil
	}

	printf(cmd, "Watching for new act folders. Press Ctrl+C to stop.\n")
	err := ingestService.Watch(cmd.Context())
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}

// runIngestAll ingests every unprocessed collection and prints a summary.
func runIngestAll(cmd *cobra.Command) error {
	if err := requireIngest(cmd.Context()); err != nil {
		return err
	}

	printf(cmd, "Ingesting all act folders...\n")
	reports, err := ingestService.IngestAll(cmd.Context())
	for _, r := range reports {
		printReport(cmd, r)
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	if len(reports) == 0 {
		printf(cmd, "No act folders found.\n")
	}
	return nil
}

func printReport(cmd *cobra.Command, r driving.IngestReport) {
	if r.Skipped {
		printf(cmd, "  %s: already processed, skipped\n", r.Collection)
		return
	}
	printf(cmd, "  %s: %d documents, %d pages (%d OCR), %d chunks",
		r.Collection, r.Documents, r.Pages, r.OCRPages, r.Chunks)
	if r.FileErrors > 0 {
		printf(cmd, ", %d files failed", r.FileErrors)
	}
	printf(cmd, "\n")
}
