package driving

import "context"

// IngestService turns directories of PDFs into indexed collections.
type IngestService interface {
	// Ingest extracts, chunks, embeds and upserts every PDF in dir into collection,
	// then marks collection processed. Per-file failures are logged and skipped.
	Ingest(ctx context.Context, dir, collection string) (IngestReport, error)

	// IngestAll discovers configured collections and ingests the unprocessed ones.
	IngestAll(ctx context.Context) ([]IngestReport, error)

	// Watch re-runs IngestAll when new act folders appear. It blocks until ctx is done.
	Watch(ctx context.Context) error
}

// IngestReport summarises one directory run.
type IngestReport struct {
	Collection string
	Dir        string

	// Skipped is true when the collection was already processed.
	Skipped bool

	Files     int
	Documents int
	Pages     int
	OCRPages  int
	Chunks    int

	// FileErrors counts files skipped because of extraction or empty-document errors.
	FileErrors int
}
