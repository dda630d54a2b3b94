package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// DatabaseFile is the SQLite file name inside the data directory.
const DatabaseFile = "lexrag.db"

// Store is a single SQLite database that serves both the catalog and
// the embedding index through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the database in dataDir and applies
// pending migrations. If dataDir is empty, domain.DefaultDataDir() is used.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		dataDir = domain.DefaultDataDir()
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// WAL lets the HTTP server read while an ingest run writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CatalogStore returns a driven.CatalogStore backed by this store.
func (s *Store) CatalogStore() driven.CatalogStore {
	return &catalogStore{store: s}
}

// VectorStore returns a driven.VectorStore backed by this store.
func (s *Store) VectorStore() driven.VectorStore {
	return &vectorStore{store: s}
}

// migrate applies every NNN_name.up.sql newer than the recorded version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}
	return nil
}

// ==================== Catalog Store ====================

type catalogStore struct {
	store *Store
}

var _ driven.CatalogStore = (*catalogStore)(nil)

func (c *catalogStore) Processed(ctx context.Context) ([]string, error) {
	rows, err := c.store.db.QueryContext(ctx,
		"SELECT name FROM collections WHERE processed = 1 ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("%w: querying collections: %w", domain.ErrCatalogLoad, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: scanning collection: %w", domain.ErrCatalogLoad, err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (c *catalogStore) MarkProcessed(ctx context.Context, collection string) error {
	_, err := c.store.db.ExecContext(ctx, `
		INSERT INTO collections (name, processed, processed_at) VALUES (?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			processed = 1,
			processed_at = COALESCE(collections.processed_at, excluded.processed_at)
	`, collection)
	if err != nil {
		return fmt.Errorf("marking %s processed: %w", collection, err)
	}
	return nil
}

func (c *catalogStore) SaveDocuments(ctx context.Context, collection string, docs []domain.Document) error {
	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO collections (name) VALUES (?) ON CONFLICT(name) DO NOTHING", collection); err != nil {
		return fmt.Errorf("saving collection: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, collection, source_name, source_path, upload_date, document_type, jurisdiction)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			collection = excluded.collection,
			source_name = excluded.source_name,
			source_path = excluded.source_path,
			upload_date = excluded.upload_date,
			document_type = excluded.document_type,
			jurisdiction = excluded.jurisdiction
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		if _, err := stmt.ExecContext(ctx, d.ID, collection, d.SourceName, d.SourcePath,
			d.UploadDate, d.DocumentType, d.Jurisdiction); err != nil {
			return fmt.Errorf("saving document %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

const documentColumns = "id, collection, source_name, source_path, upload_date, document_type, jurisdiction"

func (c *catalogStore) Documents(ctx context.Context, collection string) ([]domain.Document, error) {
	rows, err := c.store.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE collection = ? ORDER BY seq", collection)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (c *catalogStore) Document(ctx context.Context, id string) (*domain.Document, error) {
	row := c.store.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Close is a no-op; the owning Store closes the connection.
func (c *catalogStore) Close() error {
	return nil
}

// ==================== Vector Store ====================

type vectorStore struct {
	store *Store
}

var _ driven.VectorStore = (*vectorStore)(nil)

func (v *vectorStore) Upsert(ctx context.Context, collection string, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (collection, id, document_id, page_number, ordinal, content, metadata, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			document_id = excluded.document_id,
			page_number = excluded.page_number,
			ordinal = excluded.ordinal,
			content = excluded.content,
			metadata = excluded.metadata,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		metadataJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, collection, c.ID, c.DocumentID, c.PageNumber, c.Ordinal,
			c.Text, string(metadataJSON), float32SliceToBytes(c.Embedding)); err != nil {
			return fmt.Errorf("saving chunk %s: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Query scans the collection's embeddings; SQLite has no vector index here.
func (v *vectorStore) Query(
	ctx context.Context,
	collection string,
	vector []float32,
	k int,
	filter *domain.Filter,
) ([]driven.VectorHit, error) {
	candidates, err := v.Chunks(ctx, collection, filter)
	if err != nil {
		return nil, err
	}
	return storage.NearestChunks(candidates, vector, k), nil
}

func (v *vectorStore) Chunks(ctx context.Context, collection string, filter *domain.Filter) ([]domain.Chunk, error) {
	query := `SELECT collection, id, document_id, page_number, ordinal, content, metadata, embedding
		FROM chunks WHERE collection = ?`
	args := []any{collection}
	if filter != nil && filter.DocumentID != "" {
		query += " AND document_id = ?"
		args = append(args, filter.DocumentID)
	}
	query += " ORDER BY id"

	rows, err := v.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

func (v *vectorStore) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := v.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE collection = ?", collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Close is a no-op; the owning Store closes the connection.
func (v *vectorStore) Close() error {
	return nil
}

// ==================== Helper Functions ====================

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (domain.Document, error) {
	var d domain.Document
	err := row.Scan(&d.ID, &d.Collection, &d.SourceName, &d.SourcePath,
		&d.UploadDate, &d.DocumentType, &d.Jurisdiction)
	if errors.Is(err, sql.ErrNoRows) {
		return d, err
	}
	if err != nil {
		return d, fmt.Errorf("scanning document: %w", err)
	}
	return d, nil
}

func scanChunk(row scanner) (domain.Chunk, error) {
	var c domain.Chunk
	var metadataJSON string
	var embeddingBlob []byte
	if err := row.Scan(&c.Collection, &c.ID, &c.DocumentID, &c.PageNumber, &c.Ordinal,
		&c.Text, &metadataJSON, &embeddingBlob); err != nil {
		return c, fmt.Errorf("scanning chunk: %w", err)
	}
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &c.Metadata); err != nil {
			return c, fmt.Errorf("unmarshaling chunk metadata: %w", err)
		}
	}
	c.Embedding = bytesToFloat32Slice(embeddingBlob)
	return c, nil
}

// float32SliceToBytes converts a []float32 to a little-endian byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
