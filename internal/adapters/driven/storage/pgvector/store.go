// Package pgvector stores the embedding index in PostgreSQL with the
// pgvector extension. Nearest-neighbour queries run in the database
// using cosine distance.
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // migrate driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/pgvector/migrations"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store is a driven.VectorStore over a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Migrate applies the embedded schema migrations to the database at dsn.
func Migrate(dsn string) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Open migrates the schema and connects a pool to dsn.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if err := Migrate(dsn); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Debug("pgvector store connected")
	return &Store{pool: pool}, nil
}

// Upsert writes chunks in one transaction, overwriting equal IDs.
func (s *Store) Upsert(ctx context.Context, collection string, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, c := range chunks {
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshal chunk metadata: %w", err)
		}
		var vec any
		if len(c.Embedding) > 0 {
			vec = pgv.NewVector(c.Embedding)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO lexrag_chunks (collection, id, document_id, page_number, ordinal, content, metadata, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (collection, id) DO UPDATE SET
				document_id = EXCLUDED.document_id,
				page_number = EXCLUDED.page_number,
				ordinal = EXCLUDED.ordinal,
				content = EXCLUDED.content,
				metadata = EXCLUDED.metadata,
				embedding = EXCLUDED.embedding,
				updated_at = now()
		`, collection, c.ID, c.DocumentID, c.PageNumber, c.Ordinal, c.Text, meta, vec); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit(ctx)
}

// Query orders by cosine distance in the database. Similarity is 1 - distance.
func (s *Store) Query(
	ctx context.Context,
	collection string,
	vector []float32,
	k int,
	filter *domain.Filter,
) ([]driven.VectorHit, error) {
	if k <= 0 || len(vector) == 0 {
		return nil, nil
	}
	docID := ""
	if filter != nil {
		docID = filter.DocumentID
	}

	rows, err := s.pool.Query(ctx, `
		SELECT collection, id, document_id, page_number, ordinal, content, metadata, embedding,
			(embedding <=> $2::vector) AS distance
		FROM lexrag_chunks
		WHERE collection = $1 AND embedding IS NOT NULL AND ($3 = '' OR document_id = $3)
		ORDER BY embedding <=> $2::vector, id
		LIMIT $4
	`, collection, pgv.NewVector(vector), docID, k)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit
	for rows.Next() {
		var c domain.Chunk
		var meta []byte
		var emb pgv.Vector
		var distance float64
		if err := rows.Scan(&c.Collection, &c.ID, &c.DocumentID, &c.PageNumber, &c.Ordinal,
			&c.Text, &meta, &emb, &distance); err != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", err)
		}
		if err := json.Unmarshal(meta, &c.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal chunk metadata: %w", err)
		}
		c.Embedding = emb.Slice()
		hits = append(hits, driven.VectorHit{Chunk: c, Similarity: 1 - distance})
	}
	return hits, rows.Err()
}

// Chunks returns every chunk of collection passing filter, in ID order.
func (s *Store) Chunks(ctx context.Context, collection string, filter *domain.Filter) ([]domain.Chunk, error) {
	docID := ""
	if filter != nil {
		docID = filter.DocumentID
	}
	rows, err := s.pool.Query(ctx, `
		SELECT collection, id, document_id, page_number, ordinal, content, metadata, embedding
		FROM lexrag_chunks
		WHERE collection = $1 AND ($2 = '' OR document_id = $2)
		ORDER BY id
	`, collection, docID)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var meta []byte
		var emb *pgv.Vector
		if err := rows.Scan(&c.Collection, &c.ID, &c.DocumentID, &c.PageNumber, &c.Ordinal,
			&c.Text, &meta, &emb); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if err := json.Unmarshal(meta, &c.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal chunk metadata: %w", err)
		}
		if emb != nil {
			c.Embedding = emb.Slice()
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Count returns the number of chunks in collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM lexrag_chunks WHERE collection = $1", collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
