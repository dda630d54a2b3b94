package pgvector

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/storagetest"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// EnvTestDSN names a disposable PostgreSQL database with the vector
// extension available. The suite truncates lexrag_chunks between cases.
const EnvTestDSN = "LEXRAG_PG_TEST_DSN"

func TestStore_Contract(t *testing.T) {
	dsn := os.Getenv(EnvTestDSN)
	if dsn == "" {
		t.Skipf("%s not set", EnvTestDSN)
	}

	storagetest.RunVectorStore(t, func(t *testing.T) driven.VectorStore {
		ctx := context.Background()
		s, err := Open(ctx, dsn)
		require.NoError(t, err)
		_, err = s.pool.Exec(ctx, "TRUNCATE lexrag_chunks")
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}
