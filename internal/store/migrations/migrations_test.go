package migrations

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "m.db")+"?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUp_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	n, err := Up(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = db.Exec(`INSERT INTO folders(id, name) VALUES ('f1', 'Personal')`)
	require.NoError(t, err)

	n, err = Up(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "second run must not apply anything")

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM folders`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestUp_AddsLastOpenedColumn(t *testing.T) {
	db := openDB(t)
	_, err := Up(context.Background(), db)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO documents(id, created_at, updated_at, last_opened_at) VALUES ('d1', 1, 1, 5)`)
	require.NoError(t, err)
}
