package serverconfig

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/studiosync/internal/client/models"
	"github.com/dmitrijs2005/studiosync/internal/common"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE server_config (
  address TEXT NOT NULL, useSsl INTEGER NOT NULL, updateDelay INTEGER NOT NULL, timeout INTEGER NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func TestGet_EmptyIsNotFound(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	_, err := r.Get(context.Background())
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestSave_ReplacesSingleRow(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, models.ServerConfig{Address: "a.example/api/", UseSSL: true, UpdateDelay: 2, Timeout: 3000}))
	require.NoError(t, r.Save(ctx, models.ServerConfig{Address: "b.example/api/", UseSSL: false, UpdateDelay: 5, Timeout: 1000}))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM server_config`).Scan(&n))
	require.Equal(t, 1, n)

	got, err := r.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, &models.ServerConfig{Address: "b.example/api/", UseSSL: false, UpdateDelay: 5, Timeout: 1000}, got)
}
