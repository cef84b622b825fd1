package records

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/studiosync/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock, db
}

const upsertQuery = `(?s)^INSERT\s+INTO\s+records\s*\(table_name,\s*uuid,\s*data,\s*modified,\s*removed,\s*user_name\).*ON\s+CONFLICT\s*\(table_name,\s*uuid\)\s*DO\s+UPDATE\s+SET.*WHERE\s+EXCLUDED\.modified\s*>=\s*records\.modified\s*$`

const listQuery = `(?s)^SELECT\s+table_name,\s*uuid,\s*data,\s*modified,\s*removed,\s*user_name\s+FROM\s+records\s+WHERE\s+modified\s*>=\s*\$1\s+ORDER\s+BY\s+table_name,\s*modified,\s*uuid\s*$`

var stamp = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestUpsert_Written(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(upsertQuery).
		WithArgs("shots", "a", "{}", stamp, true, "ana").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.Upsert(context.Background(), models.Record{Table: "shots", UUID: "a", Data: "{}", Modified: stamp, Removed: true, UserName: "ana"})
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_OlderRowIgnored(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(upsertQuery).
		WithArgs("shots", "a", "{}", stamp, false, "").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Upsert(context.Background(), models.Record{Table: "shots", UUID: "a", Data: "{}", Modified: stamp})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpsert_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(upsertQuery).WillReturnError(errors.New("db down"))

	_, err := repo.Upsert(context.Background(), models.Record{Table: "shots", UUID: "a", Modified: stamp})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: db down")
}

func TestListModifiedSince(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	rows := sqlmock.NewRows([]string{"table_name", "uuid", "data", "modified", "removed", "user_name"}).
		AddRow("assets", "x", "{}", stamp, false, "").
		AddRow("shots", "a", "{}", stamp.Add(time.Hour), true, "ana")
	mock.ExpectQuery(listQuery).WithArgs(stamp).WillReturnRows(rows)

	got, err := repo.ListModifiedSince(context.Background(), stamp)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.Record{Table: "shots", UUID: "a", Data: "{}", Modified: stamp.Add(time.Hour), Removed: true, UserName: "ana"}, got[1])
}

func TestListModifiedSince_ScanError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	rows := sqlmock.NewRows([]string{"table_name", "uuid", "data", "modified", "removed", "user_name"}).
		AddRow("assets", "x", "{}", "not a time", false, "")
	mock.ExpectQuery(listQuery).WithArgs(stamp).WillReturnRows(rows)

	_, err := repo.ListModifiedSince(context.Background(), stamp)
	require.Error(t, err)
}
