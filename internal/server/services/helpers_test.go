package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmitrijs2005/studiosync/internal/common"
	"github.com/dmitrijs2005/studiosync/internal/dbx"
	"github.com/dmitrijs2005/studiosync/internal/logging"
	"github.com/dmitrijs2005/studiosync/internal/server/config"
	"github.com/dmitrijs2005/studiosync/internal/server/models"
	"github.com/dmitrijs2005/studiosync/internal/server/repositories/records"
	"github.com/dmitrijs2005/studiosync/internal/server/repositories/users"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	return &config.Config{SecretKey: "k", TokenValidity: time.Hour, PasswordSalt: "salt"}
}

type fakeUsersRepo struct {
	users     map[string]*models.User
	createErr error
	getErr    error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{users: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.users[u.UserName]; ok {
		return nil, common.ErrAlreadyExists
	}
	f.users[u.UserName] = u
	return u, nil
}

func (f *fakeUsersRepo) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[userName]
	if !ok {
		return nil, common.ErrNotFound
	}
	return u, nil
}

// fakeRecordsRepo keeps rows in memory with the same newer-wins rule as
// the postgres upsert.
type fakeRecordsRepo struct {
	rows      map[string]models.Record
	upsertErr error
	listErr   error
	since     time.Time
}

func newFakeRecordsRepo() *fakeRecordsRepo {
	return &fakeRecordsRepo{rows: map[string]models.Record{}}
}

func (f *fakeRecordsRepo) Upsert(ctx context.Context, rec models.Record) (bool, error) {
	if f.upsertErr != nil {
		return false, f.upsertErr
	}
	key := rec.Table + "/" + rec.UUID
	if cur, ok := f.rows[key]; ok && rec.Modified.Before(cur.Modified) {
		return false, nil
	}
	f.rows[key] = rec
	return true, nil
}

func (f *fakeRecordsRepo) ListModifiedSince(ctx context.Context, since time.Time) ([]models.Record, error) {
	f.since = since
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Record
	for _, r := range f.rows {
		if !r.Modified.Before(since) {
			out = append(out, r)
		}
	}
	sortRecords(out)
	return out, nil
}

func sortRecords(recs []models.Record) {
	for i := 1; i < len(recs); i++ {
		for j := i; j > 0 && less(recs[j], recs[j-1]); j-- {
			recs[j], recs[j-1] = recs[j-1], recs[j]
		}
	}
}

func less(a, b models.Record) bool {
	if a.Table != b.Table {
		return a.Table < b.Table
	}
	if !a.Modified.Equal(b.Modified) {
		return a.Modified.Before(b.Modified)
	}
	return a.UUID < b.UUID
}

type fakeRepoManager struct {
	users   *fakeUsersRepo
	records *fakeRecordsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{users: newFakeUsersRepo(), records: newFakeRecordsRepo()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository           { return m.users }
func (m *fakeRepoManager) Records(dbx.DBTX) records.Repository       { return m.records }

var discard = logging.Discard()
