package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/studiosync/internal/client/models"
	"github.com/dmitrijs2005/studiosync/internal/common"
	"github.com/dmitrijs2005/studiosync/internal/dbx"
	"github.com/dmitrijs2005/studiosync/internal/timex"
)

// SQLiteRepository implements Repository over a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db     dbx.DBTX
	tables map[string]struct{}
}

// NewSQLiteRepository returns a repository that accepts only the given tables.
func NewSQLiteRepository(db dbx.DBTX, tables []string) *SQLiteRepository {
	set := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		set[t] = struct{}{}
	}
	return &SQLiteRepository{db: db, tables: set}
}

// EnumerateTables lists the business tables of the schema: every table
// that has a uuid column.
func EnumerateTables(ctx context.Context, db dbx.DBTX) ([]string, error) {
	const query = `SELECT m.name FROM sqlite_master m
		WHERE m.type = 'table'
		  AND EXISTS (SELECT 1 FROM pragma_table_info(m.name) p WHERE p.name = 'uuid')
		ORDER BY m.name`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, dbx.WrapQuery(query, err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, dbx.WrapQuery(query, err)
		}
		tables = append(tables, name)
	}
	return tables, dbx.WrapQuery(query, rows.Err())
}

func (r *SQLiteRepository) ident(table string) (string, error) {
	if _, ok := r.tables[table]; !ok {
		return "", fmt.Errorf("%w: %q", common.ErrUnknownTable, table)
	}
	return dbx.QuoteIdent(table), nil
}

func (r *SQLiteRepository) columns(table string) string {
	if table == common.UserTable {
		return "uuid, data, modified, removed, userName"
	}
	return "uuid, data, modified, removed, ''"
}

func scanRecord(table string, scan func(dest ...any) error) (models.Record, error) {
	var (
		rec      = models.Record{Table: table}
		modified string
	)
	if err := scan(&rec.UUID, &rec.Data, &modified, &rec.Removed, &rec.UserName); err != nil {
		return rec, err
	}
	t, err := timex.ParseStamp(modified)
	if err != nil {
		return rec, err
	}
	rec.Modified = t
	return rec, nil
}

// Get returns the record or common.ErrNotFound.
func (r *SQLiteRepository) Get(ctx context.Context, table, uuid string) (*models.Record, error) {
	t, err := r.ident(table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE uuid = ?`, r.columns(table), t)
	rec, err := scanRecord(table, r.db.QueryRowContext(ctx, query, uuid).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, dbx.WrapQuery(query, err)
	}
	return &rec, nil
}

func (r *SQLiteRepository) ListUUIDs(ctx context.Context, table string, includeRemoved bool) ([]string, error) {
	t, err := r.ident(table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT uuid FROM %s WHERE (? OR removed = 0) ORDER BY rowid`, t)
	rows, err := r.db.QueryContext(ctx, query, includeRemoved)
	if err != nil {
		return nil, dbx.WrapQuery(query, err)
	}
	defer rows.Close()

	uuids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, dbx.WrapQuery(query, err)
		}
		uuids = append(uuids, id)
	}
	return uuids, dbx.WrapQuery(query, rows.Err())
}

// ListModifiedSince returns rows with modified >= since, tombstones included.
func (r *SQLiteRepository) ListModifiedSince(ctx context.Context, table string, since time.Time) ([]models.Record, error) {
	t, err := r.ident(table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE modified >= ? ORDER BY modified, rowid`, r.columns(table), t)
	rows, err := r.db.QueryContext(ctx, query, timex.FormatStamp(since))
	if err != nil {
		return nil, dbx.WrapQuery(query, err)
	}
	defer rows.Close()

	var result []models.Record
	for rows.Next() {
		rec, err := scanRecord(table, rows.Scan)
		if err != nil {
			return nil, dbx.WrapQuery(query, err)
		}
		result = append(result, rec)
	}
	return result, dbx.WrapQuery(query, rows.Err())
}

func (r *SQLiteRepository) Contains(ctx context.Context, table, uuid string, includeRemoved bool) (bool, error) {
	t, err := r.ident(table)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE uuid = ? AND (? OR removed = 0))`, t)
	var found bool
	if err := r.db.QueryRowContext(ctx, query, uuid, includeRemoved).Scan(&found); err != nil {
		return false, dbx.WrapQuery(query, err)
	}
	return found, nil
}

// FindUser looks a live user up by its plaintext lookup column.
func (r *SQLiteRepository) FindUser(ctx context.Context, userName string) (*models.Record, error) {
	t, err := r.ident(common.UserTable)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE userName = ? AND removed = 0 LIMIT 1`,
		r.columns(common.UserTable), t)
	rec, err := scanRecord(common.UserTable, r.db.QueryRowContext(ctx, query, userName).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, dbx.WrapQuery(query, err)
	}
	return &rec, nil
}

// Upsert inserts the row if absent, otherwise overwrites data. The removed
// flag is left untouched. It reports whether a new row was created.
func (r *SQLiteRepository) Upsert(ctx context.Context, table, uuid, data string, modified time.Time) (bool, error) {
	t, err := r.ident(table)
	if err != nil {
		return false, err
	}
	existed, err := r.Contains(ctx, table, uuid, true)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`INSERT INTO %[1]s (uuid, data, modified, removed) VALUES (?, ?, ?, 0)
		ON CONFLICT(uuid) DO UPDATE SET
			data = excluded.data,
			modified = MAX(excluded.modified, %[1]s.modified)`, t)
	if _, err := r.db.ExecContext(ctx, query, uuid, data, timex.FormatStamp(modified)); err != nil {
		return false, dbx.WrapQuery(query, err)
	}
	return !existed, nil
}

// SetUser is Upsert for the users table, also maintaining userName.
func (r *SQLiteRepository) SetUser(ctx context.Context, uuid, userName, data string, modified time.Time) (bool, error) {
	t, err := r.ident(common.UserTable)
	if err != nil {
		return false, err
	}
	existed, err := r.Contains(ctx, common.UserTable, uuid, true)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`INSERT INTO %[1]s (uuid, data, modified, removed, userName) VALUES (?, ?, ?, 0, ?)
		ON CONFLICT(uuid) DO UPDATE SET
			data = excluded.data,
			userName = excluded.userName,
			modified = MAX(excluded.modified, %[1]s.modified)`, t)
	if _, err := r.db.ExecContext(ctx, query, uuid, data, timex.FormatStamp(modified), userName); err != nil {
		return false, dbx.WrapQuery(query, err)
	}
	return !existed, nil
}

// SetRemoved sets the tombstone and refreshes modified. It reports whether
// the flag actually changed. A missing row is a no-op.
func (r *SQLiteRepository) SetRemoved(ctx context.Context, table, uuid string, removed bool, modified time.Time) (bool, error) {
	t, err := r.ident(table)
	if err != nil {
		return false, err
	}

	sel := fmt.Sprintf(`SELECT removed FROM %s WHERE uuid = ?`, t)
	var current bool
	err = r.db.QueryRowContext(ctx, sel, uuid).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, dbx.WrapQuery(sel, err)
	}

	query := fmt.Sprintf(`UPDATE %s SET removed = ?, modified = MAX(?, modified) WHERE uuid = ?`, t)
	if _, err := r.db.ExecContext(ctx, query, removed, timex.FormatStamp(modified), uuid); err != nil {
		return false, dbx.WrapQuery(query, err)
	}
	return current != removed, nil
}

// Put overwrites the row wholesale with rec, inserting it if absent. Used
// when applying incoming sync rows.
func (r *SQLiteRepository) Put(ctx context.Context, rec models.Record) error {
	t, err := r.ident(rec.Table)
	if err != nil {
		return err
	}

	var (
		query string
		args  = []any{rec.UUID, rec.Data, timex.FormatStamp(rec.Modified), rec.Removed}
	)
	if rec.Table == common.UserTable {
		query = fmt.Sprintf(`INSERT INTO %s (uuid, data, modified, removed, userName) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(uuid) DO UPDATE SET
				data = excluded.data,
				modified = excluded.modified,
				removed = excluded.removed,
				userName = excluded.userName`, t)
		args = append(args, rec.UserName)
	} else {
		query = fmt.Sprintf(`INSERT INTO %s (uuid, data, modified, removed) VALUES (?, ?, ?, ?)
			ON CONFLICT(uuid) DO UPDATE SET
				data = excluded.data,
				modified = excluded.modified,
				removed = excluded.removed`, t)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return dbx.WrapQuery(query, err)
	}
	return nil
}
