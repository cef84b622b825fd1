package syncstate

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/studiosync/internal/dbx"
	"github.com/dmitrijs2005/studiosync/internal/timex"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// LastSync returns the watermark, or the epoch when the row is missing.
func (r *SQLiteRepository) LastSync(ctx context.Context) (time.Time, error) {
	const query = `SELECT last_sync FROM sync_state ORDER BY last_sync DESC LIMIT 1`

	var s string
	err := r.db.QueryRowContext(ctx, query).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return timex.Epoch, nil
	}
	if err != nil {
		return timex.Epoch, dbx.WrapQuery(query, err)
	}
	return timex.ParseStamp(s)
}

func (r *SQLiteRepository) Advance(ctx context.Context, t time.Time) error {
	current, err := r.LastSync(ctx)
	if err != nil {
		return err
	}
	if t.Before(current) {
		return nil
	}

	const del = `DELETE FROM sync_state`
	if _, err := r.db.ExecContext(ctx, del); err != nil {
		return dbx.WrapQuery(del, err)
	}
	const ins = `INSERT INTO sync_state (last_sync) VALUES (?)`
	if _, err := r.db.ExecContext(ctx, ins, timex.FormatStamp(t)); err != nil {
		return dbx.WrapQuery(ins, err)
	}
	return nil
}
