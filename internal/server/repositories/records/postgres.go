package records

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/studiosync/internal/dbx"
	"github.com/dmitrijs2005/studiosync/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, rec models.Record) (bool, error) {
	query :=
		`INSERT INTO records (table_name, uuid, data, modified, removed, user_name)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (table_name, uuid) DO UPDATE SET
			data = EXCLUDED.data,
			modified = EXCLUDED.modified,
			removed = EXCLUDED.removed,
			user_name = EXCLUDED.user_name
		 WHERE EXCLUDED.modified >= records.modified
		 `

	res, err := r.db.ExecContext(ctx, query,
		rec.Table, rec.UUID, rec.Data, rec.Modified.UTC(), rec.Removed, rec.UserName)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) ListModifiedSince(ctx context.Context, since time.Time) ([]models.Record, error) {
	query :=
		`SELECT table_name, uuid, data, modified, removed, user_name FROM records
		 WHERE modified >= $1
		 ORDER BY table_name, modified, uuid
		 `

	rows, err := r.db.QueryContext(ctx, query, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Record
	for rows.Next() {
		var rec models.Record
		if err := rows.Scan(&rec.Table, &rec.UUID, &rec.Data, &rec.Modified, &rec.Removed, &rec.UserName); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		rec.Modified = rec.Modified.UTC()
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
