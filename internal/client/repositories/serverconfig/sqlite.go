package serverconfig

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/studiosync/internal/client/models"
	"github.com/dmitrijs2005/studiosync/internal/common"
	"github.com/dmitrijs2005/studiosync/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context) (*models.ServerConfig, error) {
	const query = `SELECT address, useSsl, updateDelay, timeout FROM server_config LIMIT 1`

	var c models.ServerConfig
	err := r.db.QueryRowContext(ctx, query).Scan(&c.Address, &c.UseSSL, &c.UpdateDelay, &c.Timeout)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, dbx.WrapQuery(query, err)
	}
	return &c, nil
}

// Save replaces the row (delete-then-insert). Call it inside a transaction
// so readers never observe the table empty.
func (r *SQLiteRepository) Save(ctx context.Context, cfg models.ServerConfig) error {
	const del = `DELETE FROM server_config`
	if _, err := r.db.ExecContext(ctx, del); err != nil {
		return dbx.WrapQuery(del, err)
	}

	const ins = `INSERT INTO server_config (address, useSsl, updateDelay, timeout) VALUES (?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, ins, cfg.Address, cfg.UseSSL, cfg.UpdateDelay, cfg.Timeout); err != nil {
		return dbx.WrapQuery(ins, err)
	}
	return nil
}
