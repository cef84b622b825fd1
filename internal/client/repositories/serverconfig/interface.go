// Package serverconfig persists the single row of remote connection settings.
package serverconfig

import (
	"context"

	"github.com/dmitrijs2005/studiosync/internal/client/models"
)

type Repository interface {
	// Get returns common.ErrNotFound until Save has been called once.
	Get(ctx context.Context) (*models.ServerConfig, error)
	Save(ctx context.Context, cfg models.ServerConfig) error
}
