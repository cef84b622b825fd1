// Package records stores the server copy of every synchronized row.
package records

import (
	"context"
	"time"

	"github.com/dmitrijs2005/studiosync/internal/server/models"
)

type Repository interface {
	// Upsert stores rec unless the stored row is strictly newer. It
	// reports whether rec was written.
	Upsert(ctx context.Context, rec models.Record) (bool, error)
	// ListModifiedSince returns rows with modified >= since, ordered by
	// table, then modification time.
	ListModifiedSince(ctx context.Context, since time.Time) ([]models.Record, error)
}
