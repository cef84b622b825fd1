package records

import (
	"context"
	"time"

	"github.com/dmitrijs2005/studiosync/internal/client/models"
)

type Repository interface {
	Get(ctx context.Context, table, uuid string) (*models.Record, error)
	ListUUIDs(ctx context.Context, table string, includeRemoved bool) ([]string, error)
	ListModifiedSince(ctx context.Context, table string, since time.Time) ([]models.Record, error)
	Contains(ctx context.Context, table, uuid string, includeRemoved bool) (bool, error)
	FindUser(ctx context.Context, userName string) (*models.Record, error)

	Upsert(ctx context.Context, table, uuid, data string, modified time.Time) (inserted bool, err error)
	SetUser(ctx context.Context, uuid, userName, data string, modified time.Time) (inserted bool, err error)
	SetRemoved(ctx context.Context, table, uuid string, removed bool, modified time.Time) (flipped bool, err error)
	Put(ctx context.Context, rec models.Record) error
}
