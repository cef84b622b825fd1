// Package services contains the client application services built on the
// local store, the write queue and the remote link: the sync protocol and
// authentication.
package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/studiosync/internal/client/models"
	"github.com/dmitrijs2005/studiosync/internal/client/remote"
	"github.com/dmitrijs2005/studiosync/internal/client/repositories/records"
	"github.com/dmitrijs2005/studiosync/internal/client/writequeue"
	"github.com/dmitrijs2005/studiosync/internal/dbx"
)

// Store is the read side of the local cache.
type Store interface {
	Tables() []string
	HasTable(name string) bool
	Records(db dbx.DBTX) records.Repository
	ListModifiedSince(ctx context.Context, table string, since time.Time) ([]models.Record, error)
	FindUser(ctx context.Context, userName string) (*models.Record, error)
	LastSync(ctx context.Context) (time.Time, error)
}

// Writer schedules mutations on the write queue.
type Writer interface {
	Enqueue(name string, op writequeue.Op) error
}

// Notifier buffers change events until the write queue settles.
type Notifier interface {
	Inserted(uuid, table string)
	AvailabilityChanged(uuid string, available bool)
	Updated(uuid string)
}

// Link is the subset of *remote.Link used by the services.
type Link interface {
	Post(query string, body map[string]any)
	Login(username, password string)
	WaitOnline(ctx context.Context) error
	Flush(ctx context.Context)
	GoOffline(reason string)
	OnResponse(fn remote.ResponseListener)
	OnStateChange(fn remote.StateListener)
}
