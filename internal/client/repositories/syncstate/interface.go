// Package syncstate persists the sync watermark: the time of the last
// successful sync, starting at timex.Epoch and only moving forward.
package syncstate

import (
	"context"
	"time"
)

type Repository interface {
	LastSync(ctx context.Context) (time.Time, error)
	// Advance rewrites the watermark to t unless the stored value is newer.
	Advance(ctx context.Context, t time.Time) error
}
