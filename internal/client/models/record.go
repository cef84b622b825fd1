// Package models defines the data types shared by the client-side store,
// write queue, notification and sync components.
package models

import "time"

// Record is one row of a business table: an opaque document addressed by
// table and uuid. Rows are never hard-deleted; Removed is a tombstone.
type Record struct {
	Table    string
	UUID     string
	Data     string
	Modified time.Time
	Removed  bool

	// UserName is the plaintext lookup column, only used by the users table.
	UserName string
}

// Inserted identifies a record that became visible for the first time.
type Inserted struct {
	UUID  string
	Table string
}

// AvailabilityChange reports a tombstone flip. Available is the new
// visibility, i.e. the negation of Removed.
type AvailabilityChange struct {
	UUID      string
	Available bool
}

// Batch is one coalesced set of change notifications, delivered after the
// write queue has stayed quiescent for the debounce interval.
type Batch struct {
	Inserted     []Inserted
	Availability []AvailabilityChange
	Updated      []string
}

// Empty reports whether b carries no change at all.
func (b Batch) Empty() bool {
	return len(b.Inserted) == 0 && len(b.Availability) == 0 && len(b.Updated) == 0
}
