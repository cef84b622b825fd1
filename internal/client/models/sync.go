package models

import (
	"time"

	"github.com/dmitrijs2005/studiosync/internal/timex"
)

// SyncRow is the wire form of a Record inside a sync payload.
type SyncRow struct {
	UUID     string `json:"uuid"`
	Data     string `json:"data"`
	Modified string `json:"modified"`
	Removed  bool   `json:"removed"`
	UserName string `json:"userName,omitempty"`
}

// TableRows groups the rows of one table.
type TableRows struct {
	Name         string    `json:"name"`
	ModifiedRows []SyncRow `json:"modifiedRows"`
}

// SyncPayload is the body of an outgoing sync request and the content of
// a sync reply.
type SyncPayload struct {
	Tables           []TableRows `json:"tables"`
	PreviousSyncDate string      `json:"previousSyncDate,omitempty"`
}

// RowFromRecord converts a stored record to its wire form.
func RowFromRecord(r Record) SyncRow {
	return SyncRow{
		UUID:     r.UUID,
		Data:     r.Data,
		Modified: timex.FormatStamp(r.Modified),
		Removed:  r.Removed,
		UserName: r.UserName,
	}
}

// Record converts a wire row back into a record of table. Rows with an
// unparsable timestamp are stamped with now.
func (r SyncRow) Record(table string) Record {
	modified, err := timex.ParseStamp(r.Modified)
	if err != nil {
		modified = timex.Now()
	}
	return Record{
		Table:    table,
		UUID:     r.UUID,
		Data:     r.Data,
		Modified: modified,
		Removed:  r.Removed,
		UserName: r.UserName,
	}
}

// Watermark parses PreviousSyncDate, falling back to the epoch.
func (p SyncPayload) Watermark() time.Time {
	t, err := timex.ParseStamp(p.PreviousSyncDate)
	if err != nil {
		return timex.Epoch
	}
	return t
}
