package models

import "time"

// Record is the server copy of one client row.
type Record struct {
	Table    string
	UUID     string
	Data     string
	Modified time.Time
	Removed  bool
	UserName string
}

// Row is the wire form of a Record inside a sync payload.
type Row struct {
	UUID     string `json:"uuid"`
	Data     string `json:"data"`
	Modified string `json:"modified"`
	Removed  bool   `json:"removed"`
	UserName string `json:"userName,omitempty"`
}

type TableRows struct {
	Name         string `json:"name"`
	ModifiedRows []Row  `json:"modifiedRows"`
}

// SyncRequest is the body of a sync query.
type SyncRequest struct {
	Tables           []TableRows `json:"tables"`
	PreviousSyncDate string      `json:"previousSyncDate"`
}

// SyncReply is the content of a sync response.
type SyncReply struct {
	Tables []TableRows `json:"tables"`
}
