// Package store opens the local SQLite cache and exposes its read side.
//
// A Store holds two handles on the same database file. The write handle is
// limited to one connection and is handed to the write queue, which is its
// only user. The read handle serves synchronous reads on the caller's
// goroutine; those reads may observe a row before a queued write lands.
//
// Read failures are logged with the failing query and the driver error and
// degrade to an empty result. The returned *StorageError lets callers tell
// "empty" from "failed".
package store
