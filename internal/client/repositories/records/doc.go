// Package records is the Record Store of the local cache: parameterized
// SQLite statements over the per-type business tables.
//
// Every business table has the columns uuid (unique), data, modified and
// removed; the users table adds a plaintext userName lookup column. Table
// names can not be bound as parameters, so the repository only accepts the
// names it was constructed with (normally enumerated from the schema by
// EnumerateTables) and quotes them.
//
// Mutations never move modified backwards: the stored value becomes
// MAX(new, previous). Rows are never deleted, only tombstoned.
//
//	repo := records.NewSQLiteRepository(tx, tables)
//	inserted, err := repo.Upsert(ctx, "shots", id, doc, timex.Now())
package records
