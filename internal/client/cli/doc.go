// Package cli provides the interactive StudioSync command-line client.
//
// It drives an engine.Engine the way a desktop front end would: it logs the
// user in (online with offline fallback), writes and soft-deletes records,
// lists and shows them, runs sync rounds and edits the server settings.
// Change batches and connection state transitions are printed as they
// arrive.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
