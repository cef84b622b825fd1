// Package engine assembles the local store, the write queue, the change
// aggregator, the remote link and the sync and auth services into the
// single object a user interface talks to.
//
// An Engine is built with New and must be released with Close, which
// flushes pending requests, compacts the store and stops every background
// goroutine in that order.
package engine
