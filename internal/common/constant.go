// Package common contains shared constants and sentinel errors used across
// the studiosync client and reference server.
package common

// Request and response field names shared by client and server.
const (
	TokenField   = "token"
	VersionField = "version"
)

// Query names understood by the sync server.
const (
	QueryPing      = "ping"
	QueryLogin     = "login"
	QueryLogout    = "logout"
	QuerySync      = "sync"
	QueryLoggedOut = "loggedout"
)

// UserTable is the reserved table whose rows carry a plaintext userName
// lookup column next to the document.
const UserTable = "users"
