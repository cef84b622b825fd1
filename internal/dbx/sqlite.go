package dbx

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// SQLiteDSN builds a modernc.org/sqlite connection string for path with WAL
// journaling and the given busy timeout applied to every new connection.
func SQLiteDSN(path string, busyTimeout time.Duration) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// QuoteIdent quotes a SQL identifier. Identifiers can not be bound as query
// parameters, so callers must also check name against a known set.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
