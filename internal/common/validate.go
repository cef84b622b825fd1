package common

import "fmt"

// MustIdentify panics with ErrValidation when a write names no table or no
// record. Such calls are programming errors, not runtime conditions.
func MustIdentify(table, uuid string) {
	if table == "" {
		panic(fmt.Errorf("%w: empty table name", ErrValidation))
	}
	if uuid == "" {
		panic(fmt.Errorf("%w: empty uuid for table %s", ErrValidation, table))
	}
}
