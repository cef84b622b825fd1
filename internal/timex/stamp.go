package timex

import (
	"fmt"
	"time"
)

// StampLayout is the persisted and wire format of record timestamps. It has
// second resolution and sorts lexicographically in time order.
const StampLayout = time.DateTime

// Epoch is the initial sync watermark of a fresh local store.
var Epoch = time.Date(1818, time.May, 5, 0, 0, 0, 0, time.UTC)

// Now returns the current UTC time truncated to whole seconds.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// FormatStamp renders t as UTC text in StampLayout.
func FormatStamp(t time.Time) string {
	return t.UTC().Format(StampLayout)
}

// ParseStamp parses a StampLayout string. Longer legacy values carrying a
// millisecond suffix (":000") are accepted and truncated.
func ParseStamp(s string) (time.Time, error) {
	if len(s) > len(StampLayout) {
		s = s[:len(StampLayout)]
	}
	t, err := time.ParseInLocation(StampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
