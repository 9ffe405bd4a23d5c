package helpers

import (
	"strconv"
	"time"
)

// Date formats the timestamp in the provided layout (defaults to 2006-01-02 15:04 MST).
func Date(ts time.Time, layout string) string {
	if layout == "" {
		layout = "2006-01-02 15:04 MST"
	}
	return ts.In(time.Local).Format(layout)
}

// Millis renders a duration as whole milliseconds for data attributes.
func Millis(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}
