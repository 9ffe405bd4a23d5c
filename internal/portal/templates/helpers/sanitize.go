package helpers

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var noticePolicy = bluemonday.StrictPolicy()

// SanitizeNotice strips markup from server-provided text. The result is
// already escaped and must be written raw.
func SanitizeNotice(text string) string {
	return strings.TrimSpace(noticePolicy.Sanitize(text))
}
