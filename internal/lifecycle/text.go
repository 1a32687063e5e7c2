package lifecycle

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Free-text fields arrive from HTML forms and are rendered back into pages,
// so markup is stripped before storage.
var textPolicy = bluemonday.StrictPolicy()

// cleanText strips markup and surrounding whitespace. Entities produced by
// the sanitizer are decoded again so stored text stays plain.
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}
