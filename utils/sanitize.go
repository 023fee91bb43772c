package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Bot messages and user-authored prompts are plain text; strip any markup
// before it ever reaches storage or the model.
var sanitizer = bluemonday.StrictPolicy()

// Sanitize removes all HTML from user-supplied text.
func Sanitize(input string) string {
	return strings.TrimSpace(sanitizer.Sanitize(input))
}
