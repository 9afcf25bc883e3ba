package render

import (
	"html"
	"html/template"
	"regexp"
	"strings"
)

var boldPattern = regexp.MustCompile(`\*\*(.*?)\*\*`)

// FormatText escapes s and then applies the only two markup rules the chat
// understands: **bold** becomes <strong> and newlines become <br>.
// Nesting and escaped asterisks are not handled.
func FormatText(s string) template.HTML {
	escaped := html.EscapeString(s)
	escaped = boldPattern.ReplaceAllString(escaped, "<strong>$1</strong>")
	escaped = strings.ReplaceAll(escaped, "\n", "<br>")
	return template.HTML(escaped)
}
