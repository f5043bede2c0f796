package advisory

import (
	"html"
	"regexp"
	"strings"
)

// Common UTF-8-read-as-Latin-1 sequences seen in feed text.
var mojibake = strings.NewReplacer(
	"â€™", "’",
	"â€œ", "“",
	"â€\u009d", "”",
	"â€\ufffd", "”",
	"â€“", "–",
	"â€”", "—",
	"â€¦", "…",
	"Ã©", "é",
	"Ã¨", "è",
	"Ãª", "ê",
	"Ã¡", "á",
	"Ã³", "ó",
	"Ã±", "ñ",
	"Ã¼", "ü",
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	tags       = regexp.MustCompile(`<[^>]+>`)
)

// DecodeSummary unescapes HTML entities, repairs mojibake and collapses
// whitespace. It repeats until the text stops changing, so
// DecodeSummary(DecodeSummary(s)) == DecodeSummary(s).
func DecodeSummary(s string) string {
	for {
		next := decodeOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func decodeOnce(s string) string {
	s = html.UnescapeString(s)
	s = mojibake.Replace(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// StripTags removes markup tags, leaving their text content.
func StripTags(s string) string {
	return strings.TrimSpace(tags.ReplaceAllString(s, ""))
}
