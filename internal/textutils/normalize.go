// Package textutils provides the text normalization and coercion helpers used when
// matching headers and reading cell values.
package textutils

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var whitespace = regexp.MustCompile(`\s+`)

// Normalize lowercases s, strips diacritics (é→e, ç→c, ...), trims it and collapses
// internal whitespace runs to a single space. Header matching compares normalized text.
func Normalize(s string) string {
	folded := FoldAccents(strings.ToLower(s))
	return whitespace.ReplaceAllString(strings.TrimSpace(folded), " ")
}

// FoldAccents removes combining marks after canonical decomposition.
func FoldAccents(s string) string {
	if isASCII(s) {
		return s
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// ContainsAny reports whether normalized text contains any of the keywords.
func ContainsAny(normalized string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

// Truncate shortens s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}

// CleanText trims s and truncates it to max runes.
func CleanText(s string, max int) string {
	return Truncate(strings.TrimSpace(s), max)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
