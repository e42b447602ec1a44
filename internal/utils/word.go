package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// IsWordChar checks if a rune belongs to a word token.
// Matches the editor's notion of 'iskeyword' for plain text:
// letters, digits and underscore.
func IsWordChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// IsWord checks if every rune of s is a word character.
// Empty strings are not words.
func IsWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !IsWordChar(r) {
			return false
		}
	}
	return true
}

// LastRune returns the final rune of s, or 0 for an empty string.
func LastRune(s string) rune {
	if s == "" {
		return 0
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

// WordPrefix returns the trailing word characters of line up to col (byte
// index), i.e. the partial word the cursor sits behind. col values past the
// end of line are clamped.
func WordPrefix(line string, col int) string {
	if col > len(line) {
		col = len(line)
	}
	if col < 0 {
		col = 0
	}
	start := col
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(line[:start])
		if !IsWordChar(r) {
			break
		}
		start -= size
	}
	return line[start:col]
}

// HasPrefixFold checks prefix match ignoring case.
func HasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	return strings.EqualFold(s[:len(prefix)], prefix)
}
