package utils

import (
	"unicode"
)

// IsSeparator checks if a rune is a separator character
func IsSeparator(r rune) bool {
	return r == ' ' || r == '_' || r == '-' || r == '.' || r == '/'
}

// IsOnlyNumbers checks if a string consists entirely of numeric digits
func IsOnlyNumbers(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// ContainsSpecialChars checks if a string contains special characters
// (non-alphanumeric characters excluding common separators)
func ContainsSpecialChars(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !IsSeparator(r) {
			return true
		}
	}
	return false
}

// IsValidInput checks if an input should be offered dictionary completions.
// Returns false for strings that are only numbers, contain special characters,
// or are repetitive like "dddd".
func IsValidInput(s string) bool {
	if len(s) == 0 {
		return false
	}
	if IsOnlyNumbers(s) {
		return false
	}
	if ContainsSpecialChars(s) {
		return false
	}
	if IsRepetitive(s) {
		return false
	}
	return true
}

// IsRepetitive checks if a string consists of one repeated character
// (e.g. "aaa", "www"). Strings of length 2 or less are never repetitive.
func IsRepetitive(s string) bool {
	if len(s) <= 2 {
		return false
	}
	firstChar := s[0]
	for i := 1; i < len(s); i++ {
		if s[i] != firstChar {
			return false
		}
	}
	return true
}

// Dedup provides filtering of duplicate words while merging
// suggestions from several sources. The original input word is excluded too.
type Dedup struct {
	seen  map[string]bool
	input string
}

// NewDedup creates a filter that excludes the given input word
func NewDedup(input string) *Dedup {
	lower := toLowerASCII(input)
	return &Dedup{
		seen:  map[string]bool{lower: true},
		input: lower,
	}
}

// ShouldInclude reports whether word was not seen before and marks it seen.
func (d *Dedup) ShouldInclude(word string) bool {
	lower := toLowerASCII(word)
	if d.seen[lower] {
		return false
	}
	d.seen[lower] = true
	return true
}

func toLowerASCII(s string) string {
	b := []byte(s)
	changed := false
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(b)
}
