package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// IsAllLower reports whether s has no upper or title case letters.
func IsAllLower(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			return false
		}
	}
	return true
}

// IsAllUpper reports whether s has at least one letter and no lowercase letters.
func IsAllUpper(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters > 0
}

// IsMixedCase reports whether s has an uppercase letter after a lowercase one ("iPhone", "McDonald").
func IsMixedCase(s string) bool {
	seenLower := false
	for _, r := range s {
		if unicode.IsLower(r) {
			seenLower = true
		} else if seenLower && unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

// UppercaseFirst returns s with its first rune in title case.
func UppercaseFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToTitle(r)) + s[size:]
}

// IsBlank reports whether s is empty or whitespace only.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

