package textutil

import (
	"strings"
	"unicode"
)

// ContainsFold reports whether `substr` is within `s` ignoring case, it works
// for cyrillic as well as latin text.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// ContainsAnyFold reports whether any of `needles` is within `s` ignoring case.
func ContainsAnyFold(s string, needles []string) bool {
	lowered := strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(lowered, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// KeepAlphanumeric drops every rune that isn't an ascii letter or digit.
func KeepAlphanumeric(s string) string {
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// Mask replaces all but the last `visible` runes of `s` with '*'.
func Mask(s string, visible int) string {
	runes := []rune(s)
	if visible >= len(runes) {
		return s
	}
	if visible < 0 {
		visible = 0
	}
	hidden := len(runes) - visible
	return strings.Repeat("*", hidden) + string(runes[hidden:])
}

// IsCyrillic reports whether every letter in `s` is cyrillic, non-letters are ignored.
func IsCyrillic(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) && !unicode.Is(unicode.Cyrillic, r) {
			return false
		}
	}
	return true
}
