package common

import "strings"

// HasAnyFold reports whether s contains any of subs, ignoring case.
func HasAnyFold(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// MaskSecret keeps the last four characters of a secret for display.
func MaskSecret(s string) string {
	if s == "" {
		return "-"
	}
	r := []rune(s)
	if len(r) <= 4 {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}
