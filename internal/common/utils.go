package common

import "strings"

// NormalizeCode trims and uppercases an airport or airline code.
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// IsIATA returns true if s is exactly three uppercase ASCII letters.
func IsIATA(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
