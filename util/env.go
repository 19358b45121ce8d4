package util

import (
	"strings"
	"unicode"
)

// SanitizeEnvValue cleans an environment variable value by removing surrounding
// quotes and trimming whitespace.
func SanitizeEnvValue(s string) string {
	s = strings.TrimSpace(s)
	// Strip matching surrounding quotes (single or double).
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = s[1 : len(s)-1]
		}
	}
	return strings.TrimSpace(s)
}

// EnvPair formats key and value as a KEY=value entry for a process
// environment. Control characters are dropped from both parts.
func EnvPair(key, value string) string {
	return dropControl(strings.TrimSpace(key)) + "=" + dropControl(SanitizeEnvValue(value))
}

func dropControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
