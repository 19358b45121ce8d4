package util

import (
	"net/url"
	"strings"
)

// MaskSecret hides sensitive parts of a string for safe display in logs.
// If the string is shorter than visiblePrefix, it is fully masked.
func MaskSecret(s string, visiblePrefix int) string {
	if len(s) <= visiblePrefix {
		return "***"
	}
	return s[:visiblePrefix] + "***"
}

// MaskURL hides the password of a URL's user info, such as the access key
// of a device farm connection URL. A string that does not parse keeps only
// its scheme.
func MaskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		scheme, _, found := strings.Cut(raw, "://")
		if !found {
			return MaskSecret(raw, 0)
		}
		return scheme + "://***"
	}
	return u.Redacted()
}
