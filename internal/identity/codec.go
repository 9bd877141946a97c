// Package identity decodes the opaque identity tokens clients pass on the
// wire and validates the addresses they decode to.
package identity

import (
	"encoding/base64"
	"regexp"
	"strings"
)

// minTokenLen is the shortest possible encoded identity; anything shorter
// cannot decode to a usable address.
const minTokenLen = 7

var emailPattern = regexp.MustCompile(`(?i)^[a-z0-9_+.-]+@[a-z0-9.-]+\.[a-z0-9]{2,}$`)

// Decode converts a URL-safe base64 identity token back to the address it
// encodes. It returns "" for tokens that are too short or undecodable;
// callers must still run the result through ValidEmail before use.
func Decode(token string) string {
	if len(token) < minTokenLen {
		return ""
	}
	s := strings.ReplaceAll(token, "-", "+")
	s = strings.ReplaceAll(s, "_", "/")
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return ""
	}
	return string(raw)
}

// ValidEmail reports whether s is a well-formed address: local@domain with a
// top-level label of at least two characters, case-insensitive.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}
