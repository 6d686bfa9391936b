package validate

import (
	"regexp"
	"strings"
)

var (
	reID   = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	reDate = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`)
)

// ID validates a resource identifier (store, crate, offer, product ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// OptionalID accepts an empty value, otherwise behaves like ID.
func OptionalID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", true
	}
	return ID(s)
}

// Date checks the YYYY-MM-DD shape; calendar validity is checked by the domain.
func Date(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reDate.MatchString(s)
}

// Decision normalises a respond decision; only accepted/rejected pass.
func Decision(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	return s, s == "accepted" || s == "rejected"
}

// Text trims and bounds a free-form field.
func Text(s string, max int) (string, bool) {
	s = strings.TrimSpace(s)
	return s, len(s) <= max
}
