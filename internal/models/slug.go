package models

import (
	"errors"
	"strings"
	"unicode"
)

// Slugify lowercases s and joins its letter/digit runs with dashes.
// Non-ASCII letters are kept so non-Latin names still produce a slug.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}

func slugRule(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if Slugify(s) != s {
		return errors.New("must be lowercase letters, digits and single dashes")
	}
	return nil
}
