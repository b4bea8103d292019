package http

import (
	"strings"
	"unicode/utf8"
)

// SanitizeString removes null bytes and invalid UTF-8 from user-supplied
// text before it reaches storage or the realtime fan-out.
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r != utf8.RuneError {
				v = append(v, r)
			}
		}
		s = string(v)
	}
	return s
}
