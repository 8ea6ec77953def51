// File: lixenwraith/flatconf/helper.go
package flatconf

import (
	"strings"
	"unicode/utf8"
)

// joinPath appends segment to a dotted prefix
func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + "." + segment
}

// isValidKeySegment checks if a single path segment is a plain identifier.
// Only used for paths derived from Go structs; keys read from files are
// accepted verbatim.
func isValidKeySegment(s string) bool {
	if len(s) == 0 {
		return false
	}
	if strings.ContainsRune(s, '.') {
		return false // Segments themselves cannot contain dots
	}

	for _, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isUnderscore := r == '_'
		isDash := r == '-'

		if !(isLetter || isDigit || isUnderscore || isDash) {
			return false
		}
	}
	return true
}

// validLine reports whether a raw line can be tokenized; invalid UTF-8 is
// treated like any other malformed line.
func validLine(line string) bool {
	return utf8.ValidString(line)
}
