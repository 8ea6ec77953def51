// FILE: lixenwraith/flatconf/token.go
package flatconf

import "strings"

const schemaSeparator = "->"

// ParseLine splits one configuration line into key and value.
// Blank lines, lines starting with '#' or ';', lines without '=' and lines
// with an empty key or value report ok == false. The line is split on its
// first '=' so values may contain further '=' characters. Returned strings
// are substrings of line.
func ParseLine(line string) (key, value string, ok bool) {
	l := strings.TrimSpace(line)
	if l == "" {
		return "", "", false
	}
	if l[0] == '#' || l[0] == ';' {
		return "", "", false
	}
	return splitPair(l, "=")
}

// ParseSchemaLine splits one schema line of the form "path -> type".
// Unlike ParseLine there is no comment syntax: a line such as "# x -> bool"
// declares the key "# x".
func ParseSchemaLine(line string) (key, typeName string, ok bool) {
	l := strings.TrimSpace(line)
	if l == "" {
		return "", "", false
	}
	return splitPair(l, schemaSeparator)
}

func splitPair(l, sep string) (string, string, bool) {
	k, v, found := strings.Cut(l, sep)
	if !found {
		return "", "", false
	}
	k = strings.TrimSpace(k)
	v = strings.TrimSpace(v)
	if k == "" || v == "" {
		return "", "", false
	}
	return k, v, true
}
