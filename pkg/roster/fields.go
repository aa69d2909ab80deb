package roster

import (
	"regexp"
	"strings"
)

var phonePattern = regexp.MustCompile(`^\+?[\d\s\-()]{7,}$`)

// ValidPhone reports whether value is an optional leading plus sign followed by at
// least seven digits, whitespace, hyphens or parentheses.
func ValidPhone(value string) bool {
	return phonePattern.MatchString(value)
}

// SplitFields tokenizes one CSV line.
//
// A double quote toggles quoted mode; inside quoted mode a doubled quote yields a
// literal quote. A comma outside quoted mode ends the current field. Every field is
// trimmed of surrounding whitespace. The result always holds at least one field.
func SplitFields(line string) []string {
	fields := make([]string, 0, 8)
	var current strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"' && inQuotes && i+1 < len(line) && line[i+1] == '"':
			current.WriteByte('"')
			i++
		case ch == '"':
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}

	return append(fields, strings.TrimSpace(current.String()))
}

// cleanCell strips at most one leading and one trailing quote, then whitespace.
func cleanCell(fields []string, index int) string {
	if index < 0 || index >= len(fields) {
		return ""
	}
	value := strings.TrimPrefix(fields[index], `"`)
	value = strings.TrimSuffix(value, `"`)
	return strings.TrimSpace(value)
}
