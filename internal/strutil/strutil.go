// Package strutil provides the naming conventions that map property names
// to column names, plus small text helpers for terminal output.
package strutil

import (
	"strings"
	"unicode"
)

// -----------------------------------------------------------------------------
// Naming conventions
// -----------------------------------------------------------------------------

// ToSnakeCase converts a property name to snake_case.
// Examples: firstName -> first_name, HTTPServer -> http_server
func ToSnakeCase(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range s {
		switch {
		case unicode.IsUpper(r):
			// Break before an upper-case rune that follows a lower-case one,
			// or that starts a word after an acronym ("HTTPServer").
			if i > 0 {
				prev := rune(s[i-1])
				if unicode.IsLower(prev) || (i+1 < len(s) && unicode.IsLower(rune(s[i+1]))) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
		case r == '-' || r == ' ':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ToPascalCase converts a delimited name to PascalCase.
// Examples: first_name -> FirstName, first-name -> FirstName
func ToPascalCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	upper := true
	for _, r := range s {
		if r == '_' || r == '-' || r == ' ' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// ToCamelCase converts a delimited name to camelCase.
// Example: first_name -> firstName
func ToCamelCase(s string) string {
	pascal := []rune(ToPascalCase(s))
	if len(pascal) == 0 {
		return ""
	}
	pascal[0] = unicode.ToLower(pascal[0])
	return string(pascal)
}

// conventions maps convention names to converters. The empty name keeps
// property names unchanged.
var conventions = map[string]func(string) string{
	"":       func(s string) string { return s },
	"none":   func(s string) string { return s },
	"snake":  ToSnakeCase,
	"camel":  ToCamelCase,
	"pascal": ToPascalCase,
}

// Convention returns the converter registered under name.
func Convention(name string) (func(string) string, bool) {
	fn, ok := conventions[strings.ToLower(strings.TrimSpace(name))]
	return fn, ok
}

// -----------------------------------------------------------------------------
// Formatting
// -----------------------------------------------------------------------------

// Indent indents each non-empty line of text with the given number of spaces.
func Indent(text string, spaces int) string {
	prefix := strings.Repeat(" ", spaces)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
