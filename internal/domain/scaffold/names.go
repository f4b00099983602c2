package scaffold

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Segments splits a plugin name on hyphens, underscores and whitespace,
// dropping empty segments.
func Segments(name string) []string {
	return strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_' || unicode.IsSpace(r)
	})
}

// PascalCase title-cases every segment of name and joins them. The rest of
// each segment is left as written: "my-API_v2" becomes "MyAPIV2".
func PascalCase(name string) string {
	caser := cases.Title(language.English, cases.NoLower)
	var b strings.Builder
	for _, seg := range Segments(name) {
		b.WriteString(caser.String(seg))
	}
	return b.String()
}

// CamelCase is PascalCase with the first rune lowered.
func CamelCase(name string) string {
	pascal := PascalCase(name)
	if pascal == "" {
		return ""
	}
	runes := []rune(pascal)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

// KebabCase lowercases the segments of name and joins them with hyphens.
func KebabCase(name string) string {
	return joinLower(name, "-")
}

// SnakeCase lowercases the segments of name and joins them with underscores.
func SnakeCase(name string) string {
	return joinLower(name, "_")
}

func joinLower(name, sep string) string {
	segs := Segments(name)
	for i, s := range segs {
		segs[i] = strings.ToLower(s)
	}
	return strings.Join(segs, sep)
}
