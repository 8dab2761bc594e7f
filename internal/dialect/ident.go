package dialect

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/lazytbl/internal/lazyerr"
)

// QuoteIdent double-quotes a single identifier segment.
// Embedded double quotes are doubled; the name is NFC normalized first so
// visually identical names quote identically.
func QuoteIdent(name string) string {
	name = norm.NFC.String(name)
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteIdents quotes every name in names.
func QuoteIdents(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = QuoteIdent(n)
	}
	return out
}

// IdentFrom validates a loosely typed identifier (from plan files or flags).
// Fails with InvalidIdentifier for non-strings, empty strings and names
// containing NUL.
func IdentFrom(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", lazyerr.NewInvalidIdentifier(v, "identifier must be a string")
	}
	if err := ValidateIdent(s); err != nil {
		return "", err
	}
	return s, nil
}

// ValidateIdent checks that name can be quoted.
func ValidateIdent(name string) error {
	if strings.TrimSpace(name) == "" {
		return lazyerr.NewInvalidIdentifier(name, "identifier is empty")
	}
	if strings.ContainsRune(name, 0) {
		return lazyerr.NewInvalidIdentifier(name, "identifier contains NUL")
	}
	return nil
}

// QuoteTable renders a possibly schema-qualified table name. The schema is
// omitted when it is empty or equals the configured default schema.
func (c Context) QuoteTable(schema, table string) string {
	if schema == "" || schema == c.DefaultSchema() {
		return QuoteIdent(table)
	}
	return QuoteIdent(schema) + "." + QuoteIdent(table)
}

// ParseQualified splits "schema.table" (segments may be double-quoted) into
// its parts. A single segment yields an empty schema.
func ParseQualified(name string) (schema, table string, err error) {
	parts, err := splitQualified(name)
	if err != nil {
		return "", "", err
	}
	switch len(parts) {
	case 1:
		table = parts[0]
	case 2:
		schema, table = parts[0], parts[1]
	default:
		return "", "", lazyerr.NewInvalidIdentifier(name, "expected at most schema.table")
	}
	if len(parts) == 2 {
		if err := ValidateIdent(schema); err != nil {
			return "", "", err
		}
	}
	if err := ValidateIdent(table); err != nil {
		return "", "", err
	}
	return schema, table, nil
}

// QuoteQualified parses and quotes a dotted name in one step.
func (c Context) QuoteQualified(name string) (string, error) {
	schema, table, err := ParseQualified(name)
	if err != nil {
		return "", err
	}
	return c.QuoteTable(schema, table), nil
}

func splitQualified(name string) ([]string, error) {
	var parts []string
	var cur strings.Builder
	inQuote := false
	runes := []rune(name)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' && inQuote && i+1 < len(runes) && runes[i+1] == '"':
			cur.WriteRune('"')
			i++
		case r == '"':
			inQuote = !inQuote
		case r == '.' && !inQuote:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if inQuote {
		return nil, lazyerr.NewInvalidIdentifier(name, "unterminated quoted identifier")
	}
	return append(parts, cur.String()), nil
}
