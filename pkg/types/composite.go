package types

import (
	"errors"
	"fmt"
	"strings"
)

// Helpers for Postgres composite literals like ("Rua A","12",,"Centro",...).
// Postgres quotes with doubled or backslash-escaped characters inside double
// quotes; we always emit the backslash form and accept both on the way in.

var errCompositeFieldCount = errors.New("composite: unexpected field count")

func quoteCompositeString(value string) string {
	var b strings.Builder
	b.Grow(len(value) + 2)
	b.WriteByte('"')
	for _, r := range value {
		if r == '\\' || r == '"' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

func quoteCompositeNullable(value *string) string {
	if value == nil {
		return "NULL"
	}
	return quoteCompositeString(*value)
}

func isCompositeNull(value string) bool {
	return strings.EqualFold(value, "NULL")
}

func newCompositeNullable(value string) *string {
	if isCompositeNull(value) {
		return nil
	}
	out := value
	return &out
}

// parseComposite splits a "(f1,f2,...)" literal into raw fields, honoring
// quoting and backslash escapes. expected <= 0 skips the arity check.
func parseComposite(raw string, expected int) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) < 2 || raw[0] != '(' || raw[len(raw)-1] != ')' {
		return nil, fmt.Errorf("composite: invalid format %q", raw)
	}

	var (
		fields   []string
		field    strings.Builder
		quoted   bool
		escaping bool
	)
	for i := 1; i < len(raw)-1; i++ {
		ch := raw[i]
		switch {
		case escaping:
			field.WriteByte(ch)
			escaping = false
		case ch == '\\':
			escaping = true
		case ch == '"':
			quoted = !quoted
		case ch == ',' && !quoted:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteByte(ch)
		}
	}
	fields = append(fields, field.String())

	if expected > 0 && len(fields) != expected {
		return nil, fmt.Errorf("%w: got %d expected %d", errCompositeFieldCount, len(fields), expected)
	}
	return fields, nil
}
