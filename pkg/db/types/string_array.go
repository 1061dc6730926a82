package dbtypes

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// StringArray maps a Postgres text[] column. Artwork photo paths use it so
// ordering survives round-trips.
type StringArray []string

func (a *StringArray) Scan(src any) error {
	if src == nil {
		*a = StringArray{}
		return nil
	}

	switch v := src.(type) {
	case string:
		return a.parseFromString(v)
	case []byte:
		return a.parseFromString(string(v))
	default:
		return fmt.Errorf("StringArray: unsupported Scan type %T", src)
	}
}

func (a StringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "{}", nil
	}
	parts := make([]string, 0, len(a))
	for _, s := range a {
		parts = append(parts, quoteArrayElement(s))
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

// Contains reports whether the array holds the exact value.
func (a StringArray) Contains(value string) bool {
	for _, s := range a {
		if s == value {
			return true
		}
	}
	return false
}

// Union appends the values not already present, preserving existing order.
func (a StringArray) Union(values []string) StringArray {
	out := make(StringArray, len(a), len(a)+len(values))
	copy(out, a)
	for _, v := range values {
		if !out.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

func (a *StringArray) parseFromString(s string) error {
	s = strings.TrimSpace(s)
	if s == "{}" || s == "" {
		*a = StringArray{}
		return nil
	}
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return fmt.Errorf("StringArray: malformed array literal %q", s)
	}
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")

	out := make([]string, 0)
	var sb strings.Builder
	inQuotes := false
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			sb.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			out = append(out, sb.String())
			sb.Reset()
		default:
			sb.WriteRune(r)
		}
	}
	out = append(out, sb.String())
	*a = StringArray(out)
	return nil
}

func quoteArrayElement(s string) string {
	if s == "" || strings.ContainsAny(s, `,{}" \`) {
		replaced := strings.ReplaceAll(s, `\`, `\\`)
		replaced = strings.ReplaceAll(replaced, `"`, `\"`)
		return `"` + replaced + `"`
	}
	return s
}
