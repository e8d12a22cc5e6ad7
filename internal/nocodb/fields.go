package nocodb

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// ToCamel converts a NocoDB column name to its API field name:
// process_number -> processNumber, Id -> id, CreatedAt -> createdAt.
func ToCamel(s string) string {
	var b strings.Builder
	upperNext := false
	for i, r := range s {
		switch {
		case r == '_' || r == '-' || r == ' ':
			upperNext = b.Len() > 0
		case i == 0 || b.Len() == 0:
			b.WriteRune(unicode.ToLower(r))
		case upperNext:
			b.WriteRune(unicode.ToUpper(r))
			upperNext = false
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ToSnake converts an API field name to a column name: processNumber -> process_number.
func ToSnake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
			nextLower := i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1])
			if prevLower || nextLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CamelKeys returns a copy of m with keys converted by ToCamel, recursing into
// nested objects and arrays.
func CamelKeys(m map[string]any) map[string]any {
	return convertKeys(m, ToCamel)
}

// SnakeKeys is the inverse of CamelKeys.
func SnakeKeys(m map[string]any) map[string]any {
	return convertKeys(m, ToSnake)
}

func convertKeys(m map[string]any, conv func(string) string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[conv(k)] = convertValue(v, conv)
	}
	return out
}

func convertValue(v any, conv func(string) string) any {
	switch t := v.(type) {
	case map[string]any:
		return convertKeys(t, conv)
	case Record:
		return convertKeys(t, conv)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = convertValue(e, conv)
		}
		return out
	default:
		return v
	}
}

// Decode maps a row onto v, a struct with camelCase json tags. Only top-level
// column names are converted; JSON held in text columns is left untouched.
// Id and *_id columns decode as strings. When a snake_case column and a
// system column share a field name (created_at and CreatedAt), the snake_case
// column wins.
func Decode(rec Record, v any) error {
	camel := make(map[string]any, len(rec))
	for k, val := range rec {
		name := ToCamel(k)
		if _, taken := camel[name]; taken && !strings.Contains(k, "_") {
			continue
		}
		// key columns may be numeric in NocoDB; API ids are strings
		if val != nil && (name == "id" || strings.HasSuffix(k, "_id")) {
			val = idString(val)
		}
		camel[name] = val
	}
	b, err := json.Marshal(camel)
	if err != nil {
		return fmt.Errorf("nocodb: decode row: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("nocodb: decode row: %w", err)
	}
	return nil
}

// Encode turns v into a writable row with snake_case column names. Primary key
// and system timestamps are dropped; NocoDB owns them.
func Encode(v any) (Record, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("nocodb: encode row: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("nocodb: encode row: %w", err)
	}
	rec := make(Record, len(m))
	for k, val := range m {
		switch k {
		case "id", "createdAt", "updatedAt":
			continue
		}
		rec[ToSnake(k)] = val
	}
	return rec, nil
}
