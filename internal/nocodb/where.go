package nocodb

import (
	"fmt"
	"strings"
)

// Eq builds a NocoDB where clause such as (file_hash,eq,abc).
func Eq(field string, value any) string {
	return Cond(field, "eq", value)
}

// Like matches value anywhere in field.
func Like(field, value string) string {
	return Cond(field, "like", "%"+value+"%")
}

func Cond(field, op string, value any) string {
	v := fmt.Sprint(value)
	// commas and parentheses terminate a NocoDB condition value
	v = strings.NewReplacer(",", " ", "(", " ", ")", " ").Replace(v)
	return fmt.Sprintf("(%s,%s,%s)", field, op, v)
}

// And joins non-empty conditions with ~and.
func And(conds ...string) string {
	return join("~and", conds)
}

// Or joins non-empty conditions with ~or.
func Or(conds ...string) string {
	out := join("~or", conds)
	if strings.Count(out, "~or") > 0 {
		return "(" + out + ")"
	}
	return out
}

func join(sep string, conds []string) string {
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, sep)
}
