package tabular

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/meridian-data/searchbridge/internal/domain"
)

// DefaultQueryLimit caps SELECTs that do not ask for a limit.
const DefaultQueryLimit = 100

// MaxQueryLimit is the hard ceiling for a single SELECT.
const MaxQueryLimit = 1000

var identRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func isIdentifier(s string) bool {
	return len(s) <= 64 && identRegex.MatchString(s)
}

// buildSelect renders a filtered SELECT. Filters are conjunctive equality
// predicates, rendered in sorted column order so the statement is stable.
func buildSelect(table string, filters map[string]any, limit int) (string, []any, error) {
	if !isIdentifier(table) {
		return "", nil, fmt.Errorf("%w: invalid table name %q", domain.ErrInvalidQuery, table)
	}
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `SELECT * FROM %q`, table)

	args, err := appendWhere(&sb, filters, 0)
	if err != nil {
		return "", nil, err
	}

	fmt.Fprintf(&sb, " LIMIT %d", limit)
	return sb.String(), args, nil
}

func buildInsert(table string, values map[string]any) (string, []any, error) {
	if !isIdentifier(table) {
		return "", nil, fmt.Errorf("%w: invalid table name %q", domain.ErrInvalidQuery, table)
	}
	if len(values) == 0 {
		return "", nil, fmt.Errorf("%w: insert with no values", domain.ErrInvalidQuery)
	}

	cols := sortedKeys(values)
	args := make([]any, 0, len(cols))
	placeholders := make([]string, 0, len(cols))
	quoted := make([]string, 0, len(cols))
	for i, c := range cols {
		if !isIdentifier(c) {
			return "", nil, fmt.Errorf("%w: invalid column name %q", domain.ErrInvalidQuery, c)
		}
		quoted = append(quoted, fmt.Sprintf("%q", c))
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, values[c])
	}

	q := fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s)`,
		table, strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
	return q, args, nil
}

func buildUpdate(table string, values, filters map[string]any) (string, []any, error) {
	if !isIdentifier(table) {
		return "", nil, fmt.Errorf("%w: invalid table name %q", domain.ErrInvalidQuery, table)
	}
	if len(values) == 0 {
		return "", nil, fmt.Errorf("%w: update with no values", domain.ErrInvalidQuery)
	}
	if len(filters) == 0 {
		return "", nil, fmt.Errorf("%w: update without filters", domain.ErrInvalidQuery)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `UPDATE %q SET `, table)

	cols := sortedKeys(values)
	args := make([]any, 0, len(cols)+len(filters))
	for i, c := range cols {
		if !isIdentifier(c) {
			return "", nil, fmt.Errorf("%w: invalid column name %q", domain.ErrInvalidQuery, c)
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, `%q = $%d`, c, len(args)+1)
		args = append(args, values[c])
	}

	whereArgs, err := appendWhere(&sb, filters, len(args))
	if err != nil {
		return "", nil, err
	}
	return sb.String(), append(args, whereArgs...), nil
}

func buildDelete(table string, filters map[string]any) (string, []any, error) {
	if !isIdentifier(table) {
		return "", nil, fmt.Errorf("%w: invalid table name %q", domain.ErrInvalidQuery, table)
	}
	if len(filters) == 0 {
		return "", nil, fmt.Errorf("%w: delete without filters", domain.ErrInvalidQuery)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `DELETE FROM %q`, table)

	args, err := appendWhere(&sb, filters, 0)
	if err != nil {
		return "", nil, err
	}
	return sb.String(), args, nil
}

// appendWhere renders " WHERE a = $n AND b = $n+1" in sorted column order.
// argOffset is the number of placeholders already emitted.
func appendWhere(sb *strings.Builder, filters map[string]any, argOffset int) ([]any, error) {
	if len(filters) == 0 {
		return nil, nil
	}

	cols := sortedKeys(filters)
	args := make([]any, 0, len(cols))
	sb.WriteString(" WHERE ")
	for i, c := range cols {
		if !isIdentifier(c) {
			return nil, fmt.Errorf("%w: invalid column name %q", domain.ErrInvalidQuery, c)
		}
		if i > 0 {
			sb.WriteString(" AND ")
		}
		fmt.Fprintf(sb, `%q = $%d`, c, argOffset+len(args)+1)
		args = append(args, filters[c])
	}
	return args, nil
}

// validateReadOnly accepts a single SELECT or WITH statement. The check is
// lexical, the database user's grants are the real enforcement.
func validateReadOnly(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return fmt.Errorf("%w: empty query", domain.ErrInvalidQuery)
	}
	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return fmt.Errorf("%w: only SELECT statements are allowed", domain.ErrInvalidQuery)
	}
	if strings.Contains(strings.TrimRight(trimmed, "; \t\n"), ";") {
		return fmt.Errorf("%w: multiple statements are not allowed", domain.ErrInvalidQuery)
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
