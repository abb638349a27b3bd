package sqlstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/flockhq/flock/internal/entities"
)

// Dialect selects the SQL flavour a repository speaks
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// sqliteTimeLayout is fixed-width so that TEXT ordering matches time ordering
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// DialectFor maps a database/sql driver name to its dialect
func DialectFor(driver string) Dialect {
	switch driver {
	case "sqlite", "sqlite3":
		return DialectSQLite
	}
	return DialectPostgres
}

// Placeholder returns the n-th (1-based) bind parameter
func (d Dialect) Placeholder(n int) string {
	if d == DialectSQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

// Quote quotes an identifier
func (d Dialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (d Dialect) placeholders(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = d.Placeholder(from + i)
	}
	return strings.Join(parts, ", ")
}

func (d Dialect) columnType(t entities.FieldType) string {
	if d == DialectSQLite {
		return "TEXT"
	}
	switch t {
	case entities.FieldTypeDate:
		return "DATE"
	case entities.FieldTypeDateTime:
		return "TIMESTAMPTZ"
	}
	return "TEXT"
}

func (d Dialect) timestampType() string {
	if d == DialectSQLite {
		return "TEXT"
	}
	return "TIMESTAMPTZ"
}

func (d Dialect) timeValue(t time.Time) any {
	if d == DialectSQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t.UTC()
}

func (d Dialect) dateValue(t time.Time) any {
	return t.UTC().Format(entities.DateLayout)
}

var timeLayouts = []string{
	sqliteTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	entities.DateLayout,
}

// parseTime converts a scanned column value into a UTC time
func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case []byte:
		return parseTime(string(t))
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized time value %q", t)
	}
	return time.Time{}, fmt.Errorf("unexpected time column type %T", v)
}

// parseString converts a scanned column value into a string
func parseString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	}
	return "", fmt.Errorf("unexpected text column type %T", v)
}
