package sqlstore

import (
	"fmt"
	"strings"

	"github.com/flockhq/flock/internal/entities"
	"github.com/stoewer/go-strcase"
)

// Column names of the system fields every model table carries
const (
	columnID        = "id"
	columnCreatedAt = "created_at"
	columnUpdatedAt = "updated_at"
)

// TableName returns the table backing a model, e.g. MeetingRole -> meeting_role
func TableName(model string) string {
	return strcase.SnakeCase(model)
}

// ColumnName returns the column backing a field, e.g. personID -> person_id
func ColumnName(field string) string {
	switch field {
	case entities.FieldID:
		return columnID
	case entities.FieldCreatedAt:
		return columnCreatedAt
	case entities.FieldUpdatedAt:
		return columnUpdatedAt
	}
	return strcase.SnakeCase(field)
}

// GenerateDDL renders idempotent CREATE statements for every model table and
// index. Tables are ordered so that referenced tables come first.
func GenerateDDL(schema *entities.Schema, dialect Dialect) ([]string, error) {
	ordered, err := dependencyOrder(schema)
	if err != nil {
		return nil, err
	}

	var stmts []string
	for _, model := range ordered {
		stmts = append(stmts, createTable(schema, model, dialect))
		stmts = append(stmts, createIndexes(model, dialect)...)
	}
	return stmts, nil
}

func createTable(schema *entities.Schema, model *entities.Model, d Dialect) string {
	refs := make(map[string]string)
	for _, rel := range model.BelongsTo() {
		refs[rel.ForeignKey] = rel.Target
	}

	lines := []string{
		fmt.Sprintf("%s TEXT PRIMARY KEY", d.Quote(columnID)),
		fmt.Sprintf("%s %s NOT NULL", d.Quote(columnCreatedAt), d.timestampType()),
		fmt.Sprintf("%s %s NOT NULL", d.Quote(columnUpdatedAt), d.timestampType()),
	}

	for _, f := range model.Fields {
		col := d.Quote(ColumnName(f.Name))
		def := col + " " + d.columnType(f.Type)
		if f.Required {
			def += " NOT NULL"
		}
		if f.Type == entities.FieldTypeEnum {
			if enum := schema.GetEnum(f.Enum); enum != nil {
				literals := make([]string, len(enum.Values))
				for i, v := range enum.Values {
					literals[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
				}
				def += fmt.Sprintf(" CHECK (%s IN (%s))", col, strings.Join(literals, ", "))
			}
		}
		if target, ok := refs[f.Name]; ok {
			def += fmt.Sprintf(" REFERENCES %s (%s) ON DELETE RESTRICT", d.Quote(TableName(target)), d.Quote(columnID))
		}
		lines = append(lines, def)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)",
		d.Quote(TableName(model.Name)), strings.Join(lines, ",\n    "))
}

func createIndexes(model *entities.Model, d Dialect) []string {
	table := TableName(model.Name)
	var stmts []string

	for _, fields := range model.Uniques {
		cols := make([]string, len(fields))
		names := make([]string, len(fields))
		for i, f := range fields {
			names[i] = ColumnName(f)
			cols[i] = d.Quote(names[i])
		}
		stmts = append(stmts, fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s)",
			d.Quote("ux_"+table+"_"+strings.Join(names, "_")), d.Quote(table), strings.Join(cols, ", ")))
	}

	// Foreign keys are looked up on every delete of the referenced row
	for _, rel := range model.BelongsTo() {
		col := ColumnName(rel.ForeignKey)
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			d.Quote("ix_"+table+"_"+col), d.Quote(table), d.Quote(col)))
	}

	return stmts
}

// dependencyOrder sorts models so that every belongsTo target precedes the
// models pointing at it, keeping declaration order otherwise.
func dependencyOrder(schema *entities.Schema) ([]*entities.Model, error) {
	placed := make(map[string]bool, len(schema.Models))
	ordered := make([]*entities.Model, 0, len(schema.Models))

	for len(ordered) < len(schema.Models) {
		progressed := false
		for _, model := range schema.Models {
			if placed[model.Name] {
				continue
			}
			ready := true
			for _, rel := range model.BelongsTo() {
				if rel.Target != model.Name && !placed[rel.Target] {
					ready = false
					break
				}
			}
			if ready {
				placed[model.Name] = true
				ordered = append(ordered, model)
				progressed = true
			}
		}
		if !progressed {
			var pending []string
			for _, model := range schema.Models {
				if !placed[model.Name] {
					pending = append(pending, model.Name)
				}
			}
			return nil, fmt.Errorf("%w: circular belongsTo between %s", entities.ErrInvalidSchema, strings.Join(pending, ", "))
		}
	}

	return ordered, nil
}
