package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/flockhq/flock/internal/entities"
	"github.com/flockhq/flock/internal/repositories"
)

// RecordRepository implements repositories.RecordRepository over one table per model
type RecordRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *sql.DB, dialect Dialect) repositories.RecordRepository {
	return &RecordRepository{db: db, dialect: dialect}
}

// Insert stores a new record
func (r *RecordRepository) Insert(ctx context.Context, model *entities.Model, record *entities.Record) error {
	cols := []string{r.dialect.Quote(columnID), r.dialect.Quote(columnCreatedAt), r.dialect.Quote(columnUpdatedAt)}
	args := []any{record.ID, r.dialect.timeValue(record.CreatedAt), r.dialect.timeValue(record.UpdatedAt)}

	for _, f := range model.Fields {
		cols = append(cols, r.dialect.Quote(ColumnName(f.Name)))
		args = append(args, r.encode(f, record.Fields[f.Name]))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		r.dialect.Quote(TableName(model.Name)), strings.Join(cols, ", "), r.dialect.placeholders(1, len(args)))

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert %s: %w", model.Name, classify(err))
	}
	return nil
}

// Get retrieves a record by ID
func (r *RecordRepository) Get(ctx context.Context, model *entities.Model, id string) (*entities.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		r.selectList(model), r.dialect.Quote(TableName(model.Name)), r.dialect.Quote(columnID), r.dialect.Placeholder(1))

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", model.Name, err)
	}
	records, err := r.scanAll(model, rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s %s: %w", model.Name, id, entities.ErrNotFound)
	}
	return records[0], nil
}

// Update overwrites every field of an existing record and its updatedAt
func (r *RecordRepository) Update(ctx context.Context, model *entities.Model, record *entities.Record) error {
	sets := []string{fmt.Sprintf("%s = %s", r.dialect.Quote(columnUpdatedAt), r.dialect.Placeholder(1))}
	args := []any{r.dialect.timeValue(record.UpdatedAt)}

	for _, f := range model.Fields {
		args = append(args, r.encode(f, record.Fields[f.Name]))
		sets = append(sets, fmt.Sprintf("%s = %s", r.dialect.Quote(ColumnName(f.Name)), r.dialect.Placeholder(len(args))))
	}
	args = append(args, record.ID)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		r.dialect.Quote(TableName(model.Name)), strings.Join(sets, ", "), r.dialect.Quote(columnID), r.dialect.Placeholder(len(args)))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", model.Name, classify(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", model.Name, record.ID, entities.ErrNotFound)
	}
	return nil
}

// Delete removes a record by ID
func (r *RecordRepository) Delete(ctx context.Context, model *entities.Model, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		r.dialect.Quote(TableName(model.Name)), r.dialect.Quote(columnID), r.dialect.Placeholder(1))

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		err = classify(err)
		// A foreign key violation on delete means other rows still point here
		if errors.Is(err, entities.ErrDanglingReference) {
			return fmt.Errorf("failed to delete %s %s: %w: record is still referenced", model.Name, id, entities.ErrConflict)
		}
		return fmt.Errorf("failed to delete %s: %w", model.Name, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", model.Name, id, entities.ErrNotFound)
	}
	return nil
}

// List retrieves records matching the filter, ordered by creation time
func (r *RecordRepository) List(ctx context.Context, model *entities.Model, filter entities.Filter) ([]*entities.Record, error) {
	where, args, err := r.buildWhere(model, filter)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s, %s",
		r.selectList(model), r.dialect.Quote(TableName(model.Name)), where,
		r.dialect.Quote(columnCreatedAt), r.dialect.Quote(columnID))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", model.Name, err)
	}
	return r.scanAll(model, rows)
}

// Count returns the number of records matching the filter
func (r *RecordRepository) Count(ctx context.Context, model *entities.Model, filter entities.Filter) (int, error) {
	where, args, err := r.buildWhere(model, filter)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", r.dialect.Quote(TableName(model.Name)), where)

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", model.Name, err)
	}
	return count, nil
}

// Exists checks if a record with the given ID exists
func (r *RecordRepository) Exists(ctx context.Context, model *entities.Model, id string) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s = %s",
		r.dialect.Quote(TableName(model.Name)), r.dialect.Quote(columnID), r.dialect.Placeholder(1))

	var one int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s existence: %w", model.Name, err)
	}
	return true, nil
}

func (r *RecordRepository) selectList(model *entities.Model) string {
	cols := []string{r.dialect.Quote(columnID), r.dialect.Quote(columnCreatedAt), r.dialect.Quote(columnUpdatedAt)}
	for _, f := range model.Fields {
		cols = append(cols, r.dialect.Quote(ColumnName(f.Name)))
	}
	return strings.Join(cols, ", ")
}

// buildWhere renders an equality filter. Keys are sorted so queries are stable.
func (r *RecordRepository) buildWhere(model *entities.Model, filter entities.Filter) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var conds []string
	var args []any
	for _, key := range keys {
		value := filter[key]
		var col string
		if key == entities.FieldID {
			col = columnID
		} else {
			f := model.GetField(key)
			if f == nil {
				return "", nil, fmt.Errorf("%w: %s has no field %q to filter on", entities.ErrInvalidRecord, model.Name, key)
			}
			col = ColumnName(f.Name)
			value = r.encode(f, value)
		}

		if value == nil {
			conds = append(conds, r.dialect.Quote(col)+" IS NULL")
			continue
		}
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = %s", r.dialect.Quote(col), r.dialect.Placeholder(len(args))))
	}

	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// encode converts a field value into a driver argument
func (r *RecordRepository) encode(f *entities.Field, value any) any {
	t, ok := value.(time.Time)
	if !ok {
		return value
	}
	if f.Type == entities.FieldTypeDate {
		return r.dialect.dateValue(t)
	}
	return r.dialect.timeValue(t)
}

// scanAll drains and closes rows before returning
func (r *RecordRepository) scanAll(model *entities.Model, rows *sql.Rows) ([]*entities.Record, error) {
	defer rows.Close()

	width := 3 + len(model.Fields)
	var records []*entities.Record
	for rows.Next() {
		values := make([]any, width)
		ptrs := make([]any, width)
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", model.Name, err)
		}

		record, err := decodeRecord(model, values)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", model.Name, err)
	}

	return records, nil
}

func decodeRecord(model *entities.Model, values []any) (*entities.Record, error) {
	id, err := parseString(values[0])
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s id: %w", model.Name, err)
	}
	createdAt, err := parseTime(values[1])
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s createdAt: %w", model.Name, err)
	}
	updatedAt, err := parseTime(values[2])
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s updatedAt: %w", model.Name, err)
	}

	record := &entities.Record{
		Model:     model.Name,
		ID:        id,
		Fields:    make(map[string]any, len(model.Fields)),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}

	for i, f := range model.Fields {
		raw := values[3+i]
		if raw == nil {
			record.Fields[f.Name] = nil
			continue
		}

		var value any
		switch f.Type {
		case entities.FieldTypeDate, entities.FieldTypeDateTime:
			value, err = parseTime(raw)
		default:
			value, err = parseString(raw)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s.%s: %w", model.Name, f.Name, err)
		}
		record.Fields[f.Name] = value
	}

	return record, nil
}
