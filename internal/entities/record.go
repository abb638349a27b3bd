package entities

import "time"

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = time.RFC3339Nano
)

// System columns present on every model
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Record is a single row of a model.
// Field values are string for string, id and enum fields and time.Time
// for date and datetime fields. A nil value means the field is unset.
type Record struct {
	Model     string
	ID        string
	Fields    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Filter restricts List results to records whose fields equal the given values
type Filter map[string]any

// Encode flattens the record into wire form: system columns plus fields,
// with dates as YYYY-MM-DD and datetimes as RFC 3339.
func (r *Record) Encode(model *Model) map[string]any {
	out := make(map[string]any, len(r.Fields)+3)
	out[FieldID] = r.ID
	out[FieldCreatedAt] = r.CreatedAt.UTC().Format(DateTimeLayout)
	out[FieldUpdatedAt] = r.UpdatedAt.UTC().Format(DateTimeLayout)

	for name, value := range r.Fields {
		t, ok := value.(time.Time)
		if !ok {
			out[name] = value
			continue
		}
		layout := DateTimeLayout
		if model != nil {
			if f := model.GetField(name); f != nil && f.Type == FieldTypeDate {
				layout = DateLayout
			}
		}
		out[name] = t.UTC().Format(layout)
	}
	return out
}
