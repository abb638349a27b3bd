package entities

// FieldType is the storage type of a model field
type FieldType string

const (
	FieldTypeString   FieldType = "string"
	FieldTypeDate     FieldType = "date"
	FieldTypeDateTime FieldType = "datetime"
	FieldTypeID       FieldType = "id"
	FieldTypeEnum     FieldType = "enum"
)

// FormatE164 marks a string field that must hold an E.164 phone number
const FormatE164 = "e164"

// RelationshipKind is the direction of an association between two models
type RelationshipKind string

const (
	RelationshipHasMany   RelationshipKind = "hasMany"
	RelationshipHasOne    RelationshipKind = "hasOne"
	RelationshipBelongsTo RelationshipKind = "belongsTo"
)

// Model represents a model definition in the schema
// Example: "model Person { field fullName: string required }"
type Model struct {
	Name          string
	Fields        []*Field
	Relationships []*Relationship
	Uniques       [][]string // Each entry is a set of field names unique together
	Rules         []*AuthRule
}

// Field is a scalar attribute of a model
type Field struct {
	Name     string
	Type     FieldType
	Enum     string // Enum name when Type is FieldTypeEnum
	Required bool
	Format   string // Optional format constraint (e.g., "e164")
}

// Relationship links a model to another model through a foreign key.
// For belongsTo the key lives on the declaring model, otherwise on the target.
type Relationship struct {
	Name       string
	Kind       RelationshipKind
	Target     string
	ForeignKey string
}

// GetField returns the field definition by name
func (m *Model) GetField(name string) *Field {
	for _, f := range m.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// GetRelationship returns the relationship definition by name
func (m *Model) GetRelationship(name string) *Relationship {
	for _, r := range m.Relationships {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// BelongsTo returns the belongsTo relationships of the model
func (m *Model) BelongsTo() []*Relationship {
	var rels []*Relationship
	for _, r := range m.Relationships {
		if r.Kind == RelationshipBelongsTo {
			rels = append(rels, r)
		}
	}
	return rels
}

// RequiredFields returns the names of required fields in declaration order
func (m *Model) RequiredFields() []string {
	var names []string
	for _, f := range m.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}
