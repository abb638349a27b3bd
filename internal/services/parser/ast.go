package parser

// SchemaAST represents the parsed schema AST
type SchemaAST struct {
	Enums         []*EnumAST
	Models        []*ModelAST
	Authorization *AuthorizationAST // nil when the document has no authorization block
}

// EnumAST represents an enum declaration
// Example: "enum AttendanceStatus { PRESENT LATE EXCUSED ABSENT }"
type EnumAST struct {
	Name   string
	Values []string
}

// ModelAST represents a model definition in the AST
type ModelAST struct {
	Name          string
	Fields        []*FieldAST
	Relationships []*RelationshipAST
	Uniques       []*UniqueAST
	Rules         []*AllowAST
}

// FieldAST represents a field declaration
// Example: "field whatsappE164: string required format e164"
type FieldAST struct {
	Name     string
	Type     string // "string", "date", "datetime", "id" or an enum name
	Required bool
	Format   string
}

// RelationshipAST represents an association
// Example: "belongsTo person: Person(personID)"
type RelationshipAST struct {
	Kind       string // "hasMany", "hasOne", "belongsTo"
	Name       string
	Target     string
	ForeignKey string
}

// UniqueAST represents a unique constraint over one or more fields
// Example: "unique personID, meetingID"
type UniqueAST struct {
	Fields []string
}

// AllowAST represents an authorization rule
// Example: "allow publicApiKey to read, list when \"'reports' in principal.scopes\""
type AllowAST struct {
	Strategy     string
	Operations   []string
	Condition    string
	HasCondition bool
}

// AuthorizationAST represents the schema-wide authorization block
type AuthorizationAST struct {
	DefaultMode         string
	APIKeyExpiresInDays int
	HasExpiry           bool
}
