package entities

import "time"

// Schema is the compiled form of a .flock document
type Schema struct {
	Version       string // Schema version (UUIDv7)
	DSL           string // Original DSL text
	Checksum      string // SHA-256 of the DSL, hex encoded
	Enums         []*Enum
	Models        []*Model
	Authorization *AuthorizationConfig
	CreatedAt     time.Time
}

// SchemaVersion represents a lightweight schema version for listing
type SchemaVersion struct {
	Version   string
	Checksum  string
	CreatedAt time.Time
}

// AuthorizationConfig holds the schema-wide authorization block
type AuthorizationConfig struct {
	DefaultMode         string // Only "apiKey" is supported
	APIKeyExpiresInDays int
}

const (
	AuthorizationModeAPIKey    = "apiKey"
	DefaultAPIKeyExpiresInDays = 30
)

// DefaultAuthorization is used when a schema has no authorization block
func DefaultAuthorization() *AuthorizationConfig {
	return &AuthorizationConfig{
		DefaultMode:         AuthorizationModeAPIKey,
		APIKeyExpiresInDays: DefaultAPIKeyExpiresInDays,
	}
}

// APIKeyTTL returns how long a newly issued API key stays valid
func (a *AuthorizationConfig) APIKeyTTL() time.Duration {
	days := DefaultAPIKeyExpiresInDays
	if a != nil && a.APIKeyExpiresInDays > 0 {
		days = a.APIKeyExpiresInDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// Enum is a closed set of string literals
type Enum struct {
	Name   string
	Values []string
}

// Has reports whether value is one of the enum literals
func (e *Enum) Has(value string) bool {
	for _, v := range e.Values {
		if v == value {
			return true
		}
	}
	return false
}

// Dependent describes a model holding a foreign key to another model
type Dependent struct {
	Model      *Model
	ForeignKey string
}

// GetModel returns the model definition by name
func (s *Schema) GetModel(name string) *Model {
	for _, m := range s.Models {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// GetEnum returns the enum definition by name
func (s *Schema) GetEnum(name string) *Enum {
	for _, e := range s.Enums {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// Dependents returns every belongsTo edge that points at the named model
func (s *Schema) Dependents(modelName string) []Dependent {
	var deps []Dependent
	for _, m := range s.Models {
		for _, rel := range m.Relationships {
			if rel.Kind == RelationshipBelongsTo && rel.Target == modelName {
				deps = append(deps, Dependent{Model: m, ForeignKey: rel.ForeignKey})
			}
		}
	}
	return deps
}
