package parser

import (
	"fmt"
	"strings"

	"github.com/flockhq/flock/internal/entities"
)

var builtinTypes = map[string]bool{
	string(entities.FieldTypeString):   true,
	string(entities.FieldTypeDate):     true,
	string(entities.FieldTypeDateTime): true,
	string(entities.FieldTypeID):       true,
}

var knownFormats = map[string]bool{
	entities.FormatE164: true,
}

// reservedFields are managed by the record store on every model
var reservedFields = map[string]bool{
	entities.FieldID:        true,
	entities.FieldCreatedAt: true,
	entities.FieldUpdatedAt: true,
}

// Validator validates the parsed schema AST
type Validator struct {
	schema *SchemaAST
	errors []string
	models map[string]*ModelAST
	enums  map[string]*EnumAST
}

// NewValidator creates a new Validator
func NewValidator(schema *SchemaAST) *Validator {
	models := make(map[string]*ModelAST)
	for _, model := range schema.Models {
		models[model.Name] = model
	}
	enums := make(map[string]*EnumAST)
	for _, enum := range schema.Enums {
		enums[enum.Name] = enum
	}
	return &Validator{
		schema: schema,
		errors: []string{},
		models: models,
		enums:  enums,
	}
}

// Validate validates the schema and returns error if invalid
func (v *Validator) Validate() error {
	v.validateUniqueNames()
	v.validateEnums()
	for _, model := range v.schema.Models {
		v.validateModelMembers(model)
		v.validateFieldTypes(model)
		v.validateRelationships(model)
		v.validateUniques(model)
		v.validateRules(model)
	}
	v.validateAuthorization()

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors:\n%s", strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *Validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

// validateUniqueNames checks for duplicate model and enum names
func (v *Validator) validateUniqueNames() {
	seen := make(map[string]string)
	for _, enum := range v.schema.Enums {
		if _, dup := seen[enum.Name]; dup {
			v.addError("duplicate enum name: %s", enum.Name)
		}
		seen[enum.Name] = "enum"
	}
	for _, model := range v.schema.Models {
		if kind, dup := seen[model.Name]; dup {
			v.addError("duplicate model name: %s (already declared as %s)", model.Name, kind)
		}
		seen[model.Name] = "model"
	}
}

func (v *Validator) validateEnums() {
	for _, enum := range v.schema.Enums {
		if builtinTypes[enum.Name] {
			v.addError("enum %s: name shadows a builtin type", enum.Name)
		}
		if len(enum.Values) == 0 {
			v.addError("enum %s: must declare at least one value", enum.Name)
		}
		seen := make(map[string]bool)
		for _, value := range enum.Values {
			if seen[value] {
				v.addError("enum %s: duplicate value: %s", enum.Name, value)
			}
			seen[value] = true
		}
	}
}

// validateModelMembers checks for duplicate or reserved names within a model
func (v *Validator) validateModelMembers(model *ModelAST) {
	fields := make(map[string]bool)
	for _, field := range model.Fields {
		if reservedFields[field.Name] {
			v.addError("model %s: field name %s is reserved", model.Name, field.Name)
		}
		if fields[field.Name] {
			v.addError("model %s: duplicate field name: %s", model.Name, field.Name)
		}
		fields[field.Name] = true
	}

	relationships := make(map[string]bool)
	for _, rel := range model.Relationships {
		if relationships[rel.Name] {
			v.addError("model %s: duplicate relationship name: %s", model.Name, rel.Name)
		}
		if fields[rel.Name] {
			v.addError("model %s: name conflict between field and relationship: %s", model.Name, rel.Name)
		}
		relationships[rel.Name] = true
	}
}

// validateFieldTypes checks field types and format constraints
func (v *Validator) validateFieldTypes(model *ModelAST) {
	for _, field := range model.Fields {
		if !builtinTypes[field.Type] && v.enums[field.Type] == nil {
			v.addError("model %s: field %s has unknown type: %s", model.Name, field.Name, field.Type)
		}
		if field.Format == "" {
			continue
		}
		if !knownFormats[field.Format] {
			v.addError("model %s: field %s has unknown format: %s", model.Name, field.Name, field.Format)
		} else if field.Type != string(entities.FieldTypeString) {
			v.addError("model %s: format %s requires a string field, %s is %s", model.Name, field.Format, field.Name, field.Type)
		}
	}
}

// validateRelationships checks targets, foreign keys and reciprocity.
// Every belongsTo needs a hasMany or hasOne on the target over the same key, and vice versa.
func (v *Validator) validateRelationships(model *ModelAST) {
	for _, rel := range model.Relationships {
		target := v.models[rel.Target]
		if target == nil {
			v.addError("model %s: relationship %s references undefined model: %s", model.Name, rel.Name, rel.Target)
			continue
		}

		switch rel.Kind {
		case "belongsTo":
			fk := findField(model, rel.ForeignKey)
			if fk == nil {
				v.addError("model %s: belongsTo %s uses undefined foreign key field: %s", model.Name, rel.Name, rel.ForeignKey)
			} else if fk.Type != string(entities.FieldTypeID) {
				v.addError("model %s: foreign key %s must be of type id, got %s", model.Name, rel.ForeignKey, fk.Type)
			}
			if !hasReciprocal(target, model.Name, rel.ForeignKey, "hasMany", "hasOne") {
				v.addError("model %s: belongsTo %s has no matching hasMany or hasOne on %s with key %s",
					model.Name, rel.Name, target.Name, rel.ForeignKey)
			}

		case "hasMany", "hasOne":
			fk := findField(target, rel.ForeignKey)
			if fk == nil {
				v.addError("model %s: %s %s references undefined field %s on %s", model.Name, rel.Kind, rel.Name, rel.ForeignKey, target.Name)
			}
			if !hasReciprocal(target, model.Name, rel.ForeignKey, "belongsTo") {
				v.addError("model %s: %s %s has no matching belongsTo on %s with key %s",
					model.Name, rel.Kind, rel.Name, target.Name, rel.ForeignKey)
			}

		default:
			v.addError("model %s: unknown relationship kind: %s", model.Name, rel.Kind)
		}
	}
}

func (v *Validator) validateUniques(model *ModelAST) {
	for _, unique := range model.Uniques {
		seen := make(map[string]bool)
		for _, name := range unique.Fields {
			if findField(model, name) == nil {
				v.addError("model %s: unique constraint references undefined field: %s", model.Name, name)
			}
			if seen[name] {
				v.addError("model %s: unique constraint lists %s twice", model.Name, name)
			}
			seen[name] = true
		}
	}
}

// validateRules checks authorization rules. Every model must be reachable by at least one rule.
func (v *Validator) validateRules(model *ModelAST) {
	if len(model.Rules) == 0 {
		v.addError("model %s: no allow rules declared", model.Name)
	}
	for _, rule := range model.Rules {
		if entities.AuthStrategy(rule.Strategy) != entities.StrategyPublicAPIKey {
			v.addError("model %s: unknown authorization strategy: %s", model.Name, rule.Strategy)
		}
		for _, op := range rule.Operations {
			if _, ok := entities.ParseOperation(op); !ok {
				v.addError("model %s: unknown operation: %s", model.Name, op)
			}
		}
		if rule.HasCondition && strings.TrimSpace(rule.Condition) == "" {
			v.addError("model %s: allow %s has empty when condition", model.Name, rule.Strategy)
		}
	}
}

func (v *Validator) validateAuthorization() {
	auth := v.schema.Authorization
	if auth == nil {
		return
	}
	if auth.DefaultMode != "" && auth.DefaultMode != entities.AuthorizationModeAPIKey {
		v.addError("authorization: unsupported default mode: %s", auth.DefaultMode)
	}
	if auth.HasExpiry && (auth.APIKeyExpiresInDays < 1 || auth.APIKeyExpiresInDays > 365) {
		v.addError("authorization: apiKey expiresInDays must be between 1 and 365, got %d", auth.APIKeyExpiresInDays)
	}
}

func findField(model *ModelAST, name string) *FieldAST {
	for _, f := range model.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func hasReciprocal(target *ModelAST, owner, foreignKey string, kinds ...string) bool {
	for _, rel := range target.Relationships {
		if rel.Target != owner || rel.ForeignKey != foreignKey {
			continue
		}
		for _, k := range kinds {
			if rel.Kind == k {
				return true
			}
		}
	}
	return false
}
