package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/flockhq/flock/internal/entities"
	"github.com/flockhq/flock/internal/repositories"
	"github.com/flockhq/flock/internal/services/authorization"
	"github.com/flockhq/flock/internal/validation"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// RecordServiceInterface defines the data operations on schema models
type RecordServiceInterface interface {
	Create(ctx context.Context, model string, fields map[string]any) (*entities.Record, error)
	Get(ctx context.Context, model, id string) (*entities.Record, error)
	Update(ctx context.Context, model, id string, fields map[string]any) (*entities.Record, error)
	Delete(ctx context.Context, model, id string) error
	List(ctx context.Context, model string, filter map[string]any) ([]*entities.Record, error)
	Related(ctx context.Context, model, id, relationship string) ([]*entities.Record, error)
}

// SchemaProvider returns the active schema
type SchemaProvider interface {
	Current() (*entities.Schema, error)
}

// RecordService enforces the schema and authorization rules on every data
// operation before delegating to the record store.
type RecordService struct {
	records  repositories.RecordRepository
	schemas  SchemaProvider
	checker  authorization.CheckerInterface
	validate *validator.Validate
	now      func() time.Time
}

// NewRecordService creates a new RecordService
func NewRecordService(records repositories.RecordRepository, schemas SchemaProvider, checker authorization.CheckerInterface) *RecordService {
	return &RecordService{
		records:  records,
		schemas:  schemas,
		checker:  checker,
		validate: validation.New(),
		now:      time.Now,
	}
}

// SetClock replaces the time source used for createdAt and updatedAt
func (s *RecordService) SetClock(now func() time.Time) {
	s.now = now
}

// Create validates fields and stores a new record with a generated ID
func (s *RecordService) Create(ctx context.Context, modelName string, fields map[string]any) (*entities.Record, error) {
	schema, model, err := s.authorize(ctx, modelName, entities.OperationCreate)
	if err != nil {
		return nil, err
	}

	values, err := s.coerceFields(schema, model, fields, true)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	record := &entities.Record{
		Model:     model.Name,
		ID:        uuid.NewString(),
		Fields:    values,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.checkReferences(ctx, schema, model, record.Fields, nil); err != nil {
		return nil, err
	}
	if err := s.checkUniques(ctx, model, record); err != nil {
		return nil, err
	}

	if err := s.records.Insert(ctx, model, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Get retrieves a record by ID
func (s *RecordService) Get(ctx context.Context, modelName, id string) (*entities.Record, error) {
	_, model, err := s.authorize(ctx, modelName, entities.OperationRead)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("%w: %s id is required", entities.ErrInvalidRecord, model.Name)
	}
	return s.records.Get(ctx, model, id)
}

// Update applies a partial update. Fields absent from the map keep their
// value; a nil value clears an optional field.
func (s *RecordService) Update(ctx context.Context, modelName, id string, fields map[string]any) (*entities.Record, error) {
	schema, model, err := s.authorize(ctx, modelName, entities.OperationUpdate)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("%w: %s id is required", entities.ErrInvalidRecord, model.Name)
	}

	changes, err := s.coerceFields(schema, model, fields, false)
	if err != nil {
		return nil, err
	}

	record, err := s.records.Get(ctx, model, id)
	if err != nil {
		return nil, err
	}

	previous := make(map[string]any, len(record.Fields))
	for name, value := range record.Fields {
		previous[name] = value
	}
	for name, value := range changes {
		record.Fields[name] = value
	}
	record.UpdatedAt = s.now().UTC()

	if err := s.checkReferences(ctx, schema, model, record.Fields, previous); err != nil {
		return nil, err
	}
	if err := s.checkUniques(ctx, model, record); err != nil {
		return nil, err
	}

	if err := s.records.Update(ctx, model, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Delete removes a record. Records still referenced through a belongsTo
// relationship are not deleted and an *entities.DependentsError is returned.
func (s *RecordService) Delete(ctx context.Context, modelName, id string) error {
	schema, model, err := s.authorize(ctx, modelName, entities.OperationDelete)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: %s id is required", entities.ErrInvalidRecord, model.Name)
	}

	exists, err := s.records.Exists(ctx, model, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s %s: %w", model.Name, id, entities.ErrNotFound)
	}

	depErr := &entities.DependentsError{Model: model.Name, ID: id, Dependents: map[string]int{}}
	for _, dep := range schema.Dependents(model.Name) {
		n, err := s.records.Count(ctx, dep.Model, entities.Filter{dep.ForeignKey: id})
		if err != nil {
			return fmt.Errorf("failed to count %s dependents: %w", dep.Model.Name, err)
		}
		if n > 0 {
			depErr.Dependents[dep.Model.Name] += n
		}
	}
	if len(depErr.Dependents) > 0 {
		return depErr
	}

	return s.records.Delete(ctx, model, id)
}

// List retrieves records whose fields equal every filter value
func (s *RecordService) List(ctx context.Context, modelName string, filter map[string]any) ([]*entities.Record, error) {
	schema, model, err := s.authorize(ctx, modelName, entities.OperationList)
	if err != nil {
		return nil, err
	}

	f, err := s.coerceFilter(schema, model, filter)
	if err != nil {
		return nil, err
	}
	return s.records.List(ctx, model, f)
}

// Related follows a relationship from a record. belongsTo yields the owning
// record (or nothing when the key is unset); hasMany and hasOne yield the
// records pointing back at it.
func (s *RecordService) Related(ctx context.Context, modelName, id, relationship string) ([]*entities.Record, error) {
	schema, model, err := s.authorize(ctx, modelName, entities.OperationRead)
	if err != nil {
		return nil, err
	}

	rel := model.GetRelationship(relationship)
	if rel == nil {
		return nil, fmt.Errorf("%w: %s has no relationship %q", entities.ErrUnknownRelation, model.Name, relationship)
	}
	target := schema.GetModel(rel.Target)
	if target == nil {
		return nil, fmt.Errorf("%w: %s", entities.ErrUnknownModel, rel.Target)
	}

	op := entities.OperationList
	if rel.Kind == entities.RelationshipBelongsTo {
		op = entities.OperationRead
	}
	if err := s.checker.Check(ctx, authorization.PrincipalFromContext(ctx), target, op); err != nil {
		return nil, err
	}

	record, err := s.records.Get(ctx, model, id)
	if err != nil {
		return nil, err
	}

	if rel.Kind == entities.RelationshipBelongsTo {
		fk, _ := record.Fields[rel.ForeignKey].(string)
		if fk == "" {
			return []*entities.Record{}, nil
		}
		owner, err := s.records.Get(ctx, target, fk)
		if errors.Is(err, entities.ErrNotFound) {
			return []*entities.Record{}, nil
		}
		if err != nil {
			return nil, err
		}
		return []*entities.Record{owner}, nil
	}

	related, err := s.records.List(ctx, target, entities.Filter{rel.ForeignKey: id})
	if err != nil {
		return nil, err
	}
	if rel.Kind == entities.RelationshipHasOne && len(related) > 1 {
		related = related[:1]
	}
	return related, nil
}

// authorize resolves the principal, the schema and the model and runs the
// policy check for the operation.
func (s *RecordService) authorize(ctx context.Context, modelName string, op entities.Operation) (*entities.Schema, *entities.Model, error) {
	principal := authorization.PrincipalFromContext(ctx)
	if principal == nil {
		return nil, nil, fmt.Errorf("%w: no api key presented", entities.ErrUnauthenticated)
	}

	schema, err := s.schemas.Current()
	if err != nil {
		return nil, nil, err
	}

	model := schema.GetModel(modelName)
	if model == nil {
		return nil, nil, fmt.Errorf("%w: %s", entities.ErrUnknownModel, modelName)
	}

	if err := s.checker.Check(ctx, principal, model, op); err != nil {
		return nil, nil, err
	}
	return schema, model, nil
}

// coerceFields validates raw input against the model. On create every
// declared field is returned, unset ones as nil.
func (s *RecordService) coerceFields(schema *entities.Schema, model *entities.Model, fields map[string]any, create bool) (map[string]any, error) {
	verr := &entities.ValidationError{Model: model.Name}

	for _, name := range sortedKeys(fields) {
		if model.GetField(name) == nil {
			verr.Add(name, "unknown field")
		}
	}

	out := make(map[string]any, len(model.Fields))
	for _, f := range model.Fields {
		raw, present := fields[f.Name]
		if !present && !create {
			continue
		}

		value, err := coerceValue(schema, f, raw)
		if err != nil {
			verr.Add(f.Name, "%v", err)
			continue
		}

		if value == nil {
			if f.Required {
				verr.Add(f.Name, "is required")
				continue
			}
			out[f.Name] = nil
			continue
		}

		if f.Format == entities.FormatE164 {
			if err := s.validate.Var(value, validation.E164Tag); err != nil {
				verr.Add(f.Name, "must be an E.164 phone number like +15551234567")
				continue
			}
		}
		out[f.Name] = value
	}

	if verr.HasIssues() {
		return nil, verr
	}
	return out, nil
}

func (s *RecordService) coerceFilter(schema *entities.Schema, model *entities.Model, filter map[string]any) (entities.Filter, error) {
	if len(filter) == 0 {
		return nil, nil
	}

	verr := &entities.ValidationError{Model: model.Name}
	out := make(entities.Filter, len(filter))
	for _, name := range sortedKeys(filter) {
		raw := filter[name]
		if name == entities.FieldID {
			out[name] = raw
			continue
		}
		f := model.GetField(name)
		if f == nil {
			verr.Add(name, "unknown field")
			continue
		}
		value, err := coerceValue(schema, f, raw)
		if err != nil {
			verr.Add(name, "%v", err)
			continue
		}
		out[name] = value
	}

	if verr.HasIssues() {
		return nil, verr
	}
	return out, nil
}

// coerceValue converts an input value to the stored type of the field.
// nil and the empty string both mean unset.
func coerceValue(schema *entities.Schema, f *entities.Field, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}

	switch f.Type {
	case entities.FieldTypeDate, entities.FieldTypeDateTime:
		var t time.Time
		switch v := raw.(type) {
		case time.Time:
			t = v
		case string:
			if v == "" {
				return nil, nil
			}
			layout := time.RFC3339Nano
			if f.Type == entities.FieldTypeDate {
				layout = entities.DateLayout
			}
			parsed, err := time.Parse(layout, v)
			if err != nil {
				if f.Type == entities.FieldTypeDate {
					return nil, fmt.Errorf("must be a date like 2006-01-02, got %q", v)
				}
				return nil, fmt.Errorf("must be an RFC 3339 datetime, got %q", v)
			}
			t = parsed
		default:
			return nil, fmt.Errorf("must be a %s, got %T", f.Type, raw)
		}
		t = t.UTC()
		if f.Type == entities.FieldTypeDate {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
		return t, nil

	default:
		v, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("must be a string, got %T", raw)
		}
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		if f.Type == entities.FieldTypeEnum {
			enum := schema.GetEnum(f.Enum)
			if enum == nil || !enum.Has(v) {
				var allowed []string
				if enum != nil {
					allowed = enum.Values
				}
				return nil, fmt.Errorf("must be one of %s, got %q", strings.Join(allowed, ", "), v)
			}
		}
		return v, nil
	}
}

// checkReferences verifies that every set belongsTo key points at an
// existing record. Keys unchanged from previous are skipped.
func (s *RecordService) checkReferences(ctx context.Context, schema *entities.Schema, model *entities.Model, fields, previous map[string]any) error {
	for _, rel := range model.BelongsTo() {
		fk, _ := fields[rel.ForeignKey].(string)
		if fk == "" {
			continue
		}
		if previous != nil && previous[rel.ForeignKey] == fk {
			continue
		}

		target := schema.GetModel(rel.Target)
		if target == nil {
			return fmt.Errorf("%w: %s", entities.ErrUnknownModel, rel.Target)
		}
		exists, err := s.records.Exists(ctx, target, fk)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s.%s references missing %s %s", entities.ErrDanglingReference, model.Name, rel.ForeignKey, target.Name, fk)
		}
	}
	return nil
}

// checkUniques reports a conflict when another record already holds the same
// values for a unique field set. Sets with an unset member are not checked.
func (s *RecordService) checkUniques(ctx context.Context, model *entities.Model, record *entities.Record) error {
	for _, fields := range model.Uniques {
		filter := make(entities.Filter, len(fields))
		for _, name := range fields {
			if record.Fields[name] == nil {
				filter = nil
				break
			}
			filter[name] = record.Fields[name]
		}
		if filter == nil {
			continue
		}

		existing, err := s.records.List(ctx, model, filter)
		if err != nil {
			return err
		}
		for _, other := range existing {
			if other.ID != record.ID {
				return fmt.Errorf("%w: %s with the same %s already exists (%s)", entities.ErrConflict, model.Name, strings.Join(fields, ", "), other.ID)
			}
		}
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
