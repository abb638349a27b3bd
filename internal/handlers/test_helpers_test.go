package handlers

import (
	"context"

	"github.com/flockhq/flock/internal/entities"
)

// Mock RecordService
type mockRecordService struct {
	createFunc  func(ctx context.Context, model string, fields map[string]any) (*entities.Record, error)
	getFunc     func(ctx context.Context, model, id string) (*entities.Record, error)
	updateFunc  func(ctx context.Context, model, id string, fields map[string]any) (*entities.Record, error)
	deleteFunc  func(ctx context.Context, model, id string) error
	listFunc    func(ctx context.Context, model string, filter map[string]any) ([]*entities.Record, error)
	relatedFunc func(ctx context.Context, model, id, relationship string) ([]*entities.Record, error)
}

func (m *mockRecordService) Create(ctx context.Context, model string, fields map[string]any) (*entities.Record, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, model, fields)
	}
	return &entities.Record{Model: model, ID: "id-1", Fields: fields}, nil
}

func (m *mockRecordService) Get(ctx context.Context, model, id string) (*entities.Record, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, model, id)
	}
	return nil, entities.ErrNotFound
}

func (m *mockRecordService) Update(ctx context.Context, model, id string, fields map[string]any) (*entities.Record, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, model, id, fields)
	}
	return &entities.Record{Model: model, ID: id, Fields: fields}, nil
}

func (m *mockRecordService) Delete(ctx context.Context, model, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, model, id)
	}
	return nil
}

func (m *mockRecordService) List(ctx context.Context, model string, filter map[string]any) ([]*entities.Record, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, model, filter)
	}
	return nil, nil
}

func (m *mockRecordService) Related(ctx context.Context, model, id, relationship string) ([]*entities.Record, error) {
	if m.relatedFunc != nil {
		return m.relatedFunc(ctx, model, id, relationship)
	}
	return nil, nil
}

// Mock SchemaService
type mockSchemaService struct {
	compileFunc         func(schemaDSL string) (*entities.Schema, error)
	validateSchemaFunc  func(ctx context.Context, schemaDSL string) error
	writeSchemaFunc     func(ctx context.Context, schemaDSL string) (*entities.Schema, error)
	readSchemaFunc      func(ctx context.Context) (*entities.Schema, error)
	getSchemaEntityFunc func(ctx context.Context, version string) (*entities.Schema, error)
	generateDDLFunc     func(schemaDSL string, dialect string) ([]string, error)
	currentFunc         func() (*entities.Schema, error)
}

func (m *mockSchemaService) Compile(schemaDSL string) (*entities.Schema, error) {
	if m.compileFunc != nil {
		return m.compileFunc(schemaDSL)
	}
	return &entities.Schema{DSL: schemaDSL}, nil
}

func (m *mockSchemaService) ValidateSchema(ctx context.Context, schemaDSL string) error {
	if m.validateSchemaFunc != nil {
		return m.validateSchemaFunc(ctx, schemaDSL)
	}
	return nil
}

func (m *mockSchemaService) WriteSchema(ctx context.Context, schemaDSL string) (*entities.Schema, error) {
	if m.writeSchemaFunc != nil {
		return m.writeSchemaFunc(ctx, schemaDSL)
	}
	return &entities.Schema{Version: "v1", DSL: schemaDSL}, nil
}

func (m *mockSchemaService) ReadSchema(ctx context.Context) (*entities.Schema, error) {
	if m.readSchemaFunc != nil {
		return m.readSchemaFunc(ctx)
	}
	return nil, entities.ErrSchemaNotFound
}

func (m *mockSchemaService) GetSchemaEntity(ctx context.Context, version string) (*entities.Schema, error) {
	if m.getSchemaEntityFunc != nil {
		return m.getSchemaEntityFunc(ctx, version)
	}
	return nil, entities.ErrSchemaNotFound
}

func (m *mockSchemaService) ListVersions(ctx context.Context) ([]*entities.SchemaVersion, error) {
	return nil, nil
}

func (m *mockSchemaService) GenerateDDL(schemaDSL string, dialect string) ([]string, error) {
	if m.generateDDLFunc != nil {
		return m.generateDDLFunc(schemaDSL, dialect)
	}
	return nil, nil
}

func (m *mockSchemaService) Current() (*entities.Schema, error) {
	if m.currentFunc != nil {
		return m.currentFunc()
	}
	return nil, entities.ErrSchemaNotFound
}

// Mock Authenticator
type mockAuthenticator struct {
	authenticateFunc func(ctx context.Context, rawKey string) (*entities.Principal, error)
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, rawKey string) (*entities.Principal, error) {
	if m.authenticateFunc != nil {
		return m.authenticateFunc(ctx, rawKey)
	}
	return &entities.Principal{KeyID: "key-1"}, nil
}

// staticSchemas serves a fixed schema
type staticSchemas struct {
	schema *entities.Schema
}

func (s staticSchemas) Current() (*entities.Schema, error) {
	if s.schema == nil {
		return nil, entities.ErrSchemaNotFound
	}
	return s.schema, nil
}

func meetingSchema() *entities.Schema {
	return &entities.Schema{
		Version: "v1",
		Models: []*entities.Model{
			{
				Name: "Meeting",
				Fields: []*entities.Field{
					{Name: "meetingDate", Type: entities.FieldTypeDate, Required: true},
					{Name: "messageTitle", Type: entities.FieldTypeString},
				},
			},
		},
	}
}
