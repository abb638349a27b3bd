package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/flockhq/flock/internal/entities"
	"github.com/flockhq/flock/internal/schemas"
	"github.com/flockhq/flock/internal/services/authorization"
)

// mockRecordRepository keeps records in memory, in insertion order
type mockRecordRepository struct {
	mu      sync.Mutex
	records map[string][]*entities.Record

	insertErr error
}

func newMockRecordRepository() *mockRecordRepository {
	return &mockRecordRepository{records: make(map[string][]*entities.Record)}
}

func copyRecord(r *entities.Record) *entities.Record {
	c := *r
	c.Fields = make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		c.Fields[k] = v
	}
	return &c
}

func (m *mockRecordRepository) Insert(ctx context.Context, model *entities.Model, record *entities.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.records[model.Name] = append(m.records[model.Name], copyRecord(record))
	return nil
}

func (m *mockRecordRepository) Get(ctx context.Context, model *entities.Model, id string) (*entities.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records[model.Name] {
		if r.ID == id {
			return copyRecord(r), nil
		}
	}
	return nil, fmt.Errorf("%s %s: %w", model.Name, id, entities.ErrNotFound)
}

func (m *mockRecordRepository) Update(ctx context.Context, model *entities.Model, record *entities.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.records[model.Name] {
		if r.ID == record.ID {
			m.records[model.Name][i] = copyRecord(record)
			return nil
		}
	}
	return fmt.Errorf("%s %s: %w", model.Name, record.ID, entities.ErrNotFound)
}

func (m *mockRecordRepository) Delete(ctx context.Context, model *entities.Model, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.records[model.Name]
	for i, r := range rows {
		if r.ID == id {
			m.records[model.Name] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%s %s: %w", model.Name, id, entities.ErrNotFound)
}

func (m *mockRecordRepository) List(ctx context.Context, model *entities.Model, filter entities.Filter) ([]*entities.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entities.Record
	for _, r := range m.records[model.Name] {
		if matches(r, filter) {
			out = append(out, copyRecord(r))
		}
	}
	return out, nil
}

func (m *mockRecordRepository) Count(ctx context.Context, model *entities.Model, filter entities.Filter) (int, error) {
	rows, err := m.List(ctx, model, filter)
	return len(rows), err
}

func (m *mockRecordRepository) Exists(ctx context.Context, model *entities.Model, id string) (bool, error) {
	_, err := m.Get(ctx, model, id)
	return err == nil, nil
}

func matches(r *entities.Record, filter entities.Filter) bool {
	for k, want := range filter {
		var got any
		if k == entities.FieldID {
			got = r.ID
		} else {
			got = r.Fields[k]
		}
		if gt, ok := got.(time.Time); ok {
			wt, ok := want.(time.Time)
			if !ok || !gt.Equal(wt) {
				return false
			}
			continue
		}
		if got != want {
			return false
		}
	}
	return true
}

// mockSchemaRepository stores schemas in memory
type mockSchemaRepository struct {
	schemas     []*entities.Schema
	latest      string
	provisioned []string

	provisionErr error
}

func newMockSchemaRepository() *mockSchemaRepository {
	return &mockSchemaRepository{}
}

func (m *mockSchemaRepository) Create(ctx context.Context, schema *entities.Schema) (string, error) {
	version := fmt.Sprintf("v%d", len(m.schemas)+1)
	m.schemas = append(m.schemas, &entities.Schema{
		Version:   version,
		Checksum:  schema.Checksum,
		DSL:       schema.DSL,
		CreatedAt: time.Now(),
	})
	m.latest = version
	return version, nil
}

func (m *mockSchemaRepository) Activate(ctx context.Context, version string) error {
	if _, err := m.GetByVersion(ctx, version); err != nil {
		return err
	}
	m.latest = version
	return nil
}

func (m *mockSchemaRepository) GetLatestVersion(ctx context.Context) (*entities.Schema, error) {
	if m.latest == "" {
		return nil, entities.ErrSchemaNotFound
	}
	return m.GetByVersion(ctx, m.latest)
}

func (m *mockSchemaRepository) GetByVersion(ctx context.Context, version string) (*entities.Schema, error) {
	for _, s := range m.schemas {
		if s.Version == version {
			return s, nil
		}
	}
	return nil, entities.ErrSchemaNotFound
}

func (m *mockSchemaRepository) GetByChecksum(ctx context.Context, checksum string) (*entities.Schema, error) {
	for _, s := range m.schemas {
		if s.Checksum == checksum {
			return s, nil
		}
	}
	return nil, entities.ErrSchemaNotFound
}

func (m *mockSchemaRepository) ListVersions(ctx context.Context) ([]*entities.SchemaVersion, error) {
	var out []*entities.SchemaVersion
	for i := len(m.schemas) - 1; i >= 0; i-- {
		s := m.schemas[i]
		out = append(out, &entities.SchemaVersion{Version: s.Version, Checksum: s.Checksum, CreatedAt: s.CreatedAt})
	}
	return out, nil
}

func (m *mockSchemaRepository) Provision(ctx context.Context, schema *entities.Schema) error {
	if m.provisionErr != nil {
		return m.provisionErr
	}
	m.provisioned = append(m.provisioned, schema.Version)
	return nil
}

// mockAPIKeyRepository uses func fields so each test sets the behaviour it needs
type mockAPIKeyRepository struct {
	createFunc    func(ctx context.Context, key *entities.APIKey) error
	getByHashFunc func(ctx context.Context, keyHash string) (*entities.APIKey, error)
	getByIDFunc   func(ctx context.Context, id string) (*entities.APIKey, error)
	listFunc      func(ctx context.Context) ([]*entities.APIKey, error)
	revokeFunc    func(ctx context.Context, id string, at time.Time) error
}

func (m *mockAPIKeyRepository) Create(ctx context.Context, key *entities.APIKey) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, key)
	}
	return nil
}

func (m *mockAPIKeyRepository) GetByHash(ctx context.Context, keyHash string) (*entities.APIKey, error) {
	if m.getByHashFunc != nil {
		return m.getByHashFunc(ctx, keyHash)
	}
	return nil, entities.ErrKeyNotFound
}

func (m *mockAPIKeyRepository) GetByID(ctx context.Context, id string) (*entities.APIKey, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, entities.ErrKeyNotFound
}

func (m *mockAPIKeyRepository) List(ctx context.Context) ([]*entities.APIKey, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

func (m *mockAPIKeyRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	if m.revokeFunc != nil {
		return m.revokeFunc(ctx, id, at)
	}
	return nil
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

func newCELEngine(t *testing.T) *authorization.CELEngine {
	t.Helper()
	engine, err := authorization.NewCELEngine()
	if err != nil {
		t.Fatalf("failed to create CEL engine: %v", err)
	}
	return engine
}

func compileSchema(t *testing.T, dsl string) *entities.Schema {
	t.Helper()
	schema, err := NewSchemaService(newMockSchemaRepository(), newCELEngine(t)).Compile(dsl)
	if err != nil {
		t.Fatalf("failed to compile schema: %v", err)
	}
	return schema
}

func churchSchema(t *testing.T) *entities.Schema {
	return compileSchema(t, schemas.Church())
}

func authedContext() context.Context {
	return authorization.WithPrincipal(context.Background(), &entities.Principal{
		KeyID:  "key-1",
		Name:   "test",
		Scopes: []string{},
	})
}

// newTestRecordService wires a RecordService over an in-memory store
func newTestRecordService(t *testing.T, schema *entities.Schema) (*RecordService, *mockRecordRepository) {
	t.Helper()
	repo := newMockRecordRepository()
	svc := NewRecordService(repo, staticSchemas{schema: schema}, authorization.NewChecker(newCELEngine(t)))
	return svc, repo
}
