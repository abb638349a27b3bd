package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/flockhq/flock/internal/entities"
	"github.com/flockhq/flock/internal/repositories"
	"github.com/flockhq/flock/internal/repositories/sqlstore"
	"github.com/flockhq/flock/internal/services/authorization"
	"github.com/flockhq/flock/internal/services/parser"
)

// SchemaServiceInterface defines the interface for schema management operations
type SchemaServiceInterface interface {
	Compile(schemaDSL string) (*entities.Schema, error)
	ValidateSchema(ctx context.Context, schemaDSL string) error
	WriteSchema(ctx context.Context, schemaDSL string) (*entities.Schema, error)
	ReadSchema(ctx context.Context) (*entities.Schema, error)
	GetSchemaEntity(ctx context.Context, version string) (*entities.Schema, error)
	ListVersions(ctx context.Context) ([]*entities.SchemaVersion, error)
	GenerateDDL(schemaDSL string, dialect string) ([]string, error)
	Current() (*entities.Schema, error)
}

// SchemaService compiles, stores and provisions data schemas. The most
// recently written or loaded schema is kept as the active one.
type SchemaService struct {
	schemaRepo repositories.SchemaRepository
	cel        *authorization.CELEngine

	mu      sync.RWMutex
	current *entities.Schema
}

// NewSchemaService creates a new SchemaService
func NewSchemaService(schemaRepo repositories.SchemaRepository, cel *authorization.CELEngine) *SchemaService {
	return &SchemaService{
		schemaRepo: schemaRepo,
		cel:        cel,
	}
}

// Compile parses and validates DSL and converts it to a schema. Rule
// conditions are compiled with CEL. Every error wraps entities.ErrInvalidSchema.
func (s *SchemaService) Compile(schemaDSL string) (*entities.Schema, error) {
	if strings.TrimSpace(schemaDSL) == "" {
		return nil, fmt.Errorf("%w: schema DSL is required", entities.ErrInvalidSchema)
	}

	ast, err := parser.Parse(schemaDSL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse DSL: %v", entities.ErrInvalidSchema, err)
	}

	if err := parser.NewValidator(ast).Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrInvalidSchema, err)
	}

	schema, err := parser.ASTToSchema(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to convert schema: %v", entities.ErrInvalidSchema, err)
	}

	if err := s.validateConditions(schema); err != nil {
		return nil, err
	}

	schema.DSL = schemaDSL
	schema.Checksum = Checksum(schemaDSL)
	return schema, nil
}

// ValidateSchema validates a DSL string without saving it
func (s *SchemaService) ValidateSchema(ctx context.Context, schemaDSL string) error {
	_, err := s.Compile(schemaDSL)
	return err
}

// WriteSchema compiles DSL, stores it as a new version unless an identical
// DSL is already stored, provisions the model tables and makes the schema
// both active and the latest stored version. The stored schema is returned with its version.
func (s *SchemaService) WriteSchema(ctx context.Context, schemaDSL string) (*entities.Schema, error) {
	schema, err := s.Compile(schemaDSL)
	if err != nil {
		return nil, err
	}

	existing, err := s.schemaRepo.GetByChecksum(ctx, schema.Checksum)
	reused := err == nil
	switch {
	case reused:
		schema.Version = existing.Version
		schema.CreatedAt = existing.CreatedAt
	case errors.Is(err, entities.ErrSchemaNotFound):
		version, err := s.schemaRepo.Create(ctx, schema)
		if err != nil {
			return nil, fmt.Errorf("failed to create schema version: %w", err)
		}
		schema.Version = version
	default:
		return nil, fmt.Errorf("failed to look up schema: %w", err)
	}

	if err := s.schemaRepo.Provision(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to provision schema %s: %w", schema.Version, err)
	}

	// A rewritten older version becomes the latest again so that ReadSchema
	// and LoadLatest serve the schema being enforced
	if reused {
		if err := s.schemaRepo.Activate(ctx, schema.Version); err != nil {
			return nil, fmt.Errorf("failed to activate schema %s: %w", schema.Version, err)
		}
	}

	s.setCurrent(schema)
	return schema, nil
}

// ReadSchema retrieves and compiles the most recently written schema
func (s *SchemaService) ReadSchema(ctx context.Context) (*entities.Schema, error) {
	return s.GetSchemaEntity(ctx, "")
}

// GetSchemaEntity retrieves a stored schema and compiles it.
// version="" means use the latest version.
func (s *SchemaService) GetSchemaEntity(ctx context.Context, version string) (*entities.Schema, error) {
	var (
		stored *entities.Schema
		err    error
	)
	if version == "" {
		stored, err = s.schemaRepo.GetLatestVersion(ctx)
	} else {
		stored, err = s.schemaRepo.GetByVersion(ctx, version)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %w", err)
	}

	schema, err := s.Compile(stored.DSL)
	if err != nil {
		return nil, fmt.Errorf("stored schema %s no longer compiles: %w", stored.Version, err)
	}

	// Preserve metadata from database
	schema.Version = stored.Version
	schema.CreatedAt = stored.CreatedAt
	return schema, nil
}

// ListVersions lists stored schema versions, newest first
func (s *SchemaService) ListVersions(ctx context.Context) ([]*entities.SchemaVersion, error) {
	versions, err := s.schemaRepo.ListVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list schema versions: %w", err)
	}
	return versions, nil
}

// GenerateDDL compiles DSL and renders the CREATE statements for a driver or
// dialect name ("postgres", "sqlite", "sqlite3").
func (s *SchemaService) GenerateDDL(schemaDSL string, dialect string) ([]string, error) {
	schema, err := s.Compile(schemaDSL)
	if err != nil {
		return nil, err
	}
	return sqlstore.GenerateDDL(schema, sqlstore.DialectFor(dialect))
}

// Current returns the active schema
func (s *SchemaService) Current() (*entities.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil, fmt.Errorf("%w: no schema has been loaded", entities.ErrSchemaNotFound)
	}
	return s.current, nil
}

// LoadLatest makes the latest stored schema active and provisions its tables.
// It returns entities.ErrSchemaNotFound when nothing is stored yet.
func (s *SchemaService) LoadLatest(ctx context.Context) (*entities.Schema, error) {
	schema, err := s.ReadSchema(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.schemaRepo.Provision(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to provision schema %s: %w", schema.Version, err)
	}
	s.setCurrent(schema)
	return schema, nil
}

func (s *SchemaService) setCurrent(schema *entities.Schema) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = schema
}

func (s *SchemaService) validateConditions(schema *entities.Schema) error {
	if s.cel == nil {
		return nil
	}

	var problems []string
	for _, model := range schema.Models {
		for _, rule := range model.Rules {
			if rule.Condition == "" {
				continue
			}
			if err := s.cel.ValidateExpression(rule.Condition); err != nil {
				problems = append(problems, fmt.Sprintf("model %s: invalid condition %q: %v", model.Name, rule.Condition, err))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", entities.ErrInvalidSchema, strings.Join(problems, "; "))
	}
	return nil
}

// Checksum returns the hex SHA-256 of a DSL document
func Checksum(schemaDSL string) string {
	sum := sha256.Sum256([]byte(schemaDSL))
	return hex.EncodeToString(sum[:])
}
