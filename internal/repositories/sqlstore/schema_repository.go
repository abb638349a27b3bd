package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/flockhq/flock/internal/entities"
	"github.com/flockhq/flock/internal/repositories"
	"github.com/google/uuid"
)

// SchemaRepository implements repositories.SchemaRepository
type SchemaRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewSchemaRepository creates a new schema repository
func NewSchemaRepository(db *sql.DB, dialect Dialect) repositories.SchemaRepository {
	return &SchemaRepository{db: db, dialect: dialect}
}

// nextActivation is the activation sequence value that ranks a row above
// every stored version
const nextActivation = `(SELECT COALESCE(MAX(activation_seq), 0) + 1 FROM flock_schemas)`

// Create stores a new schema version and makes it the latest. A version ID
// (UUIDv7) is generated when the schema does not carry one.
func (r *SchemaRepository) Create(ctx context.Context, schema *entities.Schema) (string, error) {
	version := schema.Version
	if version == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("failed to generate schema version: %w", err)
		}
		version = id.String()
	}

	createdAt := schema.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := fmt.Sprintf(`INSERT INTO flock_schemas (version, checksum, schema_dsl, created_at, activation_seq) VALUES (%s, %s)`,
		r.dialect.placeholders(1, 4), nextActivation)
	if _, err := r.db.ExecContext(ctx, query, version, schema.Checksum, schema.DSL, r.dialect.timeValue(createdAt)); err != nil {
		return "", fmt.Errorf("failed to create schema: %w", classify(err))
	}

	return version, nil
}

// Activate makes an already stored version the latest one
func (r *SchemaRepository) Activate(ctx context.Context, version string) error {
	query := fmt.Sprintf(`UPDATE flock_schemas SET activation_seq = %s WHERE version = %s`,
		nextActivation, r.dialect.Placeholder(1))
	result, err := r.db.ExecContext(ctx, query, version)
	if err != nil {
		return fmt.Errorf("failed to activate schema: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to activate schema: %w", err)
	}
	if rows == 0 {
		return entities.ErrSchemaNotFound
	}
	return nil
}

// GetLatestVersion retrieves the most recently written or activated schema
func (r *SchemaRepository) GetLatestVersion(ctx context.Context) (*entities.Schema, error) {
	query := `
		SELECT version, checksum, schema_dsl, created_at
		FROM flock_schemas
		ORDER BY activation_seq DESC, created_at DESC, version DESC
		LIMIT 1
	`
	return r.getOne(ctx, query)
}

// GetByVersion retrieves a specific schema version
func (r *SchemaRepository) GetByVersion(ctx context.Context, version string) (*entities.Schema, error) {
	query := fmt.Sprintf(`
		SELECT version, checksum, schema_dsl, created_at
		FROM flock_schemas
		WHERE version = %s
	`, r.dialect.Placeholder(1))
	return r.getOne(ctx, query, version)
}

// GetByChecksum retrieves the schema version whose DSL has the given checksum
func (r *SchemaRepository) GetByChecksum(ctx context.Context, checksum string) (*entities.Schema, error) {
	query := fmt.Sprintf(`
		SELECT version, checksum, schema_dsl, created_at
		FROM flock_schemas
		WHERE checksum = %s
	`, r.dialect.Placeholder(1))
	return r.getOne(ctx, query, checksum)
}

func (r *SchemaRepository) getOne(ctx context.Context, query string, args ...any) (*entities.Schema, error) {
	var (
		schema    entities.Schema
		createdAt any
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&schema.Version, &schema.Checksum, &schema.DSL, &createdAt)
	if err == sql.ErrNoRows {
		return nil, entities.ErrSchemaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %w", err)
	}

	schema.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode schema created_at: %w", err)
	}

	// Models are populated by the parser in the service layer
	return &schema, nil
}

// ListVersions lists stored versions, newest first
func (r *SchemaRepository) ListVersions(ctx context.Context) ([]*entities.SchemaVersion, error) {
	query := `
		SELECT version, checksum, created_at
		FROM flock_schemas
		ORDER BY created_at DESC, version DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list schema versions: %w", err)
	}
	defer rows.Close()

	var versions []*entities.SchemaVersion
	for rows.Next() {
		var (
			v         entities.SchemaVersion
			createdAt any
		)
		if err := rows.Scan(&v.Version, &v.Checksum, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan schema version: %w", err)
		}
		if v.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to decode schema created_at: %w", err)
		}
		versions = append(versions, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schema versions: %w", err)
	}

	return versions, nil
}

// Provision creates the tables and indexes backing the schema's models
func (r *SchemaRepository) Provision(ctx context.Context, schema *entities.Schema) error {
	stmts, err := GenerateDDL(schema, r.dialect)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to provision schema: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
