package repositories

import (
	"context"

	"github.com/flockhq/flock/internal/entities"
)

// SchemaRepository defines the interface for schema data access
type SchemaRepository interface {
	// Create stores a new schema version, makes it the latest and returns the version ID
	Create(ctx context.Context, schema *entities.Schema) (string, error)

	// Activate makes an already stored version the latest one
	Activate(ctx context.Context, version string) error

	// GetLatestVersion retrieves the most recently written or activated schema
	GetLatestVersion(ctx context.Context) (*entities.Schema, error)

	// GetByVersion retrieves a specific schema version
	GetByVersion(ctx context.Context, version string) (*entities.Schema, error)

	// GetByChecksum retrieves the schema version whose DSL has the given checksum
	GetByChecksum(ctx context.Context, checksum string) (*entities.Schema, error)

	// ListVersions lists stored versions, newest first
	ListVersions(ctx context.Context) ([]*entities.SchemaVersion, error)

	// Provision creates the tables backing the schema's models if they do not exist
	Provision(ctx context.Context, schema *entities.Schema) error
}
