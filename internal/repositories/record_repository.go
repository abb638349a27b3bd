package repositories

import (
	"context"

	"github.com/flockhq/flock/internal/entities"
)

// RecordRepository defines the interface for model record data access.
// Every method takes the compiled model so storage can map fields to columns.
type RecordRepository interface {
	// Insert stores a new record. The record must carry its ID and timestamps.
	Insert(ctx context.Context, model *entities.Model, record *entities.Record) error

	// Get retrieves a record by ID, returning entities.ErrNotFound if absent
	Get(ctx context.Context, model *entities.Model, id string) (*entities.Record, error)

	// Update overwrites the stored fields of an existing record
	Update(ctx context.Context, model *entities.Model, record *entities.Record) error

	// Delete removes a record by ID, returning entities.ErrNotFound if absent
	Delete(ctx context.Context, model *entities.Model, id string) error

	// List retrieves records whose fields equal every filter value, oldest first
	List(ctx context.Context, model *entities.Model, filter entities.Filter) ([]*entities.Record, error)

	// Count returns the number of records matching the filter
	Count(ctx context.Context, model *entities.Model, filter entities.Filter) (int, error)

	// Exists checks if a record with the given ID exists
	Exists(ctx context.Context, model *entities.Model, id string) (bool, error)
}
