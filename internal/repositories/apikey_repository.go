package repositories

import (
	"context"
	"time"

	"github.com/flockhq/flock/internal/entities"
)

// APIKeyRepository defines the interface for API key data access
type APIKeyRepository interface {
	// Create stores a newly issued key
	Create(ctx context.Context, key *entities.APIKey) error

	// GetByHash retrieves a key by the hash of its secret, returning entities.ErrKeyNotFound if absent
	GetByHash(ctx context.Context, keyHash string) (*entities.APIKey, error)

	// GetByID retrieves a key by ID, returning entities.ErrKeyNotFound if absent
	GetByID(ctx context.Context, id string) (*entities.APIKey, error)

	// List retrieves all keys, newest first
	List(ctx context.Context) ([]*entities.APIKey, error)

	// Revoke marks a key as revoked at the given time
	Revoke(ctx context.Context, id string, at time.Time) error
}
