package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/flockhq/flock/internal/entities"
	"github.com/flockhq/flock/internal/repositories"
	"github.com/flockhq/flock/internal/services/authorization"
	"github.com/google/uuid"
)

// APIKeyServiceInterface defines API key management operations
type APIKeyServiceInterface interface {
	Create(ctx context.Context, name string, scopes []string) (*IssuedKey, error)
	List(ctx context.Context) ([]*entities.APIKey, error)
	Revoke(ctx context.Context, id string) error
}

// KeyInvalidator drops cached authentication state for a key
type KeyInvalidator interface {
	Invalidate(ctx context.Context, keyHash string) error
}

// IssuedKey is a freshly created key. RawKey is only available at creation.
type IssuedKey struct {
	Key    *entities.APIKey
	RawKey string
}

// APIKeyService issues and revokes API keys. The expiry of new keys follows
// the authorization block of the active schema.
type APIKeyService struct {
	keys        repositories.APIKeyRepository
	schemas     SchemaProvider
	invalidator KeyInvalidator
	now         func() time.Time
}

// NewAPIKeyService creates a new APIKeyService. schemas and invalidator may be nil.
func NewAPIKeyService(keys repositories.APIKeyRepository, schemas SchemaProvider, invalidator KeyInvalidator) *APIKeyService {
	return &APIKeyService{
		keys:        keys,
		schemas:     schemas,
		invalidator: invalidator,
		now:         time.Now,
	}
}

// SetClock replaces the time source used for issue and revoke timestamps
func (s *APIKeyService) SetClock(now func() time.Time) {
	s.now = now
}

// Create issues a new key
func (s *APIKeyService) Create(ctx context.Context, name string, scopes []string) (*IssuedKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: api key name is required", entities.ErrInvalidRecord)
	}
	for _, scope := range scopes {
		if scope == "" || strings.Contains(scope, ",") {
			return nil, fmt.Errorf("%w: invalid scope %q", entities.ErrInvalidRecord, scope)
		}
	}

	raw, prefix, hash, err := authorization.GenerateKey()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	key := &entities.APIKey{
		ID:        uuid.NewString(),
		Name:      name,
		Prefix:    prefix,
		KeyHash:   hash,
		Scopes:    append([]string(nil), scopes...),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl()),
	}

	if err := s.keys.Create(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to store api key: %w", err)
	}

	return &IssuedKey{Key: key, RawKey: raw}, nil
}

// List returns every key, newest first
func (s *APIKeyService) List(ctx context.Context) ([]*entities.APIKey, error) {
	keys, err := s.keys.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	return keys, nil
}

// Revoke revokes a key and drops it from the authentication cache
func (s *APIKeyService) Revoke(ctx context.Context, id string) error {
	key, err := s.keys.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.keys.Revoke(ctx, id, s.now().UTC()); err != nil {
		return err
	}

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, key.KeyHash); err != nil {
			return fmt.Errorf("api key %s revoked but cache invalidation failed: %w", key.Prefix, err)
		}
	}
	return nil
}

func (s *APIKeyService) ttl() time.Duration {
	if s.schemas != nil {
		if schema, err := s.schemas.Current(); err == nil {
			return schema.Authorization.APIKeyTTL()
		}
	}
	return entities.DefaultAuthorization().APIKeyTTL()
}
