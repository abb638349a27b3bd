package authorization

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flockhq/flock/internal/entities"
	"github.com/flockhq/flock/internal/repositories"
	"github.com/flockhq/flock/pkg/cache"
)

// AuthenticatorInterface resolves raw API keys to principals
type AuthenticatorInterface interface {
	Authenticate(ctx context.Context, rawKey string) (*entities.Principal, error)
}

// Authenticator validates raw API keys against the key store
type Authenticator struct {
	keys     repositories.APIKeyRepository
	cache    cache.Cache   // Optional cache of key records by hash
	cacheTTL time.Duration // TTL for cached key records
	now      func() time.Time
}

// NewAuthenticator creates a new Authenticator without caching
func NewAuthenticator(keys repositories.APIKeyRepository) *Authenticator {
	return &Authenticator{keys: keys, now: time.Now}
}

// NewAuthenticatorWithCache creates a new Authenticator that caches key
// records. Revocations are seen once the entry expires or is invalidated.
func NewAuthenticatorWithCache(keys repositories.APIKeyRepository, c cache.Cache, cacheTTL time.Duration) *Authenticator {
	return &Authenticator{keys: keys, cache: c, cacheTTL: cacheTTL, now: time.Now}
}

// SetClock replaces the time source used for expiry checks
func (a *Authenticator) SetClock(now func() time.Time) {
	a.now = now
}

// Authenticate resolves a raw key. Every failure wraps entities.ErrUnauthenticated;
// expired and revoked keys return entities.ErrKeyExpired and entities.ErrKeyRevoked.
func (a *Authenticator) Authenticate(ctx context.Context, rawKey string) (*entities.Principal, error) {
	if rawKey == "" {
		return nil, fmt.Errorf("%w: missing api key", entities.ErrUnauthenticated)
	}
	if !WellFormed(rawKey) {
		return nil, fmt.Errorf("%w: malformed api key", entities.ErrUnauthenticated)
	}

	key, err := a.lookup(ctx, HashKey(rawKey))
	if errors.Is(err, entities.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: unknown api key", entities.ErrUnauthenticated)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up api key: %w", err)
	}

	if key.IsRevoked() {
		return nil, fmt.Errorf("%w: %s", entities.ErrKeyRevoked, key.Prefix)
	}
	if key.IsExpired(a.now()) {
		return nil, fmt.Errorf("%w: %s expired at %s", entities.ErrKeyExpired, key.Prefix, key.ExpiresAt.UTC().Format(time.RFC3339))
	}

	return entities.PrincipalFromKey(key), nil
}

// Invalidate drops a cached key record
func (a *Authenticator) Invalidate(ctx context.Context, keyHash string) error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Delete(ctx, cacheKey(keyHash))
}

// InvalidateAll drops every cached key record
func (a *Authenticator) InvalidateAll(ctx context.Context) error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Clear(ctx)
}

func (a *Authenticator) lookup(ctx context.Context, keyHash string) (*entities.APIKey, error) {
	if a.cache != nil {
		if cached, found := a.cache.Get(ctx, cacheKey(keyHash)); found {
			if key, ok := decodeCachedKey(cached); ok {
				return key, nil
			}
		}
	}

	key, err := a.keys.GetByHash(ctx, keyHash)
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		if encoded, err := json.Marshal(key); err == nil {
			_ = a.cache.Set(ctx, cacheKey(keyHash), string(encoded), a.cacheTTL)
		}
	}

	return key, nil
}

func cacheKey(keyHash string) string {
	return "apikey:" + keyHash
}

// decodeCachedKey accepts the JSON form written by lookup. Remote caches
// may hand it back as bytes.
func decodeCachedKey(v interface{}) (*entities.APIKey, bool) {
	var raw []byte
	switch s := v.(type) {
	case string:
		raw = []byte(s)
	case []byte:
		raw = s
	default:
		return nil, false
	}

	var key entities.APIKey
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil, false
	}
	return &key, true
}
