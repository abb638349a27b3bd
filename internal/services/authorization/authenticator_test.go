package authorization

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flockhq/flock/internal/entities"
	"github.com/flockhq/flock/pkg/cache/memorycache"
)

// mockAPIKeyRepository is a func-field mock of repositories.APIKeyRepository
type mockAPIKeyRepository struct {
	CreateFunc    func(ctx context.Context, key *entities.APIKey) error
	GetByHashFunc func(ctx context.Context, keyHash string) (*entities.APIKey, error)
	GetByIDFunc   func(ctx context.Context, id string) (*entities.APIKey, error)
	ListFunc      func(ctx context.Context) ([]*entities.APIKey, error)
	RevokeFunc    func(ctx context.Context, id string, at time.Time) error
}

func (m *mockAPIKeyRepository) Create(ctx context.Context, key *entities.APIKey) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, key)
	}
	return nil
}

func (m *mockAPIKeyRepository) GetByHash(ctx context.Context, keyHash string) (*entities.APIKey, error) {
	if m.GetByHashFunc != nil {
		return m.GetByHashFunc(ctx, keyHash)
	}
	return nil, entities.ErrKeyNotFound
}

func (m *mockAPIKeyRepository) GetByID(ctx context.Context, id string) (*entities.APIKey, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, entities.ErrKeyNotFound
}

func (m *mockAPIKeyRepository) List(ctx context.Context) ([]*entities.APIKey, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *mockAPIKeyRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	if m.RevokeFunc != nil {
		return m.RevokeFunc(ctx, id, at)
	}
	return nil
}

func issueTestKey(t *testing.T, issued time.Time, ttl time.Duration) (string, *entities.APIKey) {
	t.Helper()
	raw, prefix, hash, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	return raw, &entities.APIKey{
		ID:        "k1",
		Name:      "kiosk",
		Prefix:    prefix,
		KeyHash:   hash,
		Scopes:    []string{"attendance"},
		CreatedAt: issued,
		ExpiresAt: issued.Add(ttl),
	}
}

func TestAuthenticator_Authenticate(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	raw, key := issueTestKey(t, issued, 30*24*time.Hour)
	revokedAt := issued.Add(time.Hour)

	repo := &mockAPIKeyRepository{
		GetByHashFunc: func(ctx context.Context, keyHash string) (*entities.APIKey, error) {
			if keyHash == key.KeyHash {
				k := *key
				return &k, nil
			}
			return nil, entities.ErrKeyNotFound
		},
	}

	tests := []struct {
		name    string
		raw     string
		now     time.Time
		revoked bool
		wantErr error
	}{
		{name: "valid key", raw: raw, now: issued.Add(24 * time.Hour)},
		{name: "missing key", raw: "", now: issued, wantErr: entities.ErrUnauthenticated},
		{name: "malformed key", raw: "not-a-key", now: issued, wantErr: entities.ErrUnauthenticated},
		{name: "unknown key", raw: KeyPrefix + "00112233445566778899aabbccddeeff0011223344556677", now: issued, wantErr: entities.ErrUnauthenticated},
		{name: "expired exactly at expiry", raw: raw, now: issued.Add(30 * 24 * time.Hour), wantErr: entities.ErrKeyExpired},
		{name: "expired after 31 days", raw: raw, now: issued.Add(31 * 24 * time.Hour), wantErr: entities.ErrKeyExpired},
		{name: "revoked key", raw: raw, now: issued.Add(2 * time.Hour), revoked: true, wantErr: entities.ErrKeyRevoked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key.RevokedAt = nil
			if tt.revoked {
				key.RevokedAt = &revokedAt
			}

			auth := NewAuthenticator(repo)
			auth.SetClock(func() time.Time { return tt.now })

			principal, err := auth.Authenticate(context.Background(), tt.raw)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if principal.KeyID != "k1" || principal.Name != "kiosk" || len(principal.Scopes) != 1 {
					t.Errorf("unexpected principal: %+v", principal)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			// Every authentication failure is an authorization error, never a data error
			if !errors.Is(err, entities.ErrUnauthenticated) {
				t.Errorf("expected error to wrap ErrUnauthenticated, got %v", err)
			}
		})
	}
}

func TestAuthenticator_StoreFailure(t *testing.T) {
	raw, _ := issueTestKey(t, time.Now(), time.Hour)
	storeErr := errors.New("connection refused")

	auth := NewAuthenticator(&mockAPIKeyRepository{
		GetByHashFunc: func(ctx context.Context, keyHash string) (*entities.APIKey, error) {
			return nil, storeErr
		},
	})

	_, err := auth.Authenticate(context.Background(), raw)
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
	if errors.Is(err, entities.ErrUnauthenticated) {
		t.Error("store failures must not be reported as authentication failures")
	}
}

func TestAuthenticator_CacheAndInvalidate(t *testing.T) {
	issued := time.Now().UTC()
	raw, key := issueTestKey(t, issued, time.Hour)

	lookups := 0
	repo := &mockAPIKeyRepository{
		GetByHashFunc: func(ctx context.Context, keyHash string) (*entities.APIKey, error) {
			lookups++
			k := *key
			return &k, nil
		},
	}

	c, err := memorycache.New(&memorycache.Config{MaxSizeBytes: 1 << 20, DefaultTTL: time.Minute})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer c.Close()

	auth := NewAuthenticatorWithCache(repo, c, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := auth.Authenticate(ctx, raw); err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
	}
	if lookups != 1 {
		t.Errorf("expected 1 store lookup with cache, got %d", lookups)
	}

	// Revoke in the store and drop the cache entry
	revokedAt := issued.Add(time.Minute)
	key.RevokedAt = &revokedAt
	if err := auth.Invalidate(ctx, key.KeyHash); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}

	if _, err := auth.Authenticate(ctx, raw); !errors.Is(err, entities.ErrKeyRevoked) {
		t.Errorf("expected ErrKeyRevoked after invalidation, got %v", err)
	}
	if lookups != 2 {
		t.Errorf("expected a fresh lookup after invalidation, got %d", lookups)
	}

	if err := auth.InvalidateAll(ctx); err != nil {
		t.Fatalf("InvalidateAll() error = %v", err)
	}
	auth.Authenticate(ctx, raw)
	if lookups != 3 {
		t.Errorf("expected a fresh lookup after clearing the cache, got %d", lookups)
	}
}

func TestAuthenticator_RevocationSeenAfterCacheTTL(t *testing.T) {
	issued := time.Now().UTC()
	raw, key := issueTestKey(t, issued, time.Hour)

	repo := &mockAPIKeyRepository{
		GetByHashFunc: func(ctx context.Context, keyHash string) (*entities.APIKey, error) {
			k := *key
			return &k, nil
		},
	}

	const ttl = 50 * time.Millisecond
	c, err := memorycache.New(&memorycache.Config{MaxSizeBytes: 1 << 20, DefaultTTL: ttl})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer c.Close()

	auth := NewAuthenticatorWithCache(repo, c, ttl)
	ctx := context.Background()

	if _, err := auth.Authenticate(ctx, raw); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	// Revoked by another process: nothing invalidates the cached entry
	revokedAt := issued.Add(time.Minute)
	key.RevokedAt = &revokedAt

	if _, err := auth.Authenticate(ctx, raw); err != nil {
		t.Fatalf("expected the cached key to be accepted until its entry expires, got %v", err)
	}

	time.Sleep(2 * ttl)
	if _, err := auth.Authenticate(ctx, raw); !errors.Is(err, entities.ErrKeyRevoked) {
		t.Errorf("expected ErrKeyRevoked once the cache entry expired, got %v", err)
	}
}

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()
	if PrincipalFromContext(ctx) != nil {
		t.Error("expected no principal on empty context")
	}

	p := &entities.Principal{KeyID: "k1"}
	if got := PrincipalFromContext(WithPrincipal(ctx, p)); got != p {
		t.Errorf("expected principal round trip, got %+v", got)
	}
}
