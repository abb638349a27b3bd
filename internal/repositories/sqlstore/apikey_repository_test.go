package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flockhq/flock/internal/entities"
)

func TestAPIKeyRepository(t *testing.T) {
	forEachDialect(t, func(t *testing.T, s *testStore) {
		repo := NewAPIKeyRepository(s.db, s.dialect)
		ctx := context.Background()

		created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		key := &entities.APIKey{
			ID:        "k1",
			Name:      "kiosk",
			Prefix:    "flk_abcd",
			KeyHash:   "hash-1",
			Scopes:    []string{"attendance", "reports"},
			CreatedAt: created,
			ExpiresAt: created.Add(30 * 24 * time.Hour),
		}
		if err := repo.Create(ctx, key); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		got, err := repo.GetByHash(ctx, "hash-1")
		if err != nil {
			t.Fatalf("GetByHash() error = %v", err)
		}
		if got.ID != "k1" || got.Name != "kiosk" || len(got.Scopes) != 2 || got.Scopes[1] != "reports" {
			t.Errorf("unexpected key: %+v", got)
		}
		if !got.ExpiresAt.Equal(key.ExpiresAt) {
			t.Errorf("expected expiry %v, got %v", key.ExpiresAt, got.ExpiresAt)
		}
		if got.IsRevoked() {
			t.Error("new key must not be revoked")
		}

		if _, err := repo.GetByHash(ctx, "unknown"); !errors.Is(err, entities.ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound, got %v", err)
		}

		revokedAt := created.Add(time.Hour)
		if err := repo.Revoke(ctx, "k1", revokedAt); err != nil {
			t.Fatalf("Revoke() error = %v", err)
		}
		if err := repo.Revoke(ctx, "k1", revokedAt.Add(time.Hour)); err != nil {
			t.Fatalf("second Revoke() error = %v", err)
		}
		got, err = repo.GetByID(ctx, "k1")
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.RevokedAt == nil || !got.RevokedAt.Equal(revokedAt) {
			t.Errorf("expected revokedAt %v, got %v", revokedAt, got.RevokedAt)
		}

		if err := repo.Revoke(ctx, "missing", revokedAt); !errors.Is(err, entities.ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound, got %v", err)
		}

		second := *key
		second.ID, second.KeyHash, second.Scopes = "k2", "hash-2", nil
		second.CreatedAt = created.Add(time.Minute)
		if err := repo.Create(ctx, &second); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		keys, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(keys) != 2 || keys[0].ID != "k2" {
			t.Errorf("expected newest key first, got %+v", keys)
		}
		if len(keys[0].Scopes) != 0 {
			t.Errorf("expected no scopes, got %v", keys[0].Scopes)
		}
	})
}
