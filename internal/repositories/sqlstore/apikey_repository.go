package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/flockhq/flock/internal/entities"
	"github.com/flockhq/flock/internal/repositories"
)

// APIKeyRepository implements repositories.APIKeyRepository
type APIKeyRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewAPIKeyRepository creates a new API key repository
func NewAPIKeyRepository(db *sql.DB, dialect Dialect) repositories.APIKeyRepository {
	return &APIKeyRepository{db: db, dialect: dialect}
}

const apiKeyColumns = `id, name, prefix, key_hash, scopes, created_at, expires_at, revoked_at`

// Create stores a newly issued key
func (r *APIKeyRepository) Create(ctx context.Context, key *entities.APIKey) error {
	query := fmt.Sprintf(`INSERT INTO flock_api_keys (%s) VALUES (%s)`, apiKeyColumns, r.dialect.placeholders(1, 8))

	var revokedAt any
	if key.RevokedAt != nil {
		revokedAt = r.dialect.timeValue(*key.RevokedAt)
	}

	_, err := r.db.ExecContext(ctx, query,
		key.ID, key.Name, key.Prefix, key.KeyHash, strings.Join(key.Scopes, ","),
		r.dialect.timeValue(key.CreatedAt), r.dialect.timeValue(key.ExpiresAt), revokedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create api key: %w", classify(err))
	}
	return nil
}

// GetByHash retrieves a key by the hash of its secret
func (r *APIKeyRepository) GetByHash(ctx context.Context, keyHash string) (*entities.APIKey, error) {
	query := fmt.Sprintf(`SELECT %s FROM flock_api_keys WHERE key_hash = %s`, apiKeyColumns, r.dialect.Placeholder(1))
	return r.getOne(ctx, query, keyHash)
}

// GetByID retrieves a key by ID
func (r *APIKeyRepository) GetByID(ctx context.Context, id string) (*entities.APIKey, error) {
	query := fmt.Sprintf(`SELECT %s FROM flock_api_keys WHERE id = %s`, apiKeyColumns, r.dialect.Placeholder(1))
	return r.getOne(ctx, query, id)
}

// List retrieves all keys, newest first
func (r *APIKeyRepository) List(ctx context.Context) ([]*entities.APIKey, error) {
	query := fmt.Sprintf(`SELECT %s FROM flock_api_keys ORDER BY created_at DESC, id DESC`, apiKeyColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*entities.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating api keys: %w", err)
	}

	return keys, nil
}

// Revoke marks a key as revoked. Revoking twice keeps the first timestamp.
func (r *APIKeyRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE flock_api_keys SET revoked_at = COALESCE(revoked_at, %s) WHERE id = %s`,
		r.dialect.Placeholder(1), r.dialect.Placeholder(2))

	result, err := r.db.ExecContext(ctx, query, r.dialect.timeValue(at), id)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("api key %s: %w", id, entities.ErrKeyNotFound)
	}
	return nil
}

func (r *APIKeyRepository) getOne(ctx context.Context, query string, args ...any) (*entities.APIKey, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to get api key: %w", err)
		}
		return nil, entities.ErrKeyNotFound
	}
	return scanAPIKey(rows)
}

func scanAPIKey(rows *sql.Rows) (*entities.APIKey, error) {
	var (
		key                             entities.APIKey
		scopes                          string
		createdAt, expiresAt, revokedAt any
	)
	if err := rows.Scan(&key.ID, &key.Name, &key.Prefix, &key.KeyHash, &scopes, &createdAt, &expiresAt, &revokedAt); err != nil {
		return nil, fmt.Errorf("failed to scan api key: %w", err)
	}

	if scopes != "" {
		key.Scopes = strings.Split(scopes, ",")
	}

	var err error
	if key.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to decode api key created_at: %w", err)
	}
	if key.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, fmt.Errorf("failed to decode api key expires_at: %w", err)
	}
	if revokedAt != nil {
		t, err := parseTime(revokedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to decode api key revoked_at: %w", err)
		}
		key.RevokedAt = &t
	}

	return &key, nil
}
