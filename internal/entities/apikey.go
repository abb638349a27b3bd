package entities

import "time"

// APIKey is an issued credential. Only the hash of the secret is kept.
type APIKey struct {
	ID        string
	Name      string
	Prefix    string // First characters of the raw key, for display
	KeyHash   string
	Scopes    []string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// IsExpired reports whether the key is past its expiry at now
func (k *APIKey) IsExpired(now time.Time) bool {
	return !now.Before(k.ExpiresAt)
}

// IsRevoked reports whether the key has been revoked
func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// Principal is the authenticated caller of an operation
type Principal struct {
	KeyID     string
	Name      string
	Scopes    []string
	ExpiresAt time.Time
}

// PrincipalFromKey builds the principal for an authenticated key
func PrincipalFromKey(k *APIKey) *Principal {
	return &Principal{
		KeyID:     k.ID,
		Name:      k.Name,
		Scopes:    append([]string(nil), k.Scopes...),
		ExpiresAt: k.ExpiresAt,
	}
}
