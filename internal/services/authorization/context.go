package authorization

import (
	"context"

	"github.com/flockhq/flock/internal/entities"
)

type principalKey struct{}

// WithPrincipal returns a context carrying the authenticated principal
func WithPrincipal(ctx context.Context, p *entities.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal, or nil
func PrincipalFromContext(ctx context.Context) *entities.Principal {
	p, _ := ctx.Value(principalKey{}).(*entities.Principal)
	return p
}
