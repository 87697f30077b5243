package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/banca-gt/banking-api/internal/domain"
)

type claimsKey struct{}

func ContextWithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return c.UserID, true
}

func IsAdmin(ctx context.Context) bool {
	c, ok := ClaimsFromContext(ctx)
	return ok && c.Role == domain.RoleAdmin
}
