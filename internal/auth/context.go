package auth

import "context"

type claimsContextKey struct{}

// ContextWithClaims attaches validated access claims to the context.
func ContextWithClaims(ctx context.Context, claims *AccessClaims) context.Context {
	if claims == nil {
		return ctx
	}
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext extracts the authenticated claims from the context.
func ClaimsFromContext(ctx context.Context) (*AccessClaims, bool) {
	if ctx == nil {
		return nil, false
	}
	claims, ok := ctx.Value(claimsContextKey{}).(*AccessClaims)
	if !ok || claims == nil {
		return nil, false
	}
	return claims, true
}

// IsAdmin reports whether the context carries super-admin claims.
func IsAdmin(ctx context.Context) bool {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return false
	}
	return NormalizeRole(claims.Role) == RoleSuperAdmin
}
