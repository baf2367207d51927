/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import (
	"context"

	"github.com/friendsincode/signboard/internal/models"
)

type claimsKey struct{}

// WithClaims returns a copy of ctx carrying the verified token claims.
// A nil claims value leaves ctx unauthenticated.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	if claims == nil {
		return ctx
	}
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims stored by Middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, _ := ctx.Value(claimsKey{}).(*Claims)
	return claims, claims != nil
}

// Allowed reports whether the authenticated caller holds at least perm.
func Allowed(ctx context.Context, perm models.Permission) bool {
	claims, ok := ClaimsFromContext(ctx)
	return ok && claims.Permission.Allows(perm)
}
