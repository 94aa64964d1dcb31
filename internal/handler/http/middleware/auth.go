package middleware

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

type claimsCtxKey struct{}

// AuthRequired rejects requests without a verified access token and stores
// its claims on the request context.
func AuthRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.Unauthorized(w, err.Error())
			return
		}

		if token == nil {
			response.Unauthorized(w, "invalid or expired token")
			return
		}

		tokenType, ok := claims["type"].(string)
		if tokenType != jwt.TokenTypeAccess || !ok {
			response.Unauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsCtxKey{}, jwt.FromMap(claims))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithClaims stores claims on ctx. The SSE handler uses it after validating
// a query-string token.
func WithClaims(ctx context.Context, claims jwt.Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey{}, claims)
}

// ClaimsFromContext returns the caller's claims, zero if unauthenticated.
func ClaimsFromContext(ctx context.Context) jwt.Claims {
	claims, _ := ctx.Value(claimsCtxKey{}).(jwt.Claims)
	return claims
}

// CompanyID returns the caller's tenant.
func CompanyID(r *http.Request) string {
	return ClaimsFromContext(r.Context()).CompanyID
}
