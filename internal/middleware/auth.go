package middleware

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/padmaraj-kv/powersplit-sub000/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// GatewayKey is the context key for the authenticated gateway name.
const GatewayKey contextKey = "gateway"

// GetGateway extracts the gateway name from the context.
// Returns empty string if not found.
func GetGateway(ctx context.Context) string {
	gateway, _ := ctx.Value(GatewayKey).(string)
	return gateway
}

// WithGateway returns a copy of ctx carrying the gateway name.
func WithGateway(ctx context.Context, gateway string) context.Context {
	return context.WithValue(ctx, GatewayKey, gateway)
}

func authenticate(tokens *auth.TokenManager, header string) (*auth.Claims, error) {
	tokenString, err := auth.BearerToken(header)
	if err != nil {
		return nil, err
	}
	return tokens.Validate(tokenString)
}

// RequireAuth returns an interceptor that validates the gateway's bearer token
// and adds the gateway name to the request context.
func RequireAuth(tokens *auth.TokenManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			claims, err := authenticate(tokens, req.Header().Get("Authorization"))
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}
			return next(WithGateway(ctx, claims.Gateway), req)
		}
	}
}

// RequireBearer is the plain HTTP equivalent of RequireAuth.
func RequireBearer(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authenticate(tokens, r.Header.Get("Authorization"))
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithGateway(r.Context(), claims.Gateway)))
		})
	}
}
