package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UserRoleKey contextKey = "user_role"
)

// OptionalAuthMiddleware resolves the session if a bearer token is present
// and proceeds as guest when it is not. Checkout supports guests, so a
// missing Authorization header is a valid state here, not an error; a
// malformed or invalid token is still rejected.
func OptionalAuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				// Guest request.
				next.ServeHTTP(w, r)
				return
			}

			ctx, ok := authenticate(r.Context(), authHeader, jwtSecret, logger, w)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthMiddleware requires a valid bearer token and extracts user claims.
func AuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debug("Missing authorization header")
				RespondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			ctx, ok := authenticate(r.Context(), authHeader, jwtSecret, logger, w)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authenticate validates the bearer token and returns a context carrying the
// user id and role. On failure it writes the error response and returns
// ok=false.
func authenticate(ctx context.Context, authHeader, jwtSecret string, logger *zap.Logger, w http.ResponseWriter) (context.Context, bool) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		logger.Debug("Invalid authorization header format")
		RespondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
		return ctx, false
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})

	if err != nil || !token.Valid {
		logger.Debug("Token validation failed", zap.Error(err))
		RespondWithError(w, http.StatusUnauthorized, "invalid token")
		return ctx, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return ctx, false
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return ctx, false
	}

	role, _ := claims["role"].(string)

	ctx = context.WithValue(ctx, UserIDKey, userID)
	ctx = context.WithValue(ctx, UserRoleKey, role)
	return ctx, true
}

// GetUserID extracts the authenticated user ID from the request context.
// The second return is false for guest requests.
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetUserRole extracts the user role from the request context.
func GetUserRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(UserRoleKey).(string)
	return role, ok
}
