// Package auth validates the bearer tokens minted by the surrounding
// platform. Websocket connections pass the token as a query parameter
// because browsers cannot set headers on the WebSocket API.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/inkwell-cms/inkwell/internal/model"
)

// SecretEnv names the environment variable holding the HMAC secret.
const SecretEnv = "INKWELL_JWT_SECRET"

type contextKey string

const userIDKey contextKey = "userID"

var authLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	authLogger = l
}

// UserFromContext returns the authenticated user id set by Middleware.
func UserFromContext(ctx context.Context) (model.UserID, bool) {
	id, ok := ctx.Value(userIDKey).(model.UserID)
	return id, ok
}

// WithUser is used by handlers under test to inject an identity.
func WithUser(ctx context.Context, id model.UserID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// Middleware authenticates the request and stores the user id in the
// request context. Tokens are accepted from the Authorization header or,
// for websockets, the token query parameter.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			tokenString = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}

		if tokenString == "" {
			http.Error(w, "Unauthorized: no token provided", http.StatusUnauthorized)
			return
		}

		userID, err := ParseToken(tokenString)
		if err != nil {
			authLogger.Debug().Err(err).Msg("Token rejected")
			http.Error(w, "Unauthorized: invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ParseToken validates the token signature and extracts the subject.
func ParseToken(tokenString string) (model.UserID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		secret := os.Getenv(SecretEnv)
		if secret == "" {
			return nil, fmt.Errorf("%s is not set", SecretEnv)
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("missing sub claim")
	}

	return model.UserID(sub), nil
}
