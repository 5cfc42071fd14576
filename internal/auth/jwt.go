package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/scribeapp/scribe-be/internal/models"
)

// Claims defines the JWT claims structure.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

type contextKey string

const userKey = contextKey("authUser")

// UserResolver looks up the user a validated token refers to. Implemented by
// the user service.
type UserResolver interface {
	GetUserByID(id string) (models.User, error)
}

// Auth issues and verifies the signed session tokens presented on protected
// routes.
type Auth struct {
	secret []byte
	users  UserResolver
}

// New creates an Auth using the given signing secret.
func New(secret string, users UserResolver) *Auth {
	return &Auth{secret: []byte(secret), users: users}
}

// GenerateToken creates a new JWT for a given user.
func (a *Auth) GenerateToken(user models.User) (string, error) {
	expirationTime := time.Now().Add(24 * time.Hour)
	claims := &Claims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateToken parses and validates a JWT string.
func (a *Auth) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// Middleware guards protected routes. It extracts the bearer token, validates
// it, resolves the caller's user record and passes it down via context. A
// token whose user no longer exists is rejected the same way as a bad
// signature.
func (a *Auth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenStr string

			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.Split(authHeader, "Bearer ")
				if len(parts) == 2 {
					tokenStr = parts[1]
				}
			}

			if tokenStr == "" {
				unauthorized(w, "Unauthorized, no token")
				return
			}

			claims, err := a.ValidateToken(tokenStr)
			if err != nil {
				unauthorized(w, "Invalid token")
				return
			}

			user, err := a.users.GetUserByID(claims.UserID)
			if err != nil {
				unauthorized(w, "Invalid token or user not found")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the authenticated user stored by Middleware.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey).(models.User)
	return user, ok
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
