// Package middleware содержит HTTP middleware сервиса аукциона.
package middleware

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmeshcher/escrow-auction/internal/validation"
)

type contextKey string

const identityKey contextKey = "identity"

// ErrInvalidSubject возвращается, если subject токена не является допустимым идентификатором.
var ErrInvalidSubject = errors.New("invalid token subject")

// AuthMiddleware проверяет bearer-токен JWT (HS256) и извлекает из него идентификатор участника.
type AuthMiddleware struct {
	secretKey []byte
}

// NewAuthMiddleware создаёт AuthMiddleware с указанным ключом подписи.
// При пустом ключе генерируется случайный, и токены действуют до перезапуска.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
	}

	return &AuthMiddleware{
		secretKey: key,
	}
}

// Middleware проверяет заголовок Authorization и добавляет идентификатор участника в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		identity, err := a.ParseToken(raw)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IssueToken выпускает токен для участника со сроком действия ttl.
func (a *AuthMiddleware) IssueToken(identity string, ttl time.Duration) (string, error) {
	if !validation.IsValidIdentity(identity) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSubject, identity)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   identity,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	signed, err := token.SignedString(a.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken проверяет подпись и срок действия токена и возвращает его subject.
func (a *AuthMiddleware) ParseToken(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	if !validation.IsValidIdentity(claims.Subject) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSubject, claims.Subject)
	}
	return claims.Subject, nil
}

// GetIdentityFromContext извлекает идентификатор участника из контекста запроса.
func GetIdentityFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(identityKey).(string)
	return id, ok
}

// WithIdentity возвращает контекст с идентификатором участника.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}
