package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware_WithValidToken(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	token, err := m.IssueToken("alice", time.Hour)
	require.NoError(t, err)

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		id, ok := GetIdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("identity not in context")
		}
		if id != "alice" {
			t.Fatalf("identity from context = %q, want alice", id)
		}
	})

	r := httptest.NewRequest(http.MethodPost, "/protected", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	m := NewAuthMiddleware("test-secret")
	other := NewAuthMiddleware("other-secret")

	valid, err := other.IssueToken("alice", time.Hour)
	require.NoError(t, err)
	expired, err := m.IssueToken("alice", -time.Minute)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice smith",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	badSubjectToken, err := badSubject.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "alice"})
	noExpToken, err := noExp.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "no header", header: ""},
		{name: "not bearer", header: "Basic YWxpY2U6cHc="},
		{name: "empty bearer", header: "Bearer "},
		{name: "garbage", header: "Bearer not.a.token"},
		{name: "foreign signature", header: "Bearer " + valid},
		{name: "expired", header: "Bearer " + expired},
		{name: "alg none", header: "Bearer " + unsigned},
		{name: "invalid subject", header: "Bearer " + badSubjectToken},
		{name: "no expiry", header: "Bearer " + noExpToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("next handler should not be called")
			})

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/protected", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			m.Middleware(next).ServeHTTP(w, r)

			assert.Equal(t, http.StatusUnauthorized, w.Result().StatusCode)
		})
	}
}

func TestIssueToken_InvalidIdentity(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	_, err := m.IssueToken("", time.Hour)
	assert.ErrorIs(t, err, ErrInvalidSubject)
}

func TestNewAuthMiddleware_RandomKey(t *testing.T) {
	a := NewAuthMiddleware("")
	b := NewAuthMiddleware("")

	token, err := a.IssueToken("alice", time.Hour)
	require.NoError(t, err)

	id, err := a.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", id)

	_, err = b.ParseToken(token)
	assert.Error(t, err)
}
