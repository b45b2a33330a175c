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

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssueAndParse(t *testing.T) {
	auth := NewJWTAuthenticator(testSecret, time.Hour)

	token, expires, err := auth.Issue("alice", "acme")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := auth.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "acme", claims.Organization)
	assert.Equal(t, "orgperm", claims.Issuer)
}

func TestIssueErrors(t *testing.T) {
	_, _, err := NewJWTAuthenticator(nil, time.Hour).Issue("alice", "acme")
	assert.ErrorContains(t, err, "jwt secret is not configured")

	_, _, err = NewJWTAuthenticator(testSecret, time.Hour).Issue("alice", "")
	assert.ErrorContains(t, err, "subject and organization are required")
}

func TestParseRejects(t *testing.T) {
	auth := NewJWTAuthenticator(testSecret, time.Hour)

	t.Run("other secret", func(t *testing.T) {
		token, _, err := NewJWTAuthenticator([]byte("another-secret"), time.Hour).Issue("alice", "acme")
		require.NoError(t, err)
		_, err = auth.Parse(token)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewJWTAuthenticator(testSecret, time.Minute)
		past.now = fixedClock(time.Now().Add(-time.Hour))
		token, _, err := past.Issue("alice", "acme")
		require.NoError(t, err)
		_, err = auth.Parse(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("no expiry", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			Organization:     "acme",
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "orgperm", Subject: "alice"},
		}).SignedString(testSecret)
		require.NoError(t, err)
		_, err = auth.Parse(token)
		assert.Error(t, err)
	})

	t.Run("no organization", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "orgperm",
				Subject:   "alice",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}).SignedString(testSecret)
		require.NoError(t, err)
		_, err = auth.Parse(token)
		assert.ErrorContains(t, err, "no subject or organization")
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
			Organization: "acme",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "orgperm",
				Subject:   "alice",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}).SignedString(testSecret)
		require.NoError(t, err)
		_, err = auth.Parse(token)
		assert.Error(t, err)
	})
}

func TestMiddleware(t *testing.T) {
	auth := NewJWTAuthenticator(testSecret, time.Hour)
	valid, _, err := auth.Issue("alice", "acme")
	require.NoError(t, err)

	expiring := NewJWTAuthenticator(testSecret, time.Minute)
	expiring.now = fixedClock(time.Now().Add(-time.Hour))
	expired, _, err := expiring.Issue("alice", "acme")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{name: "missing", header: "", code: http.StatusUnauthorized, body: "Authorization missing"},
		{name: "wrong scheme", header: "Token token=\"abc\"", code: http.StatusUnauthorized, body: "Malformed authorization header"},
		{name: "empty bearer", header: "Bearer ", code: http.StatusUnauthorized, body: "Malformed authorization header"},
		{name: "garbage", header: "Bearer not.a.jwt", code: http.StatusUnauthorized, body: "Invalid token"},
		{name: "expired", header: "Bearer " + expired, code: http.StatusUnauthorized, body: "Token expired"},
		{name: "valid", header: "Bearer " + valid, code: http.StatusOK, body: "acme/alice"},
	}

	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(id.Organization + "/" + id.Subject))
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.body, w.Body.String())
		})
	}
}
