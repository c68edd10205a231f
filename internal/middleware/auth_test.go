package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustvest/be-proposals/internal/middleware"
)

const secret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, key string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func authHandler() (http.Handler, *string) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return middleware.Auth(secret, "/health")(inner), &seen
}

func TestAuthValidToken(t *testing.T) {
	h, seen := authHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/proposals", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{"sub": "bob"}, secret))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob", *seen)
}

func TestAuthRejects(t *testing.T) {
	cases := map[string]func(r *http.Request){
		"missing header": func(r *http.Request) {},
		"not bearer": func(r *http.Request) {
			r.Header.Set("Authorization", "Basic abc")
		},
		"wrong secret": func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{"sub": "bob"}, "other"))
		},
		"no subject": func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{"role": "admin"}, secret))
		},
	}

	for name, prep := range cases {
		t.Run(name, func(t *testing.T) {
			h, _ := authHandler()
			req := httptest.NewRequest(http.MethodGet, "/api/proposals", nil)
			prep(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAuthSkipsHealth(t *testing.T) {
	h, _ := authHandler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestID(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, middleware.RequestIDFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
	h := middleware.RequestID(inner)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	// An incoming id is propagated, not replaced.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "fixed-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Header().Get(middleware.RequestIDHeader))
}
