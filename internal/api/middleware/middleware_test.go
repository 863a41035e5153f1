package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bcnelson/widget-authorizer/internal/auth"
	"github.com/bcnelson/widget-authorizer/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct{}

func (stubVerifier) Verify(ctx context.Context, rawToken string) (*auth.Claims, error) {
	if rawToken != "good" {
		return nil, errors.New("invalid")
	}
	return &auth.Claims{Subject: "1", Email: "alice@acme.com"}, nil
}

func serve(h http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestAuth_Disabled(t *testing.T) {
	h := Auth(nil, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Nil(t, GetClaimsFromContext(r.Context()))
		w.WriteHeader(http.StatusTeapot)
	}))
	assert.Equal(t, http.StatusTeapot, serve(h, "").Code)
}

func TestAuth_StaticToken(t *testing.T) {
	h := Auth(nil, "secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Token secret", http.StatusUnauthorized},
		{"Bearer ", http.StatusUnauthorized},
		{"Bearer secre", http.StatusUnauthorized},
		{"Bearer secret", http.StatusNoContent},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, serve(h, tt.header).Code, tt.header)
	}
}

func TestAuth_Verifier(t *testing.T) {
	var got *auth.Claims
	h := Auth(stubVerifier{}, "ignored")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetClaimsFromContext(r.Context())
	}))

	assert.Equal(t, http.StatusUnauthorized, serve(h, "Bearer ignored").Code)

	rr := serve(h, "Bearer good")
	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, got)
	assert.Equal(t, "alice@acme.com", got.Email)
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestID(r.Context())
	}))

	rr := serve(h, "")
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rr.Header().Get(headerRequestID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(headerRequestID, "abc")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rr.Header().Get(headerRequestID))
}

func TestResponseWriterCapturesStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rr, status: http.StatusOK}
	rw.WriteHeader(http.StatusNotFound)
	assert.Equal(t, http.StatusNotFound, rw.status)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
