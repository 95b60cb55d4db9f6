package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talecraft/backend/internal/auth"
)

func authedRequest(t *testing.T, manager *auth.JWTManager, userID uuid.UUID) *http.Request {
	t.Helper()
	token, err := manager.GenerateAccessToken(userID, "parent@example.com")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stories", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAuthMiddlewarePassesIdentityToHandler(t *testing.T) {
	manager := auth.NewJWTManager("test-secret", time.Hour)
	userID := uuid.New()

	var gotID uuid.UUID
	var gotEmail string
	handler := AuthMiddleware(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetUserID(r.Context())
		require.True(t, ok)
		gotID = id
		email, _ := GetEmail(r.Context())
		gotEmail = email
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, manager, userID))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, gotID)
	assert.Equal(t, "parent@example.com", gotEmail)
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	manager := auth.NewJWTManager("test-secret", time.Hour)
	handler := AuthMiddleware(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without credentials")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stories", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsMalformedHeader(t *testing.T) {
	manager := auth.NewJWTManager("test-secret", time.Hour)
	handler := AuthMiddleware(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without credentials")
	}))

	for _, header := range []string{"Basic abc", "Bearer", "just-a-token"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stories", nil)
		req.Header.Set("Authorization", header)
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}

func TestAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	expired := auth.NewJWTManager("test-secret", -time.Minute)
	live := auth.NewJWTManager("test-secret", time.Hour)

	handler := AuthMiddleware(live)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with an expired token")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, expired, uuid.New()))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
