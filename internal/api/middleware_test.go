package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowclinic/scheduling/internal/booking"
)

func TestIdentityMiddleware(t *testing.T) {
	var seen booking.Actor
	handler := IdentityMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		require.True(t, ok)
		seen = actor
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("valid identity", func(t *testing.T) {
		userID := uuid.New()
		r := httptest.NewRequest("GET", "/appointments/my", nil)
		r.Header.Set("X-User-ID", userID.String())
		r.Header.Set("X-User-Role", "patient")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, userID, seen.ID)
		assert.Equal(t, booking.RolePatient, seen.Role)
	})

	t.Run("missing user id", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/appointments/my", nil)
		r.Header.Set("X-User-Role", "patient")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown role", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/appointments/my", nil)
		r.Header.Set("X-User-ID", uuid.New().String())
		r.Header.Set("X-User-Role", "superadmin")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := IdentityMiddleware(RequireRole(booking.RoleStaff, booking.RoleOwner)(ok))

	send := func(role string) int {
		r := httptest.NewRequest("POST", "/appointments/admin/confirm/x", nil)
		r.Header.Set("X-User-ID", uuid.New().String())
		r.Header.Set("X-User-Role", role)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, send("staff"))
	assert.Equal(t, http.StatusNoContent, send("owner"))
	assert.Equal(t, http.StatusForbidden, send("patient"))
	assert.Equal(t, http.StatusForbidden, send("attendant"))
}

func TestRequestIDMiddleware(t *testing.T) {
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, GetRequestID(r.Context()))
	}))

	t.Run("generates one", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/health/live", nil))
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("keeps the caller's", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/health/live", nil)
		r.Header.Set("X-Request-ID", "req-123")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	})
}
