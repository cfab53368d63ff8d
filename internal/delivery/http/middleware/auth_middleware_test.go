package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-doctor-scheduling/config"
	"go-doctor-scheduling/internal/domain/entity"
	"go-doctor-scheduling/pkg/jwt"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuth(t *testing.T) (*AuthMiddleware, *jwt.JWTService, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	jwtService := jwt.NewJWTService(config.JWTConfig{Secret: "test-secret"})
	return NewAuthMiddleware(jwtService, client, log), jwtService, srv
}

func TestAuthenticate(t *testing.T) {
	auth, jwtService, srv := newTestAuth(t)
	userID := uuid.New()

	token, tokenID, err := jwtService.GenerateAccessToken(userID, "dr@example.com", entity.RoleIDDoctor, time.Hour)
	require.NoError(t, err)

	var gotUser uuid.UUID
	var gotRole int
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = GetUserIDFromContext(r.Context())
		gotRole, _ = GetRoleIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := auth.Authenticate(next)

	serve := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/1", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("valid token puts identity in context", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, serve("Bearer "+token))
		assert.Equal(t, userID, gotUser)
		assert.Equal(t, entity.RoleIDDoctor, gotRole)
	})

	t.Run("missing header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(""))
	})

	t.Run("wrong scheme", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve("Basic "+token))
	})

	t.Run("garbage token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve("Bearer not-a-jwt"))
	})

	t.Run("revoked token", func(t *testing.T) {
		require.NoError(t, srv.Set(RevokedTokenKeyPrefix+tokenID, "1"))
		assert.Equal(t, http.StatusUnauthorized, serve("Bearer "+token))
	})

	t.Run("revocation store down", func(t *testing.T) {
		fresh, _, err := jwtService.GenerateAccessToken(userID, "dr@example.com", entity.RoleIDDoctor, time.Hour)
		require.NoError(t, err)
		srv.Close()
		assert.Equal(t, http.StatusInternalServerError, serve("Bearer "+fresh))
	})
}

func TestRequireRole(t *testing.T) {
	auth, jwtService, _ := newTestAuth(t)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	testCases := []struct {
		name           string
		roleID         int
		guard          func(http.Handler) http.Handler
		expectedStatus int
	}{
		{"patient may book", entity.RoleIDPatient, RequireRole(entity.RoleIDAdmin, entity.RoleIDPatient), http.StatusOK},
		{"doctor may not book", entity.RoleIDDoctor, RequireRole(entity.RoleIDAdmin, entity.RoleIDPatient), http.StatusForbidden},
		{"doctor manages slots", entity.RoleIDDoctor, RequireAdminOrDoctor, http.StatusOK},
		{"patient does not manage slots", entity.RoleIDPatient, RequireAdminOrDoctor, http.StatusForbidden},
		{"admin reads audit logs", entity.RoleIDAdmin, RequireAdmin, http.StatusOK},
		{"doctor does not read audit logs", entity.RoleIDDoctor, RequireAdmin, http.StatusForbidden},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			token, _, err := jwtService.GenerateAccessToken(uuid.New(), "user@example.com", tc.roleID, time.Hour)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			auth.Authenticate(tc.guard(ok)).ServeHTTP(rec, req)

			assert.Equal(t, tc.expectedStatus, rec.Code)
		})
	}

	t.Run("no role in context", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequireAdmin(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
