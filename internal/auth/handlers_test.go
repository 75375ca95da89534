package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthRouter(t *testing.T) (*gin.Engine, *AuthManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	am := NewAuthManager(AuthConfig{JWTSecret: "test-secret", JWTExpiry: time.Hour})
	handlers := NewAuthHandlers(am)

	r := gin.New()
	api := r.Group("/api/v1")
	handlers.SetupRoutes(api)

	return r, am
}

func TestLogin(t *testing.T) {
	r, am := setupAuthRouter(t)

	_, err := am.CreateUserWithPassword("bob", "bob@example.com", "correct-horse", []string{"user"})
	require.NoError(t, err)

	t.Run("valid credentials return token", func(t *testing.T) {
		body, _ := json.Marshal(LoginRequest{Username: "bob", Password: "correct-horse"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "bob", resp.User.Username)

		// Token is usable
		claims, err := am.ValidateJWTToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "bob", claims.Username)
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		body, _ := json.Marshal(LoginRequest{Username: "bob", Password: "wrong"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown user rejected", func(t *testing.T) {
		body, _ := json.Marshal(LoginRequest{Username: "nobody", Password: "pass"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthStatus(t *testing.T) {
	r, _ := setupAuthRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/status", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, true, status["authentication_enabled"])
	assert.Equal(t, false, status["authenticated"])
}

func TestAPIKeyLifecycle(t *testing.T) {
	r, am := setupAuthRouter(t)

	user, err := am.CreateUserWithPassword("carol", "carol@example.com", "pass-word", []string{"user"})
	require.NoError(t, err)
	token, err := am.CreateJWTToken(user)
	require.NoError(t, err)

	var created CreateAPIKeyResponse

	t.Run("create key", func(t *testing.T) {
		body, _ := json.Marshal(CreateAPIKeyRequest{Name: "ci", ExpiresIn: "30d"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/api-keys", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		assert.NotEmpty(t, created.Key)
	})

	t.Run("list keys hides plaintext", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/api-keys", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), created.Key)
	})

	t.Run("revoke key", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/api-keys/"+created.ID, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		_, _, err := am.ValidateAPIKey(created.Key)
		require.Error(t, err)
	})

	t.Run("create key requires auth", func(t *testing.T) {
		body, _ := json.Marshal(CreateAPIKeyRequest{Name: "anon"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/api-keys", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAdminEndpoints(t *testing.T) {
	r, am := setupAuthRouter(t)

	admin, err := am.GetUserByUsername("admin")
	require.NoError(t, err)
	adminToken, err := am.CreateJWTToken(admin)
	require.NoError(t, err)

	regular, err := am.CreateUser("plain", "plain@example.com", []string{"user"})
	require.NoError(t, err)
	regularToken, err := am.CreateJWTToken(regular)
	require.NoError(t, err)

	t.Run("admin can create users", func(t *testing.T) {
		body, _ := json.Marshal(CreateUserRequest{Username: "newbie", Email: "new@example.com", Password: "pw-123456"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/users", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+adminToken)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)

		user, err := am.GetUserByUsername("newbie")
		require.NoError(t, err)
		assert.Equal(t, []string{"user"}, user.Roles)
	})

	t.Run("non-admin forbidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
		req.Header.Set("Authorization", "Bearer "+regularToken)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", 30 * 24 * time.Hour, false},
		{"30d", 30 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"1y", 365 * 24 * time.Hour, false},
		{"720h", 720 * time.Hour, false},
		{"bogus", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDuration(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
