package jwt_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leadflow/leadflow-backend/internal/auth/jwt"
	"github.com/leadflow/leadflow-backend/pkg/config"
	apperrors "github.com/leadflow/leadflow-backend/pkg/errors"
	"github.com/leadflow/leadflow-backend/pkg/httputil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(expiry time.Duration) *jwt.Manager {
	return jwt.NewManager(&config.JWTConfig{
		Secret:       "test-secret",
		AccessExpiry: expiry,
		Issuer:       "leadflow",
	})
}

func TestManager_RoundTrip(t *testing.T) {
	m := newManager(time.Hour)

	tok, err := m.GenerateAccessToken(&jwt.AgentInfo{ID: "agent-7", Name: "Vikram", Branch: "Pune"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tok.TokenType)

	claims, err := m.ValidateAccessToken(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "agent-7", claims.AgentID)
	assert.Equal(t, "Vikram", claims.Name)
	assert.Equal(t, "Pune", claims.Branch)
	assert.Equal(t, "agent-7", claims.Subject)
}

func TestManager_RejectsExpiredAndForeignTokens(t *testing.T) {
	expired, err := newManager(-time.Minute).GenerateAccessToken(&jwt.AgentInfo{ID: "a"})
	require.NoError(t, err)

	_, err = newManager(time.Hour).ValidateAccessToken(expired.AccessToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)

	other := jwt.NewManager(&config.JWTConfig{Secret: "other", AccessExpiry: time.Hour, Issuer: "leadflow"})
	foreign, err := other.GenerateAccessToken(&jwt.AgentInfo{ID: "a"})
	require.NoError(t, err)

	_, err = newManager(time.Hour).ValidateAccessToken(foreign.AccessToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)

	_, err = newManager(time.Hour).ValidateAccessToken("not-a-token")
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}

func TestAuthenticate(t *testing.T) {
	m := newManager(time.Hour)
	tok, err := m.GenerateAccessToken(&jwt.AgentInfo{ID: "agent-7", Name: "Vikram"})
	require.NoError(t, err)

	var gotAgent string
	h := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = httputil.GetAgentID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + tok.AccessToken, http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotAgent = ""
			req := httptest.NewRequest(http.MethodGet, "/api/v1/drafts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusNoContent {
				assert.Equal(t, "agent-7", gotAgent)
			} else {
				assert.Empty(t, gotAgent)
			}
		})
	}
}
