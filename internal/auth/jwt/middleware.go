package jwt

import (
	"net/http"
	"strings"

	"github.com/leadflow/leadflow-backend/pkg/errors"
	"github.com/leadflow/leadflow-backend/pkg/httputil"
)

// Authenticate requires a valid bearer access token and puts the agent into
// the request context.
func (m *Manager) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			httputil.ErrorLocalized(w, r, errors.Unauthorized("missing bearer token"))
			return
		}

		claims, err := m.ValidateAccessToken(tokenString)
		if err != nil {
			httputil.ErrorLocalized(w, r, err)
			return
		}

		ctx := httputil.WithAgentContext(r.Context(), claims.AgentID, claims.Name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
