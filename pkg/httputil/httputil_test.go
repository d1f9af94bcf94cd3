package httputil_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/leadflow-backend/pkg/errors"
	"github.com/leadflow/leadflow-backend/pkg/httputil"
	"github.com/leadflow/leadflow-backend/pkg/i18n"
	"github.com/leadflow/leadflow-backend/pkg/logger"
	"github.com/leadflow/leadflow-backend/pkg/testutil"
)

func TestErrorLocalized(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		lang    string
		status  int
		code    string
		message string
	}{
		{"app error", errors.NotFoundWithKey("draft"), "en", http.StatusNotFound, "NOT_FOUND", "Draft not found"},
		{"wrapped app error", fmt.Errorf("load: %w", errors.Conflict("taken")), "en", http.StatusConflict, "CONFLICT", "Resource conflict"},
		{"plain error", fmt.Errorf("disk on fire"), "en", http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred"},
		{"hindi", errors.ValidationField("mobile", "validation.mobile_invalid"), "hi", http.StatusBadRequest, "VALIDATION_ERROR", "मोबाइल नंबर ठीक 10 अंकों का होना चाहिए"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := i18n.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				httputil.ErrorLocalized(w, r, tt.err)
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Accept-Language", tt.lang)

			rr := testutil.ExecuteRequest(h, req)
			testutil.AssertStatus(t, rr, tt.status)
			env := testutil.ParseEnvelope[any](t, rr)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.Equal(t, tt.message, env.Error.Message)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Mobile string `json:"mobile"`
	}

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"valid", `{"mobile":"9876543210"}`, false},
		{"unknown field", `{"mobile":"9876543210","pan":"X"}`, true},
		{"trailing object", `{"mobile":"1"}{"mobile":"2"}`, true},
		{"malformed", `{"mobile":`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(tt.payload))
			var b body
			err := httputil.DecodeJSON(req, &b)
			if tt.wantErr {
				var appErr *errors.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "9876543210", b.Mobile)
		})
	}
}

func TestValidate(t *testing.T) {
	type req struct {
		Name   string `json:"customerName" validate:"required,max=5"`
		Status string `json:"status" validate:"omitempty,oneof=New Verified"`
	}

	assert.NoError(t, httputil.Validate(&req{Name: "Ravi"}))

	err := httputil.Validate(&req{Name: "Ravindra", Status: "Lost"})
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Must be at most 5 characters", appErr.Details["customerName"])
	assert.Equal(t, "Must be one of: New Verified", appErr.Details["status"])

	hi := appErr.LocalizeDetails(i18n.WithLocale(context.Background(), i18n.LocaleHindi))
	assert.Equal(t, "अधिकतम 5 अक्षर हो सकते हैं", hi["customerName"])
	assert.Equal(t, "इनमें से एक होना चाहिए: New Verified", hi["status"])
}

func TestLogger_SeesAuthenticatedAgent(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter("lead-service", &buf)

	r := chi.NewRouter()
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := httputil.WithAgentContext(req.Context(), "agent-9", "Meena")
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
		r.Get("/drafts", func(w http.ResponseWriter, r *http.Request) {
			httputil.JSON(w, http.StatusTeapot, map[string]string{"agent": httputil.GetAgentID(r.Context())})
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/drafts", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rr := testutil.ExecuteRequest(r, req)
	assert.Equal(t, "req-42", rr.Header().Get("X-Request-ID"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "agent-9", line["agent_id"])
	assert.Equal(t, "req-42", line["request_id"])
	assert.Equal(t, "warn", line["level"])
	assert.EqualValues(t, http.StatusTeapot, line["status"])
	assert.Positive(t, line["bytes"])
}

func TestRecoverer(t *testing.T) {
	h := httputil.Recoverer(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil map")
	}))

	rr := testutil.ExecuteRequest(h, httptest.NewRequest(http.MethodGet, "/", nil))
	testutil.AssertStatus(t, rr, http.StatusInternalServerError)
}
