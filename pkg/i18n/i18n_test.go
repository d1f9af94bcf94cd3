package i18n_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leadflow/leadflow-backend/pkg/i18n"
	"github.com/stretchr/testify/assert"
)

func TestLocalizer_T(t *testing.T) {
	en := i18n.NewLocalizer(i18n.LocaleEnglish)
	hi := i18n.NewLocalizer(i18n.LocaleHindi)

	assert.Equal(t, "Mobile number must be exactly 10 digits", en.T("validation.mobile_invalid"))
	assert.Equal(t, "मोबाइल नंबर ठीक 10 अंकों का होना चाहिए", hi.T("validation.mobile_invalid"))
	assert.Equal(t, "Lead not found", en.T("errors.not_found", map[string]string{"resource": "Lead"}))
	assert.Equal(t, "validation.unknown_key", en.T("validation.unknown_key"))
}

func TestCatalogsParse(t *testing.T) {
	assert.NoError(t, i18n.LoadError())
}

func TestLocalizer_UnsupportedLocaleFallsBack(t *testing.T) {
	l := i18n.NewLocalizer("de")
	assert.Equal(t, i18n.LocaleEnglish, l.GetLocale())
}

func TestCatalogsHaveSameKeys(t *testing.T) {
	keys := []string{
		"errors.validation_failed",
		"validation.customer_name_required",
		"validation.mobile_required",
		"validation.extraction_in_progress",
		"camera.permission_denied",
		"agreement.title",
		"agreement.hisab_photo",
	}
	for _, k := range keys {
		assert.NotEqual(t, k, i18n.TWithLocale(i18n.LocaleHindi, k), k)
		assert.NotEqual(t, i18n.T(k), i18n.TWithLocale(i18n.LocaleHindi, k), k)
	}
}

func TestParseAcceptLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", "en"},
		{"hi-IN,hi;q=0.9,en;q=0.8", "hi"},
		{"en-IN,en;q=0.9,hi;q=0.8", "en"},
		{"mr-IN,hi;q=0.7,en;q=0.5", "hi"},
		{"en;q=0.3,hi;q=0.6", "hi"},
		{"hi;q=0", "en"},
		{"de-DE", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, i18n.ParseAcceptLanguage(tt.header))
		})
	}
}

func TestMiddleware(t *testing.T) {
	var got string
	h := i18n.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = i18n.TFromContext(r.Context(), "validation.mobile_required")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "hi-IN")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "मोबाइल नंबर आवश्यक है", got)
	assert.Equal(t, "hi", rec.Header().Get("Content-Language"))
	assert.Equal(t, "en", i18n.GetLocaleFromContext(context.Background()))
}
