package validation_test

import (
	"context"
	"testing"

	"github.com/leadflow/leadflow-backend/internal/intake/domain"
	"github.com/leadflow/leadflow-backend/internal/intake/validation"
	apperrors "github.com/leadflow/leadflow-backend/pkg/errors"
	"github.com/leadflow/leadflow-backend/pkg/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draft(name, mobile string) *domain.LeadDraft {
	d := domain.NewLeadDraft()
	d.CustomerName = name
	d.Mobile = mobile
	return d
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name       string
		draft      *domain.LeadDraft
		processing domain.DocumentType
		field      string
		key        string
	}{
		{"nine digit mobile", draft("Ramesh", "987654321"), "", "mobile", "validation.mobile_invalid"},
		{"eleven digit mobile", draft("Ramesh", "98765432101"), "", "mobile", "validation.mobile_invalid"},
		{"missing mobile", draft("Ramesh", ""), "", "mobile", "validation.mobile_required"},
		{"non-digit mobile", draft("Ramesh", "call me"), "", "mobile", "validation.mobile_required"},
		{"missing name", draft("", "9876543210"), "", "customerName", "validation.customer_name_required"},
		{"blank name", draft("   ", "9876543210"), "", "customerName", "validation.customer_name_required"},
		{"name reported before mobile", draft("", "123"), "", "customerName", "validation.customer_name_required"},
		{"extraction outstanding", draft("Ramesh", "9876543210"), domain.DocumentTypeRC, "processing", "validation.extraction_in_progress"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := validation.Validate(tt.draft, tt.processing)
			require.Error(t, err)
			assert.Nil(t, rec)

			var appErr *apperrors.AppError
			require.True(t, apperrors.As(err, &appErr))
			assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
			assert.Equal(t, tt.key, appErr.MessageKey)
			assert.Len(t, appErr.Details, 1)
			assert.Contains(t, appErr.Details, tt.field)
		})
	}
}

func TestValidate_MobileLengthMessage(t *testing.T) {
	_, err := validation.Validate(draft("Ramesh", "987654321"), "")

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, "Mobile number must be exactly 10 digits", appErr.Message)

	hi := i18n.WithLocale(context.Background(), i18n.LocaleHindi)
	assert.NotEqual(t, appErr.Message, appErr.Localize(hi))
}

func TestValidate_BuildsRecord(t *testing.T) {
	d := draft(" Ramesh Patil ", "98765-43210")
	d.BrokerName = "Sai Motors"
	d.Slots[domain.SlotRCFront] = domain.NewImagePayload([]byte("rc"), "image/jpeg")
	d.Slots[domain.SlotInsurance] = domain.NewImagePayload([]byte("pol"), "image/png")
	d.RC = &domain.RCData{RegNo: "MH12AB1234"}

	rec, err := validation.Validate(d, "")
	require.NoError(t, err)

	assert.Equal(t, "Ramesh Patil", rec.CustomerName)
	assert.Equal(t, "9876543210", rec.Mobile)
	assert.Equal(t, "Sai Motors", rec.BrokerName)
	assert.Len(t, rec.Images, 2)
	assert.True(t, rec.Images["rcFront"].Equal(d.Slots[domain.SlotRCFront]))
	assert.True(t, rec.Images["insuranceFile"].Equal(d.Slots[domain.SlotInsurance]))
	require.NotNil(t, rec.RC)
	assert.Equal(t, "MH12AB1234", rec.RC.RegNo)

	rec.RC.RegNo = "changed"
	assert.Equal(t, "MH12AB1234", d.RC.RegNo)
}
