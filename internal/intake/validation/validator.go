// Package validation decides whether a lead draft can be submitted.
package validation

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/leadflow/leadflow-backend/internal/intake/domain"
	"github.com/leadflow/leadflow-backend/pkg/errors"
)

// submission holds the rule-bearing part of a draft. Field order is the
// order in which violations are reported.
type submission struct {
	Processing   string `json:"processing" validate:"isdefault"`
	CustomerName string `json:"customerName" validate:"required"`
	Mobile       string `json:"mobile" validate:"required,len=10,numeric"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return v
}

// Validate checks a draft and assembles the record handed to the lead
// creator. processing is the document type of an outstanding extraction, if
// any. The first violated rule is returned as a validation AppError.
func Validate(draft *domain.LeadDraft, processing domain.DocumentType) (*domain.LeadRecord, error) {
	sub := submission{
		Processing:   string(processing),
		CustomerName: strings.TrimSpace(draft.CustomerName),
		Mobile:       digitsOnly(draft.Mobile),
	}

	if err := validate.Struct(sub); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok || len(fieldErrs) == 0 {
			return nil, err
		}
		first := fieldErrs[0]
		return nil, errors.ValidationField(first.Field(), messageKey(first))
	}

	return buildRecord(draft, sub), nil
}

func messageKey(e validator.FieldError) string {
	switch e.Field() {
	case "processing":
		return "validation.extraction_in_progress"
	case "customerName":
		return "validation.customer_name_required"
	case "mobile":
		if e.Tag() == "required" {
			return "validation.mobile_required"
		}
		return "validation.mobile_invalid"
	default:
		return "errors.validation_failed"
	}
}

func buildRecord(draft *domain.LeadDraft, sub submission) *domain.LeadRecord {
	c := draft.Clone()
	rec := &domain.LeadRecord{
		CustomerName: sub.CustomerName,
		Mobile:       sub.Mobile,
		BrokerName:   strings.TrimSpace(c.BrokerName),
		GuarName:     strings.TrimSpace(c.GuarName),
		Images:       make(map[string]domain.ImagePayload, len(c.Slots)),
		Aadhaar:      c.Aadhaar,
		RC:           c.RC,
		Insurance:    c.Insurance,
	}
	for _, slot := range domain.AllSlots() {
		if img, ok := c.Slots[slot]; ok && !img.IsZero() {
			rec.Images[slot.OutputField()] = img
		}
	}
	return rec
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
