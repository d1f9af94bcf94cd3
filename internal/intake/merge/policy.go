// Package merge routes recognized document fields into a lead draft.
package merge

import (
	"strings"

	"github.com/leadflow/leadflow-backend/internal/intake/domain"
)

// Outcome describes what a merge changed
type Outcome struct {
	DocumentType     domain.DocumentType
	Applied          bool
	CustomerNameSet  bool
	RecognizedFields int
}

// Apply merges an extraction result into the draft.
//
// The bucket of the result's document type is replaced as a whole, so fields
// missing from a later result are dropped. Only identity documents touch a
// scalar field: a non-empty recognized name overwrites the customer name.
func Apply(draft *domain.LeadDraft, result domain.ExtractionResult) Outcome {
	out := Outcome{DocumentType: result.DocumentType, RecognizedFields: len(result.Fields)}

	switch result.DocumentType {
	case domain.DocumentTypeAadhaar:
		bucket := domain.NewAadhaarData(result.Fields)
		draft.Aadhaar = &bucket
		if name := strings.TrimSpace(bucket.Name); name != "" {
			draft.CustomerName = name
			out.CustomerNameSet = true
		}
	case domain.DocumentTypeRC:
		bucket := domain.NewRCData(result.Fields)
		draft.RC = &bucket
	case domain.DocumentTypeInsurance:
		bucket := domain.NewInsuranceData(result.Fields)
		draft.Insurance = &bucket
	default:
		return out
	}

	out.Applied = true
	return out
}
