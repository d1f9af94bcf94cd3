package extraction

import (
	"fmt"
	"strings"

	"github.com/leadflow/leadflow-backend/internal/intake/domain"
)

type fieldHint struct {
	name string
	hint string
}

var documentTitles = map[domain.DocumentType]string{
	domain.DocumentTypeAadhaar:   "Aadhaar",
	domain.DocumentTypeRC:        "RC",
	domain.DocumentTypeInsurance: "Insurance Policy",
}

var fieldHints = map[domain.DocumentType][]fieldHint{
	domain.DocumentTypeAadhaar: {
		{"name", "Full name"},
		{"dob", "DD-MM-YYYY"},
		{"aadhaarNo", "12 digits"},
		{"pincode", "6 digits"},
		{"state", "State"},
		{"city", "City or district"},
		{"area", "Locality"},
		{"address", "Full address"},
	},
	domain.DocumentTypeRC: {
		{"regNo", "Vehicle no"},
		{"ownerName", "Owner"},
		{"vehicleType", "Vehicle class"},
		{"mfgYear", "YYYY"},
		{"make", "Brand"},
		{"makeClass", "Model"},
		{"regAuthority", "Registering authority"},
		{"engineNo", "Engine number"},
		{"chassisNo", "Chassis number"},
		{"fuelType", "Fuel"},
		{"color", "Colour"},
		{"regDate", "DD-MM-YYYY"},
		{"expiryDate", "DD-MM-YYYY"},
	},
	domain.DocumentTypeInsurance: {
		{"company", "Company Name"},
		{"type", "Policy type"},
		{"policyNo", "Policy Number"},
		{"nameTransfer", "Yes or No"},
		{"endorsementDate", "DD-MM-YYYY"},
		{"expiryDate", "DD-MM-YYYY"},
		{"idvValue", "Amount"},
		{"premium", "Amount"},
	},
}

// Instruction returns the fixed instruction sent with an image of the given
// document type. It names the expected fields with a hint for each and
// asks for JSON only.
func Instruction(docType domain.DocumentType) string {
	hints, ok := fieldHints[docType]
	if !ok {
		return ""
	}

	parts := make([]string, len(hints))
	for i, h := range hints {
		parts[i] = fmt.Sprintf("%q: %q", h.name, h.hint)
	}
	return fmt.Sprintf("Analyze %s: {%s} Omit fields you cannot read. Only JSON output.",
		documentTitles[docType], strings.Join(parts, ", "))
}
