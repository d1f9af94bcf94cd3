package database

import (
	"strings"

	"github.com/lib/pq"

	"github.com/leadflow/leadflow-backend/pkg/errors"
)

// checkConstraints maps a CHECK constraint name suffix to the form field and
// message key reported to the agent.
var checkConstraints = []struct {
	suffix string
	field  string
	key    string
}{
	{"mobile_format", "mobile", "validation.mobile_invalid"},
	{"customer_name_present", "customerName", "validation.customer_name_required"},
	{"status_valid", "status", "validation.status_invalid"},
}

// MapPQError converts an integrity violation into an AppError.
// Anything else, including non-pq errors, yields nil.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code.Name() {
	case "check_violation":
		for _, c := range checkConstraints {
			if strings.HasSuffix(pqErr.Constraint, c.suffix) {
				return errors.ValidationField(c.field, c.key)
			}
		}
		return errors.BadRequest("data validation failed: " + pqErr.Constraint)
	case "unique_violation":
		return errors.Conflict("a lead with these values already exists")
	case "foreign_key_violation":
		return errors.BadRequest("referenced record does not exist")
	case "not_null_violation":
		col := pqErr.Column
		if col == "" {
			col = "field"
		}
		return errors.ValidationFields(map[string]string{col: "validation.rule_required"}, nil)
	}
	return nil
}
