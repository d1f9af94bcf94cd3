package httputil

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/leadflow/leadflow-backend/pkg/errors"
)

var validate = newValidator()

// newValidator reports fields by their json name
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a request struct's validate tags. Every failed field is
// listed in the error details, localized per request.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.BadRequest(err.Error())
	}

	keys := make(map[string]string, len(fieldErrs))
	params := make(map[string]map[string]string)
	for _, fe := range fieldErrs {
		key, p := ruleMessage(fe)
		keys[fe.Field()] = key
		if p != nil {
			params[fe.Field()] = p
		}
	}
	return errors.ValidationFields(keys, params)
}

func ruleMessage(fe validator.FieldError) (string, map[string]string) {
	switch fe.Tag() {
	case "required":
		return "validation.rule_required", nil
	case "max":
		return "validation.rule_max", map[string]string{"max": fe.Param()}
	case "oneof":
		return "validation.rule_oneof", map[string]string{"values": fe.Param()}
	default:
		return "validation.rule_invalid", nil
	}
}
