// Package errors defines AppError, the error type handlers turn into a
// localized JSON response.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/leadflow/leadflow-backend/pkg/i18n"
)

// Sentinels matched with errors.Is
var (
	ErrNotFound        = errors.New("resource not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrBadRequest      = errors.New("bad request")
	ErrConflict        = errors.New("resource conflict")
	ErrInternal        = errors.New("internal server error")
	ErrValidation      = errors.New("validation error")
	ErrTokenExpired    = errors.New("token expired")
	ErrTokenInvalid    = errors.New("invalid token")
	ErrPayloadTooLarge = errors.New("payload too large")
)

// AppError carries an HTTP status, a stable code and an optional i18n key
// for the message shown to the agent.
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	MessageKey string            `json:"-"`
	Params     map[string]string `json:"-"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
	// DetailKeys holds i18n keys for Details entries, by field
	DetailKeys map[string]string `json:"-"`
	// DetailParams holds per-field placeholders; fields without an entry use Params
	DetailParams map[string]map[string]string `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Localize renders the message in the locale of ctx. Errors without a key
// keep their literal message.
func (e *AppError) Localize(ctx context.Context) string {
	if e.MessageKey == "" {
		return e.Message
	}
	return i18n.TFromContext(ctx, e.MessageKey, e.Params)
}

// LocalizeDetails returns the details with every keyed entry localized
func (e *AppError) LocalizeDetails(ctx context.Context) map[string]string {
	if len(e.DetailKeys) == 0 {
		return e.Details
	}
	out := make(map[string]string, len(e.Details))
	for field, msg := range e.Details {
		out[field] = msg
	}
	for field, key := range e.DetailKeys {
		params, ok := e.DetailParams[field]
		if !ok {
			params = e.Params
		}
		out[field] = i18n.TFromContext(ctx, key, params)
	}
	return out
}

// keyed builds an error whose default message is the English text of key
func keyed(sentinel error, code string, status int, key string, params map[string]string) *AppError {
	return &AppError{
		Err:        sentinel,
		Code:       code,
		Message:    i18n.T(key, params),
		MessageKey: key,
		Params:     params,
		StatusCode: status,
	}
}

// literal builds an error with a fixed message and a key for localized output
func literal(sentinel error, code string, status int, message, key string) *AppError {
	return &AppError{Err: sentinel, Code: code, Message: message, MessageKey: key, StatusCode: status}
}

// Wrap attaches an HTTP status and code to err
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{Err: err, Code: code, Message: message, StatusCode: statusCode}
}

// NotFoundWithKey reports a missing resource named by resources.<resourceKey>
func NotFoundWithKey(resourceKey string) *AppError {
	resource := i18n.T("resources." + resourceKey)
	e := keyed(ErrNotFound, "NOT_FOUND", http.StatusNotFound, "errors.not_found", map[string]string{"resource": resource})
	e.Message = resource + " not found"
	return e
}

func Unauthorized(message string) *AppError {
	return literal(ErrUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized, message, "errors.unauthorized")
}

// BadRequest is a 400 whose message is shown as is
func BadRequest(message string) *AppError {
	return literal(ErrBadRequest, "BAD_REQUEST", http.StatusBadRequest, message, "")
}

func BadRequestWithKey(messageKey string, params map[string]string) *AppError {
	return keyed(ErrBadRequest, "BAD_REQUEST", http.StatusBadRequest, messageKey, params)
}

func Conflict(message string) *AppError {
	return literal(ErrConflict, "CONFLICT", http.StatusConflict, message, "errors.conflict")
}

func ConflictWithKey(messageKey string, params map[string]string) *AppError {
	return keyed(ErrConflict, "CONFLICT", http.StatusConflict, messageKey, params)
}

func Internal(message string) *AppError {
	return literal(ErrInternal, "INTERNAL_ERROR", http.StatusInternalServerError, message, "errors.internal")
}

// ValidationField reports a single failed rule. The message and the one
// detail entry carry the rule's i18n key.
func ValidationField(field, messageKey string) *AppError {
	e := keyed(ErrValidation, "VALIDATION_ERROR", http.StatusBadRequest, messageKey, nil)
	e.Details = map[string]string{field: e.Message}
	e.DetailKeys = map[string]string{field: messageKey}
	return e
}

// ValidationFields reports several failed rules at once. keys maps each
// field to the i18n key of its rule.
func ValidationFields(keys map[string]string, params map[string]map[string]string) *AppError {
	e := literal(ErrValidation, "VALIDATION_ERROR", http.StatusBadRequest, "validation failed", "errors.validation_failed")
	e.Details = make(map[string]string, len(keys))
	for field, key := range keys {
		e.Details[field] = i18n.T(key, params[field])
	}
	e.DetailKeys = keys
	e.DetailParams = params
	return e
}

func PayloadTooLarge(limit string) *AppError {
	return keyed(ErrPayloadTooLarge, "PAYLOAD_TOO_LARGE", http.StatusRequestEntityTooLarge, "errors.payload_too_large", map[string]string{"limit": limit})
}

func TokenExpired() *AppError {
	return literal(ErrTokenExpired, "TOKEN_EXPIRED", http.StatusUnauthorized, "token has expired", "errors.token_expired")
}

func TokenInvalid() *AppError {
	return literal(ErrTokenInvalid, "TOKEN_INVALID", http.StatusUnauthorized, "invalid token", "errors.token_invalid")
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
