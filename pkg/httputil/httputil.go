// Package httputil holds the JSON envelope, middleware and request
// validation shared by the HTTP handlers.
package httputil

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/leadflow/leadflow-backend/pkg/errors"
	"github.com/leadflow/leadflow-backend/pkg/i18n"
)

// maxJSONBody caps request bodies read by DecodeJSON
const maxJSONBody = 1 << 20

// Response is the envelope of every JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody is the error part of the envelope
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func write(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// JSON sends data in the envelope. Success follows the status code.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	write(w, statusCode, Response{
		Success: statusCode >= 200 && statusCode < 300,
		Data:    data,
	})
}

// Created sends a 201 with data
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// NoContent sends a 204 No Content response
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// ErrorLocalized sends err in the request locale. Errors that are not an
// AppError become a 500 without details.
func ErrorLocalized(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		write(w, http.StatusInternalServerError, Response{Error: &ErrorBody{
			Code:    "INTERNAL_ERROR",
			Message: i18n.TFromContext(ctx, "errors.internal"),
		}})
		return
	}

	write(w, appErr.StatusCode, Response{Error: &ErrorBody{
		Code:    appErr.Code,
		Message: appErr.Localize(ctx),
		Details: appErr.LocalizeDetails(ctx),
	}})
}

// DecodeJSON reads one JSON object from the body. Unknown fields, trailing
// data and bodies over 1MB are rejected.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.BadRequestWithKey("errors.invalid_json", nil)
	}
	if dec.More() {
		return errors.BadRequestWithKey("errors.invalid_json", nil)
	}
	return nil
}
