// Package extraction turns document images into structured fields using a
// remote vision model.
package extraction

import (
	"context"

	"github.com/leadflow/leadflow-backend/internal/intake/domain"
)

// Request is one recognition call
type Request struct {
	Image        domain.ImagePayload
	DocumentType domain.DocumentType
	Instruction  string
}

// Recognizer sends a document image to a vision backend.
// Backends can be swapped without changing the service or handler layer.
type Recognizer interface {
	// Supports returns true if this recognizer handles the given document type
	Supports(docType domain.DocumentType) bool

	// Recognize returns the raw JSON object text produced by the backend.
	// The image should NOT be retained after the call.
	Recognize(ctx context.Context, req Request) ([]byte, error)

	// Name returns the recognizer name for logging
	Name() string
}

// Registry holds all registered recognizers and dispatches to the right one
type Registry struct {
	recognizers []Recognizer
}

// NewRegistry creates a new recognizer registry
func NewRegistry(recognizers ...Recognizer) *Registry {
	return &Registry{recognizers: recognizers}
}

// Find returns the first recognizer that handles the given document type
func (r *Registry) Find(docType domain.DocumentType) Recognizer {
	for _, rec := range r.recognizers {
		if rec.Supports(docType) {
			return rec
		}
	}
	return nil
}

// Names lists the registered recognizers in registration order
func (r *Registry) Names() []string {
	names := make([]string, len(r.recognizers))
	for i, rec := range r.recognizers {
		names[i] = rec.Name()
	}
	return names
}
