package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"testing"

	"github.com/leadflow/leadflow-backend/internal/intake/domain"
)

// FixtureFactory creates test data with unique values
type FixtureFactory struct {
	mu  sync.Mutex
	seq int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{}
}

func (f *FixtureFactory) nextSeq() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return f.seq
}

// Lead creates a lead fixture
func (f *FixtureFactory) Lead(opts ...func(*domain.Lead)) *domain.Lead {
	seq := f.nextSeq()
	lead := &domain.Lead{
		Status:       domain.LeadStatusNew,
		CustomerName: fmt.Sprintf("Customer %d", seq),
		Mobile:       fmt.Sprintf("98765%05d", seq),
		BrokerName:   "Sai Motors",
		Documents:    map[string]string{},
		CreatedBy:    "agent-test",
	}
	for _, opt := range opts {
		opt(lead)
	}
	return lead
}

// WithRC sets the registration certificate bucket
func WithRC(rc domain.RCData) func(*domain.Lead) {
	return func(l *domain.Lead) {
		l.RC = &rc
	}
}

// WithAadhaar sets the identity bucket
func WithAadhaar(a domain.AadhaarData) func(*domain.Lead) {
	return func(l *domain.Lead) {
		l.Aadhaar = &a
	}
}

// WithDocument adds a stored document
func WithDocument(field, key string) func(*domain.Lead) {
	return func(l *domain.Lead) {
		l.Documents[field] = key
	}
}

// JPEG returns a small encoded test image
func JPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

// ImagePayload returns JPEG(t) as a payload
func ImagePayload(t *testing.T) domain.ImagePayload {
	t.Helper()
	return domain.NewImagePayload(JPEG(t), "image/jpeg")
}
