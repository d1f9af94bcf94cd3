// Package form holds the editable state of one lead being entered.
package form

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/leadflow/leadflow-backend/internal/intake/domain"
	"github.com/leadflow/leadflow-backend/internal/intake/merge"
)

// MobileDigits is the length of a valid mobile number
const MobileDigits = 10

var (
	// ErrUnknownField is returned by SetField for names outside the draft
	ErrUnknownField = errors.New("unknown draft field")
	// ErrSealed is returned by mutations of a draft that is being submitted
	ErrSealed = errors.New("draft is being submitted")
)

// Ticket correlates an extraction with the slot image it was started for
type Ticket struct {
	Slot         domain.DocumentSlot
	DocumentType domain.DocumentType
	Generation   uint64
	marker       uint64
}

// Store is the in-memory form state of a single draft. All methods are safe
// for concurrent use; every mutation is applied under one lock so readers
// never observe a half-merged draft.
type Store struct {
	mu sync.Mutex

	draft       *domain.LeadDraft
	generations map[domain.DocumentSlot]uint64

	// processing is the type of the running extraction, running its ticket.
	// pending holds every queued or running extraction by ticket.
	processing domain.DocumentType
	running    uint64
	markerSeq  uint64
	pending    map[uint64]domain.DocumentType
	sealed     bool

	activeCapture domain.DocumentSlot
	cameraError   string

	createdAt time.Time
	updatedAt time.Time
}

// NewStore returns a store holding an empty draft
func NewStore() *Store {
	now := time.Now()
	return &Store{
		draft:       domain.NewLeadDraft(),
		generations: make(map[domain.DocumentSlot]uint64),
		pending:     make(map[uint64]domain.DocumentType),
		createdAt:   now,
		updatedAt:   now,
	}
}

// NormalizeMobile strips every non-digit and keeps at most the first ten digits
func NormalizeMobile(s string) string {
	var b strings.Builder
	for _, r := range s {
		if b.Len() == MobileDigits {
			break
		}
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SetField sets one scalar field of the draft
func (s *Store) SetField(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return ErrSealed
	}
	switch name {
	case domain.FieldCustomerName:
		s.draft.CustomerName = value
	case domain.FieldMobile:
		s.draft.Mobile = NormalizeMobile(value)
	case domain.FieldBrokerName:
		s.draft.BrokerName = value
	case domain.FieldGuarName:
		s.draft.GuarName = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	s.touch()
	return nil
}

// SetSlotImage replaces the slot's image; a zero payload clears the slot.
// Recognized buckets are left as they are. It returns the slot's new
// generation.
func (s *Store) SetSlotImage(slot domain.DocumentSlot, payload domain.ImagePayload) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return 0, ErrSealed
	}
	if payload.IsZero() {
		delete(s.draft.Slots, slot)
	} else {
		s.draft.Slots[slot] = payload
	}
	s.generations[slot]++
	s.touch()
	return s.generations[slot], nil
}

// SlotImage returns the current image of a slot
func (s *Store) SlotImage(slot domain.DocumentSlot) (domain.ImagePayload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.draft.Slots[slot]
	return p, ok
}

// IsCurrent reports whether gen is still the slot's latest write
func (s *Store) IsCurrent(slot domain.DocumentSlot, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[slot] == gen
}

// BeginExtraction queues an extraction of the image written at generation
// gen. The draft counts as busy until the returned release func is called;
// release is safe to call more than once and clears the processing marker
// only if this extraction set it.
func (s *Store) BeginExtraction(slot domain.DocumentSlot, docType domain.DocumentType, gen uint64) (Ticket, func()) {
	s.mu.Lock()
	s.markerSeq++
	t := Ticket{Slot: slot, DocumentType: docType, Generation: gen, marker: s.markerSeq}
	s.pending[t.marker] = docType
	s.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.pending, t.marker)
			if s.running == t.marker {
				s.processing = ""
				s.running = 0
			}
		})
	}
	return t, release
}

// StartExtraction sets the processing marker for a queued extraction that
// is now running.
func (s *Store) StartExtraction(t Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[t.marker]; !ok {
		return
	}
	s.processing = t.DocumentType
	s.running = t.marker
}

// Processing returns the document type currently being extracted, or ""
func (s *Store) Processing() domain.DocumentType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing
}

// Busy returns the type of the running extraction, else of the oldest queued
// one, or "" when none is outstanding.
func (s *Store) Busy() domain.DocumentType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busyLocked()
}

func (s *Store) busyLocked() domain.DocumentType {
	if s.processing != "" {
		return s.processing
	}
	var oldest uint64
	var docType domain.DocumentType
	for marker, dt := range s.pending {
		if oldest == 0 || marker < oldest {
			oldest, docType = marker, dt
		}
	}
	return docType
}

// Seal returns a copy of the draft for submission together with the type of
// any outstanding extraction. When none is outstanding the store is sealed:
// field and slot writes fail with ErrSealed until Unseal.
func (s *Store) Seal() (*domain.LeadDraft, domain.DocumentType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	busy := s.busyLocked()
	if busy == "" {
		s.sealed = true
	}
	return s.draft.Clone(), busy
}

// Unseal reopens a sealed store
func (s *Store) Unseal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = false
}

// MergeExtraction applies a result through the merge policy. Results for an
// image that has since been replaced or cleared are discarded.
func (s *Store) MergeExtraction(t Ticket, result domain.ExtractionResult) (merge.Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generations[t.Slot] != t.Generation {
		return merge.Outcome{DocumentType: result.DocumentType}, false
	}
	out := merge.Apply(s.draft, result)
	if out.Applied {
		s.touch()
	}
	return out, out.Applied
}

// SetActiveCapture records the slot the camera was opened for
func (s *Store) SetActiveCapture(slot domain.DocumentSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeCapture = slot
	s.cameraError = ""
}

// SetCameraError records a user-facing camera failure; the active capture
// slot is kept so the user can retry.
func (s *Store) SetCameraError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cameraError = msg
}

// ClearCamera resets the camera flags
func (s *Store) ClearCamera() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeCapture = ""
	s.cameraError = ""
}

// Draft returns a deep copy of the draft
func (s *Store) Draft() *domain.LeadDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// UpdatedAt returns the time of the last mutation
func (s *Store) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Store) touch() {
	s.updatedAt = time.Now()
}
