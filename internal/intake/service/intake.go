// Package service orchestrates lead intake: drafts, capture, background
// extraction and submission.
package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/leadflow/leadflow-backend/internal/intake/capture"
	"github.com/leadflow/leadflow-backend/internal/intake/domain"
	"github.com/leadflow/leadflow-backend/internal/intake/form"
	"github.com/leadflow/leadflow-backend/internal/intake/repository"
	"github.com/leadflow/leadflow-backend/internal/intake/storage"
	"github.com/leadflow/leadflow-backend/internal/intake/validation"
	"github.com/leadflow/leadflow-backend/pkg/errors"
	"github.com/leadflow/leadflow-backend/pkg/i18n"
	"github.com/leadflow/leadflow-backend/pkg/logger"
)

// Extractor recognizes the fields of one document image
type Extractor interface {
	Extract(ctx context.Context, image domain.ImagePayload, docType domain.DocumentType) (*domain.ExtractionResult, error)
}

// AuditRecorder stores extraction attempts
type AuditRecorder interface {
	RecordExtraction(ctx context.Context, a repository.ExtractionAudit) error
}

// CameraFactory creates the camera owned by a new draft
type CameraFactory func() *capture.Camera

// IntakeService manages open drafts and hands finished ones to the creator
type IntakeService struct {
	drafts    *storage.DraftStorage
	cameras   CameraFactory
	extractor Extractor
	audit     AuditRecorder
	creator   *LeadCreator
	timeout   time.Duration
	log       *logger.Logger

	// ctx ends queued and running extractions when Drain gives up
	ctx      context.Context
	stop     context.CancelFunc
	inflight sync.WaitGroup
}

// NewIntakeService creates a new intake service. audit may be nil.
func NewIntakeService(
	drafts *storage.DraftStorage,
	cameras CameraFactory,
	extractor Extractor,
	audit AuditRecorder,
	creator *LeadCreator,
	extractionTimeout time.Duration,
	log *logger.Logger,
) *IntakeService {
	if cameras == nil {
		cameras = func() *capture.Camera {
			return capture.NewCamera(capture.Unavailable, capture.DefaultConstraints())
		}
	}
	if extractionTimeout <= 0 {
		extractionTimeout = 45 * time.Second
	}
	ctx, stop := context.WithCancel(context.Background())
	return &IntakeService{
		ctx:       ctx,
		stop:      stop,
		drafts:    drafts,
		cameras:   cameras,
		extractor: extractor,
		audit:     audit,
		creator:   creator,
		timeout:   extractionTimeout,
		log:       log,
	}
}

// CreateDraft opens an empty draft for the agent
func (s *IntakeService) CreateDraft(agentID string) *storage.Draft {
	d := storage.NewDraft(agentID, s.cameras())
	s.drafts.Put(d)
	s.log.Info().Str("draft_id", d.ID).Str("agent_id", agentID).Msg("draft opened")
	return d
}

// Draft returns an open draft
func (s *IntakeService) Draft(id string) (*storage.Draft, error) {
	d, ok := s.drafts.Get(id)
	if !ok {
		return nil, errors.NotFoundWithKey("draft")
	}
	return d, nil
}

// View returns the current state of a draft
func (s *IntakeService) View(id string) (form.View, error) {
	d, err := s.Draft(id)
	if err != nil {
		return form.View{}, err
	}
	return d.Form.Snapshot(), nil
}

// SetFields applies manual edits. Unknown names reject the whole request.
func (s *IntakeService) SetFields(id string, fields map[string]string) (form.View, error) {
	d, err := s.Draft(id)
	if err != nil {
		return form.View{}, err
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		switch name {
		case domain.FieldCustomerName, domain.FieldMobile, domain.FieldBrokerName, domain.FieldGuarName:
		default:
			return form.View{}, errors.BadRequestWithKey("draft.unknown_field", map[string]string{"field": name})
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := d.Form.SetField(name, fields[name]); err != nil {
			return form.View{}, formError(err)
		}
	}
	return d.Form.Snapshot(), nil
}

// SetSlotImage stores an image in a slot and starts recognition when the
// slot is designated for it.
func (s *IntakeService) SetSlotImage(id string, slot domain.DocumentSlot, image domain.ImagePayload) (form.View, error) {
	d, err := s.Draft(id)
	if err != nil {
		return form.View{}, err
	}
	if err := s.storeImage(d, slot, image); err != nil {
		return form.View{}, formError(err)
	}
	return d.Form.Snapshot(), nil
}

// ClearSlot empties one slot. Recognized data is kept.
func (s *IntakeService) ClearSlot(id string, slot domain.DocumentSlot) (form.View, error) {
	d, err := s.Draft(id)
	if err != nil {
		return form.View{}, err
	}
	if _, err := d.Form.SetSlotImage(slot, domain.ImagePayload{}); err != nil {
		return form.View{}, formError(err)
	}
	return d.Form.Snapshot(), nil
}

// SlotImage returns the image held by a slot
func (s *IntakeService) SlotImage(id string, slot domain.DocumentSlot) (domain.ImagePayload, error) {
	d, err := s.Draft(id)
	if err != nil {
		return domain.ImagePayload{}, err
	}
	p, ok := d.Form.SlotImage(slot)
	if !ok {
		return domain.ImagePayload{}, errors.NotFoundWithKey("slot_image")
	}
	return p, nil
}

// StartCamera opens the draft's camera for a slot. Device failures become
// the draft's camera error and are not returned.
func (s *IntakeService) StartCamera(ctx context.Context, id string, slot domain.DocumentSlot) (form.View, error) {
	d, err := s.Draft(id)
	if err != nil {
		return form.View{}, err
	}

	d.Form.SetActiveCapture(slot)
	if err := d.Camera.Start(ctx, slot); err != nil {
		s.log.Warn().Err(err).Str("draft_id", id).Str("slot", string(slot)).Msg("camera start failed")
		d.Form.SetCameraError(cameraMessage(ctx, err))
	}
	return d.Form.Snapshot(), nil
}

// Capture snapshots the open camera into the slot. The camera is released
// whether or not the capture succeeds.
func (s *IntakeService) Capture(ctx context.Context, id string, slot domain.DocumentSlot) (form.View, error) {
	d, err := s.Draft(id)
	if err != nil {
		return form.View{}, err
	}

	image, err := d.Camera.Capture(ctx, slot)
	if stderrors.Is(err, capture.ErrNoActiveStream) {
		d.Form.ClearCamera()
		return form.View{}, errors.BadRequestWithKey("camera.not_started", nil)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("draft_id", id).Str("slot", string(slot)).Msg("capture failed")
		d.Form.SetCameraError(cameraMessage(ctx, err))
		return d.Form.Snapshot(), nil
	}

	d.Form.ClearCamera()
	if err := s.storeImage(d, slot, image); err != nil {
		return form.View{}, formError(err)
	}
	return d.Form.Snapshot(), nil
}

// StopCamera releases the draft's camera
func (s *IntakeService) StopCamera(id string) (form.View, error) {
	d, err := s.Draft(id)
	if err != nil {
		return form.View{}, err
	}
	d.Camera.Stop()
	d.Form.ClearCamera()
	return d.Form.Snapshot(), nil
}

// Cancel discards a draft and releases its camera
func (s *IntakeService) Cancel(id string) error {
	if !s.drafts.Delete(id) {
		return errors.NotFoundWithKey("draft")
	}
	s.log.Info().Str("draft_id", id).Msg("draft cancelled")
	return nil
}

// Submit validates a draft and creates the lead. The draft stays open when
// validation or creation fails.
func (s *IntakeService) Submit(ctx context.Context, id string) (*domain.Lead, error) {
	// concurrent submits of the same draft: only one gets past Take
	d, ok := s.drafts.Take(id)
	if !ok {
		return nil, errors.NotFoundWithKey("draft")
	}

	draft, busy := d.Form.Seal()
	record, err := validation.Validate(draft, busy)
	if err != nil {
		s.reopen(d)
		return nil, err
	}

	lead, err := s.creator.Create(ctx, record, d.AgentID)
	if err != nil {
		s.reopen(d)
		return nil, err
	}

	d.Camera.Close()
	s.log.Info().Str("draft_id", id).Str("lead_id", lead.ID).Msg("draft submitted")
	return lead, nil
}

// Lead returns a stored lead
func (s *IntakeService) Lead(ctx context.Context, id string) (*domain.Lead, error) {
	return s.creator.Get(ctx, id)
}

// Drain waits for queued and running extractions to finish. When ctx ends
// first the remaining ones are cancelled.
func (s *IntakeService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.stop()
		return ctx.Err()
	}
}

func (s *IntakeService) reopen(d *storage.Draft) {
	d.Form.Unseal()
	s.drafts.Put(d)
}

func (s *IntakeService) storeImage(d *storage.Draft, slot domain.DocumentSlot, image domain.ImagePayload) error {
	gen, err := d.Form.SetSlotImage(slot, image)
	if err != nil || image.IsZero() {
		return err
	}
	docType, ok := domain.ExtractionTypeFor(slot)
	if !ok || s.extractor == nil {
		return nil
	}

	ticket, release := d.Form.BeginExtraction(slot, docType, gen)
	s.inflight.Add(1)
	go s.extractAsync(d, ticket, release, image)
	return nil
}

func formError(err error) error {
	if stderrors.Is(err, form.ErrSealed) {
		return errors.ConflictWithKey("draft.submitting", nil)
	}
	return err
}

// extractAsync runs one extraction in the background. The processing
// marker is released on every path.
func (s *IntakeService) extractAsync(d *storage.Draft, ticket form.Ticket, release func(), image domain.ImagePayload) {
	defer s.inflight.Done()
	defer release()

	log := s.log.WithDraftID(d.ID)

	// queued behind the draft's other extractions; the time budget starts
	// once this one runs
	err := d.AcquireExtraction(s.ctx)
	if err == nil && s.ctx.Err() != nil {
		d.ReleaseExtraction()
		err = s.ctx.Err()
	}
	if err != nil {
		log.Warn().Err(err).Str("slot", string(ticket.Slot)).Msg("extraction not started")
		s.recordAudit(d.ID, ticket, nil, 0, fmt.Errorf("extraction not started: %w", err))
		return
	}
	defer d.ReleaseExtraction()

	if !d.Form.IsCurrent(ticket.Slot, ticket.Generation) {
		log.Debug().Str("slot", string(ticket.Slot)).Msg("image replaced before extraction, skipping")
		return
	}
	d.Form.StartExtraction(ticket)

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	log.Info().
		Str("slot", string(ticket.Slot)).
		Str("doc_type", string(ticket.DocumentType)).
		Msg("starting document extraction")

	start := time.Now()
	result, err := s.extractor.Extract(ctx, image, ticket.DocumentType)
	if err != nil {
		log.Error().Err(err).
			Str("slot", string(ticket.Slot)).
			Str("doc_type", string(ticket.DocumentType)).
			Msg("document extraction failed")
		s.recordAudit(d.ID, ticket, nil, time.Since(start), err)
		return
	}

	outcome, applied := d.Form.MergeExtraction(ticket, *result)
	if !applied {
		log.Info().Str("slot", string(ticket.Slot)).Msg("discarding extraction for replaced image")
	} else {
		log.Info().
			Str("slot", string(ticket.Slot)).
			Str("doc_type", string(ticket.DocumentType)).
			Str("processor", result.Processor).
			Int("fields_extracted", outcome.RecognizedFields).
			Bool("customer_name_set", outcome.CustomerNameSet).
			Int64("duration_ms", result.ProcessingTimeMs).
			Msg("document extraction completed")
	}
	s.recordAudit(d.ID, ticket, result, time.Since(start), nil)
}

func (s *IntakeService) recordAudit(draftID string, t form.Ticket, result *domain.ExtractionResult, elapsed time.Duration, extractErr error) {
	if s.audit == nil {
		return
	}

	a := repository.ExtractionAudit{
		DraftID:      draftID,
		Slot:         t.Slot,
		DocumentType: t.DocumentType,
		DurationMs:   elapsed.Milliseconds(),
		Err:          extractErr,
	}
	if result != nil {
		a.Processor = result.Processor
		a.DurationMs = result.ProcessingTimeMs
		for name := range result.Fields {
			a.Fields = append(a.Fields, name)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.audit.RecordExtraction(ctx, a); err != nil {
		s.log.Error().Err(err).Str("draft_id", draftID).Msg("failed to write extraction audit")
	}
}

func cameraMessage(ctx context.Context, err error) string {
	if stderrors.Is(err, capture.ErrPermissionDenied) {
		return i18n.TFromContext(ctx, "camera.permission_denied")
	}
	return i18n.TFromContext(ctx, "camera.error", map[string]string{"detail": err.Error()})
}
