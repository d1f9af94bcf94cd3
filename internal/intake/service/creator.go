package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/leadflow/leadflow-backend/internal/intake/domain"
	"github.com/leadflow/leadflow-backend/internal/intake/storage"
	"github.com/leadflow/leadflow-backend/pkg/logger"
)

// LeadStore persists leads
type LeadStore interface {
	Create(ctx context.Context, lead *domain.Lead) error
	GetByID(ctx context.Context, id string) (*domain.Lead, error)
}

// ImageUploader stores lead images
type ImageUploader interface {
	Put(ctx context.Context, key string, image domain.ImagePayload) error
	Remove(ctx context.Context, key string) error
}

// LeadEvents announces created leads
type LeadEvents interface {
	PublishLeadCreated(ctx context.Context, lead *domain.Lead) error
}

// LeadCreator turns a validated record into a stored lead:
// upload images, insert the row, publish lead.created.
type LeadCreator struct {
	leads  LeadStore
	images ImageUploader
	events LeadEvents
	log    *logger.Logger
}

// NewLeadCreator creates a new lead creator. events may be nil.
func NewLeadCreator(leads LeadStore, images ImageUploader, events LeadEvents, log *logger.Logger) *LeadCreator {
	return &LeadCreator{leads: leads, images: images, events: events, log: log}
}

// Create stores the record. Uploaded images are removed again when the
// insert fails; a failed publish is only logged.
func (c *LeadCreator) Create(ctx context.Context, record *domain.LeadRecord, agentID string) (*domain.Lead, error) {
	lead := &domain.Lead{
		ID:           uuid.New().String(),
		Status:       domain.LeadStatusNew,
		CustomerName: record.CustomerName,
		Mobile:       record.Mobile,
		BrokerName:   record.BrokerName,
		GuarName:     record.GuarName,
		Aadhaar:      record.Aadhaar,
		RC:           record.RC,
		Insurance:    record.Insurance,
		Documents:    make(map[string]string, len(record.Images)),
		CreatedBy:    agentID,
	}

	fields := make([]string, 0, len(record.Images))
	for field := range record.Images {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		image := record.Images[field]
		key := storage.ObjectKey(lead.ID, field, image)
		if err := c.images.Put(ctx, key, image); err != nil {
			c.cleanup(lead)
			return nil, fmt.Errorf("store %s: %w", field, err)
		}
		lead.Documents[field] = key
	}

	if err := c.leads.Create(ctx, lead); err != nil {
		c.cleanup(lead)
		return nil, err
	}

	if c.events != nil {
		if err := c.events.PublishLeadCreated(ctx, lead); err != nil {
			c.log.Error().Err(err).Str("lead_id", lead.ID).Msg("failed to publish lead created event")
		}
	}

	c.log.Info().
		Str("lead_id", lead.ID).
		Int("documents", len(lead.Documents)).
		Msg("lead created")
	return lead, nil
}

// Get returns a stored lead
func (c *LeadCreator) Get(ctx context.Context, id string) (*domain.Lead, error) {
	return c.leads.GetByID(ctx, id)
}

func (c *LeadCreator) cleanup(lead *domain.Lead) {
	ctx := context.Background()
	for _, key := range lead.Documents {
		if err := c.images.Remove(ctx, key); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("failed to remove orphaned image")
		}
	}
}
