package events

import (
	"context"
	"sort"

	"github.com/leadflow/leadflow-backend/internal/intake/domain"
	"github.com/leadflow/leadflow-backend/pkg/httputil"
	"github.com/leadflow/leadflow-backend/pkg/logger"
	"github.com/leadflow/leadflow-backend/pkg/messaging"
)

// Publisher sends an event to the broker
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// LeadEventPublisher publishes lead-related events
type LeadEventPublisher struct {
	publisher Publisher
	logger    *logger.Logger
}

// NewLeadEventPublisher creates a lead event publisher on the lead exchange
func NewLeadEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*LeadEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeLeadEvents, "lead-service", log)
	if err != nil {
		return nil, err
	}
	return NewWithPublisher(publisher, log), nil
}

// NewWithPublisher wraps an existing publisher
func NewWithPublisher(p Publisher, log *logger.Logger) *LeadEventPublisher {
	return &LeadEventPublisher{publisher: p, logger: log}
}

// PublishLeadCreated publishes a lead created event. A nil publisher is a
// no-op. The request ID becomes the correlation ID when ctx carries none.
func (p *LeadEventPublisher) PublishLeadCreated(ctx context.Context, lead *domain.Lead) error {
	if p == nil {
		return nil
	}

	docs := make([]string, 0, len(lead.Documents))
	for field := range lead.Documents {
		docs = append(docs, field)
	}
	sort.Strings(docs)

	data := messaging.LeadCreatedEvent{
		LeadID:       lead.ID,
		CustomerName: lead.CustomerName,
		Mobile:       lead.Mobile,
		BrokerName:   lead.BrokerName,
		Documents:    docs,
		CreatedBy:    lead.CreatedBy,
		CreatedAt:    lead.CreatedAt,
	}
	if lead.RC != nil {
		data.RegNo = lead.RC.RegNo
	}

	if messaging.CorrelationID(ctx) == "" {
		if id := httputil.GetRequestID(ctx); id != "" {
			ctx = messaging.WithCorrelationID(ctx, id)
		}
	}
	return p.publisher.Publish(ctx, messaging.EventLeadCreated, data)
}
