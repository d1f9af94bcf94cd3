package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/leadflow-backend/pkg/logger"
)

type recordingChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
}

func (c *recordingChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.exchange, c.key, c.msg = exchange, key, msg
	return c.err
}

func TestPublisher_Publish(t *testing.T) {
	ch := &recordingChannel{}
	p := NewChannelPublisher(ch, ExchangeLeadEvents, "lead-service", logger.Nop())

	ctx := WithCorrelationID(context.Background(), "req-1")
	err := p.Publish(ctx, EventLeadCreated, LeadCreatedEvent{LeadID: "L1", Mobile: "9876543210"})
	require.NoError(t, err)

	assert.Equal(t, "lead.events", ch.exchange)
	assert.Equal(t, "lead.created", ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, uint8(amqp.Persistent), ch.msg.DeliveryMode)
	assert.Equal(t, "req-1", ch.msg.CorrelationId)
	assert.Equal(t, "lead.created", ch.msg.Type)
	assert.Equal(t, "lead-service", ch.msg.AppId)
	assert.False(t, ch.msg.Timestamp.IsZero())

	var event Event
	require.NoError(t, json.Unmarshal(ch.msg.Body, &event))
	assert.Equal(t, "lead.created", event.Type)
	assert.Equal(t, "lead-service", event.Source)
	assert.Equal(t, ch.msg.MessageId, event.ID)

	var data LeadCreatedEvent
	require.NoError(t, event.UnmarshalData(&data))
	assert.Equal(t, "L1", data.LeadID)
}

func TestPublisher_PublishError(t *testing.T) {
	ch := &recordingChannel{err: amqp.ErrClosed}
	p := NewChannelPublisher(ch, ExchangeLeadEvents, "lead-service", logger.Nop())

	err := p.Publish(context.Background(), EventLeadCreated, LeadCreatedEvent{})
	assert.ErrorIs(t, err, amqp.ErrClosed)
}

type ackRecorder struct {
	acked, nacked, rejected, requeued bool
}

func (a *ackRecorder) Ack(uint64, bool) error {
	a.acked = true
	return nil
}

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}

func (a *ackRecorder) Reject(uint64, bool) error {
	a.rejected = true
	return nil
}

func delivery(t *testing.T, ack *ackRecorder, eventType string, redelivered bool) amqp.Delivery {
	t.Helper()
	event, err := NewEvent(eventType, "test", "corr", map[string]string{"lead_id": "L1"})
	require.NoError(t, err)
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, Body: body, Redelivered: redelivered}
}

func TestConsumer_HandleMessage(t *testing.T) {
	failing := errors.New("boom")

	tests := []struct {
		name        string
		eventType   string
		body        []byte
		redelivered bool
		handlerErr  error
		want        ackRecorder
	}{
		{name: "handled", eventType: EventLeadCreated, want: ackRecorder{acked: true}},
		{name: "no handler", eventType: "lead.other", want: ackRecorder{acked: true}},
		{name: "malformed", body: []byte("{"), want: ackRecorder{rejected: true}},
		{name: "first failure requeues", eventType: EventLeadCreated, handlerErr: failing, want: ackRecorder{nacked: true, requeued: true}},
		{name: "second failure drops", eventType: EventLeadCreated, redelivered: true, handlerErr: failing, want: ackRecorder{rejected: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotCorrelation string
			c := &Consumer{handlers: map[string]MessageHandler{}, logger: logger.Nop()}
			c.RegisterHandler(EventLeadCreated, func(ctx context.Context, e *Event) error {
				gotCorrelation = CorrelationID(ctx)
				return tt.handlerErr
			})

			ack := &ackRecorder{}
			msg := delivery(t, ack, tt.eventType, tt.redelivered)
			if tt.body != nil {
				msg.Body = tt.body
			}
			c.handleMessage(context.Background(), msg)

			assert.Equal(t, tt.want, *ack)
			if tt.eventType == EventLeadCreated {
				assert.Equal(t, "corr", gotCorrelation)
			}
		})
	}
}

func TestPublisher_CorrelationDefaultsToEventID(t *testing.T) {
	ch := &recordingChannel{}
	p := NewChannelPublisher(ch, ExchangeLeadEvents, "lead-service", logger.Nop())

	require.NoError(t, p.Publish(context.Background(), EventLeadCreated, LeadCreatedEvent{LeadID: "L2"}))
	assert.NotEmpty(t, ch.msg.CorrelationId)
	assert.Equal(t, ch.msg.MessageId, ch.msg.CorrelationId)
}

func TestOn_DecodesData(t *testing.T) {
	c := &Consumer{handlers: map[string]MessageHandler{}, logger: logger.Nop()}

	var got LeadCreatedEvent
	On(c, EventLeadCreated, func(_ context.Context, _ *Event, data LeadCreatedEvent) error {
		got = data
		return nil
	})

	ack := &ackRecorder{}
	event, err := NewEvent(EventLeadCreated, "test", "", LeadCreatedEvent{LeadID: "L9", RegNo: "MH12AB1234"})
	require.NoError(t, err)
	body, err := json.Marshal(event)
	require.NoError(t, err)

	c.handleMessage(context.Background(), amqp.Delivery{Acknowledger: ack, Body: body})
	assert.True(t, ack.acked)
	assert.Equal(t, "L9", got.LeadID)
	assert.Equal(t, "MH12AB1234", got.RegNo)
}

func TestOn_BadDataRequeuesOnce(t *testing.T) {
	c := &Consumer{handlers: map[string]MessageHandler{}, logger: logger.Nop()}
	On(c, EventLeadCreated, func(context.Context, *Event, LeadCreatedEvent) error { return nil })

	ack := &ackRecorder{}
	body := []byte(`{"id":"e1","type":"lead.created","data":"not an object"}`)
	c.handleMessage(context.Background(), amqp.Delivery{Acknowledger: ack, Body: body})
	assert.Equal(t, ackRecorder{nacked: true, requeued: true}, *ack)
}

func TestDeathCount(t *testing.T) {
	msg := amqp.Delivery{Headers: amqp.Table{"x-death": []interface{}{amqp.Table{"count": int64(4)}}}}
	assert.Equal(t, 4, deathCount(msg))
	assert.Equal(t, 0, deathCount(amqp.Delivery{}))
}
