package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/marcaromas/marcaromas-backend/pkg/enums"
	"github.com/marcaromas/marcaromas-backend/pkg/logger"
	"github.com/marcaromas/marcaromas-backend/pkg/outbox"
	"github.com/marcaromas/marcaromas-backend/pkg/outbox/payloads"
)

const reportingConsumerName = "reporting"

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer streams domain events into the BigQuery reporting tables while
// honoring Redis idempotency, so replays never double-count revenue.
type Consumer struct {
	client       tableInserter
	orderTable   string
	billingTable string
	subscription *pubsub.Subscriber
	manager      idempotencyChecker
	logg         *logger.Logger
}

// ConsumerParams configure the reporting consumer.
type ConsumerParams struct {
	Client       tableInserter
	OrderTable   string
	BillingTable string
	Subscription *pubsub.Subscriber
	Manager      idempotencyChecker
	Logger       *logger.Logger
}

// NewConsumer builds the reporting consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	if strings.TrimSpace(params.OrderTable) == "" {
		return nil, fmt.Errorf("order events table required")
	}
	if strings.TrimSpace(params.BillingTable) == "" {
		return nil, fmt.Errorf("billing events table required")
	}
	if params.Manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		client:       params.Client,
		orderTable:   strings.TrimSpace(params.OrderTable),
		billingTable: strings.TrimSpace(params.BillingTable),
		subscription: params.Subscription,
		manager:      params.Manager,
		logg:         params.Logger,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.subscription == nil {
		return fmt.Errorf("pubsub subscription required to run")
	}
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		eventType := enums.OutboxEventType(msg.Attributes["event_type"])

		var envelope outbox.PayloadEnvelope
		if err := json.Unmarshal(msg.Data, &envelope); err != nil {
			c.logg.Error(ctx, "failed to decode reporting envelope", err)
			msg.Ack()
			return
		}

		if err := c.Process(ctx, eventType, envelope); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Process ingests one outbox envelope into the matching reporting table.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})

	table, builder := c.route(eventType)
	if builder == nil {
		return nil
	}

	if envelope.EventID == "" {
		return fmt.Errorf("event id missing")
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return fmt.Errorf("parse event id: %w", err)
	}

	already, err := c.manager.CheckAndMarkProcessed(ctx, reportingConsumerName, eventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if already {
		return nil
	}

	row, err := builder(eventType, envelope)
	if err != nil {
		c.logg.Error(logCtx, "failed to build reporting row", err)
		_ = c.manager.Delete(ctx, reportingConsumerName, eventID)
		return err
	}

	if err := c.client.InsertRows(ctx, table, []any{row}); err != nil {
		c.logg.Error(logCtx, "failed to insert reporting row", err)
		_ = c.manager.Delete(ctx, reportingConsumerName, eventID)
		return err
	}
	return nil
}

type rowBuilder func(eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) (any, error)

func (c *Consumer) route(eventType enums.OutboxEventType) (string, rowBuilder) {
	switch eventType {
	case enums.EventOrderCreated,
		enums.EventOrderConfirmed,
		enums.EventOrderPaid,
		enums.EventOrderShipped,
		enums.EventOrderDelivered,
		enums.EventOrderCanceled,
		enums.EventOrderRefunded,
		enums.EventOrderPaymentFailed:
		return c.orderTable, buildOrderEventRow
	case enums.EventSubscriptionCreated,
		enums.EventSubscriptionBilled,
		enums.EventSubscriptionPaymentFailed,
		enums.EventSubscriptionPaused,
		enums.EventSubscriptionResumed,
		enums.EventSubscriptionCanceled,
		enums.EventSubscriptionDeliveryLogged:
		return c.billingTable, buildBillingEventRow
	default:
		return "", nil
	}
}

func buildOrderEventRow(eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) (any, error) {
	row := &OrderEventRow{
		EventID:    envelope.EventID,
		EventType:  string(eventType),
		OccurredAt: occurredAt(envelope),
		Payload:    rawJSON(envelope.Data),
	}

	// every order payload shares these identity fields
	var common struct {
		OrderID     uuid.UUID `json:"order_id"`
		OrderNumber string    `json:"order_number"`
		UserID      uuid.UUID `json:"user_id"`
	}
	if err := json.Unmarshal(envelope.Data, &common); err != nil {
		return nil, fmt.Errorf("decode order payload: %w", err)
	}
	row.OrderID = uuidPtr(common.OrderID)
	row.UserID = uuidPtr(common.UserID)
	if common.OrderNumber != "" {
		row.OrderNumber = &common.OrderNumber
	}

	switch eventType {
	case enums.EventOrderCreated:
		var payload payloads.OrderCreatedEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return nil, fmt.Errorf("decode order created: %w", err)
		}
		channel := string(payload.Channel)
		row.Channel = &channel
		row.AmountCents = &payload.TotalCents
	case enums.EventOrderPaid:
		var payload payloads.OrderPaidEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return nil, fmt.Errorf("decode order paid: %w", err)
		}
		row.AmountCents = &payload.AmountCents
	case enums.EventOrderRefunded:
		var payload payloads.OrderRefundedEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return nil, fmt.Errorf("decode order refunded: %w", err)
		}
		refund := -payload.AmountCents
		row.AmountCents = &refund
	}
	return row, nil
}

func buildBillingEventRow(eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) (any, error) {
	row := &BillingEventRow{
		EventID:    envelope.EventID,
		EventType:  string(eventType),
		OccurredAt: occurredAt(envelope),
		Payload:    rawJSON(envelope.Data),
	}

	var common struct {
		SubscriptionID uuid.UUID `json:"subscription_id"`
		UserID         uuid.UUID `json:"user_id"`
	}
	if err := json.Unmarshal(envelope.Data, &common); err != nil {
		return nil, fmt.Errorf("decode billing payload: %w", err)
	}
	row.SubscriptionID = uuidPtr(common.SubscriptionID)
	row.UserID = uuidPtr(common.UserID)

	switch eventType {
	case enums.EventSubscriptionCreated:
		var payload payloads.SubscriptionCreatedEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return nil, fmt.Errorf("decode subscription created: %w", err)
		}
		row.AmountCents = &payload.PriceCents
	case enums.EventSubscriptionBilled:
		var payload payloads.SubscriptionBilledEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return nil, fmt.Errorf("decode subscription billed: %w", err)
		}
		row.AmountCents = &payload.AmountCents
	case enums.EventSubscriptionPaymentFailed:
		var payload payloads.SubscriptionPaymentFailedEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return nil, fmt.Errorf("decode subscription payment failed: %w", err)
		}
		failed := int64(payload.FailedPaymentCount)
		row.FailedPaymentCount = &failed
	}
	return row, nil
}

func occurredAt(envelope outbox.PayloadEnvelope) time.Time {
	if !envelope.OccurredAt.IsZero() {
		return envelope.OccurredAt
	}
	return time.Now().UTC()
}

func rawJSON(data json.RawMessage) cbigquery.NullJSON {
	if len(data) == 0 {
		return cbigquery.NullJSON{}
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(data)}
}

func uuidPtr(id uuid.UUID) *string {
	if id == uuid.Nil {
		return nil
	}
	value := id.String()
	return &value
}
