package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/marcaromas/marcaromas-backend/pkg/db/models"
	"github.com/marcaromas/marcaromas-backend/pkg/enums"
	"github.com/marcaromas/marcaromas-backend/pkg/logger"
	"github.com/marcaromas/marcaromas-backend/pkg/outbox"
	"github.com/marcaromas/marcaromas-backend/pkg/outbox/idempotency"
	"github.com/marcaromas/marcaromas-backend/pkg/outbox/payloads"
)

const notificationConsumer = "customer-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches domain events and turns order and subscription milestones
// into in-app notifications for the owning customer.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the customer notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	builder, handled := builders[eventType]
	if !handled {
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, notificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		return processResult{ack: true}
	}

	notification, err := builder(envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to build notification", err)
		_ = c.idempotency.Delete(ctx, notificationConsumer, eventID)
		return processResult{nack: true}
	}
	if notification == nil {
		return processResult{ack: true}
	}

	if err := c.repo.Create(ctx, notification); err != nil {
		c.logg.Error(logCtx, "failed to store notification", err)
		_ = c.idempotency.Delete(ctx, notificationConsumer, eventID)
		return processResult{nack: true}
	}
	c.logg.Info(c.logg.WithUserID(logCtx, notification.UserID.String()), "customer notified")
	return processResult{ack: true}
}

type notificationBuilder func(data json.RawMessage) (*models.Notification, error)

var builders = map[enums.OutboxEventType]notificationBuilder{
	enums.EventOrderPaid:                 buildOrderPaid,
	enums.EventOrderShipped:              buildOrderShipped,
	enums.EventOrderDelivered:            buildOrderDelivered,
	enums.EventOrderCanceled:             buildOrderCanceled,
	enums.EventOrderPaymentFailed:        buildOrderPaymentFailed,
	enums.EventSubscriptionBilled:        buildSubscriptionBilled,
	enums.EventSubscriptionPaymentFailed: buildSubscriptionPaymentFailed,
	enums.EventSubscriptionPaused:        buildSubscriptionStatus,
	enums.EventSubscriptionResumed:       buildSubscriptionStatus,
	enums.EventSubscriptionCanceled:      buildSubscriptionStatus,
}

func buildOrderPaid(data json.RawMessage) (*models.Notification, error) {
	var payload payloads.OrderPaidEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &models.Notification{
		UserID:  payload.UserID,
		Type:    enums.NotificationTypeOrderPaid,
		Title:   "Payment confirmed",
		Message: fmt.Sprintf("Payment for order %s was approved. We are preparing your candles.", payload.OrderNumber),
		Link:    orderLink(payload.OrderID),
	}, nil
}

func buildOrderShipped(data json.RawMessage) (*models.Notification, error) {
	var payload payloads.OrderStatusChangedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &models.Notification{
		UserID:  payload.UserID,
		Type:    enums.NotificationTypeOrderShipped,
		Title:   "Order shipped",
		Message: fmt.Sprintf("Order %s is on its way.", payload.OrderNumber),
		Link:    orderLink(payload.OrderID),
	}, nil
}

func buildOrderDelivered(data json.RawMessage) (*models.Notification, error) {
	var payload payloads.OrderStatusChangedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &models.Notification{
		UserID:  payload.UserID,
		Type:    enums.NotificationTypeOrderDelivered,
		Title:   "Order delivered",
		Message: fmt.Sprintf("Order %s was delivered. Enjoy!", payload.OrderNumber),
		Link:    orderLink(payload.OrderID),
	}, nil
}

func buildOrderCanceled(data json.RawMessage) (*models.Notification, error) {
	var payload payloads.OrderCanceledEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	message := fmt.Sprintf("Order %s was canceled.", payload.OrderNumber)
	if payload.Refunded {
		message = fmt.Sprintf("Order %s was canceled and your payment will be refunded.", payload.OrderNumber)
	}
	return &models.Notification{
		UserID:  payload.UserID,
		Type:    enums.NotificationTypeOrderCanceled,
		Title:   "Order canceled",
		Message: message,
		Link:    orderLink(payload.OrderID),
	}, nil
}

func buildOrderPaymentFailed(data json.RawMessage) (*models.Notification, error) {
	var payload payloads.OrderPaymentFailedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &models.Notification{
		UserID:  payload.UserID,
		Type:    enums.NotificationTypePaymentFailed,
		Title:   "Payment failed",
		Message: fmt.Sprintf("The payment for order %s was declined. Please try another payment method.", payload.OrderNumber),
		Link:    orderLink(payload.OrderID),
	}, nil
}

func buildSubscriptionBilled(data json.RawMessage) (*models.Notification, error) {
	var payload payloads.SubscriptionBilledEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &models.Notification{
		UserID:  payload.UserID,
		Type:    enums.NotificationTypeSubscription,
		Title:   "Subscription renewed",
		Message: "Your candle box subscription was charged. The next box is on its schedule.",
		Link:    subscriptionLink(payload.SubscriptionID),
	}, nil
}

func buildSubscriptionPaymentFailed(data json.RawMessage) (*models.Notification, error) {
	var payload payloads.SubscriptionPaymentFailedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &models.Notification{
		UserID:  payload.UserID,
		Type:    enums.NotificationTypePaymentFailed,
		Title:   "Subscription payment failed",
		Message: fmt.Sprintf("We could not charge your subscription (attempt %d). Please update your payment method.", payload.FailedPaymentCount),
		Link:    subscriptionLink(payload.SubscriptionID),
	}, nil
}

func buildSubscriptionStatus(data json.RawMessage) (*models.Notification, error) {
	var payload payloads.SubscriptionStatusChangedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	var title, message string
	switch payload.ToStatus {
	case enums.SubscriptionStatusPaused:
		title = "Subscription paused"
		message = "Your candle box subscription is paused. Resume it whenever you like."
	case enums.SubscriptionStatusActive:
		title = "Subscription resumed"
		message = "Your candle box subscription is active again."
	case enums.SubscriptionStatusCanceled:
		title = "Subscription canceled"
		message = "Your candle box subscription was canceled. We hope to see you again."
	default:
		return nil, nil
	}
	return &models.Notification{
		UserID:  payload.UserID,
		Type:    enums.NotificationTypeSubscription,
		Title:   title,
		Message: message,
		Link:    subscriptionLink(payload.SubscriptionID),
	}, nil
}

func orderLink(orderID uuid.UUID) *string {
	link := fmt.Sprintf("/orders/%s", orderID)
	return &link
}

func subscriptionLink(subscriptionID uuid.UUID) *string {
	link := fmt.Sprintf("/subscriptions/%s", subscriptionID)
	return &link
}
