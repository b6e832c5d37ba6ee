package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marcaromas/marcaromas-backend/internal/history"
	"github.com/marcaromas/marcaromas-backend/pkg/config"
	"github.com/marcaromas/marcaromas-backend/pkg/db/models"
	"github.com/marcaromas/marcaromas-backend/pkg/enums"
	pkgerrors "github.com/marcaromas/marcaromas-backend/pkg/errors"
	"github.com/marcaromas/marcaromas-backend/pkg/logger"
	"github.com/marcaromas/marcaromas-backend/pkg/outbox"
	"github.com/marcaromas/marcaromas-backend/pkg/outbox/payloads"
	"github.com/marcaromas/marcaromas-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Refunder initiates a refund at the payment gateway. Full refund when
// amountCents is zero.
type Refunder interface {
	Refund(ctx context.Context, gatewayPaymentID string, amountCents int64) error
}

// Service defines order lifecycle operations beyond repository reads.
type Service interface {
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	Timeline(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*List, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*List, error)

	MarkConfirmed(ctx context.Context, input PaymentInput) error
	MarkPaid(ctx context.Context, input PaymentInput) error
	MarkPaymentFailed(ctx context.Context, input PaymentInput) error
	MarkRefunded(ctx context.Context, input PaymentInput) error
	StartProcessing(ctx context.Context, orderID uuid.UUID, actor Actor) error
	Ship(ctx context.Context, input ShipInput) error
	MarkDelivered(ctx context.Context, orderID uuid.UUID, actor Actor) error
	Cancel(ctx context.Context, input CancelInput) error
}

// Actor identifies who triggered a transition. A zero Actor means the system.
type Actor struct {
	UserID *uuid.UUID
	Role   string
}

// PaymentInput carries the gateway facts a payment-driven transition needs.
// DedupKey is usually "<gatewayPaymentID>:<normalizedStatus>".
type PaymentInput struct {
	OrderID          uuid.UUID
	GatewayPaymentID string
	DedupKey         string
	AmountCents      int64
	Reason           string
	Actor            Actor
}

type service struct {
	repo    Repository
	history history.Repository
	tx      txRunner
	outbox  outboxPublisher
	gateway Refunder
	cfg     config.OrdersConfig
	logg    *logger.Logger
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, hist history.Repository, tx txRunner, ob outboxPublisher, gateway Refunder, cfg config.OrdersConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if hist == nil {
		return nil, fmt.Errorf("history repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    repo,
		history: hist,
		tx:      tx,
		outbox:  ob,
		gateway: gateway,
		cfg:     cfg,
		logg:    logg,
	}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.Find(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	order, err := s.repo.FindByOrderNumber(ctx, strings.TrimSpace(orderNumber))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) Timeline(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error) {
	entries, err := s.history.ListOrderEvents(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order timeline")
	}
	return entries, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*List, error) {
	out, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return out, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*List, error) {
	out, err := s.repo.ListByUser(ctx, userID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user orders")
	}
	return out, nil
}

// transition bundles everything applyTransition writes alongside a status move.
type transition struct {
	target      enums.OrderStatus
	updates     map[string]any
	eventType   enums.OrderEventType
	description string
	dedupKey    *string
	metadata    any
	actor       Actor
	outboxEvent func(order *models.Order, now time.Time) *outbox.DomainEvent
}

// applyTransition is the single write path for order status moves. It
// validates the move against the transition table, applies it with an
// optimistic status predicate, appends exactly one history row and queues the
// outbox event — all in one transaction. Re-applying a transition the order
// has already completed is a no-op.
func (s *service) applyTransition(ctx context.Context, orderID uuid.UUID, tr transition) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.Find(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		// duplicate terminal event: already there, nothing to do
		if order.Status == tr.target {
			return nil
		}
		if err := ValidateTransition(order.Status, tr.target); err != nil {
			return err
		}

		ok, err := repo.UpdateStatusIfCurrent(ctx, order.ID, order.Status, tr.target, tr.updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConcurrent, "order changed concurrently, re-read and retry")
		}

		from := order.Status
		now := time.Now().UTC()

		entry := &models.OrderHistory{
			OrderID:     order.ID,
			EventType:   tr.eventType,
			FromStatus:  &from,
			ToStatus:    &tr.target,
			EventStatus: enums.EventStatusSuccess,
			ActorUserID: tr.actor.UserID,
			Description: tr.description,
			DedupKey:    tr.dedupKey,
		}
		if tr.metadata != nil {
			raw, err := json.Marshal(tr.metadata)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal history metadata")
			}
			entry.Metadata = raw
		}
		if err := s.history.WithTx(tx).AppendOrderEvent(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
		}

		order.Status = tr.target
		if tr.outboxEvent != nil {
			if event := tr.outboxEvent(order, now); event != nil {
				if err := s.outbox.Emit(ctx, tx, *event); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue outbox event")
				}
			}
		}
		return nil
	})
}

func (s *service) MarkConfirmed(ctx context.Context, input PaymentInput) error {
	now := time.Now().UTC()
	dedup := nonEmptyPtr(input.DedupKey)
	updates := map[string]any{"confirmed_at": now}
	if strings.TrimSpace(input.GatewayPaymentID) != "" {
		updates["gateway_payment_id"] = input.GatewayPaymentID
	}
	return s.applyTransition(ctx, input.OrderID, transition{
		target:  enums.OrderStatusConfirmed,
		updates: updates,
		eventType:   enums.OrderEventStatusChange,
		description: "payment authorized, awaiting settlement",
		dedupKey:    dedup,
		metadata:    map[string]string{"gateway_payment_id": input.GatewayPaymentID},
		actor:       input.Actor,
		outboxEvent: func(order *models.Order, now time.Time) *outbox.DomainEvent {
			return &outbox.DomainEvent{
				EventType:     enums.EventOrderConfirmed,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         actorRef(input.Actor),
				Data: payloads.OrderStatusChangedEvent{
					OrderID:     order.ID,
					OrderNumber: order.OrderNumber,
					UserID:      order.UserID,
					FromStatus:  enums.OrderStatusPending,
					ToStatus:    enums.OrderStatusConfirmed,
					OccurredAt:  now,
				},
			}
		},
	})
}

func (s *service) MarkPaid(ctx context.Context, input PaymentInput) error {
	if strings.TrimSpace(input.GatewayPaymentID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "gateway payment id required")
	}
	now := time.Now().UTC()
	dedup := nonEmptyPtr(input.DedupKey)
	return s.applyTransition(ctx, input.OrderID, transition{
		target: enums.OrderStatusPaid,
		updates: map[string]any{
			"paid_at":            now,
			"confirmed_at":       gorm.Expr("COALESCE(confirmed_at, ?)", now),
			"payment_status":     enums.PaymentStatusApproved,
			"gateway_payment_id": input.GatewayPaymentID,
		},
		eventType:   enums.OrderEventPayment,
		description: "payment approved by gateway",
		dedupKey:    dedup,
		metadata:    map[string]string{"gateway_payment_id": input.GatewayPaymentID},
		actor:       input.Actor,
		outboxEvent: func(order *models.Order, now time.Time) *outbox.DomainEvent {
			return &outbox.DomainEvent{
				EventType:     enums.EventOrderPaid,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         actorRef(input.Actor),
				Data: payloads.OrderPaidEvent{
					OrderID:          order.ID,
					OrderNumber:      order.OrderNumber,
					UserID:           order.UserID,
					GatewayPaymentID: input.GatewayPaymentID,
					AmountCents:      order.TotalCents,
					PaidAt:           now,
				},
			}
		},
	})
}

// MarkPaymentFailed records a declined charge. The order itself stays where
// it is (the customer can retry with another method); only the payment
// sub-state and the ledger move.
func (s *service) MarkPaymentFailed(ctx context.Context, input PaymentInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.Find(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.PaymentStatus == enums.PaymentStatusApproved || order.PaymentStatus == enums.PaymentStatusRefunded {
			// a settled payment does not regress on a late failure event
			return nil
		}

		hist := s.history.WithTx(tx)
		if input.DedupKey != "" {
			// checked before any write: an insert that trips the dedup
			// unique index would abort the transaction on Postgres
			applied, err := hist.OrderEventExistsByDedupKey(ctx, input.DedupKey)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check failure dedup key")
			}
			if applied {
				return nil
			}
		}

		updates := map[string]any{
			"payment_status": enums.PaymentStatusFailed,
		}
		if input.GatewayPaymentID != "" {
			updates["gateway_payment_id"] = input.GatewayPaymentID
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}

		entry := &models.OrderHistory{
			OrderID:     order.ID,
			EventType:   enums.OrderEventPayment,
			EventStatus: enums.EventStatusFailed,
			ActorUserID: input.Actor.UserID,
			Description: failureDescription(input.Reason),
			DedupKey:    nonEmptyPtr(input.DedupKey),
		}
		if err := hist.AppendOrderEvent(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaymentFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(input.Actor),
			Data: payloads.OrderPaymentFailedEvent{
				OrderID:          order.ID,
				OrderNumber:      order.OrderNumber,
				UserID:           order.UserID,
				GatewayPaymentID: input.GatewayPaymentID,
				Reason:           input.Reason,
			},
		})
	})
}

func (s *service) MarkRefunded(ctx context.Context, input PaymentInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.Find(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.PaymentStatus == enums.PaymentStatusRefunded {
			return nil
		}

		amount := input.AmountCents
		if amount <= 0 {
			amount = order.TotalCents
		}
		if amount > order.TotalCents {
			return pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds order total")
		}

		now := time.Now().UTC()
		from := order.Status
		dedup := nonEmptyPtr(input.DedupKey)

		if input.DedupKey != "" {
			applied, err := s.history.WithTx(tx).OrderEventExistsByDedupKey(ctx, input.DedupKey)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check refund dedup key")
			}
			if applied {
				return nil
			}
		}

		if order.Status == enums.OrderStatusCanceled {
			// cancel-initiated refund settling: the order stays canceled,
			// only the payment sub-state and the ledger move
			updates := map[string]any{
				"payment_status":      enums.PaymentStatusRefunded,
				"refunded_at":         now,
				"refund_amount_cents": amount,
			}
			if err := repo.Update(ctx, order.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update refund state")
			}
			entry := &models.OrderHistory{
				OrderID:     order.ID,
				EventType:   enums.OrderEventRefund,
				EventStatus: enums.EventStatusSuccess,
				ActorUserID: input.Actor.UserID,
				Description: "refund settled for canceled order",
				DedupKey:    dedup,
				Metadata:    mustJSON(map[string]any{"amount_cents": amount, "gateway_payment_id": input.GatewayPaymentID}),
			}
			if err := s.history.WithTx(tx).AppendOrderEvent(ctx, entry); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
			}
			return s.emitRefunded(ctx, tx, order, input, amount, now)
		}

		if err := ValidateTransition(order.Status, enums.OrderStatusRefunded); err != nil {
			return err
		}
		ok, err := repo.UpdateStatusIfCurrent(ctx, order.ID, order.Status, enums.OrderStatusRefunded, map[string]any{
			"payment_status":      enums.PaymentStatusRefunded,
			"refunded_at":         now,
			"refund_amount_cents": amount,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConcurrent, "order changed concurrently, re-read and retry")
		}

		target := enums.OrderStatusRefunded
		entry := &models.OrderHistory{
			OrderID:     order.ID,
			EventType:   enums.OrderEventRefund,
			FromStatus:  &from,
			ToStatus:    &target,
			EventStatus: enums.EventStatusSuccess,
			ActorUserID: input.Actor.UserID,
			Description: "order refunded",
			DedupKey:    dedup,
			Metadata:    mustJSON(map[string]any{"amount_cents": amount, "gateway_payment_id": input.GatewayPaymentID}),
		}
		if err := s.history.WithTx(tx).AppendOrderEvent(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
		}
		return s.emitRefunded(ctx, tx, order, input, amount, now)
	})
}

func (s *service) emitRefunded(ctx context.Context, tx *gorm.DB, order *models.Order, input PaymentInput, amount int64, now time.Time) error {
	gatewayID := input.GatewayPaymentID
	if gatewayID == "" && order.GatewayPaymentID != nil {
		gatewayID = *order.GatewayPaymentID
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderRefunded,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         actorRef(input.Actor),
		Data: payloads.OrderRefundedEvent{
			OrderID:          order.ID,
			OrderNumber:      order.OrderNumber,
			UserID:           order.UserID,
			GatewayPaymentID: gatewayID,
			AmountCents:      amount,
			RefundedAt:       now,
		},
	})
}

func (s *service) StartProcessing(ctx context.Context, orderID uuid.UUID, actor Actor) error {
	return s.applyTransition(ctx, orderID, transition{
		target:      enums.OrderStatusProcessing,
		updates:     map[string]any{},
		eventType:   enums.OrderEventStatusChange,
		description: "order moved to fulfillment",
		actor:       actor,
	})
}

func (s *service) Ship(ctx context.Context, input ShipInput) error {
	if strings.TrimSpace(input.Carrier) == "" || strings.TrimSpace(input.ShippingMethod) == "" || strings.TrimSpace(input.TrackingCode) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "carrier, shipping method and tracking code are required to ship")
	}
	now := time.Now().UTC()
	eta := now.Add(s.cfg.EstimatedDelivery)
	actor := Actor{UserID: input.ActorUserID, Role: input.ActorRole}
	updates := map[string]any{
		"carrier":               input.Carrier,
		"shipping_method":       input.ShippingMethod,
		"tracking_code":         input.TrackingCode,
		"shipped_at":            now,
		"estimated_delivery_at": eta,
	}
	if strings.TrimSpace(input.LabelURL) != "" {
		updates["label_url"] = input.LabelURL
		updates["label_generated_at"] = now
	}
	return s.applyTransition(ctx, input.OrderID, transition{
		target:  enums.OrderStatusShipped,
		updates: updates,
		eventType:   enums.OrderEventShipping,
		description: fmt.Sprintf("shipped via %s (%s)", input.Carrier, input.TrackingCode),
		metadata: map[string]string{
			"carrier":         input.Carrier,
			"shipping_method": input.ShippingMethod,
			"tracking_code":   input.TrackingCode,
		},
		actor: actor,
		outboxEvent: func(order *models.Order, now time.Time) *outbox.DomainEvent {
			return &outbox.DomainEvent{
				EventType:     enums.EventOrderShipped,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         actorRef(actor),
				Data: payloads.OrderStatusChangedEvent{
					OrderID:     order.ID,
					OrderNumber: order.OrderNumber,
					UserID:      order.UserID,
					FromStatus:  enums.OrderStatusProcessing,
					ToStatus:    enums.OrderStatusShipped,
					OccurredAt:  now,
				},
			}
		},
	})
}

func (s *service) MarkDelivered(ctx context.Context, orderID uuid.UUID, actor Actor) error {
	now := time.Now().UTC()
	return s.applyTransition(ctx, orderID, transition{
		target:      enums.OrderStatusDelivered,
		updates:     map[string]any{"delivered_at": now},
		eventType:   enums.OrderEventShipping,
		description: "order delivered",
		actor:       actor,
		outboxEvent: statusChangedEvent(enums.EventOrderDelivered, actor, enums.OrderStatusShipped, enums.OrderStatusDelivered),
	})
}

// Cancel moves the order to canceled and, when a payment was already
// captured and the policy flag is on, initiates a refund at the gateway
// after the transaction commits. The refund settles later through the
// reconciler; the cancel itself never waits on the gateway.
func (s *service) Cancel(ctx context.Context, input CancelInput) error {
	if strings.TrimSpace(input.Reason) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason required")
	}
	actor := Actor{UserID: input.ActorUserID, Role: input.ActorRole}

	var captured bool
	var gatewayPaymentID string

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.Find(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == enums.OrderStatusCanceled {
			return nil
		}
		if err := ValidateTransition(order.Status, enums.OrderStatusCanceled); err != nil {
			return err
		}

		captured = order.PaymentStatus == enums.PaymentStatusApproved
		if order.GatewayPaymentID != nil {
			gatewayPaymentID = *order.GatewayPaymentID
		}

		now := time.Now().UTC()
		ok, err := repo.UpdateStatusIfCurrent(ctx, order.ID, order.Status, enums.OrderStatusCanceled, map[string]any{
			"canceled_at":   now,
			"cancel_reason": input.Reason,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConcurrent, "order changed concurrently, re-read and retry")
		}

		from := order.Status
		target := enums.OrderStatusCanceled
		entry := &models.OrderHistory{
			OrderID:     order.ID,
			EventType:   enums.OrderEventCancellation,
			FromStatus:  &from,
			ToStatus:    &target,
			EventStatus: enums.EventStatusSuccess,
			ActorUserID: actor.UserID,
			Description: "order canceled: " + input.Reason,
		}
		if err := s.history.WithTx(tx).AppendOrderEvent(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(actor),
			Data: payloads.OrderCanceledEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				CanceledAt:  now,
				Reason:      input.Reason,
				Refunded:    captured && s.cfg.AutoRefundOnCancel,
			},
		})
	})
	if err != nil {
		return err
	}

	// gateway call stays outside the transaction; if it fails the refund is
	// retried by the operator or settles through a later webhook
	if captured && s.cfg.AutoRefundOnCancel && gatewayPaymentID != "" && s.gateway != nil {
		if err := s.gateway.Refund(ctx, gatewayPaymentID, 0); err != nil && s.logg != nil {
			logCtx := s.logg.WithOrderID(ctx, input.OrderID.String())
			s.logg.Error(logCtx, "refund initiation failed after cancel", err)
		}
	}
	return nil
}

func statusChangedEvent(eventType enums.OutboxEventType, actor Actor, from, to enums.OrderStatus) func(*models.Order, time.Time) *outbox.DomainEvent {
	return func(order *models.Order, now time.Time) *outbox.DomainEvent {
		return &outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(actor),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				FromStatus:  from,
				ToStatus:    to,
				OccurredAt:  now,
			},
		}
	}
}

func actorRef(actor Actor) *outbox.ActorRef {
	if actor.UserID == nil {
		return nil
	}
	return &outbox.ActorRef{UserID: *actor.UserID, Role: actor.Role}
}

func nonEmptyPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func failureDescription(reason string) string {
	if strings.TrimSpace(reason) == "" {
		return "payment failed"
	}
	return "payment failed: " + reason
}

func mustJSON(payload map[string]any) json.RawMessage {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return raw
}
