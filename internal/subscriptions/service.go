package subscriptions

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

// PlanReader loads plan facts at signup and at each billing tick.
type PlanReader interface {
	FindPlan(ctx context.Context, planID uuid.UUID) (*models.Plan, error)
}

// Service defines subscription lifecycle operations.
type Service interface {
	Get(ctx context.Context, subscriptionID uuid.UUID) (*models.Subscription, error)
	Timeline(ctx context.Context, subscriptionID uuid.UUID) ([]models.SubscriptionHistory, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error)
	List(ctx context.Context, params pagination.Params, status *enums.SubscriptionStatus) (*List, error)

	Create(ctx context.Context, input CreateInput) (*models.Subscription, error)
	Pause(ctx context.Context, input PauseInput) error
	Resume(ctx context.Context, input ResumeInput) error
	Cancel(ctx context.Context, input CancelInput) error
	UpdateAddress(ctx context.Context, input UpdateAddressInput) error
	ApplyBillingSuccess(ctx context.Context, input BillingSuccessInput) error
	ApplyBillingFailure(ctx context.Context, input BillingFailureInput) error
	RecordDelivery(ctx context.Context, input DeliveryInput) error
}

type service struct {
	repo    Repository
	history history.Repository
	plans   PlanReader
	tx      txRunner
	outbox  outboxPublisher
	cfg     config.BillingConfig
	logg    *logger.Logger
}

// NewService builds a subscription service with the required dependencies.
func NewService(repo Repository, hist history.Repository, plans PlanReader, tx txRunner, ob outboxPublisher, cfg config.BillingConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("subscriptions repository required")
	}
	if hist == nil {
		return nil, fmt.Errorf("history repository required")
	}
	if plans == nil {
		return nil, fmt.Errorf("plan reader required")
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
		plans:   plans,
		tx:      tx,
		outbox:  ob,
		cfg:     cfg,
		logg:    logg,
	}, nil
}

func (s *service) Get(ctx context.Context, subscriptionID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.repo.Find(ctx, subscriptionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	return sub, nil
}

func (s *service) Timeline(ctx context.Context, subscriptionID uuid.UUID) ([]models.SubscriptionHistory, error) {
	entries, err := s.history.ListSubscriptionEvents(ctx, subscriptionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription timeline")
	}
	return entries, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	subs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions")
	}
	return subs, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, status *enums.SubscriptionStatus) (*List, error) {
	out, err := s.repo.List(ctx, params, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions")
	}
	return out, nil
}

// Create persists a subscription born active; the first charge was already
// approved by the gateway before this runs.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Subscription, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.PlanID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id required")
	}

	plan, err := s.plans.FindPlan(ctx, input.PlanID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
	}
	if !plan.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan is no longer offered")
	}

	now := time.Now().UTC()
	next := now.AddDate(0, plan.Cadence.Months(), 0)
	paymentStatus := enums.PaymentStatusApproved

	billing := input.ShippingAddress
	if input.BillingAddress != nil {
		billing = *input.BillingAddress
	}

	// kept on the row so webhooks about the signup charge can find their way
	// back to this subscription
	var signupPayment *string
	if input.GatewayPaymentID != "" {
		signupPayment = &input.GatewayPaymentID
	}

	sub := &models.Subscription{
		UserID:            input.UserID,
		PlanID:            plan.ID,
		Status:            enums.SubscriptionStatusActive,
		Cadence:           plan.Cadence,
		PriceCents:        plan.PriceCents,
		ShippingCents:     plan.ShippingCents,
		PaymentMethod:     enums.PaymentMethodCreditCard,
		CardToken:         input.CardToken,
		SignupPaymentID:   signupPayment,
		ShippingAddress:   input.ShippingAddress,
		BillingAddress:    billing,
		Preferences:       input.Preferences,
		NextBillingAt:     &next,
		LastPaymentAt:     &now,
		LastPaymentStatus: &paymentStatus,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription")
		}

		entry := &models.SubscriptionHistory{
			SubscriptionID: sub.ID,
			EventType:      enums.SubscriptionEventCreated,
			EventStatus:    enums.EventStatusSuccess,
			ActorUserID:    input.ActorUserID,
			Description:    "subscription created on plan " + plan.Name,
			Metadata:       mustJSON(map[string]any{"plan_id": plan.ID, "gateway_payment_id": input.GatewayPaymentID}),
		}
		if err := s.history.WithTx(tx).AppendSubscriptionEvent(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append subscription history")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSubscriptionCreated,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   sub.ID,
			Version:       1,
			Actor:         actorRef(input.ActorUserID, input.ActorRole),
			Data: payloads.SubscriptionCreatedEvent{
				SubscriptionID: sub.ID,
				UserID:         sub.UserID,
				PlanID:         plan.ID,
				Cadence:        plan.Cadence,
				PriceCents:     plan.PriceCents,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *service) Pause(ctx context.Context, input PauseInput) error {
	now := time.Now().UTC()
	return s.transition(ctx, input.SubscriptionID, enums.SubscriptionStatusPaused, transitionSpec{
		updates: map[string]any{
			"paused_at":       now,
			"pause_count":     gorm.Expr("pause_count + 1"),
			"next_billing_at": nil,
		},
		eventType:   enums.SubscriptionEventPause,
		outboxEvent: enums.EventSubscriptionPaused,
		description: "subscription paused",
		actorUserID: input.ActorUserID,
		actorRole:   input.ActorRole,
	})
}

// Resume restarts the billing clock from today; it does not pick up the old
// schedule.
func (s *service) Resume(ctx context.Context, input ResumeInput) error {
	return s.transition(ctx, input.SubscriptionID, enums.SubscriptionStatusActive, transitionSpec{
		updatesFor: func(sub *models.Subscription) map[string]any {
			next := time.Now().UTC().AddDate(0, sub.Cadence.Months(), 0)
			return map[string]any{
				"paused_at":       nil,
				"next_billing_at": next,
			}
		},
		eventType:   enums.SubscriptionEventResume,
		outboxEvent: enums.EventSubscriptionResumed,
		description: "subscription resumed, billing clock restarted",
		actorUserID: input.ActorUserID,
		actorRole:   input.ActorRole,
	})
}

func (s *service) Cancel(ctx context.Context, input CancelInput) error {
	if strings.TrimSpace(input.Reason) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason required")
	}
	now := time.Now().UTC()
	return s.transition(ctx, input.SubscriptionID, enums.SubscriptionStatusCanceled, transitionSpec{
		updates: map[string]any{
			"canceled_at":     now,
			"cancel_reason":   input.Reason,
			"next_billing_at": nil,
		},
		eventType:   enums.SubscriptionEventCancellation,
		outboxEvent: enums.EventSubscriptionCanceled,
		description: "subscription canceled: " + input.Reason,
		reason:      input.Reason,
		actorUserID: input.ActorUserID,
		actorRole:   input.ActorRole,
	})
}

// UpdateAddress changes the shipping or billing address of a live
// subscription. Order snapshots are frozen at checkout; subscription
// addresses move with the customer between boxes.
func (s *service) UpdateAddress(ctx context.Context, input UpdateAddressInput) error {
	if input.SubscriptionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription id required")
	}
	if input.ShippingAddress == nil && input.BillingAddress == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one address required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sub, err := repo.Find(ctx, input.SubscriptionID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
		}
		if sub.Status == enums.SubscriptionStatusCanceled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "canceled subscriptions keep their last addresses")
		}

		updates := map[string]any{}
		changed := make([]string, 0, 2)
		if input.ShippingAddress != nil {
			updates["shipping_address"] = *input.ShippingAddress
			changed = append(changed, "shipping")
		}
		if input.BillingAddress != nil {
			updates["billing_address"] = *input.BillingAddress
			changed = append(changed, "billing")
		}
		if err := repo.Update(ctx, sub.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update subscription addresses")
		}

		entry := &models.SubscriptionHistory{
			SubscriptionID: sub.ID,
			EventType:      enums.SubscriptionEventAddress,
			EventStatus:    enums.EventStatusSuccess,
			ActorUserID:    input.ActorUserID,
			Description:    "updated " + strings.Join(changed, " and ") + " address",
			Metadata:       mustJSON(map[string]any{"changed": changed}),
		}
		return s.history.WithTx(tx).AppendSubscriptionEvent(ctx, entry)
	})
}

type transitionSpec struct {
	updates     map[string]any
	updatesFor  func(sub *models.Subscription) map[string]any
	eventType   enums.SubscriptionEventType
	outboxEvent enums.OutboxEventType
	description string
	reason      string
	actorUserID *uuid.UUID
	actorRole   string
}

// transition is the single write path for subscription status moves:
// validate against the transition table, optimistic status update, one
// ledger row, one outbox event, all in one transaction.
func (s *service) transition(ctx context.Context, subscriptionID uuid.UUID, target enums.SubscriptionStatus, spec transitionSpec) error {
	if subscriptionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sub, err := repo.Find(ctx, subscriptionID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
		}
		if sub.Status == target {
			return nil
		}
		if err := ValidateTransition(sub.Status, target); err != nil {
			return err
		}

		updates := spec.updates
		if spec.updatesFor != nil {
			updates = spec.updatesFor(sub)
		}
		ok, err := repo.UpdateStatusIfCurrent(ctx, sub.ID, sub.Status, target, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update subscription status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConcurrent, "subscription changed concurrently, re-read and retry")
		}

		from := sub.Status
		entry := &models.SubscriptionHistory{
			SubscriptionID: sub.ID,
			EventType:      spec.eventType,
			FromStatus:     &from,
			ToStatus:       &target,
			EventStatus:    enums.EventStatusSuccess,
			ActorUserID:    spec.actorUserID,
			Description:    spec.description,
		}
		if err := s.history.WithTx(tx).AppendSubscriptionEvent(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append subscription history")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     spec.outboxEvent,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   sub.ID,
			Version:       1,
			Actor:         actorRef(spec.actorUserID, spec.actorRole),
			Data: payloads.SubscriptionStatusChangedEvent{
				SubscriptionID: sub.ID,
				UserID:         sub.UserID,
				FromStatus:     from,
				ToStatus:       target,
				OccurredAt:     time.Now().UTC(),
				Reason:         spec.reason,
			},
		})
	})
}

// ApplyBillingSuccess applies an approved recurring charge: advances the
// billing clock by the plan cadence, bumps the delivery counter and resets
// the failure streak. Duplicate gateway events are detected by the ledger
// dedup key and acknowledged without effect.
func (s *service) ApplyBillingSuccess(ctx context.Context, input BillingSuccessInput) error {
	if input.SubscriptionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		hist := s.history.WithTx(tx)

		sub, err := repo.Find(ctx, input.SubscriptionID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
		}
		if sub.Status != enums.SubscriptionStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("billing tick not allowed while subscription is %s", sub.Status))
		}

		if input.DedupKey != "" {
			applied, err := hist.SubscriptionEventExistsByDedupKey(ctx, input.DedupKey)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check billing dedup key")
			}
			if applied {
				return nil
			}
		}

		plan, err := s.plans.FindPlan(ctx, sub.PlanID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
		}

		now := time.Now().UTC()
		next := now.AddDate(0, plan.Cadence.Months(), 0)
		updates := map[string]any{
			"next_billing_at":      next,
			"last_payment_at":      now,
			"last_payment_status":  enums.PaymentStatusApproved,
			"delivery_count":       gorm.Expr("delivery_count + 1"),
			"failed_payment_count": 0,
		}
		if err := repo.Update(ctx, sub.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply billing tick")
		}

		entry := &models.SubscriptionHistory{
			SubscriptionID: sub.ID,
			EventType:      enums.SubscriptionEventPayment,
			EventStatus:    enums.EventStatusSuccess,
			Description:    "recurring charge approved",
			DedupKey:       nonEmptyPtr(input.DedupKey),
			Metadata: mustJSON(map[string]any{
				"gateway_payment_id": input.GatewayPaymentID,
				"amount_cents":       input.AmountCents,
				"order_id":           input.OrderID,
			}),
		}
		if err := hist.AppendSubscriptionEvent(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append subscription history")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSubscriptionBilled,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   sub.ID,
			Version:       1,
			Data: payloads.SubscriptionBilledEvent{
				SubscriptionID:   sub.ID,
				UserID:           sub.UserID,
				OrderID:          input.OrderID,
				GatewayPaymentID: input.GatewayPaymentID,
				AmountCents:      input.AmountCents,
				NextBillingAt:    next,
			},
		})
	})
}

// ApplyBillingFailure records a failed recurring charge and, once the
// consecutive-failure streak reaches the configured threshold, applies the
// configured action (pause or cancel).
func (s *service) ApplyBillingFailure(ctx context.Context, input BillingFailureInput) error {
	if input.SubscriptionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription id required")
	}

	var exceeded bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		hist := s.history.WithTx(tx)

		sub, err := repo.Find(ctx, input.SubscriptionID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
		}
		if sub.Status != enums.SubscriptionStatusActive {
			return nil
		}

		if input.DedupKey != "" {
			applied, err := hist.SubscriptionEventExistsByDedupKey(ctx, input.DedupKey)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check billing dedup key")
			}
			if applied {
				return nil
			}
		}

		failures := sub.FailedPaymentCount + 1
		now := time.Now().UTC()
		retryAt := now.Add(s.cfg.RetryInterval)
		updates := map[string]any{
			"failed_payment_count": failures,
			"last_payment_at":      now,
			"last_payment_status":  enums.PaymentStatusFailed,
			"next_billing_at":      retryAt,
		}
		if err := repo.Update(ctx, sub.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply billing failure")
		}

		entry := &models.SubscriptionHistory{
			SubscriptionID: sub.ID,
			EventType:      enums.SubscriptionEventPayment,
			EventStatus:    enums.EventStatusFailed,
			Description:    fmt.Sprintf("recurring charge failed (%d consecutive)", failures),
			DedupKey:       nonEmptyPtr(input.DedupKey),
			Metadata: mustJSON(map[string]any{
				"gateway_payment_id": input.GatewayPaymentID,
				"reason":             input.Reason,
				"failed_count":       failures,
			}),
		}
		if err := hist.AppendSubscriptionEvent(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append subscription history")
		}

		exceeded = failures >= s.cfg.MaxPaymentFailures

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSubscriptionPaymentFailed,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   sub.ID,
			Version:       1,
			Data: payloads.SubscriptionPaymentFailedEvent{
				SubscriptionID:     sub.ID,
				UserID:             sub.UserID,
				FailedPaymentCount: failures,
				Reason:             input.Reason,
			},
		})
	})
	if err != nil {
		return err
	}
	if !exceeded {
		return nil
	}

	switch s.cfg.FailureAction {
	case config.BillingFailureActionCancel:
		return s.Cancel(ctx, CancelInput{
			SubscriptionID: input.SubscriptionID,
			Reason:         "payment failure threshold reached",
		})
	default:
		return s.Pause(ctx, PauseInput{SubscriptionID: input.SubscriptionID})
	}
}

// RecordDelivery appends the box delivery to the ledger. The delivery
// counter itself moved on the billing tick; this records fulfillment.
func (s *service) RecordDelivery(ctx context.Context, input DeliveryInput) error {
	if input.SubscriptionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sub, err := repo.Find(ctx, input.SubscriptionID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
		}

		now := time.Now().UTC()
		if err := repo.Update(ctx, sub.ID, map[string]any{"last_delivery_at": now}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record delivery")
		}

		entry := &models.SubscriptionHistory{
			SubscriptionID: sub.ID,
			EventType:      enums.SubscriptionEventDelivery,
			EventStatus:    enums.EventStatusSuccess,
			ActorUserID:    input.ActorUserID,
			Description:    fmt.Sprintf("box delivery %d fulfilled", sub.DeliveryCount),
			Metadata:       mustJSON(map[string]any{"order_id": input.OrderID}),
		}
		if err := s.history.WithTx(tx).AppendSubscriptionEvent(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append subscription history")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSubscriptionDeliveryLogged,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   sub.ID,
			Version:       1,
			Actor:         actorRef(input.ActorUserID, input.ActorRole),
			Data: payloads.SubscriptionDeliveryLoggedEvent{
				SubscriptionID: sub.ID,
				UserID:         sub.UserID,
				OrderID:        input.OrderID,
				DeliveryCount:  sub.DeliveryCount,
				DeliveredAt:    now,
			},
		})
	})
}

func actorRef(userID *uuid.UUID, role string) *outbox.ActorRef {
	if userID == nil {
		return nil
	}
	return &outbox.ActorRef{UserID: *userID, Role: role}
}

func nonEmptyPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func mustJSON(payload map[string]any) json.RawMessage {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return raw
}
