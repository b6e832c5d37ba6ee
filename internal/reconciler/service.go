package reconciler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marcaromas/marcaromas-backend/internal/orders"
	"github.com/marcaromas/marcaromas-backend/internal/subscriptions"
	"github.com/marcaromas/marcaromas-backend/pkg/db/models"
	"github.com/marcaromas/marcaromas-backend/pkg/enums"
	pkgerrors "github.com/marcaromas/marcaromas-backend/pkg/errors"
	"github.com/marcaromas/marcaromas-backend/pkg/logger"
	"github.com/marcaromas/marcaromas-backend/pkg/mercadopago"
)

// concurrentRetries bounds how many times a dispatch is re-evaluated after an
// optimistic-concurrency failure before the webhook is handed back to the
// gateway for redelivery.
const concurrentRetries = 3

// Notification is the distilled form of a gateway webhook delivery: the event
// envelope fields the reconciler needs plus the raw payload for dead-letter
// storage.
type Notification struct {
	EventID   string
	Topic     string
	PaymentID string
	Payload   json.RawMessage
}

// Service reconciles asynchronous gateway notifications with local order and
// subscription state. Process is safe to call for duplicate and out-of-order
// deliveries; a nil return means the delivery is fully absorbed and the
// webhook can be acknowledged.
type Service interface {
	Process(ctx context.Context, n Notification) error
	Replay(ctx context.Context, deadLetterID uuid.UUID) error
}

type paymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

type orderTransitions interface {
	MarkConfirmed(ctx context.Context, input orders.PaymentInput) error
	MarkPaid(ctx context.Context, input orders.PaymentInput) error
	MarkPaymentFailed(ctx context.Context, input orders.PaymentInput) error
	MarkRefunded(ctx context.Context, input orders.PaymentInput) error
}

type subscriptionTransitions interface {
	ApplyBillingSuccess(ctx context.Context, input subscriptions.BillingSuccessInput) error
	ApplyBillingFailure(ctx context.Context, input subscriptions.BillingFailureInput) error
}

// signupResolver maps a signup charge back to the subscription it opened.
type signupResolver interface {
	FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*models.Subscription, error)
}

type deadLetterStore interface {
	Record(ctx context.Context, entry *models.WebhookDeadLetter) error
	ListUnresolved(ctx context.Context, limit int) ([]models.WebhookDeadLetter, error)
	MarkResolved(ctx context.Context, id uuid.UUID, at time.Time) error
}

type service struct {
	gateway     paymentFetcher
	orders      orderTransitions
	subs        subscriptionTransitions
	signups     signupResolver
	deadLetters deadLetterStore
	logg        *logger.Logger
}

// NewService wires the reconciler with its collaborators.
func NewService(gateway paymentFetcher, ordersSvc orderTransitions, subsSvc subscriptionTransitions, signups signupResolver, deadLetters deadLetterStore, logg *logger.Logger) (Service, error) {
	if gateway == nil {
		return nil, fmt.Errorf("gateway client is required")
	}
	if ordersSvc == nil {
		return nil, fmt.Errorf("orders service is required")
	}
	if subsSvc == nil {
		return nil, fmt.Errorf("subscriptions service is required")
	}
	if signups == nil {
		return nil, fmt.Errorf("signup resolver is required")
	}
	if deadLetters == nil {
		return nil, fmt.Errorf("dead letter repository is required")
	}
	return &service{
		gateway:     gateway,
		orders:      ordersSvc,
		subs:        subsSvc,
		signups:     signups,
		deadLetters: deadLetters,
		logg:        logg,
	}, nil
}

func (s *service) Process(ctx context.Context, n Notification) error {
	if n.PaymentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}

	payment, err := s.gateway.GetPayment(ctx, n.PaymentID)
	if err != nil {
		// fetch failures are infrastructure trouble, let the gateway redeliver
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch gateway payment")
	}

	status, err := mercadopago.NormalizeStatus(payment.Status)
	if err != nil {
		return s.deadLetter(ctx, n, payment, fmt.Sprintf("unrecognized gateway status %q", payment.Status))
	}

	kind, aggregateID, err := ParseExternalReference(payment.ExternalReference)
	if err != nil {
		return s.deadLetter(ctx, n, payment, err.Error())
	}

	dedupKey := fmt.Sprintf("%s:%s", payment.GatewayID(), status)

	var dispatchErr error
	for attempt := 0; attempt < concurrentRetries; attempt++ {
		dispatchErr = s.dispatch(ctx, kind, aggregateID, payment, status, dedupKey)
		if typed := pkgerrors.As(dispatchErr); typed != nil && typed.Code() == pkgerrors.CodeConcurrent {
			continue
		}
		break
	}
	if dispatchErr == nil {
		return nil
	}

	typed := pkgerrors.As(dispatchErr)
	if typed == nil {
		return dispatchErr
	}
	switch typed.Code() {
	case pkgerrors.CodeNotFound, pkgerrors.CodeUnresolved:
		return s.deadLetter(ctx, n, payment, typed.Error())
	case pkgerrors.CodeStateConflict:
		// late or out-of-order event; the state machine refused it, ack anyway
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"gateway_payment_id": payment.GatewayID(),
				"external_reference": payment.ExternalReference,
			})
			s.logg.Warn(logCtx, "webhook transition rejected by state machine: "+typed.Error())
		}
		return nil
	default:
		return dispatchErr
	}
}

func (s *service) dispatch(ctx context.Context, kind ReferenceKind, id uuid.UUID, payment *mercadopago.Payment, status enums.PaymentStatus, dedupKey string) error {
	switch kind {
	case ReferenceOrder:
		return s.dispatchOrder(ctx, id, payment, status, dedupKey)
	case ReferenceSubscription:
		return s.dispatchSubscription(ctx, id, payment, status, dedupKey)
	case ReferenceSignup:
		return s.dispatchSignup(ctx, payment, status, dedupKey)
	default:
		return pkgerrors.New(pkgerrors.CodeUnresolved, "unknown reference kind")
	}
}

func (s *service) dispatchOrder(ctx context.Context, orderID uuid.UUID, payment *mercadopago.Payment, status enums.PaymentStatus, dedupKey string) error {
	input := orders.PaymentInput{
		OrderID:          orderID,
		GatewayPaymentID: payment.GatewayID(),
		DedupKey:         dedupKey,
		AmountCents:      payment.AmountCents,
		Reason:           payment.StatusDetail,
	}
	switch status {
	case enums.PaymentStatusApproved:
		return s.orders.MarkPaid(ctx, input)
	case enums.PaymentStatusFailed:
		return s.orders.MarkPaymentFailed(ctx, input)
	case enums.PaymentStatusRefunded:
		return s.orders.MarkRefunded(ctx, input)
	default:
		if mercadopago.StatusAuthorized(payment.Status) {
			// issuer hold, capture pending: the order advances to confirmed
			input.DedupKey = payment.GatewayID() + ":authorized"
			return s.orders.MarkConfirmed(ctx, input)
		}
		// still pending at the gateway, nothing to reconcile yet
		return nil
	}
}

// dispatchSignup reconciles events about a signup charge. The charge predates
// its subscription, so the row is looked up by the gateway payment id stored
// at creation.
func (s *service) dispatchSignup(ctx context.Context, payment *mercadopago.Payment, status enums.PaymentStatus, dedupKey string) error {
	sub, err := s.signups.FindByGatewayPaymentID(ctx, payment.GatewayID())
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			if status == enums.PaymentStatusFailed || status == enums.PaymentStatusPending {
				// a declined or still-pending signup charge never opened a
				// subscription, there is nothing to reconcile
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeNotFound, "no subscription recorded for signup charge")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve signup charge")
	}
	if status == enums.PaymentStatusApproved {
		// the approval already settled synchronously when the subscription
		// was opened
		return nil
	}
	return s.dispatchSubscription(ctx, sub.ID, payment, status, dedupKey)
}

func (s *service) dispatchSubscription(ctx context.Context, subscriptionID uuid.UUID, payment *mercadopago.Payment, status enums.PaymentStatus, dedupKey string) error {
	switch status {
	case enums.PaymentStatusApproved:
		return s.subs.ApplyBillingSuccess(ctx, subscriptions.BillingSuccessInput{
			SubscriptionID:   subscriptionID,
			GatewayPaymentID: payment.GatewayID(),
			DedupKey:         dedupKey,
			AmountCents:      payment.AmountCents,
		})
	case enums.PaymentStatusFailed:
		return s.subs.ApplyBillingFailure(ctx, subscriptions.BillingFailureInput{
			SubscriptionID:   subscriptionID,
			GatewayPaymentID: payment.GatewayID(),
			DedupKey:         dedupKey,
			Reason:           payment.StatusDetail,
		})
	case enums.PaymentStatusRefunded:
		if s.logg != nil {
			logCtx := s.logg.WithSubscriptionID(ctx, subscriptionID.String())
			s.logg.Warn(logCtx, "subscription charge refunded at gateway, flagging for operator review")
		}
		return nil
	default:
		return nil
	}
}

// Replay re-runs reconciliation for a stored dead letter and marks it
// resolved on success.
func (s *service) Replay(ctx context.Context, deadLetterID uuid.UUID) error {
	rows, err := s.deadLetters.ListUnresolved(ctx, 0)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dead letters")
	}
	for _, row := range rows {
		if row.ID != deadLetterID {
			continue
		}
		if err := s.Process(ctx, Notification{
			EventID:   row.GatewayEventID,
			Topic:     row.Topic,
			PaymentID: row.GatewayPaymentID,
			Payload:   row.Payload,
		}); err != nil {
			return err
		}
		return s.deadLetters.MarkResolved(ctx, row.ID, time.Now().UTC())
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "dead letter not found or already resolved")
}

func (s *service) deadLetter(ctx context.Context, n Notification, payment *mercadopago.Payment, reason string) error {
	entry := &models.WebhookDeadLetter{
		Provider:         "mercadopago",
		GatewayEventID:   n.EventID,
		GatewayPaymentID: n.PaymentID,
		Topic:            n.Topic,
		Payload:          n.Payload,
		Reason:           reason,
		AttemptCount:     1,
	}
	if payment != nil && payment.ExternalReference != "" {
		ref := payment.ExternalReference
		entry.ExternalReference = &ref
	}
	if len(entry.Payload) == 0 {
		entry.Payload = json.RawMessage(`{}`)
	}
	if err := s.deadLetters.Record(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record dead letter")
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"gateway_payment_id": n.PaymentID,
			"topic":              n.Topic,
		})
		s.logg.Warn(logCtx, "webhook dead-lettered: "+reason)
	}
	return nil
}
