package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/marcaromas/marcaromas-backend/internal/subscriptions"
	"github.com/marcaromas/marcaromas-backend/pkg/db/models"
	"github.com/marcaromas/marcaromas-backend/pkg/enums"
	pkgerrors "github.com/marcaromas/marcaromas-backend/pkg/errors"
	"github.com/marcaromas/marcaromas-backend/pkg/logger"
	"github.com/marcaromas/marcaromas-backend/pkg/mercadopago"
)

const defaultBillingBatchSize = 100

type dueSubscriptionLister interface {
	ListDue(ctx context.Context, asOf time.Time, limit int) ([]models.Subscription, error)
}

type billingApplier interface {
	ApplyBillingSuccess(ctx context.Context, input subscriptions.BillingSuccessInput) error
	ApplyBillingFailure(ctx context.Context, input subscriptions.BillingFailureInput) error
}

type cardCharger interface {
	CreateCardCharge(ctx context.Context, req mercadopago.PaymentRequest) (*mercadopago.Payment, error)
}

type subscriberReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// BillingTickJob charges every subscription whose billing date has arrived.
// Each charge outcome is applied through the subscription state machine, so a
// crashed run can be repeated: the dedup key on the history ledger absorbs
// the overlap.
type BillingTickJob struct {
	repo      dueSubscriptionLister
	subs      billingApplier
	gateway   cardCharger
	users     subscriberReader
	logg      *logger.Logger
	batchSize int
}

// BillingTickJobParams configure the billing tick.
type BillingTickJobParams struct {
	Repo      dueSubscriptionLister
	Service   billingApplier
	Gateway   cardCharger
	Users     subscriberReader
	Logger    *logger.Logger
	BatchSize int
}

// NewBillingTickJob builds the recurring-charge job.
func NewBillingTickJob(params BillingTickJobParams) (*BillingTickJob, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscriptions repository required")
	}
	if params.Service == nil {
		return nil, fmt.Errorf("subscriptions service required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBillingBatchSize
	}
	return &BillingTickJob{
		repo:      params.Repo,
		subs:      params.Service,
		gateway:   params.Gateway,
		users:     params.Users,
		logg:      params.Logger,
		batchSize: batch,
	}, nil
}

func (j *BillingTickJob) Name() string { return "subscription_billing_tick" }

func (j *BillingTickJob) Run(ctx context.Context) error {
	now := time.Now().UTC()
	due, err := j.repo.ListDue(ctx, now, j.batchSize)
	if err != nil {
		return fmt.Errorf("list due subscriptions: %w", err)
	}

	var errs error
	billed := 0
	for _, sub := range due {
		if err := j.bill(ctx, sub, now); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("subscription %s: %w", sub.ID, err))
			logCtx := j.logg.WithSubscriptionID(ctx, sub.ID.String())
			j.logg.Error(logCtx, "billing tick failed for subscription", err)
			continue
		}
		billed++
	}
	reportCtx := j.logg.WithFields(ctx, map[string]any{
		"due":    len(due),
		"billed": billed,
	})
	j.logg.Info(reportCtx, "billing tick complete")
	return errs
}

func (j *BillingTickJob) bill(ctx context.Context, sub models.Subscription, now time.Time) error {
	if sub.CardToken == nil || *sub.CardToken == "" {
		return j.subs.ApplyBillingFailure(ctx, subscriptions.BillingFailureInput{
			SubscriptionID: sub.ID,
			DedupKey:       fmt.Sprintf("tick-%s-%d:no_token", sub.ID, now.Unix()),
			Reason:         "no stored card token",
		})
	}

	owner, err := j.users.FindByID(ctx, sub.UserID)
	if err != nil {
		return fmt.Errorf("load subscription owner: %w", err)
	}

	payment, err := j.gateway.CreateCardCharge(ctx, mercadopago.PaymentRequest{
		AmountCents:       sub.PriceCents + sub.ShippingCents,
		Description:       "recurring candle box charge",
		ExternalReference: fmt.Sprintf("subscription:%s", sub.ID),
		CardToken:         *sub.CardToken,
		Payer: mercadopago.Payer{
			Email:     owner.Email,
			FirstName: owner.FirstName,
			LastName:  owner.LastName,
		},
		IdempotencyKey: fmt.Sprintf("sub-%s-%d", sub.ID, billingCycleStamp(sub, now)),
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeGatewayTime {
			// indeterminate outcome: leave the clock alone, the webhook or
			// the next tick resolves it
			logCtx := j.logg.WithSubscriptionID(ctx, sub.ID.String())
			j.logg.Warn(logCtx, "gateway timed out on recurring charge, outcome unknown")
			return nil
		}
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeGatewayDecl {
			return j.subs.ApplyBillingFailure(ctx, subscriptions.BillingFailureInput{
				SubscriptionID: sub.ID,
				DedupKey:       fmt.Sprintf("tick-%s-%d:declined", sub.ID, now.Unix()),
				Reason:         "gateway declined recurring charge",
			})
		}
		return fmt.Errorf("create recurring charge: %w", err)
	}

	status, err := mercadopago.NormalizeStatus(payment.Status)
	if err != nil {
		return fmt.Errorf("normalize charge status: %w", err)
	}
	dedupKey := fmt.Sprintf("%s:%s", payment.GatewayID(), status)

	switch status {
	case enums.PaymentStatusApproved:
		return j.subs.ApplyBillingSuccess(ctx, subscriptions.BillingSuccessInput{
			SubscriptionID:   sub.ID,
			GatewayPaymentID: payment.GatewayID(),
			DedupKey:         dedupKey,
			AmountCents:      payment.AmountCents,
		})
	case enums.PaymentStatusFailed:
		return j.subs.ApplyBillingFailure(ctx, subscriptions.BillingFailureInput{
			SubscriptionID:   sub.ID,
			GatewayPaymentID: payment.GatewayID(),
			DedupKey:         dedupKey,
			Reason:           payment.StatusDetail,
		})
	default:
		// pending at the gateway; the webhook reconciler finishes the cycle
		return nil
	}
}

// billingCycleStamp pins the charge idempotency key to the cycle being
// billed, not to the wall clock, so a re-run of the same cycle cannot
// double-charge.
func billingCycleStamp(sub models.Subscription, now time.Time) int64 {
	if sub.NextBillingAt != nil {
		return sub.NextBillingAt.Unix()
	}
	return now.Truncate(24 * time.Hour).Unix()
}
