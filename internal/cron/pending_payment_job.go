package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/marcaromas/marcaromas-backend/internal/orders"
	"github.com/marcaromas/marcaromas-backend/pkg/config"
	"github.com/marcaromas/marcaromas-backend/pkg/db/models"
	"github.com/marcaromas/marcaromas-backend/pkg/enums"
	pkgerrors "github.com/marcaromas/marcaromas-backend/pkg/errors"
	"github.com/marcaromas/marcaromas-backend/pkg/logger"
	"github.com/marcaromas/marcaromas-backend/pkg/mercadopago"
)

const defaultPendingBatchSize = 200

type pendingOrderLister interface {
	FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type orderResolver interface {
	MarkPaid(ctx context.Context, input orders.PaymentInput) error
	MarkPaymentFailed(ctx context.Context, input orders.PaymentInput) error
	MarkRefunded(ctx context.Context, input orders.PaymentInput) error
	Cancel(ctx context.Context, input orders.CancelInput) error
}

type paymentPoller interface {
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

// PendingPaymentJob sweeps orders stuck in pending past the payment TTL.
// Orders that reached the gateway are polled as a fallback for lost webhooks;
// the rest expire.
type PendingPaymentJob struct {
	repo      pendingOrderLister
	orders    orderResolver
	gateway   paymentPoller
	logg      *logger.Logger
	cfg       config.OrdersConfig
	batchSize int
}

// PendingPaymentJobParams configure the sweep.
type PendingPaymentJobParams struct {
	Repo      pendingOrderLister
	Orders    orderResolver
	Gateway   paymentPoller
	Logger    *logger.Logger
	Config    config.OrdersConfig
	BatchSize int
}

// NewPendingPaymentJob builds the stale-pending sweep job.
func NewPendingPaymentJob(params PendingPaymentJobParams) (*PendingPaymentJob, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultPendingBatchSize
	}
	return &PendingPaymentJob{
		repo:      params.Repo,
		orders:    params.Orders,
		gateway:   params.Gateway,
		logg:      params.Logger,
		cfg:       params.Config,
		batchSize: batch,
	}, nil
}

func (j *PendingPaymentJob) Name() string { return "pending_payment_sweep" }

func (j *PendingPaymentJob) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-j.cfg.PendingPaymentTTL)
	stale, err := j.repo.FindPendingBefore(ctx, cutoff, j.batchSize)
	if err != nil {
		return fmt.Errorf("list stale pending orders: %w", err)
	}

	var errs error
	resolved := 0
	for _, order := range stale {
		if err := j.resolve(ctx, order); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			logCtx := j.logg.WithOrderID(ctx, order.ID.String())
			j.logg.Error(logCtx, "failed to resolve stale pending order", err)
			continue
		}
		resolved++
	}
	reportCtx := j.logg.WithFields(ctx, map[string]any{
		"stale":    len(stale),
		"resolved": resolved,
	})
	j.logg.Info(reportCtx, "pending payment sweep complete")
	return errs
}

func (j *PendingPaymentJob) resolve(ctx context.Context, order models.Order) error {
	if order.GatewayPaymentID == nil || *order.GatewayPaymentID == "" {
		// never reached the gateway, nothing to poll
		return j.expire(ctx, order)
	}

	payment, err := j.gateway.GetPayment(ctx, *order.GatewayPaymentID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeGatewayTime {
			// keep the order pending, the next sweep retries the poll
			return nil
		}
		return fmt.Errorf("poll gateway payment: %w", err)
	}

	status, err := mercadopago.NormalizeStatus(payment.Status)
	if err != nil {
		return fmt.Errorf("normalize polled status: %w", err)
	}

	input := orders.PaymentInput{
		OrderID:          order.ID,
		GatewayPaymentID: payment.GatewayID(),
		DedupKey:         fmt.Sprintf("%s:%s", payment.GatewayID(), status),
		AmountCents:      payment.AmountCents,
		Reason:           payment.StatusDetail,
	}
	switch status {
	case enums.PaymentStatusApproved:
		return j.orders.MarkPaid(ctx, input)
	case enums.PaymentStatusFailed:
		if err := j.orders.MarkPaymentFailed(ctx, input); err != nil {
			return err
		}
		return j.expire(ctx, order)
	case enums.PaymentStatusRefunded:
		return j.orders.MarkRefunded(ctx, input)
	default:
		// still pending at the gateway past the TTL: close it out
		return j.expire(ctx, order)
	}
}

func (j *PendingPaymentJob) expire(ctx context.Context, order models.Order) error {
	return j.orders.Cancel(ctx, orders.CancelInput{
		OrderID: order.ID,
		Reason:  "payment window expired",
	})
}
