package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/marcaromas/marcaromas-backend/internal/orders"
	"github.com/marcaromas/marcaromas-backend/pkg/config"
	"github.com/marcaromas/marcaromas-backend/pkg/db/models"
	"github.com/marcaromas/marcaromas-backend/pkg/enums"
	"github.com/marcaromas/marcaromas-backend/pkg/logger"
	"github.com/marcaromas/marcaromas-backend/pkg/mercadopago"
)

type stubPendingLister struct {
	stale  []models.Order
	cutoff time.Time
}

func (s *stubPendingLister) FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	s.cutoff = cutoff
	return s.stale, nil
}

type stubOrderResolver struct {
	paid     []orders.PaymentInput
	failed   []orders.PaymentInput
	refunded []orders.PaymentInput
	canceled []orders.CancelInput
}

func (s *stubOrderResolver) MarkPaid(ctx context.Context, input orders.PaymentInput) error {
	s.paid = append(s.paid, input)
	return nil
}

func (s *stubOrderResolver) MarkPaymentFailed(ctx context.Context, input orders.PaymentInput) error {
	s.failed = append(s.failed, input)
	return nil
}

func (s *stubOrderResolver) MarkRefunded(ctx context.Context, input orders.PaymentInput) error {
	s.refunded = append(s.refunded, input)
	return nil
}

func (s *stubOrderResolver) Cancel(ctx context.Context, input orders.CancelInput) error {
	s.canceled = append(s.canceled, input)
	return nil
}

type stubPoller struct {
	payment *mercadopago.Payment
	err     error
	polled  []string
}

func (s *stubPoller) GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error) {
	s.polled = append(s.polled, paymentID)
	if s.err != nil {
		return nil, s.err
	}
	return s.payment, nil
}

func staleOrder(gatewayPaymentID string) models.Order {
	order := models.Order{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		OrderNumber: "ORD-2026-000101",
		Status:      enums.OrderStatusPending,
		TotalCents:  11990,
	}
	if gatewayPaymentID != "" {
		order.GatewayPaymentID = &gatewayPaymentID
	}
	return order
}

func newPendingJob(t *testing.T, lister *stubPendingLister, resolver *stubOrderResolver, poller *stubPoller) *PendingPaymentJob {
	t.Helper()
	job, err := NewPendingPaymentJob(PendingPaymentJobParams{
		Repo:    lister,
		Orders:  resolver,
		Gateway: poller,
		Logger:  logger.New(logger.Options{ServiceName: "pending-test"}),
		Config:  config.OrdersConfig{PendingPaymentTTL: 48 * time.Hour},
	})
	if err != nil {
		t.Fatalf("new pending payment job: %v", err)
	}
	return job
}

func TestPendingSweepUsesConfiguredTTL(t *testing.T) {
	lister := &stubPendingLister{}
	job := newPendingJob(t, lister, &stubOrderResolver{}, &stubPoller{})

	before := time.Now().UTC().Add(-48 * time.Hour)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	after := time.Now().UTC().Add(-48 * time.Hour)
	if lister.cutoff.Before(before) || lister.cutoff.After(after) {
		t.Fatalf("expected cutoff 48h in the past, got %s", lister.cutoff)
	}
}

func TestPendingSweepExpiresOrderWithoutGatewayPayment(t *testing.T) {
	order := staleOrder("")
	resolver := &stubOrderResolver{}
	poller := &stubPoller{}
	job := newPendingJob(t, &stubPendingLister{stale: []models.Order{order}}, resolver, poller)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(poller.polled) != 0 {
		t.Fatalf("nothing to poll without a gateway payment id")
	}
	if len(resolver.canceled) != 1 {
		t.Fatalf("expected one cancel, got %d", len(resolver.canceled))
	}
	if resolver.canceled[0].Reason != "payment window expired" {
		t.Fatalf("unexpected cancel reason %q", resolver.canceled[0].Reason)
	}
}

func TestPendingSweepRecoversLostApprovalWebhook(t *testing.T) {
	order := staleOrder("888001")
	resolver := &stubOrderResolver{}
	poller := &stubPoller{payment: &mercadopago.Payment{
		ID:          888001,
		Status:      "approved",
		AmountCents: 11990,
	}}
	job := newPendingJob(t, &stubPendingLister{stale: []models.Order{order}}, resolver, poller)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(resolver.paid) != 1 {
		t.Fatalf("expected one MarkPaid, got %d", len(resolver.paid))
	}
	if resolver.paid[0].DedupKey != "888001:approved" {
		t.Fatalf("unexpected dedup key %s", resolver.paid[0].DedupKey)
	}
	if len(resolver.canceled) != 0 {
		t.Fatalf("recovered orders must not be canceled")
	}
}

func TestPendingSweepExpiresStillPendingCharge(t *testing.T) {
	order := staleOrder("888002")
	resolver := &stubOrderResolver{}
	poller := &stubPoller{payment: &mercadopago.Payment{
		ID:     888002,
		Status: "in_process",
	}}
	job := newPendingJob(t, &stubPendingLister{stale: []models.Order{order}}, resolver, poller)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(resolver.canceled) != 1 {
		t.Fatalf("expected stale pending charge to expire the order")
	}
}

func TestPendingSweepRejectedChargeFailsThenExpires(t *testing.T) {
	order := staleOrder("888003")
	resolver := &stubOrderResolver{}
	poller := &stubPoller{payment: &mercadopago.Payment{
		ID:           888003,
		Status:       "rejected",
		StatusDetail: "cc_rejected_bad_filled_security_code",
	}}
	job := newPendingJob(t, &stubPendingLister{stale: []models.Order{order}}, resolver, poller)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(resolver.failed) != 1 {
		t.Fatalf("expected payment failure to be recorded")
	}
	if len(resolver.canceled) != 1 {
		t.Fatalf("expected failed stale order to be canceled")
	}
}
