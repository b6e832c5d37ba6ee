package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/marcaromas/marcaromas-backend/pkg/enums"
	"github.com/marcaromas/marcaromas-backend/pkg/logger"
	"github.com/marcaromas/marcaromas-backend/pkg/outbox"
	"github.com/marcaromas/marcaromas-backend/pkg/outbox/payloads"
)

type stubInserter struct {
	err    error
	tables []string
	rows   []any
}

func (s *stubInserter) InsertRows(_ context.Context, table string, rows []any) error {
	if s.err != nil {
		return s.err
	}
	s.tables = append(s.tables, table)
	s.rows = append(s.rows, rows...)
	return nil
}

type stubIdempotency struct {
	processed map[uuid.UUID]bool
	checkErr  error
	deleted   []uuid.UUID
}

func (s *stubIdempotency) CheckAndMarkProcessed(_ context.Context, _ string, eventID uuid.UUID) (bool, error) {
	if s.checkErr != nil {
		return false, s.checkErr
	}
	if s.processed == nil {
		s.processed = map[uuid.UUID]bool{}
	}
	if s.processed[eventID] {
		return true, nil
	}
	s.processed[eventID] = true
	return false, nil
}

func (s *stubIdempotency) Delete(_ context.Context, _ string, eventID uuid.UUID) error {
	s.deleted = append(s.deleted, eventID)
	delete(s.processed, eventID)
	return nil
}

func newTestConsumer(t *testing.T, inserter *stubInserter, manager *stubIdempotency) *Consumer {
	t.Helper()
	consumer, err := NewConsumer(ConsumerParams{
		Client:       inserter,
		OrderTable:   "order_events",
		BillingTable: "billing_events",
		Manager:      manager,
		Logger:       logger.New(logger.Options{ServiceName: "reporting-test"}),
	})
	require.NoError(t, err)
	return consumer
}

func envelopeFor(t *testing.T, payload any) outbox.PayloadEnvelope {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Date(2026, 5, 12, 14, 30, 0, 0, time.UTC),
		Data:       data,
	}
}

func TestProcessOrderPaidInsertsOrderRow(t *testing.T) {
	inserter := &stubInserter{}
	manager := &stubIdempotency{}
	consumer := newTestConsumer(t, inserter, manager)

	orderID := uuid.New()
	envelope := envelopeFor(t, payloads.OrderPaidEvent{
		OrderID:          orderID,
		OrderNumber:      "ORD-2026-000042",
		UserID:           uuid.New(),
		GatewayPaymentID: "555001",
		AmountCents:      11990,
		PaidAt:           time.Date(2026, 5, 12, 14, 29, 0, 0, time.UTC),
	})

	require.NoError(t, consumer.Process(context.Background(), enums.EventOrderPaid, envelope))
	require.Equal(t, []string{"order_events"}, inserter.tables)
	require.Len(t, inserter.rows, 1)

	row, ok := inserter.rows[0].(*OrderEventRow)
	require.True(t, ok)
	require.Equal(t, envelope.EventID, row.EventID)
	require.Equal(t, "order_paid", row.EventType)
	require.Equal(t, orderID.String(), *row.OrderID)
	require.Equal(t, "ORD-2026-000042", *row.OrderNumber)
	require.EqualValues(t, 11990, *row.AmountCents)
	require.True(t, row.Payload.Valid)
}

func TestProcessOrderCreatedCarriesChannel(t *testing.T) {
	inserter := &stubInserter{}
	consumer := newTestConsumer(t, inserter, &stubIdempotency{})

	envelope := envelopeFor(t, payloads.OrderCreatedEvent{
		OrderID:     uuid.New(),
		OrderNumber: "ORD-2026-000043",
		UserID:      uuid.New(),
		Channel:     enums.ChannelWhatsapp,
		TotalCents:  25980,
	})

	require.NoError(t, consumer.Process(context.Background(), enums.EventOrderCreated, envelope))
	row := inserter.rows[0].(*OrderEventRow)
	require.Equal(t, "whatsapp", *row.Channel)
	require.EqualValues(t, 25980, *row.AmountCents)
}

func TestProcessOrderRefundedRecordsNegativeAmount(t *testing.T) {
	inserter := &stubInserter{}
	consumer := newTestConsumer(t, inserter, &stubIdempotency{})

	envelope := envelopeFor(t, payloads.OrderRefundedEvent{
		OrderID:          uuid.New(),
		OrderNumber:      "ORD-2026-000044",
		UserID:           uuid.New(),
		GatewayPaymentID: "555002",
		AmountCents:      11990,
		RefundedAt:       time.Now().UTC(),
	})

	require.NoError(t, consumer.Process(context.Background(), enums.EventOrderRefunded, envelope))
	row := inserter.rows[0].(*OrderEventRow)
	require.EqualValues(t, -11990, *row.AmountCents)
}

func TestProcessSubscriptionBilledInsertsBillingRow(t *testing.T) {
	inserter := &stubInserter{}
	consumer := newTestConsumer(t, inserter, &stubIdempotency{})

	subscriptionID := uuid.New()
	envelope := envelopeFor(t, payloads.SubscriptionBilledEvent{
		SubscriptionID:   subscriptionID,
		UserID:           uuid.New(),
		OrderID:          uuid.New(),
		GatewayPaymentID: "777001",
		AmountCents:      10490,
		NextBillingAt:    time.Now().UTC().AddDate(0, 1, 0),
	})

	require.NoError(t, consumer.Process(context.Background(), enums.EventSubscriptionBilled, envelope))
	require.Equal(t, []string{"billing_events"}, inserter.tables)

	row, ok := inserter.rows[0].(*BillingEventRow)
	require.True(t, ok)
	require.Equal(t, subscriptionID.String(), *row.SubscriptionID)
	require.EqualValues(t, 10490, *row.AmountCents)
}

func TestProcessSubscriptionPaymentFailedCarriesStreak(t *testing.T) {
	inserter := &stubInserter{}
	consumer := newTestConsumer(t, inserter, &stubIdempotency{})

	envelope := envelopeFor(t, payloads.SubscriptionPaymentFailedEvent{
		SubscriptionID:     uuid.New(),
		UserID:             uuid.New(),
		FailedPaymentCount: 2,
		Reason:             "cc_rejected_insufficient_amount",
	})

	require.NoError(t, consumer.Process(context.Background(), enums.EventSubscriptionPaymentFailed, envelope))
	row := inserter.rows[0].(*BillingEventRow)
	require.EqualValues(t, 2, *row.FailedPaymentCount)
}

func TestProcessDuplicateEventIsSkipped(t *testing.T) {
	inserter := &stubInserter{}
	manager := &stubIdempotency{}
	consumer := newTestConsumer(t, inserter, manager)

	envelope := envelopeFor(t, payloads.OrderPaidEvent{
		OrderID:     uuid.New(),
		OrderNumber: "ORD-2026-000045",
		UserID:      uuid.New(),
		AmountCents: 8990,
	})

	require.NoError(t, consumer.Process(context.Background(), enums.EventOrderPaid, envelope))
	require.NoError(t, consumer.Process(context.Background(), enums.EventOrderPaid, envelope))
	require.Len(t, inserter.rows, 1)
}

func TestProcessInsertFailureReleasesIdempotencyMark(t *testing.T) {
	inserter := &stubInserter{err: errors.New("bigquery unavailable")}
	manager := &stubIdempotency{}
	consumer := newTestConsumer(t, inserter, manager)

	envelope := envelopeFor(t, payloads.OrderPaidEvent{
		OrderID:     uuid.New(),
		OrderNumber: "ORD-2026-000046",
		UserID:      uuid.New(),
		AmountCents: 8990,
	})

	err := consumer.Process(context.Background(), enums.EventOrderPaid, envelope)
	require.Error(t, err)
	require.Len(t, manager.deleted, 1)

	// the event stays eligible for redelivery
	inserter.err = nil
	require.NoError(t, consumer.Process(context.Background(), enums.EventOrderPaid, envelope))
	require.Len(t, inserter.rows, 1)
}

func TestProcessUnroutedEventIsIgnored(t *testing.T) {
	inserter := &stubInserter{}
	manager := &stubIdempotency{}
	consumer := newTestConsumer(t, inserter, manager)

	envelope := envelopeFor(t, map[string]any{"noise": true})
	require.NoError(t, consumer.Process(context.Background(), "inventory_adjusted", envelope))
	require.Empty(t, inserter.rows)
	require.Empty(t, manager.processed)
}
