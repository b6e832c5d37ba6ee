package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/marcaromas/marcaromas-backend/pkg/db/models"
	"github.com/marcaromas/marcaromas-backend/pkg/enums"
	"github.com/marcaromas/marcaromas-backend/pkg/types"
)

func setupReportingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  subscription_id TEXT,
  channel TEXT NOT NULL DEFAULT 'website',
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  payment_method TEXT NOT NULL DEFAULT 'pix',
  gateway_payment_id TEXT,
  gateway_preference_id TEXT,
  subtotal_cents INTEGER NOT NULL,
  shipping_cents INTEGER NOT NULL DEFAULT 0,
  tax_cents INTEGER NOT NULL DEFAULT 0,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  shipping_address TEXT NOT NULL,
  billing_address TEXT NOT NULL,
  coupon_code TEXT,
  carrier TEXT,
  shipping_method TEXT,
  tracking_code TEXT,
  label_generated_at DATETIME,
  label_url TEXT,
  estimated_delivery_at DATETIME,
  customer_notes TEXT,
  notes TEXT,
  cancel_reason TEXT,
  refund_amount_cents INTEGER,
  confirmed_at DATETIME,
  paid_at DATETIME,
  shipped_at DATETIME,
  delivered_at DATETIME,
  canceled_at DATETIME,
  refunded_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT,
  name TEXT NOT NULL,
  sku TEXT NOT NULL,
  scent TEXT,
  unit_price_cents INTEGER NOT NULL,
  qty INTEGER NOT NULL,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS subscriptions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  plan_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  cadence TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  shipping_cents INTEGER NOT NULL DEFAULT 0,
  payment_method TEXT NOT NULL DEFAULT 'credit_card',
  card_token TEXT,
  shipping_address TEXT NOT NULL,
  billing_address TEXT NOT NULL,
  next_billing_at DATETIME,
  last_payment_at DATETIME,
  last_payment_status TEXT,
  last_delivery_at DATETIME,
  delivery_count INTEGER NOT NULL DEFAULT 0,
  pause_count INTEGER NOT NULL DEFAULT 0,
  failed_payment_count INTEGER NOT NULL DEFAULT 0,
  paused_at DATETIME,
  canceled_at DATETIME,
  cancel_reason TEXT,
  preferences TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS subscription_history (
  id TEXT PRIMARY KEY,
  subscription_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  from_status TEXT,
  to_status TEXT,
  event_status TEXT NOT NULL DEFAULT 'success',
  actor_user_id TEXT,
  description TEXT NOT NULL,
  dedup_key TEXT UNIQUE,
  metadata TEXT,
  created_at DATETIME
);`}
	for _, ddl := range statements {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

func reportingAddress() types.Address {
	return types.Address{
		Street:       "Rua Oscar Freire",
		Number:       "827",
		Neighborhood: "Jardins",
		City:         "Sao Paulo",
		State:        "SP",
		PostalCode:   "01426-001",
		Country:      "BR",
	}
}

func insertPaidOrder(t *testing.T, db *gorm.DB, channel enums.Channel, totalCents int64, paidAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     "ORD-2026-" + uuid.NewString()[:8],
		UserID:          uuid.New(),
		Channel:         channel,
		Status:          enums.OrderStatusPaid,
		PaymentStatus:   enums.PaymentStatusApproved,
		SubtotalCents:   totalCents,
		TotalCents:      totalCents,
		ShippingAddress: reportingAddress(),
		BillingAddress:  reportingAddress(),
		PaidAt:          &paidAt,
		CreatedAt:       paidAt,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func insertPaidOrderFor(t *testing.T, db *gorm.DB, userID uuid.UUID, totalCents int64, paidAt time.Time) {
	t.Helper()
	order := insertPaidOrder(t, db, enums.ChannelWebsite, totalCents, paidAt)
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", order.ID).Update("user_id", userID).Error)
}

func insertLineItem(t *testing.T, db *gorm.DB, orderID uuid.UUID, sku, name string, qty int, totalCents int64) {
	t.Helper()
	require.NoError(t, db.Create(&models.OrderLineItem{
		ID:             uuid.New(),
		OrderID:        orderID,
		Name:           name,
		SKU:            sku,
		UnitPriceCents: totalCents / int64(qty),
		Qty:            qty,
		TotalCents:     totalCents,
	}).Error)
}

func insertSubscriptionRow(t *testing.T, db *gorm.DB, status enums.SubscriptionStatus, cadence enums.BillingCadence, priceCents, shippingCents int64) {
	t.Helper()
	require.NoError(t, db.Create(&models.Subscription{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		PlanID:          uuid.New(),
		Status:          status,
		Cadence:         cadence,
		PriceCents:      priceCents,
		ShippingCents:   shippingCents,
		ShippingAddress: reportingAddress(),
		BillingAddress:  reportingAddress(),
	}).Error)
}

func insertHistoryEvent(t *testing.T, db *gorm.DB, eventType enums.SubscriptionEventType, createdAt time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&models.SubscriptionHistory{
		ID:             uuid.New(),
		SubscriptionID: uuid.New(),
		EventType:      eventType,
		EventStatus:    enums.EventStatusSuccess,
		Description:    string(eventType),
		CreatedAt:      createdAt,
	}).Error)
}

func TestRevenueByChannelGroupsPaidOrders(t *testing.T) {
	db := setupReportingTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	march := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	insertPaidOrder(t, db, enums.ChannelWebsite, 11990, march)
	insertPaidOrder(t, db, enums.ChannelWebsite, 8990, march.Add(24*time.Hour))
	insertPaidOrder(t, db, enums.ChannelWhatsapp, 25980, march.Add(48*time.Hour))

	// unpaid and out-of-window orders must not count
	unpaid := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     "ORD-2026-" + uuid.NewString()[:8],
		UserID:          uuid.New(),
		Channel:         enums.ChannelWebsite,
		SubtotalCents:   5000,
		TotalCents:      5000,
		ShippingAddress: reportingAddress(),
		CreatedAt:       march,
	}
	require.NoError(t, db.Create(unpaid).Error)
	insertPaidOrder(t, db, enums.ChannelWebsite, 7000, march.AddDate(0, 2, 0))

	rows, err := repo.RevenueByChannel(ctx, march.AddDate(0, 0, -10), march.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, enums.ChannelWhatsapp, rows[0].Channel)
	require.EqualValues(t, 1, rows[0].OrderCount)
	require.EqualValues(t, 25980, rows[0].RevenueCents)

	require.Equal(t, enums.ChannelWebsite, rows[1].Channel)
	require.EqualValues(t, 2, rows[1].OrderCount)
	require.EqualValues(t, 20980, rows[1].RevenueCents)
}

func TestTopProductsRanksByUnitsSold(t *testing.T) {
	db := setupReportingTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	paidAt := time.Date(2026, 4, 5, 9, 0, 0, 0, time.UTC)
	first := insertPaidOrder(t, db, enums.ChannelWebsite, 26970, paidAt)
	second := insertPaidOrder(t, db, enums.ChannelWebsite, 17980, paidAt.Add(time.Hour))

	insertLineItem(t, db, first.ID, "CND-LAV-01", "Vela Lavanda", 3, 26970)
	insertLineItem(t, db, second.ID, "CND-LAV-01", "Vela Lavanda", 1, 8990)
	insertLineItem(t, db, second.ID, "CND-BAU-02", "Vela Baunilha", 1, 8990)

	rows, err := repo.TopProducts(ctx, paidAt.AddDate(0, 0, -1), paidAt.AddDate(0, 0, 1), 5)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, "CND-LAV-01", rows[0].SKU)
	require.EqualValues(t, 4, rows[0].UnitsSold)
	require.EqualValues(t, 35960, rows[0].RevenueCents)
	require.Equal(t, "CND-BAU-02", rows[1].SKU)
}

func TestChurnByMonthBucketsStartsAndCancellations(t *testing.T) {
	db := setupReportingTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	insertHistoryEvent(t, db, enums.SubscriptionEventCreated, time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC))
	insertHistoryEvent(t, db, enums.SubscriptionEventCreated, time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC))
	insertHistoryEvent(t, db, enums.SubscriptionEventCancellation, time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC))
	insertHistoryEvent(t, db, enums.SubscriptionEventCreated, time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC))
	// pauses are not churn
	insertHistoryEvent(t, db, enums.SubscriptionEventPause, time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC))

	rows, err := repo.ChurnByMonth(ctx,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, "2026-01", rows[0].Month)
	require.EqualValues(t, 2, rows[0].Started)
	require.EqualValues(t, 0, rows[0].Canceled)

	require.Equal(t, "2026-02", rows[1].Month)
	require.EqualValues(t, 1, rows[1].Started)
	require.EqualValues(t, 1, rows[1].Canceled)
}

func TestOverviewProratesRunRateByCadence(t *testing.T) {
	db := setupReportingTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	insertSubscriptionRow(t, db, enums.SubscriptionStatusActive, enums.BillingCadenceMonthly, 8990, 1500)
	insertSubscriptionRow(t, db, enums.SubscriptionStatusActive, enums.BillingCadenceQuarterly, 23970, 0)
	insertSubscriptionRow(t, db, enums.SubscriptionStatusPaused, enums.BillingCadenceMonthly, 8990, 1500)
	insertSubscriptionRow(t, db, enums.SubscriptionStatusCanceled, enums.BillingCadenceMonthly, 8990, 1500)

	overview, err := repo.Overview(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, overview.Active)
	require.EqualValues(t, 1, overview.Paused)
	require.EqualValues(t, 1, overview.Canceled)
	// 8990+1500 monthly plus 23970/3 quarterly
	require.EqualValues(t, 10490+7990, overview.MonthlyRunRateCents)
}

func TestCustomerSegmentsScoresRecencyFrequencyAndSpend(t *testing.T) {
	db := setupReportingTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	champion := uuid.New()
	for i := 0; i < 5; i++ {
		insertPaidOrderFor(t, db, champion, 12000, asOf.AddDate(0, -i, -10))
	}

	loyal := uuid.New()
	insertPaidOrderFor(t, db, loyal, 9000, asOf.AddDate(0, 0, -45))
	insertPaidOrderFor(t, db, loyal, 9000, asOf.AddDate(0, -3, 0))

	promising := uuid.New()
	insertPaidOrderFor(t, db, promising, 8000, asOf.AddDate(0, 0, -20))

	atRisk := uuid.New()
	insertPaidOrderFor(t, db, atRisk, 7000, asOf.AddDate(0, 0, -120))

	hibernating := uuid.New()
	insertPaidOrderFor(t, db, hibernating, 6000, asOf.AddDate(0, 0, -300))

	// paid after the reference date, must not count
	insertPaidOrderFor(t, db, uuid.New(), 5000, asOf.AddDate(0, 0, 3))

	rows, err := repo.CustomerSegments(ctx, asOf)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	require.Equal(t, SegmentChampion, rows[0].Segment)
	require.EqualValues(t, 1, rows[0].Customers)
	require.EqualValues(t, 5, rows[0].AvgOrders)
	require.EqualValues(t, 60000, rows[0].AvgSpentCents)

	require.Equal(t, SegmentLoyal, rows[1].Segment)
	require.Equal(t, SegmentPromising, rows[2].Segment)
	require.Equal(t, SegmentAtRisk, rows[3].Segment)
	require.Equal(t, SegmentHibernating, rows[4].Segment)
	require.EqualValues(t, 1, rows[4].Customers)
}
