package reporting

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/marcaromas/marcaromas-backend/pkg/db/models"
	"github.com/marcaromas/marcaromas-backend/pkg/enums"
)

// ChannelRevenueRow aggregates paid order revenue per sales channel.
type ChannelRevenueRow struct {
	Channel      enums.Channel `json:"channel"`
	OrderCount   int64         `json:"order_count"`
	RevenueCents int64         `json:"revenue_cents"`
}

// TopProductRow ranks catalog items by paid units over a window. Items are
// keyed by SKU because line items keep selling after a product is retired.
type TopProductRow struct {
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	UnitsSold    int64  `json:"units_sold"`
	RevenueCents int64  `json:"revenue_cents"`
}

// ChurnRow summarizes subscription movement within one calendar month.
type ChurnRow struct {
	Month    string `json:"month"`
	Started  int64  `json:"started"`
	Canceled int64  `json:"canceled"`
}

// Customer segments produced by the recency/frequency/monetary projection.
const (
	SegmentChampion    = "champion"
	SegmentLoyal       = "loyal"
	SegmentPromising   = "promising"
	SegmentAtRisk      = "at_risk"
	SegmentHibernating = "hibernating"
)

// CustomerSegmentRow groups customers that score into the same segment,
// with averages to show what the segment is worth.
type CustomerSegmentRow struct {
	Segment       string  `json:"segment"`
	Customers     int64   `json:"customers"`
	AvgOrders     float64 `json:"avg_orders"`
	AvgSpentCents int64   `json:"avg_spent_cents"`
}

// SubscriptionOverview is the at-a-glance health of the box program.
type SubscriptionOverview struct {
	Active              int64 `json:"active"`
	Paused              int64 `json:"paused"`
	Canceled            int64 `json:"canceled"`
	MonthlyRunRateCents int64 `json:"monthly_run_rate_cents"`
}

// Repository runs the reporting projections against the primary database.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires the reporting repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// RevenueByChannel sums paid order totals per channel inside [from, to).
// Refunded orders still count as revenue here; refunds are reported
// separately off the event stream.
func (r *Repository) RevenueByChannel(ctx context.Context, from, to time.Time) ([]ChannelRevenueRow, error) {
	var rows []ChannelRevenueRow
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("channel, COUNT(*) AS order_count, COALESCE(SUM(total_cents), 0) AS revenue_cents").
		Where("paid_at IS NOT NULL").
		Where("paid_at >= ? AND paid_at < ?", from, to).
		Group("channel").
		Order("revenue_cents DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// TopProducts ranks products by paid units inside [from, to).
func (r *Repository) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProductRow, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []TopProductRow
	err := r.db.WithContext(ctx).
		Model(&models.OrderLineItem{}).
		Select(`order_line_items.sku AS sku,
			order_line_items.name AS name,
			COALESCE(SUM(order_line_items.qty), 0) AS units_sold,
			COALESCE(SUM(order_line_items.total_cents), 0) AS revenue_cents`).
		Joins("JOIN orders ON orders.id = order_line_items.order_id").
		Where("orders.paid_at IS NOT NULL").
		Where("orders.paid_at >= ? AND orders.paid_at < ?", from, to).
		Group("order_line_items.sku, order_line_items.name").
		Order("units_sold DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ChurnByMonth counts subscription starts and cancellations per calendar
// month inside [from, to). Bucketing happens here rather than in SQL so the
// projection reads the same on every backing database.
func (r *Repository) ChurnByMonth(ctx context.Context, from, to time.Time) ([]ChurnRow, error) {
	type ledgerRow struct {
		EventType enums.SubscriptionEventType
		CreatedAt time.Time
	}
	var events []ledgerRow
	err := r.db.WithContext(ctx).
		Model(&models.SubscriptionHistory{}).
		Select("event_type, created_at").
		Where("event_type IN ?", []enums.SubscriptionEventType{
			enums.SubscriptionEventCreated,
			enums.SubscriptionEventCancellation,
		}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC").
		Scan(&events).Error
	if err != nil {
		return nil, err
	}

	buckets := map[string]*ChurnRow{}
	var order []string
	for _, event := range events {
		month := event.CreatedAt.UTC().Format("2006-01")
		row, ok := buckets[month]
		if !ok {
			row = &ChurnRow{Month: month}
			buckets[month] = row
			order = append(order, month)
		}
		switch event.EventType {
		case enums.SubscriptionEventCreated:
			row.Started++
		case enums.SubscriptionEventCancellation:
			row.Canceled++
		}
	}

	rows := make([]ChurnRow, 0, len(order))
	for _, month := range order {
		rows = append(rows, *buckets[month])
	}
	return rows, nil
}

// CustomerSegments scores every customer with at least one paid order on
// recency, frequency and monetary value as of the reference date. The SQL
// side only aggregates per customer; scoring happens here rather than in SQL
// so the projection reads the same on every backing database.
func (r *Repository) CustomerSegments(ctx context.Context, asOf time.Time) ([]CustomerSegmentRow, error) {
	type customerRow struct {
		UserID     string
		LastPaidAt time.Time
		Orders     int64
		SpentCents int64
	}
	var customers []customerRow
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select(`user_id,
			MAX(paid_at) AS last_paid_at,
			COUNT(*) AS orders,
			COALESCE(SUM(total_cents), 0) AS spent_cents`).
		Where("paid_at IS NOT NULL").
		Where("paid_at < ?", asOf).
		Group("user_id").
		Scan(&customers).Error
	if err != nil {
		return nil, err
	}

	type bucket struct {
		customers  int64
		orders     int64
		spentCents int64
	}
	buckets := map[string]*bucket{}
	for _, c := range customers {
		days := int(asOf.Sub(c.LastPaidAt).Hours() / 24)
		segment := segmentFor(days, c.Orders, c.SpentCents)
		b, ok := buckets[segment]
		if !ok {
			b = &bucket{}
			buckets[segment] = b
		}
		b.customers++
		b.orders += c.Orders
		b.spentCents += c.SpentCents
	}

	segments := []string{SegmentChampion, SegmentLoyal, SegmentPromising, SegmentAtRisk, SegmentHibernating}
	rows := make([]CustomerSegmentRow, 0, len(segments))
	for _, segment := range segments {
		b, ok := buckets[segment]
		if !ok {
			continue
		}
		rows = append(rows, CustomerSegmentRow{
			Segment:       segment,
			Customers:     b.customers,
			AvgOrders:     float64(b.orders) / float64(b.customers),
			AvgSpentCents: b.spentCents / b.customers,
		})
	}
	return rows, nil
}

// Thresholds are anchored to the monthly box cadence: a customer who skipped
// two cycles is cooling off, one who skipped six is gone.
func segmentFor(recencyDays int, orders, spentCents int64) string {
	switch {
	case recencyDays <= 60 && orders >= 4 && spentCents >= 40000:
		return SegmentChampion
	case recencyDays <= 90 && orders >= 2:
		return SegmentLoyal
	case recencyDays <= 90:
		return SegmentPromising
	case recencyDays <= 180:
		return SegmentAtRisk
	default:
		return SegmentHibernating
	}
}

// Overview reports subscription counts by status and the active monthly run
// rate. Bimonthly and quarterly plans contribute a prorated monthly share.
func (r *Repository) Overview(ctx context.Context) (*SubscriptionOverview, error) {
	type statusRow struct {
		Status enums.SubscriptionStatus
		Total  int64
	}
	var counts []statusRow
	err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	overview := &SubscriptionOverview{}
	for _, row := range counts {
		switch row.Status {
		case enums.SubscriptionStatusActive:
			overview.Active = row.Total
		case enums.SubscriptionStatusPaused:
			overview.Paused = row.Total
		case enums.SubscriptionStatusCanceled:
			overview.Canceled = row.Total
		}
	}

	type runRateRow struct {
		Cadence enums.BillingCadence
		Total   int64
	}
	var rates []runRateRow
	err = r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Select("cadence, COALESCE(SUM(price_cents + shipping_cents), 0) AS total").
		Where("status = ?", enums.SubscriptionStatusActive).
		Group("cadence").
		Scan(&rates).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rates {
		overview.MonthlyRunRateCents += monthlyShare(row.Cadence, row.Total)
	}
	return overview, nil
}

func monthlyShare(cadence enums.BillingCadence, cents int64) int64 {
	switch cadence {
	case enums.BillingCadenceBimonthly:
		return cents / 2
	case enums.BillingCadenceQuarterly:
		return cents / 3
	default:
		return cents
	}
}
