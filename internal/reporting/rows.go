package reporting

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// OrderEventRow mirrors the order_events BigQuery schema. One row per order
// lifecycle event, denormalized for channel and revenue slicing.
type OrderEventRow struct {
	EventID     string             `bigquery:"event_id"`
	EventType   string             `bigquery:"event_type"`
	OccurredAt  time.Time          `bigquery:"occurred_at"`
	OrderID     *string            `bigquery:"order_id"`
	OrderNumber *string            `bigquery:"order_number"`
	UserID      *string            `bigquery:"user_id"`
	Channel     *string            `bigquery:"channel"`
	AmountCents *int64             `bigquery:"amount_cents"`
	Payload     cbigquery.NullJSON `bigquery:"payload"`
}

// BillingEventRow mirrors the billing_events BigQuery schema used for cohort
// and churn analysis of the subscription program.
type BillingEventRow struct {
	EventID            string             `bigquery:"event_id"`
	EventType          string             `bigquery:"event_type"`
	OccurredAt         time.Time          `bigquery:"occurred_at"`
	SubscriptionID     *string            `bigquery:"subscription_id"`
	UserID             *string            `bigquery:"user_id"`
	AmountCents        *int64             `bigquery:"amount_cents"`
	FailedPaymentCount *int64             `bigquery:"failed_payment_count"`
	Payload            cbigquery.NullJSON `bigquery:"payload"`
}
