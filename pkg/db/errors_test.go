package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolationMatchesPostgresConstraint(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_order_history_dedup_key"}
	wrapped := fmt.Errorf("insert ledger: %w", pgErr)

	if !IsUniqueViolation(wrapped, "ux_order_history_dedup_key") {
		t.Fatalf("expected match on constraint name")
	}
	if IsUniqueViolation(wrapped, "ux_subscriptions_signup_payment_id") {
		t.Fatalf("expected mismatch on a different constraint")
	}
	if !IsUniqueViolation(wrapped, "") {
		t.Fatalf("empty constraint should match any unique violation")
	}
}

func TestIsUniqueViolationIgnoresOtherPostgresCodes(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23503", ConstraintName: "fk_orders_user"}

	if IsUniqueViolation(pgErr, "") {
		t.Fatalf("foreign key violation must not read as unique violation")
	}
}

func TestIsUniqueViolationFallsBackToDriverText(t *testing.T) {
	sqliteErr := errors.New("UNIQUE constraint failed: order_history.dedup_key")
	if !IsUniqueViolation(sqliteErr, "ux_order_history_dedup_key") {
		t.Fatalf("sqlite unique error should match regardless of index name")
	}

	textual := errors.New(`duplicate key value violates unique constraint "ux_outbox_events_event_aggregate"`)
	if !IsUniqueViolation(textual, "ux_outbox_events_event_aggregate") {
		t.Fatalf("expected match on message text")
	}

	if IsUniqueViolation(errors.New("connection refused"), "") {
		t.Fatalf("unrelated error must not match")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatalf("nil error must not match")
	}
}
