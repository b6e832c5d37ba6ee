package subscriptions

import (
	"testing"

	"github.com/marcaromas/marcaromas-backend/pkg/enums"
	pkgerrors "github.com/marcaromas/marcaromas-backend/pkg/errors"
)

func TestSubscriptionTransitions(t *testing.T) {
	cases := []struct {
		from    enums.SubscriptionStatus
		to      enums.SubscriptionStatus
		allowed bool
	}{
		{enums.SubscriptionStatusActive, enums.SubscriptionStatusPaused, true},
		{enums.SubscriptionStatusActive, enums.SubscriptionStatusCanceled, true},
		{enums.SubscriptionStatusPaused, enums.SubscriptionStatusActive, true},
		{enums.SubscriptionStatusPaused, enums.SubscriptionStatusCanceled, true},
		{enums.SubscriptionStatusCanceled, enums.SubscriptionStatusActive, false},
		{enums.SubscriptionStatusCanceled, enums.SubscriptionStatusPaused, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: expected allowed=%v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestValidateTransitionRejectsUnknownStatus(t *testing.T) {
	err := ValidateTransition("suspended", enums.SubscriptionStatusActive)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestValidateTransitionRejectsLeavingCanceled(t *testing.T) {
	err := ValidateTransition(enums.SubscriptionStatusCanceled, enums.SubscriptionStatusActive)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}
