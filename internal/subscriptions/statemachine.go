package subscriptions

import (
	"fmt"

	"github.com/marcaromas/marcaromas-backend/pkg/enums"
	pkgerrors "github.com/marcaromas/marcaromas-backend/pkg/errors"
)

// subscriptionTransitions is the single source of truth for subscription
// lifecycle moves. Canceled is terminal: resubscribing means creating a new
// subscription record.
var subscriptionTransitions = map[enums.SubscriptionStatus][]enums.SubscriptionStatus{
	enums.SubscriptionStatusActive:   {enums.SubscriptionStatusPaused, enums.SubscriptionStatusCanceled},
	enums.SubscriptionStatusPaused:   {enums.SubscriptionStatusActive, enums.SubscriptionStatusCanceled},
	enums.SubscriptionStatusCanceled: {},
}

// CanTransition reports whether the subscription lifecycle permits moving
// from one status to another.
func CanTransition(from, to enums.SubscriptionStatus) bool {
	for _, candidate := range subscriptionTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a STATE_CONFLICT error when the requested move
// is not an edge in the lifecycle graph.
func ValidateTransition(from, to enums.SubscriptionStatus) error {
	if !from.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown subscription status %q", from))
	}
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown subscription status %q", to))
	}
	if !CanTransition(from, to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("subscription cannot move from %s to %s", from, to))
	}
	return nil
}
