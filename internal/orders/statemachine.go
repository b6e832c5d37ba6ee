package orders

import (
	"fmt"

	"github.com/marcaromas/marcaromas-backend/pkg/enums"
	pkgerrors "github.com/marcaromas/marcaromas-backend/pkg/errors"
)

// orderTransitions is the single source of truth for order lifecycle moves.
// Delivered, canceled and refunded are terminal: they have no outgoing edges.
var orderTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusConfirmed, enums.OrderStatusPaid, enums.OrderStatusCanceled},
	enums.OrderStatusConfirmed:  {enums.OrderStatusPaid, enums.OrderStatusCanceled},
	enums.OrderStatusPaid:       {enums.OrderStatusProcessing, enums.OrderStatusCanceled, enums.OrderStatusRefunded},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped, enums.OrderStatusCanceled, enums.OrderStatusRefunded},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered, enums.OrderStatusRefunded},
	enums.OrderStatusDelivered:  {},
	enums.OrderStatusCanceled:   {},
	enums.OrderStatusRefunded:   {},
}

// CanTransition reports whether the order lifecycle permits moving from one
// status to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range orderTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a STATE_CONFLICT error when the requested move is
// not an edge in the lifecycle graph.
func ValidateTransition(from, to enums.OrderStatus) error {
	if !from.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", from))
	}
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", to))
	}
	if !CanTransition(from, to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order cannot move from %s to %s", from, to))
	}
	return nil
}

// NextStatuses returns the statuses reachable from the given one. The slice is
// a copy; callers may mutate it freely.
func NextStatuses(from enums.OrderStatus) []enums.OrderStatus {
	edges := orderTransitions[from]
	out := make([]enums.OrderStatus, len(edges))
	copy(out, edges)
	return out
}
