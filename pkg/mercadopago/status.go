package mercadopago

import (
	"fmt"
	"strings"

	"github.com/marcaromas/marcaromas-backend/pkg/enums"
)

// Gateway status vocabulary. Mercado Pago reports more states than the
// platform tracks, so the adapter collapses them into the normalized set
// before anything downstream sees them.
const (
	statusApproved    = "approved"
	statusPending     = "pending"
	statusInProcess   = "in_process"
	statusAuthorized  = "authorized"
	statusRejected    = "rejected"
	statusCancelled   = "cancelled"
	statusRefunded    = "refunded"
	statusChargedBack = "charged_back"
)

// StatusAuthorized reports whether a raw gateway status is an authorization
// hold. It normalizes to pending (the money has not moved), but the order
// lifecycle treats it as a distinct signal: the charge passed the issuer and
// is awaiting capture.
func StatusAuthorized(raw string) bool {
	return strings.ToLower(strings.TrimSpace(raw)) == statusAuthorized
}

// NormalizeStatus maps a raw gateway status onto the platform's payment
// status enum. Unknown statuses are an error so new gateway states fail loud
// instead of being silently treated as pending.
func NormalizeStatus(raw string) (enums.PaymentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case statusApproved:
		return enums.PaymentStatusApproved, nil
	case statusPending, statusInProcess, statusAuthorized:
		return enums.PaymentStatusPending, nil
	case statusRejected, statusCancelled:
		return enums.PaymentStatusFailed, nil
	case statusRefunded, statusChargedBack:
		return enums.PaymentStatusRefunded, nil
	default:
		return "", fmt.Errorf("unrecognized gateway status %q", raw)
	}
}
