package checkout

import (
	"github.com/google/uuid"

	"github.com/marcaromas/marcaromas-backend/pkg/db/models"
	"github.com/marcaromas/marcaromas-backend/pkg/enums"
	"github.com/marcaromas/marcaromas-backend/pkg/types"
)

// ItemInput is one cart line at checkout.
type ItemInput struct {
	ProductID uuid.UUID
	Qty       int
}

// Input carries everything needed to open an order. Card data is never part
// of it; credit card payments hand over the gateway's opaque token only.
type Input struct {
	UserID          uuid.UUID
	Items           []ItemInput
	ShippingAddress types.Address
	BillingAddress  *types.Address
	PaymentMethod   enums.PaymentMethod
	CardToken       string
	Installments    int
	CouponCode      string
	CustomerNotes   string
	Channel         enums.Channel
}

// Result is what the customer needs to finish paying. Which fields are set
// depends on the payment method: PIX carries the QR payload, hosted checkout
// carries the preference link, an approved card charge needs neither.
type Result struct {
	Order           *models.Order
	PaymentStatus   enums.PaymentStatus
	PixQRCode       string
	PixQRCodeBase64 string
	TicketURL       string
	PreferenceID    string
	InitPoint       string
}
