package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/marcaromas/marcaromas-backend/api/middleware"
	"github.com/marcaromas/marcaromas-backend/api/responses"
	"github.com/marcaromas/marcaromas-backend/api/validators"
	"github.com/marcaromas/marcaromas-backend/internal/checkout"
	"github.com/marcaromas/marcaromas-backend/pkg/enums"
	pkgerrors "github.com/marcaromas/marcaromas-backend/pkg/errors"
	"github.com/marcaromas/marcaromas-backend/pkg/logger"
	"github.com/marcaromas/marcaromas-backend/pkg/types"
)

type checkoutItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Qty       int       `json:"qty" validate:"required,min=1"`
}

type checkoutRequest struct {
	Items           []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddress types.Address         `json:"shipping_address" validate:"required"`
	BillingAddress  *types.Address        `json:"billing_address,omitempty"`
	PaymentMethod   string                `json:"payment_method" validate:"required"`
	CardToken       string                `json:"card_token,omitempty"`
	Installments    int                   `json:"installments,omitempty" validate:"omitempty,min=1,max=12"`
	CouponCode      string                `json:"coupon_code,omitempty"`
	CustomerNotes   string                `json:"customer_notes,omitempty"`
	Channel         string                `json:"channel,omitempty"`
}

type checkoutResponse struct {
	OrderID         uuid.UUID           `json:"order_id"`
	OrderNumber     string              `json:"order_number"`
	Status          enums.OrderStatus   `json:"status"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
	TotalCents      int64               `json:"total_cents"`
	PixQRCode       string              `json:"pix_qr_code,omitempty"`
	PixQRCodeBase64 string              `json:"pix_qr_code_base64,omitempty"`
	TicketURL       string              `json:"ticket_url,omitempty"`
	PreferenceID    string              `json:"preference_id,omitempty"`
	InitPoint       string              `json:"init_point,omitempty"`
}

// Checkout opens an order for the authenticated customer.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context"))
			return
		}

		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(body.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		channel := enums.ChannelWebsite
		if body.Channel != "" {
			channel, err = enums.ParseChannel(body.Channel)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid channel"))
				return
			}
		}

		input := checkout.Input{
			UserID:          userID,
			ShippingAddress: body.ShippingAddress,
			BillingAddress:  body.BillingAddress,
			PaymentMethod:   method,
			CardToken:       body.CardToken,
			Installments:    body.Installments,
			CouponCode:      body.CouponCode,
			CustomerNotes:   body.CustomerNotes,
			Channel:         channel,
		}
		for _, item := range body.Items {
			input.Items = append(input.Items, checkout.ItemInput{ProductID: item.ProductID, Qty: item.Qty})
		}

		result, err := svc.Checkout(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			OrderID:         result.Order.ID,
			OrderNumber:     result.Order.OrderNumber,
			Status:          result.Order.Status,
			PaymentStatus:   result.PaymentStatus,
			TotalCents:      result.Order.TotalCents,
			PixQRCode:       result.PixQRCode,
			PixQRCodeBase64: result.PixQRCodeBase64,
			TicketURL:       result.TicketURL,
			PreferenceID:    result.PreferenceID,
			InitPoint:       result.InitPoint,
		})
	}
}
