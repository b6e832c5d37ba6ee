package mercadopago

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/marcaromas/marcaromas-backend/pkg/errors"
)

// PreferenceItem is one purchasable line in a checkout preference.
type PreferenceItem struct {
	Title          string
	Quantity       int
	UnitPriceCents int64
}

// PreferenceRequest describes a hosted checkout session to create.
type PreferenceRequest struct {
	Items             []PreferenceItem
	Payer             Payer
	ExternalReference string
	Metadata          map[string]any
}

// Preference is the created checkout session reference.
type Preference struct {
	ID           string
	InitPoint    string
	SandboxPoint string
}

type preferenceItemPayload struct {
	Title      string          `json:"title"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	CurrencyID string          `json:"currency_id"`
}

type preferencePayload struct {
	Items             []preferenceItemPayload `json:"items"`
	Payer             payerPayload            `json:"payer"`
	ExternalReference string                  `json:"external_reference,omitempty"`
	NotificationURL   string                  `json:"notification_url,omitempty"`
	Metadata          map[string]any          `json:"metadata,omitempty"`
}

type preferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// CreatePreference opens a hosted checkout session for the given items. It
// performs no local writes; the pending order must already exist.
func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mercado pago client not configured")
	}
	if len(req.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "preference requires at least one item")
	}
	for _, item := range req.Items {
		if strings.TrimSpace(item.Title) == "" || item.Quantity <= 0 || item.UnitPriceCents <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "preference items require title, positive quantity and price")
		}
	}

	payload := preferencePayload{
		ExternalReference: req.ExternalReference,
		NotificationURL:   c.notifyURL,
		Metadata:          req.Metadata,
		Payer: payerPayload{
			Email:     req.Payer.Email,
			FirstName: req.Payer.FirstName,
			LastName:  req.Payer.LastName,
		},
	}
	for _, item := range req.Items {
		payload.Items = append(payload.Items, preferenceItemPayload{
			Title:      item.Title,
			Quantity:   item.Quantity,
			UnitPrice:  decimal.NewFromInt(item.UnitPriceCents).Div(centsFactor),
			CurrencyID: "BRL",
		})
	}

	var resp preferenceResponse
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", payload, nil, &resp); err != nil {
		return nil, err
	}
	return &Preference{
		ID:           resp.ID,
		InitPoint:    resp.InitPoint,
		SandboxPoint: resp.SandboxInitPoint,
	}, nil
}

// CreateCardCharge attempts a synchronous charge against a tokenized card.
// Only the opaque token crosses this boundary; raw card data never does.
func (c *Client) CreateCardCharge(ctx context.Context, req PaymentRequest) (*Payment, error) {
	if strings.TrimSpace(req.CardToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card token is required")
	}
	if req.PaymentMethodID == "" {
		req.PaymentMethodID = "credit_card"
	}
	if req.Installments <= 0 {
		req.Installments = 1
	}
	return c.CreatePayment(ctx, req)
}

// CreatePixCharge opens an asynchronous PIX charge; the returned payment
// carries the QR payload and always starts out pending.
func (c *Client) CreatePixCharge(ctx context.Context, req PaymentRequest) (*Payment, error) {
	req.PaymentMethodID = "pix"
	req.CardToken = ""
	req.Installments = 0
	return c.CreatePayment(ctx, req)
}
