package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/marcaromas/marcaromas-backend/pkg/errors"
)

const (
	defaultBaseURL             = "https://api.mercadopago.com"
	requestBodyReadLimit int64 = 4096
	retryBaseDelay             = 250 * time.Millisecond
)

var (
	errAccessTokenRequired = errors.New("mercado pago access token is required")

	centsFactor = decimal.NewFromInt(100)
)

// Client wraps the Mercado Pago payments API. Card data never flows through
// it; callers hand over the opaque card token produced by the gateway's
// frontend SDK.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	notifyURL   string
	maxRetries  int
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithNotifyURL sets the webhook callback URL attached to created payments.
func WithNotifyURL(notifyURL string) Option {
	return func(c *Client) {
		c.notifyURL = strings.TrimSpace(notifyURL)
	}
}

// WithMaxRetries bounds how many times transient failures are retried.
func WithMaxRetries(retries int) Option {
	return func(c *Client) {
		if retries >= 0 {
			c.maxRetries = retries
		}
	}
}

// NewClient builds the Mercado Pago client given an access token.
func NewClient(accessToken string, opts ...Option) (*Client, error) {
	trimmedToken := strings.TrimSpace(accessToken)
	if trimmedToken == "" {
		return nil, errAccessTokenRequired
	}

	client := &Client{
		accessToken: trimmedToken,
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		maxRetries:  2,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// Payer identifies who pays. Document is CPF or CNPJ.
type Payer struct {
	Email        string `json:"email"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	DocumentType string `json:"-"`
	Document     string `json:"-"`
}

// PaymentRequest describes a charge to create. AmountCents is converted to the
// gateway's decimal representation at the wire boundary.
type PaymentRequest struct {
	AmountCents       int64
	Description       string
	ExternalReference string
	PaymentMethodID   string
	CardToken         string
	Installments      int
	Payer             Payer
	IdempotencyKey    string
}

// Payment is the normalized view of a gateway payment.
type Payment struct {
	ID                int64
	Status            string
	StatusDetail      string
	ExternalReference string
	AmountCents       int64
	QRCode            string
	QRCodeBase64      string
	TicketURL         string
	DateApproved      *time.Time
}

// GatewayID returns the payment identifier in the string form stored on
// aggregates.
func (p *Payment) GatewayID() string {
	return fmt.Sprintf("%d", p.ID)
}

type paymentPayload struct {
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	Description       string          `json:"description,omitempty"`
	ExternalReference string          `json:"external_reference,omitempty"`
	PaymentMethodID   string          `json:"payment_method_id"`
	Token             string          `json:"token,omitempty"`
	Installments      int             `json:"installments,omitempty"`
	NotificationURL   string          `json:"notification_url,omitempty"`
	Payer             payerPayload    `json:"payer"`
}

type payerPayload struct {
	Email          string               `json:"email"`
	FirstName      string               `json:"first_name,omitempty"`
	LastName       string               `json:"last_name,omitempty"`
	Identification *identificationField `json:"identification,omitempty"`
}

type identificationField struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type paymentResponse struct {
	ID                int64           `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	ExternalReference string          `json:"external_reference"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	DateApproved      *time.Time      `json:"date_approved"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
			TicketURL    string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

// CreatePayment charges the payer. The idempotency key is forwarded so a
// retried call can never double-charge.
func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (*Payment, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mercado pago client not configured")
	}
	if req.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if strings.TrimSpace(req.PaymentMethodID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method is required")
	}
	if strings.TrimSpace(req.Payer.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payer email is required")
	}

	payload := paymentPayload{
		TransactionAmount: decimal.NewFromInt(req.AmountCents).Div(centsFactor),
		Description:       req.Description,
		ExternalReference: req.ExternalReference,
		PaymentMethodID:   req.PaymentMethodID,
		Token:             req.CardToken,
		Installments:      req.Installments,
		NotificationURL:   c.notifyURL,
		Payer: payerPayload{
			Email:     req.Payer.Email,
			FirstName: req.Payer.FirstName,
			LastName:  req.Payer.LastName,
		},
	}
	if req.Payer.Document != "" {
		payload.Payer.Identification = &identificationField{
			Type:   req.Payer.DocumentType,
			Number: req.Payer.Document,
		}
	}

	headers := map[string]string{}
	if req.IdempotencyKey != "" {
		headers["X-Idempotency-Key"] = req.IdempotencyKey
	}

	var resp paymentResponse
	if err := c.do(ctx, http.MethodPost, "/v1/payments", payload, headers, &resp); err != nil {
		return nil, err
	}
	return paymentFromResponse(resp), nil
}

// GetPayment fetches the current gateway state of a payment.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mercado pago client not configured")
	}
	trimmed := strings.TrimSpace(paymentID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment ID is required")
	}

	var resp paymentResponse
	path := fmt.Sprintf("/v1/payments/%s", url.PathEscape(trimmed))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return paymentFromResponse(resp), nil
}

// Refund reverses a payment. A zero amount refunds the full charge.
func (c *Client) Refund(ctx context.Context, paymentID string, amountCents int64) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "mercado pago client not configured")
	}
	trimmed := strings.TrimSpace(paymentID)
	if trimmed == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment ID is required")
	}

	var payload any
	if amountCents > 0 {
		payload = map[string]decimal.Decimal{
			"amount": decimal.NewFromInt(amountCents).Div(centsFactor),
		}
	}

	path := fmt.Sprintf("/v1/payments/%s/refunds", url.PathEscape(trimmed))
	return c.do(ctx, http.MethodPost, path, payload, nil, nil)
}

func paymentFromResponse(resp paymentResponse) *Payment {
	return &Payment{
		ID:                resp.ID,
		Status:            resp.Status,
		StatusDetail:      resp.StatusDetail,
		ExternalReference: resp.ExternalReference,
		AmountCents:       resp.TransactionAmount.Mul(centsFactor).IntPart(),
		QRCode:            resp.PointOfInteraction.TransactionData.QRCode,
		QRCodeBase64:      resp.PointOfInteraction.TransactionData.QRCodeBase64,
		TicketURL:         resp.PointOfInteraction.TransactionData.TicketURL,
		DateApproved:      resp.DateApproved,
	}
}

// do sends the request, retrying 5xx responses and transport failures up to
// maxRetries times. Timeouts are never retried here: the outcome at the
// gateway is unknown and the caller decides how to resolve it. Payment
// creation stays safe to retry because the idempotency key rides along on
// every attempt.
func (c *Client) do(ctx context.Context, method, path string, payload any, headers map[string]string, out any) error {
	var raw []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal gateway request")
		}
		raw = encoded
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return pkgerrors.Wrap(pkgerrors.CodeGatewayTime, ctx.Err(), "gateway request timed out")
			case <-time.After(time.Duration(attempt) * retryBaseDelay):
			}
		}
		retryable, err := c.doOnce(ctx, method, path, raw, headers, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}
	return lastErr
}

// doOnce performs a single exchange and reports whether a failure is worth
// another attempt.
func (c *Client) doOnce(ctx context.Context, method, path string, raw []byte, headers map[string]string, out any) (bool, error) {
	var body io.Reader
	if raw != nil {
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), body)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build gateway request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return false, pkgerrors.Wrap(pkgerrors.CodeGatewayTime, err, "gateway request timed out")
		}
		return true, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute gateway request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		detail := strings.TrimSpace(string(msg))
		switch {
		case resp.StatusCode == http.StatusGatewayTimeout:
			return false, pkgerrors.New(pkgerrors.CodeGatewayTime, "gateway timed out")
		case resp.StatusCode >= http.StatusInternalServerError:
			return true, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, detail), "gateway request failed")
		default:
			return false, pkgerrors.Wrap(pkgerrors.CodeValidation, fmt.Errorf("status %d: %s", resp.StatusCode, detail), "gateway rejected request")
		}
	}

	if out == nil {
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode gateway response")
	}
	return false, nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	return trimmed + "/" + strings.TrimLeft(path, "/")
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
