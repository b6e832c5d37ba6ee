package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/marcaromas/marcaromas-backend/api/responses"
	"github.com/marcaromas/marcaromas-backend/internal/reconciler"
	"github.com/marcaromas/marcaromas-backend/pkg/config"
	pkgerrors "github.com/marcaromas/marcaromas-backend/pkg/errors"
	"github.com/marcaromas/marcaromas-backend/pkg/logger"
	"github.com/marcaromas/marcaromas-backend/pkg/mercadopago"
)

type notificationProcessor interface {
	Process(ctx context.Context, notification reconciler.Notification) error
}

// flexibleID absorbs ids the gateway sends either as numbers or strings,
// depending on topic.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	trimmed := strings.Trim(string(data), `"`)
	if trimmed == "null" {
		trimmed = ""
	}
	*f = flexibleID(trimmed)
	return nil
}

// mercadoPagoEvent is the subset of the notification body the reconciler
// needs.
type mercadoPagoEvent struct {
	ID     flexibleID `json:"id"`
	Type   string     `json:"type"`
	Topic  string     `json:"topic"`
	Action string     `json:"action"`
	Data   struct {
		ID flexibleID `json:"id"`
	} `json:"data"`
}

// MercadoPagoWebhook receives gateway payment notifications. Signature
// verification rejects forgeries before anything is parsed; everything past
// that point is absorbed by the reconciler, which owns dedup and dead
// lettering.
func MercadoPagoWebhook(svc notificationProcessor, cfg config.MercadoPagoConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		dataID := r.URL.Query().Get("data.id")
		err = mercadopago.VerifyWebhookSignature(
			cfg.WebhookSecret,
			r.Header.Get("x-signature"),
			r.Header.Get("x-request-id"),
			dataID,
		)
		if err != nil {
			if errors.Is(err, mercadopago.ErrMissingSignature) || errors.Is(err, mercadopago.ErrInvalidSignature) {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "webhook signature rejected"))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify webhook signature"))
			return
		}

		var event mercadoPagoEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed notification body"))
			return
		}

		topic := event.Type
		if topic == "" {
			topic = event.Topic
		}
		if topic == "" {
			topic = r.URL.Query().Get("topic")
		}
		paymentID := dataID
		if paymentID == "" {
			paymentID = string(event.Data.ID)
		}

		err = svc.Process(ctx, reconciler.Notification{
			EventID:   string(event.ID),
			Topic:     topic,
			PaymentID: paymentID,
			Payload:   payload,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}
