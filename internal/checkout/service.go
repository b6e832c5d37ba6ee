package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marcaromas/marcaromas-backend/internal/catalog"
	"github.com/marcaromas/marcaromas-backend/internal/history"
	"github.com/marcaromas/marcaromas-backend/internal/orders"
	"github.com/marcaromas/marcaromas-backend/pkg/config"
	"github.com/marcaromas/marcaromas-backend/pkg/db/models"
	"github.com/marcaromas/marcaromas-backend/pkg/enums"
	pkgerrors "github.com/marcaromas/marcaromas-backend/pkg/errors"
	"github.com/marcaromas/marcaromas-backend/pkg/logger"
	"github.com/marcaromas/marcaromas-backend/pkg/mercadopago"
	"github.com/marcaromas/marcaromas-backend/pkg/outbox"
	"github.com/marcaromas/marcaromas-backend/pkg/outbox/payloads"
)

const maxQtyPerItem = 50

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Gateway is the payment surface checkout needs. All calls happen outside
// the order-creation transaction.
type Gateway interface {
	CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error)
	CreateCardCharge(ctx context.Context, req mercadopago.PaymentRequest) (*mercadopago.Payment, error)
	CreatePixCharge(ctx context.Context, req mercadopago.PaymentRequest) (*mercadopago.Payment, error)
}

// paymentApplier is the slice of the order service a synchronous charge
// outcome feeds back into.
type paymentApplier interface {
	MarkPaid(ctx context.Context, input orders.PaymentInput) error
	MarkPaymentFailed(ctx context.Context, input orders.PaymentInput) error
}

type userReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service opens orders: price snapshot, stock reservation, order number and
// pending order in one transaction, then the gateway call.
type Service interface {
	Checkout(ctx context.Context, input Input) (*Result, error)
}

type orderNumberFunc func(ctx context.Context, tx *gorm.DB, year int) (string, error)

type service struct {
	ordersRepo orders.Repository
	catalog    catalog.Repository
	history    history.Repository
	users      userReader
	payments   paymentApplier
	gateway    Gateway
	tx         txRunner
	outbox     outboxPublisher
	shipping   config.ShippingConfig
	numbers    orderNumberFunc
	logg       *logger.Logger
}

// NewService builds the checkout service with the required dependencies.
func NewService(
	ordersRepo orders.Repository,
	cat catalog.Repository,
	hist history.Repository,
	users userReader,
	payments paymentApplier,
	gateway Gateway,
	tx txRunner,
	ob outboxPublisher,
	shipping config.ShippingConfig,
	logg *logger.Logger,
) (Service, error) {
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if cat == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if hist == nil {
		return nil, fmt.Errorf("history repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user reader required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment applier required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		ordersRepo: ordersRepo,
		catalog:    cat,
		history:    hist,
		users:      users,
		payments:   payments,
		gateway:    gateway,
		tx:         tx,
		outbox:     ob,
		shipping:   shipping,
		numbers:    nextOrderNumber,
		logg:       logg,
	}, nil
}

func (s *service) Checkout(ctx context.Context, input Input) (*Result, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	lineItems, subtotal, err := s.snapshotPrices(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	shipping := s.shippingCost(subtotal)
	var discount, tax int64
	total := subtotal + shipping + tax - discount

	channel := input.Channel
	if channel == "" {
		channel = enums.ChannelWebsite
	}

	// both addresses are frozen snapshots; billing defaults to delivery
	billing := input.ShippingAddress
	if input.BillingAddress != nil {
		billing = *input.BillingAddress
	}

	order := &models.Order{
		UserID:          input.UserID,
		Channel:         channel,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		PaymentMethod:   input.PaymentMethod,
		SubtotalCents:   subtotal,
		ShippingCents:   shipping,
		TaxCents:        tax,
		DiscountCents:   discount,
		TotalCents:      total,
		ShippingAddress: input.ShippingAddress,
		BillingAddress:  billing,
		CouponCode:      nonEmptyPtr(input.CouponCode),
		CustomerNotes:   nonEmptyPtr(input.CustomerNotes),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		stock := s.catalog.WithTx(tx)
		for _, item := range lineItems {
			ok, err := stock.ReserveStock(ctx, *item.ProductID, item.Qty)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("insufficient stock for %s", item.SKU))
			}
		}

		number, err := s.numbers(ctx, tx, time.Now().UTC().Year())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order number")
		}
		order.OrderNumber = number

		repo := s.ordersRepo.WithTx(tx)
		if _, err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		for i := range lineItems {
			lineItems[i].OrderID = order.ID
		}
		if err := repo.CreateLineItems(ctx, lineItems); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create line items")
		}
		order.Items = lineItems

		toStatus := enums.OrderStatusPending
		entry := &models.OrderHistory{
			OrderID:     order.ID,
			EventType:   enums.OrderEventStatusChange,
			ToStatus:    &toStatus,
			EventStatus: enums.EventStatusSuccess,
			ActorUserID: &input.UserID,
			Description: "order created at checkout",
			Metadata:    mustJSON(map[string]any{"channel": channel, "total_cents": total}),
		}
		if err := s.history.WithTx(tx).AppendOrderEvent(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.UserID, Role: string(user.Role)},
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				Channel:     channel,
				TotalCents:  total,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	return s.collectPayment(ctx, order, user, input)
}

// collectPayment runs after the pending order is committed. A gateway
// timeout leaves the order pending for the reconciler; only an explicit
// decline fails the payment.
func (s *service) collectPayment(ctx context.Context, order *models.Order, user *models.User, input Input) (*Result, error) {
	result := &Result{Order: order, PaymentStatus: enums.PaymentStatusPending}
	payer := payerFromUser(user)
	reference := "order:" + order.ID.String()

	switch {
	case input.PaymentMethod == enums.PaymentMethodCreditCard && input.CardToken != "":
		payment, err := s.gateway.CreateCardCharge(ctx, mercadopago.PaymentRequest{
			AmountCents:       order.TotalCents,
			Description:       "Marc Aromas " + order.OrderNumber,
			ExternalReference: reference,
			CardToken:         input.CardToken,
			Installments:      input.Installments,
			Payer:             payer,
			IdempotencyKey:    order.OrderNumber,
		})
		if err != nil {
			return s.chargeFailed(ctx, order, result, err)
		}
		return s.applyCardOutcome(ctx, order, result, payment)

	case input.PaymentMethod == enums.PaymentMethodPix:
		payment, err := s.gateway.CreatePixCharge(ctx, mercadopago.PaymentRequest{
			AmountCents:       order.TotalCents,
			Description:       "Marc Aromas " + order.OrderNumber,
			ExternalReference: reference,
			Payer:             payer,
			IdempotencyKey:    order.OrderNumber,
		})
		if err != nil {
			return s.chargeFailed(ctx, order, result, err)
		}
		gatewayID := payment.GatewayID()
		if err := s.ordersRepo.Update(ctx, order.ID, map[string]any{"gateway_payment_id": gatewayID}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store gateway payment id")
		}
		order.GatewayPaymentID = &gatewayID
		result.PixQRCode = payment.QRCode
		result.PixQRCodeBase64 = payment.QRCodeBase64
		result.TicketURL = payment.TicketURL
		return result, nil

	default:
		preference, err := s.gateway.CreatePreference(ctx, mercadopago.PreferenceRequest{
			Items:             preferenceItems(order.Items),
			Payer:             payer,
			ExternalReference: reference,
			Metadata:          map[string]any{"order_number": order.OrderNumber},
		})
		if err != nil {
			return s.chargeFailed(ctx, order, result, err)
		}
		if err := s.ordersRepo.Update(ctx, order.ID, map[string]any{"gateway_preference_id": preference.ID}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store gateway preference id")
		}
		order.GatewayPreferenceID = &preference.ID
		result.PreferenceID = preference.ID
		result.InitPoint = preference.InitPoint
		return result, nil
	}
}

func (s *service) applyCardOutcome(ctx context.Context, order *models.Order, result *Result, payment *mercadopago.Payment) (*Result, error) {
	normalized, err := mercadopago.NormalizeStatus(payment.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "normalize gateway status")
	}
	gatewayID := payment.GatewayID()
	dedup := gatewayID + ":" + string(normalized)
	actor := orders.Actor{UserID: &order.UserID, Role: "customer"}

	switch normalized {
	case enums.PaymentStatusApproved:
		err = s.payments.MarkPaid(ctx, orders.PaymentInput{
			OrderID:          order.ID,
			GatewayPaymentID: gatewayID,
			DedupKey:         dedup,
			AmountCents:      payment.AmountCents,
			Actor:            actor,
		})
		if err != nil {
			return nil, err
		}
		order.Status = enums.OrderStatusPaid
		order.PaymentStatus = enums.PaymentStatusApproved
		result.PaymentStatus = enums.PaymentStatusApproved
		return result, nil

	case enums.PaymentStatusFailed:
		err = s.payments.MarkPaymentFailed(ctx, orders.PaymentInput{
			OrderID:          order.ID,
			GatewayPaymentID: gatewayID,
			DedupKey:         dedup,
			Reason:           payment.StatusDetail,
			Actor:            actor,
		})
		if err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeGatewayDecl,
			fmt.Sprintf("payment declined: %s", payment.StatusDetail))

	default:
		// in_process and friends settle through the webhook
		if err := s.ordersRepo.Update(ctx, order.ID, map[string]any{"gateway_payment_id": gatewayID}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store gateway payment id")
		}
		order.GatewayPaymentID = &gatewayID
		return result, nil
	}
}

// chargeFailed distinguishes an indeterminate gateway outcome from a hard
// failure. Timeouts keep the order pending; the customer retries after the
// reconciler learns the real outcome.
func (s *service) chargeFailed(ctx context.Context, order *models.Order, result *Result, err error) (*Result, error) {
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeGatewayTime {
		if s.logg != nil {
			logCtx := s.logg.WithOrderID(ctx, order.ID.String())
			s.logg.Warn(logCtx, "gateway timed out at checkout, order left pending")
		}
		return result, nil
	}
	return nil, err
}

func (s *service) snapshotPrices(ctx context.Context, items []ItemInput) ([]models.OrderLineItem, int64, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.catalog.FindProducts(ctx, ids)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	var subtotal int64
	lineItems := make([]models.OrderLineItem, 0, len(items))
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok || !product.IsActive {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("product %s is not available", item.ProductID))
		}
		lineTotal := product.PriceCents * int64(item.Qty)
		subtotal += lineTotal
		productID := product.ID
		scent := product.Scent
		lineItems = append(lineItems, models.OrderLineItem{
			ProductID:      &productID,
			Name:           product.Name,
			SKU:            product.SKU,
			Scent:          &scent,
			UnitPriceCents: product.PriceCents,
			Qty:            item.Qty,
			TotalCents:     lineTotal,
		})
	}
	return lineItems, subtotal, nil
}

func (s *service) shippingCost(subtotal int64) int64 {
	if s.shipping.FreeThresholdCents > 0 && subtotal >= s.shipping.FreeThresholdCents {
		return 0
	}
	return s.shipping.FlatRateCents
}

func validateInput(input Input) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout requires at least one item")
	}
	seen := make(map[uuid.UUID]bool, len(input.Items))
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "item product id required")
		}
		if item.Qty <= 0 || item.Qty > maxQtyPerItem {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("item quantity must be between 1 and %d", maxQtyPerItem))
		}
		if seen[item.ProductID] {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in cart")
		}
		seen[item.ProductID] = true
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if strings.TrimSpace(input.ShippingAddress.Street) == "" ||
		strings.TrimSpace(input.ShippingAddress.City) == "" ||
		strings.TrimSpace(input.ShippingAddress.PostalCode) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address incomplete")
	}
	return nil
}

func payerFromUser(user *models.User) mercadopago.Payer {
	payer := mercadopago.Payer{
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
	if user.Document != nil {
		payer.DocumentType = documentType(*user.Document)
		payer.Document = *user.Document
	}
	return payer
}

// documentType tells CPF from CNPJ by digit count.
func documentType(document string) string {
	digits := 0
	for _, r := range document {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits > 11 {
		return "CNPJ"
	}
	return "CPF"
}

func preferenceItems(lineItems []models.OrderLineItem) []mercadopago.PreferenceItem {
	items := make([]mercadopago.PreferenceItem, 0, len(lineItems))
	for _, item := range lineItems {
		items = append(items, mercadopago.PreferenceItem{
			Title:          item.Name,
			Quantity:       item.Qty,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	return items
}

func nonEmptyPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func mustJSON(payload map[string]any) json.RawMessage {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return raw
}
