package checkout

import (
	"context"
	"testing"
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
	"github.com/marcaromas/marcaromas-backend/pkg/mercadopago"
	"github.com/marcaromas/marcaromas-backend/pkg/outbox"
	"github.com/marcaromas/marcaromas-backend/pkg/pagination"
	"github.com/marcaromas/marcaromas-backend/pkg/types"
)

type stubOrdersRepo struct {
	created   *models.Order
	lineItems []models.OrderLineItem
	updates   map[string]any
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	order.ID = uuid.New()
	s.created = order
	return order, nil
}

func (s *stubOrdersRepo) CreateLineItems(ctx context.Context, items []models.OrderLineItem) error {
	s.lineItems = items
	return nil
}

func (s *stubOrdersRepo) Find(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) List(ctx context.Context, params pagination.Params, filters orders.ListFilters) (*orders.List, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters orders.ListFilters) (*orders.List, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) UpdateStatusIfCurrent(ctx context.Context, orderID uuid.UUID, expected, next enums.OrderStatus, updates map[string]any) (bool, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	s.updates = updates
	return nil
}

type stubCatalog struct {
	products     map[uuid.UUID]models.Product
	outOfStock   map[uuid.UUID]bool
	reservations map[uuid.UUID]int
}

func (s *stubCatalog) WithTx(tx *gorm.DB) catalog.Repository { return s }

func (s *stubCatalog) FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	panic("not implemented")
}

func (s *stubCatalog) FindProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	panic("not implemented")
}

func (s *stubCatalog) FindProducts(ctx context.Context, productIDs []uuid.UUID) ([]models.Product, error) {
	var out []models.Product
	for _, id := range productIDs {
		if product, ok := s.products[id]; ok {
			out = append(out, product)
		}
	}
	return out, nil
}

func (s *stubCatalog) ListProducts(ctx context.Context, params pagination.Params, filters catalog.ProductFilters) (*catalog.ProductList, error) {
	panic("not implemented")
}

func (s *stubCatalog) ReserveStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	if s.outOfStock[productID] {
		return false, nil
	}
	if s.reservations == nil {
		s.reservations = map[uuid.UUID]int{}
	}
	s.reservations[productID] += qty
	return true, nil
}

func (s *stubCatalog) ReleaseStock(ctx context.Context, productID uuid.UUID, qty int) error {
	panic("not implemented")
}

func (s *stubCatalog) FindPlan(ctx context.Context, planID uuid.UUID) (*models.Plan, error) {
	panic("not implemented")
}

func (s *stubCatalog) FindPlanBySlug(ctx context.Context, slug string) (*models.Plan, error) {
	panic("not implemented")
}

func (s *stubCatalog) ListPlans(ctx context.Context, activeOnly bool) ([]models.Plan, error) {
	panic("not implemented")
}

type stubHistory struct {
	orderEntries []models.OrderHistory
}

func (s *stubHistory) WithTx(tx *gorm.DB) history.Repository { return s }

func (s *stubHistory) AppendOrderEvent(ctx context.Context, entry *models.OrderHistory) error {
	s.orderEntries = append(s.orderEntries, *entry)
	return nil
}

func (s *stubHistory) AppendSubscriptionEvent(ctx context.Context, entry *models.SubscriptionHistory) error {
	panic("not implemented")
}

func (s *stubHistory) ListOrderEvents(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error) {
	return s.orderEntries, nil
}

func (s *stubHistory) ListSubscriptionEvents(ctx context.Context, subscriptionID uuid.UUID) ([]models.SubscriptionHistory, error) {
	panic("not implemented")
}

func (s *stubHistory) OrderEventExistsByDedupKey(ctx context.Context, dedupKey string) (bool, error) {
	panic("not implemented")
}

func (s *stubHistory) SubscriptionEventExistsByDedupKey(ctx context.Context, dedupKey string) (bool, error) {
	panic("not implemented")
}

type stubUsers struct {
	user *models.User
}

func (s *stubUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

type stubPayments struct {
	paidInputs   []orders.PaymentInput
	failedInputs []orders.PaymentInput
}

func (s *stubPayments) MarkPaid(ctx context.Context, input orders.PaymentInput) error {
	s.paidInputs = append(s.paidInputs, input)
	return nil
}

func (s *stubPayments) MarkPaymentFailed(ctx context.Context, input orders.PaymentInput) error {
	s.failedInputs = append(s.failedInputs, input)
	return nil
}

type stubGateway struct {
	payment       *mercadopago.Payment
	preference    *mercadopago.Preference
	err           error
	cardCalls     int
	pixCalls      int
	prefCalls     int
	lastReference string
}

func (s *stubGateway) CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error) {
	s.prefCalls++
	s.lastReference = req.ExternalReference
	return s.preference, s.err
}

func (s *stubGateway) CreateCardCharge(ctx context.Context, req mercadopago.PaymentRequest) (*mercadopago.Payment, error) {
	s.cardCalls++
	s.lastReference = req.ExternalReference
	return s.payment, s.err
}

func (s *stubGateway) CreatePixCharge(ctx context.Context, req mercadopago.PaymentRequest) (*mercadopago.Payment, error) {
	s.pixCalls++
	s.lastReference = req.ExternalReference
	return s.payment, s.err
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type fixture struct {
	ordersRepo *stubOrdersRepo
	catalog    *stubCatalog
	history    *stubHistory
	users      *stubUsers
	payments   *stubPayments
	gateway    *stubGateway
	outbox     *stubOutbox
	svc        Service
}

func newFixture(t *testing.T, gateway *stubGateway, shipping config.ShippingConfig) *fixture {
	t.Helper()
	product := models.Product{
		ID:         uuid.New(),
		SKU:        "CND-LAV-180",
		Name:       "Vela Lavanda",
		Scent:      "lavanda",
		PriceCents: 5000,
		StockQty:   10,
		IsActive:   true,
	}
	f := &fixture{
		ordersRepo: &stubOrdersRepo{},
		catalog:    &stubCatalog{products: map[uuid.UUID]models.Product{product.ID: product}},
		history:    &stubHistory{},
		users: &stubUsers{user: &models.User{
			ID:        uuid.New(),
			Email:     "ana@example.com",
			FirstName: "Ana",
			LastName:  "Silva",
			Role:      enums.UserRoleCustomer,
		}},
		payments: &stubPayments{},
		gateway:  gateway,
		outbox:   &stubOutbox{},
	}
	svc, err := NewService(f.ordersRepo, f.catalog, f.history, f.users, f.payments, f.gateway, stubTx{}, f.outbox, shipping, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	svc.(*service).numbers = func(ctx context.Context, tx *gorm.DB, year int) (string, error) {
		return "ORD-2026-000042", nil
	}
	f.svc = svc
	return f
}

func (f *fixture) productID() uuid.UUID {
	for id := range f.catalog.products {
		return id
	}
	return uuid.Nil
}

func checkoutAddress() types.Address {
	return types.Address{
		Street:       "Rua Augusta",
		Number:       "900",
		Neighborhood: "Consolacao",
		City:         "Sao Paulo",
		State:        "SP",
		PostalCode:   "01304-001",
		Country:      "BR",
	}
}

func TestCheckoutPixCreatesPendingOrder(t *testing.T) {
	gateway := &stubGateway{payment: &mercadopago.Payment{
		ID:           444001,
		Status:       "pending",
		QRCode:       "00020126pixpayload",
		QRCodeBase64: "cGl4",
		TicketURL:    "https://mp.example/ticket",
	}}
	f := newFixture(t, gateway, config.ShippingConfig{FlatRateCents: 1990})

	result, err := f.svc.Checkout(context.Background(), Input{
		UserID:          f.users.user.ID,
		Items:           []ItemInput{{ProductID: f.productID(), Qty: 2}},
		ShippingAddress: checkoutAddress(),
		PaymentMethod:   enums.PaymentMethodPix,
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	order := f.ordersRepo.created
	if order == nil || order.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending order, got %+v", order)
	}
	if order.SubtotalCents != 10000 || order.ShippingCents != 1990 || order.TotalCents != 11990 {
		t.Fatalf("unexpected totals: subtotal=%d shipping=%d total=%d",
			order.SubtotalCents, order.ShippingCents, order.TotalCents)
	}
	if len(f.ordersRepo.lineItems) != 1 || f.ordersRepo.lineItems[0].UnitPriceCents != 5000 {
		t.Fatalf("expected price snapshot on line items, got %+v", f.ordersRepo.lineItems)
	}
	if gateway.pixCalls != 1 || gateway.lastReference != "order:"+order.ID.String() {
		t.Fatalf("expected pix charge referencing the order, got %+v", gateway)
	}
	if result.PixQRCode == "" || result.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("expected pending result with QR payload, got %+v", result)
	}
	if order.BillingAddress != checkoutAddress() {
		t.Fatalf("billing address should default to the delivery snapshot, got %+v", order.BillingAddress)
	}
	if f.ordersRepo.updates["gateway_payment_id"] != "444001" {
		t.Fatalf("expected gateway payment id stored, got %v", f.ordersRepo.updates)
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventOrderCreated {
		t.Fatalf("expected order_created outbox event, got %+v", f.outbox.events)
	}
	if len(f.history.orderEntries) != 1 {
		t.Fatalf("expected one ledger entry, got %+v", f.history.orderEntries)
	}
}

func TestCheckoutFreeShippingOverThreshold(t *testing.T) {
	gateway := &stubGateway{payment: &mercadopago.Payment{ID: 444002, Status: "pending"}}
	f := newFixture(t, gateway, config.ShippingConfig{FlatRateCents: 1990, FreeThresholdCents: 25000})

	_, err := f.svc.Checkout(context.Background(), Input{
		UserID:          f.users.user.ID,
		Items:           []ItemInput{{ProductID: f.productID(), Qty: 6}},
		ShippingAddress: checkoutAddress(),
		PaymentMethod:   enums.PaymentMethodPix,
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	order := f.ordersRepo.created
	if order.ShippingCents != 0 || order.TotalCents != 30000 {
		t.Fatalf("expected free shipping at 30000 subtotal, got shipping=%d total=%d",
			order.ShippingCents, order.TotalCents)
	}
}

func TestCheckoutInsufficientStock(t *testing.T) {
	gateway := &stubGateway{}
	f := newFixture(t, gateway, config.ShippingConfig{FlatRateCents: 1990})
	f.catalog.outOfStock = map[uuid.UUID]bool{f.productID(): true}

	_, err := f.svc.Checkout(context.Background(), Input{
		UserID:          f.users.user.ID,
		Items:           []ItemInput{{ProductID: f.productID(), Qty: 1}},
		ShippingAddress: checkoutAddress(),
		PaymentMethod:   enums.PaymentMethodPix,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
	if gateway.pixCalls != 0 {
		t.Fatalf("expected no gateway call when stock reservation fails")
	}
}

func TestCheckoutCardApprovedMarksPaid(t *testing.T) {
	gateway := &stubGateway{payment: &mercadopago.Payment{ID: 444003, Status: "approved", AmountCents: 6990}}
	f := newFixture(t, gateway, config.ShippingConfig{FlatRateCents: 1990})

	result, err := f.svc.Checkout(context.Background(), Input{
		UserID:          f.users.user.ID,
		Items:           []ItemInput{{ProductID: f.productID(), Qty: 1}},
		ShippingAddress: checkoutAddress(),
		PaymentMethod:   enums.PaymentMethodCreditCard,
		CardToken:       "tok_abc123",
		Installments:    3,
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if len(f.payments.paidInputs) != 1 {
		t.Fatalf("expected MarkPaid call, got %+v", f.payments)
	}
	paid := f.payments.paidInputs[0]
	if paid.GatewayPaymentID != "444003" || paid.DedupKey != "444003:approved" {
		t.Fatalf("unexpected payment input %+v", paid)
	}
	if result.PaymentStatus != enums.PaymentStatusApproved {
		t.Fatalf("expected approved result, got %s", result.PaymentStatus)
	}
}

func TestCheckoutCardDeclined(t *testing.T) {
	gateway := &stubGateway{payment: &mercadopago.Payment{ID: 444004, Status: "rejected", StatusDetail: "cc_rejected_insufficient_amount"}}
	f := newFixture(t, gateway, config.ShippingConfig{FlatRateCents: 1990})

	_, err := f.svc.Checkout(context.Background(), Input{
		UserID:          f.users.user.ID,
		Items:           []ItemInput{{ProductID: f.productID(), Qty: 1}},
		ShippingAddress: checkoutAddress(),
		PaymentMethod:   enums.PaymentMethodCreditCard,
		CardToken:       "tok_abc123",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeGatewayDecl {
		t.Fatalf("expected GATEWAY_DECLINED, got %v", err)
	}
	if len(f.payments.failedInputs) != 1 {
		t.Fatalf("expected MarkPaymentFailed call, got %+v", f.payments)
	}
}

func TestCheckoutGatewayTimeoutLeavesPending(t *testing.T) {
	gateway := &stubGateway{err: pkgerrors.New(pkgerrors.CodeGatewayTime, "gateway timed out")}
	f := newFixture(t, gateway, config.ShippingConfig{FlatRateCents: 1990})

	result, err := f.svc.Checkout(context.Background(), Input{
		UserID:          f.users.user.ID,
		Items:           []ItemInput{{ProductID: f.productID(), Qty: 1}},
		ShippingAddress: checkoutAddress(),
		PaymentMethod:   enums.PaymentMethodCreditCard,
		CardToken:       "tok_abc123",
	})
	if err != nil {
		t.Fatalf("expected timeout to leave the order pending, got %v", err)
	}
	if result.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("expected pending result after timeout, got %s", result.PaymentStatus)
	}
	if len(f.payments.failedInputs) != 0 {
		t.Fatalf("timeout must not be treated as a decline")
	}
}

func TestCheckoutHostedPreferenceWithoutCardToken(t *testing.T) {
	gateway := &stubGateway{preference: &mercadopago.Preference{ID: "pref-1", InitPoint: "https://mp.example/init"}}
	f := newFixture(t, gateway, config.ShippingConfig{FlatRateCents: 1990})

	result, err := f.svc.Checkout(context.Background(), Input{
		UserID:          f.users.user.ID,
		Items:           []ItemInput{{ProductID: f.productID(), Qty: 1}},
		ShippingAddress: checkoutAddress(),
		PaymentMethod:   enums.PaymentMethodCreditCard,
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if gateway.prefCalls != 1 || result.InitPoint == "" {
		t.Fatalf("expected hosted checkout preference, got %+v", result)
	}
	if f.ordersRepo.updates["gateway_preference_id"] != "pref-1" {
		t.Fatalf("expected preference id stored, got %v", f.ordersRepo.updates)
	}
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	f := newFixture(t, &stubGateway{}, config.ShippingConfig{})

	_, err := f.svc.Checkout(context.Background(), Input{
		UserID:          f.users.user.ID,
		ShippingAddress: checkoutAddress(),
		PaymentMethod:   enums.PaymentMethodPix,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}
