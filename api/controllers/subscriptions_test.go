package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/marcaromas/marcaromas-backend/internal/subscriptions"
	"github.com/marcaromas/marcaromas-backend/pkg/db/models"
	"github.com/marcaromas/marcaromas-backend/pkg/enums"
	pkgerrors "github.com/marcaromas/marcaromas-backend/pkg/errors"
	"github.com/marcaromas/marcaromas-backend/pkg/pagination"
)

type stubSubscriptionsService struct {
	sub          *models.Subscription
	timeline     []models.SubscriptionHistory
	pauseInput   subscriptions.PauseInput
	cancelInput  subscriptions.CancelInput
	addressInput subscriptions.UpdateAddressInput
	delivery     subscriptions.DeliveryInput
	err          error
}

func (s *stubSubscriptionsService) Get(ctx context.Context, subscriptionID uuid.UUID) (*models.Subscription, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.sub == nil || s.sub.ID != subscriptionID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	copied := *s.sub
	return &copied, nil
}

func (s *stubSubscriptionsService) Timeline(ctx context.Context, subscriptionID uuid.UUID) ([]models.SubscriptionHistory, error) {
	return s.timeline, s.err
}

func (s *stubSubscriptionsService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	if s.sub == nil {
		return nil, s.err
	}
	return []models.Subscription{*s.sub}, s.err
}

func (s *stubSubscriptionsService) List(ctx context.Context, params pagination.Params, status *enums.SubscriptionStatus) (*subscriptions.List, error) {
	panic("not implemented")
}

func (s *stubSubscriptionsService) Create(ctx context.Context, input subscriptions.CreateInput) (*models.Subscription, error) {
	panic("not implemented")
}

func (s *stubSubscriptionsService) Pause(ctx context.Context, input subscriptions.PauseInput) error {
	s.pauseInput = input
	return s.err
}

func (s *stubSubscriptionsService) Resume(ctx context.Context, input subscriptions.ResumeInput) error {
	return s.err
}

func (s *stubSubscriptionsService) Cancel(ctx context.Context, input subscriptions.CancelInput) error {
	s.cancelInput = input
	return s.err
}

func (s *stubSubscriptionsService) UpdateAddress(ctx context.Context, input subscriptions.UpdateAddressInput) error {
	s.addressInput = input
	return s.err
}

func (s *stubSubscriptionsService) ApplyBillingSuccess(ctx context.Context, input subscriptions.BillingSuccessInput) error {
	panic("not implemented")
}

func (s *stubSubscriptionsService) ApplyBillingFailure(ctx context.Context, input subscriptions.BillingFailureInput) error {
	panic("not implemented")
}

func (s *stubSubscriptionsService) RecordDelivery(ctx context.Context, input subscriptions.DeliveryInput) error {
	s.delivery = input
	return s.err
}

type stubSignupService struct {
	input subscriptions.SignupInput
	sub   *models.Subscription
	err   error
}

func (s *stubSignupService) Signup(ctx context.Context, input subscriptions.SignupInput) (*models.Subscription, error) {
	s.input = input
	return s.sub, s.err
}

func newActiveSubscription(userID uuid.UUID) *models.Subscription {
	return &models.Subscription{
		ID:         uuid.New(),
		UserID:     userID,
		PlanID:     uuid.New(),
		Status:     enums.SubscriptionStatusActive,
		Cadence:    enums.BillingCadenceMonthly,
		PriceCents: 8990,
	}
}

func withSubscriptionID(req *http.Request, subscriptionID uuid.UUID) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("subscriptionId", subscriptionID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestSubscribeCreatesAndReturns201(t *testing.T) {
	userID := uuid.New()
	signup := &stubSignupService{sub: newActiveSubscription(userID)}
	handler := Subscribe(signup, nil)

	body := `{"plan_id":"` + signup.sub.PlanID.String() + `","card_token":"tok_abc","shipping_address":{"street":"Rua Harmonia","number":"123","neighborhood":"Vila Madalena","city":"Sao Paulo","state":"SP","postal_code":"05435-000","country":"BR"}}`
	req := authedRequest(http.MethodPost, "/subscriptions", body, userID, "customer")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if signup.input.UserID != userID {
		t.Fatalf("expected authed user forwarded, got %s", signup.input.UserID)
	}
	if signup.input.CardToken != "tok_abc" {
		t.Fatalf("expected card token forwarded, got %q", signup.input.CardToken)
	}
}

func TestSubscribeRequiresCardToken(t *testing.T) {
	signup := &stubSignupService{}
	handler := Subscribe(signup, nil)

	body := `{"plan_id":"` + uuid.NewString() + `","shipping_address":{"street":"Rua Harmonia","number":"123","neighborhood":"Vila Madalena","city":"Sao Paulo","state":"SP","postal_code":"05435-000","country":"BR"}}`
	req := authedRequest(http.MethodPost, "/subscriptions", body, uuid.New(), "customer")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without card token, got %d", rec.Code)
	}
}

func TestSubscriptionDetailHidesForeignSubscription(t *testing.T) {
	svc := &stubSubscriptionsService{sub: newActiveSubscription(uuid.New())}
	handler := SubscriptionDetail(svc, nil)

	req := withSubscriptionID(authedRequest(http.MethodGet, "/subscriptions/x", "", uuid.New(), "customer"), svc.sub.ID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another customer's subscription, got %d", rec.Code)
	}
}

func TestPauseSubscriptionActsAsOwner(t *testing.T) {
	userID := uuid.New()
	svc := &stubSubscriptionsService{sub: newActiveSubscription(userID)}
	handler := PauseSubscription(svc, nil)

	req := withSubscriptionID(authedRequest(http.MethodPost, "/subscriptions/x/pause", "", userID, "customer"), svc.sub.ID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.pauseInput.SubscriptionID != svc.sub.ID {
		t.Fatalf("expected pause on %s, got %s", svc.sub.ID, svc.pauseInput.SubscriptionID)
	}
	if svc.pauseInput.ActorUserID == nil || *svc.pauseInput.ActorUserID != userID {
		t.Fatalf("expected customer actor, got %+v", svc.pauseInput.ActorUserID)
	}
}

func TestUpdateSubscriptionAddressForwardsOwnerChange(t *testing.T) {
	userID := uuid.New()
	svc := &stubSubscriptionsService{sub: newActiveSubscription(userID)}
	handler := UpdateSubscriptionAddress(svc, nil)

	body := `{"shipping_address":{"street":"Rua Nova","number":"45","neighborhood":"Centro","city":"Curitiba","state":"PR","postal_code":"80010-000","country":"BR"}}`
	req := withSubscriptionID(authedRequest(http.MethodPut, "/subscriptions/x/address", body, userID, "customer"), svc.sub.ID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.addressInput.SubscriptionID != svc.sub.ID {
		t.Fatalf("expected update on %s, got %s", svc.sub.ID, svc.addressInput.SubscriptionID)
	}
	if svc.addressInput.ShippingAddress == nil || svc.addressInput.ShippingAddress.City != "Curitiba" {
		t.Fatalf("expected the new delivery address forwarded, got %+v", svc.addressInput.ShippingAddress)
	}
	if svc.addressInput.BillingAddress != nil {
		t.Fatalf("billing address was not in the request")
	}
}

func TestCancelSubscriptionRequiresReason(t *testing.T) {
	userID := uuid.New()
	svc := &stubSubscriptionsService{sub: newActiveSubscription(userID)}
	handler := CancelSubscription(svc, nil)

	req := withSubscriptionID(authedRequest(http.MethodPost, "/subscriptions/x/cancel", `{}`, userID, "customer"), svc.sub.ID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a reason, got %d", rec.Code)
	}
}

func TestAdminRecordDeliveryForwardsOrder(t *testing.T) {
	adminID := uuid.New()
	svc := &stubSubscriptionsService{sub: newActiveSubscription(uuid.New())}
	handler := AdminRecordDelivery(svc, nil)

	orderID := uuid.New()
	body := `{"order_id":"` + orderID.String() + `"}`
	req := withSubscriptionID(authedRequest(http.MethodPost, "/admin/subscriptions/x/deliveries", body, adminID, "admin"), svc.sub.ID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.delivery.OrderID != orderID {
		t.Fatalf("expected order %s forwarded, got %s", orderID, svc.delivery.OrderID)
	}
	if svc.delivery.ActorRole != "admin" {
		t.Fatalf("expected admin actor role, got %q", svc.delivery.ActorRole)
	}
}
