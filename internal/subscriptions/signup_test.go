package subscriptions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marcaromas/marcaromas-backend/pkg/config"
	"github.com/marcaromas/marcaromas-backend/pkg/db/models"
	pkgerrors "github.com/marcaromas/marcaromas-backend/pkg/errors"
	"github.com/marcaromas/marcaromas-backend/pkg/mercadopago"
)

type stubUsers struct {
	user *models.User
}

func (s *stubUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.user
	return &copied, nil
}

type stubCharger struct {
	payment *mercadopago.Payment
	err     error
	request mercadopago.PaymentRequest
	calls   int
}

func (s *stubCharger) CreateCardCharge(ctx context.Context, req mercadopago.PaymentRequest) (*mercadopago.Payment, error) {
	s.calls++
	s.request = req
	if s.err != nil {
		return nil, s.err
	}
	return s.payment, nil
}

func newTestSignup(t *testing.T, plans *stubPlans, users *stubUsers, charger *stubCharger) (SignupService, *stubRepo, *stubHistory) {
	t.Helper()
	repo := &stubRepo{}
	hist := &stubHistory{}
	svc := newTestService(t, repo, hist, plans, &stubOutbox{}, config.BillingConfig{})
	signup, err := NewSignupService(plans, users, charger, svc, nil)
	if err != nil {
		t.Fatalf("NewSignupService: %v", err)
	}
	return signup, repo, hist
}

func newTestUser() *models.User {
	return &models.User{
		ID:        uuid.New(),
		Email:     "maria@example.com.br",
		FirstName: "Maria",
		LastName:  "Souza",
	}
}

func TestSignupChargesPlanPriceAndCreates(t *testing.T) {
	plans := &stubPlans{plan: newTestPlan()}
	users := &stubUsers{user: newTestUser()}
	charger := &stubCharger{payment: &mercadopago.Payment{ID: 9001, Status: "approved"}}
	signup, repo, _ := newTestSignup(t, plans, users, charger)

	sub, err := signup.Signup(context.Background(), SignupInput{
		UserID:    users.user.ID,
		PlanID:    plans.plan.ID,
		CardToken: "tok_abc",
	})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if charger.request.AmountCents != plans.plan.PriceCents+plans.plan.ShippingCents {
		t.Fatalf("expected charge of %d, got %d", plans.plan.PriceCents+plans.plan.ShippingCents, charger.request.AmountCents)
	}
	if charger.request.CardToken != "tok_abc" {
		t.Fatalf("expected the opaque token forwarded, got %q", charger.request.CardToken)
	}
	if charger.request.Payer.Email != users.user.Email {
		t.Fatalf("expected payer email %q, got %q", users.user.Email, charger.request.Payer.Email)
	}
	if repo.created == nil || sub.ID != repo.created.ID {
		t.Fatalf("expected subscription persisted")
	}
	if sub.CardToken == nil || *sub.CardToken != "tok_abc" {
		t.Fatalf("expected stored card token, got %+v", sub.CardToken)
	}
}

func TestSignupDeclinedChargeCreatesNothing(t *testing.T) {
	plans := &stubPlans{plan: newTestPlan()}
	users := &stubUsers{user: newTestUser()}
	charger := &stubCharger{payment: &mercadopago.Payment{ID: 9002, Status: "rejected", StatusDetail: "cc_rejected_insufficient_amount"}}
	signup, repo, _ := newTestSignup(t, plans, users, charger)

	_, err := signup.Signup(context.Background(), SignupInput{
		UserID:    users.user.ID,
		PlanID:    plans.plan.ID,
		CardToken: "tok_abc",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeGatewayDecl {
		t.Fatalf("expected GATEWAY_DECLINED, got %v", err)
	}
	if repo.created != nil {
		t.Fatalf("expected no subscription persisted after decline")
	}
}

func TestSignupPendingChargeIsRetryable(t *testing.T) {
	plans := &stubPlans{plan: newTestPlan()}
	users := &stubUsers{user: newTestUser()}
	charger := &stubCharger{payment: &mercadopago.Payment{ID: 9003, Status: "in_process"}}
	signup, repo, _ := newTestSignup(t, plans, users, charger)

	_, err := signup.Signup(context.Background(), SignupInput{
		UserID:    users.user.ID,
		PlanID:    plans.plan.ID,
		CardToken: "tok_abc",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeGatewayTime {
		t.Fatalf("expected GATEWAY_TIMEOUT, got %v", err)
	}
	if repo.created != nil {
		t.Fatalf("expected no subscription persisted while charge pending")
	}
}

func TestSignupRequiresCardToken(t *testing.T) {
	plans := &stubPlans{plan: newTestPlan()}
	users := &stubUsers{user: newTestUser()}
	charger := &stubCharger{}
	signup, _, _ := newTestSignup(t, plans, users, charger)

	_, err := signup.Signup(context.Background(), SignupInput{
		UserID: users.user.ID,
		PlanID: plans.plan.ID,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
	if charger.calls != 0 {
		t.Fatalf("expected no gateway call without a token")
	}
}

func TestSignupInactivePlanNeverReachesGateway(t *testing.T) {
	plan := newTestPlan()
	plan.IsActive = false
	plans := &stubPlans{plan: plan}
	users := &stubUsers{user: newTestUser()}
	charger := &stubCharger{}
	signup, _, _ := newTestSignup(t, plans, users, charger)

	_, err := signup.Signup(context.Background(), SignupInput{
		UserID:    users.user.ID,
		PlanID:    plan.ID,
		CardToken: "tok_abc",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
	if charger.calls != 0 {
		t.Fatalf("expected no gateway call for an inactive plan")
	}
}
