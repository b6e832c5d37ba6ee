package subscriptions

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marcaromas/marcaromas-backend/pkg/db/models"
	"github.com/marcaromas/marcaromas-backend/pkg/enums"
	pkgerrors "github.com/marcaromas/marcaromas-backend/pkg/errors"
	"github.com/marcaromas/marcaromas-backend/pkg/logger"
	"github.com/marcaromas/marcaromas-backend/pkg/mercadopago"
	"github.com/marcaromas/marcaromas-backend/pkg/types"
)

type cardCharger interface {
	CreateCardCharge(ctx context.Context, req mercadopago.PaymentRequest) (*mercadopago.Payment, error)
}

type userReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// SignupInput captures a plan signup from the API. CardToken is the opaque
// gateway token; raw card data never reaches this layer.
type SignupInput struct {
	UserID          uuid.UUID
	PlanID          uuid.UUID
	CardToken       string
	ShippingAddress types.Address
	BillingAddress  *types.Address
	Preferences     models.SubscriptionPreferences
	ActorUserID     *uuid.UUID
	ActorRole       string
}

// SignupService charges the first cycle and opens the subscription.
// Subscriptions are born active, so the charge must settle synchronously.
type SignupService interface {
	Signup(ctx context.Context, input SignupInput) (*models.Subscription, error)
}

type signupService struct {
	plans   PlanReader
	users   userReader
	gateway cardCharger
	subs    Service
	logg    *logger.Logger
}

// NewSignupService wires the signup coordinator.
func NewSignupService(plans PlanReader, users userReader, gateway cardCharger, subs Service, logg *logger.Logger) (SignupService, error) {
	if plans == nil {
		return nil, fmt.Errorf("plan reader required")
	}
	if users == nil {
		return nil, fmt.Errorf("user reader required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if subs == nil {
		return nil, fmt.Errorf("subscriptions service required")
	}
	return &signupService{plans: plans, users: users, gateway: gateway, subs: subs, logg: logg}, nil
}

func (s *signupService) Signup(ctx context.Context, input SignupInput) (*models.Subscription, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.PlanID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id required")
	}
	if input.CardToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card token required")
	}

	plan, err := s.plans.FindPlan(ctx, input.PlanID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
	}
	if !plan.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan is no longer offered")
	}

	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	payment, err := s.gateway.CreateCardCharge(ctx, mercadopago.PaymentRequest{
		AmountCents:       plan.PriceCents + plan.ShippingCents,
		Description:       "Marc Aromas assinatura " + plan.Name,
		ExternalReference: fmt.Sprintf("signup:%s:%s", input.UserID, plan.ID),
		CardToken:         input.CardToken,
		Payer: mercadopago.Payer{
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
		},
		IdempotencyKey: "signup-" + uuid.NewString(),
	})
	if err != nil {
		return nil, err
	}

	normalized, err := mercadopago.NormalizeStatus(payment.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "normalize gateway status")
	}
	switch normalized {
	case enums.PaymentStatusApproved:
		// fall through to create
	case enums.PaymentStatusFailed:
		return nil, pkgerrors.New(pkgerrors.CodeGatewayDecl,
			fmt.Sprintf("first charge declined: %s", payment.StatusDetail))
	default:
		// a subscription is only born once the first charge settles; an
		// in_process outcome is surfaced to the customer as retryable
		if s.logg != nil {
			logCtx := s.logg.WithUserID(ctx, input.UserID.String())
			s.logg.Warn(logCtx, "signup charge left pending by gateway")
		}
		return nil, pkgerrors.New(pkgerrors.CodeGatewayTime, "first charge still pending, try again shortly")
	}

	token := input.CardToken
	return s.subs.Create(ctx, CreateInput{
		UserID:           input.UserID,
		PlanID:           plan.ID,
		CardToken:        &token,
		ShippingAddress:  input.ShippingAddress,
		BillingAddress:   input.BillingAddress,
		Preferences:      input.Preferences,
		GatewayPaymentID: payment.GatewayID(),
		ActorUserID:      input.ActorUserID,
		ActorRole:        input.ActorRole,
	})
}
