package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marcaromas/marcaromas-backend/internal/users"
	"github.com/marcaromas/marcaromas-backend/pkg/config"
	"github.com/marcaromas/marcaromas-backend/pkg/db/models"
	"github.com/marcaromas/marcaromas-backend/pkg/enums"
	pkgerrors "github.com/marcaromas/marcaromas-backend/pkg/errors"
	"github.com/marcaromas/marcaromas-backend/pkg/security"
	"github.com/marcaromas/marcaromas-backend/pkg/types"
)

type stubTxRunner struct{}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRegisterUserRepo struct {
	data    map[string]*models.User
	created *models.User
}

func newStubRegisterUserRepo() *stubRegisterUserRepo {
	return &stubRegisterUserRepo{data: map[string]*models.User{}}
}

func (s *stubRegisterUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.data[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRegisterUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	user.ID = uuid.New()
	s.data[dto.Email] = user
	s.created = user
	return user, nil
}

func (s *stubRegisterUserRepo) UpdateDefaultAddress(ctx context.Context, id uuid.UUID, address types.Address) error {
	for _, user := range s.data {
		if user.ID == id {
			addr := address
			user.DefaultAddress = &addr
		}
	}
	return nil
}

func newRegisterTestService(t *testing.T) (RegisterService, *stubRegisterUserRepo) {
	t.Helper()
	repo := newStubRegisterUserRepo()
	svc, err := NewRegisterService(RegisterServiceParams{
		TxRunner: stubTxRunner{},
		UserRepoFactory: func(tx *gorm.DB) registerUserRepository {
			return repo
		},
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("new register service: %v", err)
	}
	return svc, repo
}

func sampleRegisterRequest(email string) RegisterRequest {
	return RegisterRequest{
		FirstName: "Mariana",
		LastName:  "Costa",
		Email:     email,
		Password:  "Cheiro-de-lavanda-1",
		Address: &types.Address{
			Street:       "Rua Augusta",
			Number:       "1500",
			Neighborhood: "Consolação",
			City:         "São Paulo",
			State:        "SP",
			PostalCode:   "01304-001",
			Country:      "BR",
		},
		AcceptTOS: true,
	}
}

func TestRegisterCreatesCustomer(t *testing.T) {
	svc, repo := newRegisterTestService(t)
	req := sampleRegisterRequest("mariana@example.com.br")

	dto, err := svc.Register(context.Background(), req)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if repo.created == nil {
		t.Fatalf("expected user to be created")
	}
	if repo.created.Role != enums.UserRoleCustomer {
		t.Fatalf("expected customer role, got %s", repo.created.Role)
	}
	if !repo.created.IsActive {
		t.Fatalf("expected new accounts to start active")
	}
	if repo.created.PasswordHash == req.Password {
		t.Fatalf("expected password to be hashed")
	}
	ok, err := security.VerifyPassword(req.Password, repo.created.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify: %v", err)
	}
	if dto.DefaultAddress == nil || dto.DefaultAddress.City != "São Paulo" {
		t.Fatalf("expected default address on response")
	}
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc, repo := newRegisterTestService(t)
	req := sampleRegisterRequest("  Mariana@Example.com.br ")

	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if repo.created.Email != "mariana@example.com.br" {
		t.Fatalf("expected normalized email, got %s", repo.created.Email)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, repo := newRegisterTestService(t)
	repo.data["mariana@example.com.br"] = &models.User{ID: uuid.New()}

	_, err := svc.Register(context.Background(), sampleRegisterRequest("mariana@example.com.br"))
	if err == nil {
		t.Fatalf("expected conflict for duplicate email")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _ := newRegisterTestService(t)
	req := sampleRegisterRequest("mariana@example.com.br")
	req.Password = "curta"

	_, err := svc.Register(context.Background(), req)
	if err == nil {
		t.Fatalf("expected validation error for short password")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRegisterRequiresTOS(t *testing.T) {
	svc, _ := newRegisterTestService(t)
	req := sampleRegisterRequest("mariana@example.com.br")
	req.AcceptTOS = false

	_, err := svc.Register(context.Background(), req)
	if err == nil {
		t.Fatalf("expected validation error without accept_tos")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
