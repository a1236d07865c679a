package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/brandinbox/brandinbox-backend/pkg/auth"
	"github.com/brandinbox/brandinbox-backend/pkg/config"
	"github.com/brandinbox/brandinbox-backend/pkg/db/models"
	"github.com/brandinbox/brandinbox-backend/pkg/enums"
	pkgerrors "github.com/brandinbox/brandinbox-backend/pkg/errors"
	"github.com/brandinbox/brandinbox-backend/pkg/outbox"
	"github.com/brandinbox/brandinbox-backend/pkg/security"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type recordingOutbox struct {
	events []outbox.DomainEvent
}

func (r *recordingOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8 * 1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func newRegisterFixture(t *testing.T) (*stubUserRepository, *recordingOutbox, RegisterService) {
	t.Helper()
	repo := newStubUserRepository()
	events := &recordingOutbox{}
	svc, err := NewRegisterService(RegisterServiceParams{
		Tx:             stubTxRunner{},
		Users:          func(tx *gorm.DB) UserRepository { return repo },
		Outbox:         events,
		Sessions:       newStubSessions(),
		PasswordConfig: testPasswordConfig(),
		JWTConfig:      testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("build register service: %v", err)
	}
	return repo, events, svc
}

func TestRegister(t *testing.T) {
	repo, events, svc := newRegisterFixture(t)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Sam",
		LastName:  "Seller",
		Email:     " Seller@Example.com ",
		Password:  "mug-seller-secret",
		Phone:     strPtr("+15550100"),
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if repo.created == nil {
		t.Fatal("user must be persisted")
	}
	if repo.created.Email != "seller@example.com" {
		t.Fatalf("email must be normalized, got %q", repo.created.Email)
	}
	if repo.created.PasswordHash == "mug-seller-secret" {
		t.Fatal("password must not be stored in plaintext")
	}
	ok, err := security.VerifyPassword("mug-seller-secret", repo.created.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash must verify, ok=%v err=%v", ok, err)
	}
	if !repo.created.IsActive {
		t.Fatal("new accounts start active")
	}

	if len(events.events) != 1 {
		t.Fatalf("expected one event, got %d", len(events.events))
	}
	event := events.events[0]
	if event.EventType != enums.EventUserRegistered {
		t.Fatalf("unexpected event type %s", event.EventType)
	}
	if event.AggregateID != repo.created.ID.String() {
		t.Fatalf("event aggregate %s does not match user %s", event.AggregateID, repo.created.ID)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != repo.created.ID {
		t.Fatalf("token subject %s does not match user %s", claims.UserID, repo.created.ID)
	}
	if resp.User == nil || resp.User.Email != "seller@example.com" {
		t.Fatalf("unexpected user payload %+v", resp.User)
	}
	if resp.RefreshToken == "" {
		t.Fatal("registration must open a session")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo, events, svc := newRegisterFixture(t)
	repo.data["seller@example.com"] = &models.User{
		ID:       uuid.New(),
		Email:    "seller@example.com",
		IsActive: true,
	}

	_, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Sam",
		LastName:  "Seller",
		Email:     "seller@example.com",
		Password:  "mug-seller-secret",
	})

	var coded *pkgerrors.Error
	if !errors.As(err, &coded) {
		t.Fatalf("expected coded error, got %v", err)
	}
	if coded.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %s", coded.Code())
	}
	if len(events.events) != 0 {
		t.Fatalf("no event expected on duplicate email, got %d", len(events.events))
	}
}

func TestRegisterRequiresCredentials(t *testing.T) {
	_, _, svc := newRegisterFixture(t)

	cases := []struct {
		name string
		req  RegisterRequest
	}{
		{name: "missing email", req: RegisterRequest{Password: "mug-seller-secret"}},
		{name: "missing password", req: RegisterRequest{Email: "seller@example.com"}},
		{name: "blank password", req: RegisterRequest{Email: "seller@example.com", Password: "   "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.req)
			var coded *pkgerrors.Error
			if !errors.As(err, &coded) {
				t.Fatalf("expected coded error, got %v", err)
			}
			if coded.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %s", coded.Code())
			}
		})
	}
}
