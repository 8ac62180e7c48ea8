package services

import (
	"context"
	"testing"
	"time"

	"github.com/nithinycr7/discipline-ai-health-prod-sub001/domain"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/mocks"
	"go.uber.org/zap"
)

const (
	testPhone      = "+919876543210"
	testEmail      = "admin@citycare.in"
	testPassword   = "correct-horse"
	testFirebaseID = "firebase-uid-1"
)

// authFixture bundles an AuthServiceImpl with the mocks behind it.
type authFixture struct {
	svc       *AuthServiceImpl
	users     *mocks.MockUserRepository
	passwords *mocks.MockPasswordService
	tokens    *mocks.MockTokenService
	verifier  *mocks.MockIdentityVerifier
	ledger    *mocks.MockRefreshTokenLedger
	sms       *mocks.MockNotificationService
	audit     *mocks.MockAuditLogger
}

// newAuthFixture creates an AuthService with mock dependencies for testing
func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	f := &authFixture{
		users:     mocks.NewMockUserRepository(),
		passwords: mocks.NewMockPasswordService(),
		tokens:    mocks.NewMockTokenService(),
		verifier:  mocks.NewMockIdentityVerifier(nil),
		ledger:    mocks.NewMockRefreshTokenLedger(),
		sms:       mocks.NewMockNotificationService(),
		audit:     mocks.NewMockAuditLogger(),
	}
	f.svc = NewAuthService(
		f.users,
		f.passwords,
		f.tokens,
		mocks.NewMockIdentityVerifierRegistry(f.verifier),
		f.ledger,
		f.sms,
		f.audit,
		zap.NewNop(),
		WithWelcomeMessage(func(name string) string { return "Welcome " + name }),
	)
	return f
}

// createPayer creates a phone-only payer entity for testing
func createPayer(t *testing.T) *domain.User {
	t.Helper()

	return &domain.User{
		ID:                      "payer-1",
		Phone:                   testPhone,
		Name:                    "Ravi Kumar",
		Role:                    domain.RolePayer,
		Timezone:                domain.DefaultTimezone,
		AuthProvider:            domain.ProviderPhone,
		Tag:                     domain.TagTest,
		NotificationPreferences: domain.DefaultNotificationPreferences(),
		CreatedAt:               time.Now().Add(-24 * time.Hour),
		UpdatedAt:               time.Now().Add(-1 * time.Hour),
	}
}

// createHospitalAdmin creates a hospital admin entity for testing
func createHospitalAdmin(t *testing.T) *domain.User {
	t.Helper()

	return &domain.User{
		ID:           "admin-1",
		Email:        testEmail,
		Name:         "Dr. Mehta",
		Role:         domain.RoleHospitalAdmin,
		HospitalName: "City Care",
		Timezone:     domain.DefaultTimezone,
		AuthProvider: domain.ProviderEmail,
	}
}

// withPhoneUser makes FindByPhone return a copy of user for its exact phone.
func withPhoneUser(users *mocks.MockUserRepository, user *domain.User) {
	users.FindByPhoneFunc = func(ctx context.Context, phone string) (*domain.User, error) {
		if phone == user.Phone {
			u := *user
			return &u, nil
		}
		return nil, domain.ErrUserNotFound
	}
}

// withEmailUser makes FindByEmail and FindCredentialsByEmail serve user.
func withEmailUser(users *mocks.MockUserRepository, user *domain.User, hash string) {
	users.FindByEmailFunc = func(ctx context.Context, email string) (*domain.User, error) {
		if email == user.Email {
			u := *user
			return &u, nil
		}
		return nil, domain.ErrUserNotFound
	}
	users.FindCredentialsByEmailFunc = func(ctx context.Context, email string) (*domain.Credentials, error) {
		if email == user.Email {
			return &domain.Credentials{User: *user, PasswordHash: hash}, nil
		}
		return nil, domain.ErrUserNotFound
	}
}

// withIDUser makes FindByID return a copy of user.
func withIDUser(users *mocks.MockUserRepository, user *domain.User) {
	users.FindByIDFunc = func(ctx context.Context, id string) (*domain.User, error) {
		if id == user.ID {
			u := *user
			return &u, nil
		}
		return nil, domain.ErrUserNotFound
	}
}

// requireAuthError asserts err is an *AuthError of kind with message msg.
func requireAuthError(t *testing.T, err error, kind domain.ErrorKind, msg string) {
	t.Helper()

	ae, ok := err.(*domain.AuthError)
	if !ok {
		t.Fatalf("expected *domain.AuthError, got %T (%v)", err, err)
	}
	if ae.Kind != kind {
		t.Errorf("expected kind %q, got %q", kind, ae.Kind)
	}
	if ae.Message != msg {
		t.Errorf("expected message %q, got %q", msg, ae.Message)
	}
}
