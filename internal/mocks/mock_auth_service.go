package mocks

import (
	"context"

	"github.com/nithinycr7/discipline-ai-health-prod-sub001/domain"
)

// MockAuthService implements domain.AuthService interface for testing
type MockAuthService struct {
	RegisterPayerFunc       func(ctx context.Context, req domain.PayerRegistration) (*domain.Session, error)
	RegisterHospitalFunc    func(ctx context.Context, req domain.HospitalRegistration) (*domain.Session, error)
	LoginFunc               func(ctx context.Context, identifier, password string) (*domain.Session, error)
	VerifyPhoneIdentityFunc func(ctx context.Context, req domain.ExternalLogin) (domain.ExternalAuthOutcome, error)
	SocialLoginFunc         func(ctx context.Context, provider domain.AuthProvider, req domain.ExternalLogin) (domain.ExternalAuthOutcome, error)
	RefreshTokenFunc        func(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	GetCurrentUserFunc      func(ctx context.Context, userID string) (*domain.User, error)
}

// NewMockAuthService creates a new MockAuthService with default behaviors
func NewMockAuthService() *MockAuthService {
	return &MockAuthService{}
}

// MockSession builds a session for user with fixed tokens.
func MockSession(user *domain.User) *domain.Session {
	return &domain.Session{
		User: user,
		Tokens: &domain.TokenPair{
			AccessToken:  "mock_access_token",
			RefreshToken: "mock_refresh_token",
			ExpiresIn:    900,
		},
	}
}

// RegisterPayer registers a payer
func (m *MockAuthService) RegisterPayer(ctx context.Context, req domain.PayerRegistration) (*domain.Session, error) {
	if m.RegisterPayerFunc != nil {
		return m.RegisterPayerFunc(ctx, req)
	}
	return MockSession(&domain.User{ID: "user-1", Phone: req.Phone, Name: req.Name, Role: domain.RolePayer}), nil
}

// RegisterHospital registers a hospital admin
func (m *MockAuthService) RegisterHospital(ctx context.Context, req domain.HospitalRegistration) (*domain.Session, error) {
	if m.RegisterHospitalFunc != nil {
		return m.RegisterHospitalFunc(ctx, req)
	}
	return MockSession(&domain.User{ID: "user-2", Email: req.Email, Name: req.AdminName, Role: domain.RoleHospitalAdmin}), nil
}

// Login authenticates by phone or email
func (m *MockAuthService) Login(ctx context.Context, identifier, password string) (*domain.Session, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, identifier, password)
	}
	return nil, domain.NewUnauthorizedError(domain.MsgInvalidCredentials, nil)
}

// VerifyPhoneIdentity completes a phone OTP sign-in
func (m *MockAuthService) VerifyPhoneIdentity(ctx context.Context, req domain.ExternalLogin) (domain.ExternalAuthOutcome, error) {
	if m.VerifyPhoneIdentityFunc != nil {
		return m.VerifyPhoneIdentityFunc(ctx, req)
	}
	return nil, domain.NewUnauthorizedError(domain.MsgInvalidIdentityToken, nil)
}

// SocialLogin completes a Google or Apple sign-in
func (m *MockAuthService) SocialLogin(ctx context.Context, provider domain.AuthProvider, req domain.ExternalLogin) (domain.ExternalAuthOutcome, error) {
	if m.SocialLoginFunc != nil {
		return m.SocialLoginFunc(ctx, provider, req)
	}
	return nil, domain.NewUnauthorizedError(domain.MsgInvalidIdentityToken, nil)
}

// RefreshToken exchanges a refresh token for a new pair
func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if m.RefreshTokenFunc != nil {
		return m.RefreshTokenFunc(ctx, refreshToken)
	}
	return nil, domain.NewUnauthorizedError(domain.MsgInvalidRefreshToken, nil)
}

// GetCurrentUser returns the authenticated user
func (m *MockAuthService) GetCurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	if m.GetCurrentUserFunc != nil {
		return m.GetCurrentUserFunc(ctx, userID)
	}
	return nil, domain.NewUnauthorizedError(domain.MsgUserNotFound, nil)
}

// Compile-time interface compliance verification
var _ domain.AuthService = (*MockAuthService)(nil)
