package mocks

import (
	"fmt"
	"strings"
	"time"

	"github.com/nithinycr7/discipline-ai-health-prod-sub001/domain"
)

// MockTokenService implements domain.TokenService interface for testing.
// Default tokens look like "access:<userID>:<role>:<n>" and validate back
// into matching claims.
type MockTokenService struct {
	GenerateAccessTokenFunc  func(userID string, role domain.Role) (string, error)
	GenerateRefreshTokenFunc func(userID string, role domain.Role) (string, error)
	ValidateAccessTokenFunc  func(token string) (*domain.TokenClaims, error)
	ValidateRefreshTokenFunc func(token string) (*domain.TokenClaims, error)
	TTL                      time.Duration

	issued int
}

// NewMockTokenService creates a new MockTokenService with default behaviors
func NewMockTokenService() *MockTokenService {
	return &MockTokenService{TTL: 15 * time.Minute}
}

// GenerateAccessToken generates an access token for the user
func (m *MockTokenService) GenerateAccessToken(userID string, role domain.Role) (string, error) {
	if m.GenerateAccessTokenFunc != nil {
		return m.GenerateAccessTokenFunc(userID, role)
	}
	m.issued++
	return fmt.Sprintf("access:%s:%s:%d", userID, role, m.issued), nil
}

// GenerateRefreshToken generates a refresh token for the user
func (m *MockTokenService) GenerateRefreshToken(userID string, role domain.Role) (string, error) {
	if m.GenerateRefreshTokenFunc != nil {
		return m.GenerateRefreshTokenFunc(userID, role)
	}
	m.issued++
	return fmt.Sprintf("refresh:%s:%s:%d", userID, role, m.issued), nil
}

// ValidateAccessToken validates an access token and returns claims
func (m *MockTokenService) ValidateAccessToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateAccessTokenFunc != nil {
		return m.ValidateAccessTokenFunc(token)
	}
	return parseMockToken("access", token)
}

// ValidateRefreshToken validates a refresh token and returns claims
func (m *MockTokenService) ValidateRefreshToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateRefreshTokenFunc != nil {
		return m.ValidateRefreshTokenFunc(token)
	}
	return parseMockToken("refresh", token)
}

// AccessTTL returns the configured access token lifetime
func (m *MockTokenService) AccessTTL() time.Duration {
	return m.TTL
}

func parseMockToken(kind, token string) (*domain.TokenClaims, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 4 || parts[0] != kind {
		return nil, domain.ErrTokenInvalid
	}
	now := time.Now()
	return &domain.TokenClaims{
		UserID:    parts[1],
		Role:      domain.Role(parts[2]),
		TokenID:   kind + "-" + parts[3],
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	}, nil
}

// Compile-time interface compliance verification
var _ domain.TokenService = (*MockTokenService)(nil)
