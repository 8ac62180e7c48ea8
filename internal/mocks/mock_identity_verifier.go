package mocks

import (
	"context"
	"fmt"
	"time"

	"github.com/nithinycr7/discipline-ai-health-prod-sub001/domain"
)

// MockIdentityVerifier implements domain.IdentityVerifier for testing.
// By default it looks the assertion up in Tokens.
type MockIdentityVerifier struct {
	VerifyFunc func(ctx context.Context, assertion string) (*domain.IdentityClaims, error)
	Tokens     map[string]*domain.IdentityClaims
	Calls      int
}

// NewMockIdentityVerifier creates a verifier that accepts exactly the given tokens.
func NewMockIdentityVerifier(tokens map[string]*domain.IdentityClaims) *MockIdentityVerifier {
	if tokens == nil {
		tokens = map[string]*domain.IdentityClaims{}
	}
	return &MockIdentityVerifier{Tokens: tokens}
}

// Verify validates an assertion
func (m *MockIdentityVerifier) Verify(ctx context.Context, assertion string) (*domain.IdentityClaims, error) {
	m.Calls++
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, assertion)
	}
	claims, ok := m.Tokens[assertion]
	if !ok {
		return nil, domain.ErrIdentityTokenInvalid
	}
	c := *claims
	return &c, nil
}

// MockIdentityVerifierRegistry implements domain.IdentityVerifierRegistry by
// routing every known provider to a single verifier.
type MockIdentityVerifierRegistry struct {
	VerifierFunc func(provider domain.AuthProvider) (domain.IdentityVerifier, error)
	Default      domain.IdentityVerifier
}

// NewMockIdentityVerifierRegistry creates a registry serving v for every provider.
func NewMockIdentityVerifierRegistry(v domain.IdentityVerifier) *MockIdentityVerifierRegistry {
	return &MockIdentityVerifierRegistry{Default: v}
}

// Verifier resolves the verifier for a provider
func (m *MockIdentityVerifierRegistry) Verifier(provider domain.AuthProvider) (domain.IdentityVerifier, error) {
	if m.VerifierFunc != nil {
		return m.VerifierFunc(provider)
	}
	if provider == domain.ProviderEmail || m.Default == nil {
		return nil, fmt.Errorf("unknown identity provider: %s", provider)
	}
	return m.Default, nil
}

// MockRefreshTokenLedger implements domain.RefreshTokenLedger in memory.
type MockRefreshTokenLedger struct {
	ConsumeFunc func(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error)
	Used        map[string]time.Time
}

// NewMockRefreshTokenLedger creates an empty ledger
func NewMockRefreshTokenLedger() *MockRefreshTokenLedger {
	return &MockRefreshTokenLedger{Used: map[string]time.Time{}}
}

// Consume marks a token ID as used
func (m *MockRefreshTokenLedger) Consume(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, tokenID, expiresAt)
	}
	if _, seen := m.Used[tokenID]; seen {
		return false, nil
	}
	m.Used[tokenID] = expiresAt
	return true, nil
}

// MockAuditLogger implements domain.AuditLogger and keeps every event.
type MockAuditLogger struct {
	LogEventFunc func(ctx context.Context, event *domain.AuditEvent) error
	Events       []*domain.AuditEvent
}

// NewMockAuditLogger creates an empty audit logger
func NewMockAuditLogger() *MockAuditLogger {
	return &MockAuditLogger{}
}

// LogEvent records an event
func (m *MockAuditLogger) LogEvent(ctx context.Context, event *domain.AuditEvent) error {
	m.Events = append(m.Events, event)
	if m.LogEventFunc != nil {
		return m.LogEventFunc(ctx, event)
	}
	return nil
}

// Types returns the recorded event types in order.
func (m *MockAuditLogger) Types() []domain.AuditEventType {
	out := make([]domain.AuditEventType, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.EventType
	}
	return out
}

// Compile-time interface compliance verification
var (
	_ domain.IdentityVerifier         = (*MockIdentityVerifier)(nil)
	_ domain.IdentityVerifierRegistry = (*MockIdentityVerifierRegistry)(nil)
	_ domain.RefreshTokenLedger       = (*MockRefreshTokenLedger)(nil)
	_ domain.AuditLogger              = (*MockAuditLogger)(nil)
)
