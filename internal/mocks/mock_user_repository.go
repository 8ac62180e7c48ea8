package mocks

import (
	"context"

	"github.com/nithinycr7/discipline-ai-health-prod-sub001/domain"
)

// MockUserRepository implements domain.UserRepository interface for testing
type MockUserRepository struct {
	CreateFunc                 func(ctx context.Context, user *domain.NewUser) (*domain.User, error)
	FindByIDFunc               func(ctx context.Context, id string) (*domain.User, error)
	FindByPhoneFunc            func(ctx context.Context, phone string) (*domain.User, error)
	FindByEmailFunc            func(ctx context.Context, email string) (*domain.User, error)
	FindByExternalAuthIDFunc   func(ctx context.Context, externalAuthID string) (*domain.User, error)
	FindCredentialsByEmailFunc func(ctx context.Context, email string) (*domain.Credentials, error)
	LinkExternalIdentityFunc   func(ctx context.Context, userID, externalAuthID string, phoneVerified bool) error

	// Recorded calls
	Created        []*domain.NewUser
	PhoneLookups   []string
	CredentialsFor []string
	Links          []LinkCall
}

// LinkCall records one LinkExternalIdentity invocation.
type LinkCall struct {
	UserID         string
	ExternalAuthID string
	PhoneVerified  bool
}

// NewMockUserRepository creates a new MockUserRepository with default behaviors
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

// Create creates a new user
func (m *MockUserRepository) Create(ctx context.Context, user *domain.NewUser) (*domain.User, error) {
	m.Created = append(m.Created, user)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	// Default behavior: echo the user back with an ID
	created := user.User
	if created.ID == "" {
		created.ID = "user-1"
	}
	return &created, nil
}

// FindByID finds a user by ID
func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, domain.ErrUserNotFound
}

// FindByPhone finds a user by phone number
func (m *MockUserRepository) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	m.PhoneLookups = append(m.PhoneLookups, phone)
	if m.FindByPhoneFunc != nil {
		return m.FindByPhoneFunc(ctx, phone)
	}
	return nil, domain.ErrUserNotFound
}

// FindByEmail finds a user by email
func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	return nil, domain.ErrUserNotFound
}

// FindByExternalAuthID finds a user by the identity provider subject
func (m *MockUserRepository) FindByExternalAuthID(ctx context.Context, externalAuthID string) (*domain.User, error) {
	if m.FindByExternalAuthIDFunc != nil {
		return m.FindByExternalAuthIDFunc(ctx, externalAuthID)
	}
	return nil, domain.ErrUserNotFound
}

// FindCredentialsByEmail loads a user together with its password hash
func (m *MockUserRepository) FindCredentialsByEmail(ctx context.Context, email string) (*domain.Credentials, error) {
	m.CredentialsFor = append(m.CredentialsFor, email)
	if m.FindCredentialsByEmailFunc != nil {
		return m.FindCredentialsByEmailFunc(ctx, email)
	}
	return nil, domain.ErrUserNotFound
}

// LinkExternalIdentity attaches an external subject to a user
func (m *MockUserRepository) LinkExternalIdentity(ctx context.Context, userID, externalAuthID string, phoneVerified bool) error {
	m.Links = append(m.Links, LinkCall{UserID: userID, ExternalAuthID: externalAuthID, PhoneVerified: phoneVerified})
	if m.LinkExternalIdentityFunc != nil {
		return m.LinkExternalIdentityFunc(ctx, userID, externalAuthID, phoneVerified)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.UserRepository = (*MockUserRepository)(nil)
