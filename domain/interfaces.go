package domain

import (
	"context"
	"time"
)

// UserRepository is the credential store.
type UserRepository interface {
	Create(ctx context.Context, user *NewUser) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByPhone(ctx context.Context, phone string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByExternalAuthID(ctx context.Context, externalAuthID string) (*User, error)
	// FindCredentialsByEmail is the only read path that loads the password hash.
	FindCredentialsByEmail(ctx context.Context, email string) (*Credentials, error)
	// LinkExternalIdentity sets external_auth_id and, when phoneVerified is true,
	// phone_verified. It never clears either field.
	LinkExternalIdentity(ctx context.Context, userID, externalAuthID string, phoneVerified bool) error
}

// RefreshTokenLedger tracks refresh token IDs that have already been exchanged.
type RefreshTokenLedger interface {
	// Consume marks tokenID as used until expiresAt. It returns false when the
	// token had already been consumed.
	Consume(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error)
}

// AuthService is the identity resolution service.
type AuthService interface {
	RegisterPayer(ctx context.Context, req PayerRegistration) (*Session, error)
	RegisterHospital(ctx context.Context, req HospitalRegistration) (*Session, error)
	Login(ctx context.Context, identifier, password string) (*Session, error)
	VerifyPhoneIdentity(ctx context.Context, req ExternalLogin) (ExternalAuthOutcome, error)
	SocialLogin(ctx context.Context, provider AuthProvider, req ExternalLogin) (ExternalAuthOutcome, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
	GetCurrentUser(ctx context.Context, userID string) (*User, error)
}

// PasswordService defines password operations
type PasswordService interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) bool
}

// TokenService defines token operations
type TokenService interface {
	GenerateAccessToken(userID string, role Role) (string, error)
	GenerateRefreshToken(userID string, role Role) (string, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
	ValidateRefreshToken(token string) (*TokenClaims, error)
	AccessTTL() time.Duration
}

// IdentityVerifier validates an assertion issued by an external identity platform.
type IdentityVerifier interface {
	Verify(ctx context.Context, assertion string) (*IdentityClaims, error)
}

// IdentityVerifierRegistry resolves the verifier responsible for a sign-in channel.
type IdentityVerifierRegistry interface {
	Verifier(provider AuthProvider) (IdentityVerifier, error)
}

// NotificationService defines notification operations
type NotificationService interface {
	SendSMS(ctx context.Context, to, message string) error
}

// PolicyService defines authorization policy operations
type PolicyService interface {
	AddPolicy(role, resource, action string) error
	RemovePolicy(role, resource, action string) error
	CheckPermission(role, resource, action string) (bool, error)
	GetPolicies() ([][]string, error)
}

// TokenClaims represents JWT token claims
type TokenClaims struct {
	UserID    string `json:"sub"`
	Role      Role   `json:"role"`
	TokenID   string `json:"jti"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// CasbinEnforcer interface defines the methods we need from Casbin enforcer
type CasbinEnforcer interface {
	AddPolicy(params ...interface{}) (bool, error)
	RemovePolicy(params ...interface{}) (bool, error)
	Enforce(rvals ...interface{}) (bool, error)
	GetPolicy() ([][]string, error)
}
