package domain

import "time"

// Role is the account role carried in tokens and enforced by casbin.
type Role string

const (
	RolePayer         Role = "payer"
	RoleHospitalAdmin Role = "hospital_admin"
	RoleMonitor       Role = "monitor"
	RoleSuperAdmin    Role = "super_admin"
)

// IsAdmin reports whether accounts with this role must authenticate with a password.
func (r Role) IsAdmin() bool {
	return r == RoleHospitalAdmin || r == RoleSuperAdmin
}

// Subject is the casbin subject for the role.
func (r Role) Subject() string {
	return "role_" + string(r)
}

// AuthProvider records how an account was first created.
type AuthProvider string

const (
	ProviderPhone  AuthProvider = "phone"
	ProviderEmail  AuthProvider = "email"
	ProviderGoogle AuthProvider = "google"
	ProviderApple  AuthProvider = "apple"
)

// Firebase sign_in_provider claim values.
const (
	SignInProviderPhone  = "phone"
	SignInProviderGoogle = "google.com"
	SignInProviderApple  = "apple.com"
)

// SignInProvider returns the sign_in_provider claim an assertion for p carries.
func (p AuthProvider) SignInProvider() string {
	switch p {
	case ProviderPhone:
		return SignInProviderPhone
	case ProviderGoogle:
		return SignInProviderGoogle
	case ProviderApple:
		return SignInProviderApple
	}
	return ""
}

// IsSocial reports whether p is a federated social provider.
func (p AuthProvider) IsSocial() bool {
	return p == ProviderGoogle || p == ProviderApple
}

// Account tags separate pilot accounts from paying ones.
const (
	TagTest   = "test"
	TagNormal = "normal"
)

// DefaultTimezone is applied when a registration does not carry one.
const DefaultTimezone = "Asia/Kolkata"

// NotificationPreferences controls which family reports a payer receives.
type NotificationPreferences struct {
	Weekly bool
	Daily  bool
	Alerts bool
}

// DefaultNotificationPreferences returns the preferences new accounts start with.
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{Weekly: true, Daily: false, Alerts: true}
}

// User is the public projection of an account. It has no credential fields,
// so any value of this type is already sanitized.
type User struct {
	ID                      string
	Phone                   string
	Email                   string
	Name                    string
	Role                    Role
	Location                string
	Timezone                string
	RelationshipToPatient   string
	HospitalName            string
	ExternalAuthID          string
	PhoneVerified           bool
	EmailVerified           bool
	AuthProvider            AuthProvider
	Tag                     string
	NotificationPreferences NotificationPreferences
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// Credentials is the with-secret projection, only loaded for password verification.
type Credentials struct {
	User         User
	PasswordHash string
}

// NewUser carries everything needed to persist a new account.
type NewUser struct {
	User         User
	PasswordHash string
}

// PayerRegistration is the explicit B2C registration form.
type PayerRegistration struct {
	Phone                 string
	Name                  string
	Location              string
	Timezone              string
	RelationshipToPatient string
}

// HospitalRegistration is the explicit B2B registration form.
type HospitalRegistration struct {
	Email        string
	Password     string
	HospitalName string
	AdminName    string
}

// ExternalLogin is an assertion from the external identity platform plus the
// optional profile fields used for first-time registration.
type ExternalLogin struct {
	AssertionToken string
	Name           string
	Location       string
	Timezone       string
}

// IdentityClaims is the decoded claim set of a verified external assertion.
type IdentityClaims struct {
	Subject        string
	Phone          string
	Email          string
	EmailVerified  bool
	Name           string
	SignInProvider string
}

// TokenPair is an access token and its refresh token, issued together.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Session is the result of every successful authentication.
type Session struct {
	User   *User
	Tokens *TokenPair
}

// ExternalAuthOutcome is either *Authenticated or *NeedsRegistration.
type ExternalAuthOutcome interface {
	isExternalAuthOutcome()
}

// Authenticated is returned when an external assertion resolved to a user.
type Authenticated struct {
	Session
	IsNewUser bool
}

// NeedsRegistration asks the caller to resubmit the same assertion with a display name.
// Nothing is persisted when this is returned.
type NeedsRegistration struct {
	Phone string
	Email string
}

func (*Authenticated) isExternalAuthOutcome()     {}
func (*NeedsRegistration) isExternalAuthOutcome() {}
