package domain

import "errors"

// Store errors
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("user already exists")
)

// Token errors
var (
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenMalformed     = errors.New("malformed token")
	ErrRefreshTokenReused = errors.New("refresh token already used")
)

// ErrIdentityTokenInvalid is returned by identity verifiers for any rejected assertion.
var ErrIdentityTokenInvalid = errors.New("invalid identity token")

// Messages surfaced to callers. Login and token failures share one message per
// operation so responses never reveal which part of a credential was wrong.
const (
	MsgInvalidCredentials   = "Invalid credentials"
	MsgPasswordRequired     = "Password required for admin accounts"
	MsgPhoneTaken           = "Phone number already registered"
	MsgEmailTaken           = "Email already registered"
	MsgInvalidIdentityToken = "Invalid or expired identity token"
	MsgMissingPhoneClaim    = "Identity token does not contain a phone number"
	MsgProviderMismatch     = "Identity token was not issued by the requested provider"
	MsgInvalidRefreshToken  = "Invalid refresh token"
	MsgUserNotFound         = "User not found"
	MsgIdentityLinked       = "Identity is already linked to another account"
	MsgUnsupportedProvider  = "Unsupported identity provider"
)

// ErrorKind classifies failures surfaced at the API boundary.
type ErrorKind string

const (
	KindConflict     ErrorKind = "conflict"
	KindBadRequest   ErrorKind = "bad_request"
	KindUnauthorized ErrorKind = "unauthorized"
)

// AuthError is a typed failure with a caller-safe message. Err keeps the cause
// for logging and is never rendered.
type AuthError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }

func NewConflictError(msg string, cause error) *AuthError {
	return &AuthError{Kind: KindConflict, Message: msg, Err: cause}
}

func NewBadRequestError(msg string, cause error) *AuthError {
	return &AuthError{Kind: KindBadRequest, Message: msg, Err: cause}
}

func NewUnauthorizedError(msg string, cause error) *AuthError {
	return &AuthError{Kind: KindUnauthorized, Message: msg, Err: cause}
}

// KindOf returns the kind of err, or "" if err is not an *AuthError.
func KindOf(err error) ErrorKind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
