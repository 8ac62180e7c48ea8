package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/domain"
	"go.uber.org/zap"
)

// AuthHandlers handles authentication HTTP requests using clean architecture
type AuthHandlers struct {
	authSvc domain.AuthService
	log     *zap.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authSvc domain.AuthService, log *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		authSvc: authSvc,
		log:     log.Named("http"),
	}
}

// RegisterPayerRequest represents the payer registration request
type RegisterPayerRequest struct {
	Phone                 string `json:"phone" binding:"required"`
	Name                  string `json:"name" binding:"required"`
	Location              string `json:"location"`
	Timezone              string `json:"timezone"`
	RelationshipToPatient string `json:"relationshipToPatient"`
}

// RegisterHospitalRequest represents the hospital registration request
type RegisterHospitalRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8"`
	HospitalName string `json:"hospitalName" binding:"required"`
	AdminName    string `json:"adminName" binding:"required"`
}

// LoginRequest represents login request. Identifier is a phone number or email.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password"`
}

// VerifyOTPRequest carries a phone sign-in assertion and optional profile fields
type VerifyOTPRequest struct {
	FirebaseIDToken string `json:"firebaseIdToken" binding:"required"`
	Name            string `json:"name"`
	Location        string `json:"location"`
	Timezone        string `json:"timezone"`
}

// SocialLoginRequest carries a Google or Apple sign-in assertion
type SocialLoginRequest struct {
	FirebaseIDToken string `json:"firebaseIdToken" binding:"required"`
	Provider        string `json:"provider" binding:"required,oneof=google apple"`
	Name            string `json:"name"`
	Location        string `json:"location"`
	Timezone        string `json:"timezone"`
}

// RefreshRequest represents token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// NotificationPreferencesResponse is the wire form of domain.NotificationPreferences
type NotificationPreferencesResponse struct {
	Weekly bool `json:"weekly"`
	Daily  bool `json:"daily"`
	Alerts bool `json:"alerts"`
}

// UserResponse is the sanitized user returned by every endpoint
type UserResponse struct {
	ID                      string                          `json:"id"`
	Phone                   string                          `json:"phone,omitempty"`
	Email                   string                          `json:"email,omitempty"`
	Name                    string                          `json:"name"`
	Role                    domain.Role                     `json:"role"`
	Location                string                          `json:"location,omitempty"`
	Timezone                string                          `json:"timezone,omitempty"`
	RelationshipToPatient   string                          `json:"relationshipToPatient,omitempty"`
	HospitalName            string                          `json:"hospitalName,omitempty"`
	ExternalAuthID          string                          `json:"externalAuthId,omitempty"`
	PhoneVerified           bool                            `json:"phoneVerified"`
	EmailVerified           bool                            `json:"emailVerified"`
	AuthProvider            domain.AuthProvider             `json:"authProvider"`
	Tag                     string                          `json:"tag"`
	NotificationPreferences NotificationPreferencesResponse `json:"notificationPreferences"`
	CreatedAt               time.Time                       `json:"createdAt"`
	UpdatedAt               time.Time                       `json:"updatedAt"`
}

// SessionResponse is returned by registration, login and successful external sign-in
type SessionResponse struct {
	User         UserResponse `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
	IsNewUser    *bool        `json:"isNewUser,omitempty"`
}

// NeedsRegistrationResponse asks the client to resubmit the assertion with a name
type NeedsRegistrationResponse struct {
	NeedsRegistration bool   `json:"needsRegistration"`
	Phone             string `json:"phone,omitempty"`
	Email             string `json:"email,omitempty"`
	IsNewUser         bool   `json:"isNewUser"`
}

// TokenResponse is returned by refresh
type TokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// RegisterPayer handles B2C registration
func (h *AuthHandlers) RegisterPayer(c *gin.Context) {
	var req RegisterPayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.authSvc.RegisterPayer(c.Request.Context(), domain.PayerRegistration{
		Phone:                 req.Phone,
		Name:                  req.Name,
		Location:              req.Location,
		Timezone:              req.Timezone,
		RelationshipToPatient: req.RelationshipToPatient,
	})
	if err != nil {
		h.writeError(c, "register_payer", err)
		return
	}

	c.JSON(http.StatusCreated, toSessionResponse(session, nil))
}

// RegisterHospital handles B2B registration
func (h *AuthHandlers) RegisterHospital(c *gin.Context) {
	var req RegisterHospitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.authSvc.RegisterHospital(c.Request.Context(), domain.HospitalRegistration{
		Email:        req.Email,
		Password:     req.Password,
		HospitalName: req.HospitalName,
		AdminName:    req.AdminName,
	})
	if err != nil {
		h.writeError(c, "register_hospital", err)
		return
	}

	c.JSON(http.StatusCreated, toSessionResponse(session, nil))
}

// Login handles user login
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.authSvc.Login(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		h.writeError(c, "login", err)
		return
	}

	c.JSON(http.StatusOK, toSessionResponse(session, nil))
}

// VerifyOTP completes a phone OTP sign-in
func (h *AuthHandlers) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.authSvc.VerifyPhoneIdentity(c.Request.Context(), domain.ExternalLogin{
		AssertionToken: req.FirebaseIDToken,
		Name:           req.Name,
		Location:       req.Location,
		Timezone:       req.Timezone,
	})
	if err != nil {
		h.writeError(c, "verify_otp", err)
		return
	}

	h.writeOutcome(c, outcome)
}

// SocialLogin completes a Google or Apple sign-in
func (h *AuthHandlers) SocialLogin(c *gin.Context) {
	var req SocialLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.authSvc.SocialLogin(c.Request.Context(), domain.AuthProvider(req.Provider), domain.ExternalLogin{
		AssertionToken: req.FirebaseIDToken,
		Name:           req.Name,
		Location:       req.Location,
		Timezone:       req.Timezone,
	})
	if err != nil {
		h.writeError(c, "social_login", err)
		return
	}

	h.writeOutcome(c, outcome)
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pair, err := h.authSvc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.writeError(c, "refresh", err)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

// Me handles getting user profile (requires authentication)
func (h *AuthHandlers) Me(c *gin.Context) {
	// Get user ID from context (set by auth middleware)
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return
	}

	user, err := h.authSvc.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, "me", err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

func (h *AuthHandlers) writeOutcome(c *gin.Context, outcome domain.ExternalAuthOutcome) {
	switch o := outcome.(type) {
	case *domain.Authenticated:
		isNew := o.IsNewUser
		c.JSON(http.StatusOK, toSessionResponse(&o.Session, &isNew))
	case *domain.NeedsRegistration:
		c.JSON(http.StatusOK, NeedsRegistrationResponse{
			NeedsRegistration: true,
			Phone:             o.Phone,
			Email:             o.Email,
			IsNewUser:         true,
		})
	default:
		h.log.Error("unexpected sign-in outcome")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// writeError maps typed service errors onto status codes. Anything untyped is
// an infrastructure failure and is only described in the log.
func (h *AuthHandlers) writeError(c *gin.Context, op string, err error) {
	var ae *domain.AuthError
	if errors.As(err, &ae) {
		c.JSON(StatusFor(ae.Kind), gin.H{"error": ae.Message})
		return
	}
	h.log.Error("request failed", zap.String("operation", op), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// StatusFor returns the HTTP status for an error kind
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindBadRequest:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func toSessionResponse(s *domain.Session, isNewUser *bool) SessionResponse {
	return SessionResponse{
		User:         toUserResponse(s.User),
		Token:        s.Tokens.AccessToken,
		RefreshToken: s.Tokens.RefreshToken,
		ExpiresIn:    s.Tokens.ExpiresIn,
		IsNewUser:    isNewUser,
	}
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:                    u.ID,
		Phone:                 u.Phone,
		Email:                 u.Email,
		Name:                  u.Name,
		Role:                  u.Role,
		Location:              u.Location,
		Timezone:              u.Timezone,
		RelationshipToPatient: u.RelationshipToPatient,
		HospitalName:          u.HospitalName,
		ExternalAuthID:        u.ExternalAuthID,
		PhoneVerified:         u.PhoneVerified,
		EmailVerified:         u.EmailVerified,
		AuthProvider:          u.AuthProvider,
		Tag:                   u.Tag,
		NotificationPreferences: NotificationPreferencesResponse{
			Weekly: u.NotificationPreferences.Weekly,
			Daily:  u.NotificationPreferences.Daily,
			Alerts: u.NotificationPreferences.Alerts,
		},
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
