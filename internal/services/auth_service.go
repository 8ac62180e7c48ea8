package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nithinycr7/discipline-ai-health-prod-sub001/domain"
	"go.uber.org/zap"
)

// WelcomeMessageFunc renders the SMS sent to newly created payers.
type WelcomeMessageFunc func(name string) string

// AuthServiceImpl implements domain.AuthService
type AuthServiceImpl struct {
	userRepo        domain.UserRepository
	passwordSvc     domain.PasswordService
	tokenSvc        domain.TokenService
	verifiers       domain.IdentityVerifierRegistry
	refreshLedger   domain.RefreshTokenLedger
	notificationSvc domain.NotificationService
	auditLogger     domain.AuditLogger
	log             *zap.Logger

	defaultTimezone string
	welcomeMessage  WelcomeMessageFunc
}

// Option customises an AuthServiceImpl.
type Option func(*AuthServiceImpl)

// WithDefaultTimezone sets the timezone applied when a registration omits one.
func WithDefaultTimezone(tz string) Option {
	return func(s *AuthServiceImpl) {
		if tz != "" {
			s.defaultTimezone = tz
		}
	}
}

// WithWelcomeMessage enables the welcome SMS for new payers.
func WithWelcomeMessage(fn WelcomeMessageFunc) Option {
	return func(s *AuthServiceImpl) { s.welcomeMessage = fn }
}

// NewAuthService creates a new auth service. notificationSvc and auditLogger
// may be nil.
func NewAuthService(
	userRepo domain.UserRepository,
	passwordSvc domain.PasswordService,
	tokenSvc domain.TokenService,
	verifiers domain.IdentityVerifierRegistry,
	refreshLedger domain.RefreshTokenLedger,
	notificationSvc domain.NotificationService,
	auditLogger domain.AuditLogger,
	log *zap.Logger,
	opts ...Option,
) *AuthServiceImpl {
	s := &AuthServiceImpl{
		userRepo:        userRepo,
		passwordSvc:     passwordSvc,
		tokenSvc:        tokenSvc,
		verifiers:       verifiers,
		refreshLedger:   refreshLedger,
		notificationSvc: notificationSvc,
		auditLogger:     auditLogger,
		log:             log,
		defaultTimezone: domain.DefaultTimezone,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterPayer implements domain.AuthService
func (s *AuthServiceImpl) RegisterPayer(ctx context.Context, req domain.PayerRegistration) (_ *domain.Session, err error) {
	defer trackOperation("register_payer", time.Now(), &err)

	existing, err := s.findByPhone(ctx, req.Phone)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up phone: %w", err)
	}
	if existing != nil {
		return nil, domain.NewConflictError(domain.MsgPhoneTaken, nil)
	}

	user, err := s.userRepo.Create(ctx, &domain.NewUser{User: domain.User{
		Phone:                   req.Phone,
		Name:                    req.Name,
		Role:                    domain.RolePayer,
		Location:                req.Location,
		Timezone:                s.timezone(req.Timezone),
		RelationshipToPatient:   req.RelationshipToPatient,
		AuthProvider:            domain.ProviderPhone,
		Tag:                     domain.TagTest,
		NotificationPreferences: domain.DefaultNotificationPreferences(),
	}})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateUser) {
			return nil, domain.NewConflictError(domain.MsgPhoneTaken, err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	session, err := s.issueSession(user)
	if err != nil {
		return nil, err
	}

	s.log.Info("payer registered", zap.String("user_id", user.ID))
	s.emit(ctx, domain.NewAuditEvent(domain.UserRegistrationEvent, user).WithChannel(domain.ProviderPhone))
	s.sendWelcome(ctx, user)
	return session, nil
}

// RegisterHospital implements domain.AuthService
func (s *AuthServiceImpl) RegisterHospital(ctx context.Context, req domain.HospitalRegistration) (_ *domain.Session, err error) {
	defer trackOperation("register_hospital", time.Now(), &err)

	_, err = s.userRepo.FindByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return nil, domain.NewConflictError(domain.MsgEmailTaken, nil)
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	hash, err := s.passwordSvc.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.Create(ctx, &domain.NewUser{
		User: domain.User{
			Email:                   req.Email,
			Name:                    req.AdminName,
			Role:                    domain.RoleHospitalAdmin,
			HospitalName:            req.HospitalName,
			Timezone:                s.defaultTimezone,
			AuthProvider:            domain.ProviderEmail,
			Tag:                     domain.TagTest,
			NotificationPreferences: domain.DefaultNotificationPreferences(),
		},
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateUser) {
			return nil, domain.NewConflictError(domain.MsgEmailTaken, err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	session, err := s.issueSession(user)
	if err != nil {
		return nil, err
	}

	s.log.Info("hospital admin registered", zap.String("user_id", user.ID))
	s.emit(ctx, domain.NewAuditEvent(domain.UserRegistrationEvent, user).WithChannel(domain.ProviderEmail))
	return session, nil
}

// Login implements domain.AuthService. Phone is tried before email, and every
// resolution or password failure yields the same Unauthorized message.
func (s *AuthServiceImpl) Login(ctx context.Context, identifier, password string) (_ *domain.Session, err error) {
	defer trackOperation("login", time.Now(), &err)
	defer func() {
		if err != nil && domain.KindOf(err) != "" {
			s.emit(ctx, domain.NewAuditEvent(domain.UserLoginFailureEvent, nil).
				WithError(err).
				WithMetadata("identifier", identifier))
		}
	}()

	s.log.Info("login attempt", zap.String("identifier", identifier))

	user, err := s.resolveIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.NewUnauthorizedError(domain.MsgInvalidCredentials, nil)
		}
		return nil, err
	}

	channel := domain.ProviderPhone
	if user.Role.IsAdmin() && user.Email != "" {
		channel = domain.ProviderEmail
		if password == "" {
			return nil, domain.NewBadRequestError(domain.MsgPasswordRequired, nil)
		}
		if err := s.checkPassword(ctx, user.Email, password); err != nil {
			return nil, err
		}
	}

	session, err := s.issueSession(user)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, domain.NewAuditEvent(domain.UserLoginEvent, user).WithChannel(channel))
	return session, nil
}

// VerifyPhoneIdentity implements domain.AuthService. It completes a phone OTP
// sign-in, registering a payer when the phone is unknown and a name is given.
func (s *AuthServiceImpl) VerifyPhoneIdentity(ctx context.Context, req domain.ExternalLogin) (_ domain.ExternalAuthOutcome, err error) {
	defer trackOperation("verify_otp", time.Now(), &err)

	claims, err := s.verify(ctx, domain.ProviderPhone, req.AssertionToken)
	if err != nil {
		return nil, err
	}
	if claims.SignInProvider != domain.SignInProviderPhone {
		return nil, domain.NewBadRequestError(domain.MsgProviderMismatch, nil)
	}
	if claims.Phone == "" {
		return nil, domain.NewBadRequestError(domain.MsgMissingPhoneClaim, nil)
	}

	user, err := s.findByPhone(ctx, claims.Phone)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up phone: %w", err)
	}

	if user != nil {
		return s.loginExternal(ctx, user, claims, domain.ProviderPhone)
	}

	if req.Name == "" {
		return &domain.NeedsRegistration{Phone: claims.Phone}, nil
	}

	return s.registerExternal(ctx, domain.ProviderPhone, claims, req, req.Name)
}

// SocialLogin implements domain.AuthService
func (s *AuthServiceImpl) SocialLogin(ctx context.Context, provider domain.AuthProvider, req domain.ExternalLogin) (_ domain.ExternalAuthOutcome, err error) {
	defer trackOperation("social_login", time.Now(), &err)

	if !provider.IsSocial() {
		return nil, domain.NewBadRequestError(domain.MsgUnsupportedProvider, nil)
	}

	claims, err := s.verify(ctx, provider, req.AssertionToken)
	if err != nil {
		return nil, err
	}
	if claims.SignInProvider != provider.SignInProvider() {
		return nil, domain.NewBadRequestError(domain.MsgProviderMismatch, nil)
	}

	user, err := s.resolveSocial(ctx, claims)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to resolve social identity: %w", err)
	}

	if user != nil {
		// Admin accounts never sign in through a social provider.
		if user.Role.IsAdmin() {
			return nil, domain.NewUnauthorizedError(domain.MsgInvalidCredentials, nil)
		}
		return s.loginExternal(ctx, user, claims, provider)
	}

	name := req.Name
	if name == "" {
		name = claims.Name
	}
	if name == "" {
		return &domain.NeedsRegistration{Phone: claims.Phone, Email: claims.Email}, nil
	}

	return s.registerExternal(ctx, provider, claims, req, name)
}

// RefreshToken implements domain.AuthService. Each refresh token is accepted
// once; the pair it returns replaces it.
func (s *AuthServiceImpl) RefreshToken(ctx context.Context, refreshToken string) (_ *domain.TokenPair, err error) {
	defer trackOperation("refresh", time.Now(), &err)

	claims, err := s.tokenSvc.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, domain.NewUnauthorizedError(domain.MsgInvalidRefreshToken, err)
	}
	if claims.TokenID == "" {
		return nil, domain.NewUnauthorizedError(domain.MsgInvalidRefreshToken, domain.ErrTokenMalformed)
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.NewUnauthorizedError(domain.MsgInvalidRefreshToken, err)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	fresh, err := s.refreshLedger.Consume(ctx, claims.TokenID, time.Unix(claims.ExpiresAt, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to record refresh token use: %w", err)
	}
	if !fresh {
		s.log.Warn("refresh token replayed", zap.String("user_id", user.ID), zap.String("jti", claims.TokenID))
		return nil, domain.NewUnauthorizedError(domain.MsgInvalidRefreshToken, domain.ErrRefreshTokenReused)
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, domain.NewAuditEvent(domain.TokenRefreshedEvent, user))
	return pair, nil
}

// GetCurrentUser implements domain.AuthService
func (s *AuthServiceImpl) GetCurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.NewUnauthorizedError(domain.MsgUserNotFound, err)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// phoneVariants returns the identifier and its equivalent with a single
// leading "+" added or removed, bare digits first. Country codes are not inferred.
func phoneVariants(phone string) []string {
	if phone == "" {
		return nil
	}
	if stripped, ok := strings.CutPrefix(phone, "+"); ok {
		if stripped == "" {
			return []string{phone}
		}
		return []string{stripped, phone}
	}
	return []string{phone, "+" + phone}
}

func (s *AuthServiceImpl) findByPhone(ctx context.Context, phone string) (*domain.User, error) {
	for _, candidate := range phoneVariants(phone) {
		user, err := s.userRepo.FindByPhone(ctx, candidate)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *AuthServiceImpl) resolveIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, domain.ErrUserNotFound
	}

	user, err := s.findByPhone(ctx, identifier)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up phone: %w", err)
	}

	user, err = s.userRepo.FindByEmail(ctx, identifier)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}
	return user, err
}

// resolveSocial matches the external subject first, then the verified phone,
// then a verified email.
func (s *AuthServiceImpl) resolveSocial(ctx context.Context, claims *domain.IdentityClaims) (*domain.User, error) {
	user, err := s.userRepo.FindByExternalAuthID(ctx, claims.Subject)
	if err == nil || !errors.Is(err, domain.ErrUserNotFound) {
		return user, err
	}
	if claims.Phone != "" {
		user, err = s.findByPhone(ctx, claims.Phone)
		if err == nil || !errors.Is(err, domain.ErrUserNotFound) {
			return user, err
		}
	}
	if claims.Email != "" && claims.EmailVerified {
		return s.userRepo.FindByEmail(ctx, claims.Email)
	}
	return nil, domain.ErrUserNotFound
}

func (s *AuthServiceImpl) checkPassword(ctx context.Context, email, password string) error {
	creds, err := s.userRepo.FindCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.NewUnauthorizedError(domain.MsgInvalidCredentials, nil)
		}
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	if creds.PasswordHash == "" || !s.passwordSvc.Verify(creds.PasswordHash, password) {
		return domain.NewUnauthorizedError(domain.MsgInvalidCredentials, nil)
	}
	return nil
}

func (s *AuthServiceImpl) verify(ctx context.Context, provider domain.AuthProvider, assertion string) (*domain.IdentityClaims, error) {
	verifier, err := s.verifiers.Verifier(provider)
	if err != nil {
		return nil, domain.NewBadRequestError(domain.MsgUnsupportedProvider, err)
	}
	claims, err := verifier.Verify(ctx, assertion)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.log.Debug("identity assertion rejected", zap.String("provider", string(provider)), zap.Error(err))
		return nil, domain.NewUnauthorizedError(domain.MsgInvalidIdentityToken, err)
	}
	return claims, nil
}

// loginExternal signs in a user resolved from a verified assertion, attaching
// the external subject when it is new.
func (s *AuthServiceImpl) loginExternal(ctx context.Context, user *domain.User, claims *domain.IdentityClaims, channel domain.AuthProvider) (domain.ExternalAuthOutcome, error) {
	if err := s.linkIdentity(ctx, user, claims.Subject, claims.Phone != ""); err != nil {
		return nil, err
	}

	session, err := s.issueSession(user)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, domain.NewAuditEvent(domain.UserLoginEvent, user).WithChannel(channel))
	return &domain.Authenticated{Session: *session, IsNewUser: false}, nil
}

// linkIdentity is a no-op when the user already carries the subject and,
// if requested, a verified phone.
func (s *AuthServiceImpl) linkIdentity(ctx context.Context, user *domain.User, subject string, phoneVerified bool) error {
	if user.ExternalAuthID == subject && (!phoneVerified || user.PhoneVerified) {
		return nil
	}

	if err := s.userRepo.LinkExternalIdentity(ctx, user.ID, subject, phoneVerified); err != nil {
		if errors.Is(err, domain.ErrDuplicateUser) {
			return domain.NewConflictError(domain.MsgIdentityLinked, err)
		}
		return fmt.Errorf("failed to link identity: %w", err)
	}

	previous := user.ExternalAuthID
	user.ExternalAuthID = subject
	if phoneVerified {
		user.PhoneVerified = true
	}

	s.emit(ctx, domain.NewAuditEvent(domain.IdentityLinkedEvent, user).
		WithMetadata("replaced", previous != ""))
	return nil
}

// registerExternal creates a payer from verified claims. An unverified email is
// not stored so it cannot claim the address.
func (s *AuthServiceImpl) registerExternal(ctx context.Context, provider domain.AuthProvider, claims *domain.IdentityClaims, req domain.ExternalLogin, name string) (domain.ExternalAuthOutcome, error) {
	email := ""
	if claims.EmailVerified {
		email = claims.Email
	}

	nu := &domain.NewUser{User: domain.User{
		Phone:                   claims.Phone,
		Email:                   email,
		Name:                    name,
		Role:                    domain.RolePayer,
		Location:                req.Location,
		Timezone:                s.timezone(req.Timezone),
		ExternalAuthID:          claims.Subject,
		PhoneVerified:           claims.Phone != "",
		EmailVerified:           email != "",
		AuthProvider:            provider,
		Tag:                     domain.TagTest,
		NotificationPreferences: domain.DefaultNotificationPreferences(),
	}}

	user, err := s.userRepo.Create(ctx, nu)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateUser) {
			msg := domain.MsgPhoneTaken
			if claims.Phone == "" {
				msg = domain.MsgEmailTaken
			}
			return nil, domain.NewConflictError(msg, err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	session, err := s.issueSession(user)
	if err != nil {
		return nil, err
	}

	s.log.Info("payer registered", zap.String("user_id", user.ID), zap.String("provider", string(provider)))
	s.emit(ctx, domain.NewAuditEvent(domain.UserRegistrationEvent, user).WithChannel(provider))
	s.sendWelcome(ctx, user)
	return &domain.Authenticated{Session: *session, IsNewUser: true}, nil
}

func (s *AuthServiceImpl) issueSession(user *domain.User) (*domain.Session, error) {
	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	return &domain.Session{User: user, Tokens: pair}, nil
}

func (s *AuthServiceImpl) issueTokens(user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.tokenSvc.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.tokenSvc.GenerateRefreshToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokenSvc.AccessTTL().Seconds()),
	}, nil
}

func (s *AuthServiceImpl) timezone(tz string) string {
	if tz == "" {
		return s.defaultTimezone
	}
	return tz
}

// emit records an audit event. Sink failures never fail the request.
func (s *AuthServiceImpl) emit(ctx context.Context, event *domain.AuditEvent) {
	if s.auditLogger == nil {
		return
	}
	if err := s.auditLogger.LogEvent(ctx, event); err != nil {
		s.log.Warn("failed to record audit event",
			zap.String("event_type", string(event.EventType)),
			zap.Error(err))
	}
}

func (s *AuthServiceImpl) sendWelcome(ctx context.Context, user *domain.User) {
	if s.notificationSvc == nil || s.welcomeMessage == nil || user.Phone == "" {
		return
	}
	if err := s.notificationSvc.SendSMS(ctx, user.Phone, s.welcomeMessage(user.Name)); err != nil {
		s.log.Warn("failed to send welcome sms", zap.String("user_id", user.ID), zap.Error(err))
	}
}

var _ domain.AuthService = (*AuthServiceImpl)(nil)
