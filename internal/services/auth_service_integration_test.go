package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/domain"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/infrastructure/auth"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/infrastructure/repositories"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/mocks"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	accessSecret  = "access-secret-for-tests"
	refreshSecret = "refresh-secret-for-tests"
	issuer        = "cocare-auth"
)

type stack struct {
	svc      *AuthServiceImpl
	db       *gorm.DB
	users    domain.UserRepository
	jwt      *auth.JWTServiceImpl
	verifier *mocks.MockIdentityVerifier
}

// newStack wires the service to sqlite, bcrypt, JWT and a miniredis ledger.
func newStack(t *testing.T) *stack {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&repositories.DBUser{}))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	users := repositories.NewUserRepository(db)
	jwtSvc := auth.NewJWTService(accessSecret, refreshSecret, issuer, 15*time.Minute, 7*24*time.Hour)
	verifier := mocks.NewMockIdentityVerifier(nil)

	svc := NewAuthService(
		users,
		auth.NewPasswordService(bcrypt.MinCost),
		jwtSvc,
		mocks.NewMockIdentityVerifierRegistry(verifier),
		repositories.NewRefreshTokenLedger(rdb),
		nil,
		nil,
		zap.NewNop(),
	)

	return &stack{svc: svc, db: db, users: users, jwt: jwtSvc, verifier: verifier}
}

func (s *stack) registerAdmin(t *testing.T) *domain.Session {
	t.Helper()
	session, err := s.svc.RegisterHospital(context.Background(), domain.HospitalRegistration{
		Email:        testEmail,
		Password:     testPassword,
		HospitalName: "City Care",
		AdminName:    "Dr. Mehta",
	})
	require.NoError(t, err)
	return session
}

func TestIntegration_PhonePlusEquivalence(t *testing.T) {
	tests := []struct {
		name       string
		stored     string
		identifier string
	}{
		{"stored bare, login with plus", "919876543210", "+919876543210"},
		{"stored with plus, login bare", "+919876543210", "919876543210"},
		{"stored with plus, login with plus", "+919876543210", "+919876543210"},
		{"stored bare, login bare", "919876543210", "919876543210"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStack(t)
			reg, err := s.svc.RegisterPayer(context.Background(), domain.PayerRegistration{Phone: tt.stored, Name: "Ravi"})
			require.NoError(t, err)

			session, err := s.svc.Login(context.Background(), tt.identifier, "")
			require.NoError(t, err)
			assert.Equal(t, reg.User.ID, session.User.ID)
		})
	}
}

func TestIntegration_CountryCodeIsNotInferred(t *testing.T) {
	s := newStack(t)
	_, err := s.svc.RegisterPayer(context.Background(), domain.PayerRegistration{Phone: "9876543210", Name: "Ravi"})
	require.NoError(t, err)

	_, err = s.svc.Login(context.Background(), "+919876543210", "")
	requireAuthError(t, err, domain.KindUnauthorized, domain.MsgInvalidCredentials)

	session, err := s.svc.Login(context.Background(), "+9876543210", "")
	require.NoError(t, err)
	assert.Equal(t, "9876543210", session.User.Phone)
}

func TestIntegration_DuplicateRegistrations(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	first, err := s.svc.RegisterPayer(ctx, domain.PayerRegistration{Phone: testPhone, Name: "First"})
	require.NoError(t, err)

	_, err = s.svc.RegisterPayer(ctx, domain.PayerRegistration{Phone: testPhone, Name: "Second"})
	requireAuthError(t, err, domain.KindConflict, domain.MsgPhoneTaken)

	stored, err := s.users.FindByID(ctx, first.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "First", stored.Name)

	s.registerAdmin(t)
	_, err = s.svc.RegisterHospital(ctx, domain.HospitalRegistration{
		Email: testEmail, Password: "another-password", HospitalName: "Other", AdminName: "Other",
	})
	requireAuthError(t, err, domain.KindConflict, domain.MsgEmailTaken)

	var count int64
	require.NoError(t, s.db.Model(&repositories.DBUser{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestIntegration_AdminPassword(t *testing.T) {
	s := newStack(t)
	s.registerAdmin(t)
	ctx := context.Background()

	session, err := s.svc.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleHospitalAdmin, session.User.Role)

	_, err = s.svc.Login(ctx, testEmail, "not-the-password")
	requireAuthError(t, err, domain.KindUnauthorized, domain.MsgInvalidCredentials)

	_, err = s.svc.Login(ctx, testEmail, "")
	requireAuthError(t, err, domain.KindBadRequest, domain.MsgPasswordRequired)

	_, unknownErr := s.svc.Login(ctx, "nonexistent-identifier", "")
	_, wrongErr := s.svc.Login(ctx, testEmail, "not-the-password")
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestIntegration_PayerPasswordIgnored(t *testing.T) {
	s := newStack(t)
	_, err := s.svc.RegisterPayer(context.Background(), domain.PayerRegistration{Phone: testPhone, Name: "Ravi"})
	require.NoError(t, err)

	for _, pw := range []string{"", "whatever", testPassword} {
		_, err := s.svc.Login(context.Background(), testPhone, pw)
		assert.NoError(t, err, "password %q", pw)
	}
}

func TestIntegration_SanitizedUsers(t *testing.T) {
	s := newStack(t)
	reg := s.registerAdmin(t)
	login, err := s.svc.Login(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	me, err := s.svc.GetCurrentUser(context.Background(), reg.User.ID)
	require.NoError(t, err)

	var row repositories.DBUser
	require.NoError(t, s.db.First(&row, "id = ?", reg.User.ID).Error)
	require.NotEmpty(t, row.PasswordHash)

	for _, u := range []*domain.User{reg.User, login.User, me} {
		b, err := json.Marshal(u)
		require.NoError(t, err)
		assert.NotContains(t, string(b), row.PasswordHash)
		assert.NotContains(t, string(b), testPassword)
	}
}

func TestIntegration_PhoneIdentityHandshake(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	s.verifier.Tokens["otp"] = &domain.IdentityClaims{
		Subject:        testFirebaseID,
		Phone:          testPhone,
		SignInProvider: domain.SignInProviderPhone,
	}

	outcome, err := s.svc.VerifyPhoneIdentity(ctx, domain.ExternalLogin{AssertionToken: "otp"})
	require.NoError(t, err)
	nr, ok := outcome.(*domain.NeedsRegistration)
	require.True(t, ok)
	assert.Equal(t, testPhone, nr.Phone)

	_, err = s.users.FindByPhone(ctx, testPhone)
	assert.ErrorIs(t, err, domain.ErrUserNotFound, "handshake step one persists nothing")

	outcome, err = s.svc.VerifyPhoneIdentity(ctx, domain.ExternalLogin{AssertionToken: "otp", Name: "Ravi"})
	require.NoError(t, err)
	created, ok := outcome.(*domain.Authenticated)
	require.True(t, ok)
	assert.True(t, created.IsNewUser)
	assert.True(t, created.User.PhoneVerified)

	outcome, err = s.svc.VerifyPhoneIdentity(ctx, domain.ExternalLogin{AssertionToken: "otp", Name: "Ravi"})
	require.NoError(t, err)
	again := outcome.(*domain.Authenticated)
	assert.False(t, again.IsNewUser)
	assert.Equal(t, created.User.ID, again.User.ID)

	var count int64
	require.NoError(t, s.db.Model(&repositories.DBUser{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIntegration_AdminPhoneSignIn(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	reg := s.registerAdmin(t)
	require.NoError(t, s.db.Model(&repositories.DBUser{}).
		Where("id = ?", reg.User.ID).
		Update("phone", testPhone).Error)

	s.verifier.Tokens["otp"] = &domain.IdentityClaims{
		Subject:        testFirebaseID,
		Phone:          testPhone,
		SignInProvider: domain.SignInProviderPhone,
	}

	outcome, err := s.svc.VerifyPhoneIdentity(ctx, domain.ExternalLogin{AssertionToken: "otp"})
	require.NoError(t, err)
	authn, ok := outcome.(*domain.Authenticated)
	require.True(t, ok)
	assert.Equal(t, reg.User.ID, authn.User.ID)
	assert.Equal(t, domain.RoleHospitalAdmin, authn.User.Role)

	claims, err := s.jwt.ValidateAccessToken(authn.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)

	var row repositories.DBUser
	require.NoError(t, s.db.First(&row, "id = ?", reg.User.ID).Error)
	require.NotNil(t, row.ExternalAuthID)
	assert.Equal(t, testFirebaseID, *row.ExternalAuthID)
	assert.True(t, row.PhoneVerified)
}

func TestIntegration_UnverifiedSocialEmailLeavesAddressFree(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	s.verifier.Tokens["g"] = &domain.IdentityClaims{
		Subject:        "google-sub",
		Email:          testEmail,
		EmailVerified:  false,
		Name:           "Asha Rao",
		SignInProvider: domain.SignInProviderGoogle,
	}

	outcome, err := s.svc.SocialLogin(ctx, domain.ProviderGoogle, domain.ExternalLogin{AssertionToken: "g"})
	require.NoError(t, err)
	created := outcome.(*domain.Authenticated)
	assert.True(t, created.IsNewUser)
	assert.Empty(t, created.User.Email)

	reg := s.registerAdmin(t)
	assert.Equal(t, testEmail, reg.User.Email)
}

func TestIntegration_IdentityLinkIsIdempotent(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	reg, err := s.svc.RegisterPayer(ctx, domain.PayerRegistration{Phone: testPhone, Name: "Ravi"})
	require.NoError(t, err)
	assert.False(t, reg.User.PhoneVerified)

	s.verifier.Tokens["otp"] = &domain.IdentityClaims{
		Subject:        "new-firebase-uid",
		Phone:          testPhone,
		SignInProvider: domain.SignInProviderPhone,
	}

	_, err = s.svc.VerifyPhoneIdentity(ctx, domain.ExternalLogin{AssertionToken: "otp"})
	require.NoError(t, err)

	var first repositories.DBUser
	require.NoError(t, s.db.First(&first, "id = ?", reg.User.ID).Error)
	require.NotNil(t, first.ExternalAuthID)
	assert.Equal(t, "new-firebase-uid", *first.ExternalAuthID)
	assert.True(t, first.PhoneVerified)

	_, err = s.svc.VerifyPhoneIdentity(ctx, domain.ExternalLogin{AssertionToken: "otp"})
	require.NoError(t, err)

	var second repositories.DBUser
	require.NoError(t, s.db.First(&second, "id = ?", reg.User.ID).Error)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt, "repeating the same claim performs no write")
}

func TestIntegration_RefreshFailuresLookAlike(t *testing.T) {
	s := newStack(t)
	reg, err := s.svc.RegisterPayer(context.Background(), domain.PayerRegistration{Phone: testPhone, Name: "Ravi"})
	require.NoError(t, err)

	wrongSecret := auth.NewJWTService(accessSecret, "some-other-secret", issuer, time.Minute, time.Hour)
	forged, err := wrongSecret.GenerateRefreshToken(reg.User.ID, domain.RolePayer)
	require.NoError(t, err)

	expiredSvc := auth.NewJWTService(accessSecret, refreshSecret, issuer, time.Minute, -time.Minute)
	expired, err := expiredSvc.GenerateRefreshToken(reg.User.ID, domain.RolePayer)
	require.NoError(t, err)

	tokens := map[string]string{
		"wrong secret": forged,
		"expired":      expired,
		"malformed":    "not-a-jwt",
		"access token": reg.Tokens.AccessToken,
	}

	var messages []string
	for name, token := range tokens {
		_, err := s.svc.RefreshToken(context.Background(), token)
		var ae *domain.AuthError
		require.ErrorAs(t, err, &ae, name)
		assert.Equal(t, domain.KindUnauthorized, ae.Kind, name)
		messages = append(messages, ae.Message)
	}
	for _, m := range messages {
		assert.Equal(t, domain.MsgInvalidRefreshToken, m)
	}
}

func TestIntegration_RefreshRotation(t *testing.T) {
	s := newStack(t)
	reg, err := s.svc.RegisterPayer(context.Background(), domain.PayerRegistration{Phone: testPhone, Name: "Ravi"})
	require.NoError(t, err)

	pair, err := s.svc.RefreshToken(context.Background(), reg.Tokens.RefreshToken)
	require.NoError(t, err)

	claims, err := s.jwt.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)
	assert.Equal(t, domain.RolePayer, claims.Role)

	_, err = s.svc.RefreshToken(context.Background(), reg.Tokens.RefreshToken)
	requireAuthError(t, err, domain.KindUnauthorized, domain.MsgInvalidRefreshToken)

	_, err = s.svc.RefreshToken(context.Background(), pair.RefreshToken)
	assert.NoError(t, err, "the rotated token is still good")
}

func TestIntegration_ConcurrentRefreshSucceedsOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping load test in short mode")
	}

	s := newStack(t)
	reg, err := s.svc.RegisterPayer(context.Background(), domain.PayerRegistration{Phone: testPhone, Name: "Ravi"})
	require.NoError(t, err)

	const concurrency = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := s.svc.RefreshToken(ctx, reg.Tokens.RefreshToken); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}
