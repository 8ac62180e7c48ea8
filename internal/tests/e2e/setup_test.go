package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nithinycr7/discipline-ai-health-prod-sub001/domain"
	httpx "github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/http"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/http/handlers"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/http/middleware"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/infrastructure/auth"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/infrastructure/database"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/infrastructure/events"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/infrastructure/notifications"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/infrastructure/repositories"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/mocks"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/services"
)

const (
	testAccessSecret  = "e2e-access-secret"
	testRefreshSecret = "e2e-refresh-secret"
	testIssuer        = "cocare-auth"
)

// TestSuite is a running API backed by sqlite and miniredis. Only the
// external identity platform and SMS delivery are faked.
type TestSuite struct {
	t        *testing.T
	DB       *gorm.DB
	Redis    *miniredis.Miniredis
	Server   *httptest.Server
	Tokens   *auth.JWTServiceImpl
	Verifier *mocks.MockIdentityVerifier
	SMS      *mocks.MockNotificationService
}

func NewTestSuite(t *testing.T) *TestSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "e2e.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cas, err := auth.NewCasbinService(db)
	require.NoError(t, err)
	policySvc := services.NewPolicyService(cas.E)
	require.NoError(t, services.SeedDefaultPolicies(policySvc))

	log := zap.NewNop()
	tokens := auth.NewJWTService(testAccessSecret, testRefreshSecret, testIssuer, 15*time.Minute, 7*24*time.Hour)
	verifier := mocks.NewMockIdentityVerifier(nil)
	sms := mocks.NewMockNotificationService()

	authSvc := services.NewAuthService(
		repositories.NewUserRepository(db),
		auth.NewPasswordService(bcrypt.MinCost),
		tokens,
		mocks.NewMockIdentityVerifierRegistry(verifier),
		repositories.NewRefreshTokenLedger(rdb),
		sms,
		events.NewZapAuditLogger(log),
		log,
		services.WithWelcomeMessage(notifications.WelcomeMessage),
	)

	router := httpx.BuildRouter(
		log,
		handlers.NewAuthHandlers(authSvc, log),
		handlers.NewPolicyHandlers(policySvc, log),
		middleware.NewAuthMW(tokens),
		middleware.NewCasbinMW(policySvc, log),
	)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestSuite{
		t:        t,
		DB:       db,
		Redis:    mr,
		Server:   server,
		Tokens:   tokens,
		Verifier: verifier,
		SMS:      sms,
	}
}

// URL returns the absolute URL for an API path.
func (s *TestSuite) URL(path string) string {
	return s.Server.URL + httpx.APIPrefix + path
}

// Do sends a JSON request and decodes a JSON object response.
func (s *TestSuite) Do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.URL(path), &buf)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.Server.Client().Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

// PromoteToSuperAdmin changes a user's role directly in the store.
func (s *TestSuite) PromoteToSuperAdmin(userID string) {
	s.t.Helper()
	require.NoError(s.t, s.DB.Model(&repositories.DBUser{}).
		Where("id = ?", userID).
		Update("role", string(domain.RoleSuperAdmin)).Error)
}

func (s *TestSuite) CountUsers() int64 {
	s.t.Helper()
	var n int64
	require.NoError(s.t, s.DB.Model(&repositories.DBUser{}).Count(&n).Error)
	return n
}

func userOf(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	u, ok := body["user"].(map[string]interface{})
	require.True(t, ok, "response has no user: %v", body)
	return u
}
