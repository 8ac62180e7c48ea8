package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nithinycr7/discipline-ai-health-prod-sub001/domain"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/config"
	httpx "github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/http"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/http/handlers"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/http/middleware"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/infrastructure/auth"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/infrastructure/database"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/infrastructure/events"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/infrastructure/identity"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/infrastructure/notifications"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/infrastructure/repositories"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/services"
)

// Container holds all dependencies
type Container struct {
	// Config
	Config *config.Config
	Log    *zap.Logger

	// Infrastructure
	DB          *gorm.DB
	RedisClient *database.RedisClient
	Publisher   *events.Publisher

	// Repositories
	UserRepo      domain.UserRepository
	RefreshLedger domain.RefreshTokenLedger

	// Services
	PasswordSvc     domain.PasswordService
	TokenSvc        domain.TokenService
	NotificationSvc domain.NotificationService
	Verifiers       domain.IdentityVerifierRegistry
	AuditLogger     domain.AuditLogger
	AuthSvc         domain.AuthService
	PolicySvc       domain.PolicyService

	Router *gin.Engine
}

// NewContainer creates and initializes all dependencies
func NewContainer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Log: log}

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"database", c.initDatabase},
		{"redis", c.initRedis},
		{"policies", c.initPolicies},
		{"identity", c.initIdentity},
		{"events", c.initEvents},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("init %s: %w", s.name, err)
		}
	}

	c.initServices()
	c.initRouter()
	return c, nil
}

func (c *Container) initDatabase(context.Context) error {
	db, err := database.Open(c.Config.DSN, c.Config.IsDevelopment())
	if err != nil {
		return err
	}
	c.DB = db

	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	c.UserRepo = repositories.NewUserRepository(db)
	return nil
}

func (c *Container) initRedis(ctx context.Context) error {
	c.RedisClient = database.NewRedis(c.Config.RedisAddr, c.Config.RedisPassword, c.Config.RedisDB)
	if err := c.RedisClient.Ping(ctx); err != nil {
		return err
	}
	c.RefreshLedger = repositories.NewRefreshTokenLedger(c.RedisClient.Client)
	return nil
}

func (c *Container) initPolicies(context.Context) error {
	cas, err := auth.NewCasbinService(c.DB)
	if err != nil {
		return err
	}
	policySvc := services.NewPolicyService(cas.E)
	if err := services.SeedDefaultPolicies(policySvc); err != nil {
		return err
	}
	c.PolicySvc = policySvc
	return nil
}

func (c *Container) initIdentity(ctx context.Context) error {
	var firebase, google domain.IdentityVerifier

	if c.Config.FirebaseProjectID != "" {
		keys, err := identity.NewFirebaseKeySet(ctx)
		if err != nil {
			return err
		}
		firebase = identity.NewFirebaseVerifier(c.Config.FirebaseProjectID, keys)
	} else {
		c.Log.Warn("firebase project not configured, phone and social sign-in disabled")
	}

	if c.Config.GoogleClientID != "" {
		google = identity.NewGoogleVerifier(c.Config.GoogleClientID)
	}

	c.Verifiers = identity.NewRegistry(firebase, google)
	return nil
}

func (c *Container) initEvents(context.Context) error {
	sinks := events.MultiAuditLogger{events.NewZapAuditLogger(c.Log)}

	if c.Config.AMQPURL != "" {
		pub, err := events.NewPublisher(c.Config.AMQPURL, c.Config.AMQPExchange)
		if err != nil {
			return err
		}
		c.Publisher = pub
		sinks = append(sinks, events.NewBrokerAuditLogger(pub))
	}

	c.AuditLogger = sinks
	return nil
}

func (c *Container) initServices() {
	c.PasswordSvc = auth.NewPasswordService(c.Config.BcryptCost)
	c.TokenSvc = auth.NewJWTService(
		c.Config.JWTSecret,
		c.Config.JWTRefreshSecret,
		c.Config.JWTIssuer,
		c.Config.AccessTTL,
		c.Config.RefreshTTL,
	)
	c.NotificationSvc = notifications.NewTwilioService(
		c.Config.TwilioSID,
		c.Config.TwilioToken,
		c.Config.TwilioFrom,
		c.Log,
	)

	c.AuthSvc = services.NewAuthService(
		c.UserRepo,
		c.PasswordSvc,
		c.TokenSvc,
		c.Verifiers,
		c.RefreshLedger,
		c.NotificationSvc,
		c.AuditLogger,
		c.Log,
		services.WithDefaultTimezone(c.Config.DefaultTimezone),
		services.WithWelcomeMessage(notifications.WelcomeMessage),
	)
}

func (c *Container) initRouter() {
	gin.SetMode(c.Config.GinMode)
	c.Router = httpx.BuildRouter(
		c.Log,
		handlers.NewAuthHandlers(c.AuthSvc, c.Log),
		handlers.NewPolicyHandlers(c.PolicySvc, c.Log),
		middleware.NewAuthMW(c.TokenSvc),
		middleware.NewCasbinMW(c.PolicySvc, c.Log),
	)
}

// Close closes all connections
func (c *Container) Close() error {
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			c.Log.Warn("failed to close amqp publisher", zap.Error(err))
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Log.Warn("failed to close redis client", zap.Error(err))
		}
	}

	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return nil
}
