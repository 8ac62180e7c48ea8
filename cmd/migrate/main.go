package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/infrastructure/auth"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/infrastructure/database"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/infrastructure/repositories"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/services"
)

// migrate creates the users and casbin_rule tables and seeds the default role
// policies. It is safe to run repeatedly.
func main() {
	_ = godotenv.Load()

	dsn := flag.String("dsn", os.Getenv("DATABASE_DSN"), "postgres DSN")
	seed := flag.Bool("seed", true, "add the default role policies")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if *dsn == "" {
		logger.Fatal("no DSN given; set DATABASE_DSN or pass -dsn")
	}

	db, err := database.Open(*dsn, false)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("get sql.DB", zap.Error(err))
	}
	defer sqlDB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		logger.Fatal("ping database", zap.Error(err))
	}

	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	logger.Info("schema migrated")

	if *seed {
		cas, err := auth.NewCasbinService(db)
		if err != nil {
			logger.Fatal("load policies", zap.Error(err))
		}
		if err := services.SeedDefaultPolicies(services.NewPolicyService(cas.E)); err != nil {
			logger.Fatal("seed policies", zap.Error(err))
		}
		logger.Info("default policies seeded")
	}

	var users, rules int64
	if err := db.Model(&repositories.DBUser{}).Count(&users).Error; err != nil {
		logger.Fatal("count users", zap.Error(err))
	}
	if err := db.Table("casbin_rule").Count(&rules).Error; err != nil {
		logger.Fatal("count policies", zap.Error(err))
	}
	logger.Info("database ready", zap.Int64("users", users), zap.Int64("policies", rules))
}
