package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-identity/config"
	"github.com/oksasatya/go-ddd-identity/internal/domain/entity"
	pginfra "github.com/oksasatya/go-ddd-identity/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-identity/pkg/helpers"
)

// seed bootstraps the first SUPERADMIN. Admin APIs require an existing
// administrator, so the first one has to come from outside the HTTP surface.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		log.Fatal("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), 2, 1, time.Minute)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	email := entity.NormalizeEmail(cfg.SeedAdminEmail)
	fields := logrus.Fields{"email": email}

	a, res, err := ensureSuperAdmin(ctx, pginfra.NewAccountRepository(pool), email, cfg.SeedAdminName, cfg.SeedAdminPassword)
	if err != nil {
		logger.WithError(err).WithFields(fields).Fatal("failed to seed superadmin")
	}
	logger.WithFields(fields).WithFields(logrus.Fields{"id": a.ID, "result": res.String()}).Info("superadmin ensured")

	if !containsFold(cfg.AdminEmails, email) {
		logger.WithFields(fields).Warn("email is not in ADMIN_EMAILS; admin login will be denied until it is added")
	}
}

func containsFold(list []string, email string) bool {
	for _, e := range list {
		if entity.NormalizeEmail(e) == email {
			return true
		}
	}
	return false
}
