package main

import (
	"context"
	"errors"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/config"
	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/domain/repository"
	pginfra "github.com/oksasatya/go-task-manager/internal/infrastructure/postgres"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
)

// seed ensures a verified admin account exists (ADMIN_EMAIL / ADMIN_PASSWORD).
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), 2, 1, cfg.DBMaxConnLife)
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	users := pginfra.NewUserRepository(pool)
	existing, err := users.GetByEmail(ctx, cfg.AdminEmail)
	switch {
	case err == nil:
		if existing.Role != entity.RoleAdmin {
			if err := users.UpdateRole(ctx, existing.ID, entity.RoleAdmin); err != nil {
				logger.Fatalf("failed to promote admin: %v", err)
			}
		}
		logger.WithFields(logrus.Fields{"id": existing.ID, "email": existing.Email}).Info("admin already present")
		return
	case !errors.Is(err, repository.ErrNotFound):
		logger.Fatalf("failed to look up admin: %v", err)
	}

	hash, err := helpers.HashPassword(cfg.AdminPassword)
	if err != nil {
		logger.Fatalf("failed to hash password: %v", err)
	}
	admin := &entity.User{
		Email:      cfg.AdminEmail,
		Password:   hash,
		Name:       "Administrator",
		Role:       entity.RoleAdmin,
		IsVerified: true,
	}
	if err := users.Create(ctx, admin); err != nil {
		logger.Fatalf("failed to seed admin: %v", err)
	}
	logger.WithFields(logrus.Fields{"id": admin.ID, "email": admin.Email}).Info("seeded admin")
}
