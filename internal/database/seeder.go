package database

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"driver-punch-api-server/config"
	"driver-punch-api-server/internal/auth"
	"driver-punch-api-server/internal/models"
)

// SeedAdmin creates the configured administrator when no account with that email exists.
// It reports whether an account was created.
func SeedAdmin(ctx context.Context, users *UserRepository, cfg config.SeedConfig, log *slog.Logger) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" || cfg.AdminPassword == "" {
		log.Info("admin seed not configured, skipping")
		return false, nil
	}

	count, err := users.CountByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if count > 0 {
		log.Info("admin already exists, seeding skipped", "email", email)
		return false, nil
	}

	log.Info("admin not found, seeding", "email", email)
	hashed, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return false, err
	}

	admin := models.User{
		Email:     email,
		Password:  hashed,
		Role:      models.RoleAdmin,
		CreatedAt: time.Now().UTC(),
	}
	if err := users.Insert(ctx, &admin); err != nil {
		return false, err
	}

	log.Info("admin seeded", "email", email, "userId", admin.ID.Hex())
	return true, nil
}
