package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/orcaust/orcaust/internal/config"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var ErrAdminNotConfigured = errors.New("admin username and password must be configured")

// EnsureAdmin creates the configured administrator, or promotes the existing user with the same
// username. Calling it repeatedly is safe.
func EnsureAdmin(ctx context.Context, repo Repo, cfg config.Admin) (User, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return User{}, ErrAdminNotConfigured
	}

	existing, err := repo.GetUserByUsername(ctx, cfg.Username)
	if err == nil {
		if !existing.Admin {
			if err := repo.SetAdmin(ctx, existing.Id, true); err != nil {
				return User{}, err
			}
			existing.Admin = true
			log.Infof("user %s promoted to administrator", existing.Username)
		}
		return existing, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash admin password: %w", err)
	}
	admin := User{
		Username:     cfg.Username,
		Email:        cfg.Email,
		PasswordHash: string(hash),
		Admin:        true,
	}
	id, err := repo.CreateUser(ctx, admin)
	if err != nil {
		return User{}, err
	}
	admin.Id = id
	log.Infof("administrator %s created", admin.Username)
	return admin, nil
}
