// Package seed bootstraps a first dashboard account when the embedded store
// starts empty, so a fresh standalone install is usable without manual SQL.
package seed

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/voixlabs/dialdash/internal/store"
	"github.com/voixlabs/dialdash/internal/store/local"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultAdminEmail    = "admin@dialdash.local"
	defaultAdminPassword = "changeme-admin"
	defaultAdminName     = "Dashboard Admin"
)

// EnsureAdmin creates the bootstrap account if no user exists yet. The
// credentials come from SEED_ADMIN_EMAIL / SEED_ADMIN_PASSWORD with local
// defaults; an already-populated store is left untouched.
func EnsureAdmin(ctx context.Context, db *gorm.DB, st *local.Store, logger *zap.Logger) error {
	if db == nil || st == nil {
		return errors.New("seed requires an embedded store")
	}

	var count int64
	if err := db.WithContext(ctx).Model(&local.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	email := envOr("SEED_ADMIN_EMAIL", defaultAdminEmail)
	password := envOr("SEED_ADMIN_PASSWORD", defaultAdminPassword)
	name := envOr("SEED_ADMIN_NAME", defaultAdminName)

	user, err := st.CreateUser(ctx, email, password, name)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			return errors.New("seed admin credentials rejected; check SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD")
		}
		return err
	}

	logger.Info("seeded bootstrap account",
		zap.String("user_id", user.ID),
		zap.String("email", user.Email),
	)
	return nil
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
