package local

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/voixlabs/dialdash/internal/store"
	"gorm.io/gorm"
)

const (
	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32
	argonSaltLen        = 16

	sessionTokenBytes = 32
	sessionTTL        = 7 * 24 * time.Hour

	minPasswordLength = 8
)

// CreateUser registers a dashboard account. Used by the bootstrap seed and
// by tests; the HTTP surface has no signup endpoint.
func (s *Store) CreateUser(ctx context.Context, email, password, name string) (*store.User, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, store.ErrInvalidCredentials
	}
	if len(strings.TrimSpace(password)) < minPasswordLength {
		return nil, store.ErrInvalidCredentials
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	row := User{
		ID:           s.node.Generate().String(),
		Email:        normalized,
		Name:         strings.TrimSpace(name),
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	user := userFromRow(row)
	return &user, nil
}

func (s *Store) AuthWithPassword(ctx context.Context, email, password string) (*store.Auth, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, store.ErrInvalidCredentials
	}
	if strings.TrimSpace(password) == "" {
		return nil, store.ErrInvalidCredentials
	}

	var row User
	if err := s.db.WithContext(ctx).Where("email = ?", normalized).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrInvalidCredentials
		}
		return nil, err
	}
	if !verifyPassword(password, row.PasswordHash) {
		return nil, store.ErrInvalidCredentials
	}

	rawToken, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := Session{
		ID:         s.node.Generate().String(),
		UserID:     row.ID,
		TokenHash:  hashToken(rawToken),
		ExpiresAt:  now.Add(sessionTTL),
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, err
	}

	user := userFromRow(row)
	return &store.Auth{Token: rawToken, User: user}, nil
}

// AuthRefresh validates the session token, slides its expiry forward and
// returns the identity. The token itself is not rotated.
func (s *Store) AuthRefresh(ctx context.Context, token string) (*store.Auth, error) {
	row, user, err := s.sessionByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&Session{}).
		Where("id = ?", row.ID).
		Updates(map[string]any{
			"last_seen_at": now,
			"expires_at":   now.Add(sessionTTL),
		}).Error; err != nil {
		return nil, err
	}

	return &store.Auth{Token: token, User: *user}, nil
}

// RevokeToken deletes the session backing the token. Unknown tokens are a
// no-op so logout stays idempotent.
func (s *Store) RevokeToken(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("token_hash = ?", hashToken(token)).
		Delete(&Session{}).Error
}

// authorize resolves a token into its user, enforcing expiry.
func (s *Store) authorize(ctx context.Context, token string) (*store.User, error) {
	_, user, err := s.sessionByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Store) sessionByToken(ctx context.Context, token string) (*Session, *store.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil, store.ErrInvalidToken
	}

	var session Session
	err := s.db.WithContext(ctx).Where("token_hash = ?", hashToken(token)).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, store.ErrInvalidToken
		}
		return nil, nil, err
	}
	if time.Now().UTC().After(session.ExpiresAt) {
		return nil, nil, store.ErrInvalidToken
	}

	var row User
	if err := s.db.WithContext(ctx).Where("id = ?", session.UserID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, store.ErrInvalidToken
		}
		return nil, nil, err
	}

	user := userFromRow(row)
	return &session, &user, nil
}

func userFromRow(row User) store.User {
	return store.User{ID: row.ID, Email: row.Email, Name: row.Name}
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return "", fmt.Errorf("empty email")
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func constantTimeEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
