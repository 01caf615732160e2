// Package devicesettings manages the per-user device-control API credential:
// one {host, apiKey} record per user, created on first save, updated after.
package devicesettings

import (
	"context"
	"errors"
	"strings"

	"github.com/voixlabs/dialdash/internal/deviceapi"
	"github.com/voixlabs/dialdash/internal/store"
	"go.uber.org/zap"
)

// DefaultHost is presented when a user has never saved settings.
const DefaultHost = "http://localhost:8000"

var (
	ErrUnauthenticated = errors.New("no authenticated user")
	ErrInvalidHost     = errors.New("invalid host")
)

// Settings is the user-facing view of the stored credential.
type Settings struct {
	ID     string `json:"id,omitempty"`
	Host   string `json:"host"`
	APIKey string `json:"apiKey"`
}

type Service struct {
	log *zap.Logger
}

func NewService(logger *zap.Logger) *Service {
	return &Service{log: logger.Named("devicesettings")}
}

// Get returns the user's stored settings, or defaults when none were saved.
func (s *Service) Get(ctx context.Context, h store.Handle) (Settings, error) {
	if !h.Authenticated() {
		return Settings{}, ErrUnauthenticated
	}

	cred, err := h.Store.GetDeviceCredential(ctx, h.Token, h.User.ID)
	if err != nil {
		return Settings{}, err
	}
	if cred == nil {
		return Settings{Host: DefaultHost}, nil
	}
	return Settings{ID: cred.ID, Host: cred.Host, APIKey: cred.APIKey}, nil
}

// Save upserts the user's credential record.
func (s *Service) Save(ctx context.Context, h store.Handle, host, apiKey string) (Settings, error) {
	if !h.Authenticated() {
		return Settings{}, ErrUnauthenticated
	}
	host = strings.TrimSpace(host)
	if host == "" || !(strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://")) {
		return Settings{}, ErrInvalidHost
	}

	existing, err := h.Store.GetDeviceCredential(ctx, h.Token, h.User.ID)
	if err != nil {
		return Settings{}, err
	}

	record := store.DeviceCredential{
		UserID: h.User.ID,
		Host:   strings.TrimRight(host, "/"),
		APIKey: strings.TrimSpace(apiKey),
	}
	if existing != nil {
		record.ID = existing.ID
	}

	saved, err := h.Store.SaveDeviceCredential(ctx, h.Token, record)
	if err != nil {
		return Settings{}, err
	}

	s.log.Info("device credential saved", zap.String("user_id", h.User.ID))
	return Settings{ID: saved.ID, Host: saved.Host, APIKey: saved.APIKey}, nil
}

// Credential fetches the stored pair for a gateway operation. It is read
// fresh on every call so a rotated key applies immediately. A user with no
// stored record gets an empty credential, which the gateway rejects before
// any network I/O.
func (s *Service) Credential(ctx context.Context, h store.Handle) (deviceapi.Credential, error) {
	if !h.Authenticated() {
		return deviceapi.Credential{}, ErrUnauthenticated
	}

	cred, err := h.Store.GetDeviceCredential(ctx, h.Token, h.User.ID)
	if err != nil {
		return deviceapi.Credential{}, err
	}
	if cred == nil {
		return deviceapi.Credential{}, nil
	}
	return deviceapi.Credential{Host: cred.Host, APIKey: cred.APIKey}, nil
}
