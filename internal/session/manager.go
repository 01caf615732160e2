// Package session establishes a per-request authenticated identity against
// the record store and manages the credential cookie.
package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/voixlabs/dialdash/internal/config"
)

const DefaultCookieName = "_dialsid"

// cookieTTL matches the store-side session lifetime.
const cookieTTL = 7 * 24 * time.Hour

// Manager manages the auth credential cookie: httpOnly, SameSite Lax,
// path "/", secure in production.
type Manager struct {
	cookieName string
	secure     bool
}

func NewManager(cfg config.Config) *Manager {
	return &Manager{
		cookieName: DefaultCookieName,
		secure:     cfg.AuthCookieSecure,
	}
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

func (m *Manager) ReadToken(c *gin.Context) (string, bool) {
	token, err := c.Cookie(m.cookieName)
	if err != nil {
		return "", false
	}
	if strings.TrimSpace(token) == "" {
		return "", false
	}
	return token, true
}

func (m *Manager) Set(c *gin.Context, value string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, value, int(cookieTTL.Seconds()), "/", "", m.secure, true)
}

// Clear writes an expired cookie so client-side credential state is actually
// dropped, not just ignored.
func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, "", -1, "/", "", m.secure, true)
}
