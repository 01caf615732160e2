package session

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/voixlabs/dialdash/internal/store"
	"go.uber.org/zap"
)

const handleKey = "store_handle"

// Establish runs once per request. It reads the credential cookie, refreshes
// it against the store with exactly one auth call, and attaches a scoped
// store handle to the request. Any refresh failure clears the credential and
// degrades the request to anonymous; it is never retried and never aborts
// the request. The response always carries the cookie header, refreshed or
// clearing, so a dropped credential clears client state too.
func Establish(st store.Store, sessions *Manager, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("session")
	return func(c *gin.Context) {
		handle := store.Handle{Store: st}

		token, ok := sessions.ReadToken(c)
		if ok {
			auth, err := st.AuthRefresh(c.Request.Context(), token)
			if err != nil {
				if !errors.Is(err, store.ErrInvalidToken) {
					log.Warn("auth refresh failed", zap.Error(err))
				}
				sessions.Clear(c)
			} else {
				handle.Token = auth.Token
				handle.User = &auth.User
				sessions.Set(c, auth.Token)
			}
		} else {
			sessions.Clear(c)
		}

		c.Set(handleKey, handle)
		c.Next()
	}
}

// HandleFrom returns the request's store handle. It is the zero handle when
// Establish did not run, which behaves as anonymous.
func HandleFrom(c *gin.Context) store.Handle {
	value, exists := c.Get(handleKey)
	if !exists {
		return store.Handle{}
	}
	handle, ok := value.(store.Handle)
	if !ok {
		return store.Handle{}
	}
	return handle
}
