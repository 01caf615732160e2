package server

import (
	"github.com/gin-gonic/gin"
	"github.com/voixlabs/dialdash/internal/session"
	"github.com/voixlabs/dialdash/internal/store"
)

// AuthRequired rejects requests that did not survive session refresh.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := session.HandleFrom(c)
		if !h.Authenticated() {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func handleFrom(c *gin.Context) store.Handle {
	return session.HandleFrom(c)
}
