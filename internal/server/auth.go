package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/voixlabs/dialdash/internal/session"
	"go.uber.org/zap"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) Login(c *gin.Context) {
	if !s.loginLimiter.Allow(c.ClientIP()) {
		AbortWithError(c, ErrTooManyRequests)
		return
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		AbortWithError(c, newValidationError("email", "required", "email is required"))
		return
	}
	if req.Password == "" {
		AbortWithError(c, newValidationError("password", "required", "password is required"))
		return
	}

	auth, err := s.store.AuthWithPassword(c.Request.Context(), email, req.Password)
	if err != nil {
		s.logger.Info("login failed", zap.String("email", email), zap.Error(err))
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, auth.Token)

	c.JSON(http.StatusOK, auth.User)
}

// tokenRevoker is implemented by backends that can invalidate a session
// token server side. The remote backend cannot, so logout there only
// drops the cookie.
type tokenRevoker interface {
	RevokeToken(ctx context.Context, token string) error
}

func (s *Server) Logout(c *gin.Context) {
	if token, ok := s.sessions.ReadToken(c); ok {
		if revoker, ok := s.store.(tokenRevoker); ok {
			if err := revoker.RevokeToken(c.Request.Context(), token); err != nil {
				s.logger.Warn("token revoke failed", zap.Error(err))
			}
		}
	}

	s.sessions.Clear(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) Me(c *gin.Context) {
	h := session.HandleFrom(c)
	if !h.Authenticated() {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, h.User)
}
