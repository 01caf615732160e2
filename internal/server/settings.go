package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/voixlabs/dialdash/internal/deviceapi"
)

type DeviceSettingsRequest struct {
	Host   string `json:"host"`
	APIKey string `json:"apiKey"`
}

func (s *Server) GetDeviceSettings(c *gin.Context) {
	h := handleFrom(c)

	settings, err := s.settings.Get(c.Request.Context(), h)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

func (s *Server) SaveDeviceSettings(c *gin.Context) {
	h := handleFrom(c)

	var req DeviceSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	settings, err := s.settings.Save(c.Request.Context(), h, req.Host, req.APIKey)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

// TestDeviceConnection probes the device API with the submitted credential,
// not the stored one, so users can verify before saving.
func (s *Server) TestDeviceConnection(c *gin.Context) {
	if !handleFrom(c).Authenticated() {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req DeviceSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	cred := deviceapi.Credential{
		Host:   strings.TrimRight(strings.TrimSpace(req.Host), "/"),
		APIKey: strings.TrimSpace(req.APIKey),
	}

	info, err := s.gateway.Health(c.Request.Context(), cred)
	s.metrics.RecordDeviceRequest("health", err)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, actionResult{
		Success: true,
		Message: fmt.Sprintf("Connected to %s v%s", info.API, info.Version),
	})
}
