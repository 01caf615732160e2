package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/voixlabs/dialdash/internal/contact"
	"github.com/voixlabs/dialdash/internal/deviceapi"
	"github.com/voixlabs/dialdash/internal/observability"
	"go.uber.org/zap"
)

type LogCallRequest struct {
	ClientName  string `json:"client_name"`
	PhoneNumber string `json:"phone_number"`
	SimSlot     *int   `json:"sim_slot,omitempty"`
}

type actionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) ListCalls(c *gin.Context) {
	h := handleFrom(c)

	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)

	entries, err := s.tracker.List(c.Request.Context(), h, page, pageSize)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":     entries,
		"page":      page,
		"page_size": pageSize,
	})
}

// LogCall resolves the dialed number to a contact, records the call as
// Initiated, then asks the device to place it. A device failure flips the
// fresh log to Failed so it never lingers as a phantom active call.
func (s *Server) LogCall(c *gin.Context) {
	h := handleFrom(c)

	var req LogCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	clientName := strings.TrimSpace(req.ClientName)
	phoneNumber := strings.TrimSpace(req.PhoneNumber)
	if clientName == "" {
		AbortWithError(c, newValidationError("client_name", "required", "client name is required"))
		return
	}
	if phoneNumber == "" {
		AbortWithError(c, newValidationError("phone_number", "required", "phone number is required"))
		return
	}

	matched, err := s.resolver.Resolve(c.Request.Context(), h, clientName, phoneNumber)
	if err != nil {
		var ambiguous *contact.AmbiguousError
		switch {
		case errors.Is(err, contact.ErrNoMatch):
			c.JSON(http.StatusNotFound, actionResult{
				Success: false,
				Message: "Client not found. Please add the client to your contacts first.",
			})
		case errors.Is(err, contact.ErrStoreUnavailable):
			c.JSON(http.StatusBadGateway, actionResult{
				Success: false,
				Message: "Contact lookup is unavailable. Please try again.",
			})
		case errors.As(err, &ambiguous):
			c.JSON(http.StatusConflict, gin.H{
				"success":    false,
				"message":    "Multiple contacts match this phone number.",
				"candidates": ambiguous.Candidates,
			})
		default:
			AbortWithError(c, err)
		}
		return
	}

	entry, err := s.tracker.Create(c.Request.Context(), h, *matched)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	cred, err := s.settings.Credential(c.Request.Context(), h)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if _, err := s.gateway.PlaceCall(c.Request.Context(), cred, phoneNumber, req.SimSlot); err != nil {
		if markErr := s.tracker.MarkFailed(c.Request.Context(), h, entry.ID); markErr != nil {
			s.logger.Warn("could not mark call log failed", zap.String("call_log_id", entry.ID), zap.Error(markErr))
		}
		s.metrics.RecordCallEvent(observability.CallEventFailed)
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordCallEvent(observability.CallEventInitiated)

	c.JSON(http.StatusOK, actionResult{
		Success: true,
		Message: "Call to " + matched.Name + " logged.",
	})
}

// EndCall closes the most recent Initiated call. Having no active call is a
// normal outcome, not an error.
func (s *Server) EndCall(c *gin.Context) {
	h := handleFrom(c)

	ended, err := s.tracker.EndMostRecent(c.Request.Context(), h)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if ended == nil {
		s.metrics.RecordCallEvent(observability.CallEventNoActive)
		c.JSON(http.StatusOK, actionResult{
			Success: true,
			Message: "No active call to end.",
		})
		return
	}

	s.metrics.RecordCallEvent(observability.CallEventEnded)
	c.JSON(http.StatusOK, actionResult{
		Success: true,
		Message: "Call ended.",
	})
}

func (s *Server) CallStatus(c *gin.Context) {
	s.proxyDevice(c, "call_status", func(cred deviceapi.Credential) (any, error) {
		return s.gateway.CallStatus(c.Request.Context(), cred)
	})
}

func (s *Server) Hangup(c *gin.Context) {
	s.proxyDevice(c, "hangup", func(cred deviceapi.Credential) (any, error) {
		return s.gateway.Hangup(c.Request.Context(), cred)
	})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
