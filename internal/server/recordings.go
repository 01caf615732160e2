package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/voixlabs/dialdash/internal/deviceapi"
)

// proxyDevice runs one device API operation with the caller's saved
// credential and relays the device's JSON response as-is. Every device
// request is counted per operation and outcome.
func (s *Server) proxyDevice(c *gin.Context, operation string, call func(cred deviceapi.Credential) (any, error)) {
	h := handleFrom(c)

	cred, err := s.settings.Credential(c.Request.Context(), h)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := call(cred)
	s.metrics.RecordDeviceRequest(operation, err)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) DeviceStatus(c *gin.Context) {
	s.proxyDevice(c, "device_status", func(cred deviceapi.Credential) (any, error) {
		return s.gateway.DeviceStatus(c.Request.Context(), cred)
	})
}

func (s *Server) ListRecordings(c *gin.Context) {
	s.proxyDevice(c, "list_recordings", func(cred deviceapi.Credential) (any, error) {
		return s.gateway.ListRecordings(c.Request.Context(), cred)
	})
}

func (s *Server) TransferRecording(c *gin.Context) {
	filename := c.Param("filename")
	direction := recordingDirection(c)

	s.proxyDevice(c, "transfer_recording", func(cred deviceapi.Credential) (any, error) {
		return s.gateway.TransferRecording(c.Request.Context(), cred, filename, direction)
	})
}

func (s *Server) DeleteRecording(c *gin.Context) {
	filename := c.Param("filename")
	direction := recordingDirection(c)

	s.proxyDevice(c, "delete_recording", func(cred deviceapi.Credential) (any, error) {
		return s.gateway.DeleteRecording(c.Request.Context(), cred, filename, direction)
	})
}

// StreamRecording relays the audio body without buffering it. Content length
// is unknown upstream, so the response is chunked.
func (s *Server) StreamRecording(c *gin.Context) {
	h := handleFrom(c)

	cred, err := s.settings.Credential(c.Request.Context(), h)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body, contentType, err := s.gateway.StreamRecording(c.Request.Context(), cred, c.Param("filename"))
	s.metrics.RecordDeviceRequest("stream_recording", err)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer body.Close()

	c.DataFromReader(http.StatusOK, -1, contentType, body, nil)
}

func (s *Server) TranscribeRecording(c *gin.Context) {
	filename := c.Param("filename")
	language := strings.TrimSpace(c.Query("language"))

	s.proxyDevice(c, "transcribe", func(cred deviceapi.Credential) (any, error) {
		return s.gateway.Transcribe(c.Request.Context(), cred, filename, language)
	})
}

func (s *Server) ListDeviceKeys(c *gin.Context) {
	s.proxyDevice(c, "list_keys", func(cred deviceapi.Credential) (any, error) {
		return s.gateway.ListKeys(c.Request.Context(), cred)
	})
}

func (s *Server) CreateDeviceKey(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		AbortWithError(c, newValidationError("name", "required", "key name is required"))
		return
	}

	s.proxyDevice(c, "create_key", func(cred deviceapi.Credential) (any, error) {
		return s.gateway.CreateKey(c.Request.Context(), cred, name)
	})
}

func (s *Server) DeleteDeviceKey(c *gin.Context) {
	name := c.Param("name")

	s.proxyDevice(c, "delete_key", func(cred deviceapi.Credential) (any, error) {
		return s.gateway.DeleteKey(c.Request.Context(), cred, name)
	})
}

func recordingDirection(c *gin.Context) string {
	direction := strings.TrimSpace(c.Query("type"))
	if direction == "" {
		direction = "incoming"
	}
	return direction
}
