// Package deviceapi is a thin authenticated client for the external
// device-control API that places and manages phone calls and recordings.
// The gateway holds no state: credentials are read fresh per operation so
// rotation takes effect immediately, and no operation is ever retried.
package deviceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// ErrNotConfigured means the host or API key is missing. It is raised before
// any network I/O: a misconfigured gateway must fail fast, not time out.
var ErrNotConfigured = errors.New("device API host or key not configured")

// APIError is a non-2xx reply, carried verbatim. The remote error schema is
// opaque to this system, so no structured parsing is attempted.
type APIError struct {
	Status int
	Phrase string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed: %d %s - %s", e.Status, e.Phrase, e.Body)
}

// Credential is the per-user {host, apiKey} pair authenticating every call.
type Credential struct {
	Host   string
	APIKey string
}

func (c Credential) validate() error {
	if strings.TrimSpace(c.Host) == "" || strings.TrimSpace(c.APIKey) == "" {
		return ErrNotConfigured
	}
	return nil
}

// HealthInfo is the reply of the unauthenticated health endpoint.
type HealthInfo struct {
	API     string `json:"api"`
	Version string `json:"version"`
}

// Client issues requests against the device-control API.
type Client struct {
	http *http.Client
	log  *zap.Logger
}

func NewClient(logger *zap.Logger) *Client {
	return &Client{
		http: http.DefaultClient,
		log:  logger.Named("deviceapi"),
	}
}

// WithHTTPClient overrides the transport, used in tests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// Health probes the API without requiring a key; the key is still attached
// when present. Only the host must be configured.
func (c *Client) Health(ctx context.Context, cred Credential) (*HealthInfo, error) {
	if strings.TrimSpace(cred.Host) == "" {
		return nil, ErrNotConfigured
	}
	raw, err := c.request(ctx, cred, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	var info HealthInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) PlaceCall(ctx context.Context, cred Credential, phoneNumber string, simSlot *int) (json.RawMessage, error) {
	body := map[string]any{"phone_number": phoneNumber}
	if simSlot != nil {
		body["sim_slot"] = *simSlot
	}
	return c.do(ctx, cred, http.MethodPost, "/api/calls/make", body)
}

func (c *Client) Hangup(ctx context.Context, cred Credential) (json.RawMessage, error) {
	return c.do(ctx, cred, http.MethodPost, "/api/calls/hangup", nil)
}

func (c *Client) CallStatus(ctx context.Context, cred Credential) (json.RawMessage, error) {
	return c.do(ctx, cred, http.MethodGet, "/api/calls/status", nil)
}

func (c *Client) DeviceStatus(ctx context.Context, cred Credential) (json.RawMessage, error) {
	return c.do(ctx, cred, http.MethodGet, "/api/adb/status", nil)
}

func (c *Client) GetSettings(ctx context.Context, cred Credential) (json.RawMessage, error) {
	return c.do(ctx, cred, http.MethodGet, "/api/settings", nil)
}

func (c *Client) UpdateSettings(ctx context.Context, cred Credential, settings map[string]any) (json.RawMessage, error) {
	return c.do(ctx, cred, http.MethodPost, "/api/settings", settings)
}

func (c *Client) ListRecordings(ctx context.Context, cred Credential) (json.RawMessage, error) {
	return c.do(ctx, cred, http.MethodGet, "/api/recordings", nil)
}

// TransferRecording pulls a recording from the device onto the API server.
// Direction is "incoming" or "outgoing".
func (c *Client) TransferRecording(ctx context.Context, cred Credential, filename, direction string) (json.RawMessage, error) {
	return c.do(ctx, cred, http.MethodPost, "/api/recordings/"+url.PathEscape(filename), map[string]any{"type": direction})
}

func (c *Client) DeleteRecording(ctx context.Context, cred Credential, filename, direction string) (json.RawMessage, error) {
	return c.do(ctx, cred, http.MethodDelete, "/api/recordings/"+url.PathEscape(filename), map[string]any{"type": direction})
}

// StreamRecording fetches the raw audio bytes. The caller owns the returned
// reader and must close it.
func (c *Client) StreamRecording(ctx context.Context, cred Credential, filename string) (io.ReadCloser, string, error) {
	if err := cred.validate(); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinURL(cred.Host, "/api/stream-recording/"+url.PathEscape(filename)), nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("X-API-Key", cred.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, "", &APIError{
			Status: resp.StatusCode,
			Phrase: http.StatusText(resp.StatusCode),
			Body:   strings.TrimSpace(string(payload)),
		}
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

func (c *Client) Transcribe(ctx context.Context, cred Credential, filename, language string) (json.RawMessage, error) {
	path := "/api/transcribe/" + url.PathEscape(filename)
	if language != "" {
		path += "?language=" + url.QueryEscape(language)
	}
	return c.do(ctx, cred, http.MethodPost, path, nil)
}

func (c *Client) CreateKey(ctx context.Context, cred Credential, name string) (json.RawMessage, error) {
	return c.do(ctx, cred, http.MethodPost, "/api/keys", map[string]any{"name": name})
}

func (c *Client) ListKeys(ctx context.Context, cred Credential) (json.RawMessage, error) {
	return c.do(ctx, cred, http.MethodGet, "/api/keys", nil)
}

func (c *Client) DeleteKey(ctx context.Context, cred Credential, name string) (json.RawMessage, error) {
	return c.do(ctx, cred, http.MethodDelete, "/api/keys/"+url.PathEscape(name), nil)
}

func (c *Client) do(ctx context.Context, cred Credential, method, path string, body any) (json.RawMessage, error) {
	if err := cred.validate(); err != nil {
		return nil, err
	}
	return c.request(ctx, cred, method, path, body)
}

func (c *Client) request(ctx context.Context, cred Credential, method, path string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, joinURL(cred.Host, path), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if cred.APIKey != "" {
		req.Header.Set("X-API-Key", cred.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("device API request failed",
			zap.String("method", method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &APIError{
			Status: resp.StatusCode,
			Phrase: http.StatusText(resp.StatusCode),
			Body:   strings.TrimSpace(string(payload)),
		}
	}
	return json.RawMessage(payload), nil
}

func joinURL(host, path string) string {
	return strings.TrimRight(host, "/") + path
}
