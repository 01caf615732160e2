// Full-stack tests: real HTTP surface, embedded sqlite store, fake device
// API. Only the network edges are replaced.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/voixlabs/dialdash/internal/calllog"
	"github.com/voixlabs/dialdash/internal/config"
	"github.com/voixlabs/dialdash/internal/contact"
	"github.com/voixlabs/dialdash/internal/deviceapi"
	"github.com/voixlabs/dialdash/internal/devicesettings"
	"github.com/voixlabs/dialdash/internal/observability"
	"github.com/voixlabs/dialdash/internal/server"
	"github.com/voixlabs/dialdash/internal/session"
	"github.com/voixlabs/dialdash/internal/store/local"
	"github.com/voixlabs/dialdash/pkg/db"
	"go.uber.org/zap"
)

type env struct {
	base   string
	client *http.Client
	device *httptest.Server
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := db.NewTest()
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	logger := zap.NewNop()
	st, err := local.New(gdb, node, logger)
	require.NoError(t, err)

	_, err = st.CreateUser(context.Background(),"alice@example.com", "correct horse", "Alice")
	require.NoError(t, err)

	device := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "device-key" && r.URL.Path != "/health" {
			http.Error(w, `{"detail":"invalid key"}`, http.StatusUnauthorized)
			return
		}
		if r.URL.Path == "/health" {
			_ = json.NewEncoder(w).Encode(deviceapi.HealthInfo{API: "device-control", Version: "2.3.0"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	t.Cleanup(device.Close)

	metrics := observability.NewMetricsWith(prometheus.NewRegistry())
	engine := server.NewEngine(logger, metrics)
	srv := server.NewServer(server.ServerParams{
		Gin:      engine,
		Cfg:      config.Config{AppName: "dialdash", AppVersion: "e2e"},
		Store:    st,
		Sessions: session.NewManager(config.Config{}),
		Resolver: contact.NewResolver(logger),
		Tracker:  calllog.NewTracker(logger),
		Gateway:  deviceapi.NewClient(logger),
		Settings: devicesettings.NewService(logger),
		Metrics:  metrics,
		Logger:   logger,
	})

	web := httptest.NewServer(srv.Engine())
	t.Cleanup(web.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &env{
		base:   web.URL,
		client: &http.Client{Jar: jar},
		device: device,
	}
}

func (e *env) do(t *testing.T, method, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(encoded)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, e.base+path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func login(t *testing.T, e *env) {
	t.Helper()
	resp, _ := e.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "correct horse",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCallFlow(t *testing.T) {
	e := newEnv(t)
	login(t, e)

	// device settings must be in place before dialing
	resp, _ := e.do(t, http.MethodPut, "/api/settings/device", map[string]string{
		"host":   e.device.URL,
		"apiKey": "device-key",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, created := e.do(t, http.MethodPost, "/api/contacts", map[string]string{
		"name":  "Acme",
		"phone": "+40 774 463 442",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, created["id"])

	resp, result := e.do(t, http.MethodPost, "/api/calls", map[string]string{
		"client_name":  "Acme",
		"phone_number": "0774463442",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, result["success"])

	resp, result = e.do(t, http.MethodPost, "/api/calls/end", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Call ended.", result["message"])

	// ending again is a recoverable no-op
	resp, result = e.do(t, http.MethodPost, "/api/calls/end", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "No active call to end.", result["message"])

	resp, listed := e.do(t, http.MethodGet, "/api/calls", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := listed["items"].([]any)
	require.Len(t, items, 1)
	entry := items[0].(map[string]any)
	require.Equal(t, "Acme", entry["client_name"])
	require.Equal(t, "Ended", entry["status"])
}

func TestSessionLifecycle(t *testing.T) {
	e := newEnv(t)

	// anonymous requests are rejected on the API surface
	resp, _ := e.do(t, http.MethodGet, "/api/contacts", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	login(t, e)

	resp, me := e.do(t, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "alice@example.com", me["email"])

	resp, _ = e.do(t, http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// the token was revoked server side, not just dropped client side
	resp, _ = e.do(t, http.MethodGet, "/api/contacts", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDeviceConnectionTest(t *testing.T) {
	e := newEnv(t)
	login(t, e)

	resp, result := e.do(t, http.MethodPost, "/api/settings/device/test", map[string]string{
		"host":   e.device.URL,
		"apiKey": "device-key",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Connected to device-control v2.3.0", result["message"])
}
