package deviceapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

// countingTransport fails the test if any request reaches the network layer.
type countingTransport struct {
	calls int
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.calls++
	return nil, errors.New("no network expected")
}

func TestUnconfiguredCredentialFailsBeforeNetwork(t *testing.T) {
	transport := &countingTransport{}
	c := NewClient(zap.NewNop()).WithHTTPClient(&http.Client{Transport: transport})
	ctx := context.Background()

	cases := []Credential{
		{},
		{Host: "http://10.0.0.5:8000"},
		{APIKey: "key"},
	}
	for _, cred := range cases {
		if _, err := c.PlaceCall(ctx, cred, "0774463442", nil); !errors.Is(err, ErrNotConfigured) {
			t.Errorf("PlaceCall(%+v) err = %v, want ErrNotConfigured", cred, err)
		}
		if _, _, err := c.StreamRecording(ctx, cred, "rec.wav"); !errors.Is(err, ErrNotConfigured) {
			t.Errorf("StreamRecording(%+v) err = %v, want ErrNotConfigured", cred, err)
		}
	}
	if transport.calls != 0 {
		t.Fatalf("transport calls = %d, want 0", transport.calls)
	}
}

func TestPlaceCallRequestShape(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	c := NewClient(zap.NewNop())
	slot := 1
	raw, err := c.PlaceCall(context.Background(), Credential{Host: srv.URL, APIKey: "key-1"}, "0774463442", &slot)
	if err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}
	if gotPath != "/api/calls/make" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotKey != "key-1" {
		t.Fatalf("X-API-Key = %q", gotKey)
	}
	if gotBody["phone_number"] != "0774463442" || gotBody["sim_slot"] != float64(1) {
		t.Fatalf("body = %+v", gotBody)
	}
	if len(raw) == 0 {
		t.Fatal("expected raw response payload")
	}
}

func TestHealthHostOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "" {
			t.Error("health probe without key must not send the header")
		}
		_ = json.NewEncoder(w).Encode(HealthInfo{API: "device-control", Version: "2.3.0"})
	}))
	defer srv.Close()

	c := NewClient(zap.NewNop())
	info, err := c.Health(context.Background(), Credential{Host: srv.URL})
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if info.API != "device-control" || info.Version != "2.3.0" {
		t.Fatalf("info = %+v", info)
	}

	if _, err := c.Health(context.Background(), Credential{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("host-less health err = %v, want ErrNotConfigured", err)
	}
}

func TestAPIErrorCarriesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"detail":"device offline"}`))
	}))
	defer srv.Close()

	c := NewClient(zap.NewNop())
	_, err := c.DeviceStatus(context.Background(), Credential{Host: srv.URL, APIKey: "key"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", apiErr.Status)
	}
	if apiErr.Body != `{"detail":"device offline"}` {
		t.Fatalf("body = %q, want verbatim upstream body", apiErr.Body)
	}
}

func TestTransferAndDeleteSendDirection(t *testing.T) {
	var gotMethod string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	c := NewClient(zap.NewNop())
	cred := Credential{Host: srv.URL, APIKey: "key"}

	if _, err := c.TransferRecording(context.Background(), cred, "rec.wav", "incoming"); err != nil {
		t.Fatalf("TransferRecording: %v", err)
	}
	if gotMethod != http.MethodPost || gotBody["type"] != "incoming" {
		t.Fatalf("transfer method=%q body=%+v", gotMethod, gotBody)
	}

	if _, err := c.DeleteRecording(context.Background(), cred, "rec.wav", "outgoing"); err != nil {
		t.Fatalf("DeleteRecording: %v", err)
	}
	if gotMethod != http.MethodDelete || gotBody["type"] != "outgoing" {
		t.Fatalf("delete method=%q body=%+v", gotMethod, gotBody)
	}
}

func TestStreamRecordingRelaysContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFFdata"))
	}))
	defer srv.Close()

	c := NewClient(zap.NewNop())
	body, contentType, err := c.StreamRecording(context.Background(), Credential{Host: srv.URL, APIKey: "key"}, "rec.wav")
	if err != nil {
		t.Fatalf("StreamRecording: %v", err)
	}
	defer body.Close()

	if contentType != "audio/wav" {
		t.Fatalf("content type = %q", contentType)
	}
}
