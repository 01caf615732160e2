package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/voixlabs/dialdash/internal/calllog"
	"github.com/voixlabs/dialdash/internal/config"
	"github.com/voixlabs/dialdash/internal/contact"
	"github.com/voixlabs/dialdash/internal/deviceapi"
	"github.com/voixlabs/dialdash/internal/devicesettings"
	"github.com/voixlabs/dialdash/internal/observability"
	"github.com/voixlabs/dialdash/internal/session"
	"github.com/voixlabs/dialdash/internal/store"
	"go.uber.org/zap"
)

const testToken = "test-token"

// fakeRecordStore is an in-memory record store for handler tests. Every
// operation accepts only testToken so auth wiring is exercised too.
type fakeRecordStore struct {
	contacts    []store.Contact
	logs        []store.CallLog
	credential  *store.DeviceCredential
	nextID      int
	loginErr    error
	listErr     error
	revoked     []string
	authRefresh int
}

func (f *fakeRecordStore) id() string {
	f.nextID++
	return "id-" + strconv.Itoa(f.nextID)
}

func (f *fakeRecordStore) AuthWithPassword(ctx context.Context, email, password string) (*store.Auth, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	if password != "correct horse" {
		return nil, store.ErrInvalidCredentials
	}
	return &store.Auth{Token: testToken, User: store.User{ID: "u1", Email: email}}, nil
}

func (f *fakeRecordStore) AuthRefresh(ctx context.Context, token string) (*store.Auth, error) {
	f.authRefresh++
	if token != testToken {
		return nil, store.ErrInvalidToken
	}
	return &store.Auth{Token: testToken, User: store.User{ID: "u1", Email: "alice@example.com"}}, nil
}

func (f *fakeRecordStore) RevokeToken(ctx context.Context, token string) error {
	f.revoked = append(f.revoked, token)
	return nil
}

func (f *fakeRecordStore) ListContacts(ctx context.Context, token string, filter store.ContactFilter) ([]store.Contact, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if filter.Name == "" {
		return f.contacts, nil
	}
	var out []store.Contact
	for _, c := range f.contacts {
		if c.Name == filter.Name {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRecordStore) GetContact(ctx context.Context, token, id string) (*store.Contact, error) {
	for i := range f.contacts {
		if f.contacts[i].ID == id {
			return &f.contacts[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeRecordStore) CreateContact(ctx context.Context, token string, c store.Contact) (*store.Contact, error) {
	c.ID = f.id()
	f.contacts = append(f.contacts, c)
	return &c, nil
}

func (f *fakeRecordStore) UpdateContact(ctx context.Context, token string, c store.Contact) (*store.Contact, error) {
	for i := range f.contacts {
		if f.contacts[i].ID == c.ID {
			f.contacts[i] = c
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeRecordStore) DeleteContact(ctx context.Context, token, id string) error {
	for i := range f.contacts {
		if f.contacts[i].ID == id {
			f.contacts = append(f.contacts[:i], f.contacts[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeRecordStore) CreateCallLog(ctx context.Context, token string, entry store.CallLog) (*store.CallLog, error) {
	entry.ID = f.id()
	entry.Created = time.Now().Add(time.Duration(f.nextID) * time.Second)
	f.logs = append(f.logs, entry)
	return &entry, nil
}

func (f *fakeRecordStore) LatestInitiated(ctx context.Context, token, userID string) (*store.CallLog, error) {
	var latest *store.CallLog
	for i := range f.logs {
		entry := &f.logs[i]
		if entry.UserID != userID || entry.Status != store.CallInitiated {
			continue
		}
		if latest == nil || entry.Created.After(latest.Created) {
			latest = entry
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeRecordStore) SetCallLogStatus(ctx context.Context, token, id string, from, to store.CallStatus) (bool, error) {
	for i := range f.logs {
		if f.logs[i].ID == id && f.logs[i].Status == from {
			f.logs[i].Status = to
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRecordStore) ListCallLogs(ctx context.Context, token, userID string, page, perPage int) ([]store.CallLog, error) {
	out := make([]store.CallLog, 0, len(f.logs))
	for i := len(f.logs) - 1; i >= 0; i-- {
		if f.logs[i].UserID == userID {
			out = append(out, f.logs[i])
		}
	}
	return out, nil
}

func (f *fakeRecordStore) GetDeviceCredential(ctx context.Context, token, userID string) (*store.DeviceCredential, error) {
	return f.credential, nil
}

func (f *fakeRecordStore) SaveDeviceCredential(ctx context.Context, token string, cred store.DeviceCredential) (*store.DeviceCredential, error) {
	if cred.ID == "" {
		cred.ID = f.id()
	}
	f.credential = &cred
	return &cred, nil
}

type testEnv struct {
	server *Server
	store  *fakeRecordStore
	device *httptest.Server
}

// newDeviceServer fakes the device-control API: happy path for everything.
func newDeviceServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			_ = json.NewEncoder(w).Encode(deviceapi.HealthInfo{API: "device-control", Version: "2.3.0"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := &fakeRecordStore{}
	device := newDeviceServer()
	t.Cleanup(device.Close)
	st.credential = &store.DeviceCredential{
		ID: "cred-1", UserID: "u1", Host: device.URL, APIKey: "key-1",
	}

	logger := zap.NewNop()
	metrics := observability.NewMetricsWith(prometheus.NewRegistry())
	engine := NewEngine(logger, metrics)

	srv := NewServer(ServerParams{
		Gin:      engine,
		Cfg:      config.Config{AppName: "dialdash", AppVersion: "test"},
		Store:    st,
		Sessions: session.NewManager(config.Config{}),
		Resolver: contact.NewResolver(logger),
		Tracker:  calllog.NewTracker(logger),
		Gateway:  deviceapi.NewClient(logger),
		Settings: devicesettings.NewService(logger),
		Metrics:  metrics,
		Logger:   logger,
	})

	return &testEnv{server: srv, store: st, device: device}
}

func (e *testEnv) request(t *testing.T, method, path string, payload any, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewBuffer(encoded)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: testToken})
	}

	w := httptest.NewRecorder()
	e.server.Engine().ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}
