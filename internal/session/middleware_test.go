package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/voixlabs/dialdash/internal/config"
	"github.com/voixlabs/dialdash/internal/store"
	"go.uber.org/zap"
)

type fakeStore struct {
	store.Store

	refreshCalls int
	auth         *store.Auth
	err          error
}

func (f *fakeStore) AuthRefresh(ctx context.Context, token string) (*store.Auth, error) {
	f.refreshCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.auth, nil
}

func setupEngine(st store.Store) (*gin.Engine, *Manager) {
	gin.SetMode(gin.TestMode)
	sessions := NewManager(config.Config{})
	r := gin.New()
	r.Use(Establish(st, sessions, zap.NewNop()))
	r.GET("/probe", func(c *gin.Context) {
		h := HandleFrom(c)
		if h.Authenticated() {
			c.JSON(http.StatusOK, gin.H{"user": h.User.ID})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": nil})
	})
	return r, sessions
}

func TestEstablishRefreshesOnce(t *testing.T) {
	st := &fakeStore{auth: &store.Auth{
		Token: "tok-1",
		User:  store.User{ID: "u1"},
	}}
	r, sessions := setupEngine(st)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.AddCookie(&http.Cookie{Name: sessions.CookieName(), Value: "tok-1"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if st.refreshCalls != 1 {
		t.Fatalf("refresh calls = %d, want 1", st.refreshCalls)
	}
	if !strings.Contains(w.Body.String(), `"user":"u1"`) {
		t.Fatalf("body = %s", w.Body.String())
	}

	cookie := findCookie(w.Result().Cookies(), sessions.CookieName())
	if cookie == nil || cookie.Value != "tok-1" {
		t.Fatalf("expected refreshed cookie, got %+v", cookie)
	}
	if !cookie.HttpOnly || cookie.Path != "/" {
		t.Fatalf("cookie attributes = %+v", cookie)
	}
}

func TestEstablishClearsOnInvalidToken(t *testing.T) {
	st := &fakeStore{err: store.ErrInvalidToken}
	r, sessions := setupEngine(st)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.AddCookie(&http.Cookie{Name: sessions.CookieName(), Value: "stale"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// request degrades to anonymous, never fails
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"user":null`) {
		t.Fatalf("body = %s", w.Body.String())
	}

	cookie := findCookie(w.Result().Cookies(), sessions.CookieName())
	if cookie == nil || cookie.Value != "" || cookie.MaxAge >= 0 {
		t.Fatalf("expected clearing cookie, got %+v", cookie)
	}
}

func TestEstablishAnonymousWithoutCookie(t *testing.T) {
	st := &fakeStore{}
	r, _ := setupEngine(st)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if st.refreshCalls != 0 {
		t.Fatalf("refresh calls = %d, want 0", st.refreshCalls)
	}
	if !strings.Contains(w.Body.String(), `"user":null`) {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestHandleFromWithoutEstablish(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	h := HandleFrom(c)
	if h.Authenticated() {
		t.Fatal("zero handle must be anonymous")
	}
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}
