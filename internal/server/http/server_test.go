package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/apotek/internal/backend"
	"github.com/dmitrijs2005/apotek/internal/common"
	"github.com/dmitrijs2005/apotek/internal/logging"
	"github.com/dmitrijs2005/apotek/internal/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu         sync.Mutex
	sessions   map[string]*backend.Session
	sessionErr error
	signInErr  error
	signOutErr error
	signedOut  []string
	checks     int
}

func (f *fakeBackend) GetSession(_ context.Context, token string) (*backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return f.sessions[token], nil
}

func (f *fakeBackend) SignIn(_ context.Context, email, password string) (*backend.Session, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	if email != "admin@apotek.local" || password != "rahasia" {
		return nil, common.ErrorUnauthorized
	}
	s := &backend.Session{
		AccessToken: "tok-new",
		ExpiresAt:   time.Now().Add(time.Hour),
		User:        backend.User{ID: "u-1", Email: email},
	}
	f.mu.Lock()
	f.sessions[s.AccessToken] = s
	f.mu.Unlock()
	return s, nil
}

func (f *fakeBackend) SignOut(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedOut = append(f.signedOut, token)
	delete(f.sessions, token)
	return f.signOutErr
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{sessions: map[string]*backend.Session{
		"good": {AccessToken: "good", User: backend.User{ID: "u-1", Email: "admin@apotek.local"}},
	}}
}

func newTestServer(t *testing.T, b *fakeBackend) *httptest.Server {
	t.Helper()
	m := NewMetrics()
	g := router.NewGuard(router.NewTable(router.AppRoutes()), b, logging.Nop{}, router.WithRecorder(m))
	s := NewServer(":0", g, b, m, logging.Nop{})
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return ts
}

func noRedirectClient() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func get(t *testing.T, ts *httptest.Server, path string, mutate func(*http.Request)) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	require.NoError(t, err)
	if mutate != nil {
		mutate(req)
	}
	resp, err := noRedirectClient().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func withCookie(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: common.SessionCookieName, Value: token})
	}
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestGuardedPages(t *testing.T) {
	ts := newTestServer(t, newFakeBackend())

	tests := []struct {
		name     string
		path     string
		mutate   func(*http.Request)
		status   int
		location string
		contains string
	}{
		{name: "protected page without session", path: "/medicines", status: http.StatusSeeOther, location: "/login"},
		{name: "protected page with bad cookie", path: "/sales", mutate: withCookie("bad"), status: http.StatusSeeOther, location: "/login"},
		{name: "protected page with cookie", path: "/medicines", mutate: withCookie("good"), status: http.StatusOK, contains: "Halaman Data Obat"},
		{name: "protected page with bearer", path: "/suppliers", mutate: withBearer("good"), status: http.StatusOK, contains: "Halaman Data Supplier"},
		{name: "root without session", path: "/", status: http.StatusSeeOther, location: "/login"},
		{name: "root with session", path: "/", mutate: withCookie("good"), status: http.StatusSeeOther, location: "/dashboard"},
		{name: "login page without session", path: "/login", status: http.StatusOK, contains: `action="/login"`},
		{name: "login page with session", path: "/login", mutate: withCookie("good"), status: http.StatusSeeOther, location: "/dashboard"},
		{name: "unknown page", path: "/nope", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, ts, tt.path, tt.mutate)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.location != "" {
				assert.Equal(t, tt.location, resp.Header.Get("Location"))
			}
			if tt.contains != "" {
				assert.Contains(t, body(t, resp), tt.contains)
			}
		})
	}
}

func TestGuard_SessionErrorRedirectsToLogin(t *testing.T) {
	b := newFakeBackend()
	b.sessionErr = errors.New("connection refused")
	ts := newTestServer(t, b)

	resp := get(t, ts, "/dashboard", withCookie("good"))
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	metrics := body(t, get(t, ts, "/metrics", nil))
	assert.Contains(t, metrics, "apotek_guard_session_errors_total 1")
	assert.Contains(t, metrics, `apotek_guard_decisions_total{outcome="redirect_login"} 1`)
}

func TestLogin_SetsCookieAndRedirects(t *testing.T) {
	b := newFakeBackend()
	ts := newTestServer(t, b)

	form := url.Values{"email": {"admin@apotek.local"}, "password": {"rahasia"}}
	resp, err := noRedirectClient().PostForm(ts.URL+"/login", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == common.SessionCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "session cookie not set")
	assert.Equal(t, "tok-new", cookie.Value)
	assert.True(t, cookie.HttpOnly)

	page := get(t, ts, "/dashboard", withCookie(cookie.Value))
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Contains(t, body(t, page), "admin@apotek.local")
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name      string
		form      url.Values
		signInErr error
		status    int
		contains  string
	}{
		{name: "wrong password", form: url.Values{"email": {"admin@apotek.local"}, "password": {"salah"}}, status: http.StatusUnauthorized, contains: "Email atau password salah"},
		{name: "missing password", form: url.Values{"email": {"admin@apotek.local"}}, status: http.StatusBadRequest, contains: "wajib diisi"},
		{name: "backend down", form: url.Values{"email": {"admin@apotek.local"}, "password": {"rahasia"}}, signInErr: errors.New("timeout"), status: http.StatusBadGateway, contains: "tidak tersedia"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend()
			b.signInErr = tt.signInErr
			ts := newTestServer(t, b)

			resp, err := noRedirectClient().PostForm(ts.URL+"/login", tt.form)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Empty(t, resp.Cookies())
			assert.Contains(t, body(t, resp), tt.contains)
		})
	}
}

func TestLogout(t *testing.T) {
	b := newFakeBackend()
	b.signOutErr = errors.New("backend unreachable")
	ts := newTestServer(t, b)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/logout", strings.NewReader(""))
	require.NoError(t, err)
	withCookie("good")(req)

	resp, err := noRedirectClient().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Equal(t, []string{"good"}, b.signedOut)

	cleared := false
	for _, c := range resp.Cookies() {
		if c.Name == common.SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "session cookie should be cleared")
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, newFakeBackend())

	resp := get(t, ts, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, body(t, resp))
}

func TestGuard_RequeriesEveryRequest(t *testing.T) {
	b := newFakeBackend()
	ts := newTestServer(t, b)

	get(t, ts, "/dashboard", withCookie("good"))
	get(t, ts, "/profile", withCookie("good"))
	get(t, ts, "/login", nil)

	assert.Equal(t, 3, b.checks)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc "))
	assert.Equal(t, "", bearerToken("Basic abc"))
	assert.Equal(t, "", bearerToken("Bearer"))
	assert.Equal(t, "", bearerToken(""))
}

func TestServe_StopsOnContextCancel(t *testing.T) {
	m := NewMetrics()
	b := newFakeBackend()
	g := router.NewGuard(router.NewTable(router.AppRoutes()), b, logging.Nop{}, router.WithRecorder(m))
	s := NewServer("127.0.0.1:0", g, b, m, logging.Nop{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}
