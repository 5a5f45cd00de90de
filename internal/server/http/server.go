// Package http serves the back-office pages behind the navigation guard,
// plus sign-in, sign-out, health and metrics endpoints.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/apotek/internal/backend"
	"github.com/dmitrijs2005/apotek/internal/common"
	"github.com/dmitrijs2005/apotek/internal/logging"
	"github.com/dmitrijs2005/apotek/internal/router"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	address      string
	guard        *router.Guard
	auth         backend.Authenticator
	metrics      *Metrics
	logger       logging.Logger
	secureCookie bool
}

// NewServer wires the HTTP surface. metrics must be the same Metrics the
// guard records into.
func NewServer(address string, guard *router.Guard, auth backend.Authenticator, metrics *Metrics, l logging.Logger) *Server {
	return &Server{
		address: address,
		guard:   guard,
		auth:    auth,
		metrics: metrics,
		logger:  l.With("module", "http_server"),
	}
}

// SecureCookie marks the session cookie Secure, for HTTPS deployments.
func (s *Server) SecureCookie(v bool) {
	s.secureCookie = v
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.With(s.guardMiddleware).Get("/*", s.handlePage)

	return r
}

type decisionKey struct{}

func decisionFromContext(ctx context.Context) (router.Decision, bool) {
	d, ok := ctx.Value(decisionKey{}).(router.Decision)
	return d, ok
}

func (s *Server) guardMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := s.guard.Navigate(r.Context(), router.Navigation{
			To:    r.URL.Path,
			From:  refererPath(r),
			Token: accessToken(r),
		})

		switch {
		case d.Outcome != router.Allow:
			http.Redirect(w, r, d.Location, http.StatusSeeOther)
			return
		case !d.Found:
			http.NotFound(w, r)
			return
		case d.Target.Redirected:
			http.Redirect(w, r, d.Target.Path, http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), decisionKey{}, d)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	d, ok := decisionFromContext(r.Context())
	if !ok {
		http.NotFound(w, r)
		return
	}

	data := pageData{
		Name:  d.Target.Name,
		Title: d.Target.Title,
		Login: d.Target.Name == router.NameLogin,
	}
	if d.Session != nil {
		data.UserEmail = d.Session.User.Email
	}
	s.renderPage(w, r, http.StatusOK, data)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_form")
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	password := r.PostForm.Get("password")

	login := pageData{Name: router.NameLogin, Title: "Login", Login: true, Email: email}

	if email == "" || password == "" {
		login.Error = "Email dan password wajib diisi"
		s.renderPage(w, r, http.StatusBadRequest, login)
		return
	}

	session, err := s.auth.SignIn(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			login.Error = "Email atau password salah"
			s.renderPage(w, r, http.StatusUnauthorized, login)
			return
		}
		s.logger.Error(r.Context(), "sign in failed", "email", email, "error", err)
		login.Error = "Layanan sedang tidak tersedia"
		s.renderPage(w, r, http.StatusBadGateway, login)
		return
	}

	cookie := &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    session.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if !session.ExpiresAt.IsZero() {
		cookie.Expires = session.ExpiresAt
	}
	http.SetCookie(w, cookie)

	s.logger.Info(r.Context(), "signed in", "user_id", session.User.ID)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := accessToken(r); token != "" {
		if err := s.auth.SignOut(r.Context(), token); err != nil {
			s.logger.Warn(r.Context(), "sign out failed", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve handles requests on lis until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// accessToken reads the session cookie, falling back to a bearer token.
func accessToken(r *http.Request) string {
	if c, err := r.Cookie(common.SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return bearerToken(r.Header.Get(common.AuthorizationHeaderName))
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func refererPath(r *http.Request) string {
	ref := r.Referer()
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return u.Path
}
