package router

import (
	"context"
	"time"

	"github.com/dmitrijs2005/apotek/internal/backend"
	"github.com/dmitrijs2005/apotek/internal/logging"
)

type Outcome int

const (
	Allow Outcome = iota
	RedirectLogin
	RedirectDashboard
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectDashboard:
		return "redirect_dashboard"
	default:
		return "unknown"
	}
}

// Decide is the guard's decision table. A destination that requires auth
// without a session goes to login; the login page with a session goes to
// the dashboard; everything else proceeds.
func Decide(requiresAuth, sessionPresent, toIsLogin bool) Outcome {
	switch {
	case requiresAuth && !sessionPresent:
		return RedirectLogin
	case toIsLogin && sessionPresent:
		return RedirectDashboard
	default:
		return Allow
	}
}

// Navigation is one attempt to move from From to To. Token is whatever
// access token the client presented, possibly empty.
type Navigation struct {
	To    string
	From  string
	Token string
}

// Decision is the guard's answer for a Navigation. Location is the path to
// send the client to when Outcome is not Allow; on Allow, Target is the
// resolved destination.
type Decision struct {
	Outcome  Outcome
	Location string
	Target   Match
	Found    bool
	Session  *backend.Session
}

// Recorder observes guard activity; the HTTP server backs it with
// Prometheus counters.
type Recorder interface {
	Decision(o Outcome)
	SessionError()
}

type nopRecorder struct{}

func (nopRecorder) Decision(Outcome) {}
func (nopRecorder) SessionError()    {}

type Guard struct {
	routes   *Table
	sessions backend.SessionReader
	logger   logging.Logger
	timeout  time.Duration
	recorder Recorder
}

type Option func(*Guard)

// WithTimeout bounds every session query. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(g *Guard) { g.timeout = d }
}

func WithRecorder(r Recorder) Option {
	return func(g *Guard) { g.recorder = r }
}

func NewGuard(routes *Table, sessions backend.SessionReader, logger logging.Logger, opts ...Option) *Guard {
	g := &Guard{
		routes:   routes,
		sessions: sessions,
		logger:   logger.With("module", "guard"),
		recorder: nopRecorder{},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Navigate asks the backend for the session on every call and applies
// Decide to the resolved destination. A failed session query counts as no
// session, so the guard never lets an unverified caller through.
func (g *Guard) Navigate(ctx context.Context, nav Navigation) Decision {
	target, found := g.routes.Resolve(nav.To)

	session := g.session(ctx, nav)

	o := Decide(target.RequiresAuth, session != nil, target.Name == NameLogin)
	g.recorder.Decision(o)

	d := Decision{Outcome: o, Target: target, Found: found, Session: session}
	switch o {
	case RedirectLogin:
		d.Location, _ = g.routes.PathOf(NameLogin)
	case RedirectDashboard:
		d.Location, _ = g.routes.PathOf(NameDashboard)
	}
	return d
}

func (g *Guard) session(ctx context.Context, nav Navigation) *backend.Session {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	s, err := g.sessions.GetSession(ctx, nav.Token)
	if err != nil {
		g.recorder.SessionError()
		g.logger.Warn(ctx, "session check failed, treating as signed out",
			"to", nav.To, "from", nav.From, "error", err)
		return nil
	}
	return s
}
