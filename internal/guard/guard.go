// Package guard redirects between the signed-in and signed-out areas of the
// client based on session state and the current location.
package guard

import (
	"io"
	"log/slog"
	"sync"

	"github.com/Bidon15/classroom/internal/session"
)

// Location names a screen.
type Location string

// Known locations. Home is the default location of the signed-in area.
const (
	Login   Location = "login"
	Home    Location = "home"
	Feed    Location = "feed"
	Members Location = "members"
	Profile Location = "profile"
)

// Decision is the outcome of evaluating the guard.
type Decision struct {
	Redirect bool
	To       Location
}

// None is the decision to stay put.
var None = Decision{}

// Decide returns where to redirect given the session state and location.
// Signed-out users anywhere but Login go to Login; signed-in users on Login
// go to Home. Everything else stays.
func Decide(authenticated bool, loc Location) Decision {
	switch {
	case !authenticated && loc != Login:
		return Decision{Redirect: true, To: Login}
	case authenticated && loc == Login:
		return Decision{Redirect: true, To: Home}
	default:
		return None
	}
}

// Navigator performs redirects. Replace must not call back into the Guard.
type Navigator interface {
	Replace(loc Location)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(loc Location)

// Replace calls f(loc).
func (f NavigatorFunc) Replace(loc Location) { f(loc) }

// SessionSource is the part of the session store the guard observes.
type SessionSource interface {
	Authenticated() bool
	Subscribe(fn func(session.Snapshot)) (cancel func())
}

// Guard re-evaluates Decide on every session or location change once ready.
type Guard struct {
	nav    Navigator
	logger *slog.Logger
	cancel func()

	mu            sync.Mutex
	authenticated bool
	location      Location
	ready         bool
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a guard at loc that observes sess. It does nothing until
// SetReady is called.
func New(sess SessionSource, nav Navigator, loc Location, opts ...Option) *Guard {
	g := &Guard{
		nav:           nav,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		authenticated: sess.Authenticated(),
		location:      loc,
	}
	for _, opt := range opts {
		opt(g)
	}

	g.cancel = sess.Subscribe(func(snap session.Snapshot) {
		g.mu.Lock()
		g.authenticated = snap.Authenticated()
		g.mu.Unlock()
		g.evaluate()
	})
	return g
}

// SetReady marks navigation as ready and evaluates immediately.
func (g *Guard) SetReady() Decision {
	g.mu.Lock()
	g.ready = true
	g.mu.Unlock()
	return g.evaluate()
}

// Navigate moves to loc and evaluates. It returns the decision taken.
func (g *Guard) Navigate(loc Location) Decision {
	g.mu.Lock()
	g.location = loc
	g.mu.Unlock()
	return g.evaluate()
}

// Location returns the current location, after any redirect.
func (g *Guard) Location() Location {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.location
}

// Close stops observing the session.
func (g *Guard) Close() {
	if g.cancel != nil {
		g.cancel()
	}
}

func (g *Guard) evaluate() Decision {
	g.mu.Lock()
	if !g.ready {
		g.mu.Unlock()
		return None
	}
	from := g.location
	d := Decide(g.authenticated, from)
	if d.Redirect {
		g.location = d.To
	}
	g.mu.Unlock()

	if d.Redirect {
		g.logger.Debug("redirecting",
			slog.String("from", string(from)),
			slog.String("to", string(d.To)),
		)
		g.nav.Replace(d.To)
	}
	return d
}
