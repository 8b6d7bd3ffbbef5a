// Package session holds the signed-in user and bearer token, mirrors them to
// persistent storage and notifies subscribers on every transition.
//
// The session is either anonymous or authenticated; the token is set if and
// only if the user is. State is only ever replaced as a whole.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/Bidon15/classroom/internal/api"
	"github.com/Bidon15/classroom/internal/kv"
	"github.com/Bidon15/classroom/internal/metrics"
)

// ErrNotAuthenticated is returned by operations that need a signed-in user.
var ErrNotAuthenticated = errors.New("session: not authenticated")

// State names, used for metrics and logs.
const (
	StateAnonymous     = "anonymous"
	StateAuthenticated = "authenticated"
)

// Authenticator is the part of the API client the session needs.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*api.SignInResult, error)
	Profile(ctx context.Context, token string) (*api.User, error)
}

// Snapshot is an immutable view of the session.
type Snapshot struct {
	User  *api.User
	Token string
}

// Authenticated reports whether the snapshot holds a user and token.
func (s Snapshot) Authenticated() bool {
	return s.User != nil && s.Token != ""
}

// State returns StateAuthenticated or StateAnonymous.
func (s Snapshot) State() string {
	if s.Authenticated() {
		return StateAuthenticated
	}
	return StateAnonymous
}

// Store owns the current session.
//
// Writes to the key-value store are fire-and-forget: their errors are logged
// and never change the in-memory state. Pass a *kv.Writer to keep them off
// the caller's path.
type Store struct {
	auth    Authenticator
	kv      kv.Store
	logger  *slog.Logger
	metrics *metrics.Collector

	mu       sync.Mutex
	user     *api.User
	token    string
	lastErr  error
	restored bool

	subMu  sync.Mutex
	subs   map[int]func(Snapshot)
	nextID int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records session transitions on the collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// New creates an anonymous session store.
func New(auth Authenticator, store kv.Store, opts ...Option) *Store {
	s := &Store{
		auth:   auth,
		kv:     store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		subs:   make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads a persisted session. It only takes effect once, and only while
// the session is still anonymous. Missing or corrupt data leaves the session
// anonymous; errors are logged, never returned.
func (s *Store) Restore(ctx context.Context) {
	s.mu.Lock()
	if s.restored || s.user != nil {
		s.restored = true
		s.mu.Unlock()
		return
	}
	s.restored = true
	s.mu.Unlock()

	token, err := s.kv.Get(ctx, kv.KeyToken)
	if err != nil {
		s.logRestoreMiss(kv.KeyToken, err)
		return
	}
	rawUser, err := s.kv.Get(ctx, kv.KeyUser)
	if err != nil {
		s.logRestoreMiss(kv.KeyUser, err)
		return
	}
	if token == "" || rawUser == "" {
		return
	}

	var user api.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		s.logger.Warn("stored user is corrupt, staying signed out", slog.String("error", err.Error()))
		return
	}

	s.mu.Lock()
	if s.user != nil {
		// A login won the race.
		s.mu.Unlock()
		return
	}
	s.user = &user
	s.token = token
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("session restored", slog.String("user_id", user.ID))
	s.transitioned(snap)
}

func (s *Store) logRestoreMiss(key string, err error) {
	if errors.Is(err, kv.ErrNotFound) {
		s.logger.Debug("no stored session", slog.String("key", key))
		return
	}
	s.logger.Warn("failed to read stored session",
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}

// Login signs in and, on success, replaces the session and persists it.
// It reports whether the session is now authenticated by this login; on any
// failure the previous state is kept and the error is available from LastError.
func (s *Store) Login(ctx context.Context, email, password string) bool {
	res, err := s.auth.SignIn(ctx, email, password)
	if err == nil && (res == nil || res.Token == "") {
		err = api.ErrMissingToken
	}
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		s.logger.Warn("login failed", slog.String("email", email), slog.String("error", err.Error()))
		return false
	}

	user := res.User
	s.mu.Lock()
	s.user = &user
	s.token = res.Token
	s.lastErr = nil
	s.restored = true
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snap)
	s.logger.Info("logged in", slog.String("user_id", user.ID))
	s.transitioned(snap)
	return true
}

// Logout clears the session and removes the persisted copy.
func (s *Store) Logout() {
	s.mu.Lock()
	wasAuthenticated := s.user != nil
	s.user = nil
	s.token = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()

	ctx := context.Background()
	for _, key := range []string{kv.KeyToken, kv.KeyUser} {
		if err := s.kv.Remove(ctx, key); err != nil {
			s.logger.Warn("failed to remove stored session", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	if wasAuthenticated {
		s.logger.Info("logged out")
	}
	s.transitioned(snap)
}

// RefreshProfile re-fetches the user record with the current token and
// replaces the stored user. The token is kept.
func (s *Store) RefreshProfile(ctx context.Context) error {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	if token == "" {
		return ErrNotAuthenticated
	}

	user, err := s.auth.Profile(ctx, token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.token != token {
		// Logged out or switched accounts meanwhile.
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	u := *user
	s.user = &u
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snap)
	s.notify(snap)
	return nil
}

// persist writes token and user. Failures are logged only.
func (s *Store) persist(snap Snapshot) {
	raw, err := json.Marshal(snap.User)
	if err != nil {
		s.logger.Warn("failed to encode user", slog.String("error", err.Error()))
		return
	}

	ctx := context.Background()
	if err := s.kv.Set(ctx, kv.KeyToken, snap.Token); err != nil {
		s.logger.Warn("failed to store token", slog.String("error", err.Error()))
	}
	if err := s.kv.Set(ctx, kv.KeyUser, string(raw)); err != nil {
		s.logger.Warn("failed to store user", slog.String("error", err.Error()))
	}
}

// Snapshot returns the current session.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	if s.user == nil {
		return Snapshot{}
	}
	u := *s.user
	return Snapshot{User: &u, Token: s.token}
}

// User returns a copy of the signed-in user.
func (s *Store) User() (*api.User, bool) {
	snap := s.Snapshot()
	return snap.User, snap.User != nil
}

// Token returns the bearer token, or "" when anonymous.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Authenticated reports whether a user is signed in.
func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

// LastError returns the error of the most recent failed login, cleared by a
// successful one.
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Subscribe registers fn to be called after every session change. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) transitioned(snap Snapshot) {
	s.metrics.ObserveSession(snap.State())
	s.notify(snap)
}

// notify calls subscribers in registration order, outside every lock.
func (s *Store) notify(snap Snapshot) {
	s.subMu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
