// Package apitest provides an in-process fake of the classroom API for tests.
package apitest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// APIKey is the key the fake server accepts.
const APIKey = "test-api-key"

// Account is a user the fake server can sign in.
type Account struct {
	Password string
	Token    string
	User     map[string]interface{}
}

// Reply overrides the response of a route.
type Reply struct {
	Status int
	Body   string
}

// Request is a recorded request.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Server is a fake classroom API backed by httptest.Server.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	accounts  map[string]Account
	members   map[string]string
	overrides map[string]Reply
	requests  []Request
}

// NewServer starts a fake server and closes it when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		accounts:  make(map[string]Account),
		members:   make(map[string]string),
		overrides: make(map[string]Reply),
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Use(s.requireAPIKey)
	r.Post("/signin", s.handleSignIn)
	r.Get("/profile", s.handleProfile)
	r.Get("/class/{year}", s.handleClass)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// AddAccount registers an account under email.
func (s *Server) AddAccount(email string, acct Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[email] = acct
}

// SetMembers sets the raw JSON body returned for GET /class/{year}.
func (s *Server) SetMembers(year, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[year] = body
}

// Override makes the route "METHOD /path" answer with reply.
func (s *Server) Override(route string, reply Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[route] = reply
}

// Requests returns the recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent request, or nil.
func (s *Server) LastRequest() *Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	r := s.requests[len(s.requests)-1]
	return &r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   body,
		})
		reply, overridden := s.overrides[r.Method+" "+r.URL.Path]
		s.mu.Unlock()

		if overridden {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(reply.Status)
			_, _ = w.Write([]byte(reply.Body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != APIKey {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[req.Email]
	s.mu.Unlock()

	if !ok || acct.Password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid email or password"})
		return
	}

	data := make(map[string]interface{}, len(acct.User)+1)
	for k, v := range acct.User {
		data[k] = v
	}
	data["token"] = acct.Token
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": data})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.accountForToken(bearer(r))
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": acct.User})
}

func (s *Server) handleClass(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.accountForToken(bearer(r)); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "unauthorized"})
		return
	}

	year := chi.URLParam(r, "year")
	s.mu.Lock()
	body, ok := s.members[year]
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "class not found"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func (s *Server) accountForToken(token string) (Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == "" {
		return Account{}, false
	}
	for _, acct := range s.accounts {
		if acct.Token == token {
			return acct, true
		}
	}
	return Account{}, false
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimPrefix(h, prefix)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Credentials of the account added by AddDefaultAccount.
const (
	DefaultEmail    = "a@b.com"
	DefaultPassword = "pw"
	DefaultToken    = "tok"
)

// AddDefaultAccount registers user "A B" (id "1") with token "tok".
func (s *Server) AddDefaultAccount() {
	s.AddAccount(DefaultEmail, Account{
		Password: DefaultPassword,
		Token:    DefaultToken,
		User: map[string]interface{}{
			"_id":       "1",
			"firstname": "A",
			"lastname":  "B",
			"email":     DefaultEmail,
			"role":      "student",
			"type":      "student",
			"confirmed": true,
		},
	})
}
