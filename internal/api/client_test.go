package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bidon15/classroom/internal/api/apitest"
	"github.com/Bidon15/classroom/internal/metrics"
)

// newTestServer creates a fake API server and a client pointed at it.
func newTestServer(t *testing.T, opts ...Option) (*apitest.Server, *Client) {
	server := apitest.NewServer(t)
	server.AddDefaultAccount()
	client := NewClient(apitest.APIKey, append([]Option{WithBaseURL(server.URL)}, opts...)...)
	return server, client
}

func TestNewClient(t *testing.T) {
	client := NewClient("key")
	assert.Equal(t, DefaultBaseURL, client.BaseURL())
	assert.Zero(t, client.httpClient.Timeout, "no timeout unless configured")

	custom := &http.Client{Timeout: time.Second}
	client = NewClient("key", WithBaseURL("https://example.test/api/"), WithHTTPClient(custom))
	assert.Equal(t, "https://example.test/api", client.BaseURL())
	assert.Same(t, custom, client.httpClient)
}

func TestClient_SignIn(t *testing.T) {
	server, client := newTestServer(t)

	res, err := client.SignIn(context.Background(), apitest.DefaultEmail, apitest.DefaultPassword)
	require.NoError(t, err)

	assert.Equal(t, "tok", res.Token)
	assert.Equal(t, "1", res.User.ID)
	assert.Equal(t, "A B", res.User.FullName())
	assert.True(t, res.User.Confirmed)

	req := server.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/signin", req.Path)
	assert.Equal(t, apitest.APIKey, req.Header.Get("x-api-key"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Empty(t, req.Header.Get("Authorization"))
	_, err = uuid.Parse(req.Header.Get("X-Request-ID"))
	assert.NoError(t, err)

	var body map[string]string
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, map[string]string{"email": "a@b.com", "password": "pw"}, body)
}

func TestClient_SignIn_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		reply   *apitest.Reply
		email   string
		wantMsg string
		status  int
	}{
		{
			name:    "server error text",
			email:   apitest.DefaultEmail,
			wantMsg: "Invalid email or password",
			status:  http.StatusUnauthorized,
		},
		{
			name:    "no error field",
			reply:   &apitest.Reply{Status: http.StatusBadRequest, Body: `{"message":"nope"}`},
			wantMsg: "login failed",
			status:  http.StatusBadRequest,
		},
		{
			name:    "malformed body",
			reply:   &apitest.Reply{Status: http.StatusInternalServerError, Body: `<html>`},
			wantMsg: "login failed",
			status:  http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, client := newTestServer(t)
			if tt.reply != nil {
				server.Override("POST /signin", *tt.reply)
			}

			_, err := client.SignIn(context.Background(), tt.email, "wrong")
			require.Error(t, err)

			authErr, ok := IsAuthError(err)
			require.True(t, ok, "expected AuthError, got %T", err)
			assert.Equal(t, tt.wantMsg, authErr.Message)
			assert.Equal(t, tt.status, authErr.StatusCode)
		})
	}
}

func TestClient_SignIn_MissingToken(t *testing.T) {
	server, client := newTestServer(t)
	server.Override("POST /signin", apitest.Reply{Status: http.StatusOK, Body: `{"data":{"_id":"1"}}`})

	_, err := client.SignIn(context.Background(), "a@b.com", "pw")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestClient_SignIn_TransportError(t *testing.T) {
	server, client := newTestServer(t)
	server.Close()

	_, err := client.SignIn(context.Background(), "a@b.com", "pw")
	require.Error(t, err)
	_, isAuth := IsAuthError(err)
	assert.False(t, isAuth)
}

func TestClient_SignIn_ContextCancelled(t *testing.T) {
	_, client := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.SignIn(ctx, "a@b.com", "pw")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Profile(t *testing.T) {
	server, client := newTestServer(t)

	user, err := client.Profile(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "A B", user.FullName())
	assert.Equal(t, "a@b.com", user.Email)

	req := server.LastRequest()
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
	assert.Equal(t, http.MethodGet, req.Method)
}

func TestClient_Profile_BareRecord(t *testing.T) {
	server, client := newTestServer(t)
	server.Override("GET /profile", apitest.Reply{Status: http.StatusOK, Body: `{"_id":"9","firstname":"C","lastname":"D"}`})

	user, err := client.Profile(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "9", user.ID)
	assert.Equal(t, "C D", user.FullName())
}

func TestClient_Profile_Rejected(t *testing.T) {
	_, client := newTestServer(t)

	_, err := client.Profile(context.Background(), "bad-token")
	authErr, ok := IsAuthError(err)
	require.True(t, ok)
	assert.Equal(t, "failed to fetch profile", authErr.Error())
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
}

func TestClient_APIKeyRequired(t *testing.T) {
	server := apitest.NewServer(t)
	server.AddDefaultAccount()
	client := NewClient("wrong-key", WithBaseURL(server.URL))

	_, err := client.SignIn(context.Background(), "a@b.com", "pw")
	authErr, ok := IsAuthError(err)
	require.True(t, ok)
	assert.Equal(t, "invalid api key", authErr.Message)
}

func TestClient_Metrics(t *testing.T) {
	m := metrics.NewCollector()
	_, client := newTestServer(t, WithMetrics(m))
	ctx := context.Background()

	_, err := client.SignIn(ctx, "a@b.com", "pw")
	require.NoError(t, err)
	_, err = client.SignIn(ctx, "a@b.com", "bad")
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("signin", metrics.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("signin", metrics.OutcomeError)))
}

func TestErrorHelpers(t *testing.T) {
	wrapped := errors.Join(errors.New("ctx"), &FetchError{StatusCode: 500, Message: "boom"})

	fetchErr, ok := IsFetchError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "boom", fetchErr.Error())

	_, ok = IsAuthError(wrapped)
	assert.False(t, ok)
}
