package members

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bidon15/classroom/internal/api"
	"github.com/Bidon15/classroom/internal/api/apitest"
)

func TestGregorianYear(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"2565", "2022"},
		{" 2567 ", "2024"},
		{"2563", "2020"},
		{"abc", "abc"},
		{" 25a5 ", " 25a5 "},
		{" abc ", " abc "},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GregorianYear(tt.in), "input %q", tt.in)
	}
}

func TestDefaultYears(t *testing.T) {
	assert.Contains(t, DefaultYears, DefaultYear)
	assert.Len(t, DefaultYears, 5)
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name   string
		member api.Member
		want   string
	}{
		{name: "name", member: api.Member{Name: "Nok", FirstName: "A"}, want: "Nok"},
		{name: "first and last", member: api.Member{FirstName: "A", LastName: "B"}, want: "A B"},
		{name: "first only", member: api.Member{FirstName: "A"}, want: "A"},
		{name: "email", member: api.Member{Email: "a@b.com"}, want: "a@b.com"},
		{name: "nothing", member: api.Member{}, want: "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.member))
		})
	}
}

func TestStudentID(t *testing.T) {
	assert.Equal(t, "1", StudentID(api.Member{StudentID: "1", Education: &api.Education{StudentID: "2"}}))
	assert.Equal(t, "2", StudentID(api.Member{Education: &api.Education{StudentID: "2"}}))
	assert.Empty(t, StudentID(api.Member{}))
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newDirectory(t *testing.T, token string) (*apitest.Server, *Directory, *bytes.Buffer) {
	t.Helper()
	server := apitest.NewServer(t)
	server.AddDefaultAccount()
	client := api.NewClient(apitest.APIKey, api.WithBaseURL(server.URL))

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	return server, NewDirectory(client, staticToken(token), WithLogger(logger)), &logs
}

func TestDirectory_Load(t *testing.T) {
	server, dir, _ := newDirectory(t, apitest.DefaultToken)
	server.SetMembers("2022", `{"data":[{"name":"One"},{"firstname":"T","lastname":"W"}]}`)

	list := dir.Load(context.Background(), "2565")
	require.Len(t, list, 2)
	assert.Equal(t, "One", DisplayName(list[0]))
	assert.Equal(t, "T W", DisplayName(list[1]))
	assert.Equal(t, "/class/2022", server.LastRequest().Path)
}

func TestDirectory_Load_NoSession(t *testing.T) {
	server, dir, logs := newDirectory(t, "")

	list := dir.Load(context.Background(), "2565")
	assert.NotNil(t, list)
	assert.Empty(t, list)
	assert.Empty(t, server.Requests())
	assert.Contains(t, logs.String(), "without a session")
}

func TestDirectory_Load_FetchError(t *testing.T) {
	server, dir, logs := newDirectory(t, apitest.DefaultToken)
	server.Override("GET /class/2022", apitest.Reply{Status: http.StatusInternalServerError, Body: `{"message":"db down"}`})

	list := dir.Load(context.Background(), "2565")
	assert.NotNil(t, list)
	assert.Empty(t, list)
	assert.Contains(t, logs.String(), "db down")
	assert.Contains(t, logs.String(), "status=500")
}

func TestDirectory_Load_TransportError(t *testing.T) {
	server, dir, logs := newDirectory(t, apitest.DefaultToken)
	server.Close()

	list := dir.Load(context.Background(), "2565")
	assert.Empty(t, list)
	assert.Contains(t, logs.String(), "failed to load class members")
}
