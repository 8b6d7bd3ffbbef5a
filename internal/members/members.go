// Package members loads the class member list for a Buddhist-calendar year.
package members

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Bidon15/classroom/internal/api"
)

// buddhistOffset is the difference between the Buddhist and Gregorian calendars.
const buddhistOffset = 543

// DefaultYear is the Buddhist year selected when none is given.
const DefaultYear = "2565"

// DefaultYears are the Buddhist years offered for selection.
var DefaultYears = []string{"2563", "2564", "2565", "2566", "2567"}

// GregorianYear converts a Buddhist year to Gregorian. Input that is not an
// integer is returned unchanged.
func GregorianYear(buddhist string) string {
	year := strings.TrimSpace(buddhist)
	n, err := strconv.Atoi(year)
	if err != nil {
		return buddhist
	}
	return strconv.Itoa(n - buddhistOffset)
}

// DisplayName picks the best available name for a member.
func DisplayName(m api.Member) string {
	if name := strings.TrimSpace(m.Name); name != "" {
		return name
	}
	if name := strings.TrimSpace(m.FirstName + " " + m.LastName); name != "" {
		return name
	}
	if m.Email != "" {
		return m.Email
	}
	return "unknown"
}

// StudentID returns the member's student id, from the record or its
// education block.
func StudentID(m api.Member) string {
	if m.StudentID != "" {
		return m.StudentID
	}
	if m.Education != nil {
		return m.Education.StudentID
	}
	return ""
}

// Fetcher is the part of the API client the directory needs.
type Fetcher interface {
	ClassMembers(ctx context.Context, year, token string) ([]api.Member, error)
}

// TokenSource supplies the bearer token.
type TokenSource interface {
	Token() string
}

// Directory loads member lists with the current session's token.
type Directory struct {
	fetcher Fetcher
	tokens  TokenSource
	logger  *slog.Logger
}

// Option configures a Directory.
type Option func(*Directory)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Directory) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDirectory creates a Directory.
func NewDirectory(fetcher Fetcher, tokens TokenSource, opts ...Option) *Directory {
	d := &Directory{
		fetcher: fetcher,
		tokens:  tokens,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Load returns the members for a Buddhist year. Failures are logged and
// yield an empty list.
func (d *Directory) Load(ctx context.Context, buddhistYear string) []api.Member {
	year := GregorianYear(buddhistYear)

	token := d.tokens.Token()
	if token == "" {
		d.logger.Warn("cannot load class members without a session", slog.String("year", year))
		return []api.Member{}
	}

	list, err := d.fetcher.ClassMembers(ctx, year, token)
	if err != nil {
		attrs := []any{slog.String("year", year), slog.String("error", err.Error())}
		if fetchErr, ok := api.IsFetchError(err); ok {
			attrs = append(attrs, slog.Int("status", fetchErr.StatusCode))
		}
		d.logger.Warn("failed to load class members", attrs...)
		return []api.Member{}
	}
	if list == nil {
		return []api.Member{}
	}
	return list
}
