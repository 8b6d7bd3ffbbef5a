// Package ids issues the identifiers of locally created posts and comments.
//
// Ids are ULIDs: they sort by creation time like the millisecond timestamps
// the feed used to key on, and monotonic entropy keeps ids created within
// the same millisecond distinct and ordered.
package ids

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator issues ids. For a non-decreasing clock its ids strictly increase.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewGenerator creates a Generator reading randomness from r, or from
// crypto/rand when r is nil.
func NewGenerator(r io.Reader) *Generator {
	if r == nil {
		r = rand.Reader
	}
	return &Generator{entropy: ulid.Monotonic(r, 0)}
}

// At returns a new id stamped with t.
func (g *Generator) At(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := ulid.Timestamp(t)
	id, err := ulid.New(ms, g.entropy)
	if err != nil {
		// Entropy exhausted within one millisecond; borrow the next one.
		id = ulid.MustNew(ms+1, g.entropy)
	}
	return id.String()
}

var defaultGenerator = NewGenerator(nil)

// New returns an id for the current time.
func New() string {
	return defaultGenerator.At(time.Now())
}

// NewFromTime returns an id stamped with t.
func NewFromTime(t time.Time) string {
	return defaultGenerator.At(t)
}

// IsValid reports whether s is a well-formed id.
func IsValid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}

// Millis returns the epoch-milliseconds timestamp embedded in id.
func Millis(id string) (int64, bool) {
	u, err := ulid.ParseStrict(id)
	if err != nil {
		return 0, false
	}
	return int64(u.Time()), true
}
