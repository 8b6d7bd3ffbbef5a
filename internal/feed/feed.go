// Package feed is the client-local social feed: posts, likes and comments kept
// newest-first in memory and written back as a whole on every change.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Bidon15/classroom/internal/api"
	"github.com/Bidon15/classroom/internal/ids"
	"github.com/Bidon15/classroom/internal/kv"
	"github.com/Bidon15/classroom/internal/metrics"
)

// Mutation kinds, used for metrics and logs.
const (
	MutationPost    = "post"
	MutationLike    = "like"
	MutationUnlike  = "unlike"
	MutationComment = "comment"
)

// Comment is a reply on a post.
type Comment struct {
	ID        string `json:"id" yaml:"id"`
	UserName  string `json:"userName" yaml:"user_name"`
	Text      string `json:"text" yaml:"text"`
	CreatedAt int64  `json:"createdAt" yaml:"created_at"`
}

// Post is one feed entry. CreatedAt is in epoch milliseconds.
type Post struct {
	ID         string    `json:"id" yaml:"id"`
	AuthorName string    `json:"authorName" yaml:"author_name"`
	Content    string    `json:"content" yaml:"content"`
	CreatedAt  int64     `json:"createdAt" yaml:"created_at"`
	Likes      []string  `json:"likes" yaml:"likes"`
	Comments   []Comment `json:"comments" yaml:"comments"`
}

// Liked reports whether userID has liked the post.
func (p Post) Liked(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

func (p Post) clone() Post {
	c := p
	c.Likes = append(make([]string, 0, len(p.Likes)), p.Likes...)
	c.Comments = append(make([]Comment, 0, len(p.Comments)), p.Comments...)
	return c
}

// Stats summarises the feed.
type Stats struct {
	Posts    int `json:"posts" yaml:"posts"`
	Likes    int `json:"likes" yaml:"likes"`
	Comments int `json:"comments" yaml:"comments"`
}

// SessionReader is the part of the session store the feed needs.
type SessionReader interface {
	User() (*api.User, bool)
}

// Store owns the feed.
type Store struct {
	kv      kv.Store
	session SessionReader
	logger  *slog.Logger
	metrics *metrics.Collector
	now     func() time.Time

	mu    sync.Mutex
	posts []Post

	subMu  sync.Mutex
	subs   map[int]func([]Post)
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

// WithMetrics records mutations on the collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an empty feed store. Call Load to read the persisted feed.
func New(store kv.Store, sess SessionReader, opts ...Option) *Store {
	s := &Store{
		kv:      store,
		session: sess,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
		posts:   []Post{},
		subs:    make(map[int]func([]Post)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory feed with the persisted one. A missing or
// unreadable feed loads as empty. Load is a no-op while signed out; call it
// again after sign-in.
func (s *Store) Load(ctx context.Context) {
	if _, ok := s.session.User(); !ok {
		s.logger.Debug("not signed in, feed not loaded")
		return
	}

	posts := []Post{}

	raw, err := s.kv.Get(ctx, kv.KeyFeed)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		s.logger.Debug("no stored feed")
	case err != nil:
		s.logger.Warn("failed to read stored feed", slog.String("error", err.Error()))
	default:
		if err := json.Unmarshal([]byte(raw), &posts); err != nil {
			s.logger.Warn("stored feed is corrupt, starting empty", slog.String("error", err.Error()))
			posts = []Post{}
		}
	}

	for i := range posts {
		if posts[i].Likes == nil {
			posts[i].Likes = []string{}
		}
		if posts[i].Comments == nil {
			posts[i].Comments = []Comment{}
		}
	}

	s.mu.Lock()
	s.posts = posts
	view := s.copyLocked()
	s.mu.Unlock()

	s.logger.Debug("feed loaded", slog.Int("posts", len(view)))
	s.notify(view)
}

// Posts returns a copy of the feed, newest first.
func (s *Store) Posts() []Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

// Post returns a copy of the post with the given id.
func (s *Store) Post(id string) (Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.posts[i].clone(), true
	}
	return Post{}, false
}

// Stats counts posts, likes and comments.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Posts: len(s.posts)}
	for _, p := range s.posts {
		st.Likes += len(p.Likes)
		st.Comments += len(p.Comments)
	}
	return st
}

// AddPost prepends a post by the signed-in user. It is a no-op when content
// is blank or nobody is signed in.
func (s *Store) AddPost(content string) (Post, bool) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Post{}, false
	}
	user, ok := s.session.User()
	if !ok {
		return Post{}, false
	}

	now := s.now()
	post := Post{
		ID:         ids.NewFromTime(now),
		AuthorName: user.FullName(),
		Content:    content,
		CreatedAt:  now.UnixMilli(),
		Likes:      []string{},
		Comments:   []Comment{},
	}

	s.mu.Lock()
	s.posts = append([]Post{post}, s.posts...)
	view := s.copyLocked()
	s.mu.Unlock()

	s.committed(MutationPost, post.ID, view)
	return post.clone(), true
}

// ToggleLike adds or removes the signed-in user's like on a post. It reports
// whether the feed changed.
func (s *Store) ToggleLike(postID string) bool {
	user, ok := s.session.User()
	if !ok {
		return false
	}

	s.mu.Lock()
	i := s.indexLocked(postID)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	post := s.posts[i].clone()
	kind := MutationLike
	if post.Liked(user.ID) {
		kind = MutationUnlike
		likes := post.Likes[:0]
		for _, id := range post.Likes {
			if id != user.ID {
				likes = append(likes, id)
			}
		}
		post.Likes = likes
	} else {
		post.Likes = append(post.Likes, user.ID)
	}
	s.posts[i] = post
	view := s.copyLocked()
	s.mu.Unlock()

	s.committed(kind, postID, view)
	return true
}

// AddComment appends a comment by the signed-in user. It is a no-op when the
// text is blank, nobody is signed in or the post does not exist.
func (s *Store) AddComment(postID, text string) (Comment, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Comment{}, false
	}
	user, ok := s.session.User()
	if !ok {
		return Comment{}, false
	}

	now := s.now()
	comment := Comment{
		ID:        ids.NewFromTime(now),
		UserName:  user.FullName(),
		Text:      text,
		CreatedAt: now.UnixMilli(),
	}

	s.mu.Lock()
	i := s.indexLocked(postID)
	if i < 0 {
		s.mu.Unlock()
		return Comment{}, false
	}
	post := s.posts[i].clone()
	post.Comments = append(post.Comments, comment)
	s.posts[i] = post
	view := s.copyLocked()
	s.mu.Unlock()

	s.committed(MutationComment, postID, view)
	return comment, true
}

// Subscribe registers fn to be called with the new feed after every change.
func (s *Store) Subscribe(fn func([]Post)) (cancel func()) {
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

// committed persists the full feed, records the mutation and notifies.
func (s *Store) committed(kind, postID string, view []Post) {
	s.persist(view)
	s.metrics.ObserveFeedMutation(kind)
	s.logger.Debug("feed updated", slog.String("kind", kind), slog.String("post_id", postID))
	s.notify(view)
}

func (s *Store) persist(posts []Post) {
	raw, err := json.Marshal(posts)
	if err != nil {
		s.logger.Warn("failed to encode feed", slog.String("error", err.Error()))
		return
	}
	if err := s.kv.Set(context.Background(), kv.KeyFeed, string(raw)); err != nil {
		s.logger.Warn("failed to store feed", slog.String("error", err.Error()))
	}
}

func (s *Store) notify(view []Post) {
	s.subMu.Lock()
	keys := make([]int, 0, len(s.subs))
	for id := range s.subs {
		keys = append(keys, id)
	}
	sort.Ints(keys)
	fns := make([]func([]Post), 0, len(keys))
	for _, id := range keys {
		fns = append(fns, s.subs[id])
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(clonePosts(view))
	}
}

func (s *Store) indexLocked(id string) int {
	for i := range s.posts {
		if s.posts[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) copyLocked() []Post {
	return clonePosts(s.posts)
}

func clonePosts(posts []Post) []Post {
	out := make([]Post, len(posts))
	for i, p := range posts {
		out[i] = p.clone()
	}
	return out
}
