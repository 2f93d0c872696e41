package activity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/p-n-ai/campus/internal/content"
	"github.com/p-n-ai/campus/internal/platform/cache"
)

// ErrNoSession is returned when no player state is stored for a key.
var ErrNoSession = errors.New("no player session")

// Key identifies one learner's player for one activity.
type Key struct {
	UserID     string `json:"user_id"`
	UnitID     string `json:"unit_id"`
	ActivityID string `json:"activity_id"`
}

func (k Key) String() string {
	return k.UserID + "/" + k.UnitID + "/" + k.ActivityID
}

// Session is the persisted state of an interactive player. Exactly one of
// Match and Blanks is set, according to Kind.
type Session struct {
	Key       Key                  `json:"key"`
	Kind      content.ActivityKind `json:"kind"`
	Match     *Match               `json:"match,omitempty"`
	Blanks    *Blanks              `json:"blanks,omitempty"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// SessionStore persists player sessions between connections.
type SessionStore interface {
	Load(ctx context.Context, key Key) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, key Key) error
}

// MemorySessionStore keeps sessions in process memory.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[Key]Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[Key]Session)}
}

func (s *MemorySessionStore) Load(_ context.Context, key Key) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[key]
	if !ok {
		return nil, ErrNoSession
	}
	return sess.clone(), nil
}

func (s *MemorySessionStore) Save(_ context.Context, sess *Session) error {
	if sess == nil {
		return fmt.Errorf("session is nil")
	}
	s.mu.Lock()
	s.sessions[sess.Key] = *sess.clone()
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, key Key) error {
	s.mu.Lock()
	delete(s.sessions, key)
	s.mu.Unlock()
	return nil
}

// clone deep-copies the session so stored state never aliases a caller's.
func (s *Session) clone() *Session {
	out := *s
	if s.Match != nil {
		m := *s.Match
		m.Pairs = append([]content.Pair(nil), s.Match.Pairs...)
		m.Right = append([]int(nil), s.Match.Right...)
		m.Matched = append([]bool(nil), s.Match.Matched...)
		out.Match = &m
	}
	if s.Blanks != nil {
		b := *s.Blanks
		b.Bank = append([]string(nil), s.Blanks.Bank...)
		out.Blanks = &b
	}
	return &out
}

// RedisSessionStore keeps sessions as JSON snapshots with a sliding TTL.
type RedisSessionStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewRedisSessionStore(c *cache.Cache, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{cache: c, ttl: ttl}
}

func (s *RedisSessionStore) key(k Key) string {
	return s.cache.Key("player", k.UserID, k.UnitID, k.ActivityID)
}

func (s *RedisSessionStore) Load(ctx context.Context, key Key) (*Session, error) {
	var sess Session
	err := s.cache.GetJSON(ctx, s.key(key), &sess)
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("loading player session %s: %w", key, err)
	}
	return &sess, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil {
		return fmt.Errorf("session is nil")
	}
	if err := s.cache.SetJSON(ctx, s.key(sess.Key), sess, s.ttl); err != nil {
		return fmt.Errorf("saving player session %s: %w", sess.Key, err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, key Key) error {
	return s.cache.Delete(ctx, s.key(key))
}
