package session

import (
	"sync"
	"time"
)

const (
	defaultTTL         = 24 * time.Hour
	defaultMaxSessions = 10000
)

// Store hands out per-sender sessions and the lock that serializes turns for
// a sender. Different senders proceed fully in parallel; two concurrent
// messages from the same sender are processed one after the other.
type Store interface {
	// Acquire blocks until the sender's turn lock is held and returns the
	// release function.
	Acquire(sender string) (release func())
	// Get returns the sender's session, creating it on first contact.
	Get(sender string) *Session
	// Put persists the mutated session back into the store.
	Put(s *Session)
}

type Option func(*MemoryStore)

func WithTTL(ttl time.Duration) Option {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithMaxSessions(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// MemoryStore keeps sessions in process memory. Sessions are not required to
// survive restarts; idle ones are evicted by TTL, and the oldest is dropped
// when the session cap is reached.
type MemoryStore struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	locks       map[string]*senderLock
	ttl         time.Duration
	maxSessions int
	now         func() time.Time
}

type senderLock struct {
	mu   sync.Mutex
	refs int
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		sessions:    make(map[string]*Session),
		locks:       make(map[string]*senderLock),
		ttl:         defaultTTL,
		maxSessions: defaultMaxSessions,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) Acquire(sender string) func() {
	s.mu.Lock()
	l, ok := s.locks[sender]
	if !ok {
		l = &senderLock{}
		s.locks[sender] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sender)
		}
		s.mu.Unlock()
	}
}

func (s *MemoryStore) Get(sender string) *Session {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked(now)

	if existing, ok := s.sessions[sender]; ok {
		existing.Touch(now)
		return existing
	}

	created := New(sender, now)
	s.sessions[sender] = created
	return created
}

func (s *MemoryStore) Put(sess *Session) {
	if sess == nil {
		return
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess.Touch(now)
	s.sessions[sess.Sender] = sess
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *MemoryStore) evictLocked(now time.Time) {
	for sender, sess := range s.sessions {
		if now.Sub(sess.LastActivity) > s.ttl {
			delete(s.sessions, sender)
		}
	}

	for len(s.sessions) >= s.maxSessions {
		oldestSender := ""
		var oldest time.Time
		for sender, sess := range s.sessions {
			if oldestSender == "" || sess.LastActivity.Before(oldest) {
				oldestSender = sender
				oldest = sess.LastActivity
			}
		}
		if oldestSender == "" {
			return
		}
		delete(s.sessions, oldestSender)
	}
}
