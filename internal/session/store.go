package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type entry struct {
	session     *Session
	lastTouched time.Time
}

// Store потокобезопасное in-memory хранилище сессий с TTL по бездействию.
// На диск ничего не пишется.
type Store struct {
	mu       sync.Mutex
	sessions map[string]entry
	ttl      time.Duration
	now      func() time.Time
}

// NewStore создаёт хранилище. Если ttl == 0, сессии не истекают.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create заводит новую сессию со случайным идентификатором.
func (s *Store) Create() *Session {
	id := uuid.NewString()
	sess := New(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = entry{session: sess, lastTouched: s.now()}
	return sess
}

// Get возвращает сессию и продлевает её жизнь.
// Ленивая очистка: истёкшая сессия удаляется и не возвращается.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if s.expired(e, now) {
		delete(s.sessions, id)
		return nil, false
	}
	e.lastTouched = now
	s.sessions[id] = e
	return e.session, true
}

// GetOrCreate возвращает существующую сессию или создаёт новую.
func (s *Store) GetOrCreate(id string) (*Session, bool) {
	if id != "" {
		if sess, ok := s.Get(id); ok {
			return sess, false
		}
	}
	return s.Create(), true
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ClearExpired удаляет сессии, истёкшие к моменту now, и возвращает их число.
func (s *Store) ClearExpired(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int
	for id, e := range s.sessions {
		if s.expired(e, now) {
			delete(s.sessions, id)
			deleted++
		}
	}
	return deleted
}

// RunSweeper периодически чистит истёкшие сессии, пока не отменён ctx.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.ClearExpired(now); n > 0 && logger != nil {
				logger.Debug("expired sessions removed", slog.Int("count", n))
			}
		}
	}
}

func (s *Store) expired(e entry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.lastTouched) > s.ttl
}
