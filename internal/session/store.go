package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Store holds the per-user session slots. Each slot carries its own
// mutex, held for the entire handling of one event, so concurrent
// events from the same user are serialized while different users
// proceed in parallel.
type Store struct {
	mu      sync.Mutex
	slots   map[int64]*slot
	idleTTL time.Duration
	logger  zerolog.Logger
}

type slot struct {
	mu      sync.Mutex
	session Session
}

// NewStore builds a session store with the given idle timeout.
func NewStore(idleTTL time.Duration, logger zerolog.Logger) *Store {
	if idleTTL <= 0 {
		idleTTL = 15 * time.Minute
	}
	return &Store{
		slots:   make(map[int64]*slot),
		idleTTL: idleTTL,
		logger:  logger.With().Str("component", "session_store").Logger(),
	}
}

func (s *Store) slotFor(userID int64) *slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[userID]
	if !ok {
		sl = &slot{session: Session{Step: StepIdle}}
		s.slots[userID] = sl
	}
	return sl
}

// With runs fn under the user's slot lock. fn sees the current session
// and may mutate it in place; the mutation is kept when fn returns.
func (s *Store) With(userID int64, fn func(sess *Session)) {
	sl := s.slotFor(userID)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	fn(&sl.session)
	sl.session.UpdatedAt = time.Now()
}

// Peek returns a copy of the user's session without holding the lock
// beyond the read.
func (s *Store) Peek(userID int64) Session {
	sl := s.slotFor(userID)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.session
}

// Sweep drops slots idle past the TTL and returns how many were
// removed. Slots currently handling an event are skipped.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for userID, sl := range s.slots {
		if !sl.mu.TryLock() {
			continue
		}
		idle := now.Sub(sl.session.UpdatedAt) > s.idleTTL
		sl.mu.Unlock()
		if idle {
			delete(s.slots, userID)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps idle sessions on the given interval until ctx is
// cancelled.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Sweep(time.Now()); removed > 0 {
				s.logger.Debug().Int("removed", removed).Msg("swept idle sessions")
			}
		}
	}
}
