package memory

import (
	"sync"

	"geolearn-service/internal/quiz"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository,
// keyed by client session ID.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]*quiz.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]*quiz.Attempt),
	}
}

// GetOrCreate returns the attempt for the session, creating it with the
// factory when absent.
func (s *AttemptStore) GetOrCreate(sessionID string, create func() *quiz.Attempt) *quiz.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	if attempt, ok := s.attempts[sessionID]; ok {
		return attempt
	}
	attempt := create()
	s.attempts[sessionID] = attempt
	return attempt
}

func (s *AttemptStore) Get(sessionID string) (*quiz.Attempt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[sessionID]
	return attempt, ok
}

// Delete drops the attempt when a client disconnects for good.
func (s *AttemptStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, sessionID)
}
