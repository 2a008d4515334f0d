package session

import (
	"context"
	"sync"
	"time"

	"taskdeck.app/agent/common/llm"
)

// MemoryStore is the fallback when no Redis is configured: single-process,
// lost on restart. Expiry is checked lazily on access.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]memoryEntry
	now      func() time.Time
}

type memoryEntry struct {
	messages  []llm.Message
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		sessions: map[string]memoryEntry{},
		now:      time.Now,
	}
}

func (s *MemoryStore) History(_ context.Context, sessionID string) ([]llm.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.sessions, sessionID)
		return []llm.Message{}, nil
	}

	out := make([]llm.Message, len(entry.messages))
	copy(out, entry.messages)
	return out, nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, messages []llm.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]llm.Message, len(messages))
	copy(stored, messages)
	s.sessions[sessionID] = memoryEntry{
		messages:  stored,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
