package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/halfmoonlab/supportdesk/llm"
)

// MemoryStore keeps sessions in process memory. Used by tests and by runs
// that do not need history to survive a restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[Key][]llm.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[Key][]llm.Message)}
}

func (s *MemoryStore) Create(_ context.Context, key Key) error {
	key = key.Normalize()
	if !key.Valid() {
		return fmt.Errorf("invalid session key: %+v", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[key]; ok {
		return ErrAlreadyExists
	}
	s.sessions[key] = nil
	return nil
}

func (s *MemoryStore) History(_ context.Context, key Key, limit int) ([]llm.Message, error) {
	key = key.Normalize()
	if !key.Valid() {
		return nil, fmt.Errorf("invalid session key: %+v", key)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.sessions[key]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]llm.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, key Key, msgs []llm.Message) error {
	key = key.Normalize()
	if !key.Valid() {
		return fmt.Errorf("invalid session key: %+v", key)
	}
	if len(msgs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[key] = append(s.sessions[key], msgs...)
	return nil
}
