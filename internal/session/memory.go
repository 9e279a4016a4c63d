package session

import (
	"sync"

	"cvcraft/internal/types"
)

// MemoryStore is the in-memory Store implementation. State lives for the
// process lifetime only; a restart starts empty.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]types.Session
	messages map[string][]types.ChatMessage
	inFlight map[string]bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]types.Session),
		messages: make(map[string][]types.ChatMessage),
		inFlight: make(map[string]bool),
	}
}

func (s *MemoryStore) CreateSession(sess *types.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.SessionID]; exists {
		return ErrExists
	}

	s.sessions[sess.SessionID] = *sess
	s.messages[sess.SessionID] = nil
	return nil
}

// GetSession returns a copy; the store keeps sole ownership of its state
func (s *MemoryStore) GetSession(sessionID string) (*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}

	out := sess
	return &out, nil
}

func (s *MemoryStore) UpdateSession(sess *types.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.SessionID]; !exists {
		return ErrNotFound
	}

	s.sessions[sess.SessionID] = *sess
	return nil
}

func (s *MemoryStore) AppendMessage(sessionID string, msg types.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sessionID]; !exists {
		return ErrNotFound
	}

	s.messages[sessionID] = append(s.messages[sessionID], msg)
	return nil
}

// Messages returns the transcript in insertion order
func (s *MemoryStore) Messages(sessionID string) ([]types.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.sessions[sessionID]; !exists {
		return nil, ErrNotFound
	}

	msgs := s.messages[sessionID]
	out := make([]types.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) TryBeginTurn(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight[sessionID] {
		return false
	}
	s.inFlight[sessionID] = true
	return true
}

func (s *MemoryStore) EndTurn(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, sessionID)
}
