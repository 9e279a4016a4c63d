package session

import (
	"errors"

	"cvcraft/internal/types"
)

// Sentinel errors returned by Store implementations. Callers translate
// these into API-level errors; the store stays transport-agnostic.
var (
	ErrNotFound = errors.New("session not found")
	ErrExists   = errors.New("session already exists")
)

// Store owns all session and transcript state. Implementations must be
// safe for concurrent use and must preserve message insertion order.
type Store interface {
	CreateSession(s *types.Session) error
	GetSession(sessionID string) (*types.Session, error)
	UpdateSession(s *types.Session) error
	AppendMessage(sessionID string, msg types.ChatMessage) error
	Messages(sessionID string) ([]types.ChatMessage, error)

	// TryBeginTurn reserves the single in-flight assistant turn for a
	// session. It returns false when a turn is already running; EndTurn
	// releases the reservation.
	TryBeginTurn(sessionID string) bool
	EndTurn(sessionID string)
}
