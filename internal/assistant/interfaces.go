package assistant

import (
	"context"

	"cvcraft/internal/types"
)

// TokenUsage represents token usage information from assistant runs
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// ModelInfo represents information about the assistant model
type ModelInfo struct {
	Name      string `json:"name"`
	OwnedBy   string `json:"ownedBy,omitempty"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// TurnResult is the outcome of a single conversational turn.
// When the assistant invokes the CV generation tool the turn completes
// early: CVData is set, Completed is true, and Message carries a fixed
// closing reply instead of a fetched thread message.
type TurnResult struct {
	Message   string
	CVData    *types.CVData
	Completed bool
	Usage     *TokenUsage
}

// Gateway abstracts the conversational assistant backend.
// All methods are safe for concurrent use.
type Gateway interface {
	CreateAssistant(ctx context.Context) (string, error)
	CreateThread(ctx context.Context) (string, error)
	RunTurn(ctx context.Context, assistantID, threadID, userMessage string) (*TurnResult, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}
