package conversation

import (
	"context"

	"cvcraft/internal/assistant"
	"cvcraft/internal/classifier"
	"cvcraft/internal/errors"
	"cvcraft/internal/session"
	"cvcraft/internal/types"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// GatewayFactory builds an assistant gateway for one request. Clients
// may bring their own API key per call; an empty key means the
// server-configured key.
type GatewayFactory func(apiKey string) (assistant.Gateway, error)

// Service orchestrates CV-building conversations: it owns session
// state transitions, transcript persistence, and the stage classifier,
// and delegates the actual assistant turns to a Gateway.
type Service struct {
	store      session.Store
	gateways   GatewayFactory
	classifier classifier.StageClassifier
	logger     *errors.Logger
}

// NewService creates a conversation service
func NewService(store session.Store, gateways GatewayFactory, cls classifier.StageClassifier, logger *errors.Logger) *Service {
	return &Service{
		store:      store,
		gateways:   gateways,
		classifier: cls,
		logger:     logger,
	}
}

// MessageResult is the outcome of one SendMessage call
type MessageResult struct {
	Messages  []types.ChatMessage `json:"messages"`
	Status    *types.StageStatus  `json:"status,omitempty"`
	CVData    *types.CVData       `json:"cvData,omitempty"`
	Completed bool                `json:"completed"`

	// Usage is surfaced for metrics, not serialized to clients.
	Usage *assistant.TokenUsage `json:"-"`
}

// CreateSession creates a fresh session in the started stage
func (s *Service) CreateSession(ctx context.Context) (*types.Session, error) {
	sess := &types.Session{
		SessionID: uuid.NewString(),
		Status:    types.StageStarted,
	}

	if err := s.store.CreateSession(sess); err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeSessionExists,
			"Failed to create session", err)
	}

	s.logger.Info("Session created", "session_id", sess.SessionID)

	return sess, nil
}

// GetSession returns the current state of a session
func (s *Service) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	sess, err := s.store.GetSession(sessionID)
	if err != nil {
		return nil, errors.NewSessionError(errors.ErrCodeSessionNotFound,
			"Session not found", err)
	}
	return sess, nil
}

// Transcript returns the stored conversation messages in insertion order
func (s *Service) Transcript(ctx context.Context, sessionID string) ([]types.ChatMessage, error) {
	msgs, err := s.store.Messages(sessionID)
	if err != nil {
		return nil, errors.NewSessionError(errors.ErrCodeSessionNotFound,
			"Session not found", err)
	}
	return msgs, nil
}

// StartConversation provisions the assistant and thread for a session
// and moves it to the collecting_profession stage. Calling it again on
// an initialized session is a no-op returning the existing IDs.
func (s *Service) StartConversation(ctx context.Context, sessionID, apiKey string) (*types.Session, error) {
	tracer := otel.Tracer("cvcraft.conversation")
	ctx, span := tracer.Start(ctx, "conversation.start")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.AssistantID != "" && sess.ThreadID != "" {
		span.SetAttributes(attribute.Bool("conversation.already_started", true))
		return sess, nil
	}

	gateway, err := s.gateways(apiKey)
	if err != nil {
		return nil, err
	}
	defer gateway.Close()

	assistantID, err := gateway.CreateAssistant(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	threadID, err := gateway.CreateThread(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	sess.AssistantID = assistantID
	sess.ThreadID = threadID
	sess.Status = types.StageCollectingProfession

	if err := s.store.UpdateSession(sess); err != nil {
		return nil, errors.NewSessionError(errors.ErrCodeSessionNotFound,
			"Session disappeared during start", err)
	}

	s.logger.Info("Conversation started",
		"session_id", sessionID,
		"assistant_id", assistantID,
		"thread_id", threadID)

	return sess, nil
}

// SendMessage runs one conversational turn: it persists the user
// message, lets the assistant respond, classifies the reply to advance
// the workflow stage, and persists the assistant reply. A generate_cv
// tool call from the assistant completes the session immediately.
func (s *Service) SendMessage(ctx context.Context, sessionID, apiKey, message string) (*MessageResult, error) {
	tracer := otel.Tracer("cvcraft.conversation")
	ctx, span := tracer.Start(ctx, "conversation.message")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", sessionID),
		attribute.Int("input.message_length", len(message)),
	)

	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.AssistantID == "" || sess.ThreadID == "" {
		return nil, errors.NewSessionError(errors.ErrCodeSessionNotInitialized,
			"Assistant not initialized", nil)
	}

	// One turn at a time per session: a second concurrent message would
	// race the thread's active run.
	if !s.store.TryBeginTurn(sessionID) {
		return nil, errors.NewSessionError(errors.ErrCodeTurnInFlight,
			"A message is already being processed for this session", nil)
	}
	defer s.store.EndTurn(sessionID)

	if err := s.store.AppendMessage(sessionID, types.NewUserMessage(message)); err != nil {
		return nil, errors.NewSessionError(errors.ErrCodeSessionNotFound,
			"Session disappeared during turn", err)
	}

	gateway, err := s.gateways(apiKey)
	if err != nil {
		return nil, err
	}
	defer gateway.Close()

	turn, err := gateway.RunTurn(ctx, sess.AssistantID, sess.ThreadID, message)
	if err != nil {
		// The user message stays in the transcript; the client may retry.
		span.RecordError(err)
		return nil, err
	}

	var status *types.StageStatus
	switch {
	case turn.CVData != nil:
		// Classifier is skipped on the tool short-circuit
		completed := types.StageCompleted
		status = &completed
		sess.CVData = turn.CVData
		sess.Completed = true
		s.logger.Info("CV data captured, session completed",
			"session_id", sessionID,
			"sections", len(turn.CVData.Sections))

	case turn.Message != "":
		result := s.classifier.Classify(turn.Message)
		status = result.Status
		if result.Profession != "" {
			sess.Profession = result.Profession
		}
		if result.Sections != nil {
			sess.Sections = result.Sections
		}
	}

	if turn.Message != "" {
		if err := s.store.AppendMessage(sessionID, types.NewAssistantMessage(turn.Message)); err != nil {
			return nil, errors.NewSessionError(errors.ErrCodeSessionNotFound,
				"Session disappeared during turn", err)
		}
	}

	if status != nil {
		sess.Status = *status
	}
	if err := s.store.UpdateSession(sess); err != nil {
		return nil, errors.NewSessionError(errors.ErrCodeSessionNotFound,
			"Session disappeared during turn", err)
	}

	messages, err := s.store.Messages(sessionID)
	if err != nil {
		return nil, errors.NewSessionError(errors.ErrCodeSessionNotFound,
			"Session disappeared during turn", err)
	}

	span.SetAttributes(
		attribute.Bool("turn.completed", sess.Completed),
		attribute.String("session.status", string(sess.Status)),
	)

	return &MessageResult{
		Messages:  messages,
		Status:    status,
		CVData:    turn.CVData,
		Completed: sess.Completed,
		Usage:     turn.Usage,
	}, nil
}
