package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cvcraft/internal/assistant"
	"cvcraft/internal/classifier"
	"cvcraft/internal/config"
	"cvcraft/internal/conversation"
	apperrors "cvcraft/internal/errors"
	"cvcraft/internal/observability"
	"cvcraft/internal/session"
	"cvcraft/internal/types"
)

// scriptedGateway replays turn results in order
type scriptedGateway struct {
	turns     []*assistant.TurnResult
	turnCalls int
}

func (g *scriptedGateway) CreateAssistant(ctx context.Context) (string, error) { return "asst_t", nil }
func (g *scriptedGateway) CreateThread(ctx context.Context) (string, error)    { return "thread_t", nil }

func (g *scriptedGateway) RunTurn(ctx context.Context, assistantID, threadID, userMessage string) (*assistant.TurnResult, error) {
	result := g.turns[g.turnCalls]
	g.turnCalls++
	return result, nil
}

func (g *scriptedGateway) GetModelInfo(ctx context.Context) *assistant.ModelInfo {
	return &assistant.ModelInfo{Name: "gpt-4o", Available: true}
}

func (g *scriptedGateway) Close() error { return nil }

func newHandlerTestServer(t *testing.T, gw assistant.Gateway) (*Server, *observability.ObservabilityManager) {
	t.Helper()

	logger, err := apperrors.New("error")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	store := session.NewMemoryStore()
	factory := func(apiKey string) (assistant.Gateway, error) { return gw, nil }

	s := &Server{
		AppConfig:      &config.Config{},
		MaxRequestSize: 1 << 20,
		Sessions:       store,
		Conversations:  conversation.NewService(store, factory, classifier.NewRegexClassifier(), logger),
		Logger:         logger,
	}

	om, err := observability.NewObservabilityManager(observability.ObservabilityConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("Failed to create observability manager: %v", err)
	}
	return s, om
}

func postMessage(t *testing.T, handler http.HandlerFunc, sessionID, message string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(MessageRequest{SessionID: sessionID, APIKey: "sk-test", Message: message})
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/conversation/message", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestSendMessageHandlerFollowUpAfterCompletion(t *testing.T) {
	gw := &scriptedGateway{
		turns: []*assistant.TurnResult{
			{
				Message:   "I've collected all the information and generated your CV.",
				CVData:    &types.CVData{PersonalInfo: types.PersonalInfo{FullName: "Jane Doe"}},
				Completed: true,
			},
			{Message: "You're welcome!"},
		},
	}
	s, om := newHandlerTestServer(t, gw)
	handler := s.sendMessageHandler(om)

	ctx := context.Background()
	sess, err := s.Conversations.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := s.Conversations.StartConversation(ctx, sess.SessionID, "sk-test"); err != nil {
		t.Fatalf("StartConversation failed: %v", err)
	}

	if rec := postMessage(t, handler, sess.SessionID, "generate my CV"); rec.Code != http.StatusOK {
		t.Fatalf("Completing turn returned %d: %s", rec.Code, rec.Body.String())
	}

	// A message after completion yields completed=true with no CV data
	// in the turn result; the handler must serve it without incident.
	rec := postMessage(t, handler, sess.SessionID, "thanks")
	if rec.Code != http.StatusOK {
		t.Fatalf("Follow-up turn returned %d: %s", rec.Code, rec.Body.String())
	}

	var result conversation.MessageResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !result.Completed {
		t.Error("Session should stay completed on the follow-up turn")
	}
	if result.CVData != nil {
		t.Error("Follow-up turn should not carry CV data")
	}
}
