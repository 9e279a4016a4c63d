package conversation

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"cvcraft/internal/assistant"
	"cvcraft/internal/classifier"
	"cvcraft/internal/errors"
	"cvcraft/internal/session"
	"cvcraft/internal/types"
)

// fakeGateway replays scripted turn results in order
type fakeGateway struct {
	turns     []*assistant.TurnResult
	turnErr   error
	turnCalls int
	closed    bool
}

func (f *fakeGateway) CreateAssistant(ctx context.Context) (string, error) { return "asst_test", nil }
func (f *fakeGateway) CreateThread(ctx context.Context) (string, error)    { return "thread_test", nil }

func (f *fakeGateway) RunTurn(ctx context.Context, assistantID, threadID, userMessage string) (*assistant.TurnResult, error) {
	if f.turnErr != nil {
		return nil, f.turnErr
	}
	if f.turnCalls >= len(f.turns) {
		return nil, fmt.Errorf("no scripted turn for call %d", f.turnCalls)
	}
	result := f.turns[f.turnCalls]
	f.turnCalls++
	return result, nil
}

func (f *fakeGateway) GetModelInfo(ctx context.Context) *assistant.ModelInfo {
	return &assistant.ModelInfo{Name: "gpt-4o", Available: true}
}

func (f *fakeGateway) Close() error {
	f.closed = true
	return nil
}

func newTestService(gw assistant.Gateway) (*Service, session.Store) {
	store := session.NewMemoryStore()
	logger, _ := errors.New("error")
	factory := func(apiKey string) (assistant.Gateway, error) { return gw, nil }
	return NewService(store, factory, classifier.NewRegexClassifier(), logger), store
}

func startedSession(t *testing.T, svc *Service) *types.Session {
	t.Helper()
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	sess, err = svc.StartConversation(ctx, sess.SessionID, "sk-test")
	if err != nil {
		t.Fatalf("StartConversation failed: %v", err)
	}
	return sess
}

func appErrCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		t.Fatalf("Expected AppError, got %T: %v", err, err)
	}
	return appErr.Code
}

func TestCreateAndGetSession(t *testing.T) {
	svc, _ := newTestService(&fakeGateway{})
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if sess.SessionID == "" {
		t.Error("Expected a generated session ID")
	}
	if sess.Status != types.StageStarted {
		t.Errorf("Expected status started, got %s", sess.Status)
	}

	got, err := svc.GetSession(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.SessionID != sess.SessionID {
		t.Error("GetSession returned wrong session")
	}
}

func TestGetSessionNotFound(t *testing.T) {
	svc, _ := newTestService(&fakeGateway{})

	_, err := svc.GetSession(context.Background(), "missing")
	if code := appErrCode(t, err); code != errors.ErrCodeSessionNotFound {
		t.Errorf("Expected SESSION_NOT_FOUND, got %s", code)
	}
}

func TestStartConversation(t *testing.T) {
	gw := &fakeGateway{}
	svc, _ := newTestService(gw)

	sess := startedSession(t, svc)

	if sess.AssistantID != "asst_test" || sess.ThreadID != "thread_test" {
		t.Errorf("Expected assistant/thread IDs set, got %q/%q", sess.AssistantID, sess.ThreadID)
	}
	if sess.Status != types.StageCollectingProfession {
		t.Errorf("Expected collecting_profession after start, got %s", sess.Status)
	}
	if !gw.closed {
		t.Error("Gateway should be closed after start")
	}
}

func TestStartConversationIdempotent(t *testing.T) {
	svc, _ := newTestService(&fakeGateway{})
	ctx := context.Background()

	sess := startedSession(t, svc)

	again, err := svc.StartConversation(ctx, sess.SessionID, "sk-test")
	if err != nil {
		t.Fatalf("Second StartConversation failed: %v", err)
	}
	if again.AssistantID != sess.AssistantID || again.ThreadID != sess.ThreadID {
		t.Error("Repeated start should return the existing assistant and thread")
	}
}

func TestSendMessageRequiresInitialization(t *testing.T) {
	svc, _ := newTestService(&fakeGateway{})
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	_, err = svc.SendMessage(ctx, sess.SessionID, "sk-test", "hello")
	if code := appErrCode(t, err); code != errors.ErrCodeSessionNotInitialized {
		t.Errorf("Expected SESSION_NOT_INITIALIZED, got %s", code)
	}
}

func TestSendMessageAdvancesStages(t *testing.T) {
	gw := &fakeGateway{
		turns: []*assistant.TurnResult{
			{Message: "Hello! What is your profession?"},
			{Message: "Based on your profession as a software engineer, I suggest the following sections:\n- Work Experience\n- Education\n- Skills"},
			{Message: "Great. Could you share your full name and contact information?"},
		},
	}
	svc, _ := newTestService(gw)
	ctx := context.Background()

	sess := startedSession(t, svc)

	// Turn 1: assistant asks for the profession
	res, err := svc.SendMessage(ctx, sess.SessionID, "sk-test", "Hi, I want to build my CV")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if res.Status == nil || *res.Status != types.StageCollectingProfession {
		t.Errorf("Expected collecting_profession, got %v", res.Status)
	}

	// Turn 2: assistant suggests sections for the stated profession
	res, err = svc.SendMessage(ctx, sess.SessionID, "sk-test", "I am a software engineer")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if res.Status == nil || *res.Status != types.StageSelectingSections {
		t.Errorf("Expected selecting_sections, got %v", res.Status)
	}

	current, err := svc.GetSession(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if current.Profession != "software engineer" {
		t.Errorf("Expected extracted profession, got %q", current.Profession)
	}
	if len(current.Sections) != 3 || current.Sections[0] != "Work Experience" {
		t.Errorf("Expected extracted sections, got %v", current.Sections)
	}

	// Turn 3: assistant starts collecting details
	res, err = svc.SendMessage(ctx, sess.SessionID, "sk-test", "Those sections look good")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if res.Status == nil || *res.Status != types.StageCollectingDetails {
		t.Errorf("Expected collecting_details, got %v", res.Status)
	}

	// Transcript holds alternating user and assistant messages in order
	if len(res.Messages) != 6 {
		t.Fatalf("Expected 6 transcript messages, got %d", len(res.Messages))
	}
	for i, msg := range res.Messages {
		wantRole := "user"
		if i%2 == 1 {
			wantRole = "assistant"
		}
		if msg.Role != wantRole {
			t.Errorf("Message %d: expected role %s, got %s", i, wantRole, msg.Role)
		}
	}
}

func TestSendMessageToolCallCompletesSession(t *testing.T) {
	cvData := &types.CVData{
		PersonalInfo: types.PersonalInfo{FullName: "Jane Doe"},
		Sections: []types.CVSection{
			{Title: "Skills", Content: types.TextContent("Go, distributed systems")},
		},
	}
	closing := "I've collected all the information and generated your CV. You can now download it as a PDF."
	gw := &fakeGateway{
		turns: []*assistant.TurnResult{
			{Message: closing, CVData: cvData, Completed: true},
		},
	}
	svc, _ := newTestService(gw)
	ctx := context.Background()

	sess := startedSession(t, svc)

	res, err := svc.SendMessage(ctx, sess.SessionID, "sk-test", "Yes, the CV is correct, generate it")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if !res.Completed {
		t.Error("Expected completed result")
	}
	if res.Status == nil || *res.Status != types.StageCompleted {
		t.Errorf("Expected completed status, got %v", res.Status)
	}
	if res.CVData == nil || res.CVData.PersonalInfo.FullName != "Jane Doe" {
		t.Error("Expected CV data in result")
	}

	// The tool-call turn still ends with an assistant reply in the transcript
	if len(res.Messages) != 2 {
		t.Fatalf("Expected user and assistant messages in transcript, got %d", len(res.Messages))
	}
	if res.Messages[1].Role != "assistant" || res.Messages[1].Content != closing {
		t.Errorf("Expected closing assistant message, got %+v", res.Messages[1])
	}

	current, err := svc.GetSession(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if !current.Completed || current.Status != types.StageCompleted {
		t.Error("Session should be marked completed")
	}
	if current.CVData == nil {
		t.Error("Session should hold the captured CV data")
	}
}

func TestSendMessageAfterCompletionKeepsCompletedWithoutCV(t *testing.T) {
	cvData := &types.CVData{
		PersonalInfo: types.PersonalInfo{FullName: "Jane Doe"},
	}
	gw := &fakeGateway{
		turns: []*assistant.TurnResult{
			{Message: "CV generated.", CVData: cvData, Completed: true},
			{Message: "You're welcome!"},
		},
	}
	svc, _ := newTestService(gw)
	ctx := context.Background()

	sess := startedSession(t, svc)

	if _, err := svc.SendMessage(ctx, sess.SessionID, "sk-test", "generate it"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	// A follow-up turn after completion is a plain reply: the session
	// stays completed but the turn itself carries no CV data.
	res, err := svc.SendMessage(ctx, sess.SessionID, "sk-test", "thanks")
	if err != nil {
		t.Fatalf("Follow-up SendMessage failed: %v", err)
	}
	if !res.Completed {
		t.Error("Session should stay completed after a follow-up message")
	}
	if res.CVData != nil {
		t.Error("Follow-up turn should not carry CV data")
	}

	current, err := svc.GetSession(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if current.CVData == nil {
		t.Error("Session should retain the captured CV data")
	}
}

func TestSendMessageTurnGuard(t *testing.T) {
	svc, store := newTestService(&fakeGateway{
		turns: []*assistant.TurnResult{{Message: "ok"}},
	})
	ctx := context.Background()

	sess := startedSession(t, svc)

	// Simulate an in-flight turn
	if !store.TryBeginTurn(sess.SessionID) {
		t.Fatal("Expected to reserve the turn")
	}
	defer store.EndTurn(sess.SessionID)

	_, err := svc.SendMessage(ctx, sess.SessionID, "sk-test", "hello")
	if code := appErrCode(t, err); code != errors.ErrCodeTurnInFlight {
		t.Errorf("Expected TURN_IN_FLIGHT, got %s", code)
	}
}

func TestSendMessageFailureKeepsUserMessage(t *testing.T) {
	gw := &fakeGateway{
		turnErr: errors.NewAssistantError(errors.ErrCodeAssistantRunFailed, "run failed", nil),
	}
	svc, _ := newTestService(gw)
	ctx := context.Background()

	sess := startedSession(t, svc)

	_, err := svc.SendMessage(ctx, sess.SessionID, "sk-test", "hello")
	if code := appErrCode(t, err); code != errors.ErrCodeAssistantRunFailed {
		t.Errorf("Expected ASSISTANT_RUN_FAILED, got %s", code)
	}

	// The user message is persisted even when the turn fails
	msgs, err := svc.Transcript(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("Transcript failed: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Role != "user" || msgs[0].Content != "hello" {
		t.Errorf("Expected persisted user message, got %v", msgs)
	}

	// The turn guard is released, a retry is possible
	gw.turnErr = nil
	gw.turns = []*assistant.TurnResult{{Message: "What is your profession?"}}
	if _, err := svc.SendMessage(ctx, sess.SessionID, "sk-test", "hello again"); err != nil {
		t.Fatalf("Retry after failure should succeed: %v", err)
	}
}
