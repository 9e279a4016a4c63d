package assistant

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cvcraft/internal/config"
	cvcraftErrors "cvcraft/internal/errors"
)

func newStubGateway(t *testing.T, baseURL string) *OpenAIGateway {
	t.Helper()

	logger, err := cvcraftErrors.New("error")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	gw, err := NewOpenAIGateway(&config.AssistantConfig{
		Provider:        "openai",
		Model:           "gpt-4o",
		APIKey:          "sk-test",
		BaseURL:         baseURL,
		Timeout:         time.Second,
		MaxRetries:      1,
		PollInterval:    5 * time.Millisecond,
		MaxTurnDuration: 250 * time.Millisecond,
	}, logger)
	if err != nil {
		t.Fatalf("NewOpenAIGateway failed: %v", err)
	}
	return gw
}

func jsonReply(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func TestRunTurnToolCallShortCircuit(t *testing.T) {
	var listCalls, submitCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /threads/thread_1/messages", jsonReply(`{"id":"msg_user"}`))
	mux.HandleFunc("POST /threads/thread_1/runs", jsonReply(`{"id":"run_1","thread_id":"thread_1","status":"queued"}`))
	mux.HandleFunc("GET /threads/thread_1/runs/run_1", jsonReply(`{
		"id":"run_1","thread_id":"thread_1","status":"requires_action",
		"required_action":{"type":"submit_tool_outputs","submit_tool_outputs":{"tool_calls":[
			{"id":"call_1","type":"function","function":{"name":"generate_cv",
				"arguments":"{\"personalInfo\":{\"fullName\":\"Jane Doe\"},\"sections\":[]}"}}
		]}},
		"usage":{"prompt_tokens":40,"completion_tokens":12,"total_tokens":52}
	}`))
	mux.HandleFunc("POST /threads/thread_1/runs/run_1/submit_tool_outputs", func(w http.ResponseWriter, r *http.Request) {
		submitCalls.Add(1)
		jsonReply(`{"id":"run_1","thread_id":"thread_1","status":"completed"}`)(w, r)
	})
	mux.HandleFunc("GET /threads/thread_1/messages", func(w http.ResponseWriter, r *http.Request) {
		listCalls.Add(1)
		jsonReply(`{"object":"list","data":[]}`)(w, r)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	gw := newStubGateway(t, srv.URL)
	result, err := gw.RunTurn(context.Background(), "asst_1", "thread_1", "Generate my CV")
	if err != nil {
		t.Fatalf("RunTurn failed: %v", err)
	}

	if !result.Completed {
		t.Error("Expected completed turn on generate_cv tool call")
	}
	if result.CVData == nil || result.CVData.PersonalInfo.FullName != "Jane Doe" {
		t.Errorf("Expected parsed CV data, got %+v", result.CVData)
	}
	if !strings.Contains(result.Message, "generated your CV") {
		t.Errorf("Expected closing reply on short-circuit, got %q", result.Message)
	}
	if result.Usage == nil || result.Usage.TotalTokens != 52 {
		t.Errorf("Expected token usage from the run, got %+v", result.Usage)
	}
	if got := submitCalls.Load(); got != 1 {
		t.Errorf("Expected one tool output submission, got %d", got)
	}
	// The short-circuit returns without fetching the thread messages
	if got := listCalls.Load(); got != 0 {
		t.Errorf("Expected no message-list fetch on short-circuit, got %d", got)
	}
}

func TestRunTurnCompletedFetchesLatestReply(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /threads/thread_1/messages", jsonReply(`{"id":"msg_user"}`))
	mux.HandleFunc("POST /threads/thread_1/runs", jsonReply(`{"id":"run_1","thread_id":"thread_1","status":"queued"}`))
	mux.HandleFunc("GET /threads/thread_1/runs/run_1", jsonReply(`{
		"id":"run_1","thread_id":"thread_1","status":"completed",
		"usage":{"prompt_tokens":20,"completion_tokens":8,"total_tokens":28}
	}`))
	mux.HandleFunc("GET /threads/thread_1/messages", jsonReply(`{"object":"list","data":[
		{"id":"msg_1","role":"user","content":[{"type":"text","text":{"value":"Hi","annotations":[]}}]},
		{"id":"msg_2","role":"assistant","content":[{"type":"text","text":{"value":"What is your profession?","annotations":[]}}]}
	]}`))

	srv := httptest.NewServer(mux)
	defer srv.Close()

	gw := newStubGateway(t, srv.URL)
	result, err := gw.RunTurn(context.Background(), "asst_1", "thread_1", "Hi")
	if err != nil {
		t.Fatalf("RunTurn failed: %v", err)
	}

	if result.Completed {
		t.Error("A plain reply turn must not be marked completed")
	}
	if result.CVData != nil {
		t.Error("A plain reply turn must not carry CV data")
	}
	if result.Message != "What is your profession?" {
		t.Errorf("Expected latest assistant reply, got %q", result.Message)
	}
}

func TestRunTurnFailedRun(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /threads/thread_1/messages", jsonReply(`{"id":"msg_user"}`))
	mux.HandleFunc("POST /threads/thread_1/runs", jsonReply(`{"id":"run_1","thread_id":"thread_1","status":"queued"}`))
	mux.HandleFunc("GET /threads/thread_1/runs/run_1", jsonReply(`{
		"id":"run_1","thread_id":"thread_1","status":"failed",
		"last_error":{"code":"server_error","message":"model crashed"}
	}`))

	srv := httptest.NewServer(mux)
	defer srv.Close()

	gw := newStubGateway(t, srv.URL)
	_, err := gw.RunTurn(context.Background(), "asst_1", "thread_1", "Hi")
	if err == nil {
		t.Fatal("Expected error for failed run")
	}

	var appErr *cvcraftErrors.AppError
	if !stderrors.As(err, &appErr) {
		t.Fatalf("Expected AppError, got %T: %v", err, err)
	}
	if appErr.Code != cvcraftErrors.ErrCodeAssistantRunFailed {
		t.Errorf("Expected ASSISTANT_RUN_FAILED, got %s", appErr.Code)
	}
	if !strings.Contains(appErr.Error(), "model crashed") {
		t.Errorf("Expected upstream error detail, got %v", appErr)
	}
}

func TestRunTurnTimesOut(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /threads/thread_1/messages", jsonReply(`{"id":"msg_user"}`))
	mux.HandleFunc("POST /threads/thread_1/runs", jsonReply(`{"id":"run_1","thread_id":"thread_1","status":"queued"}`))
	// The run never leaves in_progress, so the turn deadline has to fire
	mux.HandleFunc("GET /threads/thread_1/runs/run_1", jsonReply(`{"id":"run_1","thread_id":"thread_1","status":"in_progress"}`))

	srv := httptest.NewServer(mux)
	defer srv.Close()

	gw := newStubGateway(t, srv.URL)
	_, err := gw.RunTurn(context.Background(), "asst_1", "thread_1", "Hi")
	if err == nil {
		t.Fatal("Expected timeout error")
	}

	var appErr *cvcraftErrors.AppError
	if !stderrors.As(err, &appErr) {
		t.Fatalf("Expected AppError, got %T: %v", err, err)
	}
	if appErr.Code != cvcraftErrors.ErrCodeTurnTimeout {
		t.Errorf("Expected TURN_TIMEOUT, got %s", appErr.Code)
	}
}
