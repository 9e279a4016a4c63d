package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cvcraft/internal/types"
)

func TestCreateAndGetSession(t *testing.T) {
	store := NewMemoryStore()

	sess := &types.Session{SessionID: "s1", Status: types.StageStarted}
	if err := store.CreateSession(sess); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := store.CreateSession(sess); !errors.Is(err, ErrExists) {
		t.Errorf("expected ErrExists on duplicate create, got %v", err)
	}

	got, err := store.GetSession("s1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.SessionID != "s1" || got.Status != types.StageStarted {
		t.Errorf("unexpected session: %+v", got)
	}

	// The returned session is a copy; mutating it must not leak back.
	got.Profession = "plumber"
	again, _ := store.GetSession("s1")
	if again.Profession != "" {
		t.Error("mutation of returned session leaked into the store")
	}

	if _, err := store.GetSession("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateSession(t *testing.T) {
	store := NewMemoryStore()

	if err := store.UpdateSession(&types.Session{SessionID: "ghost"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound updating missing session, got %v", err)
	}

	sess := &types.Session{SessionID: "s1", Status: types.StageStarted}
	if err := store.CreateSession(sess); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	sess.Status = types.StageCollectingProfession
	sess.AssistantID = "asst_1"
	if err := store.UpdateSession(sess); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, _ := store.GetSession("s1")
	if got.Status != types.StageCollectingProfession || got.AssistantID != "asst_1" {
		t.Errorf("update not applied: %+v", got)
	}
}

func TestMessagesPreserveInsertionOrder(t *testing.T) {
	store := NewMemoryStore()
	if err := store.CreateSession(&types.Session{SessionID: "s1"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	base := time.Now()
	for i := 0; i < 10; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		err := store.AppendMessage("s1", types.ChatMessage{
			Role:      role,
			Content:   fmt.Sprintf("msg-%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}

	msgs, err := store.Messages("s1")
	if err != nil {
		t.Fatalf("messages failed: %v", err)
	}
	if len(msgs) != 10 {
		t.Fatalf("expected 10 messages, got %d", len(msgs))
	}
	for i, msg := range msgs {
		if want := fmt.Sprintf("msg-%d", i); msg.Content != want {
			t.Errorf("position %d: got %q, want %q", i, msg.Content, want)
		}
	}

	if err := store.AppendMessage("missing", types.ChatMessage{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound appending to missing session, got %v", err)
	}
}

func TestTurnGuard(t *testing.T) {
	store := NewMemoryStore()

	if !store.TryBeginTurn("s1") {
		t.Fatal("first TryBeginTurn should succeed")
	}
	if store.TryBeginTurn("s1") {
		t.Error("second TryBeginTurn should fail while turn is in flight")
	}
	if !store.TryBeginTurn("s2") {
		t.Error("turn guard must be per-session")
	}

	store.EndTurn("s1")
	if !store.TryBeginTurn("s1") {
		t.Error("TryBeginTurn should succeed after EndTurn")
	}
}

func TestConcurrentAppends(t *testing.T) {
	store := NewMemoryStore()
	if err := store.CreateSession(&types.Session{SessionID: "s1"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.AppendMessage("s1", types.ChatMessage{Role: "user", Content: fmt.Sprintf("c-%d", n)})
		}(i)
	}
	wg.Wait()

	msgs, err := store.Messages("s1")
	if err != nil {
		t.Fatalf("messages failed: %v", err)
	}
	if len(msgs) != 50 {
		t.Errorf("expected 50 messages after concurrent appends, got %d", len(msgs))
	}
}
