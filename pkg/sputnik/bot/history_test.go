package bot

import (
	"errors"
	"fmt"
	"testing"
)

func testRef(id string) ConversationRef {
	return ConversationRef{Channel: "test", ChatID: id}
}

func TestHistoryStoreReset(t *testing.T) {
	store := NewHistoryStore(10)
	ref := testRef("1")

	t.Run("fresh conversation", func(t *testing.T) {
		store.Reset(ref, "persona")

		history, err := store.Snapshot(ref)
		if err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("expected length 1, got %d", len(history))
		}
		if history[0].Role != RoleSystem || history[0].Content != "persona" {
			t.Errorf("unexpected head: %+v", history[0])
		}
	})

	t.Run("reset clears prior state", func(t *testing.T) {
		if err := store.AppendUser(ref, "hello"); err != nil {
			t.Fatalf("AppendUser: %v", err)
		}
		if err := store.AppendAssistant(ref, "hi"); err != nil {
			t.Fatalf("AppendAssistant: %v", err)
		}

		store.Reset(ref, "persona")

		history, err := store.Snapshot(ref)
		if err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
		if len(history) != 1 {
			t.Errorf("expected length 1 after reset, got %d", len(history))
		}
	})
}

func TestHistoryStoreEnsure(t *testing.T) {
	store := NewHistoryStore(10)
	ref := testRef("1")

	history, existed := store.Ensure(ref, "persona")
	if existed {
		t.Error("expected existed=false on first Ensure")
	}
	if len(history) != 1 || history[0].Role != RoleSystem {
		t.Fatalf("unexpected initial history: %+v", history)
	}

	if err := store.AppendUser(ref, "hello"); err != nil {
		t.Fatalf("AppendUser: %v", err)
	}

	history, existed = store.Ensure(ref, "other persona")
	if !existed {
		t.Error("expected existed=true on second Ensure")
	}
	if len(history) != 2 {
		t.Errorf("Ensure must not recreate an existing history, got %d messages", len(history))
	}
	if history[0].Content != "persona" {
		t.Errorf("Ensure must keep the original system message, got %q", history[0].Content)
	}
}

func TestHistoryStoreNotFound(t *testing.T) {
	store := NewHistoryStore(10)
	ref := testRef("missing")

	if err := store.AppendUser(ref, "x"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("AppendUser: expected ErrConversationNotFound, got %v", err)
	}
	if err := store.AppendAssistant(ref, "x"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("AppendAssistant: expected ErrConversationNotFound, got %v", err)
	}
	if _, err := store.Snapshot(ref); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Snapshot: expected ErrConversationNotFound, got %v", err)
	}
}

func TestHistoryStoreOrdering(t *testing.T) {
	store := NewHistoryStore(10)
	ref := testRef("1")
	store.Reset(ref, "persona")

	if err := store.AppendUser(ref, "question"); err != nil {
		t.Fatalf("AppendUser: %v", err)
	}
	if err := store.AppendAssistant(ref, "answer"); err != nil {
		t.Fatalf("AppendAssistant: %v", err)
	}

	history, _ := store.Snapshot(ref)
	if history[1].Role != RoleUser || history[1].Content != "question" {
		t.Errorf("position 1: got %+v", history[1])
	}
	if history[2].Role != RoleAssistant || history[2].Content != "answer" {
		t.Errorf("position 2: got %+v", history[2])
	}
}

func TestHistoryStoreTruncation(t *testing.T) {
	store := NewHistoryStore(10)
	ref := testRef("1")
	store.Reset(ref, "persona")

	// Six exchanges: 12 appended messages on top of the system message.
	var appended []string
	for i := 1; i <= 6; i++ {
		user := fmt.Sprintf("user %d", i)
		reply := fmt.Sprintf("reply %d", i)
		if err := store.AppendUser(ref, user); err != nil {
			t.Fatalf("AppendUser: %v", err)
		}
		if err := store.AppendAssistant(ref, reply); err != nil {
			t.Fatalf("AppendAssistant: %v", err)
		}
		appended = append(appended, user, reply)
	}

	history, err := store.Snapshot(ref)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if len(history) != 10 {
		t.Fatalf("expected length 10, got %d", len(history))
	}
	if history[0].Role != RoleSystem {
		t.Fatalf("head must stay the system message, got %+v", history[0])
	}

	// The tail is the last 9 appended messages, order preserved.
	want := appended[len(appended)-9:]
	for i, content := range want {
		if history[i+1].Content != content {
			t.Errorf("position %d: got %q, want %q", i+1, history[i+1].Content, content)
		}
	}
}

func TestHistoryStoreMinimumBound(t *testing.T) {
	store := NewHistoryStore(0)
	if store.MaxHistory() != 2 {
		t.Errorf("expected floor of 2, got %d", store.MaxHistory())
	}
}

func TestHistoryStoreSnapshotIsolation(t *testing.T) {
	store := NewHistoryStore(10)
	ref := testRef("1")
	store.Reset(ref, "persona")

	snap, _ := store.Snapshot(ref)
	snap[0] = UserMessage("tampered")

	fresh, _ := store.Snapshot(ref)
	if fresh[0].Role != RoleSystem || fresh[0].Content != "persona" {
		t.Errorf("snapshot mutation leaked into the store: %+v", fresh[0])
	}
}
