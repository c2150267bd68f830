package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/akazantsev/sputnik/pkg/sputnik/channels"
)

// fakeCompleter records calls and replies with a fixed transform or error.
type fakeCompleter struct {
	mu    sync.Mutex
	calls [][]Message
	err   error

	// replyFn builds the reply from the snapshot; defaults to echoing the
	// last user message.
	replyFn func(messages []Message) string
}

func (f *fakeCompleter) Complete(_ context.Context, messages []Message) (string, error) {
	f.mu.Lock()
	snapshot := make([]Message, len(messages))
	copy(snapshot, messages)
	f.calls = append(f.calls, snapshot)
	f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	if f.replyFn != nil {
		return f.replyFn(messages), nil
	}
	return "re: " + messages[len(messages)-1].Content, nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestController(completer Completer, persona PersonaConfig) (*Controller, *HistoryStore, *ActiveSet) {
	store := NewHistoryStore(persona.MaxHistory)
	active := NewActiveSet()
	return NewController(store, active, completer, persona, testLogger()), store, active
}

func plainMessage(chatID, text string) *channels.IncomingMessage {
	return &channels.IncomingMessage{
		Channel: "test",
		ChatID:  chatID,
		Content: text,
	}
}

func commandMessage(chatID, command string) *channels.IncomingMessage {
	return &channels.IncomingMessage{
		Channel: "test",
		ChatID:  chatID,
		Command: command,
	}
}

func TestControllerCommands(t *testing.T) {
	persona := DefaultPersonaConfig()
	ctrl, store, active := newTestController(&fakeCompleter{}, persona)
	ctx := context.Background()
	ref := testRef("1")

	t.Run("start resets and welcomes", func(t *testing.T) {
		reply := ctrl.Handle(ctx, commandMessage("1", "start"))
		if reply != persona.Texts.Welcome {
			t.Errorf("got %q, want welcome text", reply)
		}
		history, err := store.Snapshot(ref)
		if err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
		if len(history) != 1 || history[0].Role != RoleSystem {
			t.Errorf("unexpected history after start: %+v", history)
		}
	})

	t.Run("clear resets with its own text", func(t *testing.T) {
		store.AppendUser(ref, "something")
		reply := ctrl.Handle(ctx, commandMessage("1", "clear"))
		if reply != persona.Texts.HistoryCleared {
			t.Errorf("got %q, want history-cleared text", reply)
		}
		history, _ := store.Snapshot(ref)
		if len(history) != 1 {
			t.Errorf("expected history length 1, got %d", len(history))
		}
	})

	t.Run("enable then enable again", func(t *testing.T) {
		if got := ctrl.Handle(ctx, commandMessage("1", "enable")); got != persona.Texts.SpontaneousOn {
			t.Errorf("first enable: got %q", got)
		}
		if got := ctrl.Handle(ctx, commandMessage("1", "enable")); got != persona.Texts.SpontaneousAlrOn {
			t.Errorf("second enable: got %q", got)
		}
		if active.Len() != 1 {
			t.Errorf("set size changed on repeat enable: %d", active.Len())
		}
	})

	t.Run("disable then disable again", func(t *testing.T) {
		if got := ctrl.Handle(ctx, commandMessage("1", "disable")); got != persona.Texts.SpontaneousOff {
			t.Errorf("first disable: got %q", got)
		}
		if got := ctrl.Handle(ctx, commandMessage("1", "disable")); got != persona.Texts.SpontaneousAlrOff {
			t.Errorf("second disable: got %q", got)
		}
		if active.Len() != 0 {
			t.Errorf("set size changed on repeat disable: %d", active.Len())
		}
	})

	t.Run("unknown command", func(t *testing.T) {
		if got := ctrl.Handle(ctx, commandMessage("1", "dance")); got != persona.Texts.UnknownCommand {
			t.Errorf("got %q, want unknown-command text", got)
		}
	})
}

func TestControllerEmptyInput(t *testing.T) {
	persona := DefaultPersonaConfig()
	completer := &fakeCompleter{}
	ctrl, store, _ := newTestController(completer, persona)

	for _, input := range []string{"", "   ", "\n\t "} {
		reply := ctrl.Handle(context.Background(), plainMessage("1", input))
		if reply != persona.Texts.EmptyPrompt {
			t.Errorf("input %q: got %q, want empty-prompt text", input, reply)
		}
	}

	if completer.callCount() != 0 {
		t.Errorf("empty input must never trigger a completion, got %d calls", completer.callCount())
	}
	if store.Exists(testRef("1")) {
		t.Error("empty input must not create a history")
	}
}

func TestControllerFirstContact(t *testing.T) {
	t.Run("greet variant replies with welcome only", func(t *testing.T) {
		persona := DefaultPersonaConfig()
		persona.GreetFirstContact = true
		completer := &fakeCompleter{}
		ctrl, store, active := newTestController(completer, persona)

		reply := ctrl.Handle(context.Background(), plainMessage("1", "hello there"))
		if reply != persona.Texts.Welcome {
			t.Errorf("got %q, want welcome text", reply)
		}
		if completer.callCount() != 0 {
			t.Error("greet variant must not call the completer on first contact")
		}
		history, _ := store.Snapshot(testRef("1"))
		if len(history) != 1 {
			t.Errorf("expected only the system message, got %d messages", len(history))
		}
		if !active.Contains(testRef("1")) {
			t.Error("first contact should enroll the conversation")
		}
	})

	t.Run("full-turn variant completes immediately", func(t *testing.T) {
		persona := DefaultPersonaConfig()
		persona.GreetFirstContact = false
		completer := &fakeCompleter{}
		ctrl, store, _ := newTestController(completer, persona)

		reply := ctrl.Handle(context.Background(), plainMessage("1", "hello there"))
		if reply != "re: hello there" {
			t.Errorf("got %q, want completion reply", reply)
		}
		history, _ := store.Snapshot(testRef("1"))
		if len(history) != 3 {
			t.Fatalf("expected system+user+assistant, got %d messages", len(history))
		}
	})
}

func TestControllerEnrollOnStart(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		persona := DefaultPersonaConfig()
		persona.EnrollOnStart = true
		ctrl, _, active := newTestController(&fakeCompleter{}, persona)

		ctrl.Handle(context.Background(), commandMessage("1", "start"))
		if !active.Contains(testRef("1")) {
			t.Error("start should enroll when the policy is on")
		}
	})

	t.Run("disabled", func(t *testing.T) {
		persona := DefaultPersonaConfig()
		persona.EnrollOnStart = false
		ctrl, _, active := newTestController(&fakeCompleter{}, persona)

		ctrl.Handle(context.Background(), commandMessage("1", "start"))
		if active.Contains(testRef("1")) {
			t.Error("start should not enroll when the policy is off")
		}
	})
}

func TestControllerTurn(t *testing.T) {
	persona := DefaultPersonaConfig()
	persona.GreetFirstContact = false
	completer := &fakeCompleter{}
	ctrl, store, _ := newTestController(completer, persona)
	ctx := context.Background()

	ctrl.Handle(ctx, plainMessage("1", "first"))
	reply := ctrl.Handle(ctx, plainMessage("1", "second"))
	if reply != "re: second" {
		t.Errorf("got %q", reply)
	}

	// The completer must see the history including the new user message.
	completer.mu.Lock()
	lastCall := completer.calls[len(completer.calls)-1]
	completer.mu.Unlock()

	if lastCall[0].Role != RoleSystem {
		t.Error("snapshot must start with the system message")
	}
	if last := lastCall[len(lastCall)-1]; last.Role != RoleUser || last.Content != "second" {
		t.Errorf("snapshot must end with the new user message, got %+v", last)
	}

	history, _ := store.Snapshot(testRef("1"))
	if len(history) != 5 {
		t.Errorf("expected 5 messages (system + 2 exchanges), got %d", len(history))
	}
}

func TestControllerCompletionFailure(t *testing.T) {
	persona := DefaultPersonaConfig()
	persona.GreetFirstContact = false
	completer := &fakeCompleter{err: fmt.Errorf("connection refused")}
	ctrl, store, _ := newTestController(completer, persona)

	reply := ctrl.Handle(context.Background(), plainMessage("1", "are you there?"))

	if !strings.Contains(reply, "connection refused") {
		t.Errorf("error reply must carry the cause, got %q", reply)
	}
	if !strings.HasPrefix(reply, persona.Texts.ErrorPrefix) {
		t.Errorf("error reply must carry the fixed prefix, got %q", reply)
	}

	// The user message stays; no assistant message is appended.
	history, _ := store.Snapshot(testRef("1"))
	if len(history) != 2 {
		t.Fatalf("expected system+user, got %d messages", len(history))
	}
	if history[1].Role != RoleUser || history[1].Content != "are you there?" {
		t.Errorf("user message must not be rolled back, got %+v", history[1])
	}
}

func TestControllerConcurrentTurns(t *testing.T) {
	persona := DefaultPersonaConfig()
	persona.GreetFirstContact = false
	persona.MaxHistory = 20
	completer := &fakeCompleter{
		replyFn: func(messages []Message) string {
			return "re: " + messages[len(messages)-1].Content
		},
	}
	ctrl, store, _ := newTestController(completer, persona)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctrl.Handle(context.Background(), plainMessage("1", fmt.Sprintf("turn %d", i)))
		}(i)
	}
	wg.Wait()

	history, _ := store.Snapshot(testRef("1"))
	if len(history) != 5 {
		t.Fatalf("expected system + 2 full exchanges, got %d messages", len(history))
	}

	// Each user message must be immediately followed by its own reply.
	for i, msg := range history {
		if msg.Role != RoleUser {
			continue
		}
		if i+1 >= len(history) {
			t.Fatalf("user message at %d has no reply", i)
		}
		next := history[i+1]
		if next.Role != RoleAssistant || next.Content != "re: "+msg.Content {
			t.Errorf("turn interleaved: %q followed by %+v", msg.Content, next)
		}
	}
}
