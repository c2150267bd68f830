package discord

import (
	"strings"
	"testing"
)

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		text        string
		wantCommand string
		wantRest    string
	}{
		{"hello", "", "hello"},
		{"/start", "start", ""},
		{"/CLEAR  ", "clear", ""},
		{"/enable please", "enable", "please"},
		{"/", "", "/"},
	}

	for _, tc := range tests {
		command, rest := splitCommand(tc.text)
		if command != tc.wantCommand || rest != tc.wantRest {
			t.Errorf("splitCommand(%q) = (%q, %q), want (%q, %q)",
				tc.text, command, rest, tc.wantCommand, tc.wantRest)
		}
	}
}

func TestSplitMessage(t *testing.T) {
	t.Run("short message stays whole", func(t *testing.T) {
		chunks := splitMessage("hello", 2000)
		if len(chunks) != 1 || chunks[0] != "hello" {
			t.Errorf("got %v", chunks)
		}
	})

	t.Run("long message splits within limit", func(t *testing.T) {
		long := strings.Repeat("a", 4500)
		chunks := splitMessage(long, 2000)

		if len(chunks) < 3 {
			t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
		}
		var total int
		for i, c := range chunks {
			if len(c) > 2000 {
				t.Errorf("chunk %d exceeds limit: %d", i, len(c))
			}
			total += len(c)
		}
		if total != 4500 {
			t.Errorf("content lost in split: %d of 4500", total)
		}
	})

	t.Run("prefers newline boundaries", func(t *testing.T) {
		text := strings.Repeat("b", 1500) + "\n" + strings.Repeat("c", 1000)
		chunks := splitMessage(text, 2000)
		if len(chunks) != 2 {
			t.Fatalf("expected 2 chunks, got %d", len(chunks))
		}
		if !strings.HasSuffix(chunks[0], "\n") {
			t.Error("first chunk should end at the newline")
		}
	})
}

func TestContains(t *testing.T) {
	list := []string{"a", "b"}
	if !contains(list, "a") {
		t.Error("expected true for present id")
	}
	if contains(list, "z") {
		t.Error("expected false for absent id")
	}
	if contains(nil, "a") {
		t.Error("expected false for nil list")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.RespondToDMs || !cfg.RespondToGuilds {
		t.Error("defaults should respond to DMs and guilds")
	}
}
