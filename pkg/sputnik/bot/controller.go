// controller.go drives one conversation turn: commands, input validation,
// history updates, and the single completion call per message.
package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/akazantsev/sputnik/pkg/sputnik/channels"
)

// PersonaConfig defines the assistant's voice and the conversation policies.
type PersonaConfig struct {
	// SystemPrompt is the directive prepended to every history.
	SystemPrompt string `yaml:"system_prompt"`

	// MaxHistory bounds each history length, system message included.
	MaxHistory int `yaml:"max_history"`

	// GreetFirstContact controls first-contact behavior for a plain message
	// with no existing history: true replies with the welcome text only,
	// false runs a full completion turn.
	GreetFirstContact bool `yaml:"greet_first_contact"`

	// EnrollOnStart controls whether a reset (/start, /clear) also enrolls
	// the conversation for spontaneous messages.
	EnrollOnStart bool `yaml:"enroll_on_start"`

	// Texts are the user-visible acknowledgement strings.
	Texts Texts `yaml:"texts"`
}

// DefaultPersonaConfig returns a PersonaConfig with sensible defaults.
func DefaultPersonaConfig() PersonaConfig {
	return PersonaConfig{
		SystemPrompt:      "You are a friendly conversational companion. Keep replies short and warm.",
		MaxHistory:        10,
		GreetFirstContact: true,
		EnrollOnStart:     false,
		Texts:             DefaultTexts(),
	}
}

// Texts holds the fixed user-visible reply strings.
type Texts struct {
	Welcome           string `yaml:"welcome"`
	HistoryCleared    string `yaml:"history_cleared"`
	EmptyPrompt       string `yaml:"empty_prompt"`
	ErrorPrefix       string `yaml:"error_prefix"`
	SpontaneousOn     string `yaml:"spontaneous_on"`
	SpontaneousAlrOn  string `yaml:"spontaneous_already_on"`
	SpontaneousOff    string `yaml:"spontaneous_off"`
	SpontaneousAlrOff string `yaml:"spontaneous_already_off"`
	UnknownCommand    string `yaml:"unknown_command"`
}

// DefaultTexts returns the default reply strings.
func DefaultTexts() Texts {
	return Texts{
		Welcome:           "Hi! I'm here, write me anything.",
		HistoryCleared:    "Done, I've forgotten our conversation. Clean slate!",
		EmptyPrompt:       "Send me some text and I'll reply.",
		ErrorPrefix:       "Something went wrong: ",
		SpontaneousOn:     "I'll write to you myself from time to time now.",
		SpontaneousAlrOn:  "I'm already writing to you on my own.",
		SpontaneousOff:    "Okay, I'll only reply when you write first.",
		SpontaneousAlrOff: "I was already staying quiet.",
		UnknownCommand:    "I don't know that command. Try /start or /clear.",
	}
}

// Controller orchestrates conversation turns. Turns for the same
// conversation are linearized with a per-conversation lock held across the
// completion call; different conversations proceed in parallel.
type Controller struct {
	store    *HistoryStore
	active   *ActiveSet
	complete Completer
	persona  PersonaConfig
	logger   *slog.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewController creates a controller over the given store, active set, and
// completer.
func NewController(store *HistoryStore, active *ActiveSet, completer Completer, persona PersonaConfig, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:    store,
		active:   active,
		complete: completer,
		persona:  persona,
		logger:   logger.With("component", "controller"),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Handle processes one inbound message and returns the reply text to
// deliver. It never returns an empty reply for a valid inbound event.
func (c *Controller) Handle(ctx context.Context, msg *channels.IncomingMessage) string {
	ref := ConversationRef{Channel: msg.Channel, ChatID: msg.ChatID}

	if msg.Command != "" {
		return c.handleCommand(ref, msg.Command)
	}
	return c.handleText(ctx, ref, msg.Content)
}

// handleCommand processes a bot command.
func (c *Controller) handleCommand(ref ConversationRef, command string) string {
	texts := c.persona.Texts

	switch command {
	case "start":
		c.resetConversation(ref)
		c.logger.Info("conversation reset", "conversation", ref, "command", command)
		return texts.Welcome

	case "clear":
		c.resetConversation(ref)
		c.logger.Info("conversation reset", "conversation", ref, "command", command)
		return texts.HistoryCleared

	case "enable":
		if c.active.Add(ref) {
			c.logger.Info("spontaneous messaging enabled", "conversation", ref)
			return texts.SpontaneousOn
		}
		return texts.SpontaneousAlrOn

	case "disable":
		if c.active.Remove(ref) {
			c.logger.Info("spontaneous messaging disabled", "conversation", ref)
			return texts.SpontaneousOff
		}
		return texts.SpontaneousAlrOff

	default:
		return texts.UnknownCommand
	}
}

// handleText processes a plain text message: implicit start on first
// contact, then the append → complete → append turn.
func (c *Controller) handleText(ctx context.Context, ref ConversationRef, text string) string {
	texts := c.persona.Texts

	if strings.TrimSpace(text) == "" {
		return texts.EmptyPrompt
	}

	// Hold the conversation lock across the whole turn, network call
	// included, so concurrent turns for the same conversation cannot
	// interleave their appends.
	lock := c.conversationLock(ref)
	lock.Lock()
	defer lock.Unlock()

	_, existed := c.store.Ensure(ref, c.persona.SystemPrompt)
	if !existed {
		// First contact enrolls the conversation for spontaneous messages.
		c.active.Add(ref)
		c.logger.Info("new conversation", "conversation", ref)

		if c.persona.GreetFirstContact {
			return texts.Welcome
		}
	}

	turnID := uuid.New().String()

	if err := c.store.AppendUser(ref, text); err != nil {
		c.logger.Error("appending user message", "conversation", ref, "turn_id", turnID, "error", err)
		return texts.ErrorPrefix + err.Error()
	}

	snapshot, err := c.store.Snapshot(ref)
	if err != nil {
		c.logger.Error("snapshotting history", "conversation", ref, "turn_id", turnID, "error", err)
		return texts.ErrorPrefix + err.Error()
	}

	reply, err := c.complete.Complete(ctx, snapshot)
	if err != nil {
		// The user message stays appended; the next turn still carries it
		// as context.
		c.logger.Warn("completion failed",
			"conversation", ref,
			"turn_id", turnID,
			"error", err,
		)
		return texts.ErrorPrefix + err.Error()
	}

	if err := c.store.AppendAssistant(ref, reply); err != nil {
		c.logger.Error("appending assistant message", "conversation", ref, "turn_id", turnID, "error", err)
		return texts.ErrorPrefix + err.Error()
	}

	c.logger.Info("turn completed",
		"conversation", ref,
		"turn_id", turnID,
		"history_len", len(snapshot)+1,
	)

	return reply
}

// resetConversation resets the history and applies the enrollment policy.
func (c *Controller) resetConversation(ref ConversationRef) {
	lock := c.conversationLock(ref)
	lock.Lock()
	defer lock.Unlock()

	c.store.Reset(ref, c.persona.SystemPrompt)
	if c.persona.EnrollOnStart {
		c.active.Add(ref)
	}
}

// conversationLock returns the mutex for ref, creating it on first use.
// Locks are never removed; the set of conversations is small and bounded by
// actual users.
func (c *Controller) conversationLock(ref ConversationRef) *sync.Mutex {
	c.locksMu.Lock()
	defer c.locksMu.Unlock()

	key := ref.Key()
	lock, ok := c.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[key] = lock
	}
	return lock
}
