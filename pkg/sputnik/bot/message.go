// Package bot implements the conversation core of Sputnik: per-conversation
// rolling history, the completion client, the turn controller, and the
// spontaneous messenger. Transports live in pkg/sputnik/channels; this package
// only sees conversation references and text.
package bot

import "fmt"

// Role identifies the author of a history message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a conversation history. Immutable once created.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage builds a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ConversationRef identifies one conversation across all transports: the
// channel name plus the platform chat identifier. The zero value is invalid.
type ConversationRef struct {
	Channel string
	ChatID  string
}

// Key returns a stable map key for the reference.
func (r ConversationRef) Key() string {
	return r.Channel + ":" + r.ChatID
}

// String implements fmt.Stringer for log output.
func (r ConversationRef) String() string { return r.Key() }

// ErrConversationNotFound is returned by history operations that require the
// conversation to already exist.
var ErrConversationNotFound = fmt.Errorf("conversation not found")
