package bot

import (
	"sync"
)

// HistoryStore owns all conversation histories. Every history starts with a
// system persona message that is never evicted; the total length is bounded
// by maxHistory. All mutation goes through the store so the invariants hold
// under concurrent access.
type HistoryStore struct {
	mu         sync.RWMutex
	histories  map[string][]Message
	maxHistory int
}

// NewHistoryStore creates a store bounding each history at maxHistory
// messages (system message included). Values below 2 are raised to 2 so a
// history can always hold the system message plus at least one exchange slot.
func NewHistoryStore(maxHistory int) *HistoryStore {
	if maxHistory < 2 {
		maxHistory = 2
	}
	return &HistoryStore{
		histories:  make(map[string][]Message),
		maxHistory: maxHistory,
	}
}

// MaxHistory returns the configured length bound.
func (s *HistoryStore) MaxHistory() int { return s.maxHistory }

// Reset replaces the conversation's history with a single fresh system
// message. It creates the conversation if it does not exist yet.
func (s *HistoryStore) Reset(ref ConversationRef, systemPrompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories[ref.Key()] = []Message{SystemMessage(systemPrompt)}
}

// Ensure returns the existing history for ref, creating it with a single
// system message if absent. The returned slice is a copy; mutating it does
// not affect the store. The second return reports whether the conversation
// already existed.
func (s *HistoryStore) Ensure(ref ConversationRef, systemPrompt string) ([]Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ref.Key()
	history, existed := s.histories[key]
	if !existed {
		history = []Message{SystemMessage(systemPrompt)}
		s.histories[key] = history
	}

	out := make([]Message, len(history))
	copy(out, history)
	return out, existed
}

// Exists reports whether a history is present for ref.
func (s *HistoryStore) Exists(ref ConversationRef) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.histories[ref.Key()]
	return ok
}

// AppendUser appends a user message and applies the length bound. The
// conversation must exist (call Ensure first).
func (s *HistoryStore) AppendUser(ref ConversationRef, text string) error {
	return s.append(ref, UserMessage(text))
}

// AppendAssistant appends an assistant message and applies the length bound.
// The conversation must exist.
func (s *HistoryStore) AppendAssistant(ref ConversationRef, text string) error {
	return s.append(ref, AssistantMessage(text))
}

// Snapshot returns a consistent point-in-time copy of the conversation's
// history, suitable for building a completion request.
func (s *HistoryStore) Snapshot(ref ConversationRef) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.histories[ref.Key()]
	if !ok {
		return nil, ErrConversationNotFound
	}

	out := make([]Message, len(history))
	copy(out, history)
	return out, nil
}

// append adds msg to the history and truncates to the bound, keeping the
// leading system message and the most recent tail.
func (s *HistoryStore) append(ref ConversationRef, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ref.Key()
	history, ok := s.histories[key]
	if !ok {
		return ErrConversationNotFound
	}

	history = append(history, msg)

	if len(history) > s.maxHistory {
		// Keep history[0] (the system message) and the newest maxHistory-1
		// messages in chronological order.
		tail := history[len(history)-(s.maxHistory-1):]
		trimmed := make([]Message, 0, s.maxHistory)
		trimmed = append(trimmed, history[0])
		trimmed = append(trimmed, tail...)
		history = trimmed
	}

	s.histories[key] = history
	return nil
}
