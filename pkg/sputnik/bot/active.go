package bot

import (
	"math/rand"
	"sync"
)

// ActiveSet tracks the conversations enrolled for spontaneous messaging.
// It is shared between the controller (enable/disable commands, enrollment
// on first contact) and the spontaneous messenger (random pick), so all
// operations are safe for concurrent use.
type ActiveSet struct {
	mu      sync.RWMutex
	members map[string]ConversationRef
}

// NewActiveSet creates an empty set.
func NewActiveSet() *ActiveSet {
	return &ActiveSet{members: make(map[string]ConversationRef)}
}

// Add enrolls the conversation. Returns true if the set changed, false if
// the conversation was already enrolled.
func (s *ActiveSet) Add(ref ConversationRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ref.Key()
	if _, ok := s.members[key]; ok {
		return false
	}
	s.members[key] = ref
	return true
}

// Remove un-enrolls the conversation. Returns true if the set changed,
// false if the conversation was not enrolled.
func (s *ActiveSet) Remove(ref ConversationRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ref.Key()
	if _, ok := s.members[key]; !ok {
		return false
	}
	delete(s.members, key)
	return true
}

// Contains reports whether the conversation is enrolled.
func (s *ActiveSet) Contains(ref ConversationRef) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[ref.Key()]
	return ok
}

// Len returns the number of enrolled conversations.
func (s *ActiveSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

// Members returns a snapshot of all enrolled conversations.
func (s *ActiveSet) Members() []ConversationRef {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ConversationRef, 0, len(s.members))
	for _, ref := range s.members {
		out = append(out, ref)
	}
	return out
}

// Pick returns a uniformly random member, or false if the set is empty.
func (s *ActiveSet) Pick(rng *rand.Rand) (ConversationRef, bool) {
	members := s.Members()
	if len(members) == 0 {
		return ConversationRef{}, false
	}
	return members[rng.Intn(len(members))], true
}
