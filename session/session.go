// Package session holds per-session conversation history with bounded
// retention. Sessions are keyed by an opaque identifier, created lazily on
// first append and cleared explicitly; nothing expires on its own and
// nothing survives a process restart.
package session

import (
	"strings"
	"sync"
	"time"
)

// DefaultMaxHistory is the sliding-window size: appends beyond it silently
// evict the oldest message.
const DefaultMaxHistory = 10

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role      string
	Content   string
	Timestamp time.Time
}

type history struct {
	mu       sync.Mutex
	messages []Message
}

// Store is safe for concurrent use from different session keys; locking is
// per session, plus a short-lived map lock for lookup.
type Store struct {
	mu         sync.RWMutex
	maxHistory int
	sessions   map[string]*history
}

func NewStore(maxHistory int) *Store {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Store{maxHistory: maxHistory, sessions: make(map[string]*history)}
}

func (s *Store) get(key string) *history {
	s.mu.RLock()
	h, ok := s.sessions[key]
	s.mu.RUnlock()
	if ok {
		return h
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok = s.sessions[key]; !ok {
		h = &history{}
		s.sessions[key] = h
	}
	return h
}

// Append records a message, evicting the oldest one once the window is full.
func (s *Store) Append(key, role, content string) {
	h := s.get(key)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, Message{Role: role, Content: content, Timestamp: time.Now()})
	if len(h.messages) > s.maxHistory {
		h.messages = h.messages[len(h.messages)-s.maxHistory:]
	}
}

// History returns a copy of the session's messages, oldest first.
func (s *Store) History(key string) []Message {
	h := s.get(key)
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len reports the number of retained messages for key.
func (s *Store) Len(key string) int {
	h := s.get(key)
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// Clear resets the session's history to empty.
func (s *Store) Clear(key string) {
	h := s.get(key)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}

// FormatContext renders the history as one context block for prompt
// assembly. The message at index 1, when it is an assistant message in a
// session with more than one message, is the one-time welcome reply; it is
// annotated so generation strategies do not restate it.
func (s *Store) FormatContext(key string) string {
	messages := s.History(key)
	lines := make([]string, 0, len(messages))
	for i, msg := range messages {
		label := "Utilisateur"
		if msg.Role == RoleAssistant {
			label = "Assistant"
		}
		if i == 1 && msg.Role == RoleAssistant && len(messages) > 1 {
			lines = append(lines, label+" (message d'accueil, ne pas répéter) : "+msg.Content)
			continue
		}
		lines = append(lines, label+" : "+msg.Content)
	}
	return strings.Join(lines, "\n\n")
}
