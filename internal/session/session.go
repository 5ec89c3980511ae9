// Package session tracks conversation history per session so follow-up
// questions keep their context. History is bounded: only the most recent
// exchanges survive, formatted into the prompt augmentation the generator
// expects.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type exchange struct {
	userMessage      string
	assistantMessage string
}

// Manager stores bounded conversation history keyed by session ID. Safe for
// concurrent use by the HTTP handlers.
type Manager struct {
	mu           sync.Mutex
	sessions     map[string][]exchange
	maxExchanges int
}

// NewManager creates a manager keeping at most maxExchanges question/answer
// pairs per session.
func NewManager(maxExchanges int) *Manager {
	if maxExchanges <= 0 {
		maxExchanges = 2
	}
	return &Manager{
		sessions:     make(map[string][]exchange),
		maxExchanges: maxExchanges,
	}
}

// CreateSession returns a fresh session ID.
func (m *Manager) CreateSession() string {
	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = nil
	m.mu.Unlock()
	return id
}

// AddExchange records one completed question/answer pair, evicting the oldest
// pair once the session exceeds its bound.
func (m *Manager) AddExchange(sessionID, userMessage, assistantMessage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	history := append(m.sessions[sessionID], exchange{userMessage, assistantMessage})
	if len(history) > m.maxExchanges {
		history = history[len(history)-m.maxExchanges:]
	}
	m.sessions[sessionID] = history
}

// History formats a session's retained exchanges for prompt augmentation.
// Unknown sessions and empty histories yield "".
func (m *Manager) History(sessionID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	history := m.sessions[sessionID]
	if len(history) == 0 {
		return ""
	}
	parts := make([]string, 0, len(history))
	for _, e := range history {
		parts = append(parts, fmt.Sprintf("User: %s\nAssistant: %s", e.userMessage, e.assistantMessage))
	}
	return strings.Join(parts, "\n")
}

// ClearSession drops a session's history. Clearing an unknown session is a
// no-op.
func (m *Manager) ClearSession(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}
