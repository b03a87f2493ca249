// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package memory

import (
	"strings"
	"sync"
	"time"
)

// Role is the speaker of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a session's short-term history.
type Turn struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// DefaultMaxTurns bounds how many turns a session keeps.
const DefaultMaxTurns = 500

// TurnLog is the volatile per-session conversation history. Appends for one
// session are serialized by that session's lock; different sessions never
// contend beyond the map lookup.
type TurnLog struct {
	mu       sync.RWMutex
	sessions map[string]*sessionLog
	maxTurns int
}

type sessionLog struct {
	mu    sync.Mutex
	turns []Turn
}

// NewTurnLog creates an empty log keeping at most maxTurns per session
// (DefaultMaxTurns when <= 0).
func NewTurnLog(maxTurns int) *TurnLog {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &TurnLog{sessions: make(map[string]*sessionLog), maxTurns: maxTurns}
}

func (l *TurnLog) session(id string, create bool) *sessionLog {
	l.mu.RLock()
	s := l.sessions[id]
	l.mu.RUnlock()
	if s != nil || !create {
		return s
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if s = l.sessions[id]; s == nil {
		s = &sessionLog{}
		l.sessions[id] = s
	}
	return s
}

// Append adds a turn to the end of the session's log.
func (l *TurnLog) Append(session string, t Turn) {
	s := l.session(session, true)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = append(s.turns, t)
	if over := len(s.turns) - l.maxTurns; over > 0 {
		s.turns = append(s.turns[:0:0], s.turns[over:]...)
	}
}

// Recent returns a copy of the last limit turns, oldest first. limit <= 0
// returns the whole log.
func (l *TurnLog) Recent(session string, limit int) []Turn {
	s := l.session(session, false)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	start := 0
	if limit > 0 && len(s.turns) > limit {
		start = len(s.turns) - limit
	}
	return append([]Turn(nil), s.turns[start:]...)
}

// FormatHistory renders turns as "User: ..." and "Assistant: ..." lines.
func FormatHistory(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		prefix := "User"
		if t.Role == RoleAssistant {
			prefix = "Assistant"
		}
		lines = append(lines, prefix+": "+t.Content)
	}
	return strings.Join(lines, "\n")
}
