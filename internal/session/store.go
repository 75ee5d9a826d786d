// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package session keeps per-conversation chat history. Sessions are
// created on first message, capped in history length, and expired after
// an inactivity window. The store is an explicit collaborator injected
// into the transport layer; nothing else holds session state.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"aliengine/internal/engine"
)

// Message is one chat turn kept in session history.
type Message struct {
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Timestamp time.Time       `json:"timestamp"`
	Results   []engine.Result `json:"command_results,omitempty"`
}

// Session tracks one conversation.
type Session struct {
	ID           string    `json:"id"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`

	history []Message
}

// Store owns all active sessions. Safe for concurrent use.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	maxMessages int
	ttl         time.Duration
	log         zerolog.Logger
	now         func() time.Time
}

// NewStore creates a session store. maxMessages caps per-session history;
// ttl is the inactivity window after which Cleanup removes a session.
func NewStore(maxMessages int, ttl time.Duration, log zerolog.Logger) *Store {
	if maxMessages <= 0 {
		maxMessages = 100
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{
		sessions:    make(map[string]*Session),
		maxMessages: maxMessages,
		ttl:         ttl,
		log:         log,
		now:         time.Now,
	}
}

// GetOrCreate returns the session with the given ID, creating it when
// the ID is empty or unknown. It also bumps the activity timestamp.
func (s *Store) GetOrCreate(id, model string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if sess, ok := s.sessions[id]; ok {
			sess.LastActivity = s.now()
			return sess
		}
	}
	if id == "" {
		id = uuid.NewString()
	}

	now := s.now()
	sess := &Session{
		ID:           id,
		Model:        model,
		CreatedAt:    now,
		LastActivity: now,
	}
	s.sessions[id] = sess
	s.log.Debug().Str("session_id", id).Msg("Created session")
	return sess
}

// Append records a message in a session's history, trimming the history
// to the configured cap.
func (s *Store) Append(id string, msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	sess.history = append(sess.history, msg)
	if len(sess.history) > s.maxMessages {
		sess.history = sess.history[len(sess.history)-s.maxMessages:]
	}
	sess.MessageCount++
	sess.LastActivity = s.now()
}

// History returns a copy of a session's messages; nil for unknown IDs.
func (s *Store) History(id string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	out := make([]Message, len(sess.history))
	copy(out, sess.history)
	return out
}

// Cleanup removes sessions idle for longer than the TTL and returns how
// many were dropped.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, sess := range s.sessions {
		if sess.LastActivity.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.log.Info().Int("count", removed).Msg("Cleaned up inactive sessions")
	}
	return removed
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
