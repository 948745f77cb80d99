package app

import (
	"sync"

	"ragdesk/internal/model"
)

type session struct {
	mu    sync.Mutex
	turns []model.ChatTurn
}

// SessionStore holds per-session conversation windows for the process
// lifetime. Appends on the same session id are serialized by a per-session
// mutex; different sessions proceed in parallel. Retention is bounded: once
// a session exceeds maxTurns, the oldest turns are dropped.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
	maxTurns int
}

func NewSessionStore(maxTurns int) *SessionStore {
	if maxTurns <= 0 {
		maxTurns = 50
	}
	return &SessionStore{
		sessions: make(map[string]*session),
		maxTurns: maxTurns,
	}
}

func (s *SessionStore) resolve(sessionID string) *session {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[sessionID]; ok {
		return sess
	}
	sess = &session{}
	s.sessions[sessionID] = sess
	return sess
}

// Append adds turns to the session, creating it on first use. All turns of
// one call land adjacently; concurrent appends to the same id never
// interleave.
func (s *SessionStore) Append(sessionID string, turns ...model.ChatTurn) {
	sess := s.resolve(sessionID)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.turns = append(sess.turns, turns...)
	if len(sess.turns) > s.maxTurns {
		sess.turns = sess.turns[len(sess.turns)-s.maxTurns:]
	}
}

// Turns returns a copy of the session's turn window; nil for unknown ids.
func (s *SessionStore) Turns(sessionID string) []model.ChatTurn {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]model.ChatTurn, len(sess.turns))
	copy(out, sess.turns)
	return out
}
