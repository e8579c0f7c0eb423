// Package session tracks voice transcriptions awaiting the user's decision.
//
// One session exists per chat at most. A session is created when a
// transcription arrives, may be edited any number of times, and ends when
// the user confirms or cancels it. Sessions live only in memory; a restart
// drops them, which is equivalent to an implicit cancel.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quantumlife/lifeos/internal/core"
)

// State of a pending transcription
type State string

const (
	StateIdle       State = "idle" // no session recorded
	StatePending    State = "pending_confirmation"
	StateEditing    State = "editing"
	StateCommitting State = "committing"
)

// Session is a transcription waiting for confirm, edit or cancel
type Session struct {
	ID              string    `json:"id"`
	ChatID          int64     `json:"chat_id"`
	Text            string    `json:"text"`
	SourceMessageID int       `json:"source_message_id"`
	State           State     `json:"state"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CommitFunc persists the confirmed text
type CommitFunc func(ctx context.Context, text string) error

// Store owns every live session, keyed by chat id
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	now      func() time.Time
}

// NewStore creates an empty session store
func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		now:      time.Now,
	}
}

// Arrive records a fresh transcription for the chat, replacing any
// session already there.
func (s *Store) Arrive(chatID int64, text string, sourceMessageID int) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := &Session{
		ID:              uuid.New().String(),
		ChatID:          chatID,
		Text:            text,
		SourceMessageID: sourceMessageID,
		State:           StatePending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.sessions[chatID] = sess
	return *sess
}

// Edit switches the chat's session to waiting for replacement text
func (s *Store) Edit(chatID int64) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[chatID]
	if !ok || sess.State == StateCommitting {
		return Session{}, core.ErrSessionNotFound
	}
	sess.State = StateEditing
	sess.UpdatedAt = s.now()
	return *sess, nil
}

// ReceiveText consumes text as the edit payload when the chat's session is
// editing. It reports false when the text belongs to someone else.
func (s *Store) ReceiveText(chatID int64, text string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[chatID]
	if !ok || sess.State != StateEditing {
		return Session{}, false
	}
	sess.Text = text
	sess.State = StatePending
	sess.UpdatedAt = s.now()
	return *sess, true
}

// Confirm hands the session text to commit and removes the session once
// commit succeeds. On failure the session returns to pending so the user
// can retry or cancel.
func (s *Store) Confirm(ctx context.Context, chatID int64, commit CommitFunc) (Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[chatID]
	switch {
	case !ok || sess.State == StateCommitting:
		s.mu.Unlock()
		return Session{}, core.ErrSessionNotFound
	case sess.State == StateEditing:
		s.mu.Unlock()
		return Session{}, core.ErrAwaitingEdit
	}
	sess.State = StateCommitting
	snapshot := *sess
	s.mu.Unlock()

	err := commit(ctx, snapshot.Text)

	s.mu.Lock()
	defer s.mu.Unlock()

	// A newer transcription may have replaced this one meanwhile
	current, ok := s.sessions[chatID]
	same := ok && current.ID == snapshot.ID

	if err != nil {
		if same {
			current.State = StatePending
		}
		return snapshot, fmt.Errorf("commit transcription: %w", err)
	}
	if same {
		delete(s.sessions, chatID)
	}
	return snapshot, nil
}

// Cancel drops the chat's session without writing anything
func (s *Store) Cancel(chatID int64) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[chatID]
	if !ok || sess.State == StateCommitting {
		return Session{}, core.ErrSessionNotFound
	}
	delete(s.sessions, chatID)
	return *sess, nil
}

// Get returns a copy of the chat's session
func (s *Store) Get(chatID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[chatID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// StateOf reports the chat's state, StateIdle when no session exists
func (s *Store) StateOf(chatID int64) State {
	if sess, ok := s.Get(chatID); ok {
		return sess.State
	}
	return StateIdle
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
