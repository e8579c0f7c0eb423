package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/quantumlife/lifeos/internal/core"
)

type recorder struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (r *recorder) commit(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.texts = append(r.texts, text)
	return nil
}

func TestSession_EditThenConfirm(t *testing.T) {
	s := NewStore()
	rec := &recorder{}
	ctx := context.Background()
	const chat = int64(100)

	s.Arrive(chat, "купить хлеб", 1)
	if got := s.StateOf(chat); got != StatePending {
		t.Fatalf("after arrive state = %s", got)
	}

	if _, err := s.Edit(chat); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if got := s.StateOf(chat); got != StateEditing {
		t.Fatalf("after edit state = %s", got)
	}

	// Confirm is suppressed while editing
	if _, err := s.Confirm(ctx, chat, rec.commit); !errors.Is(err, core.ErrAwaitingEdit) {
		t.Fatalf("confirm while editing err = %v", err)
	}

	sess, ok := s.ReceiveText(chat, "купить молоко")
	if !ok {
		t.Fatal("edit payload was not consumed")
	}
	if sess.State != StatePending || sess.Text != "купить молоко" {
		t.Fatalf("after new text = %+v", sess)
	}

	if _, err := s.Confirm(ctx, chat, rec.commit); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if len(rec.texts) != 1 || rec.texts[0] != "купить молоко" {
		t.Errorf("committed = %v", rec.texts)
	}
	if s.StateOf(chat) != StateIdle {
		t.Error("session should be removed after confirm")
	}

	if _, err := s.Confirm(ctx, chat, rec.commit); !errors.Is(err, core.ErrSessionNotFound) {
		t.Errorf("second confirm err = %v", err)
	}
}

func TestSession_ArrivalReplaces(t *testing.T) {
	s := NewStore()
	rec := &recorder{}
	const chat = int64(7)

	first := s.Arrive(chat, "первый", 1)
	second := s.Arrive(chat, "второй", 2)
	if first.ID == second.ID {
		t.Error("replacement should get a new id")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}

	s.Confirm(context.Background(), chat, rec.commit)
	if len(rec.texts) != 1 || rec.texts[0] != "второй" {
		t.Errorf("committed = %v, want only the newest text", rec.texts)
	}
}

func TestSession_ArrivalResetsEditing(t *testing.T) {
	s := NewStore()
	const chat = int64(7)

	s.Arrive(chat, "a", 1)
	s.Edit(chat)
	s.Arrive(chat, "b", 2)

	if got := s.StateOf(chat); got != StatePending {
		t.Errorf("state = %s, want pending", got)
	}
}

func TestSession_TextFallsThrough(t *testing.T) {
	s := NewStore()

	// No session
	if _, ok := s.ReceiveText(1, "hello"); ok {
		t.Error("text without a session must fall through")
	}

	// Pending but not editing
	s.Arrive(1, "voice", 1)
	if _, ok := s.ReceiveText(1, "hello"); ok {
		t.Error("text while pending must fall through")
	}
	if sess, _ := s.Get(1); sess.Text != "voice" {
		t.Errorf("pending text changed to %q", sess.Text)
	}

	// Other chat editing does not capture this chat's text
	s.Arrive(2, "other", 1)
	s.Edit(2)
	if _, ok := s.ReceiveText(1, "hello"); ok {
		t.Error("another chat's edit must not consume this text")
	}
}

func TestSession_Cancel(t *testing.T) {
	s := NewStore()
	rec := &recorder{}

	s.Arrive(1, "x", 1)
	if _, err := s.Cancel(1); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := s.Cancel(1); !errors.Is(err, core.ErrSessionNotFound) {
		t.Errorf("second cancel err = %v", err)
	}
	if _, err := s.Edit(1); !errors.Is(err, core.ErrSessionNotFound) {
		t.Errorf("edit after cancel err = %v", err)
	}
	if _, err := s.Confirm(context.Background(), 1, rec.commit); !errors.Is(err, core.ErrSessionNotFound) {
		t.Errorf("confirm after cancel err = %v", err)
	}
	if len(rec.texts) != 0 {
		t.Error("cancel must not commit")
	}

	// Cancel is allowed while editing
	s.Arrive(1, "y", 2)
	s.Edit(1)
	if _, err := s.Cancel(1); err != nil {
		t.Errorf("cancel while editing: %v", err)
	}
}

func TestSession_CommitFailureKeepsSession(t *testing.T) {
	s := NewStore()
	boom := errors.New("disk full")
	rec := &recorder{err: boom}

	s.Arrive(1, "x", 1)
	_, err := s.Confirm(context.Background(), 1, rec.commit)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped commit error", err)
	}
	if got := s.StateOf(1); got != StatePending {
		t.Errorf("state after failed commit = %s, want pending", got)
	}

	rec.err = nil
	if _, err := s.Confirm(context.Background(), 1, rec.commit); err != nil {
		t.Errorf("retry: %v", err)
	}
}

func TestSession_ReplacedDuringCommit(t *testing.T) {
	s := NewStore()
	const chat = int64(3)

	s.Arrive(chat, "old", 1)
	_, err := s.Confirm(context.Background(), chat, func(ctx context.Context, text string) error {
		s.Arrive(chat, "new", 2)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	sess, ok := s.Get(chat)
	if !ok || sess.Text != "new" {
		t.Errorf("newer session was dropped: %+v, %v", sess, ok)
	}
}

func TestSession_ConcurrentChats(t *testing.T) {
	s := NewStore()
	rec := &recorder{}

	var wg sync.WaitGroup
	for i := int64(0); i < 20; i++ {
		wg.Add(1)
		go func(chat int64) {
			defer wg.Done()
			s.Arrive(chat, "t", 1)
			s.Confirm(context.Background(), chat, rec.commit)
		}(i)
	}
	wg.Wait()

	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
	if len(rec.texts) != 20 {
		t.Errorf("commits = %d, want 20", len(rec.texts))
	}
}
