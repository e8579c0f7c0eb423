package testutil

import (
	"context"
	"sync"

	"github.com/quantumlife/lifeos/internal/spaces/calendar"
	"github.com/quantumlife/lifeos/internal/spaces/gmail"
	"github.com/quantumlife/lifeos/internal/todoist"
)

// MockTranscriber implements a transcription backend for testing.
type MockTranscriber struct {
	TranscribeFunc func(ctx context.Context, audio []byte, filename string) (string, error)

	mu    sync.Mutex
	Calls int
}

// Transcribe calls the mock function if set.
func (m *MockTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, audio, filename)
	}
	return string(audio), nil
}

// Transcripts returns a MockTranscriber answering with the given texts in turn.
func Transcripts(texts ...string) *MockTranscriber {
	var mu sync.Mutex
	i := 0
	return &MockTranscriber{TranscribeFunc: func(context.Context, []byte, string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		text := texts[i%len(texts)]
		i++
		return text, nil
	}}
}

// MockTaskService implements the external task service for testing.
type MockTaskService struct {
	CreateTaskFunc func(ctx context.Context, content string) (string, error)
	TodayTasksFunc func(ctx context.Context) ([]todoist.Task, error)
	CloseTaskFunc  func(ctx context.Context, id string) error

	mu      sync.Mutex
	Created []string
	Closed  []string
}

// CreateTask calls the mock function if set and records the content.
func (m *MockTaskService) CreateTask(ctx context.Context, content string) (string, error) {
	m.mu.Lock()
	m.Created = append(m.Created, content)
	m.mu.Unlock()
	if m.CreateTaskFunc != nil {
		return m.CreateTaskFunc(ctx, content)
	}
	return "remote-" + RandomID(), nil
}

// TodayTasks calls the mock function if set.
func (m *MockTaskService) TodayTasks(ctx context.Context) ([]todoist.Task, error) {
	if m.TodayTasksFunc != nil {
		return m.TodayTasksFunc(ctx)
	}
	return nil, nil
}

// CloseTask calls the mock function if set and records the id.
func (m *MockTaskService) CloseTask(ctx context.Context, id string) error {
	m.mu.Lock()
	m.Closed = append(m.Closed, id)
	m.mu.Unlock()
	if m.CloseTaskFunc != nil {
		return m.CloseTaskFunc(ctx, id)
	}
	return nil
}

// MockAgenda implements a calendar source for testing.
type MockAgenda struct {
	TodayEventsFunc func(ctx context.Context) ([]calendar.Event, error)
}

// TodayEvents calls the mock function if set.
func (m *MockAgenda) TodayEvents(ctx context.Context) ([]calendar.Event, error) {
	if m.TodayEventsFunc != nil {
		return m.TodayEventsFunc(ctx)
	}
	return nil, nil
}

// MockInbox implements a mail source for testing.
type MockInbox struct {
	UnreadFunc func(ctx context.Context, limit int64) ([]*gmail.Message, error)
}

// Unread calls the mock function if set.
func (m *MockInbox) Unread(ctx context.Context, limit int64) ([]*gmail.Message, error) {
	if m.UnreadFunc != nil {
		return m.UnreadFunc(ctx, limit)
	}
	return nil, nil
}
