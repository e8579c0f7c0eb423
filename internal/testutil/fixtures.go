package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/quantumlife/lifeos/internal/core"
	"github.com/quantumlife/lifeos/internal/journal"
	"github.com/quantumlife/lifeos/internal/spaces/calendar"
	"github.com/quantumlife/lifeos/internal/spaces/gmail"
	"github.com/quantumlife/lifeos/internal/todoist"
)

// RandomID generates a random ID for testing.
func RandomID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// SeedHabits records the habits in order.
func SeedHabits(t *testing.T, l *journal.Ledger, names ...string) {
	t.Helper()
	for _, n := range names {
		if _, err := l.SaveHabit(n); err != nil {
			t.Fatalf("seed habit %q: %v", n, err)
		}
	}
}

// SeedMoods records the mood scores in order.
func SeedMoods(t *testing.T, l *journal.Ledger, scores ...int) {
	t.Helper()
	for _, s := range scores {
		if _, err := l.SaveMood(s, ""); err != nil {
			t.Fatalf("seed mood %d: %v", s, err)
		}
	}
}

// SeedTasks records open tasks in order.
func SeedTasks(t *testing.T, l *journal.Ledger, contents ...string) {
	t.Helper()
	for _, c := range contents {
		if _, err := l.SaveTask(c); err != nil {
			t.Fatalf("seed task %q: %v", c, err)
		}
	}
}

// SeedScores upserts area scores.
func SeedScores(t *testing.T, l *journal.Ledger, scores map[string]int) {
	t.Helper()
	store := journal.NewAssessmentStore(l)
	for area, s := range scores {
		if _, err := store.Upsert(area, s, ""); err != nil {
			t.Fatalf("seed score %s: %v", area, err)
		}
	}
}

// DefaultTodoistTask returns a task due today.
func DefaultTodoistTask() todoist.Task {
	return todoist.Task{
		ID:       "td-" + RandomID(),
		Content:  "Позвонить маме",
		Priority: 4,
		Labels:   []string{"family"},
		Due:      &todoist.Due{Date: FixedTime.Format("2006-01-02")},
	}
}

// DefaultCalendarEvent returns a one-hour meeting.
func DefaultCalendarEvent() calendar.Event {
	start := time.Date(FixedTime.Year(), FixedTime.Month(), FixedTime.Day(), 10, 0, 0, 0, time.Local)
	return calendar.Event{
		ID:       "event-" + RandomID(),
		Summary:  "Планерка",
		Location: "Zoom",
		Start:    start,
		End:      start.Add(time.Hour),
	}
}

// DefaultMessage returns an unread email.
func DefaultMessage() *gmail.Message {
	return &gmail.Message{
		ID:       "msg-" + RandomID(),
		From:     "Анна <anna@example.com>",
		Subject:  "Отчет за неделю",
		Snippet:  "Привет! Высылаю отчет",
		Date:     FixedTime,
		IsUnread: true,
	}
}

// AreaScore builds an assessment at FixedTime.
func AreaScore(area string, score int) core.AreaScore {
	return core.AreaScore{AreaName: area, Score: score, UpdatedAt: FixedTime}
}
