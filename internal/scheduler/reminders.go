package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quantumlife/lifeos/internal/audit"
	"github.com/quantumlife/lifeos/internal/journal"
	"github.com/quantumlife/lifeos/internal/logging"
)

// ReviewReminderID identifies the evening prompt job
const ReviewReminderID = "evening-review"

// Notifier delivers a message to a chat
type Notifier interface {
	Notify(chatID int64, text string) error
}

// ReviewReminder prompts the admin for what is still missing from today's
// journal: a mood score, a review, or both.
type ReviewReminder struct {
	ChatID   int64
	Notifier Notifier
	Stats    *journal.Stats
	Audit    *audit.Recorder // optional
	Now      func() time.Time
}

// Job wraps the reminder as a daily job
func (r *ReviewReminder) Job(at string) *Job {
	return &Job{
		ID:       ReviewReminderID,
		Name:     "Evening mood and review prompt",
		Schedule: DailyAt(at),
		Run:      r.Run,
		Timeout:  30 * time.Second,
	}
}

// Run sends today's prompt. Nothing is sent once both are logged.
func (r *ReviewReminder) Run(ctx context.Context) error {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	day, err := r.Stats.LoggedOn(now())
	if err != nil {
		return fmt.Errorf("check journal: %w", err)
	}

	text := reminderText(day)
	if text == "" {
		logging.Debug("Evening reminder skipped, mood and review already logged")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.Notifier.Notify(r.ChatID, text); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}

	if err := r.Audit.RecordSystem(audit.ActionReminderSent, audit.ActorScheduler, map[string]interface{}{
		"mood":   !day.Mood,
		"review": !day.Review,
	}); err != nil {
		logging.Warn("Audit append failed: %v", err)
	}
	return nil
}

func reminderText(day journal.Day) string {
	var asks []string
	if !day.Mood {
		asks = append(asks, "• оцените настроение: /mood")
	}
	if !day.Review {
		asks = append(asks, "• подведите итоги дня: /review")
	}
	if len(asks) == 0 {
		return ""
	}
	return "🌙 Вечерняя проверка\n\n" + strings.Join(asks, "\n")
}
