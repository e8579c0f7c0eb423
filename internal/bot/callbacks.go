package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/quantumlife/lifeos/internal/capture"
	"github.com/quantumlife/lifeos/internal/core"
	"github.com/quantumlife/lifeos/internal/logging"
)

func (d *Dispatcher) handleAction(ctx context.Context, ev Event, a Action) ([]Reply, error) {
	switch a.Kind {
	case ActionVoiceConfirm:
		return d.voiceConfirm(ctx, ev)
	case ActionVoiceCancel:
		return d.voiceCancel(ev)
	case ActionVoiceEdit:
		return d.voiceEdit(ev)

	case ActionCaptureTask:
		return d.quickCapture(ctx, ev, capture.KindTask, a.Key)
	case ActionCaptureIdea:
		return d.quickCapture(ctx, ev, capture.KindIdea, a.Key)

	case ActionAreaScore:
		return d.scoreArea(ev, a.Area, a.Score, nil)
	case ActionAreaInfo:
		d.setSelectedArea(ev.ChatID, a.Area)
		msg := fmt.Sprintf("🎯 Выбрана область: *%s*\n\nТеперь выберите оценку от 1 до 10:", escape(a.Area))
		return []Reply{{Text: msg, Markdown: true, Edit: true, Keyboard: d.currentAssessKeyboard(), Notice: "Выбрана область: " + a.Area}}, nil
	case ActionScoreSelect:
		area := d.takeSelectedArea(ev.ChatID)
		if area == "" {
			return []Reply{edit(msgSelectArea)}, nil
		}
		return d.scoreArea(ev, area, a.Score, d.currentAssessKeyboard())
	case ActionShowScores:
		scores, err := d.deps.Scores.List()
		if err != nil {
			return nil, err
		}
		return []Reply{{Text: scoresText(scores), Markdown: true, Edit: true, Keyboard: assessKeyboard(areaNames(scores)), Notice: "Текущие оценки загружены"}}, nil

	case ActionMoodScore:
		replies, err := d.saveMood(ev, a.Score, "")
		for i := range replies {
			replies[i].Edit = true
		}
		return replies, err

	case ActionHabitComplete:
		h, err := d.deps.Ledger.SaveHabit(a.Habit)
		if err != nil {
			return nil, err
		}
		d.audit(d.deps.Audit.RecordHabit(ev.ChatID, h.Name))
		msg := fmt.Sprintf("✅ Привычка *%s* отмечена!\n\nПродолжайте отмечать другие привычки или используйте /habits.", escape(habitTitle(h.Name)))
		return []Reply{{Text: msg, Markdown: true, Edit: true, Notice: "✅ Привычка отмечена"}}, nil
	case ActionHabitCustom:
		d.setAwaitingHabit(ev.ChatID, true)
		return []Reply{{Text: customHabitPrompt, Markdown: true, Edit: true, Notice: "Ожидаю название привычки..."}}, nil
	case ActionHabitHeader:
		return []Reply{{Notice: "Категория привычек"}}, nil
	case ActionHabitStats:
		return d.habitStats()

	case ActionCompleteTask:
		return d.completeRemote(ctx, ev, a.TaskID)
	case ActionCompleteLocal:
		task, err := d.completeLocal(ctx, ev.ChatID, a.Key)
		if err != nil {
			return nil, err
		}
		return []Reply{{Text: "✅ Задача выполнена: " + task.Content, Edit: true, Notice: "Готово"}}, nil

	default:
		return nil, fmt.Errorf("%w: action %s", core.ErrInvalidInput, a.Kind)
	}
}

func (d *Dispatcher) scoreArea(ev Event, area string, score int, kb Keyboard) ([]Reply, error) {
	s, err := d.deps.Scores.Upsert(area, score, "")
	if err != nil {
		return nil, err
	}
	d.audit(d.deps.Audit.RecordScore(ev.ChatID, s.AreaName, s.Score))

	msg := fmt.Sprintf("✅ Оценка области '%s' обновлена: %d/10\n\nПродолжайте оценивать другие области или используйте /status для просмотра всех оценок.", s.AreaName, s.Score)
	return []Reply{{
		Text:     msg,
		Edit:     true,
		Keyboard: kb,
		Notice:   fmt.Sprintf("Оценка %s: %d/10 сохранена!", s.AreaName, s.Score),
	}}, nil
}

func (d *Dispatcher) currentAssessKeyboard() Keyboard {
	scores, err := d.deps.Scores.List()
	if err != nil {
		logging.Warn("Assessment list failed: %v", err)
	}
	return assessKeyboard(areaNames(scores))
}

func (d *Dispatcher) habitStats() ([]Reply, error) {
	counts, err := d.deps.Stats.RankedHabits()
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return []Reply{{Text: "📊 Пока нет отмеченных привычек.\n\nНачните отслеживать привычки!", Edit: true, Keyboard: habitsKeyboard()}}, nil
	}

	var b strings.Builder
	b.WriteString("📊 *Статистика привычек:*\n\n")
	for _, c := range counts {
		fmt.Fprintf(&b, "• %s: %s\n", escape(habitTitle(c.Name)), countLabel(c.Count))
	}
	return []Reply{{Text: b.String(), Markdown: true, Edit: true, Keyboard: habitsKeyboard(), Notice: "Статистика загружена"}}, nil
}

// completeLocal checks off a journal task and closes its external copy when
// one is linked. A failed remote close is logged and keeps the local change.
func (d *Dispatcher) completeLocal(ctx context.Context, chatID int64, key string) (core.TaskEntry, error) {
	task, err := d.deps.Ledger.CompleteTask(key)
	if err != nil {
		return core.TaskEntry{}, err
	}

	remoteID := ""
	if d.deps.Links != nil && d.deps.Tasks != nil {
		link, err := d.deps.Links.ByKey(key)
		switch {
		case err != nil:
			logging.WithField("task_key", key).Warn("Task link lookup failed: %v", err)
		case link != nil:
			if err := d.deps.Tasks.CloseTask(ctx, link.RemoteID); err != nil {
				logging.WithField("remote_id", link.RemoteID).Warn("Remote close failed: %v", err)
			} else {
				remoteID = link.RemoteID
			}
		}
	}

	d.audit(d.deps.Audit.RecordTaskCompleted(chatID, task.Content, remoteID))
	return task, nil
}

// completeRemote closes an external task and checks off its journal copy
func (d *Dispatcher) completeRemote(ctx context.Context, ev Event, remoteID string) ([]Reply, error) {
	if d.deps.Tasks == nil {
		return nil, fmt.Errorf("%w: task service", core.ErrNotConfigured)
	}
	if err := d.deps.Tasks.CloseTask(ctx, remoteID); err != nil {
		return nil, err
	}

	content := ""
	if d.deps.Links != nil {
		link, err := d.deps.Links.ByRemoteID(remoteID)
		if err != nil {
			logging.WithField("remote_id", remoteID).Warn("Task link lookup failed: %v", err)
		}
		if link != nil {
			content = link.Content
			if _, err := d.deps.Ledger.CompleteTask(link.TaskKey); err != nil && !errors.Is(err, core.ErrTaskNotFound) {
				logging.WithField("task_key", link.TaskKey).Warn("Journal completion failed: %v", err)
			}
		}
	}

	d.audit(d.deps.Audit.RecordTaskCompleted(ev.ChatID, content, remoteID))
	msg := "✅ Задача выполнена"
	if content != "" {
		msg += ": " + content
	}
	return []Reply{{Text: msg, Edit: true, Notice: "Готово"}}, nil
}
