package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/quantumlife/lifeos/internal/capture"
	"github.com/quantumlife/lifeos/internal/core"
	"github.com/quantumlife/lifeos/internal/journal"
	"github.com/quantumlife/lifeos/internal/logging"
)

// Command describes a bot command for the platform menu
type Command struct {
	Name        string
	Description string
}

// Commands is the menu published at start-up
var Commands = []Command{
	{"start", "🚀 Запуск Life OS Bot"},
	{"help", "❓ Справка по командам"},
	{"capture", "📝 Захват задачи"},
	{"idea", "💡 Захват идеи"},
	{"tasks", "📋 Задачи на сегодня"},
	{"done", "✔️ Отметить задачу выполненной"},
	{"status", "📊 Статус жизненных областей"},
	{"review", "🔍 Ежедневный обзор"},
	{"assess", "📈 Оценка жизни"},
	{"schedule", "📅 Расписание на сегодня"},
	{"inbox", "📬 Непрочитанная почта"},
	{"mood", "😊 Записать настроение"},
	{"moodlog", "📉 История настроения"},
	{"habits", "✅ Отслеживание привычек"},
	{"streak", "🔥 Серия привычки"},
	{"stats", "🗂 Обзор журналов"},
}

const (
	defaultMoodWindow   = 7
	defaultStreakWindow = 30
	maxTaskButtons      = 5
	inboxLimit          = 10
)

func (d *Dispatcher) handleCommand(ctx context.Context, ev Event) ([]Reply, error) {
	logging.WithField("chat_id", ev.ChatID).Debug("Command /%s", ev.Command)

	switch ev.Command {
	case "start":
		name := ev.UserName
		if name == "" {
			name = "друг"
		}
		return []Reply{markdown(fmt.Sprintf(welcomeTemplate, escape(name)), nil)}, nil
	case "help":
		return []Reply{markdown(helpMessage, nil)}, nil
	case "capture":
		return d.cmdCapture(ctx, ev, capture.KindTask)
	case "idea":
		return d.cmdCapture(ctx, ev, capture.KindIdea)
	case "tasks":
		return d.cmdTasks(ctx)
	case "done":
		return d.cmdDone(ctx, ev)
	case "status":
		return d.cmdStatus()
	case "assess":
		return d.cmdAssess(ev)
	case "mood":
		return d.cmdMood(ev)
	case "moodlog":
		return d.cmdMoodLog(ev)
	case "habits":
		return d.cmdHabits(ev)
	case "streak":
		return d.cmdStreak(ev)
	case "review":
		return d.cmdReview(ev)
	case "stats":
		return d.cmdStats()
	case "schedule":
		return d.cmdSchedule(ctx)
	case "inbox":
		return d.cmdInbox(ctx)
	default:
		return []Reply{plain(msgUnknownCommand)}, nil
	}
}

func (d *Dispatcher) cmdCapture(ctx context.Context, ev Event, kind capture.Kind) ([]Reply, error) {
	content := ev.ArgText()
	if content == "" {
		if kind == capture.KindIdea {
			return []Reply{plain("💡 Использование: /idea <текст идеи>")}, nil
		}
		return []Reply{plain("📝 Использование: /capture <текст задачи>\n\nПример: /capture Позвонить маме завтра")}, nil
	}

	res, err := d.deps.Router.CaptureAs(ctx, kind, content)
	if err != nil {
		return nil, err
	}
	d.captured(ev, res)

	if kind == capture.KindIdea {
		return []Reply{plain(fmt.Sprintf("💡 Идея захвачена: %q", res.Content))}, nil
	}
	msg := fmt.Sprintf("✅ Задача захвачена: %q", res.Content)
	if d.deps.Router.HasMirror() && res.MirrorID == "" {
		msg += "\n⚠️ В Todoist скопировать не удалось"
	}
	return []Reply{plain(msg)}, nil
}

func (d *Dispatcher) cmdTasks(ctx context.Context) ([]Reply, error) {
	if d.deps.Tasks != nil {
		return d.remoteTasks(ctx)
	}

	tasks, err := d.deps.Ledger.OpenTasks()
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return []Reply{plain(msgNoTasks)}, nil
	}

	var b strings.Builder
	b.WriteString("📋 *Открытые задачи:*\n\n")
	var kb Keyboard
	for i, t := range tasks {
		fmt.Fprintf(&b, "%d. %s\n", i+1, escape(t.Content))
		if i < maxTaskButtons {
			kb = append(kb, []Button{NewButton(
				fmt.Sprintf("✅ %d. %s", i+1, truncate(t.Content, 20)),
				Action{Kind: ActionCompleteLocal, Key: journal.TaskKey(t.Content)},
			)})
		}
	}
	return []Reply{markdown(b.String(), kb)}, nil
}

func (d *Dispatcher) remoteTasks(ctx context.Context) ([]Reply, error) {
	tasks, err := d.deps.Tasks.TodayTasks(ctx)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return []Reply{plain(msgNoTasks)}, nil
	}

	var b strings.Builder
	b.WriteString("📋 *Задачи на сегодня:*\n\n")
	var kb Keyboard
	for i, t := range tasks {
		line := fmt.Sprintf("%d. %s %s", i+1, priorityEmoji(t.Priority), escape(t.Content))
		if t.Due != nil && t.Due.Date != "" {
			line += " (" + t.Due.Date + ")"
		}
		if len(t.Labels) > 0 {
			line += " [" + escape(strings.Join(t.Labels, ", ")) + "]"
		}
		b.WriteString(line + "\n")

		a := Action{Kind: ActionCompleteTask, TaskID: t.ID}
		if i < maxTaskButtons && len(a.Encode()) <= MaxCallbackData {
			kb = append(kb, []Button{NewButton(fmt.Sprintf("✅ %d. %s", i+1, truncate(t.Content, 20)), a)})
		}
	}
	return []Reply{markdown(b.String(), kb)}, nil
}

// cmdDone completes a journal task by its number in /tasks or by its text
func (d *Dispatcher) cmdDone(ctx context.Context, ev Event) ([]Reply, error) {
	arg := ev.ArgText()
	if arg == "" {
		return []Reply{plain("✔️ Использование: /done <номер задачи из /tasks>")}, nil
	}

	key, err := d.deps.Ledger.ResolveTask(arg)
	if err != nil {
		return nil, err
	}

	task, err := d.completeLocal(ctx, ev.ChatID, key)
	if err != nil {
		return nil, err
	}
	return []Reply{plain("✅ Задача выполнена: " + task.Content)}, nil
}

func (d *Dispatcher) cmdStatus() ([]Reply, error) {
	scores, err := d.deps.Scores.List()
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("📊 *Статус жизненных областей:*\n\n")
	if len(scores) == 0 {
		b.WriteString("Пока нет сохраненных оценок. Используйте /assess\n")
	}
	for _, s := range scores {
		fmt.Fprintf(&b, "%s: %s (%d/10)\n", escape(s.AreaName), stars(s.Score), s.Score)
	}
	return []Reply{markdown(b.String(), statusKeyboard(areaNames(scores)))}, nil
}

// cmdAssess shows the assessment keyboard, or with "<area> <score> [notes]"
// records a score directly. The area may span several words.
func (d *Dispatcher) cmdAssess(ev Event) ([]Reply, error) {
	if len(ev.Args) == 0 {
		return d.assessMenu(ev)
	}

	idx := -1
	for i, a := range ev.Args {
		if _, err := strconv.Atoi(a); err == nil && i > 0 {
			idx = i
			break
		}
	}
	if idx < 0 {
		return []Reply{plain("📈 Использование: /assess <область> <1-10> [заметка]")}, nil
	}

	area := strings.Join(ev.Args[:idx], " ")
	score, _ := strconv.Atoi(ev.Args[idx])
	notes := strings.Join(ev.Args[idx+1:], " ")

	s, err := d.deps.Scores.Upsert(area, score, notes)
	if err != nil {
		return nil, err
	}
	d.audit(d.deps.Audit.RecordScore(ev.ChatID, s.AreaName, s.Score))
	return []Reply{plain(fmt.Sprintf("✅ Оценка области '%s' обновлена: %d/10", s.AreaName, s.Score))}, nil
}

func (d *Dispatcher) assessMenu(ev Event) ([]Reply, error) {
	scores, err := d.deps.Scores.List()
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("📈 *Оценка жизненных областей*\n\n")
	b.WriteString("1️⃣ Выберите область жизни (нажмите на название)\n")
	b.WriteString("2️⃣ Выберите оценку от 1 до 10\n")
	b.WriteString("3️⃣ Повторите для всех областей\n\n")
	b.WriteString(scoresText(scores))

	return []Reply{markdown(b.String(), assessKeyboard(areaNames(scores)))}, nil
}

func scoresText(scores []core.AreaScore) string {
	if len(scores) == 0 {
		return "📊 Пока нет сохраненных оценок."
	}
	var b strings.Builder
	b.WriteString("📊 *Текущие оценки:*\n")
	for _, s := range scores {
		fmt.Fprintf(&b, "• %s: %d/10\n", escape(s.AreaName), s.Score)
	}
	return b.String()
}

func (d *Dispatcher) cmdMood(ev Event) ([]Reply, error) {
	if len(ev.Args) == 0 {
		return []Reply{markdown(moodPrompt, moodKeyboard())}, nil
	}

	score, err := strconv.Atoi(ev.Args[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidScore, ev.Args[0])
	}
	notes := strings.TrimSpace(strings.TrimPrefix(strings.Join(ev.Args[1:], " "), "-"))
	return d.saveMood(ev, score, notes)
}

func (d *Dispatcher) saveMood(ev Event, score int, notes string) ([]Reply, error) {
	m, err := d.deps.Ledger.SaveMood(score, notes)
	if err != nil {
		return nil, err
	}
	d.audit(d.deps.Audit.RecordMood(ev.ChatID, m.Score))
	return []Reply{plain(fmt.Sprintf("%s Настроение записано: %d/10", moodEmoji(m.Score), m.Score))}, nil
}

func (d *Dispatcher) cmdMoodLog(ev Event) ([]Reply, error) {
	window := defaultMoodWindow
	if len(ev.Args) > 0 {
		n, err := strconv.Atoi(ev.Args[0])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: window %q", core.ErrInvalidInput, ev.Args[0])
		}
		window = n
	}

	moods, err := d.deps.Stats.RecentMood(window)
	if err != nil {
		return nil, err
	}
	if len(moods) == 0 {
		return []Reply{plain("😶 Записей настроения пока нет. Используйте /mood")}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📉 *Последние записи настроения (%d):*\n\n", len(moods))
	for _, m := range moods {
		fmt.Fprintf(&b, "%s %d/10 - %s", moodEmoji(m.Score), m.Score, m.CapturedAt.Format(core.TimestampLayout))
		if m.Notes != "" {
			b.WriteString(" - " + escape(m.Notes))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nСреднее: %.1f/10", journal.AverageMood(moods))
	return []Reply{markdown(b.String(), nil)}, nil
}

func (d *Dispatcher) cmdHabits(ev Event) ([]Reply, error) {
	if len(ev.Args) == 0 {
		msg := "✅ *Отслеживание привычек*\n\nОтметьте выполненные привычки или добавьте новую:"
		return []Reply{markdown(msg, habitsKeyboard())}, nil
	}

	h, err := d.deps.Ledger.SaveHabit(ev.ArgText())
	if err != nil {
		return nil, err
	}
	d.audit(d.deps.Audit.RecordHabit(ev.ChatID, h.Name))
	return []Reply{plain("✅ Привычка отмечена: " + h.Name)}, nil
}

func (d *Dispatcher) cmdStreak(ev Event) ([]Reply, error) {
	args := ev.Args
	window := defaultStreakWindow
	if n := len(args); n > 1 {
		if w, err := strconv.Atoi(args[n-1]); err == nil && w > 0 {
			window = w
			args = args[:n-1]
		}
	}
	name := strings.Join(args, " ")
	if name == "" {
		return []Reply{plain("🔥 Использование: /streak <привычка> [дней]")}, nil
	}

	streak, err := d.deps.Stats.HabitStreak(name, window)
	if err != nil {
		return nil, err
	}
	if streak == 0 {
		return []Reply{plain(fmt.Sprintf("🔥 Серия для «%s» пока не началась", name))}, nil
	}
	return []Reply{plain(fmt.Sprintf("🔥 Текущая серия «%s»: %s подряд", name, countLabel(streak)))}, nil
}

func (d *Dispatcher) cmdReview(ev Event) ([]Reply, error) {
	body := strings.TrimSpace(ev.Text)
	if body == "" {
		return []Reply{markdown(reviewPrompt, nil)}, nil
	}
	fields := journal.ParseReviewText(body)

	r, err := d.deps.Ledger.SaveReview(fields)
	if err != nil {
		return nil, err
	}
	d.audit(d.deps.Audit.RecordReview(ev.ChatID, len(r.Fields)))
	return []Reply{plain(fmt.Sprintf("📝 Обзор сохранен (%d %s)", len(r.Fields), plural(len(r.Fields), "пункт", "пункта", "пунктов")))}, nil
}

func (d *Dispatcher) cmdStats() ([]Reply, error) {
	files, err := d.deps.Stats.Overview()
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("🗂 *Журналы:*\n\n")
	for _, f := range files {
		if !f.Exists {
			fmt.Fprintf(&b, "• %s: пусто\n", f.Category)
			continue
		}
		fmt.Fprintf(&b, "• %s: %d %s, изменен %s\n", f.Category, f.Lines,
			plural(f.Lines, "запись", "записи", "записей"), f.Modified.Format(core.TimestampLayout))
	}

	counts, err := d.deps.Stats.RankedHabits()
	if err != nil {
		return nil, err
	}
	if len(counts) > 0 {
		b.WriteString("\n*Привычки:*\n")
		for i, c := range counts {
			if i == 5 {
				break
			}
			fmt.Fprintf(&b, "• %s: %s\n", escape(habitTitle(c.Name)), countLabel(c.Count))
		}
	}
	return []Reply{markdown(b.String(), nil)}, nil
}

func (d *Dispatcher) cmdSchedule(ctx context.Context) ([]Reply, error) {
	if d.deps.Agenda == nil {
		return []Reply{plain("📅 Календарь не подключен. Выполните: lctl google login")}, nil
	}
	events, err := d.deps.Agenda.TodayEvents(ctx)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return []Reply{plain("📅 На сегодня событий нет")}, nil
	}

	var b strings.Builder
	b.WriteString("📅 *Расписание на сегодня:*\n\n")
	for _, e := range events {
		when := "весь день"
		if !e.AllDay {
			when = e.Start.In(time.Local).Format("15:04") + "-" + e.End.In(time.Local).Format("15:04")
		}
		fmt.Fprintf(&b, "%s - %s", when, escape(e.Summary))
		if e.Location != "" {
			b.WriteString(" (" + escape(e.Location) + ")")
		}
		b.WriteString("\n")
	}
	return []Reply{markdown(b.String(), nil)}, nil
}

func (d *Dispatcher) cmdInbox(ctx context.Context) ([]Reply, error) {
	if d.deps.Inbox == nil {
		return []Reply{plain("📬 Почта не подключена. Выполните: lctl google login")}, nil
	}
	msgs, err := d.deps.Inbox.Unread(ctx, inboxLimit)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return []Reply{plain("📬 Непрочитанных писем нет")}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📬 *Непрочитанные письма (%d):*\n\n", len(msgs))
	for _, m := range msgs {
		fmt.Fprintf(&b, "• *%s*\n  %s\n", escape(truncate(m.Subject, 60)), escape(m.From))
	}
	return []Reply{markdown(b.String(), nil)}, nil
}
