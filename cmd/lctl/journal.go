package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quantumlife/lifeos/internal/capture"
	"github.com/quantumlife/lifeos/internal/core"
	"github.com/quantumlife/lifeos/internal/journal"
	"github.com/quantumlife/lifeos/internal/logging"
	"github.com/quantumlife/lifeos/internal/storage"
	"github.com/quantumlife/lifeos/internal/todoist"
)

// cliChat is the chat id recorded in the audit trail for local writes
const cliChat = 0

func kindLabel(k capture.Kind) string {
	if k == capture.KindTask {
		return "задачу"
	}
	return "идею"
}

// taskService returns the Todoist client and link store, or nils when
// Todoist is not configured
func (c *cli) taskService() (*todoist.Client, *storage.TaskLinkStore) {
	if !c.cfg.TodoistEnabled() {
		return nil, nil
	}
	db, err := c.database()
	if err != nil {
		logging.Warn("Todoist links unavailable: %v", err)
		return nil, nil
	}
	return todoist.NewClient(c.cfg.Todoist.BaseURL, c.cfg.Todoist.APIToken), storage.NewTaskLinkStore(db)
}

func (c *cli) capture(cmd *cobra.Command, kind capture.Kind, text string) error {
	ledger := c.ledger()
	client, links := c.taskService()

	var opts []capture.RouterOption
	if client != nil {
		opts = append(opts, capture.WithMirror(client))
	}
	router := capture.NewRouter(ledger, opts...)

	res, err := router.CaptureAs(cmd.Context(), kind, text)
	if err != nil {
		return err
	}

	cat := core.CategoryIdeas
	if res.Kind == capture.KindTask {
		cat = core.CategoryTasks
		if res.MirrorID != "" && links != nil {
			if err := links.Link(journal.TaskKey(res.Content), res.MirrorID, res.Content); err != nil {
				logging.Warn("Task link not stored: %v", err)
			}
		}
	}
	if err := c.recorder().RecordCapture(cliChat, cat, res.Content, res.MirrorID); err != nil {
		logging.Warn("Audit append failed: %v", err)
	}

	out := cmd.OutOrStdout()
	if res.Kind == capture.KindTask {
		fmt.Fprintf(out, "✅ Задача захвачена: %q\n", res.Content)
		if router.HasMirror() && res.MirrorID == "" {
			fmt.Fprintln(out, "⚠️  В Todoist скопировать не удалось")
		}
		return nil
	}
	fmt.Fprintf(out, "💡 Идея захвачена: %q\n", res.Content)
	return nil
}

func captureCmd(c *cli) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "capture <text>",
		Short: "Capture a task or an idea",
		Long: `Captures text into the journal. Without --kind the text is classified by
keywords (задача, сделать, нужно, должен) and you are asked to confirm.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := joinArgs(args)

			var k capture.Kind
			switch kind {
			case "task":
				k = capture.KindTask
			case "idea":
				k = capture.KindIdea
			case "", "auto":
				k = capture.NewKeywordClassifier().Classify(text)
				if !c.confirm(cmd, fmt.Sprintf("Записать как %s: %q?", kindLabel(k), text)) {
					fmt.Fprintln(cmd.OutOrStdout(), "❌ Отменено")
					return nil
				}
			default:
				return fmt.Errorf("%w: --kind must be task, idea or auto", core.ErrInvalidInput)
			}
			return c.capture(cmd, k, text)
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "auto", "task, idea or auto")
	return cmd
}

func ideaCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "idea <text>",
		Short: "Capture an idea",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.capture(cmd, capture.KindIdea, joinArgs(args))
		},
	}
}

func tasksCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List open journal tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := c.ledger().OpenTasks()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(tasks) == 0 {
				fmt.Fprintln(out, "🎉 Открытых задач нет")
				return nil
			}
			for i, t := range tasks {
				fmt.Fprintf(out, "%2d. %s  [%s]\n", i+1, t.Content, journal.TaskKey(t.Content))
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "done <number|text>",
		Short: "Check off a task, closing its Todoist copy too",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger := c.ledger()
			key, err := ledger.ResolveTask(joinArgs(args))
			if err != nil {
				return err
			}
			task, err := ledger.CompleteTask(key)
			if err != nil {
				return err
			}

			remoteID := ""
			if client, links := c.taskService(); client != nil {
				link, err := links.ByKey(key)
				switch {
				case err != nil:
					logging.Warn("Task link lookup failed: %v", err)
				case link != nil:
					if err := client.CloseTask(cmd.Context(), link.RemoteID); err != nil {
						logging.Warn("Remote close failed: %v", err)
					} else {
						remoteID = link.RemoteID
					}
				}
			}
			if err := c.recorder().RecordTaskCompleted(cliChat, task.Content, remoteID); err != nil {
				logging.Warn("Audit append failed: %v", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✅ Задача выполнена: %s\n", task.Content)
			return nil
		},
	})

	return cmd
}

func moodCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mood <1-10> [notes]",
		Short: "Record a mood score",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("%w: %q is not a number", core.ErrInvalidScore, args[0])
			}
			m, err := c.ledger().SaveMood(score, joinArgs(args[1:]))
			if err != nil {
				return err
			}
			if err := c.recorder().RecordMood(cliChat, m.Score); err != nil {
				logging.Warn("Audit append failed: %v", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "😊 Настроение %d/10 записано\n", m.Score)
			return nil
		},
	}

	var window int
	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent mood scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			moods, err := journal.NewStats(c.ledger()).RecentMood(window)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(moods) == 0 {
				fmt.Fprintln(out, "Записей о настроении пока нет")
				return nil
			}
			for _, m := range moods {
				line := fmt.Sprintf("%s  %2d/10", m.CapturedAt.Format(core.TimestampLayout), m.Score)
				if m.Notes != "" {
					line += "  " + m.Notes
				}
				fmt.Fprintln(out, line)
			}
			fmt.Fprintf(out, "\nСреднее: %.1f\n", journal.AverageMood(moods))
			return nil
		},
	}
	logCmd.Flags().IntVarP(&window, "count", "n", 7, "number of samples")
	cmd.AddCommand(logCmd)

	return cmd
}

func habitCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "habit [name]",
		Short: "Log a habit, or list habit counts without a name",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			name := joinArgs(args)
			if name == "" {
				counts, err := journal.NewStats(c.ledger()).RankedHabits()
				if err != nil {
					return err
				}
				if len(counts) == 0 {
					fmt.Fprintln(out, "Привычек пока нет")
				}
				for _, hc := range counts {
					fmt.Fprintf(out, "%-24s %d\n", hc.Name, hc.Count)
				}
				return nil
			}

			h, err := c.ledger().SaveHabit(name)
			if err != nil {
				return err
			}
			if err := c.recorder().RecordHabit(cliChat, h.Name); err != nil {
				logging.Warn("Audit append failed: %v", err)
			}
			fmt.Fprintf(out, "✅ Привычка «%s» отмечена\n", h.Name)
			return nil
		},
	}
}

func streakCmd(c *cli) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "streak <habit>",
		Short: "Show the current streak of a habit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := joinArgs(args)
			streak, err := journal.NewStats(c.ledger()).HabitStreak(name, days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🔥 %s: %d подряд\n", name, streak)
			return nil
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 30, "window of recent entries")
	return cmd
}

// splitAreaArgs finds the score in "<area words> <score> [notes]"
func splitAreaArgs(args []string) (area string, score int, notes string, ok bool) {
	for i := 1; i < len(args); i++ {
		if n, err := strconv.Atoi(args[i]); err == nil {
			return joinArgs(args[:i]), n, joinArgs(args[i+1:]), true
		}
	}
	return "", 0, "", false
}

func scoreCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "score [area score [notes]]",
		Short: "Set a life-area score, or list scores without arguments",
		Example: `  lctl score
  lctl score Здоровье 7 больше сна
  lctl score Личностный рост 6`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := journal.NewAssessmentStore(c.ledger())
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				scores, err := store.List()
				if err != nil {
					return err
				}
				if len(scores) == 0 {
					fmt.Fprintf(out, "Оценок пока нет. Области: %s\n", strings.Join(core.DefaultAreas, ", "))
				}
				for _, s := range scores {
					fmt.Fprintf(out, "%-20s %2d/10  %s\n", s.AreaName, s.Score, s.Notes)
				}
				return nil
			}

			area, score, notes, ok := splitAreaArgs(args)
			if !ok {
				return fmt.Errorf("%w: usage: lctl score <area> <1-10> [notes]", core.ErrInvalidInput)
			}
			a, err := store.Upsert(area, score, notes)
			if err != nil {
				return err
			}
			if err := c.recorder().RecordScore(cliChat, a.AreaName, a.Score); err != nil {
				logging.Warn("Audit append failed: %v", err)
			}
			fmt.Fprintf(out, "✅ %s: %d/10\n", a.AreaName, a.Score)
			return nil
		},
	}
}

func reviewCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "review [line...]",
		Short: "Save a daily review",
		Long: `Saves "key: value" lines as today's review. Each argument is one line;
without arguments the review is read from stdin.`,
		Example: `  lctl review "Сделано: отчет" "Завтра: спорт"
  printf 'Итоги: хороший день\n' | lctl review`,
		RunE: func(cmd *cobra.Command, args []string) error {
			body := strings.Join(args, "\n")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read review: %w", err)
				}
				body = string(data)
			}

			r, err := c.ledger().SaveReview(journal.ParseReviewText(body))
			if err != nil {
				return err
			}
			if err := c.recorder().RecordReview(cliChat, len(r.Fields)); err != nil {
				logging.Warn("Audit append failed: %v", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "📝 Обзор сохранен (%d)\n", len(r.Fields))
			return nil
		},
	}
}

func statsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show journal files with line counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := journal.NewStats(c.ledger()).Overview()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Journal: %s\n\n", c.cfg.MemoryPath)
			for _, f := range files {
				if !f.Exists {
					fmt.Fprintf(out, "  %-12s -\n", f.Category)
					continue
				}
				fmt.Fprintf(out, "  %-12s %5d  %s\n", f.Category, f.Lines, f.Modified.Format(core.TimestampLayout))
			}
			return nil
		},
	}
}
