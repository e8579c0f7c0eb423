package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quantumlife/lifeos/internal/core"
	"github.com/quantumlife/lifeos/internal/testutil"
)

type env struct {
	t      *testing.T
	memory string
	config string
	stdin  string
	tty    bool
}

func newEnv(t *testing.T) *env {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		"TELEGRAM_BOT_TOKEN", "TODOIST_API_TOKEN", "SPEECH_API_KEY", "SPEECH_API_URL",
		"LIFEOS_MEMORY_PATH", "GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "BOT_ADMIN_USER_ID",
	} {
		t.Setenv(key, "")
	}
	return &env{
		t:      t,
		memory: filepath.Join(home, "memory"),
		config: filepath.Join(home, "config.yaml"),
	}
}

func (e *env) run(args ...string) (string, error) {
	e.t.Helper()
	c := &cli{isTerminal: func(io.Reader) bool { return e.tty }}
	cmd := newRootCmd(c)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(e.stdin))
	cmd.SetArgs(append([]string{"--config", e.config, "--memory", e.memory}, args...))

	err := cmd.Execute()
	c.close()
	return out.String(), err
}

func (e *env) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	if err != nil {
		e.t.Fatalf("lctl %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func (e *env) lines(rel string) []string {
	e.t.Helper()
	data, err := os.ReadFile(filepath.Join(e.memory, rel))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		e.t.Fatal(err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestCaptureAndComplete(t *testing.T) {
	e := newEnv(t)

	e.mustRun("capture", "--kind", "task", "позвонить", "маме")
	e.mustRun("capture", "-k", "task", "купить молоко")
	e.mustRun("idea", "приложение для заметок")

	if got := e.lines("gtd/inbox.md"); len(got) != 2 || !strings.HasPrefix(got[0], "- [ ] позвонить маме (захвачено: ") {
		t.Fatalf("inbox.md = %q", got)
	}
	if got := e.lines("ideas.md"); len(got) != 1 || !strings.HasPrefix(got[0], "- приложение для заметок") {
		t.Fatalf("ideas.md = %q", got)
	}

	out := e.mustRun("tasks")
	testutil.AssertContains(t, out, " 1. позвонить маме")
	testutil.AssertContains(t, out, " 2. купить молоко")

	out = e.mustRun("tasks", "done", "2")
	testutil.AssertContains(t, out, "купить молоко")
	if got := e.lines("gtd/inbox.md"); !strings.HasPrefix(got[1], "- [x] купить молоко") {
		t.Errorf("task not checked off: %q", got)
	}

	if _, err := e.run("tasks", "done", "5"); err == nil {
		t.Error("completing a missing task should fail")
	}

	out = e.mustRun("audit", "verify")
	testutil.AssertContains(t, out, "(4 entries)")

	out = e.mustRun("audit", "list", "--action", "task.completed")
	testutil.AssertContains(t, out, "task.completed")
	testutil.AssertTrue(t, !strings.Contains(out, "idea.captured"), "action filter ignored")
}

func TestCapture_Classification(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun("capture", "нужно", "починить", "кран")
	testutil.AssertContains(t, out, "Задача захвачена")

	out = e.mustRun("capture", "книга о привычках")
	testutil.AssertContains(t, out, "Идея захвачена")

	if _, err := e.run("capture", "--kind", "note", "x"); err == nil {
		t.Error("unknown kind should fail")
	}
}

func TestCapture_ConfirmDeclined(t *testing.T) {
	e := newEnv(t)
	e.tty = true
	e.stdin = "n\n"

	out := e.mustRun("capture", "нужно", "позвонить")
	testutil.AssertContains(t, out, "Записать как задачу")
	testutil.AssertContains(t, out, "Отменено")
	if got := e.lines("gtd/inbox.md"); got != nil {
		t.Errorf("declined capture was written: %q", got)
	}

	e.stdin = "\n"
	e.mustRun("capture", "нужно", "позвонить")
	if got := e.lines("gtd/inbox.md"); len(got) != 1 {
		t.Errorf("accepted capture not written: %q", got)
	}

	e.stdin = "n\n"
	e.mustRun("--yes", "capture", "идея")
	if got := e.lines("ideas.md"); len(got) != 1 {
		t.Errorf("--yes should skip the question: %q", got)
	}
}

func TestMood(t *testing.T) {
	e := newEnv(t)

	e.mustRun("mood", "8", "хорошо", "выспался")
	e.mustRun("mood", "6")

	if got := e.lines("mood.md"); len(got) != 2 || !strings.HasPrefix(got[0], "- 8/10 - ") || !strings.HasSuffix(got[0], " - хорошо выспался") {
		t.Errorf("mood.md = %q", got)
	}

	out := e.mustRun("mood", "log", "-n", "5")
	testutil.AssertContains(t, out, "Среднее: 7.0")

	_, err := e.run("mood", "11")
	testutil.AssertErrorIs(t, err, core.ErrInvalidScore)
	_, err = e.run("mood", "хорошо")
	testutil.AssertErrorIs(t, err, core.ErrInvalidScore)
}

func TestHabitsAndStreak(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun("habit")
	testutil.AssertContains(t, out, "Привычек пока нет")

	e.mustRun("habit", "exercise")
	e.mustRun("habit", "reading")
	e.mustRun("habit", "exercise")

	out = e.mustRun("habit")
	if strings.Index(out, "exercise") > strings.Index(out, "reading") {
		t.Errorf("habits not ranked:\n%s", out)
	}

	out = e.mustRun("streak", "exercise", "--days", "10")
	testutil.AssertContains(t, out, "exercise:")
}

func TestScores(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun("score")
	testutil.AssertContains(t, out, "Оценок пока нет")

	e.mustRun("score", "Личностный", "рост", "6", "читаю", "больше")
	e.mustRun("score", "Здоровье", "7")
	e.mustRun("score", "Здоровье", "8")

	out = e.mustRun("score")
	testutil.AssertContains(t, out, "Личностный рост")
	testutil.AssertContains(t, out, " 8/10")
	if strings.Contains(out, " 7/10") {
		t.Errorf("old score still listed:\n%s", out)
	}

	_, err := e.run("score", "Здоровье")
	testutil.AssertErrorIs(t, err, core.ErrInvalidInput)
}

func TestReviewFromStdin(t *testing.T) {
	e := newEnv(t)
	e.stdin = "Итоги: хороший день\nустал\n"

	out := e.mustRun("review")
	testutil.AssertContains(t, out, "Обзор сохранен (2)")

	got := strings.Join(e.lines("reviews.md"), "\n")
	testutil.AssertContains(t, got, "**Итоги:** хороший день")
	testutil.AssertContains(t, got, "**Заметки:** устал")

	e.stdin = ""
	_, err := e.run("review")
	testutil.AssertErrorIs(t, err, core.ErrMissingRequired)
}

func TestStats(t *testing.T) {
	e := newEnv(t)
	e.mustRun("idea", "x")

	out := e.mustRun("stats")
	testutil.AssertContains(t, out, e.memory)
	testutil.AssertContains(t, out, "ideas")
}

func TestConfigInitAndShow(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun("config", "init")
	testutil.AssertContains(t, out, e.config)
	if _, err := os.Stat(e.config); err != nil {
		t.Fatalf("config not written: %v", err)
	}

	if _, err := e.run("config", "init"); err == nil {
		t.Error("init should refuse to overwrite")
	}
	e.mustRun("config", "init", "--force")

	t.Setenv("TELEGRAM_BOT_TOKEN", "secret-token")
	out = e.mustRun("config", "show")
	testutil.AssertContains(t, out, "review_at:")
	testutil.AssertContains(t, out, "21:00")
	if strings.Contains(out, "secret-token") {
		t.Error("config show leaked the bot token")
	}
}

func TestGoogleRequiresClient(t *testing.T) {
	e := newEnv(t)

	_, err := e.run("google", "status")
	if err == nil || !strings.Contains(err.Error(), "GOOGLE_CLIENT_ID") {
		t.Errorf("err = %v", err)
	}

	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	out := e.mustRun("google", "status")
	testutil.AssertContains(t, out, "Not linked")
}

func TestSplitAreaArgs(t *testing.T) {
	tests := []struct {
		args  []string
		area  string
		score int
		notes string
		ok    bool
	}{
		{[]string{"Здоровье", "7"}, "Здоровье", 7, "", true},
		{[]string{"Личностный", "рост", "6", "много", "читаю"}, "Личностный рост", 6, "много читаю", true},
		{[]string{"7", "Здоровье"}, "", 0, "", false},
		{[]string{"Здоровье"}, "", 0, "", false},
	}

	for _, tt := range tests {
		area, score, notes, ok := splitAreaArgs(tt.args)
		if area != tt.area || score != tt.score || notes != tt.notes || ok != tt.ok {
			t.Errorf("splitAreaArgs(%q) = %q, %d, %q, %v", tt.args, area, score, notes, ok)
		}
	}
}
