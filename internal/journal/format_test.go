package journal

import (
	"testing"
	"time"

	"github.com/quantumlife/lifeos/internal/core"
)

func TestRoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 2, 9, 5, 0, 0, time.Local)

	t.Run("task", func(t *testing.T) {
		in := core.TaskEntry{Content: "оплатить интернет", CapturedAt: at}
		out, ok := ParseTask(FormatTask(in))
		if !ok || out.Content != in.Content || !out.CapturedAt.Equal(at) || out.Done {
			t.Errorf("task round trip: %+v, %v", out, ok)
		}
	})

	t.Run("idea", func(t *testing.T) {
		in := core.IdeaEntry{Content: "бот для привычек", CapturedAt: at}
		out, ok := ParseIdea(FormatIdea(in))
		if !ok || out.Content != in.Content || !out.CapturedAt.Equal(at) {
			t.Errorf("idea round trip: %+v, %v", out, ok)
		}
	})

	t.Run("mood with notes", func(t *testing.T) {
		in := core.MoodSample{Score: 6, CapturedAt: at, Notes: "устал"}
		out, ok := ParseMood(FormatMood(in))
		if !ok || out.Score != 6 || out.Notes != "устал" || !out.CapturedAt.Equal(at) {
			t.Errorf("mood round trip: %+v, %v", out, ok)
		}
	})

	t.Run("habit", func(t *testing.T) {
		in := core.HabitEvent{Name: "Медитация", CapturedAt: at}
		out, ok := ParseHabit(FormatHabit(in))
		if !ok || out.Name != in.Name || !out.CapturedAt.Equal(at) {
			t.Errorf("habit round trip: %+v, %v", out, ok)
		}
	})

	t.Run("area", func(t *testing.T) {
		in := core.AreaScore{AreaName: "Личностный рост", Score: 8, UpdatedAt: at, Notes: "курс"}
		out, ok := ParseArea(FormatArea(in))
		if !ok || out.AreaName != in.AreaName || out.Score != 8 || out.Notes != "курс" || !out.UpdatedAt.Equal(at) {
			t.Errorf("area round trip: %+v, %v", out, ok)
		}
	})
}

func TestCanonicalForms(t *testing.T) {
	at := time.Date(2024, 1, 15, 14, 30, 0, 0, time.Local)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"task", FormatTask(core.TaskEntry{Content: "c", CapturedAt: at}), "- [ ] c (захвачено: 2024-01-15 14:30)"},
		{"done task", FormatTask(core.TaskEntry{Content: "c", CapturedAt: at, Done: true}), "- [x] c (захвачено: 2024-01-15 14:30)"},
		{"idea", FormatIdea(core.IdeaEntry{Content: "c", CapturedAt: at}), "- c (захвачено: 2024-01-15 14:30)"},
		{"mood", FormatMood(core.MoodSample{Score: 8, CapturedAt: at}), "- 8/10 - 2024-01-15 14:30"},
		{"habit", FormatHabit(core.HabitEvent{Name: "h", CapturedAt: at}), "- h - 2024-01-15 14:30"},
		{"area", FormatArea(core.AreaScore{AreaName: "A", Score: 7, UpdatedAt: at}), "- A: 7/10 (2024-01-15 14:30)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestParse_SkipsForeignLines(t *testing.T) {
	lines := []string{
		"",
		"# Inbox",
		"- [x] finished (захвачено: 2024-01-15 14:30)",
		"some prose",
		"- [ ] ",
	}
	for _, line := range lines {
		if _, ok := ParseTask(line); ok {
			t.Errorf("ParseTask(%q) should skip", line)
		}
	}

	for _, line := range []string{"", "- no separator", "- 8 of 10"} {
		if _, ok := ParseMood(line); ok {
			t.Errorf("ParseMood(%q) should skip", line)
		}
	}
	for _, line := range []string{"", "- habit without time", "text - 2024"} {
		if _, ok := ParseHabit(line); ok {
			t.Errorf("ParseHabit(%q) should skip", line)
		}
	}
	for _, line := range []string{"", "- no colon here", "- A: high"} {
		if _, ok := ParseArea(line); ok {
			t.Errorf("ParseArea(%q) should skip", line)
		}
	}
}

func TestParse_Tolerant(t *testing.T) {
	// Older lines without the capture marker still yield content
	task, ok := ParseTask("- [ ] call bank (later)")
	if !ok || task.Content != "call bank" || !task.CapturedAt.IsZero() {
		t.Errorf("ParseTask tolerant = %+v, %v", task, ok)
	}

	// Unreadable timestamps do not drop the record
	mood, ok := ParseMood("- 5/10 - yesterday - meh")
	if !ok || mood.Score != 5 || mood.Notes != "meh" || !mood.CapturedAt.IsZero() {
		t.Errorf("ParseMood tolerant = %+v, %v", mood, ok)
	}

	// Trailing notes after the timestamp are ignored
	habit, ok := ParseHabit("- exercise - 2024-01-02 10:00 - morning run")
	want := time.Date(2024, 1, 2, 10, 0, 0, 0, time.Local)
	if !ok || habit.Name != "exercise" || !habit.CapturedAt.Equal(want) {
		t.Errorf("ParseHabit with notes = %+v, %v", habit, ok)
	}

	area, ok := ParseArea("  - Финансы: 4/10  ")
	if !ok || area.AreaName != "Финансы" || area.Score != 4 {
		t.Errorf("ParseArea tolerant = %+v, %v", area, ok)
	}
}

func TestTaskKey(t *testing.T) {
	if TaskKey("a") == TaskKey("b") {
		t.Error("different content should give different keys")
	}
	if TaskKey("a") != TaskKey("a") {
		t.Error("key must be stable")
	}
	if len(TaskKey("a")) != 10 {
		t.Errorf("key length = %d", len(TaskKey("a")))
	}
}
