package journal

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quantumlife/lifeos/internal/core"
)

// cleanText folds a free-text payload onto one line
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SaveTask appends an open task to the inbox
func (l *Ledger) SaveTask(content string) (core.TaskEntry, error) {
	content = cleanText(content)
	if content == "" {
		return core.TaskEntry{}, fmt.Errorf("%w: empty task", core.ErrMissingRequired)
	}
	t := core.TaskEntry{Content: content, CapturedAt: l.now()}
	if err := l.Append(core.CategoryTasks, FormatTask(t)); err != nil {
		return core.TaskEntry{}, err
	}
	return t, nil
}

// SaveIdea appends an idea
func (l *Ledger) SaveIdea(content string) (core.IdeaEntry, error) {
	content = cleanText(content)
	if content == "" {
		return core.IdeaEntry{}, fmt.Errorf("%w: empty idea", core.ErrMissingRequired)
	}
	i := core.IdeaEntry{Content: content, CapturedAt: l.now()}
	if err := l.Append(core.CategoryIdeas, FormatIdea(i)); err != nil {
		return core.IdeaEntry{}, err
	}
	return i, nil
}

// SaveMood appends a mood sample; notes are optional
func (l *Ledger) SaveMood(score int, notes string) (core.MoodSample, error) {
	if !core.ValidScore(score) {
		return core.MoodSample{}, fmt.Errorf("%w: got %d", core.ErrInvalidScore, score)
	}
	m := core.MoodSample{Score: score, CapturedAt: l.now(), Notes: cleanText(notes)}
	if err := l.Append(core.CategoryMood, FormatMood(m)); err != nil {
		return core.MoodSample{}, err
	}
	return m, nil
}

// SaveHabit appends one habit occurrence
func (l *Ledger) SaveHabit(name string) (core.HabitEvent, error) {
	name = cleanText(name)
	if name == "" {
		return core.HabitEvent{}, fmt.Errorf("%w: empty habit name", core.ErrMissingRequired)
	}
	h := core.HabitEvent{Name: name, CapturedAt: l.now()}
	if err := l.Append(core.CategoryHabits, FormatHabit(h)); err != nil {
		return core.HabitEvent{}, err
	}
	return h, nil
}

// ReviewNotesKey collects review lines that carry no "key:" prefix
const ReviewNotesKey = "Заметки"

// ParseReviewText reads free-form "key: value" lines. Lines without a key
// are joined under ReviewNotesKey.
func ParseReviewText(body string) []core.ReviewField {
	var fields []core.ReviewField
	var notes []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if k, v, ok := strings.Cut(line, ":"); ok && strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
			fields = append(fields, core.ReviewField{Key: k, Value: v})
			continue
		}
		notes = append(notes, line)
	}
	if len(notes) > 0 {
		fields = append(fields, core.ReviewField{Key: ReviewNotesKey, Value: strings.Join(notes, " ")})
	}
	return fields
}

// SaveReview appends a review block to reviews.md
func (l *Ledger) SaveReview(fields []core.ReviewField) (core.ReviewEntry, error) {
	kept := make([]core.ReviewField, 0, len(fields))
	for _, f := range fields {
		if v := strings.TrimSpace(f.Value); v != "" {
			kept = append(kept, core.ReviewField{Key: strings.TrimSpace(f.Key), Value: v})
		}
	}
	if len(kept) == 0 {
		return core.ReviewEntry{}, fmt.Errorf("%w: empty review", core.ErrMissingRequired)
	}
	r := core.ReviewEntry{Fields: kept, CapturedAt: l.now()}
	if err := l.Append(core.CategoryReviews, FormatReview(r)); err != nil {
		return core.ReviewEntry{}, err
	}
	return r, nil
}

// ResolveTask turns a 1-based position in OpenTasks, or the task text
// itself, into a task key
func (l *Ledger) ResolveTask(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	n, err := strconv.Atoi(ref)
	if err != nil {
		return TaskKey(ref), nil
	}
	tasks, err := l.OpenTasks()
	if err != nil {
		return "", err
	}
	if n < 1 || n > len(tasks) {
		return "", fmt.Errorf("%w: no open task #%d", core.ErrTaskNotFound, n)
	}
	return TaskKey(tasks[n-1].Content), nil
}

// OpenTasks lists unchecked inbox tasks in file order
func (l *Ledger) OpenTasks() ([]core.TaskEntry, error) {
	lines, err := l.ReadAll(core.CategoryTasks)
	if err != nil {
		return nil, err
	}
	return ParseTasks(lines), nil
}

// CompleteTask checks off the first open task whose TaskKey matches.
// Only the checkbox changes; the rest of the line is kept byte for byte.
func (l *Ledger) CompleteTask(key string) (core.TaskEntry, error) {
	path, err := l.Path(core.CategoryTasks)
	if err != nil {
		return core.TaskEntry{}, err
	}

	m := l.lockFor(path)
	m.Lock()
	defer m.Unlock()

	lines, err := readLines(path)
	if err != nil {
		return core.TaskEntry{}, err
	}

	for i, line := range lines {
		t, ok := ParseTask(line)
		if !ok || TaskKey(t.Content) != key {
			continue
		}
		lines[i] = strings.Replace(line, "- [ ]", "- [x]", 1)
		if err := rewrite(path, lines); err != nil {
			return core.TaskEntry{}, err
		}
		t.Done = true
		return t, nil
	}
	return core.TaskEntry{}, fmt.Errorf("%w: %s", core.ErrTaskNotFound, key)
}
