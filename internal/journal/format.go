package journal

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/quantumlife/lifeos/internal/core"
)

// Line markers. The Russian words are part of the on-disk format.
const (
	capturedMarker = " (захвачено: "
	openBox        = "- [ ] "
	doneBox        = "- [x] "
	bullet         = "- "
	sep            = " - "
	reviewHeading  = "## Обзор "
	reviewRule     = "---"
)

func stamp(t time.Time) string {
	return t.Format(core.TimestampLayout)
}

// parseStamp is lenient: an unreadable timestamp yields the zero time
func parseStamp(s string) time.Time {
	t, err := time.ParseInLocation(core.TimestampLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// =============================================================================
// Formatting
// =============================================================================

// FormatTask renders "- [ ] <content> (захвачено: <ts>)"
func FormatTask(t core.TaskEntry) string {
	box := openBox
	if t.Done {
		box = doneBox
	}
	return box + t.Content + capturedMarker + stamp(t.CapturedAt) + ")"
}

// FormatIdea renders "- <content> (захвачено: <ts>)"
func FormatIdea(i core.IdeaEntry) string {
	return bullet + i.Content + capturedMarker + stamp(i.CapturedAt) + ")"
}

// FormatMood renders "- <score>/10 - <ts>[ - <notes>]"
func FormatMood(m core.MoodSample) string {
	line := fmt.Sprintf("- %d/10 - %s", m.Score, stamp(m.CapturedAt))
	if m.Notes != "" {
		line += sep + m.Notes
	}
	return line
}

// FormatHabit renders "- <name> - <ts>"
func FormatHabit(h core.HabitEvent) string {
	return bullet + h.Name + sep + stamp(h.CapturedAt)
}

// FormatArea renders "- <area>: <score>/10 (<ts>)[ - <notes>]"
func FormatArea(a core.AreaScore) string {
	line := fmt.Sprintf("- %s: %d/10 (%s)", a.AreaName, a.Score, stamp(a.UpdatedAt))
	if a.Notes != "" {
		line += sep + a.Notes
	}
	return line
}

// FormatReview renders a review block. The trailing blank line is added by Append.
func FormatReview(r core.ReviewEntry) string {
	var sb strings.Builder
	sb.WriteString(reviewHeading + stamp(r.CapturedAt) + "\n\n")
	for _, f := range r.Fields {
		fmt.Fprintf(&sb, "**%s:** %s\n\n", f.Key, f.Value)
	}
	sb.WriteString(reviewRule + "\n")
	return sb.String()
}

// =============================================================================
// Parsing
// =============================================================================

// splitCaptured splits "<content> (захвачено: <ts>)". Without the marker the
// content ends at the first parenthesis.
func splitCaptured(s string) (string, time.Time) {
	if i := strings.LastIndex(s, capturedMarker); i >= 0 {
		ts := strings.TrimSuffix(strings.TrimSpace(s[i+len(capturedMarker):]), ")")
		return strings.TrimSpace(s[:i]), parseStamp(ts)
	}
	if i := strings.Index(s, "("); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s), time.Time{}
}

// ParseTask reads an open inbox line. Completed and foreign lines are skipped.
func ParseTask(line string) (core.TaskEntry, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, strings.TrimSpace(openBox)) {
		return core.TaskEntry{}, false
	}
	content, at := splitCaptured(strings.TrimPrefix(trimmed, strings.TrimSpace(openBox)))
	if content == "" {
		return core.TaskEntry{}, false
	}
	return core.TaskEntry{Content: content, CapturedAt: at}, true
}

// ParseIdea reads an idea line
func ParseIdea(line string) (core.IdeaEntry, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, bullet) || strings.HasPrefix(trimmed, "- [") {
		return core.IdeaEntry{}, false
	}
	content, at := splitCaptured(strings.TrimPrefix(trimmed, bullet))
	if content == "" {
		return core.IdeaEntry{}, false
	}
	return core.IdeaEntry{Content: content, CapturedAt: at}, true
}

// ParseMood reads "- N/10 - ts[ - notes]"
func ParseMood(line string) (core.MoodSample, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, bullet) || !strings.Contains(trimmed, "/10") {
		return core.MoodSample{}, false
	}

	parts := strings.SplitN(strings.TrimPrefix(trimmed, bullet), sep, 3)
	if len(parts) < 2 {
		return core.MoodSample{}, false
	}

	score, ok := parseScore(parts[0])
	if !ok {
		return core.MoodSample{}, false
	}

	m := core.MoodSample{Score: score, CapturedAt: parseStamp(parts[1])}
	if len(parts) == 3 {
		m.Notes = strings.TrimSpace(parts[2])
	}
	return m, true
}

// ParseHabit reads "- name - ts". The name ends at the first separator;
// anything after the timestamp is ignored.
func ParseHabit(line string) (core.HabitEvent, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, bullet) {
		return core.HabitEvent{}, false
	}
	rest := strings.TrimPrefix(trimmed, bullet)

	i := strings.Index(rest, sep)
	if i < 0 {
		return core.HabitEvent{}, false
	}
	name := strings.TrimSpace(rest[:i])
	if name == "" {
		return core.HabitEvent{}, false
	}
	stamp, _, _ := strings.Cut(rest[i+len(sep):], sep)
	return core.HabitEvent{Name: name, CapturedAt: parseStamp(stamp)}, true
}

// ParseArea reads "- Area: N/10 (ts)[ - notes]"
func ParseArea(line string) (core.AreaScore, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, bullet) {
		return core.AreaScore{}, false
	}
	rest := strings.TrimPrefix(trimmed, bullet)

	colon := strings.Index(rest, ":")
	if colon <= 0 {
		return core.AreaScore{}, false
	}
	a := core.AreaScore{AreaName: strings.TrimSpace(rest[:colon])}
	rest = strings.TrimSpace(rest[colon+1:])

	slash := strings.Index(rest, "/")
	if slash < 0 {
		return core.AreaScore{}, false
	}
	score, ok := parseScore(rest[:slash])
	if !ok {
		return core.AreaScore{}, false
	}
	a.Score = score
	rest = rest[slash:]

	if lp := strings.Index(rest, "("); lp >= 0 {
		if rp := strings.Index(rest[lp:], ")"); rp > 0 {
			a.UpdatedAt = parseStamp(rest[lp+1 : lp+rp])
			rest = rest[lp+rp+1:]
		}
	}
	if strings.HasPrefix(rest, sep) {
		a.Notes = strings.TrimSpace(rest[len(sep):])
	}
	return a, true
}

func parseScore(s string) (int, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "/10")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// =============================================================================
// Bulk parsing
// =============================================================================

// ParseTasks returns every open task in file order
func ParseTasks(lines []string) []core.TaskEntry {
	tasks := make([]core.TaskEntry, 0, len(lines))
	for _, line := range lines {
		if t, ok := ParseTask(line); ok {
			tasks = append(tasks, t)
		}
	}
	return tasks
}

// ParseMoods returns every mood sample in file order
func ParseMoods(lines []string) []core.MoodSample {
	moods := make([]core.MoodSample, 0, len(lines))
	for _, line := range lines {
		if m, ok := ParseMood(line); ok {
			moods = append(moods, m)
		}
	}
	return moods
}

// ParseHabits returns every habit event in file order
func ParseHabits(lines []string) []core.HabitEvent {
	events := make([]core.HabitEvent, 0, len(lines))
	for _, line := range lines {
		if h, ok := ParseHabit(line); ok {
			events = append(events, h)
		}
	}
	return events
}

// TaskKey is a short stable handle for an open task, small enough for
// button payloads
func TaskKey(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:10]
}
