package journal

import (
	"os"
	"sort"
	"strings"
	"time"

	"github.com/quantumlife/lifeos/internal/core"
)

// Stats derives aggregate views by re-reading the journal on every call.
// It never writes.
type Stats struct {
	ledger *Ledger
}

// NewStats creates a stats deriver over the ledger
func NewStats(l *Ledger) *Stats {
	return &Stats{ledger: l}
}

// HabitCounts tallies occurrences per habit name
func (s *Stats) HabitCounts() (map[string]int, error) {
	lines, err := s.ledger.ReadAll(core.CategoryHabits)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, h := range ParseHabits(lines) {
		counts[h.Name]++
	}
	return counts, nil
}

// HabitCount pairs a habit with its tally
type HabitCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// RankedHabits returns counts sorted by frequency, then name
func (s *Stats) RankedHabits() ([]HabitCount, error) {
	counts, err := s.HabitCounts()
	if err != nil {
		return nil, err
	}
	ranked := make([]HabitCount, 0, len(counts))
	for name, n := range counts {
		ranked = append(ranked, HabitCount{Name: name, Count: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Name < ranked[j].Name
	})
	return ranked, nil
}

// HabitStreak counts the trailing run of lines mentioning name
// (case-insensitive substring), capped at window. Adjacency in the file is
// the only notion of continuity; calendar days are not grouped.
func (s *Stats) HabitStreak(name string, window int) (int, error) {
	lines, err := s.ledger.ReadAll(core.CategoryHabits)
	if err != nil {
		return 0, err
	}

	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" || window <= 0 {
		return 0, nil
	}

	streak := 0
	for i := len(lines) - 1; i >= 0 && streak < window; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if !strings.Contains(strings.ToLower(line), needle) {
			break
		}
		streak++
	}
	return streak, nil
}

// RecentMood returns the last window samples in file order
func (s *Stats) RecentMood(window int) ([]core.MoodSample, error) {
	lines, err := s.ledger.ReadAll(core.CategoryMood)
	if err != nil {
		return nil, err
	}
	if window <= 0 {
		return []core.MoodSample{}, nil
	}
	moods := ParseMoods(lines)
	if len(moods) > window {
		moods = moods[len(moods)-window:]
	}
	return moods, nil
}

// Day reports what was logged on the calendar day of t
type Day struct {
	Mood   bool `json:"mood"`
	Review bool `json:"review"`
}

// LoggedOn checks the mood and review journals for entries stamped on t's date
func (s *Stats) LoggedOn(t time.Time) (Day, error) {
	var d Day
	prefix := t.Format("2006-01-02")

	moods, err := s.ledger.ReadAll(core.CategoryMood)
	if err != nil {
		return d, err
	}
	for _, m := range ParseMoods(moods) {
		if !m.CapturedAt.IsZero() && m.CapturedAt.Format("2006-01-02") == prefix {
			d.Mood = true
			break
		}
	}

	reviews, err := s.ledger.ReadAll(core.CategoryReviews)
	if err != nil {
		return d, err
	}
	for _, line := range reviews {
		if strings.HasPrefix(line, reviewHeading+prefix) {
			d.Review = true
			break
		}
	}
	return d, nil
}

// AverageMood returns the mean of the samples, or 0 for none
func AverageMood(samples []core.MoodSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	total := 0
	for _, m := range samples {
		total += m.Score
	}
	return float64(total) / float64(len(samples))
}

// FileStat summarizes one journal file
type FileStat struct {
	Category core.Category `json:"category"`
	Path     string        `json:"path"`
	Exists   bool          `json:"exists"`
	Lines    int           `json:"lines"` // non-blank
	Modified time.Time     `json:"modified,omitempty"`
}

// Overview reports line counts and modification times for every category
func (s *Stats) Overview() ([]FileStat, error) {
	var out []FileStat
	for _, cat := range core.Categories() {
		path, err := s.ledger.Path(cat)
		if err != nil {
			return nil, err
		}
		fs := FileStat{Category: cat, Path: path}

		info, err := os.Stat(path)
		switch {
		case err == nil:
			fs.Exists = true
			fs.Modified = info.ModTime()
		case !os.IsNotExist(err):
			return nil, ioFailure("stat", path, err)
		}

		lines, err := s.ledger.ReadAll(cat)
		if err != nil {
			return nil, err
		}
		for _, l := range lines {
			if strings.TrimSpace(l) != "" {
				fs.Lines++
			}
		}
		out = append(out, fs)
	}
	return out, nil
}
