// Package core defines the fundamental types for Life OS.
// Every fact the bot captures ends up as one of these records in a journal file.
package core

import (
	"time"
)

// TimestampLayout is the minute-precision layout used by every journal line.
const TimestampLayout = "2006-01-02 15:04"

// Score bounds shared by mood samples and life-area assessments
const (
	MinScore = 1
	MaxScore = 10
)

// Category names one journal file
type Category string

const (
	CategoryTasks       Category = "tasks"
	CategoryIdeas       Category = "ideas"
	CategoryMood        Category = "mood"
	CategoryHabits      Category = "habits"
	CategoryAssessments Category = "assessments"
	CategoryReviews     Category = "reviews"
)

// Categories lists every journal category in display order
func Categories() []Category {
	return []Category{
		CategoryTasks, CategoryIdeas, CategoryMood,
		CategoryHabits, CategoryAssessments, CategoryReviews,
	}
}

// -----------------------------------------------------------------------------
// CAPTURE - Tasks and ideas
// -----------------------------------------------------------------------------

// TaskEntry is an inbox task. Immutable once written; Done is only set by
// an explicit completion which rewrites the checkbox in place.
type TaskEntry struct {
	Content    string    `json:"content"`
	CapturedAt time.Time `json:"captured_at"`
	Done       bool      `json:"done"`
}

// IdeaEntry is a captured idea. Append-only.
type IdeaEntry struct {
	Content    string    `json:"content"`
	CapturedAt time.Time `json:"captured_at"`
}

// -----------------------------------------------------------------------------
// TRACKING - Mood, habits, life areas
// -----------------------------------------------------------------------------

// MoodSample is one mood self-report. File order is chronological order.
type MoodSample struct {
	Score      int       `json:"score"` // 1-10
	CapturedAt time.Time `json:"captured_at"`
	Notes      string    `json:"notes,omitempty"`
}

// HabitEvent marks one occurrence of a habit. Repeated names are expected.
type HabitEvent struct {
	Name       string    `json:"name"`
	CapturedAt time.Time `json:"captured_at"`
}

// AreaScore is the current self-assessment of one life area.
// AreaName is unique within the assessment file.
type AreaScore struct {
	AreaName  string    `json:"area_name"`
	Score     int       `json:"score"` // 1-10
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes,omitempty"`
}

// DefaultAreas are the life areas offered by the assessment flow
var DefaultAreas = []string{"Здоровье", "Карьера", "Отношения", "Финансы", "Личностный рост"}

// -----------------------------------------------------------------------------
// REVIEW - Daily reflection blocks
// -----------------------------------------------------------------------------

// ReviewField is one question/answer pair of a daily review
type ReviewField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ReviewEntry is a daily review block
type ReviewEntry struct {
	Fields     []ReviewField `json:"fields"`
	CapturedAt time.Time     `json:"captured_at"`
}

// ValidScore reports whether s is within the 1-10 scale
func ValidScore(s int) bool {
	return s >= MinScore && s <= MaxScore
}
