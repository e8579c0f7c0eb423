package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quantumlife/lifeos/internal/core"
)

// MaxCallbackData is the platform limit for button payloads, in bytes
const MaxCallbackData = 64

// ActionKind enumerates every button the bot renders
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionVoiceConfirm
	ActionVoiceCancel
	ActionVoiceEdit
	ActionCaptureTask   // Key
	ActionCaptureIdea   // Key
	ActionAreaScore     // Area, Score
	ActionAreaInfo      // Area
	ActionScoreSelect   // Score
	ActionShowScores
	ActionHabitComplete // Habit
	ActionHabitCustom
	ActionHabitHeader
	ActionHabitStats
	ActionMoodScore     // Score
	ActionCompleteTask  // TaskID, a remote task
	ActionCompleteLocal // Key, a journal task
)

var actionTags = map[ActionKind]string{
	ActionVoiceConfirm:  "voice_confirm",
	ActionVoiceCancel:   "voice_cancel",
	ActionVoiceEdit:     "voice_edit",
	ActionCaptureTask:   "capture_task",
	ActionCaptureIdea:   "capture_idea",
	ActionAreaScore:     "area_score",
	ActionAreaInfo:      "area_info",
	ActionScoreSelect:   "score_select",
	ActionShowScores:    "show_current_scores",
	ActionHabitComplete: "habit_complete",
	ActionHabitCustom:   "add_custom_habit",
	ActionHabitHeader:   "habit_category_header",
	ActionHabitStats:    "habits_stats",
	ActionMoodScore:     "mood_score",
	ActionCompleteTask:  "complete_task",
	ActionCompleteLocal: "complete_local",
}

var tagKinds = func() map[string]ActionKind {
	m := make(map[string]ActionKind, len(actionTags))
	for k, tag := range actionTags {
		m[tag] = k
	}
	return m
}()

func (k ActionKind) String() string {
	if tag, ok := actionTags[k]; ok {
		return tag
	}
	return "unknown"
}

// Action is a decoded button press. Only the fields of its kind are set.
type Action struct {
	Kind   ActionKind
	Key    string
	Area   string
	Habit  string
	TaskID string
	Score  int
}

// Encode renders the action as callback data
func (a Action) Encode() string {
	tag := a.Kind.String()
	switch a.Kind {
	case ActionCaptureTask, ActionCaptureIdea, ActionCompleteLocal:
		return tag + ":" + a.Key
	case ActionAreaScore:
		return tag + ":" + a.Area + ":" + strconv.Itoa(a.Score)
	case ActionAreaInfo:
		return tag + ":" + a.Area
	case ActionScoreSelect, ActionMoodScore:
		return tag + ":" + strconv.Itoa(a.Score)
	case ActionHabitComplete:
		return tag + ":" + a.Habit
	case ActionCompleteTask:
		return tag + ":" + a.TaskID
	default:
		return tag
	}
}

// DecodeAction parses callback data produced by Encode
func DecodeAction(data string) (Action, error) {
	if data == "" || len(data) > MaxCallbackData {
		return Action{}, fmt.Errorf("%w: callback data of %d bytes", core.ErrInvalidInput, len(data))
	}

	tag, payload, hasPayload := strings.Cut(data, ":")
	kind, ok := tagKinds[tag]
	if !ok {
		return Action{}, fmt.Errorf("%w: unknown action %q", core.ErrInvalidInput, tag)
	}
	a := Action{Kind: kind}

	needsPayload := true
	switch kind {
	case ActionCaptureTask, ActionCaptureIdea, ActionCompleteLocal:
		a.Key = payload
	case ActionAreaInfo:
		a.Area = payload
	case ActionHabitComplete:
		a.Habit = payload
	case ActionCompleteTask:
		a.TaskID = payload
	case ActionScoreSelect, ActionMoodScore:
		score, err := decodeScore(payload)
		if err != nil {
			return Action{}, err
		}
		a.Score = score
	case ActionAreaScore:
		// Area names may not contain ':', so the score is after the last one
		i := strings.LastIndex(payload, ":")
		if i <= 0 {
			return Action{}, fmt.Errorf("%w: area score %q", core.ErrInvalidInput, payload)
		}
		score, err := decodeScore(payload[i+1:])
		if err != nil {
			return Action{}, err
		}
		a.Area, a.Score = payload[:i], score
	default:
		needsPayload = false
	}

	if needsPayload && (!hasPayload || payload == "") {
		return Action{}, fmt.Errorf("%w: %s without payload", core.ErrInvalidInput, tag)
	}
	return a, nil
}

func decodeScore(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: score %q", core.ErrInvalidInput, s)
	}
	if !core.ValidScore(n) {
		return 0, fmt.Errorf("%w: got %d", core.ErrInvalidScore, n)
	}
	return n, nil
}
