package audit

import (
	"strconv"

	"github.com/quantumlife/lifeos/internal/core"
)

// Recorder records domain events. A nil Recorder records nothing, so
// callers can run with auditing disabled.
type Recorder struct {
	store *Store
}

// NewRecorder creates a recorder for the given store
func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

// Store returns the underlying store
func (r *Recorder) Store() *Store {
	if r == nil {
		return nil
	}
	return r.store
}

func (r *Recorder) append(action, actor, entityType, entityID string, details map[string]interface{}) error {
	if r == nil || r.store == nil {
		return nil
	}
	_, err := r.store.Append(action, actor, entityType, entityID, details)
	return err
}

func chat(id int64) string { return strconv.FormatInt(id, 10) }

// RecordCapture records a task or idea written to the journal
func (r *Recorder) RecordCapture(chatID int64, cat core.Category, content, mirrorID string) error {
	action := ActionIdeaCaptured
	if cat == core.CategoryTasks {
		action = ActionTaskCaptured
	}
	details := map[string]interface{}{"content": content}
	if mirrorID != "" {
		details["mirror_id"] = mirrorID
	}
	return r.append(action, ActorUser, string(cat), chat(chatID), details)
}

// RecordTaskCompleted records a checked-off task
func (r *Recorder) RecordTaskCompleted(chatID int64, content, remoteID string) error {
	details := map[string]interface{}{"content": content}
	if remoteID != "" {
		details["remote_id"] = remoteID
	}
	return r.append(ActionTaskCompleted, ActorUser, string(core.CategoryTasks), chat(chatID), details)
}

// RecordMood records a mood sample
func (r *Recorder) RecordMood(chatID int64, score int) error {
	return r.append(ActionMoodRecorded, ActorUser, string(core.CategoryMood), chat(chatID),
		map[string]interface{}{"score": score})
}

// RecordHabit records a habit occurrence
func (r *Recorder) RecordHabit(chatID int64, name string) error {
	return r.append(ActionHabitRecorded, ActorUser, string(core.CategoryHabits), chat(chatID),
		map[string]interface{}{"name": name})
}

// RecordScore records a life-area assessment
func (r *Recorder) RecordScore(chatID int64, area string, score int) error {
	return r.append(ActionScoreUpdated, ActorUser, string(core.CategoryAssessments), chat(chatID),
		map[string]interface{}{"area": area, "score": score})
}

// RecordReview records a saved daily review
func (r *Recorder) RecordReview(chatID int64, fields int) error {
	return r.append(ActionReviewSaved, ActorUser, string(core.CategoryReviews), chat(chatID),
		map[string]interface{}{"fields": fields})
}

// RecordSession records a voice session transition
func (r *Recorder) RecordSession(action string, chatID int64, sessionID string) error {
	return r.append(action, ActorUser, "session", sessionID,
		map[string]interface{}{"chat_id": chatID})
}

// RecordSystem records a bot or scheduler event
func (r *Recorder) RecordSystem(action, actor string, details map[string]interface{}) error {
	return r.append(action, actor, "system", "", details)
}
