package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// TaskLink ties a journal task to its copy in the external task service
type TaskLink struct {
	TaskKey   string    `json:"task_key"`
	RemoteID  string    `json:"remote_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskLinkStore manages task links
type TaskLinkStore struct {
	db *DB
}

// NewTaskLinkStore creates a new task link store
func NewTaskLinkStore(db *DB) *TaskLinkStore {
	return &TaskLinkStore{db: db}
}

// Link records a mirrored task. A later link for the same key wins.
func (s *TaskLinkStore) Link(taskKey, remoteID, content string) error {
	_, err := s.db.conn.Exec(`
		INSERT INTO task_links (task_key, remote_id, content, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(task_key) DO UPDATE SET
			remote_id = excluded.remote_id,
			content = excluded.content
	`, taskKey, remoteID, content, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("insert task link: %w", err)
	}
	return nil
}

// ByKey finds the link for a journal task, nil when unmirrored
func (s *TaskLinkStore) ByKey(taskKey string) (*TaskLink, error) {
	return s.scanOne(`SELECT task_key, remote_id, content, created_at FROM task_links WHERE task_key = ?`, taskKey)
}

// ByRemoteID finds the link for an external task, nil when unknown
func (s *TaskLinkStore) ByRemoteID(remoteID string) (*TaskLink, error) {
	return s.scanOne(`SELECT task_key, remote_id, content, created_at FROM task_links WHERE remote_id = ?`, remoteID)
}

func (s *TaskLinkStore) scanOne(query, arg string) (*TaskLink, error) {
	var link TaskLink
	var created string
	err := s.db.conn.QueryRow(query, arg).Scan(&link.TaskKey, &link.RemoteID, &link.Content, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query task link: %w", err)
	}
	link.CreatedAt = parseTime(created)
	return &link, nil
}

// Delete drops the link for a journal task
func (s *TaskLinkStore) Delete(taskKey string) error {
	if _, err := s.db.conn.Exec(`DELETE FROM task_links WHERE task_key = ?`, taskKey); err != nil {
		return fmt.Errorf("delete task link: %w", err)
	}
	return nil
}

// Count returns the number of links
func (s *TaskLinkStore) Count() (int, error) {
	var n int
	err := s.db.conn.QueryRow(`SELECT COUNT(*) FROM task_links`).Scan(&n)
	return n, err
}
