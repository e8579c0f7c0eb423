// Package audit keeps a hash-chained, append-only record of every fact the
// bot commits and every voice session transition. Each entry carries the
// hash of its predecessor, so edits to stored rows are detectable.
package audit

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Genesis is the prev_hash of the first entry
const Genesis = "GENESIS:0000000000000000000000000000000000000000000000000000000000000000"

// Store manages the audit trail
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewStore creates an audit store over an open database with the
// audit_log table in place
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Entry is an immutable audit record
type Entry struct {
	ID         string    `json:"id"`
	Seq        int64     `json:"seq"`
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"`      // "task.captured", "session.confirmed", ...
	Actor      string    `json:"actor"`       // "user", "bot", "scheduler"
	EntityType string    `json:"entity_type"` // journal category or "session"
	EntityID   string    `json:"entity_id"`   // chat id or session id
	Details    string    `json:"details"`     // JSON blob
	PrevHash   string    `json:"prev_hash"`
	Hash       string    `json:"hash"`
}

// Action constants
const (
	ActionTaskCaptured   = "task.captured"
	ActionIdeaCaptured   = "idea.captured"
	ActionTaskCompleted  = "task.completed"
	ActionMoodRecorded   = "mood.recorded"
	ActionHabitRecorded  = "habit.recorded"
	ActionScoreUpdated   = "score.updated"
	ActionReviewSaved    = "review.saved"
	ActionSessionArrived = "session.arrived"
	ActionSessionEdited  = "session.edited"
	ActionSessionDone    = "session.confirmed"
	ActionSessionDropped = "session.cancelled"
	ActionBotStarted     = "bot.started"
	ActionReminderSent   = "reminder.sent"
)

// Actor constants
const (
	ActorUser      = "user"
	ActorBot       = "bot"
	ActorScheduler = "scheduler"
)

const selectColumns = `id, seq, timestamp, action, actor, entity_type, entity_id, details, prev_hash, hash`

// Append adds an entry chained to the current tail.
// This is the only write path.
func (s *Store) Append(action, actor, entityType, entityID string, details interface{}) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var detailsJSON string
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return nil, fmt.Errorf("marshal details: %w", err)
		}
		detailsJSON = string(data)
	}

	prevHash, err := s.lastHash()
	if err != nil {
		return nil, fmt.Errorf("get last hash: %w", err)
	}

	entry := &Entry{
		ID:         uuid.New().String(),
		Timestamp:  s.now().UTC(),
		Action:     action,
		Actor:      actor,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    detailsJSON,
		PrevHash:   prevHash,
	}
	entry.Hash = computeHash(entry)

	res, err := s.db.Exec(`
		INSERT INTO audit_log (id, timestamp, action, actor, entity_type, entity_id, details, prev_hash, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.Timestamp.Format(time.RFC3339Nano), entry.Action, entry.Actor,
		entry.EntityType, entry.EntityID, entry.Details, entry.PrevHash, entry.Hash)
	if err != nil {
		return nil, fmt.Errorf("insert audit entry: %w", err)
	}
	if seq, err := res.LastInsertId(); err == nil {
		entry.Seq = seq
	}

	return entry, nil
}

func (s *Store) lastHash() (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT hash FROM audit_log ORDER BY seq DESC LIMIT 1`).Scan(&hash)
	if err == sql.ErrNoRows {
		return Genesis, nil
	}
	if err != nil {
		return "", err
	}
	return hash, nil
}

// computeHash hashes the canonical JSON of an entry without its own hash.
// Seq is storage order, not content, and is left out.
func computeHash(entry *Entry) string {
	canonical := struct {
		ID         string    `json:"id"`
		Timestamp  time.Time `json:"timestamp"`
		Action     string    `json:"action"`
		Actor      string    `json:"actor"`
		EntityType string    `json:"entity_type"`
		EntityID   string    `json:"entity_id"`
		Details    string    `json:"details"`
		PrevHash   string    `json:"prev_hash"`
	}{
		ID:         entry.ID,
		Timestamp:  entry.Timestamp,
		Action:     entry.Action,
		Actor:      entry.Actor,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Details:    entry.Details,
		PrevHash:   entry.PrevHash,
	}

	data, _ := json.Marshal(canonical)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (*Entry, error) {
	var entry Entry
	var ts string
	var entityType, entityID, details, prevHash sql.NullString

	if err := row.Scan(&entry.ID, &entry.Seq, &ts, &entry.Action, &entry.Actor,
		&entityType, &entityID, &details, &prevHash, &entry.Hash); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	entry.Timestamp = t
	entry.EntityType = entityType.String
	entry.EntityID = entityID.String
	entry.Details = details.String
	entry.PrevHash = prevHash.String
	return &entry, nil
}

// VerifyChain walks the trail in storage order.
// Returns nil if intact, or a *ChainError for the first broken link.
func (s *Store) VerifyChain() error {
	rows, err := s.db.Query(`SELECT ` + selectColumns + ` FROM audit_log ORDER BY seq ASC`)
	if err != nil {
		return fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	expectedPrev := Genesis
	n := 0
	for rows.Next() {
		n++
		entry, err := scanEntry(rows)
		if err != nil {
			return fmt.Errorf("scan entry %d: %w", n, err)
		}

		if entry.PrevHash != expectedPrev {
			return &ChainError{
				EntryNum:     n,
				EntryID:      entry.ID,
				ExpectedHash: expectedPrev,
				ActualHash:   entry.PrevHash,
				Type:         ChainBroken,
			}
		}

		if want := computeHash(entry); entry.Hash != want {
			return &ChainError{
				EntryNum:     n,
				EntryID:      entry.ID,
				ExpectedHash: want,
				ActualHash:   entry.Hash,
				Type:         HashMismatch,
			}
		}

		expectedPrev = entry.Hash
	}
	return rows.Err()
}

// Chain error types
const (
	ChainBroken  = "chain_broken"
	HashMismatch = "hash_mismatch"
)

// ChainError describes the first invalid entry
type ChainError struct {
	EntryNum     int
	EntryID      string
	ExpectedHash string
	ActualHash   string
	Type         string
}

func (e *ChainError) Error() string {
	if e.Type == ChainBroken {
		return fmt.Sprintf("chain broken at entry %d (ID: %s): expected prev_hash %s, got %s",
			e.EntryNum, e.EntryID, abbrev(e.ExpectedHash), abbrev(e.ActualHash))
	}
	return fmt.Sprintf("hash mismatch at entry %d (ID: %s): expected %s, got %s",
		e.EntryNum, e.EntryID, abbrev(e.ExpectedHash), abbrev(e.ActualHash))
}

func abbrev(h string) string {
	if len(h) <= 16 {
		return h
	}
	return h[:16] + "..."
}

// QueryOptions filters entry listings
type QueryOptions struct {
	Action     string
	Actor      string
	EntityType string
	EntityID   string
	Limit      int
	Offset     int
}

// Query returns matching entries, newest first
func (s *Store) Query(opts QueryOptions) ([]*Entry, error) {
	query := `SELECT ` + selectColumns + ` FROM audit_log WHERE 1=1`
	var args []interface{}

	if opts.Action != "" {
		query += " AND action = ?"
		args = append(args, opts.Action)
	}
	if opts.Actor != "" {
		query += " AND actor = ?"
		args = append(args, opts.Actor)
	}
	if opts.EntityType != "" {
		query += " AND entity_type = ?"
		args = append(args, opts.EntityType)
	}
	if opts.EntityID != "" {
		query += " AND entity_id = ?"
		args = append(args, opts.EntityID)
	}

	query += " ORDER BY seq DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// GetByID returns a single entry, or nil when absent
func (s *Store) GetByID(id string) (*Entry, error) {
	entry, err := scanEntry(s.db.QueryRow(`SELECT `+selectColumns+` FROM audit_log WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query entry: %w", err)
	}
	return entry, nil
}

// Count returns the number of entries
func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM audit_log").Scan(&count)
	return count, err
}

// Summary statistics
type Summary struct {
	TotalEntries int            `json:"total_entries"`
	ByAction     map[string]int `json:"by_action"`
	ByActor      map[string]int `json:"by_actor"`
	ChainValid   bool           `json:"chain_valid"`
	ChainError   string         `json:"chain_error,omitempty"`
}

// GetSummary returns counts and the chain status
func (s *Store) GetSummary() (*Summary, error) {
	summary := &Summary{
		ByAction: make(map[string]int),
		ByActor:  make(map[string]int),
	}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM audit_log").Scan(&summary.TotalEntries); err != nil {
		return nil, err
	}
	if err := s.groupCount("action", summary.ByAction); err != nil {
		return nil, err
	}
	if err := s.groupCount("actor", summary.ByActor); err != nil {
		return nil, err
	}

	if err := s.VerifyChain(); err != nil {
		summary.ChainError = err.Error()
	} else {
		summary.ChainValid = true
	}
	return summary, nil
}

func (s *Store) groupCount(column string, into map[string]int) error {
	rows, err := s.db.Query("SELECT " + column + ", COUNT(*) FROM audit_log GROUP BY " + column)
	if err != nil {
		return fmt.Errorf("group by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		into[key] = count
	}
	return rows.Err()
}
