package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// CredentialRecord is the metadata of a stored token
type CredentialRecord struct {
	Provider  string
	TokenType string
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CredentialStore keeps one serialized OAuth token per provider.
// The database file is created 0700-only; tokens are not encrypted.
type CredentialStore struct {
	db  *DB
	now func() time.Time
}

// NewCredentialStore creates a new credential store
func NewCredentialStore(db *DB) *CredentialStore {
	return &CredentialStore{db: db, now: time.Now}
}

// Store saves or replaces the token for a provider
func (s *CredentialStore) Store(provider, tokenType string, data []byte, expiresAt *time.Time) error {
	var expires sql.NullString
	if expiresAt != nil && !expiresAt.IsZero() {
		expires = sql.NullString{String: formatTime(*expiresAt), Valid: true}
	}
	now := formatTime(s.now())

	_, err := s.db.conn.Exec(`
		INSERT INTO credentials (provider, token_data, token_type, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider) DO UPDATE SET
			token_data = excluded.token_data,
			token_type = excluded.token_type,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, provider, string(data), tokenType, expires, now, now)
	if err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}
	return nil
}

// Get returns the token for a provider, nil when none is stored
func (s *CredentialStore) Get(provider string) ([]byte, error) {
	var data string
	err := s.db.conn.QueryRow(`SELECT token_data FROM credentials WHERE provider = ?`, provider).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	return []byte(data), nil
}

// GetRecord returns metadata without the token
func (s *CredentialStore) GetRecord(provider string) (*CredentialRecord, error) {
	var (
		record             CredentialRecord
		tokenType, expires sql.NullString
		created, updated   string
	)

	err := s.db.conn.QueryRow(`
		SELECT provider, token_type, expires_at, created_at, updated_at
		FROM credentials WHERE provider = ?
	`, provider).Scan(&record.Provider, &tokenType, &expires, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}

	record.TokenType = tokenType.String
	record.CreatedAt = parseTime(created)
	record.UpdatedAt = parseTime(updated)
	if expires.Valid {
		t := parseTime(expires.String)
		record.ExpiresAt = &t
	}
	return &record, nil
}

// Delete removes credentials for a provider
func (s *CredentialStore) Delete(provider string) error {
	if _, err := s.db.conn.Exec(`DELETE FROM credentials WHERE provider = ?`, provider); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}

// Exists checks if credentials exist for a provider
func (s *CredentialStore) Exists(provider string) (bool, error) {
	var count int
	err := s.db.conn.QueryRow(`SELECT COUNT(*) FROM credentials WHERE provider = ?`, provider).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check exists: %w", err)
	}
	return count > 0, nil
}
