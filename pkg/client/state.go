package client

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// State manages client-side persistent identity: the stable device id and
// the user-declared nickname/email pair. Keys are global, not per room.
type State struct {
	db  *sql.DB
	dir string // Directory where state is stored
}

// OpenState opens or creates the client state database
func OpenState(path string) (*State, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	// Client only needs one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS Config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create config table: %w", err)
	}

	return &State{
		db:  db,
		dir: dir,
	}, nil
}

// Close closes the state database
func (s *State) Close() error {
	return s.db.Close()
}

// GetConfig retrieves a configuration value
func (s *State) GetConfig(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM Config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetConfig stores a configuration value
func (s *State) SetConfig(key, value string) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO Config (key, value) VALUES (?, ?)
	`, key, value)
	return err
}

// DeviceID returns the stable per-installation device identifier,
// generating and persisting one on first use.
func (s *State) DeviceID() (string, error) {
	id, err := s.GetConfig("device_id")
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate device id: %w", err)
	}
	id = hex.EncodeToString(buf)

	if err := s.SetConfig("device_id", id); err != nil {
		return "", err
	}
	return id, nil
}

// Nickname returns the last declared nickname
func (s *State) Nickname() string {
	nickname, _ := s.GetConfig("nickname")
	return nickname
}

// SetNickname stores the declared nickname
func (s *State) SetNickname(nickname string) error {
	return s.SetConfig("nickname", strings.TrimSpace(nickname))
}

// Email returns the last declared email (stored lower-cased)
func (s *State) Email() string {
	email, _ := s.GetConfig("email")
	return email
}

// SetEmail stores the declared email, case-normalized
func (s *State) SetEmail(email string) error {
	return s.SetConfig("email", strings.ToLower(strings.TrimSpace(email)))
}

// Dir returns the directory where state is stored. The verification
// watcher observes signal files in this directory.
func (s *State) Dir() string {
	return s.dir
}
