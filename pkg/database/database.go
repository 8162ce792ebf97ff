// Package database implements the SQLite-backed message and device store
// for the roomchat server.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/roomchat/roomchat/pkg/api"
)

var (
	// ErrMessageNotFound indicates the message does not exist.
	ErrMessageNotFound = errors.New("message not found")
	// ErrMessageNotOwned indicates the caller is not the message author.
	ErrMessageNotOwned = errors.New("cannot delete message not authored by this email")
	// ErrDeviceNotFound indicates the device has never been seen.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrTokenNotFound indicates no pending device matches the verification token.
	ErrTokenNotFound = errors.New("verification token not found")
)

// DB wraps the SQLite database connection
type DB struct {
	conn      *sql.DB // Read connection pool
	writeConn *sql.DB // Dedicated write connection (1 connection)
}

// Message represents a stored message record
type Message struct {
	ID        int64
	Room      string
	Nickname  string
	Email     string
	Content   string
	CreatedAt int64 // Unix timestamp in milliseconds
}

// Device represents a posting device and its verification state
type Device struct {
	DeviceID  string
	Email     string
	Token     string
	Verified  bool
	CreatedAt int64 // Unix timestamp in milliseconds
}

// ToAPI converts a stored message to its wire representation.
func (m *Message) ToAPI() api.Message {
	return api.Message{
		ID:        m.ID,
		Room:      m.Room,
		Nickname:  m.Nickname,
		Email:     m.Email,
		Content:   m.Content,
		Timestamp: time.UnixMilli(m.CreatedAt).UTC().Format(api.TimestampFormat),
	}
}

// Open opens a connection to the SQLite database at the given path
// and initializes the schema if needed
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL allows multiple readers and one writer at the same time
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := applyPragmas(conn); err != nil {
		conn.Close()
		return nil, err
	}

	// Dedicated write connection: exactly 1 connection, no pooling
	// (SQLite allows only one writer at a time)
	writeConn, err := sql.Open("sqlite", path)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open write connection: %w", err)
	}
	writeConn.SetMaxOpenConns(1)
	writeConn.SetMaxIdleConns(1)
	writeConn.SetConnMaxLifetime(0)

	if err := applyPragmas(writeConn); err != nil {
		conn.Close()
		writeConn.Close()
		return nil, err
	}

	db := &DB{
		conn:      conn,
		writeConn: writeConn,
	}

	if err := db.initSchema(); err != nil {
		conn.Close()
		writeConn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

func applyPragmas(conn *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	db.writeConn.Close()
	return db.conn.Close()
}

// initSchema creates all tables and indexes if they don't exist
func (db *DB) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS Message (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	room TEXT NOT NULL,
	nickname TEXT NOT NULL,
	email TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS Device (
	device_id TEXT PRIMARY KEY,
	email TEXT NOT NULL,
	token TEXT NOT NULL DEFAULT '',
	verified INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_room ON Message(room, id DESC);
CREATE INDEX IF NOT EXISTS idx_devices_token ON Device(token) WHERE token != '';
`

	_, err := db.conn.Exec(schema)
	return err
}

// InsertMessage stores a new message and returns the full record with its
// server-assigned id and timestamp.
func (db *DB) InsertMessage(room, nickname, email, content string) (*Message, error) {
	now := time.Now().UnixMilli()

	result, err := db.writeConn.Exec(`
		INSERT INTO Message (room, nickname, email, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, room, nickname, email, content, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get message id: %w", err)
	}

	return &Message{
		ID:        id,
		Room:      room,
		Nickname:  nickname,
		Email:     email,
		Content:   content,
		CreatedAt: now,
	}, nil
}

// ListPage returns one page of a room's messages in descending id order.
// Page numbers start at 1. hasNext reports whether an older page exists.
func (db *DB) ListPage(room string, page, perPage int) (messages []*Message, hasNext bool, err error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * perPage

	// Fetch one extra row to detect a following page
	rows, err := db.conn.Query(`
		SELECT id, room, nickname, email, content, created_at
		FROM Message
		WHERE room = ?
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`, room, perPage+1, offset)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list page: %w", err)
	}
	defer rows.Close()

	messages, err = scanMessages(rows)
	if err != nil {
		return nil, false, err
	}
	if len(messages) > perPage {
		messages = messages[:perPage]
		hasNext = true
	}
	return messages, hasNext, nil
}

// ListSince returns messages with id strictly greater than sinceID in
// ascending id order, capped at limit.
func (db *DB) ListSince(room string, sinceID int64, limit int) ([]*Message, error) {
	rows, err := db.conn.Query(`
		SELECT id, room, nickname, email, content, created_at
		FROM Message
		WHERE room = ? AND id > ?
		ORDER BY id ASC
		LIMIT ?
	`, room, sinceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list since: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// ListBefore returns messages with id strictly less than beforeID in
// descending id order. hasNext reports whether even older messages exist.
func (db *DB) ListBefore(room string, beforeID int64, limit int) (messages []*Message, hasNext bool, err error) {
	rows, err := db.conn.Query(`
		SELECT id, room, nickname, email, content, created_at
		FROM Message
		WHERE room = ? AND id < ?
		ORDER BY id DESC
		LIMIT ?
	`, room, beforeID, limit+1)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list before: %w", err)
	}
	defer rows.Close()

	messages, err = scanMessages(rows)
	if err != nil {
		return nil, false, err
	}
	if len(messages) > limit {
		messages = messages[:limit]
		hasNext = true
	}
	return messages, hasNext, nil
}

// CountRoom returns the total number of messages in a room.
func (db *DB) CountRoom(room string) (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM Message WHERE room = ?", room).Scan(&count)
	return count, err
}

// GetMessage retrieves a single message by id within a room.
func (db *DB) GetMessage(room string, id int64) (*Message, error) {
	msg := &Message{}
	err := db.conn.QueryRow(`
		SELECT id, room, nickname, email, content, created_at
		FROM Message
		WHERE room = ? AND id = ?
	`, room, id).Scan(&msg.ID, &msg.Room, &msg.Nickname, &msg.Email, &msg.Content, &msg.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

// DeleteMessage removes a message after verifying the requesting email
// matches the stored author email (case-insensitive).
func (db *DB) DeleteMessage(room string, id int64, email string) error {
	msg, err := db.GetMessage(room, id)
	if err != nil {
		return err
	}
	if !strings.EqualFold(msg.Email, email) {
		return ErrMessageNotOwned
	}

	_, err = db.writeConn.Exec("DELETE FROM Message WHERE room = ? AND id = ?", room, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// GetDevice retrieves a device record by its id.
func (db *DB) GetDevice(deviceID string) (*Device, error) {
	d := &Device{}
	var verified int
	err := db.conn.QueryRow(`
		SELECT device_id, email, token, verified, created_at
		FROM Device
		WHERE device_id = ?
	`, deviceID).Scan(&d.DeviceID, &d.Email, &d.Token, &verified, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	d.Verified = verified != 0
	return d, nil
}

// UpsertPendingDevice records an unverified device with a fresh
// verification token. Re-sending from the same device replaces the token,
// and a previously verified device goes back to unverified until the new
// token is used.
func (db *DB) UpsertPendingDevice(deviceID, email, token string) error {
	_, err := db.writeConn.Exec(`
		INSERT INTO Device (device_id, email, token, verified, created_at)
		VALUES (?, ?, ?, 0, ?)
		ON CONFLICT(device_id) DO UPDATE SET email = excluded.email, token = excluded.token, verified = 0
	`, deviceID, email, token, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert pending device: %w", err)
	}
	return nil
}

// VerifyDeviceByToken marks the device holding the token as verified and
// consumes the token. Returns the verified device.
func (db *DB) VerifyDeviceByToken(token string) (*Device, error) {
	if token == "" {
		return nil, ErrTokenNotFound
	}

	d := &Device{}
	err := db.conn.QueryRow(`
		SELECT device_id, email, created_at FROM Device WHERE token = ?
	`, token).Scan(&d.DeviceID, &d.Email, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	_, err = db.writeConn.Exec(`
		UPDATE Device SET verified = 1, token = '' WHERE device_id = ?
	`, d.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify device: %w", err)
	}
	d.Verified = true
	d.Token = ""
	return d, nil
}

func scanMessages(rows *sql.Rows) ([]*Message, error) {
	var messages []*Message
	for rows.Next() {
		msg := &Message{}
		if err := rows.Scan(&msg.ID, &msg.Room, &msg.Nickname, &msg.Email, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
