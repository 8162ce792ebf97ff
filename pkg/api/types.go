// Package api defines the JSON wire types shared by the roomchat client
// and server.
package api

import "net/http"

// TimestampFormat is the layout used for Message.Timestamp on the wire.
const TimestampFormat = "2006-01-02 15:04:05"

// StatusVerificationRequired is returned by the send endpoint when the
// posting device is unknown or unverified. The response body carries a
// Token correlating the out-of-band verification flow.
const StatusVerificationRequired = http.StatusPreconditionRequired

// Message is a single chat message. Messages are immutable once created
// server-side; clients only add or remove whole records from their view.
type Message struct {
	ID        int64  `json:"id"`
	Room      string `json:"room"`
	Nickname  string `json:"nickname"`
	Email     string `json:"email"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// HistoryResponse is the envelope for all three history query shapes
// (page, since_id, before_id).
type HistoryResponse struct {
	Messages []Message `json:"messages"`
	HasNext  bool      `json:"has_next"`
	HasPrev  bool      `json:"has_prev"`
	Total    int       `json:"total"`
}

// SendRequest is the body of POST /{room}/send.
type SendRequest struct {
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Content  string `json:"content"`
	DeviceID string `json:"device_id"`
}

// SendResponse is the body returned by the send endpoint. On a
// verification challenge Success is false and Token is set.
type SendResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Message *Message `json:"message,omitempty"`
	Token   string   `json:"token,omitempty"`
}

// DeleteRequest is the body of POST /{room}/delete/{id}.
type DeleteRequest struct {
	Email    string `json:"email"`
	DeviceID string `json:"device_id"`
}

// DeleteResponse is the body returned by the delete endpoint.
type DeleteResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// HeartbeatRequest is the body of POST /{room}/heartbeat.
type HeartbeatRequest struct {
	ClientID string `json:"client_id"`
}
