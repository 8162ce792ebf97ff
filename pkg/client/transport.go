package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/roomchat/roomchat/pkg/api"
)

// Transport issues the room-scoped HTTP requests. It carries no retry or
// backoff logic; callers see every outcome verbatim.
type Transport struct {
	baseURL    string
	room       string
	httpClient *http.Client
}

// NewTransport creates a Transport for one room on one server.
func NewTransport(baseURL, room string) *Transport {
	return &Transport{
		baseURL:    baseURL,
		room:       room,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// roomURL builds /{room}/{endpoint}?{query}
func (t *Transport) roomURL(endpoint string, query url.Values) string {
	u := t.baseURL + "/" + url.PathEscape(t.room) + "/" + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (t *Transport) getHistory(ctx context.Context, query url.Values) (*api.HistoryResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.roomURL("history", query), nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history request failed: %s", resp.Status)
	}

	var hist api.HistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&hist); err != nil {
		return nil, fmt.Errorf("failed to decode history response: %w", err)
	}
	return &hist, nil
}

// FetchPage requests page (1-based) of the room history, newest first.
func (t *Transport) FetchPage(ctx context.Context, page int) (*api.HistoryResponse, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	return t.getHistory(ctx, q)
}

// FetchSince requests messages with id strictly greater than sinceID,
// ascending.
func (t *Transport) FetchSince(ctx context.Context, sinceID int64) (*api.HistoryResponse, error) {
	q := url.Values{}
	q.Set("since_id", strconv.FormatInt(sinceID, 10))
	return t.getHistory(ctx, q)
}

// FetchBefore requests messages with id strictly less than beforeID,
// newest first.
func (t *Transport) FetchBefore(ctx context.Context, beforeID int64) (*api.HistoryResponse, error) {
	q := url.Values{}
	q.Set("before_id", strconv.FormatInt(beforeID, 10))
	return t.getHistory(ctx, q)
}

func (t *Transport) postJSON(ctx context.Context, u string, body interface{}) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return t.httpClient.Do(req)
}

// PostMessage submits a new message. A verification challenge
// (api.StatusVerificationRequired) is decoded and returned as a value,
// not an error: it is a protocol step, not a failure.
func (t *Transport) PostMessage(ctx context.Context, req api.SendRequest) (*api.SendResponse, error) {
	resp, err := t.postJSON(ctx, t.roomURL("send", nil), req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var send api.SendResponse
	if err := json.NewDecoder(resp.Body).Decode(&send); err != nil {
		return nil, fmt.Errorf("failed to decode send response: %w", err)
	}
	return &send, nil
}

// PostDelete requests removal of one message, authorized by email and
// device id.
func (t *Transport) PostDelete(ctx context.Context, id int64, req api.DeleteRequest) (*api.DeleteResponse, error) {
	u := t.baseURL + "/" + url.PathEscape(t.room) + "/delete/" + strconv.FormatInt(id, 10)
	resp, err := t.postJSON(ctx, u, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var del api.DeleteResponse
	if err := json.NewDecoder(resp.Body).Decode(&del); err != nil {
		return nil, fmt.Errorf("failed to decode delete response: %w", err)
	}
	return &del, nil
}

// PostHeartbeat sends a fire-and-forget presence signal.
func (t *Transport) PostHeartbeat(ctx context.Context, clientID string) error {
	resp, err := t.postJSON(ctx, t.roomURL("heartbeat", nil), api.HeartbeatRequest{ClientID: clientID})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("heartbeat failed: %s", resp.Status)
	}
	return nil
}
