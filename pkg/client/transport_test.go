package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomchat/roomchat/pkg/api"
)

func TestTransportHistoryQueries(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(api.HistoryResponse{
			Messages: []api.Message{{ID: 5, Nickname: "alice"}},
			HasNext:  true,
		})
	}))
	defer srv.Close()

	tr := NewTransport(srv.URL, "general")
	ctx := context.Background()

	page, err := tr.FetchPage(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "/general/history", gotPath)
	assert.Equal(t, []string{"2"}, gotQuery["page"])
	assert.True(t, page.HasNext)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, int64(5), page.Messages[0].ID)

	_, err = tr.FetchSince(ctx, 41)
	require.NoError(t, err)
	assert.Equal(t, []string{"41"}, gotQuery["since_id"])

	_, err = tr.FetchBefore(ctx, 41)
	require.NoError(t, err)
	assert.Equal(t, []string{"41"}, gotQuery["before_id"])
}

func TestTransportRoomIsPathEscaped(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		json.NewEncoder(w).Encode(api.HistoryResponse{})
	}))
	defer srv.Close()

	tr := NewTransport(srv.URL, "my room/x")
	_, err := tr.FetchPage(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "/my%20room%2Fx/history", gotPath)
}

func TestTransportHistoryNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := NewTransport(srv.URL, "general")
	_, err := tr.FetchPage(context.Background(), 1)
	assert.Error(t, err)
}

func TestTransportPostMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/general/send", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req api.SendRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "dev-1", req.DeviceID)

		json.NewEncoder(w).Encode(api.SendResponse{
			Success: true,
			Message: &api.Message{ID: 9, Content: req.Content},
		})
	}))
	defer srv.Close()

	tr := NewTransport(srv.URL, "general")
	resp, err := tr.PostMessage(context.Background(), api.SendRequest{
		Nickname: "alice", Email: "a@example.com", Content: "hi", DeviceID: "dev-1",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(9), resp.Message.ID)
}

func TestTransportPostMessageChallengeIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(api.StatusVerificationRequired)
		json.NewEncoder(w).Encode(api.SendResponse{
			Success: false,
			Error:   "device verification required",
			Token:   "tok-4",
		})
	}))
	defer srv.Close()

	tr := NewTransport(srv.URL, "general")
	resp, err := tr.PostMessage(context.Background(), api.SendRequest{})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "tok-4", resp.Token)
}

func TestTransportPostDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/general/delete/12", r.URL.Path)
		json.NewEncoder(w).Encode(api.DeleteResponse{Success: true})
	}))
	defer srv.Close()

	tr := NewTransport(srv.URL, "general")
	resp, err := tr.PostDelete(context.Background(), 12, api.DeleteRequest{
		Email: "a@example.com", DeviceID: "dev-1",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestTransportHeartbeat(t *testing.T) {
	var gotClientID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/general/heartbeat", r.URL.Path)
		var req api.HeartbeatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotClientID = req.ClientID
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := NewTransport(srv.URL, "general")
	require.NoError(t, tr.PostHeartbeat(context.Background(), "dev-1"))
	assert.Equal(t, "dev-1", gotClientID)
}
