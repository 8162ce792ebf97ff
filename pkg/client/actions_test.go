package client

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomchat/roomchat/pkg/api"
)

// stubSignal is a test implementation of VerifySignal
type stubSignal struct {
	mu   sync.Mutex
	subs map[string]func()
}

func newStubSignal() *stubSignal {
	return &stubSignal{subs: make(map[string]func())}
}

func (s *stubSignal) Subscribe(token string, fn func()) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[token] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, token)
	}, nil
}

// fire delivers the verification signal for token exactly once
func (s *stubSignal) fire(token string) {
	s.mu.Lock()
	fn := s.subs[token]
	delete(s.subs, token)
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func TestSendValidation(t *testing.T) {
	tests := []struct {
		name     string
		nickname string
		email    string
		content  string
		wantErr  error
	}{
		{"missing nickname", "", "a@example.com", "hi", ErrMissingFields},
		{"missing email", "alice", "", "hi", ErrMissingFields},
		{"missing content", "alice", "a@example.com", "", ErrMissingFields},
		{"whitespace content", "alice", "a@example.com", "   ", ErrMissingFields},
		{"no at sign", "alice", "example.com", "hi", ErrInvalidEmail},
		{"no dot in domain", "alice", "a@example", "hi", ErrInvalidEmail},
		{"one letter tld", "alice", "a@example.c", "hi", ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := NewMockTransport()
			actions := NewActions(transport, NewMockState("dev-1"), NewMockView(6, 1), newStubSignal())

			status, err := actions.Send(context.Background(), tt.nickname, tt.email, tt.content)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, SendRejected, status)
			assert.Empty(t, transport.SendCalls, "no network call on validation failure")
		})
	}
}

func TestSendSuccessDoesNotInsertLocally(t *testing.T) {
	transport := NewMockTransport()
	transport.SendFunc = func(req api.SendRequest) (*api.SendResponse, error) {
		return &api.SendResponse{Success: true, Message: &api.Message{ID: 7}}, nil
	}
	state := NewMockState("dev-1")
	view := NewMockView(6, 1)
	actions := NewActions(transport, state, view, newStubSignal())

	status, err := actions.Send(context.Background(), "alice", "Alice@Example.com", "hello")
	require.NoError(t, err)
	assert.Equal(t, SendAccepted, status)

	// The confirmed message is delivered by polling, never inserted here
	assert.Empty(t, view.IDs())

	// Identity persisted before the call
	assert.Equal(t, "alice", state.Nickname())
	assert.Equal(t, "Alice@Example.com", state.Email())

	require.Len(t, transport.SendCalls, 1)
	assert.Equal(t, "dev-1", transport.SendCalls[0].DeviceID)
}

func TestSendServerRejection(t *testing.T) {
	transport := NewMockTransport()
	transport.SendFunc = func(req api.SendRequest) (*api.SendResponse, error) {
		return &api.SendResponse{Success: false, Error: "message too long"}, nil
	}
	actions := NewActions(transport, NewMockState("dev-1"), NewMockView(6, 1), newStubSignal())

	status, err := actions.Send(context.Background(), "alice", "a@example.com", "hello")
	assert.Equal(t, SendRejected, status)
	assert.EqualError(t, err, "message too long")
}

func TestSendChallengeReplaysExactlyOnce(t *testing.T) {
	transport := NewMockTransport()
	challenged := false
	transport.SendFunc = func(req api.SendRequest) (*api.SendResponse, error) {
		if !challenged {
			challenged = true
			return &api.SendResponse{Success: false, Error: "device verification required", Token: "tok-9"}, nil
		}
		return &api.SendResponse{Success: true, Message: &api.Message{ID: 3}}, nil
	}
	signal := newStubSignal()
	actions := NewActions(transport, NewMockState("dev-1"), NewMockView(6, 1), signal)

	var promptedToken string
	actions.OnVerificationRequired = func(token string) { promptedToken = token }
	var replayStatus SendStatus
	actions.OnSendComplete = func(status SendStatus, err error) {
		require.NoError(t, err)
		replayStatus = status
	}

	status, err := actions.Send(context.Background(), "alice", "a@example.com", "hello")
	require.NoError(t, err)
	assert.Equal(t, SendPendingVerification, status)
	assert.Equal(t, "tok-9", promptedToken)
	require.Len(t, transport.SendCalls, 1)

	// Out-of-band verification completes
	signal.fire("tok-9")
	assert.Equal(t, SendAccepted, replayStatus)
	require.Len(t, transport.SendCalls, 2)
	assert.Equal(t, transport.SendCalls[0].Content, transport.SendCalls[1].Content)

	// The subscription was one-shot
	signal.fire("tok-9")
	assert.Len(t, transport.SendCalls, 2)
}

func TestNewChallengeSupersedesOldReplay(t *testing.T) {
	transport := NewMockTransport()
	calls := 0
	transport.SendFunc = func(req api.SendRequest) (*api.SendResponse, error) {
		calls++
		switch calls {
		case 1:
			return &api.SendResponse{Success: false, Error: "device verification required", Token: "tok-1"}, nil
		case 2:
			return &api.SendResponse{Success: false, Error: "device verification required", Token: "tok-2"}, nil
		}
		return &api.SendResponse{Success: true, Message: &api.Message{ID: 5}}, nil
	}
	signal := newStubSignal()
	actions := NewActions(transport, NewMockState("dev-1"), NewMockView(6, 1), signal)

	status, err := actions.Send(context.Background(), "alice", "a@example.com", "first")
	require.NoError(t, err)
	require.Equal(t, SendPendingVerification, status)

	status, err = actions.Send(context.Background(), "alice", "a@example.com", "second")
	require.NoError(t, err)
	require.Equal(t, SendPendingVerification, status)

	// The first subscription was released, so its signal replays nothing
	signal.fire("tok-1")
	assert.Len(t, transport.SendCalls, 2)

	signal.fire("tok-2")
	require.Len(t, transport.SendCalls, 3)
	assert.Equal(t, "second", transport.SendCalls[2].Content)
}

func TestCloseReleasesPendingReplay(t *testing.T) {
	transport := NewMockTransport()
	transport.SendFunc = func(req api.SendRequest) (*api.SendResponse, error) {
		return &api.SendResponse{Success: false, Error: "device verification required", Token: "tok-1"}, nil
	}
	signal := newStubSignal()
	actions := NewActions(transport, NewMockState("dev-1"), NewMockView(6, 1), signal)

	status, err := actions.Send(context.Background(), "alice", "a@example.com", "hello")
	require.NoError(t, err)
	require.Equal(t, SendPendingVerification, status)

	actions.Close()
	signal.fire("tok-1")
	assert.Len(t, transport.SendCalls, 1)
}

func TestSendInFlightGuard(t *testing.T) {
	transport := NewMockTransport()
	release := make(chan struct{})
	transport.SendFunc = func(req api.SendRequest) (*api.SendResponse, error) {
		<-release
		return &api.SendResponse{Success: true}, nil
	}
	actions := NewActions(transport, NewMockState("dev-1"), NewMockView(6, 1), newStubSignal())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := actions.Send(context.Background(), "alice", "a@example.com", "first")
		assert.NoError(t, err)
	}()

	// Wait for the first send to take the guard
	for !actions.sendInFlight.Load() {
		runtime.Gosched()
	}

	_, err := actions.Send(context.Background(), "alice", "a@example.com", "second")
	assert.ErrorIs(t, err, ErrSendInFlight)

	close(release)
	<-done

	// Guard released after completion
	_, err = actions.Send(context.Background(), "alice", "a@example.com", "third")
	assert.NoError(t, err)
}

func TestSendTransportErrorReleasesGuard(t *testing.T) {
	transport := NewMockTransport()
	transport.SendFunc = func(req api.SendRequest) (*api.SendResponse, error) {
		return nil, errors.New("connection refused")
	}
	actions := NewActions(transport, NewMockState("dev-1"), NewMockView(6, 1), newStubSignal())

	_, err := actions.Send(context.Background(), "alice", "a@example.com", "hello")
	assert.Error(t, err)
	assert.False(t, actions.sendInFlight.Load())
}

func TestDeleteRemovesFromView(t *testing.T) {
	transport := NewMockTransport()
	state := NewMockState("dev-1")
	require.NoError(t, state.SetEmail("alice@example.com"))
	view := NewMockView(6, 1)
	view.Append([]api.Message{{ID: 1}, {ID: 2}, {ID: 3}})
	actions := NewActions(transport, state, view, newStubSignal())

	require.NoError(t, actions.Delete(context.Background(), 2))
	assert.Equal(t, []int64{1, 3}, view.IDs())
	assert.Equal(t, []int64{2}, transport.DeleteCalls)
}

func TestDeleteRequiresDeclaredEmail(t *testing.T) {
	transport := NewMockTransport()
	actions := NewActions(transport, NewMockState("dev-1"), NewMockView(6, 1), newStubSignal())

	err := actions.Delete(context.Background(), 2)
	assert.ErrorIs(t, err, ErrNoIdentity)
	assert.Empty(t, transport.DeleteCalls)
}

func TestDeleteServerRejectionLeavesView(t *testing.T) {
	transport := NewMockTransport()
	transport.DeleteFunc = func(id int64, req api.DeleteRequest) (*api.DeleteResponse, error) {
		return &api.DeleteResponse{Success: false, Error: "not your message"}, nil
	}
	state := NewMockState("dev-1")
	require.NoError(t, state.SetEmail("alice@example.com"))
	view := NewMockView(6, 1)
	view.Append([]api.Message{{ID: 1}, {ID: 2}})
	actions := NewActions(transport, state, view, newStubSignal())

	err := actions.Delete(context.Background(), 2)
	assert.EqualError(t, err, "not your message")
	assert.Equal(t, []int64{1, 2}, view.IDs())
}

func TestValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "first.last@sub.example.com", "user+tag@example.org"}
	invalid := []string{"", "plain", "@example.com", "user@", "user@host", "user@host.c"}

	for _, e := range valid {
		assert.True(t, ValidEmail(e), "expected %q to be valid", e)
	}
	for _, e := range invalid {
		assert.False(t, ValidEmail(e), "expected %q to be invalid", e)
	}
}
