package client

import (
	"context"
	"sync"

	"github.com/roomchat/roomchat/pkg/api"
)

// MockTransport is a test implementation of TransportInterface
type MockTransport struct {
	mu sync.Mutex

	// Programmable responses
	PageFunc      func(page int) (*api.HistoryResponse, error)
	SinceFunc     func(sinceID int64) (*api.HistoryResponse, error)
	BeforeFunc    func(beforeID int64) (*api.HistoryResponse, error)
	SendFunc      func(req api.SendRequest) (*api.SendResponse, error)
	DeleteFunc    func(id int64, req api.DeleteRequest) (*api.DeleteResponse, error)
	HeartbeatErr  error

	// Recorded calls for verification
	PageCalls      []int
	SinceCalls     []int64
	BeforeCalls    []int64
	SendCalls      []api.SendRequest
	DeleteCalls    []int64
	HeartbeatCalls []string
}

// NewMockTransport creates a mock transport with empty defaults
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// FetchPage records the call and returns the programmed page response
func (m *MockTransport) FetchPage(ctx context.Context, page int) (*api.HistoryResponse, error) {
	m.mu.Lock()
	m.PageCalls = append(m.PageCalls, page)
	fn := m.PageFunc
	m.mu.Unlock()
	if fn == nil {
		return &api.HistoryResponse{}, nil
	}
	return fn(page)
}

// FetchSince records the call and returns the programmed since response
func (m *MockTransport) FetchSince(ctx context.Context, sinceID int64) (*api.HistoryResponse, error) {
	m.mu.Lock()
	m.SinceCalls = append(m.SinceCalls, sinceID)
	fn := m.SinceFunc
	m.mu.Unlock()
	if fn == nil {
		return &api.HistoryResponse{}, nil
	}
	return fn(sinceID)
}

// FetchBefore records the call and returns the programmed before response
func (m *MockTransport) FetchBefore(ctx context.Context, beforeID int64) (*api.HistoryResponse, error) {
	m.mu.Lock()
	m.BeforeCalls = append(m.BeforeCalls, beforeID)
	fn := m.BeforeFunc
	m.mu.Unlock()
	if fn == nil {
		return &api.HistoryResponse{}, nil
	}
	return fn(beforeID)
}

// PostMessage records the call and returns the programmed send response
func (m *MockTransport) PostMessage(ctx context.Context, req api.SendRequest) (*api.SendResponse, error) {
	m.mu.Lock()
	m.SendCalls = append(m.SendCalls, req)
	fn := m.SendFunc
	m.mu.Unlock()
	if fn == nil {
		return &api.SendResponse{Success: true}, nil
	}
	return fn(req)
}

// PostDelete records the call and returns the programmed delete response
func (m *MockTransport) PostDelete(ctx context.Context, id int64, req api.DeleteRequest) (*api.DeleteResponse, error) {
	m.mu.Lock()
	m.DeleteCalls = append(m.DeleteCalls, id)
	fn := m.DeleteFunc
	m.mu.Unlock()
	if fn == nil {
		return &api.DeleteResponse{Success: true}, nil
	}
	return fn(id, req)
}

// PostHeartbeat records the call and returns the programmed error
func (m *MockTransport) PostHeartbeat(ctx context.Context, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HeartbeatCalls = append(m.HeartbeatCalls, clientID)
	return m.HeartbeatErr
}

// SinceCallCount returns how many since fetches were issued
func (m *MockTransport) SinceCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SinceCalls)
}

// HeartbeatCallCount returns how many heartbeats were posted
func (m *MockTransport) HeartbeatCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.HeartbeatCalls)
}
