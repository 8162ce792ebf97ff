package client

import "sync"

// MockState is a test implementation of StateInterface
type MockState struct {
	mu sync.Mutex

	config   map[string]string
	deviceID string
	dir      string

	DeviceIDErr error
}

// NewMockState creates a mock state with the given device id
func NewMockState(deviceID string) *MockState {
	return &MockState{
		config:   make(map[string]string),
		deviceID: deviceID,
		dir:      "/tmp/roomchat-mock",
	}
}

// GetConfig retrieves a configuration value
func (m *MockState) GetConfig(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config[key], nil
}

// SetConfig stores a configuration value
func (m *MockState) SetConfig(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config[key] = value
	return nil
}

// DeviceID returns the configured device id
func (m *MockState) DeviceID() (string, error) {
	if m.DeviceIDErr != nil {
		return "", m.DeviceIDErr
	}
	return m.deviceID, nil
}

// Nickname returns the stored nickname
func (m *MockState) Nickname() string {
	v, _ := m.GetConfig("nickname")
	return v
}

// SetNickname stores the nickname
func (m *MockState) SetNickname(nickname string) error {
	return m.SetConfig("nickname", nickname)
}

// Email returns the stored email
func (m *MockState) Email() string {
	v, _ := m.GetConfig("email")
	return v
}

// SetEmail stores the email
func (m *MockState) SetEmail(email string) error {
	return m.SetConfig("email", email)
}

// Dir returns the mock state directory
func (m *MockState) Dir() string {
	return m.dir
}

// Close is a no-op
func (m *MockState) Close() error {
	return nil
}
