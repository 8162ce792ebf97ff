package ui

import (
	"io"
	"log"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/roomchat/roomchat/pkg/client"
)

func newTestModel(t *testing.T) (Model, *client.MockTransport, *client.MockState) {
	t.Helper()

	transport := client.NewMockTransport()
	state := client.NewMockState("device-1")
	view := NewMessageView(80, 10)
	engine := client.NewSyncEngine(transport, view)
	actions := client.NewActions(transport, state, view, stubSignal{})
	logger := log.New(io.Discard, "", 0)

	m := NewModel(engine, actions, state, view, "lobby", "http://localhost:8080", "1.0.0", logger)
	return m, transport, state
}

// stubSignal satisfies client.VerifySignal for tests that never hit the
// verification path.
type stubSignal struct{}

func (stubSignal) Subscribe(token string, fn func()) (func(), error) {
	return func() {}, nil
}

func TestNewModel(t *testing.T) {
	m, _, _ := newTestModel(t)

	if m.engine == nil {
		t.Error("NewModel() engine is nil")
	}
	if m.actions == nil {
		t.Error("NewModel() actions is nil")
	}
	if m.room != "lobby" {
		t.Errorf("NewModel() room = %q, want %q", m.room, "lobby")
	}
	if m.version != "1.0.0" {
		t.Errorf("NewModel() version = %q, want %q", m.version, "1.0.0")
	}
	if m.focus != focusMessage {
		t.Errorf("NewModel() focus = %v, want focusMessage", m.focus)
	}
}

func TestNewModelPrefillsIdentity(t *testing.T) {
	transport := client.NewMockTransport()
	state := client.NewMockState("device-1")
	_ = state.SetNickname("alice")
	_ = state.SetEmail("alice@example.com")
	view := NewMessageView(80, 10)
	engine := client.NewSyncEngine(transport, view)
	actions := client.NewActions(transport, state, view, stubSignal{})

	m := NewModel(engine, actions, state, view, "lobby", "http://localhost:8080", "1.0.0", nil)

	if m.nicknameInput.Value() != "alice" {
		t.Errorf("nickname prefill = %q, want %q", m.nicknameInput.Value(), "alice")
	}
	if m.emailInput.Value() != "alice@example.com" {
		t.Errorf("email prefill = %q, want %q", m.emailInput.Value(), "alice@example.com")
	}
}

func TestWindowSizeMakesModelReady(t *testing.T) {
	m, _, _ := newTestModel(t)

	if m.View() != "Loading..." {
		t.Error("model without dimensions should render the loading placeholder")
	}

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = updated.(Model)

	if !m.ready {
		t.Error("WindowSizeMsg should mark the model ready")
	}
	if m.View() == "Loading..." {
		t.Error("sized model should render the full layout")
	}
}

func TestTabCyclesFocus(t *testing.T) {
	m, _, _ := newTestModel(t)

	order := []focusField{focusNickname, focusEmail, focusMessage}
	for i, want := range order {
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
		m = updated.(Model)
		if m.focus != want {
			t.Errorf("after %d tabs focus = %v, want %v", i+1, m.focus, want)
		}
	}
}

func TestSubmitWithoutIdentityShowsError(t *testing.T) {
	m, transport, _ := newTestModel(t)
	m.messageInput.SetValue("hello")

	updated, cmd := m.submit()
	m = updated.(Model)

	if cmd != nil {
		t.Error("submit without identity should not dispatch a send")
	}
	if m.errorMessage == "" {
		t.Error("submit without identity should surface an error")
	}
	if m.focus != focusNickname {
		t.Errorf("focus = %v, want focusNickname", m.focus)
	}
	if len(transport.SendCalls) != 0 {
		t.Errorf("transport saw %d sends, want 0", len(transport.SendCalls))
	}
}

func TestSubmitDispatchesSend(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.nicknameInput.SetValue("alice")
	m.emailInput.SetValue("alice@example.com")
	m.messageInput.SetValue("hello there")

	updated, cmd := m.submit()
	m = updated.(Model)

	if cmd == nil {
		t.Fatal("submit should dispatch a send command")
	}
	if !m.sending {
		t.Error("submit should mark the model as sending")
	}
	if m.messageInput.Value() != "" {
		t.Error("submit should clear the message input")
	}
}

func TestSubmitParsesDeleteCommand(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.messageInput.SetValue("/delete 42")

	updated, cmd := m.submit()
	m = updated.(Model)

	if cmd == nil {
		t.Fatal("/delete should dispatch a delete command")
	}
	if m.messageInput.Value() != "" {
		t.Error("/delete should clear the message input")
	}
}

func TestSubmitRejectsMalformedDelete(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.messageInput.SetValue("/delete forty-two")

	updated, cmd := m.submit()
	m = updated.(Model)

	if cmd != nil {
		t.Error("malformed /delete should not dispatch")
	}
	if m.errorMessage == "" {
		t.Error("malformed /delete should surface a usage error")
	}
}

func TestSendResultClearsSendingFlag(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.sending = true

	updated, cmd := m.Update(sendResultMsg{status: client.SendAccepted})
	m = updated.(Model)

	if m.sending {
		t.Error("accepted send should clear the sending flag")
	}
	if cmd == nil {
		t.Error("accepted send should schedule a status line and a new sync")
	}
}

func TestSendResultSurfacesRejection(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.sending = true

	updated, _ := m.Update(sendResultMsg{status: client.SendRejected, err: client.ErrInvalidEmail})
	m = updated.(Model)

	if m.errorMessage != client.ErrInvalidEmail.Error() {
		t.Errorf("errorMessage = %q, want %q", m.errorMessage, client.ErrInvalidEmail.Error())
	}
}

func TestSendResultPendingVerification(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.sending = true

	updated, _ := m.Update(sendResultMsg{status: client.SendPendingVerification})
	m = updated.(Model)

	if !m.pendingVerification {
		t.Error("pending verification should be flagged")
	}
	if m.statusMessage == "" {
		t.Error("pending verification should show a status line")
	}
}

func TestVerifiedSendClearsPendingState(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.pendingVerification = true
	m.pendingToken = "tok"

	updated, cmd := m.Update(VerifiedSendMsg{Status: client.SendAccepted})
	m = updated.(Model)

	if m.pendingVerification {
		t.Error("verified send should clear the pending flag")
	}
	if cmd == nil {
		t.Error("verified send should schedule a new sync")
	}
}

func TestStatusExpiryIgnoresStaleVersion(t *testing.T) {
	m, _, _ := newTestModel(t)

	_ = m.setStatus("first")
	_ = m.setStatus("second")

	updated, _ := m.Update(statusExpiredMsg{version: m.statusVersion - 1})
	m = updated.(Model)
	if m.statusMessage != "second" {
		t.Errorf("stale expiry cleared status %q", m.statusMessage)
	}

	updated, _ = m.Update(statusExpiredMsg{version: m.statusVersion})
	m = updated.(Model)
	if m.statusMessage != "" {
		t.Errorf("current expiry left status %q", m.statusMessage)
	}
}
