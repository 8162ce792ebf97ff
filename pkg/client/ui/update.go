package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"
	"github.com/roomchat/roomchat/pkg/api"
	"github.com/roomchat/roomchat/pkg/client"
)

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.applyLayout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case syncDoneMsg:
		return m.handleSyncDone(msg)

	case sendResultMsg:
		return m.handleSendResult(msg)

	case deleteResultMsg:
		if msg.err != nil {
			m.errorMessage = msg.err.Error()
			return m, nil
		}
		m.errorMessage = ""
		return m, m.setStatus(fmt.Sprintf("Message %d deleted", msg.id))

	case RefreshMsg:
		return m.handleRefresh()

	case VerifiedSendMsg:
		m.pendingVerification = false
		m.pendingToken = ""
		if msg.Err != nil {
			m.errorMessage = msg.Err.Error()
			return m, nil
		}
		m.errorMessage = ""
		return m, tea.Batch(
			m.setStatus("Device verified, message sent"),
			m.syncCmd(client.ModeNew),
		)

	case statusExpiredMsg:
		if msg.version == m.statusVersion {
			m.statusMessage = ""
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "tab":
		m.cycleFocus(1)
		return m, nil

	case "shift+tab":
		m.cycleFocus(-1)
		return m, nil

	case "enter":
		if m.focus != focusMessage {
			m.cycleFocus(1)
			return m, nil
		}
		return m.submit()

	case "up", "down", "pgup", "pgdown":
		return m.handleScroll(msg.String())
	}

	switch m.focus {
	case focusNickname:
		m.nicknameInput, cmd = m.nicknameInput.Update(msg)
	case focusEmail:
		m.emailInput, cmd = m.emailInput.Update(msg)
	default:
		m.messageInput, cmd = m.messageInput.Update(msg)
	}
	return m, cmd
}

// handleScroll moves the message viewport. Reaching the top triggers a
// fetch of older history when there is any left.
func (m Model) handleScroll(key string) (tea.Model, tea.Cmd) {
	step := 1
	if key == "pgup" || key == "pgdown" {
		step = m.msgView.Height()
		if step < 1 {
			step = 1
		}
	}

	switch key {
	case "up", "pgup":
		if m.msgView.AtTop() {
			if m.engine.HasMoreOlder() && !m.engine.Loading() {
				return m, m.syncCmd(client.ModeOlder)
			}
			return m, nil
		}
		m.msgView.ScrollBy(-step)
	case "down", "pgdown":
		m.msgView.ScrollBy(step)
	}
	return m, nil
}

// submit dispatches the message input: a /delete command or a send.
func (m Model) submit() (tea.Model, tea.Cmd) {
	content := strings.TrimSpace(m.messageInput.Value())
	if content == "" {
		return m, nil
	}

	if rest, ok := strings.CutPrefix(content, "/delete "); ok {
		id, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
		if err != nil {
			m.errorMessage = "usage: /delete <message id>"
			return m, nil
		}
		m.messageInput.Reset()
		return m, m.deleteCmd(id)
	}

	if m.sending {
		return m, nil
	}

	nickname := strings.TrimSpace(m.nicknameInput.Value())
	email := strings.TrimSpace(m.emailInput.Value())
	if nickname == "" || email == "" {
		m.errorMessage = client.ErrMissingFields.Error()
		m.focus = focusNickname
		m.applyFocus()
		return m, nil
	}

	m.sending = true
	m.errorMessage = ""
	m.messageInput.Reset()
	return m, m.sendCmd(nickname, email, content)
}

func (m Model) handleSyncDone(msg syncDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.logf("sync failed (mode %d): %v", msg.mode, msg.err)
		m.errorMessage = fmt.Sprintf("Sync failed: %v", msg.err)
		return m, nil
	}
	m.errorMessage = ""

	if msg.mode == client.ModeInitial {
		return m, m.setStatus(fmt.Sprintf("Loaded %d messages", m.msgView.Len()))
	}
	if msg.mode == client.ModeOlder && !m.engine.HasMoreOlder() {
		return m, m.setStatus("Beginning of history")
	}
	return m, nil
}

func (m Model) handleSendResult(msg sendResultMsg) (tea.Model, tea.Cmd) {
	m.sending = false

	switch msg.status {
	case client.SendAccepted:
		m.errorMessage = ""
		m.msgView.SetSelf(m.emailInput.Value())
		return m, tea.Batch(m.setStatus("Message sent"), m.syncCmd(client.ModeNew))

	case client.SendPendingVerification:
		m.pendingVerification = true
		m.errorMessage = ""
		return m, m.setStatus("Check your email to verify this device; the message sends automatically")

	default:
		if msg.err != nil {
			m.errorMessage = msg.err.Error()
		} else {
			m.errorMessage = "Send failed"
		}
		return m, nil
	}
}

// handleRefresh redraws after the poller appended messages, and raises a
// desktop notification when the user has scrolled away from the bottom.
func (m Model) handleRefresh() (tea.Model, tea.Cmd) {
	messages := m.msgView.Messages()
	if len(messages) == 0 {
		return m, nil
	}
	latest := messages[len(messages)-1]
	if latest.ID <= m.lastNotifiedID {
		return m, nil
	}
	m.lastNotifiedID = latest.ID

	if !m.msgView.NearBottom() {
		m.sendDesktopNotification(latest)
	}
	return m, nil
}

// sendDesktopNotification raises a best-effort desktop notification.
func (m Model) sendDesktopNotification(msg api.Message) {
	title := fmt.Sprintf("roomchat - %s", m.room)

	content := msg.Content
	if len(content) > 100 {
		content = content[:97] + "..."
	}
	body := fmt.Sprintf("%s: %s", msg.Nickname, content)

	if err := beeep.Notify(title, body, ""); err != nil {
		m.logf("failed to send desktop notification: %v", err)
	}
}

// setStatus sets a transient status line and arms its expiry.
func (m *Model) setStatus(text string) tea.Cmd {
	m.statusMessage = text
	m.statusVersion++
	version := m.statusVersion
	return tea.Tick(statusTimeout, func(time.Time) tea.Msg {
		return statusExpiredMsg{version: version}
	})
}

func (m *Model) cycleFocus(dir int) {
	next := (int(m.focus) + dir + 3) % 3
	m.focus = focusField(next)
	m.applyFocus()
}

func (m *Model) applyFocus() {
	m.nicknameInput.Blur()
	m.emailInput.Blur()
	m.messageInput.Blur()
	switch m.focus {
	case focusNickname:
		m.nicknameInput.Focus()
	case focusEmail:
		m.emailInput.Focus()
	default:
		m.messageInput.Focus()
	}
}

// applyLayout resizes the panes after a terminal resize.
func (m *Model) applyLayout() {
	// Header(1) + identity(1) + textarea(5) + footer(1)
	contentHeight := m.height - 8
	if contentHeight < 3 {
		contentHeight = 3
	}
	contentWidth := m.width - 4
	if contentWidth < 20 {
		contentWidth = 20
	}
	m.msgView.SetSize(contentWidth, contentHeight)
	m.messageInput.SetWidth(m.width - 4)
}
