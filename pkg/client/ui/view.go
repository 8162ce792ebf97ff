package ui

import (
	"fmt"
	"strings"

	"github.com/76creates/stickers/flexbox"
	"github.com/charmbracelet/lipgloss"
)

// View renders the widget.
func (m Model) View() string {
	// Don't render until we have dimensions
	if !m.ready || m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	layout := flexbox.New(m.width, m.height)

	headerRow := layout.NewRow().AddCells(
		flexbox.NewCell(1, 1).SetContent(m.renderHeader()),
	)

	contentHeight := m.height - 8
	if contentHeight < 3 {
		contentHeight = 3
	}
	contentRow := layout.NewRow().AddCells(
		flexbox.NewCell(1, contentHeight).SetContent(
			MessagePaneStyle.Width(m.width - 2).Render(m.msgView.Render()),
		),
	)

	identityRow := layout.NewRow().AddCells(
		flexbox.NewCell(1, 1).SetContent(m.renderIdentityBar()),
	)

	inputRow := layout.NewRow().AddCells(
		flexbox.NewCell(1, 5).SetContent(m.messageInput.View()),
	)

	footerRow := layout.NewRow().AddCells(
		flexbox.NewCell(1, 1).SetContent(m.renderFooter()),
	)

	layout.AddRows([]*flexbox.Row{headerRow, contentRow, identityRow, inputRow, footerRow})

	return layout.Render()
}

// renderHeader renders the title bar with the room name and sync state.
func (m Model) renderHeader() string {
	left := HeaderStyle.Render(fmt.Sprintf("roomchat %s", m.version))
	room := fmt.Sprintf(" #%s @ %s ", m.room, m.serverAddr)

	var right string
	switch {
	case m.engine.Loading():
		right = m.spinner.View() + MutedTextStyle.Render("loading history")
	case m.sending:
		right = m.spinner.View() + MutedTextStyle.Render("sending")
	case m.pendingVerification:
		right = PendingStyle.Render("verification pending")
	default:
		right = MutedTextStyle.Render(fmt.Sprintf("%d messages", m.msgView.Len()))
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(room) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + room + strings.Repeat(" ", gap) + right
}

// renderIdentityBar renders the nickname and email inputs side by side.
func (m Model) renderIdentityBar() string {
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		InputLabelStyle.Render(" Nick "),
		m.nicknameInput.View(),
		InputLabelStyle.Render("  Email "),
		m.emailInput.View(),
	)
}

// renderFooter renders key hints plus the transient status or error line.
func (m Model) renderFooter() string {
	hints := FooterStyle.Render(" [Tab] switch field  [Enter] send  [PgUp] older history  [Ctrl+C] quit")

	var trailer string
	if m.errorMessage != "" {
		trailer = ErrorTextStyle.Render(m.errorMessage)
	} else if m.statusMessage != "" {
		trailer = StatusStyle.Render(m.statusMessage)
	}
	if trailer == "" {
		return hints
	}

	gap := m.width - lipgloss.Width(hints) - lipgloss.Width(trailer) - 1
	if gap < 1 {
		gap = 1
	}
	return hints + strings.Repeat(" ", gap) + trailer
}
