package ui

import (
	"context"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/roomchat/roomchat/pkg/client"
)

// focusField identifies which input currently owns the keyboard.
type focusField int

const (
	focusMessage focusField = iota
	focusNickname
	focusEmail
)

// statusTimeout is how long a transient status line stays visible.
const statusTimeout = 4 * time.Second

// Messages delivered to Update. RefreshMsg and VerifiedSendMsg are sent
// from outside the program (the poller and the verification replay run on
// their own goroutines), the rest are produced by our own commands.
type (
	// RefreshMsg asks for a redraw because the poller changed the view.
	RefreshMsg struct{}

	// VerifiedSendMsg reports the outcome of a replayed send.
	VerifiedSendMsg struct {
		Status client.SendStatus
		Err    error
	}

	syncDoneMsg struct {
		mode client.SyncMode
		err  error
	}

	sendResultMsg struct {
		status client.SendStatus
		err    error
	}

	deleteResultMsg struct {
		id  int64
		err error
	}

	statusExpiredMsg struct {
		version uint64
	}
)

// Model is the chat widget's application state.
type Model struct {
	engine  *client.SyncEngine
	actions *client.Actions
	state   client.StateInterface
	msgView *MessageView
	logger  *log.Logger

	room       string
	serverAddr string
	version    string

	width  int
	height int
	ready  bool

	focus         focusField
	nicknameInput textinput.Model
	emailInput    textinput.Model
	messageInput  textarea.Model
	spinner       spinner.Model

	sending             bool
	pendingVerification bool
	pendingToken        string

	statusMessage string
	statusVersion uint64
	errorMessage  string

	lastNotifiedID int64
}

// NewModel creates the widget model. The engine, actions and view are
// shared with the poller, which runs outside the bubbletea loop.
func NewModel(engine *client.SyncEngine, actions *client.Actions, state client.StateInterface, msgView *MessageView, room, serverAddr, version string, logger *log.Logger) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	nick := textinput.New()
	nick.Placeholder = "nickname"
	nick.CharLimit = 64
	nick.Width = 24
	nick.SetValue(state.Nickname())

	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 254
	email.Width = 32
	email.SetValue(state.Email())

	ta := textarea.New()
	ta.Placeholder = "Type a message... (/delete <id> retracts one of yours)"
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.SetWidth(80)
	ta.SetHeight(3)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.FocusedStyle.Base = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Padding(0, 1)
	ta.BlurredStyle.Base = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Padding(0, 1)
	ta.Focus()

	msgView.SetSelf(state.Email())

	return Model{
		engine:        engine,
		actions:       actions,
		state:         state,
		msgView:       msgView,
		logger:        logger,
		room:          room,
		serverAddr:    serverAddr,
		version:       version,
		focus:         focusMessage,
		nicknameInput: nick,
		emailInput:    email,
		messageInput:  ta,
		spinner:       s,
	}
}

// Init starts the spinner and kicks off the initial history load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textarea.Blink, m.syncCmd(client.ModeInitial))
}

// syncCmd runs one sync on a background goroutine and reports back.
func (m Model) syncCmd(mode client.SyncMode) tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		err := engine.Sync(context.Background(), mode)
		return syncDoneMsg{mode: mode, err: err}
	}
}

// sendCmd submits a message on a background goroutine.
func (m Model) sendCmd(nickname, email, content string) tea.Cmd {
	actions := m.actions
	return func() tea.Msg {
		status, err := actions.Send(context.Background(), nickname, email, content)
		return sendResultMsg{status: status, err: err}
	}
}

// deleteCmd retracts one message on a background goroutine.
func (m Model) deleteCmd(id int64) tea.Cmd {
	actions := m.actions
	return func() tea.Msg {
		return deleteResultMsg{id: id, err: actions.Delete(context.Background(), id)}
	}
}

func (m *Model) logf(format string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}
