package ui

import (
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/roomchat/roomchat/pkg/api"
)

// NearBottomLines is the threshold for the "pinned to bottom" check: the
// viewport counts as near the bottom when the last visible line is within
// this many lines of the end of the log.
const NearBottomLines = 3

// MessageView is the terminal render sink for the message log. It wraps a
// bubbles viewport and keeps the displayed records keyed by message id, so
// a batch that includes an id already on screen inserts only the missing
// records. All heights and offsets are line counts.
//
// The sync engine, the poller and the TUI all touch the view, so every
// method takes the internal lock.
type MessageView struct {
	mu        sync.Mutex
	vp        viewport.Model
	messages  []api.Message
	present   map[int64]bool
	selfEmail string
	lineCount int
}

// NewMessageView creates a message view with the given dimensions.
func NewMessageView(width, height int) *MessageView {
	return &MessageView{
		vp:      viewport.New(width, height),
		present: make(map[int64]bool),
	}
}

// SetSelf records the local identity so the view can highlight own messages.
func (v *MessageView) SetSelf(email string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selfEmail = email
	v.rebuild()
}

// SetSize resizes the viewport and re-wraps the content.
func (v *MessageView) SetSize(width, height int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.vp.Width = width
	v.vp.Height = height
	v.rebuild()
}

// Append adds messages at the end of the log, skipping ids already present.
func (v *MessageView) Append(messages []api.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	changed := false
	for _, m := range messages {
		if v.present[m.ID] {
			continue
		}
		v.present[m.ID] = true
		v.messages = append(v.messages, m)
		changed = true
	}
	if changed {
		v.rebuild()
	}
}

// Prepend inserts messages at the start of the log, skipping ids already
// present. The caller is responsible for adjusting the scroll offset by the
// resulting height delta.
func (v *MessageView) Prepend(messages []api.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fresh := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		if v.present[m.ID] {
			continue
		}
		v.present[m.ID] = true
		fresh = append(fresh, m)
	}
	if len(fresh) == 0 {
		return
	}
	v.messages = append(fresh, v.messages...)
	v.rebuild()
}

// Remove deletes the message with the given id. Absent ids are a no-op.
func (v *MessageView) Remove(id int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.present[id] {
		return
	}
	delete(v.present, id)
	for i, m := range v.messages {
		if m.ID == id {
			v.messages = append(v.messages[:i], v.messages[i+1:]...)
			break
		}
	}
	v.rebuild()
}

// OldestID reports the id of the first record in the log.
func (v *MessageView) OldestID() (int64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.messages) == 0 {
		return 0, false
	}
	return v.messages[0].ID, true
}

// ContentHeight reports the rendered height of the log in lines.
func (v *MessageView) ContentHeight() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lineCount
}

// ScrollOffset reports the index of the first visible line.
func (v *MessageView) ScrollOffset() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.vp.YOffset
}

// SetScrollOffset scrolls to the given line, clamped to the content.
func (v *MessageView) SetScrollOffset(offset int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setOffsetLocked(offset)
}

// ScrollBy scrolls by a relative number of lines.
func (v *MessageView) ScrollBy(delta int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setOffsetLocked(v.vp.YOffset + delta)
}

// ScrollToBottom pins the viewport to the end of the log.
func (v *MessageView) ScrollToBottom() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setOffsetLocked(v.lineCount)
}

// NearBottom reports whether the last visible line is within
// NearBottomLines of the end of the log.
func (v *MessageView) NearBottom() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lineCount-(v.vp.YOffset+v.vp.Height) <= NearBottomLines
}

// Height reports the viewport height in lines.
func (v *MessageView) Height() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.vp.Height
}

// AtTop reports whether the viewport shows the first line.
func (v *MessageView) AtTop() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.vp.YOffset == 0
}

// Len reports the number of displayed messages.
func (v *MessageView) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.messages)
}

// Messages returns a copy of the displayed log, oldest first.
func (v *MessageView) Messages() []api.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]api.Message, len(v.messages))
	copy(out, v.messages)
	return out
}

// Render returns the visible window of the log.
func (v *MessageView) Render() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.vp.View()
}

func (v *MessageView) setOffsetLocked(offset int) {
	maxOffset := v.lineCount - v.vp.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset > maxOffset {
		offset = maxOffset
	}
	if offset < 0 {
		offset = 0
	}
	v.vp.SetYOffset(offset)
}

// rebuild re-renders the log into the viewport and recounts lines. Must be
// called with the lock held.
func (v *MessageView) rebuild() {
	if len(v.messages) == 0 {
		content := MutedTextStyle.Render("No messages yet.")
		v.vp.SetContent(content)
		v.lineCount = 1
		return
	}

	lines := make([]string, 0, len(v.messages))
	for _, m := range v.messages {
		lines = append(lines, formatMessage(m, v.vp.Width, v.selfEmail))
	}
	content := strings.Join(lines, "\n")
	v.vp.SetContent(content)
	v.lineCount = strings.Count(content, "\n") + 1
}

// formatMessage renders a single message as "[HH:MM] nickname: content",
// wrapped to the given width.
func formatMessage(m api.Message, width int, selfEmail string) string {
	stamp := m.Timestamp
	if t, err := time.Parse(api.TimestampFormat, m.Timestamp); err == nil {
		stamp = t.Format("15:04")
	}

	authorStyle := MessageAuthorStyle
	if selfEmail != "" && strings.EqualFold(m.Email, selfEmail) {
		authorStyle = MessageOwnAuthorStyle
	}

	line := MessageTimeStyle.Render("["+stamp+"]") + " " +
		authorStyle.Render(m.Nickname) + ": " +
		sanitizeContent(m.Content)

	if width > 0 {
		return lipgloss.NewStyle().Width(width).Render(line)
	}
	return line
}

// sanitizeContent strips terminal control characters from message content,
// keeping newlines and tabs.
func sanitizeContent(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
